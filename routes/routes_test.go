package routes

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"curvot-backend/cache"
	"curvot-backend/sessions"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestEngine(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)
	os.Setenv("JWT_SECRET", "test-secret-key-for-unit-tests")

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}

	r := gin.New()
	SetupRoutes(r, Deps{
		DB:           db,
		SessionStore: sessions.NewMemoryStore(),
		ProductCache: cache.NoopProductCache{},
		Registry:     prometheus.NewRegistry(),
	})
	return r
}

func TestHealthEndpoint(t *testing.T) {
	r := setupTestEngine(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
}

func TestMetricsEndpointExposed(t *testing.T) {
	r := setupTestEngine(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
}

func TestCartRoutesHaveSession(t *testing.T) {
	r := setupTestEngine(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/api/cart", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var found bool
	for _, ck := range w.Result().Cookies() {
		if ck.Name == sessions.CookieName {
			found = true
			if !ck.HttpOnly {
				t.Error("session cookie must be httpOnly")
			}
		}
	}
	if !found {
		t.Error("cart route did not set a session cookie")
	}
}

func TestProtectedRoutesRejectAnonymous(t *testing.T) {
	r := setupTestEngine(t)

	for _, path := range []string{"/api/auth/profile", "/api/orders"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", path, nil))
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", path, w.Code)
		}
	}
}
