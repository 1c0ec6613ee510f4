package sessions

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupSessionRouter(store Store) *gin.Engine {
	r := gin.New()
	r.Use(Middleware(store))
	r.GET("/whoami", func(c *gin.Context) {
		sess, ok := FromContext(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":   true,
			"sessionId": sess.ID,
			"cartItems": len(sess.Cart),
			"views":     sess.Views,
		})
	})
	return r
}

func TestMiddlewareCreatesSessionAndSetsCookie(t *testing.T) {
	store := NewMemoryStore()
	router := setupSessionRouter(store)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/whoami", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var sid string
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == CookieName {
			sid = cookie.Value
		}
	}
	if sid == "" {
		t.Fatal("expected session cookie to be set")
	}

	// First touch must persist the empty cart immediately.
	sess, err := store.Load(context.Background(), sid)
	if err != nil {
		t.Fatalf("session not persisted on first touch: %v", err)
	}
	if sess.Cart == nil || len(sess.Cart) != 0 {
		t.Errorf("expected empty non-nil cart, got %+v", sess.Cart)
	}
}

func TestMiddlewareReusesExistingSession(t *testing.T) {
	store := NewMemoryStore()
	router := setupSessionRouter(store)

	w1 := httptest.NewRecorder()
	router.ServeHTTP(w1, httptest.NewRequest("GET", "/whoami", nil))

	var cookie *http.Cookie
	for _, ck := range w1.Result().Cookies() {
		if ck.Name == CookieName {
			cookie = ck
		}
	}
	if cookie == nil {
		t.Fatal("no session cookie on first request")
	}

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.AddCookie(cookie)
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, req)

	for _, ck := range w2.Result().Cookies() {
		if ck.Name == CookieName && ck.Value != cookie.Value {
			t.Errorf("session id changed across requests: %s -> %s", cookie.Value, ck.Value)
		}
	}
}

func TestMiddlewarePersistsViewCounter(t *testing.T) {
	store := NewMemoryStore()
	router := setupSessionRouter(store)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/whoami", nil))

	var cookie *http.Cookie
	for _, ck := range w.Result().Cookies() {
		if ck.Name == CookieName {
			cookie = ck
		}
	}
	if cookie == nil {
		t.Fatal("no session cookie on first request")
	}

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("GET", "/whoami", nil)
		req.AddCookie(cookie)
		w = httptest.NewRecorder()
		router.ServeHTTP(w, req)
	}

	sess, err := store.Load(context.Background(), cookie.Value)
	if err != nil {
		t.Fatal(err)
	}
	if sess.Views != 3 {
		t.Errorf("expected 3 stored views after 3 requests, got %d", sess.Views)
	}
}

func TestMiddlewareUnknownCookieStartsFresh(t *testing.T) {
	store := NewMemoryStore()
	router := setupSessionRouter(store)

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "evicted-or-forged"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	for _, ck := range w.Result().Cookies() {
		if ck.Name == CookieName && ck.Value == "evicted-or-forged" {
			t.Error("expected a fresh session id for an unknown cookie")
		}
	}
}

type failingStore struct{}

func (failingStore) Load(ctx context.Context, id string) (*Session, error) {
	return nil, errors.New("store down")
}
func (failingStore) Save(ctx context.Context, s *Session) error  { return errors.New("store down") }
func (failingStore) Delete(ctx context.Context, id string) error { return errors.New("store down") }

func TestMiddlewareStoreFailure(t *testing.T) {
	router := setupSessionRouter(failingStore{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/whoami", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 when the session store is down, got %d", w.Code)
	}
}
