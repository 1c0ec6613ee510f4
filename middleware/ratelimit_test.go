package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"curvot-backend/sessions"

	"github.com/gin-gonic/gin"
)

func TestLimiterWithinBurst(t *testing.T) {
	l := NewLimiter(3, 1*time.Minute)
	for i := 0; i < 3; i++ {
		if !l.Allow("ip:1.2.3.4") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
}

func TestLimiterOverBurst(t *testing.T) {
	l := NewLimiter(2, 1*time.Minute)
	l.Allow("ip:1.2.3.4")
	l.Allow("ip:1.2.3.4")
	if l.Allow("ip:1.2.3.4") {
		t.Fatal("third request should be blocked")
	}
}

func TestLimiterRefill(t *testing.T) {
	l := NewLimiter(1, 50*time.Millisecond)
	l.Allow("ip:1.2.3.4")
	if l.Allow("ip:1.2.3.4") {
		t.Fatal("should be blocked immediately")
	}
	time.Sleep(60 * time.Millisecond)
	if !l.Allow("ip:1.2.3.4") {
		t.Fatal("token should have refilled")
	}
}

func TestLimiterIndependentCallers(t *testing.T) {
	l := NewLimiter(1, 1*time.Minute)
	if !l.Allow("ip:1.1.1.1") {
		t.Fatal("first caller should be allowed")
	}
	if !l.Allow("ip:2.2.2.2") {
		t.Fatal("second caller should be allowed")
	}
	if l.Allow("ip:1.1.1.1") {
		t.Fatal("first caller should now be blocked")
	}
}

func TestLimiterMiddleware429(t *testing.T) {
	l := NewLimiter(1, 1*time.Minute)
	r := gin.New()
	r.Use(l.Middleware())
	r.GET("/t", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/t", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("GET", "/t", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
}

// Two sessions sharing one IP are throttled separately, and a session
// caller does not drain the plain-IP bucket.
func TestLimiterKeysBySessionWhenPresent(t *testing.T) {
	l := NewLimiter(1, 1*time.Minute)
	store := sessions.NewMemoryStore()

	r := gin.New()
	r.Use(sessions.Middleware(store))
	r.Use(l.Middleware())
	r.GET("/t", func(c *gin.Context) { c.Status(http.StatusOK) })

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest("GET", "/t", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("expected 200 for first session, got %d", first.Code)
	}

	// A different visitor from the same address gets a fresh bucket.
	second := httptest.NewRecorder()
	r.ServeHTTP(second, httptest.NewRequest("GET", "/t", nil))
	if second.Code != http.StatusOK {
		t.Fatalf("expected 200 for second session, got %d", second.Code)
	}

	// The first session's own bucket is spent.
	var cookie *http.Cookie
	for _, ck := range first.Result().Cookies() {
		if ck.Name == sessions.CookieName {
			cookie = ck
		}
	}
	if cookie == nil {
		t.Fatal("no session cookie on first response")
	}
	req := httptest.NewRequest("GET", "/t", nil)
	req.AddCookie(cookie)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 for repeat session caller, got %d", w.Code)
	}
}

func TestLimiterSweepDropsIdleBuckets(t *testing.T) {
	l := NewLimiter(1, 1*time.Minute)
	l.Allow("ip:1.2.3.4")
	l.Allow("ip:5.6.7.8")

	// Age every bucket past the idle cutoff and force a sweep.
	l.mu.Lock()
	stale := time.Now().Add(-3 * sweepEvery)
	for _, b := range l.buckets {
		b.seen = stale
	}
	l.lastSweep = stale
	l.mu.Unlock()

	l.Allow("ip:9.9.9.9")

	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.buckets) != 1 {
		t.Fatalf("expected only the fresh bucket to survive, got %d", len(l.buckets))
	}
}
