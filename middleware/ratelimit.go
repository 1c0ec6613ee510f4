package middleware

import (
	"net/http"
	"sync"
	"time"

	"curvot-backend/sessions"

	"github.com/gin-gonic/gin"
)

// Limiter throttles bursts per caller with a token bucket. The caller
// key is the visitor session when one is attached, so a hammering
// session cannot hide behind a shared NAT address; requests outside the
// session surface fall back to the client IP.
type Limiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	burst     float64
	perSecond float64
	lastSweep time.Time
}

type bucket struct {
	tokens float64
	seen   time.Time
}

const sweepEvery = 5 * time.Minute

// NewLimiter allows burst requests per caller over the given window,
// refilling continuously.
func NewLimiter(burst int, window time.Duration) *Limiter {
	return &Limiter{
		buckets:   make(map[string]*bucket),
		burst:     float64(burst),
		perSecond: float64(burst) / window.Seconds(),
		lastSweep: time.Now(),
	}
}

// Allow spends one token for the caller, reporting whether any was left.
func (l *Limiter) Allow(caller string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.sweep(now)

	b, ok := l.buckets[caller]
	if !ok {
		l.buckets[caller] = &bucket{tokens: l.burst - 1, seen: now}
		return true
	}

	b.tokens += now.Sub(b.seen).Seconds() * l.perSecond
	if b.tokens > l.burst {
		b.tokens = l.burst
	}
	b.seen = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// sweep drops buckets idle long enough to have refilled completely.
// Runs inline under the lock, so the limiter holds no goroutine.
func (l *Limiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < sweepEvery {
		return
	}
	l.lastSweep = now
	for caller, b := range l.buckets {
		if now.Sub(b.seen) > 2*sweepEvery {
			delete(l.buckets, caller)
		}
	}
}

func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(callerKey(c)) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests. Please try again later."})
			c.Abort()
			return
		}
		c.Next()
	}
}

func callerKey(c *gin.Context) string {
	if sid, ok := sessions.IDFromContext(c); ok {
		return "session:" + sid
	}
	return "ip:" + c.ClientIP()
}
