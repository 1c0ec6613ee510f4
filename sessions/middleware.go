package sessions

import (
	"errors"
	"log"
	"net/http"

	"curvot-backend/models"

	"github.com/gin-gonic/gin"
)

const (
	contextKeySession = "session"
	contextKeyID      = "session_id"
)

// Middleware attaches the visitor's session to the request, creating and
// persisting an empty one on first touch so the cart array always exists
// before any cart handler runs. The cookie must round-trip on every
// request; a missing or expired cookie starts a new, empty cart.
func Middleware(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var sess *Session

		if sid, err := c.Cookie(CookieName); err == nil && sid != "" {
			loaded, err := store.Load(c.Request.Context(), sid)
			switch {
			case err == nil:
				sess = loaded
			case errors.Is(err, ErrNotFound):
				// Evicted or forged cookie; fall through to a new session.
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Session store unavailable"})
				c.Abort()
				return
			}
		}

		if sess == nil {
			sess = New()
		}
		if sess.Cart == nil {
			sess.Cart = []models.CartLineItem{}
		}

		sess.Views++

		// Resave on every request, not just first touch: the view counter
		// and the TTL clock both live on the stored document.
		if err := store.Save(c.Request.Context(), sess); err != nil {
			log.Printf("Error saving session %s: %v", sess.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Session store unavailable"})
			c.Abort()
			return
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(CookieName, sess.ID, int(TTL.Seconds()), "/", "", false, true)

		c.Set(contextKeySession, sess)
		c.Set(contextKeyID, sess.ID)
		c.Next()
	}
}

// FromContext returns the session attached by Middleware.
func FromContext(c *gin.Context) (*Session, bool) {
	v, ok := c.Get(contextKeySession)
	if !ok {
		return nil, false
	}
	sess, ok := v.(*Session)
	return sess, ok
}

// IDFromContext returns the session id attached by Middleware.
func IDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(contextKeyID)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}
