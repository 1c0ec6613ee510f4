package sessions

import (
	"context"
	"errors"
	"time"

	"curvot-backend/models"

	"github.com/google/uuid"
)

// CookieName is the session cookie carried by every storefront request.
const CookieName = "shop_sid"

// TTL is the idle lifetime of a session; the stores evict documents that
// have not been saved within it.
const TTL = 24 * time.Hour

var ErrNotFound = errors.New("session not found")

// Session is the per-visitor server-side state container, addressed by the
// opaque id in the cookie. The cart array is guaranteed non-nil by the
// middleware before any cart handler runs.
type Session struct {
	ID        string                `bson:"_id" json:"id"`
	Cart      []models.CartLineItem `bson:"cart" json:"cart"`
	Views     int                   `bson:"views" json:"views"`
	UserID    *uuid.UUID            `bson:"user_id,omitempty" json:"user_id,omitempty"`
	CreatedAt time.Time             `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time             `bson:"updated_at" json:"updated_at"`
}

// Store persists session documents. It owns them exclusively: handlers
// mutate carts only through cart.Repository, which round-trips every
// change through Load and Save.
type Store interface {
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

// New returns an empty session with a fresh opaque id.
func New() *Session {
	return &Session{
		ID:        uuid.NewString(),
		Cart:      []models.CartLineItem{},
		CreatedAt: time.Now(),
	}
}
