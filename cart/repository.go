package cart

import (
	"context"
	"errors"
	"sync"

	"curvot-backend/models"
	"curvot-backend/sessions"
)

// Repository scopes cart reads and writes to a session id. Every mutation
// is a load-modify-store round trip against the session store, serialized
// per session within this process so concurrent requests against the same
// cart cannot interleave their read-modify-write cycles.
type Repository struct {
	store sessions.Store

	mu    sync.Mutex
	locks map[string]*sessionLock
}

// sessionLock is refcounted so the map only holds entries for sessions
// with a mutation in flight, instead of one entry per session id ever
// seen.
type sessionLock struct {
	sync.Mutex
	refs int
}

func NewRepository(store sessions.Store) *Repository {
	return &Repository{
		store: store,
		locks: make(map[string]*sessionLock),
	}
}

func (r *Repository) acquire(sessionID string) *sessionLock {
	r.mu.Lock()
	l, ok := r.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		r.locks[sessionID] = l
	}
	l.refs++
	r.mu.Unlock()

	l.Lock()
	return l
}

func (r *Repository) release(sessionID string, l *sessionLock) {
	l.Unlock()

	r.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(r.locks, sessionID)
	}
	r.mu.Unlock()
}

// Get returns a copy of the session's cart. A missing session reads as an
// empty cart; the middleware normally prevents that case from arising.
func (r *Repository) Get(ctx context.Context, sessionID string) ([]models.CartLineItem, error) {
	sess, err := r.store.Load(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sessions.ErrNotFound) {
			return []models.CartLineItem{}, nil
		}
		return nil, err
	}
	if sess.Cart == nil {
		return []models.CartLineItem{}, nil
	}
	return append(sess.Cart[:0:0], sess.Cart...), nil
}

// Mutate applies fn to the session's cart and persists the session before
// returning. On a store failure the error is returned and the persisted
// cart is unchanged.
func (r *Repository) Mutate(ctx context.Context, sessionID string, fn func([]models.CartLineItem) []models.CartLineItem) ([]models.CartLineItem, error) {
	l := r.acquire(sessionID)
	defer r.release(sessionID, l)

	sess, err := r.store.Load(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, sessions.ErrNotFound) {
			return nil, err
		}
		sess = &sessions.Session{ID: sessionID, Cart: []models.CartLineItem{}}
	}
	if sess.Cart == nil {
		sess.Cart = []models.CartLineItem{}
	}

	sess.Cart = fn(sess.Cart)

	if err := r.store.Save(ctx, sess); err != nil {
		return nil, err
	}

	return append(sess.Cart[:0:0], sess.Cart...), nil
}
