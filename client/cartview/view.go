// Package cartview drives the cart screen of a client application. It
// owns a snapshot of the visitor's cart, refreshes it after every
// mutation, and watches the shared local-cart timestamp so that changes
// made by another instance of the app show up without user action.
package cartview

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	"curvot-backend/cart"
	"curvot-backend/client/cartclient"
	"curvot-backend/client/localcart"
	"curvot-backend/models"
)

// ErrEmptyCart rejects a checkout attempt on a cart with no items.
var ErrEmptyCart = errors.New("cart is empty")

const defaultPollInterval = 2 * time.Second

type View struct {
	client *cartclient.Client
	local  *localcart.Cart

	mu      sync.RWMutex
	items   []models.CartLineItem
	details map[string]models.Product

	pollInterval time.Duration
	lastSeen     time.Time
	onChange     func([]models.CartLineItem)

	cancel context.CancelFunc
	done   chan struct{}
}

type Option func(*View)

// WithPollInterval overrides how often the view checks the shared
// cart timestamp for out-of-band changes.
func WithPollInterval(d time.Duration) Option {
	return func(v *View) { v.pollInterval = d }
}

// WithOnChange registers a callback fired whenever the snapshot is
// replaced, including replacements triggered by the watcher.
func WithOnChange(fn func([]models.CartLineItem)) Option {
	return func(v *View) { v.onChange = fn }
}

func New(client *cartclient.Client, local *localcart.Cart, opts ...Option) *View {
	v := &View{
		client:       client,
		local:        local,
		items:        []models.CartLineItem{},
		details:      map[string]models.Product{},
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Start loads the cart and begins watching for external changes. The
// watcher runs until Stop is called or ctx is cancelled.
func (v *View) Start(ctx context.Context) error {
	if err := v.Refresh(ctx); err != nil {
		return err
	}
	v.lastSeen = v.local.LastUpdate()

	watchCtx, cancel := context.WithCancel(ctx)
	v.cancel = cancel
	v.done = make(chan struct{})
	go v.watch(watchCtx)
	return nil
}

// Stop halts the change watcher and waits for it to exit.
func (v *View) Stop() {
	if v.cancel == nil {
		return
	}
	v.cancel()
	<-v.done
	v.cancel = nil
}

func (v *View) watch(ctx context.Context) {
	defer close(v.done)
	ticker := time.NewTicker(v.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			last := v.local.LastUpdate()
			if last.After(v.lastSeen) {
				v.lastSeen = last
				// Best effort: a failed refresh keeps the old snapshot
				// and the next tick tries again.
				if err := v.Refresh(ctx); err == nil {
					continue
				}
				v.lastSeen = time.Time{}
			}
		}
	}
}

// Refresh replaces the snapshot with the current cart and refreshes
// the catalog detail of every line. Detail fetches are best effort; a
// failed one keeps the previous detail, and cart lines carry their own
// price snapshot regardless.
func (v *View) Refresh(ctx context.Context) error {
	resp, err := v.client.GetCart(ctx)
	if err != nil {
		return err
	}
	v.setItems(resp.Cart)
	v.refreshDetails(ctx, resp.Cart)
	return nil
}

func (v *View) refreshDetails(ctx context.Context, items []models.CartLineItem) {
	for _, line := range items {
		product, err := v.client.Product(ctx, line.ProductID)
		if err != nil {
			continue
		}
		v.mu.Lock()
		v.details[line.ProductID] = product
		v.mu.Unlock()
	}
}

// apply installs a fresh snapshot and re-pulls line details, the same
// path a full refresh takes.
func (v *View) apply(ctx context.Context, items []models.CartLineItem) {
	v.setItems(items)
	v.refreshDetails(ctx, items)
}

// Detail returns the last fetched catalog entry for a cart line.
func (v *View) Detail(productID string) (models.Product, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	p, ok := v.details[productID]
	return p, ok
}

func (v *View) setItems(items []models.CartLineItem) {
	if items == nil {
		items = []models.CartLineItem{}
	}
	v.mu.Lock()
	v.items = items
	v.mu.Unlock()
	if v.onChange != nil {
		v.onChange(items)
	}
}

// Items returns a copy of the current snapshot.
func (v *View) Items() []models.CartLineItem {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]models.CartLineItem, len(v.items))
	copy(out, v.items)
	return out
}

func (v *View) Subtotal() float64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return cart.Subtotal(v.items)
}

func (v *View) TotalItems() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return cart.TotalItems(v.items)
}

func (v *View) Add(ctx context.Context, productID string) error {
	resp, err := v.client.AddToCart(ctx, productID)
	if err != nil {
		return err
	}
	v.apply(ctx, resp.Cart)
	return nil
}

func (v *View) Increment(ctx context.Context, productID string) error {
	resp, err := v.client.IncrementItem(ctx, productID)
	if err != nil {
		return err
	}
	v.apply(ctx, resp.Cart)
	return nil
}

func (v *View) Decrement(ctx context.Context, productID string) error {
	resp, err := v.client.DecrementItem(ctx, productID)
	if err != nil {
		return err
	}
	v.apply(ctx, resp.Cart)
	return nil
}

func (v *View) Remove(ctx context.Context, productID string) error {
	resp, err := v.client.RemoveItem(ctx, productID)
	if err != nil {
		return err
	}
	v.apply(ctx, resp.Cart)
	return nil
}

func (v *View) Clear(ctx context.Context) error {
	resp, err := v.client.ClearCart(ctx)
	if err != nil {
		return err
	}
	v.apply(ctx, resp.Cart)
	return nil
}

// CheckoutPath decides where a checkout click goes. An empty cart is
// rejected outright; an anonymous visitor is sent to the login page
// with the checkout destination preserved in the redirect parameter.
func (v *View) CheckoutPath(loggedIn bool) (string, error) {
	if v.TotalItems() == 0 {
		return "", ErrEmptyCart
	}
	if !loggedIn {
		return "/login?redirect=" + url.QueryEscape("/checkout"), nil
	}
	return "/checkout", nil
}
