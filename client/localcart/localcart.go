package localcart

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"curvot-backend/cart"
	"curvot-backend/models"
)

// Storage keys. cartLastUpdate doubles as the cross-instance change
// signal: every mutation bumps it, and watchers poll it.
const (
	keyCart          = "cart"
	keyItemCount     = "cartItemCount"
	keyLastUpdate    = "cartLastUpdate"
	keyPreferLocal   = "preferLocalCart"
	keyLastAddedItem = "lastAddedProduct"
)

// Cart is the client-side offline cart. It mirrors the server cart's
// line-item shape so the two can be swapped or merged freely.
type Cart struct {
	storage Storage
}

func New(storage Storage) *Cart {
	return &Cart{storage: storage}
}

// Items reads the stored cart. A missing or corrupt entry reads as an
// empty cart; local state is never allowed to fail a read.
func (c *Cart) Items() []models.CartLineItem {
	raw, ok := c.storage.Get(keyCart)
	if !ok || raw == "" {
		return []models.CartLineItem{}
	}
	var items []models.CartLineItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return []models.CartLineItem{}
	}
	if items == nil {
		items = []models.CartLineItem{}
	}
	return items
}

func (c *Cart) save(items []models.CartLineItem) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}
	if err := c.storage.Set(keyCart, string(data)); err != nil {
		return err
	}
	if err := c.storage.Set(keyItemCount, strconv.Itoa(cart.TotalItems(items))); err != nil {
		return err
	}
	return c.touch()
}

func (c *Cart) touch() error {
	return c.storage.Set(keyLastUpdate, strconv.FormatInt(time.Now().UnixMilli(), 10))
}

// Add merges a product snapshot into the cart and records it as the
// last added product.
func (c *Cart) Add(line models.CartLineItem) ([]models.CartLineItem, error) {
	items := cart.Add(c.Items(), line)
	if err := c.save(items); err != nil {
		return nil, err
	}
	if data, err := json.Marshal(line); err == nil {
		_ = c.storage.Set(keyLastAddedItem, string(data))
	}
	return items, nil
}

func (c *Cart) Increment(productID string) ([]models.CartLineItem, error) {
	items := cart.Increment(c.Items(), productID)
	if err := c.save(items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Cart) Decrement(productID string) ([]models.CartLineItem, error) {
	items := cart.Decrement(c.Items(), productID)
	if err := c.save(items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Cart) Remove(productID string) ([]models.CartLineItem, error) {
	items := cart.Remove(c.Items(), productID)
	if err := c.save(items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Cart) Clear() error {
	return c.save([]models.CartLineItem{})
}

func (c *Cart) Subtotal() float64 {
	return cart.Subtotal(c.Items())
}

func (c *Cart) TotalItems() int {
	return cart.TotalItems(c.Items())
}

// PreferLocal reports whether the client should skip the remote API
// and serve the cart from local state.
func (c *Cart) PreferLocal() bool {
	v, ok := c.storage.Get(keyPreferLocal)
	return ok && v == "true"
}

func (c *Cart) SetPreferLocal(prefer bool) error {
	return c.storage.Set(keyPreferLocal, strconv.FormatBool(prefer))
}

// LastUpdate returns the timestamp of the latest mutation, or zero time
// if the cart was never touched.
func (c *Cart) LastUpdate() time.Time {
	raw, ok := c.storage.Get(keyLastUpdate)
	if !ok {
		return time.Time{}
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms)
}

// LastAdded returns the most recently added product snapshot.
func (c *Cart) LastAdded() (models.CartLineItem, bool) {
	raw, ok := c.storage.Get(keyLastAddedItem)
	if !ok || raw == "" {
		return models.CartLineItem{}, false
	}
	var line models.CartLineItem
	if err := json.Unmarshal([]byte(raw), &line); err != nil {
		return models.CartLineItem{}, false
	}
	return line, true
}

// Merge reconciles the local cart with the server's copy and stores the
// result. The server cart is the base: for products present on both
// sides the server quantity wins, and local-only lines are appended.
// An empty side yields the other side unchanged.
func (c *Cart) Merge(serverItems []models.CartLineItem) ([]models.CartLineItem, error) {
	local := c.Items()
	if len(local) == 0 {
		if err := c.save(serverItems); err != nil {
			return nil, err
		}
		return c.Items(), nil
	}
	if len(serverItems) == 0 {
		return local, c.touch()
	}

	merged := make([]models.CartLineItem, 0, len(serverItems)+len(local))
	merged = append(merged, serverItems...)
	for _, line := range local {
		if _, ok := cart.Find(serverItems, line.ProductID); !ok {
			merged = append(merged, line)
		}
	}
	if err := c.save(merged); err != nil {
		return nil, err
	}
	return merged, nil
}
