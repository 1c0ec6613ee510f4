// Package cart holds the pure line-item operations shared by the server
// handlers and the client-side fallback cache, plus the session-backed
// Repository the handlers mutate carts through.
package cart

import (
	"curvot-backend/models"
)

// Add upserts a line into the cart: an existing line for the same product
// has its quantity raised by line.Quantity, otherwise the line is appended.
// Not idempotent - each call adds line.Quantity units.
func Add(items []models.CartLineItem, line models.CartLineItem) []models.CartLineItem {
	for i := range items {
		if items[i].ProductID == line.ProductID {
			items[i].Quantity += line.Quantity
			return items
		}
	}
	return append(items, line)
}

// Increment raises the quantity of the matching line by one. A missing
// line is tolerated silently.
func Increment(items []models.CartLineItem, productID string) []models.CartLineItem {
	for i := range items {
		if items[i].ProductID == productID {
			items[i].Quantity++
			break
		}
	}
	return items
}

// Decrement lowers the quantity of the matching line by one, removing the
// line entirely at quantity 1 so quantities never reach zero. A missing
// line is tolerated silently.
func Decrement(items []models.CartLineItem, productID string) []models.CartLineItem {
	for i := range items {
		if items[i].ProductID == productID {
			if items[i].Quantity > 1 {
				items[i].Quantity--
				return items
			}
			return append(items[:i], items[i+1:]...)
		}
	}
	return items
}

// Remove drops the matching line if present.
func Remove(items []models.CartLineItem, productID string) []models.CartLineItem {
	filtered := items[:0]
	for _, item := range items {
		if item.ProductID != productID {
			filtered = append(filtered, item)
		}
	}
	return filtered
}

// Clear empties the cart unconditionally.
func Clear(items []models.CartLineItem) []models.CartLineItem {
	return []models.CartLineItem{}
}

// Subtotal is the sum of price times quantity over all lines.
func Subtotal(items []models.CartLineItem) float64 {
	var total float64
	for _, item := range items {
		total += item.ProductPrice * float64(item.Quantity)
	}
	return total
}

// TotalItems is the sum of quantities over all lines, used for the badge.
func TotalItems(items []models.CartLineItem) int {
	var count int
	for _, item := range items {
		count += item.Quantity
	}
	return count
}

// Find returns the line for the given product, if any.
func Find(items []models.CartLineItem, productID string) (models.CartLineItem, bool) {
	for _, item := range items {
		if item.ProductID == productID {
			return item, true
		}
	}
	return models.CartLineItem{}, false
}
