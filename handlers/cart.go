package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"curvot-backend/cache"
	"curvot-backend/cart"
	"curvot-backend/models"
	"curvot-backend/sessions"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type CartHandler struct {
	DB    *gorm.DB
	Carts *cart.Repository
	Cache cache.ProductCache
}

// GetCart returns the session cart. The middleware guarantees a session, so
// an unknown id here just reads as an empty cart.
func (h *CartHandler) GetCart(c *gin.Context) {
	sessionID, _ := sessions.IDFromContext(c)

	items, err := h.Carts.Get(c.Request.Context(), sessionID)
	if err != nil {
		log.Printf("Failed to load cart for session %s: %v", sessionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to load cart"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"cart":      items,
		"sessionId": sessionID,
	})
}

// AddToCart adds one unit of the product to the session cart, snapshotting
// its name, price and image into the line item.
func (h *CartHandler) AddToCart(c *gin.Context) {
	sessionID, _ := sessions.IDFromContext(c)
	productID := c.Param("id")

	product, err := h.lookupProduct(c, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Product not found"})
			return
		}
		log.Printf("Failed to look up product %s: %v", productID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to look up product"})
		return
	}

	items, err := h.Carts.Mutate(c.Request.Context(), sessionID, func(items []models.CartLineItem) []models.CartLineItem {
		return cart.Add(items, product.LineItem(1))
	})
	if err != nil {
		log.Printf("Failed to save session %s: %v", sessionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to save session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "Product added to cart",
		"cart":      items,
		"sessionId": sessionID,
	})
}

// IncrementItem raises the quantity of an existing line by one. A product
// that is not in the cart is left alone and the request still succeeds.
func (h *CartHandler) IncrementItem(c *gin.Context) {
	h.mutate(c, func(items []models.CartLineItem) []models.CartLineItem {
		return cart.Increment(items, c.Param("id"))
	}, "")
}

// DecrementItem lowers the quantity by one, removing the line entirely when
// it was at one. Missing products are a silent no-op.
func (h *CartHandler) DecrementItem(c *gin.Context) {
	h.mutate(c, func(items []models.CartLineItem) []models.CartLineItem {
		return cart.Decrement(items, c.Param("id"))
	}, "")
}

func (h *CartHandler) RemoveItem(c *gin.Context) {
	h.mutate(c, func(items []models.CartLineItem) []models.CartLineItem {
		return cart.Remove(items, c.Param("id"))
	}, "Product removed from cart")
}

func (h *CartHandler) ClearCart(c *gin.Context) {
	h.mutate(c, cart.Clear, "Cart cleared")
}

func (h *CartHandler) mutate(c *gin.Context, fn func([]models.CartLineItem) []models.CartLineItem, message string) {
	sessionID, _ := sessions.IDFromContext(c)

	items, err := h.Carts.Mutate(c.Request.Context(), sessionID, fn)
	if err != nil {
		log.Printf("Failed to save session %s: %v", sessionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to save session"})
		return
	}

	resp := gin.H{
		"success":   true,
		"cart":      items,
		"sessionId": sessionID,
	}
	if message != "" {
		resp["message"] = message
	}
	c.JSON(http.StatusOK, resp)
}

// TestCart is a diagnostics endpoint that reports session and cookie state
// without touching the cart.
func (h *CartHandler) TestCart(c *gin.Context) {
	sessionID, _ := sessions.IDFromContext(c)

	items, err := h.Carts.Get(c.Request.Context(), sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to load cart"})
		return
	}

	cookies := map[string]string{}
	for _, ck := range c.Request.Cookies() {
		cookies[ck.Name] = ck.Value
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"message":    "Cart API is working",
		"sessionId":  sessionID,
		"cartItems":  len(items),
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"hasSession": sessionID != "",
		"hasCookies": len(cookies) > 0,
		"cookies":    cookies,
	})
}

// DebugSession dumps the full session document for troubleshooting.
func (h *CartHandler) DebugSession(c *gin.Context) {
	sess, ok := sessions.FromContext(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "No session on request"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"sessionId": sess.ID,
		"views":     sess.Views,
		"cart":      sess.Cart,
		"createdAt": sess.CreatedAt,
		"updatedAt": sess.UpdatedAt,
	})
}

// lookupProduct reads through the product cache, falling back to the
// database and filling the cache on a miss. Cache errors are treated as
// misses so a Redis outage never blocks adds.
func (h *CartHandler) lookupProduct(c *gin.Context, productID string) (*models.Product, error) {
	if product, err := h.Cache.Get(c.Request.Context(), productID); err == nil {
		return product, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		log.Printf("Product cache read failed for %s: %v", productID, err)
	}

	var product models.Product
	if err := h.DB.Where("id = ?", productID).First(&product).Error; err != nil {
		return nil, err
	}

	if err := h.Cache.Set(c.Request.Context(), &product); err != nil {
		log.Printf("Product cache write failed for %s: %v", productID, err)
	}
	return &product, nil
}
