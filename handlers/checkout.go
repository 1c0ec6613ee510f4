package handlers

import (
	"log"
	"net/http"

	"curvot-backend/cart"
	"curvot-backend/models"
	"curvot-backend/sessions"
	"curvot-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CheckoutHandler struct {
	DB    *gorm.DB
	Carts *cart.Repository
}

// Checkout turns the current session cart into an order using the prices
// snapshotted in the line items, then empties the cart. The cart clear
// happens only after the order row is committed.
func (h *CheckoutHandler) Checkout(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Unauthorized"})
		return
	}

	sessionID, _ := sessions.IDFromContext(c)

	var req struct {
		DeliveryAddress string `json:"delivery_address" binding:"required"`
		PaymentMethod   string `json:"payment_method" binding:"required,oneof=cod card"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": utils.SanitizeValidationError(err)})
		return
	}

	items, err := h.Carts.Get(c.Request.Context(), sessionID)
	if err != nil {
		log.Printf("Failed to load cart for session %s: %v", sessionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to load cart"})
		return
	}
	if len(items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Cart is empty"})
		return
	}

	subtotal := cart.Subtotal(items)
	order := models.Order{
		ID:              uuid.New(),
		UserID:          userID.(uuid.UUID),
		Status:          models.OrderStatusPending,
		Subtotal:        subtotal,
		Total:           subtotal,
		DeliveryAddress: req.DeliveryAddress,
		PaymentMethod:   req.PaymentMethod,
	}
	for _, item := range items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Cart contains an invalid product"})
			return
		}
		imageURL := ""
		if item.ProductImage != nil {
			imageURL = *item.ProductImage
		}
		order.Items = append(order.Items, models.OrderItem{
			ID:          uuid.New(),
			OrderID:     order.ID,
			ProductID:   productID,
			ProductName: item.ProductName,
			ImageURL:    imageURL,
			Quantity:    item.Quantity,
			Price:       item.ProductPrice,
		})
	}

	if err := h.DB.Create(&order).Error; err != nil {
		log.Printf("Failed to create order for user %v: %v", userID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to create order"})
		return
	}

	emptied, err := h.Carts.Mutate(c.Request.Context(), sessionID, cart.Clear)
	if err != nil {
		// The order exists; report success but log the stale cart.
		log.Printf("Failed to clear cart for session %s after checkout: %v", sessionID, err)
		emptied = []models.CartLineItem{}
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":   true,
		"message":   "Order placed",
		"order":     order,
		"cart":      emptied,
		"sessionId": sessionID,
	})
}

func (h *CheckoutHandler) GetOrders(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var orders []models.Order
	if err := h.DB.Preload("Items").Where("user_id = ?", userID).Order("created_at DESC").Find(&orders).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

func (h *CheckoutHandler) GetOrder(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var order models.Order
	if err := h.DB.Preload("Items").Where("id = ? AND user_id = ?", c.Param("id"), userID).First(&order).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	c.JSON(http.StatusOK, order)
}

func (h *CheckoutHandler) UpdateOrderStatus(c *gin.Context) {
	var req struct {
		Status models.OrderStatus `json:"status" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": utils.SanitizeValidationError(err)})
		return
	}

	var order models.Order
	if err := h.DB.Where("id = ?", c.Param("id")).First(&order).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	if !models.IsValidTransition(order.Status, req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status transition"})
		return
	}

	order.Status = req.Status
	if err := h.DB.Save(&order).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update order"})
		return
	}

	c.JSON(http.StatusOK, order)
}
