package routes

import (
	"time"

	"curvot-backend/cache"
	"curvot-backend/cart"
	"curvot-backend/handlers"
	"curvot-backend/middleware"
	"curvot-backend/sessions"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// Deps carries everything the HTTP surface needs.
type Deps struct {
	DB           *gorm.DB
	SessionStore sessions.Store
	ProductCache cache.ProductCache
	Registry     *prometheus.Registry
}

func SetupRoutes(r *gin.Engine, deps Deps) {
	carts := cart.NewRepository(deps.SessionStore)

	// Initialize handlers
	authHandler := &handlers.AuthHandler{DB: deps.DB}
	productHandler := &handlers.ProductHandler{DB: deps.DB, Cache: deps.ProductCache}
	cartHandler := &handlers.CartHandler{DB: deps.DB, Carts: carts, Cache: deps.ProductCache}
	checkoutHandler := &handlers.CheckoutHandler{DB: deps.DB, Carts: carts}

	if deps.Registry != nil {
		metrics := middleware.NewMetrics(deps.Registry)
		r.Use(metrics.Middleware())
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))
	}

	authLimiter := middleware.NewLimiter(10, time.Minute)
	cartLimiter := middleware.NewLimiter(120, time.Minute)

	// Public routes
	api := r.Group("/api")
	{
		// Auth routes
		api.POST("/auth/register", authLimiter.Middleware(), authHandler.Register)
		api.POST("/auth/login", authLimiter.Middleware(), authHandler.Login)

		// Public product routes
		api.GET("/products", productHandler.GetProducts)
		api.GET("/products/:id", productHandler.GetProduct)
	}

	// Cart routes: session-scoped, no login required. The session middleware
	// guarantees a cart exists before any handler runs.
	cartGroup := api.Group("/cart")
	cartGroup.Use(sessions.Middleware(deps.SessionStore))
	cartGroup.Use(cartLimiter.Middleware())
	{
		cartGroup.GET("", cartHandler.GetCart)
		cartGroup.GET("/test", cartHandler.TestCart)
		cartGroup.POST("/add/:id", cartHandler.AddToCart)
		cartGroup.POST("/increment/:id", cartHandler.IncrementItem)
		cartGroup.POST("/decrement/:id", cartHandler.DecrementItem)
		cartGroup.POST("/remove/:id", cartHandler.RemoveItem)
		cartGroup.POST("/clear", cartHandler.ClearCart)
	}

	debug := api.Group("/debug")
	debug.Use(sessions.Middleware(deps.SessionStore))
	debug.GET("/session", cartHandler.DebugSession)

	// Protected routes (require authentication). Checkout also needs the
	// session so it can read and clear the visitor's cart.
	protected := api.Group("")
	protected.Use(sessions.Middleware(deps.SessionStore))
	protected.Use(middleware.AuthMiddleware())
	{
		protected.GET("/auth/profile", authHandler.GetProfile)
		protected.PUT("/auth/profile", authHandler.UpdateProfile)
		protected.PUT("/auth/password", authHandler.ChangePassword)

		protected.POST("/checkout", checkoutHandler.Checkout)
		protected.GET("/orders", checkoutHandler.GetOrders)
		protected.GET("/orders/:id", checkoutHandler.GetOrder)
	}

	// Admin routes (require admin role)
	admin := api.Group("/admin")
	admin.Use(middleware.AuthMiddleware())
	admin.Use(middleware.AdminMiddleware())
	{
		admin.POST("/products", productHandler.CreateProduct)
		admin.PUT("/products/:id", productHandler.UpdateProduct)
		admin.DELETE("/products/:id", productHandler.DeleteProduct)

		admin.PUT("/orders/:id/status", checkoutHandler.UpdateOrderStatus)
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
}
