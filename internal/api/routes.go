package api

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts every /api route of the service on router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	apiGroup := router.Group("/api")
	apiGroup.Use(h.RequireStore())

	// Public auth endpoints
	apiGroup.POST("/auth/signup", h.Signup)
	apiGroup.POST("/auth/login", h.Login)
	apiGroup.POST("/auth/refresh", h.Refresh)

	// Gateway callback, authenticated by its signature
	apiGroup.POST("/payments/payfast/notify", h.PayFastNotify)

	// Storefront, open to guests
	storefront := apiGroup.Group("")
	storefront.Use(OptionalAuthMiddleware())
	{
		storefront.GET("/products", h.ListProducts)
		storefront.GET("/products/:id", h.GetProduct)
		storefront.GET("/categories", h.ListCategories)
		storefront.GET("/ranks", h.ListRanks)
	}

	protected := apiGroup.Group("")
	protected.Use(AuthMiddleware())
	{
		protected.POST("/auth/logout", h.Logout)
		protected.GET("/auth/session", h.GetSession)
		protected.GET("/auth/session/events", h.SessionEvents)

		protected.GET("/cart", h.GetCart)
		protected.POST("/cart/items", h.AddToCart)
		protected.PUT("/cart/items/:product_id", h.UpdateCartItem)
		protected.DELETE("/cart/items/:product_id", h.RemoveFromCart)
		protected.DELETE("/cart", h.ClearCart)

		protected.POST("/checkout", h.Checkout)
		protected.GET("/orders", h.ListMyOrders)
		protected.GET("/orders/:id", h.GetMyOrder)
		protected.POST("/orders/:id/cancel", h.CancelMyOrder)

		protected.GET("/profile", h.GetProfile)
		protected.PUT("/profile", h.UpdateProfile)
		protected.POST("/profile/avatar", h.UploadAvatar)
		protected.GET("/profile/rank", h.GetRankProgress)
		protected.GET("/dashboard", h.GetDashboard)

		protected.GET("/network", h.GetNetwork)
		protected.GET("/network/upline", h.GetUpline)

		protected.GET("/bonuses", h.ListMyBonuses)
		protected.GET("/withdrawals", h.ListMyWithdrawals)
		protected.POST("/withdrawals", h.RequestWithdrawal)
	}

	// Admin API routes with authentication and admin middleware
	adminGroup := apiGroup.Group("/admin")
	adminGroup.Use(AuthMiddleware())
	adminGroup.Use(AdminMiddleware())
	{
		adminGroup.GET("/products", h.AdminListProducts)
		adminGroup.POST("/products", h.CreateProduct)
		adminGroup.PUT("/products/:id", h.UpdateProduct)
		adminGroup.DELETE("/products/:id", h.DeleteProduct)
		adminGroup.POST("/products/:id/image", h.UploadProductImage)

		adminGroup.GET("/orders", h.AdminListOrders)
		adminGroup.GET("/orders/:id", h.AdminGetOrder)
		adminGroup.PUT("/orders/:id/status", h.AdminUpdateOrderStatus)

		adminGroup.GET("/customers", h.AdminListCustomers)
		adminGroup.GET("/customers/:id", h.AdminGetCustomer)
		adminGroup.PUT("/customers/:id", h.AdminUpdateCustomer)
		adminGroup.PUT("/customers/:id/role", h.AdminSetRole)
		adminGroup.GET("/customers/:id/network", h.AdminGetCustomerNetwork)

		adminGroup.GET("/ranks", h.ListRanks)
		adminGroup.POST("/ranks", h.CreateRank)
		adminGroup.PUT("/ranks/:id", h.UpdateRank)
		adminGroup.DELETE("/ranks/:id", h.DeleteRank)
		adminGroup.POST("/ranks/:id/move", h.MoveRank)

		adminGroup.GET("/withdrawals", h.AdminListWithdrawals)
		adminGroup.PUT("/withdrawals/:id/status", h.AdminUpdateWithdrawalStatus)

		adminGroup.GET("/stats", h.GetStatistics)
	}
}
