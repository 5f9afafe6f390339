// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/javajoker/storefront-backend/internal/config"
	"github.com/javajoker/storefront-backend/internal/handlers"
	"github.com/javajoker/storefront-backend/internal/middleware"
	"github.com/javajoker/storefront-backend/internal/services"
	"github.com/javajoker/storefront-backend/internal/utils"
)

// MediaRoute serves files of the local store.
const MediaRoute = "/media"

func Initialize(db *gorm.DB, cfg *config.Config, store services.FileStore, notifier services.Notifier) *gin.Engine {
	// Initialize services
	mediaService := services.NewMediaService(db, store)
	pricingService := services.NewPricingService(db)

	authService := services.NewAuthService(db, cfg.JWT)
	productService := services.NewProductService(db, mediaService)
	categoryService := services.NewCategoryService(db, mediaService)
	customerService := services.NewCustomerService(db)
	orderService := services.NewOrderService(db, pricingService, notifier, cfg.Orders)
	attachmentService := services.NewAttachmentService(db, store, mediaService, cfg.Storage)
	dashboardService := services.NewDashboardService(db)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	productHandler := handlers.NewProductHandler(productService)
	categoryHandler := handlers.NewCategoryHandler(categoryService)
	customerHandler := handlers.NewCustomerHandler(customerService)
	orderHandler := handlers.NewOrderHandler(orderService)
	attachmentHandler := handlers.NewAttachmentHandler(attachmentService)
	dashboardHandler := handlers.NewDashboardHandler(dashboardService)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.Frontend))
	r.Use(middleware.I18nMiddleware(cfg.I18n.DefaultLocale))
	r.Use(middleware.GeneralRateLimit(cfg.RateLimit))

	// 1 MB of multipart data stays in memory, the rest spills to disk.
	r.MaxMultipartMemory = 1 << 20

	if local, ok := store.(*services.LocalStore); ok {
		r.Static(MediaRoute, local.Root())
	}

	healthCheck := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	}
	r.GET("/health", healthCheck)

	// API v1 routes
	v1 := r.Group("/v1")
	{
		v1.GET("/health", healthCheck)

		// Authentication routes
		auth := v1.Group("/auth")
		{
			auth.POST("/register", middleware.AuthRateLimit(), authHandler.Register)
			auth.POST("/login", middleware.AuthRateLimit(), authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)
			auth.GET("/me", middleware.AuthRequired(), authHandler.GetProfile)
		}

		// Catalog
		v1.GET("/products", productHandler.GetProducts)
		v1.GET("/products/:id", productHandler.GetProduct)
		v1.GET("/categories", categoryHandler.GetCategories)
		v1.GET("/categories/:id", categoryHandler.GetCategory)

		// Customer orders
		orders := v1.Group("/orders")
		orders.Use(middleware.AuthRequired(), middleware.CustomerRequired())
		{
			orders.POST("", orderHandler.Checkout)
			orders.GET("", orderHandler.GetMyOrders)
			orders.GET("/:uuid", orderHandler.GetMyOrder)
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired(), middleware.AuditLogMiddleware(db))
		{
			admin.GET("/dashboard", dashboardHandler.GetDashboard)

			products := admin.Group("/products")
			{
				products.GET("", productHandler.AdminGetProducts)
				products.POST("", productHandler.CreateProduct)
				products.GET("/:id", productHandler.AdminGetProduct)
				products.PUT("/:id", productHandler.UpdateProduct)
				products.DELETE("/:id", productHandler.DeleteProduct)
				products.PUT("/:id/restore", productHandler.RestoreProduct)
			}

			categories := admin.Group("/categories")
			{
				categories.GET("", categoryHandler.AdminGetCategories)
				categories.POST("", categoryHandler.CreateCategory)
				categories.GET("/:id", categoryHandler.AdminGetCategory)
				categories.PUT("/:id", categoryHandler.UpdateCategory)
				categories.DELETE("/:id", categoryHandler.DeleteCategory)
				categories.PUT("/:id/restore", categoryHandler.RestoreCategory)
			}

			customers := admin.Group("/customers")
			{
				customers.GET("", customerHandler.GetCustomers)
				customers.POST("", customerHandler.CreateCustomer)
				customers.GET("/:id", customerHandler.GetCustomer)
				customers.PUT("/:id", customerHandler.UpdateCustomer)
				customers.DELETE("/:id", customerHandler.DeleteCustomer)
				customers.PUT("/:id/restore", customerHandler.RestoreCustomer)
			}

			adminOrders := admin.Group("/orders")
			{
				adminOrders.GET("", orderHandler.AdminGetOrders)
				adminOrders.POST("", orderHandler.CreateOrder)
				adminOrders.GET("/:id", orderHandler.AdminGetOrder)
				adminOrders.PUT("/:id", orderHandler.UpdateOrder)
				adminOrders.DELETE("/:id", orderHandler.DeleteOrder)
				adminOrders.PUT("/:id/restore", orderHandler.RestoreOrder)
			}

			admin.POST("/attachments", middleware.UploadRateLimit(), attachmentHandler.Store)
			admin.DELETE("/attachments/:id", attachmentHandler.Destroy)
			admin.DELETE("/media/:id", productHandler.DeleteMedia)
		}
	}

	return r
}
