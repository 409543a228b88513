package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/transformers-api/config"
	"github.com/kendall-kelly/transformers-api/controllers"
	"github.com/kendall-kelly/transformers-api/middleware"
)

// New returns a configured Gin engine with every /api/v1 route registered.
// Routes other than the health checks require a valid token when
// cfg.AuthEnabled().
func New(cfg *config.Config) *gin.Engine {
	if cfg.AuthEnabled() {
		return NewWithAuthenticator(cfg, middleware.EnsureValidToken(cfg))
	}
	return NewWithAuthenticator(cfg, nil)
}

// NewWithAuthenticator is New with the token check supplied by the caller.
// When authenticate is non-nil catalog writes and order deletion need the
// admin role, everything else admin or operator. A nil authenticate leaves
// the API open.
func NewWithAuthenticator(cfg *config.Config, authenticate gin.HandlerFunc) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(cors.New(corsConfig(cfg)))

	v1 := r.Group("/api/v1")
	v1.GET("/health", controllers.HealthCheck)
	v1.GET("/database/status", controllers.DatabaseStatus)

	api := v1.Group("")
	var operator, admin []gin.HandlerFunc
	if authenticate != nil {
		api.Use(authenticate)
		operator = []gin.HandlerFunc{middleware.RequireRole(middleware.RoleAdmin, middleware.RoleOperator)}
		admin = []gin.HandlerFunc{middleware.RequireRole(middleware.RoleAdmin)}
	}
	reads := api.Group("", operator...)
	writes := api.Group("", admin...)

	reads.GET("/units", controllers.ListUnits)
	reads.GET("/units/:id", controllers.GetUnit)
	writes.POST("/units", controllers.CreateUnit)
	writes.PUT("/units/:id", controllers.UpdateUnit)
	writes.DELETE("/units/:id", controllers.DeleteUnit)

	reads.GET("/materials", controllers.ListMaterials)
	reads.GET("/materials/import/template", controllers.MaterialImportTemplate)
	reads.GET("/materials/:id", controllers.GetMaterial)
	writes.POST("/materials", controllers.CreateMaterial)
	writes.POST("/materials/import", controllers.ImportMaterials)
	writes.PUT("/materials/:id", controllers.UpdateMaterial)
	writes.DELETE("/materials/:id", controllers.DeleteMaterial)

	reads.GET("/products", controllers.ListProducts)
	reads.GET("/products/import/template", controllers.ProductImportTemplate)
	reads.GET("/products/:id", controllers.GetProduct)
	reads.GET("/products/:id/bom", controllers.ResolveProductBom)
	writes.POST("/products", controllers.CreateProduct)
	writes.POST("/products/import", controllers.ImportProducts)
	writes.PUT("/products/:id", controllers.UpdateProduct)
	writes.DELETE("/products/:id", controllers.DeleteProduct)

	reads.GET("/bom-items", controllers.ListBomItems)
	reads.GET("/bom-items/:id", controllers.GetBomItem)
	writes.POST("/bom-items", controllers.CreateBomItem)
	writes.PUT("/bom-items/:id", controllers.UpdateBomItem)
	writes.DELETE("/bom-items/:id", controllers.DeleteBomItem)

	// production orders are run by operators as well as admins
	orders := reads.Group("/orders")
	orders.GET("", controllers.ListOrders)
	orders.POST("", controllers.CreateOrder)
	orders.GET("/trash", controllers.ListTrashedOrders)
	orders.GET("/preview", controllers.PreviewOrder)
	orders.GET("/:id", controllers.GetOrder)
	orders.PUT("/:id", controllers.EditOrder)
	orders.PATCH("/:id/status", controllers.ChangeOrderStatus)
	orders.POST("/:id/trash", controllers.TrashOrder)
	orders.POST("/:id/restore", controllers.RestoreOrder)
	orders.GET("/:id/document", controllers.GetOrderDocument)
	orders.DELETE("/:id", append(admin, controllers.DeleteOrder)...)

	return r
}

func corsConfig(cfg *config.Config) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Disposition", middleware.RequestIDHeader},
		MaxAge:           12 * time.Hour,
		AllowCredentials: false,
	}
	for _, origin := range cfg.CORSAllowedOrigins {
		if origin == "*" {
			c.AllowAllOrigins = true
			return c
		}
	}
	c.AllowOrigins = cfg.CORSAllowedOrigins
	if len(c.AllowOrigins) == 0 {
		c.AllowAllOrigins = true
	}
	return c
}
