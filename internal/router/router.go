package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/sistema-uemg/horas-api/internal/handler"
	"github.com/sistema-uemg/horas-api/internal/middleware"
	"github.com/sistema-uemg/horas-api/internal/models"
	"github.com/sistema-uemg/horas-api/internal/service"
	"github.com/sistema-uemg/horas-api/pkg/config"
)

// Dependencies groups everything Register needs to wire the routes.
type Dependencies struct {
	Auth     *handler.AuthHandler
	Catalog  *handler.CatalogHandler
	Activity *handler.ActivityHandler
	Review   *handler.ReviewHandler
	Report   *handler.ReportHandler

	AuthService    *service.AuthService
	MetricsService *service.MetricsService
}

// Register wires the HTTP routes into the gin engine.
func Register(r *gin.Engine, cfg *config.Config, deps Dependencies) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	if deps.MetricsService != nil {
		r.GET("/metrics", gin.WrapH(deps.MetricsService.Handler()))
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	requireAuth := middleware.JWT(deps.AuthService)
	requireReviewer := middleware.RequireRoles(models.RoleSecretaria, models.RoleAdmin)
	requireAdmin := middleware.RequireRoles(models.RoleAdmin)

	auth := api.Group("/auth")
	{
		auth.POST("/register", deps.Auth.Register)
		auth.POST("/login", deps.Auth.Login)
		auth.POST("/refresh", deps.Auth.Refresh)
		auth.POST("/logout", requireAuth, deps.Auth.Logout)
		auth.GET("/me", requireAuth, deps.Auth.Me)
	}

	catalog := api.Group("/catalog", requireAuth)
	{
		catalog.GET("", deps.Catalog.Overview)
		catalog.POST("/categories", requireAdmin, deps.Catalog.CreateCategory)
		catalog.PUT("/categories/:id", requireAdmin, deps.Catalog.UpdateCategory)
		catalog.POST("/types", requireAdmin, deps.Catalog.CreateActivityType)
		catalog.PUT("/types/:id", requireAdmin, deps.Catalog.UpdateActivityType)
	}

	activities := api.Group("/activities", requireAuth)
	{
		activities.POST("", deps.Activity.Submit)
		activities.GET("", deps.Activity.List)
		activities.GET("/dashboard", deps.Activity.Dashboard)
		activities.GET("/:id", deps.Activity.Get)
		activities.GET("/:id/certificate", deps.Activity.Certificate)
		activities.DELETE("/:id", deps.Activity.Delete)
	}

	review := api.Group("/review", requireAuth, requireReviewer)
	{
		review.GET("/queue", deps.Review.Queue)
		review.POST("/:id/approve", deps.Review.Approve)
		review.POST("/:id/reject", deps.Review.Reject)
	}

	reports := api.Group("/reports")
	{
		// Download authenticates with the signed token, not a JWT, so the
		// link works from a plain browser tab.
		reports.GET("/download", deps.Report.Download)
		reports.POST("", requireAuth, deps.Report.Create)
		reports.GET("/:id", requireAuth, deps.Report.Status)
	}
}
