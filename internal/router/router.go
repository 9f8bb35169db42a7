package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "formscan/docs"
	"formscan/internal/handler"
	"formscan/internal/middleware"
	"formscan/internal/service"
)

// Setup configures the Gin engine with all routes and middleware. authSvc is
// nil when operator authentication is disabled.
func Setup(
	authSvc service.AuthService,
	corsOrigins []string,
	proxyH *handler.ProxyHandler,
	sessionH *handler.SessionHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(corsOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")
	v1.GET("/config", proxyH.Config)

	protected := v1.Group("")
	if authSvc != nil {
		protected.Use(middleware.AuthMiddleware(authSvc))
	}

	// Backend relay, one route per backend operation
	protected.POST("/jobs", proxyH.CreateJob)
	protected.POST("/jobs/:jobId/extract", proxyH.Extract)
	protected.GET("/jobs/:jobId/asset/:filename", proxyH.JobAsset)
	protected.GET("/assets/:filename", proxyH.SharedAsset)
	protected.POST("/export_excel", proxyH.ExportExcel)

	// Review sessions
	sessions := protected.Group("/sessions")
	sessions.POST("", sessionH.Open)
	sessions.GET("/:id", sessionH.Get)
	sessions.POST("/:id/retry", sessionH.Retry)
	sessions.PATCH("/:id/cells", sessionH.EditCell)
	sessions.POST("/:id/export", sessionH.Export)
	sessions.DELETE("/:id", sessionH.Close)
	sessions.GET("/:id/audit", sessionH.ListAudit)

	return r
}
