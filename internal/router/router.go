package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/sekolah-backend/internal/config"
	"github.com/stemsi/sekolah-backend/internal/handler"
	"github.com/stemsi/sekolah-backend/internal/middleware"
	"github.com/stemsi/sekolah-backend/internal/model"
	"github.com/stemsi/sekolah-backend/internal/response"
	"github.com/stemsi/sekolah-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Concession *handler.ConcessionHandler
	FeeGroup   *handler.FeeGroupHandler
	System     *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(middleware.Compress(cfg.CompressMinBytes))

	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	writeLimiter := middleware.NewRateLimiter(cfg.WriteRatePerMinute, time.Minute)

	api := router.Group("/api/v1")
	api.Use(middleware.RequireJWT(authService))

	// ─── Concessions (admin, parent, teacher) ──────────────────────────
	concessions := api.Group("/concessions")
	concessions.Use(middleware.RequireRole(model.ConcessionRoles...))
	{
		concessions.GET("", handlers.Concession.ListConcessions)
		concessions.GET("/fee-groups", handlers.Concession.ListFeeGroups)
		concessions.GET("/categories", handlers.Concession.ListCategories)
		concessions.GET("/:id", handlers.Concession.GetConcession)
		concessions.POST("", writeLimiter.Middleware(), handlers.Concession.CreateConcession)
		concessions.PUT("/:id", writeLimiter.Middleware(), handlers.Concession.UpdateConcession)
		concessions.DELETE("/:id", writeLimiter.Middleware(), handlers.Concession.DeleteConcession)
	}

	// ─── Fee groups (admin) ────────────────────────────────────────────
	feeGroups := api.Group("/fee-groups")
	feeGroups.Use(middleware.RequireRole(model.RoleAdmin))
	{
		feeGroups.GET("", handlers.FeeGroup.ListFeeGroups)
		feeGroups.POST("", writeLimiter.Middleware(), handlers.FeeGroup.CreateFeeGroup)
		feeGroups.PUT("/:id", writeLimiter.Middleware(), handlers.FeeGroup.UpdateFeeGroup)
		feeGroups.DELETE("/:id", writeLimiter.Middleware(), handlers.FeeGroup.DeleteFeeGroup)
	}

	// ─── System (admin) ────────────────────────────────────────────────
	system := api.Group("/system")
	system.Use(middleware.RequireRole(model.RoleAdmin))
	{
		system.GET("/status", handlers.System.Status)
	}

	return router
}
