package httptransport

import (
	"net/http"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"vaultmail/backend/internal/config"
	"vaultmail/backend/internal/health"
	"vaultmail/backend/internal/middleware"
	"vaultmail/backend/internal/monitoring"
	"vaultmail/backend/internal/service"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config                  *config.Config
	AdminAuthService        *service.AdminAuthService
	SettingsService         *service.SettingsService
	InboxService            *service.InboxService
	DomainExpirationService *service.DomainExpirationService
	AdminService            *service.AdminService
	Health                  *health.Checker     // 为 nil 时只提供简单的 /health
	Metrics                 *monitoring.Metrics // 为 nil 时不暴露 /metrics
	Logger                  *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}

	router := gin.New()

	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.RecoveryHandler(log))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.HTTPMetrics(deps.Metrics))
	router.Use(middleware.BodySizeLimit(deps.Config.Server.MaxBodyBytes))
	router.Use(gincors.New(corsConfig(deps.Config.CORS)))

	authHandler := NewAdminAuthHandler(deps.AdminAuthService, deps.Config.Admin.CookieSecure, log)
	adminHandler := NewAdminHandler(deps.SettingsService, deps.AdminService, deps.DomainExpirationService, log)
	publicHandler := NewPublicHandler(deps.SettingsService, deps.InboxService, deps.DomainExpirationService, log)
	adminAuth := middleware.NewAdminAuth(deps.AdminAuthService)

	// Swagger 文档
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 健康检查与指标
	if deps.Health != nil {
		router.GET("/health", func(c *gin.Context) {
			report := deps.Health.Report(c.Request.Context())
			status := http.StatusOK
			if report.Status == health.StatusUnhealthy {
				status = http.StatusServiceUnavailable
			}
			c.JSON(status, report)
		})
		router.GET("/health/live", gin.WrapF(deps.Health.LiveHandler()))
		router.GET("/health/ready", gin.WrapF(deps.Health.ReadyHandler()))
	} else {
		router.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
	}
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))
	}

	api := router.Group("/api")
	{
		// ========== Public Routes ==========
		api.GET("/branding", publicHandler.GetBranding)
		api.GET("/retention", publicHandler.GetRetention)
		api.GET("/inbox", publicHandler.GetInbox)
		api.GET("/domains/:domain/expiration", publicHandler.GetDomainExpiration)

		// 旧版设置接口，401 以 JSON 返回
		api.POST("/settings", adminAuth.RequireAdminJSON(), adminHandler.LegacySettings)

		// ========== Admin Auth Routes ==========
		api.POST("/admin/auth", authHandler.Login)
		api.POST("/admin/logout", authHandler.Logout)
		api.GET("/admin/session", authHandler.Session)

		// ========== Admin Routes ==========
		adminRoutes := api.Group("/admin")
		adminRoutes.Use(adminAuth.RequireAdmin())
		{
			adminRoutes.GET("/retention", adminHandler.GetRetention)
			adminRoutes.POST("/retention", adminHandler.SetRetention)
			adminRoutes.GET("/telegram", adminHandler.GetTelegram)
			adminRoutes.POST("/telegram", adminHandler.SetTelegram)
			adminRoutes.GET("/branding", adminHandler.GetBranding)
			adminRoutes.POST("/branding", adminHandler.SetBranding)
			adminRoutes.GET("/stats", adminHandler.Stats)
			adminRoutes.POST("/domains/:domain/expiration/refresh", adminHandler.RefreshDomainExpiration)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		writeError(c, http.StatusNotFound, "Not Found")
	})

	return router
}

func corsConfig(cfg config.CORSConfig) gincors.Config {
	corsConfig := gincors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	// 未配置或包含 "*" 时允许所有来源，此时需清空凭证支持。
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	}
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowAllOrigins = true
			break
		}
	}
	if corsConfig.AllowAllOrigins {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowCredentials = false
	}
	return corsConfig
}
