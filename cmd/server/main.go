package main

// @title VaultMail Backend API
// @version 1.0.0
// @description VaultMail 临时邮箱后端 API 文档
// @contact.name API Support
// @contact.email support@example.com
// @BasePath /
// @schemes http https

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"vaultmail/backend/internal/auth"
	"vaultmail/backend/internal/config"
	"vaultmail/backend/internal/health"
	"vaultmail/backend/internal/logger"
	"vaultmail/backend/internal/monitoring"
	"vaultmail/backend/internal/service"
	"vaultmail/backend/internal/storage"
	"vaultmail/backend/internal/storage/backend"
	httptransport "vaultmail/backend/internal/transport/http"
	"vaultmail/backend/internal/whois"

	_ "vaultmail/backend/docs" // Swagger docs
)

const version = "1.0.0"

// main 启动 VaultMail 后端 HTTP 服务与过期数据清理任务。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting vaultmail server",
		zap.String("version", version),
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := backend.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to initialize storage", zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("storage close warning", zap.Error(err))
		}
	}()

	metrics := monitoring.NewMetrics()
	healthChecker := health.NewChecker(store, log, health.Options{
		Version:     version,
		StorageType: cfg.Database.Type,
	})

	// 认证
	verifier, err := auth.NewVerifier(cfg.Admin)
	if err != nil {
		log.Fatal("invalid admin password configuration", zap.Error(err))
	}
	if !verifier.Configured() {
		log.Warn("admin password is not configured, admin login is disabled")
	}
	limiter := auth.NewAttemptLimiter(cfg.Admin.LoginRatePerMinute, cfg.Admin.LoginBurst)

	// 服务层
	adminAuthService := service.NewAdminAuthService(store, verifier, limiter, cfg.Admin.SessionTTL, log, metrics)
	settingsService := service.NewSettingsService(store, service.SettingsDefaults{
		RetentionSeconds: cfg.Retention.DefaultSeconds,
		AppName:          cfg.Branding.DefaultAppName,
	}, log, metrics)
	inboxService := service.NewInboxService(store, log, metrics)
	expirationService := service.NewDomainExpirationService(
		store,
		whois.NewClient(cfg.Whois, log),
		cfg.Whois.CacheTTL,
		log,
		metrics,
	)
	adminService := service.NewAdminService(store)

	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:                  cfg,
		AdminAuthService:        adminAuthService,
		SettingsService:         settingsService,
		InboxService:            inboxService,
		DomainExpirationService: expirationService,
		AdminService:            adminService,
		Health:                  healthChecker,
		Metrics:                 metrics,
		Logger:                  log,
	})

	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// MongoDB 与 Redis 依赖原生 TTL，其余存储定时清理
	if !storage.HasNativeExpiry(store) {
		sweeper := storage.NewSweeper(store, cfg.Storage.SweepInterval, log, metrics.RecordExpiredSwept)
		group.Go(func() error {
			return sweeper.Run(groupCtx)
		})
	}

	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}

		log.Info("servers stopped")
		return nil
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server error", zap.Error(err))
		return
	}

	log.Info("server exited cleanly")
}
