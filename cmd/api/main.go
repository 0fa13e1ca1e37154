package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/integrity-report-api/api/swagger"
	"github.com/noah-isme/integrity-report-api/internal/handler"
	"github.com/noah-isme/integrity-report-api/internal/middleware"
	"github.com/noah-isme/integrity-report-api/internal/repository"
	"github.com/noah-isme/integrity-report-api/internal/service"
	"github.com/noah-isme/integrity-report-api/pkg/cache"
	"github.com/noah-isme/integrity-report-api/pkg/config"
	"github.com/noah-isme/integrity-report-api/pkg/database"
	"github.com/noah-isme/integrity-report-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/integrity-report-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/integrity-report-api/pkg/middleware/requestid"
	"github.com/noah-isme/integrity-report-api/pkg/storage"
)

// @title Integrity Report API
// @version 1.0.0
// @description Academic integrity incident reporting and review
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	// A nil client keeps the analytics cache as a pass-through.
	var redisClient redis.UniversalClient
	if client, err := cache.NewRedis(cfg.Redis); err != nil {
		logr.Warn("redis unavailable, analytics cache disabled", zap.Error(err))
	} else {
		redisClient = client
		defer client.Close()
	}

	blobs, err := newBlobStore(context.Background(), cfg)
	if err != nil {
		logr.Fatal("failed to init attachment storage", zap.Error(err), zap.String("driver", cfg.Storage.Driver))
	}
	signer := storage.NewSignedURLSigner(cfg.Attachments.SignedURLSecret, cfg.Attachments.SignedURLTTL)

	validate := validator.New()
	metrics := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	reportRepo := repository.NewReportRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient)

	settingsSvc := service.NewSettingsService(settingRepo, auditRepo, validate, logr)
	notificationSvc := service.NewNotificationService(notificationRepo, validate, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Analytics.CacheTTL, logr, cfg.Analytics.CacheEnabled && redisClient != nil)
	analyticsSvc := service.NewAnalyticsService(analyticsRepo, notificationRepo, cacheSvc, metrics, logr)
	reportSvc := service.NewReportService(service.ReportServiceDeps{
		Repo:      reportRepo,
		Blobs:     blobs,
		Signer:    signer,
		Notifier:  notificationSvc,
		Analytics: analyticsSvc,
		Settings:  settingsSvc,
		Metrics:   metrics,
		Audit:     auditRepo,
		Validator: validate,
		Logger:    logr,
	}, service.ReportServiceConfig{
		MaxFiles:         cfg.Attachments.MaxFiles,
		MaxFileSizeBytes: cfg.Attachments.MaxFileSizeBytes,
		AllowedMIMEs:     cfg.Attachments.AllowedMIMEs,
	})
	userSvc := service.NewUserService(userRepo, auditRepo, validate, logr)
	authSvc := service.NewAuthService(userRepo, auditRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "integrity-report-api",
	})
	exportSvc := service.NewExportService(reportRepo, userRepo, notificationRepo, auditRepo, logr, nil, nil)

	if cfg.Bootstrap.AdminEmail != "" {
		created, err := userSvc.EnsureBootstrapAdmin(context.Background(), cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword, cfg.Bootstrap.AdminName)
		if err != nil {
			logr.Fatal("failed to bootstrap admin", zap.Error(err))
		}
		if created {
			logr.Info("bootstrap admin created", zap.String("email", cfg.Bootstrap.AdminEmail))
		}
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.WithResponseMeta())

	probes := handler.NewMetricsHandler(metrics.Handler(), map[string]handler.HealthCheck{
		"database": db.PingContext,
		"cache":    cacheRepo.Ping,
	})
	r.GET("/health", probes.Health)
	r.GET("/ready", probes.Ready)
	r.GET("/metrics", probes.Prometheus)

	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handler.Handlers{
		Auth:          handler.NewAuthHandler(authSvc),
		Users:         handler.NewUserHandler(userSvc),
		Reports:       handler.NewReportHandler(reportSvc),
		Notifications: handler.NewNotificationHandler(notificationSvc),
		Settings:      handler.NewSettingHandler(settingsSvc),
		Analytics:     handler.NewAnalyticsHandler(analyticsSvc),
		Export:        handler.NewExportHandler(exportSvc),
	}, authSvc)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "storage", cfg.Storage.Driver)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func newBlobStore(ctx context.Context, cfg *config.Config) (storage.Blob, error) {
	if cfg.Storage.Driver == config.StorageDriverS3 {
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return storage.NewS3Storage(ctx, cfg.Storage.S3)
	}
	return storage.NewLocalStorage(cfg.Storage.Dir)
}
