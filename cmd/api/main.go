package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	_ "github.com/sistema-uemg/horas-api/api/swagger"
	"github.com/sistema-uemg/horas-api/internal/handler"
	"github.com/sistema-uemg/horas-api/internal/middleware"
	"github.com/sistema-uemg/horas-api/internal/repository"
	"github.com/sistema-uemg/horas-api/internal/router"
	"github.com/sistema-uemg/horas-api/internal/service"
	"github.com/sistema-uemg/horas-api/pkg/cache"
	"github.com/sistema-uemg/horas-api/pkg/config"
	"github.com/sistema-uemg/horas-api/pkg/database"
	"github.com/sistema-uemg/horas-api/pkg/logger"
	corsmiddleware "github.com/sistema-uemg/horas-api/pkg/middleware/cors"
	reqidmiddleware "github.com/sistema-uemg/horas-api/pkg/middleware/requestid"
	"github.com/sistema-uemg/horas-api/pkg/storage"
)

// @title UEMG Horas Complementares API
// @version 1.0.0
// @description Controle de atividades complementares: submissao, avaliacao e fichas.
// @BasePath /api/v1
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close() //nolint:errcheck

	if err := database.Migrate(db); err != nil {
		logr.Sugar().Fatalw("migrations failed", "error", err)
	}

	// Redis is optional: without it the catalog and dashboards are rebuilt
	// from Postgres on every request.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}
	cacheRepo := repository.NewCacheRepository(redisClient)

	userRepo := repository.NewUserRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	reportJobRepo := repository.NewReportJobRepository(db)

	var certStore service.CertificateStore
	var localCertStore *storage.LocalStore
	switch cfg.Storage.Backend {
	case config.StorageBackendCloudinary:
		certStore, err = storage.NewCloudinaryStore(storage.CloudinaryConfig{
			CloudName: cfg.Storage.CloudinaryCloudName,
			APIKey:    cfg.Storage.CloudinaryAPIKey,
			APISecret: cfg.Storage.CloudinaryAPISecret,
			Folder:    cfg.Storage.CloudinaryFolder,
		}, logr)
		if err != nil {
			logr.Sugar().Fatalw("cloudinary init failed", "error", err)
		}
	default:
		localCertStore, err = storage.NewLocalStore(cfg.Storage.LocalDir)
		if err != nil {
			logr.Sugar().Fatalw("certificate storage init failed", "error", err)
		}
		certStore = localCertStore
	}

	reportStore, err := storage.NewLocalStore(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("report storage init failed", "error", err)
	}
	reportSigner := storage.NewSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
	})
	catalogSvc := service.NewCatalogService(catalogRepo, cacheRepo, nil, logr, cfg.Catalog.CacheTTL)
	ledgerSvc := service.NewLedgerService(activityRepo, catalogSvc, cacheRepo, logr, cfg.Rules)
	submissionSvc := service.NewSubmissionService(activityRepo, ledgerSvc, certStore, nil, logr, metricsSvc, cfg.Rules)
	reviewSvc := service.NewReviewService(activityRepo, ledgerSvc, nil, logr, metricsSvc)
	reportSvc := service.NewReportService(reportJobRepo, userRepo, activityRepo, catalogSvc, reportStore, reportSigner, logr, metricsSvc, cfg.Reports, cfg.Rules.TotalHoursTarget)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reportSvc.Start(ctx)
	defer reportSvc.Stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	router.Register(r, cfg, router.Dependencies{
		Auth:           handler.NewAuthHandler(authSvc),
		Catalog:        handler.NewCatalogHandler(catalogSvc),
		Activity:       handler.NewActivityHandler(submissionSvc, ledgerSvc, localCertStore, cfg.Storage.MaxFileSizeBytes, cfg.Storage.AllowedMIMEs),
		Review:         handler.NewReviewHandler(reviewSvc),
		Report:         handler.NewReportHandler(reportSvc),
		AuthService:    authSvc,
		MetricsService: metricsSvc,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown failed", "error", err)
	}

	if redisClient != nil {
		_ = redisClient.Close()
	}
}
