package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/course-market-api/api/swagger"
	"github.com/noah-isme/course-market-api/internal/handler"
	"github.com/noah-isme/course-market-api/internal/middleware"
	"github.com/noah-isme/course-market-api/internal/models"
	"github.com/noah-isme/course-market-api/internal/repository"
	"github.com/noah-isme/course-market-api/internal/service"
	"github.com/noah-isme/course-market-api/pkg/cache"
	"github.com/noah-isme/course-market-api/pkg/config"
	"github.com/noah-isme/course-market-api/pkg/database"
	"github.com/noah-isme/course-market-api/pkg/jobs"
	"github.com/noah-isme/course-market-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/course-market-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/course-market-api/pkg/middleware/requestid"
	"github.com/noah-isme/course-market-api/pkg/storage"
)

// @title Course Market API
// @version 1.0.0
// @description Course marketplace with manual purchase approval and per-episode access control
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

	if cfg.Migrations.Enabled {
		if err := database.Migrate(db, cfg.Migrations.Dir); err != nil {
			logr.Fatal("failed to apply migrations", zap.Error(err))
		}
		logr.Info("migrations applied", zap.String("dir", cfg.Migrations.Dir))
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, catalog cache disabled", zap.Error(err))
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	validate := validator.New()
	metrics := service.NewMetricsService()

	userRepo := repository.NewUserRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	purchaseRepo := repository.NewPurchaseRepository(db)
	grantRepo := repository.NewAccessGrantRepository(db)
	paymentRepo := repository.NewPaymentOptionRepository(db)
	cacheRepo := repository.NewCatalogCacheRepository(redisClient, cfg.Redis.KeyPrefix, logr)

	auditSvc := service.NewAuditService(userRepo, logr)
	auditQueue := jobs.NewQueue("audit", auditSvc.Handle, jobs.QueueConfig{
		Workers:    cfg.Audit.Workers,
		MaxRetries: cfg.Audit.MaxRetries,
		Logger:     logr,
	})
	// stopped explicitly after the server drains so late audit writes are flushed
	auditQueue.Start(context.Background())
	defer auditQueue.Stop()
	auditSvc.AttachQueue(auditQueue)

	catalogCache := service.NewCatalogCache(cacheRepo, metrics, cfg.Catalog.CacheTTL, logr, cfg.Catalog.CacheEnabled && redisClient != nil)

	authSvc := service.NewAuthService(userRepo, auditSvc, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(userRepo, auditSvc, validate, logr)
	catalogSvc := service.NewCatalogService(catalogRepo, catalogCache, auditSvc, validate, logr)
	accessSvc := service.NewAccessService(catalogRepo, grantRepo, metrics, logr)
	streamSvc := service.NewStreamService(accessSvc, metrics, logr)
	purchaseSvc := service.NewPurchaseService(purchaseRepo, grantRepo, catalogRepo, metrics, auditSvc, validate, logr, service.PurchaseConfig{
		DefaultCurrency:        cfg.Purchases.DefaultCurrency,
		DefaultProvider:        models.PaymentProvider(cfg.Purchases.DefaultProvider),
		RejectDuplicatePending: cfg.Purchases.RejectDuplicatePending,
	})
	exportSvc := service.NewExportService(purchaseRepo, service.ExportConfig{}, logr, nil, nil)
	paymentSvc := service.NewPaymentOptionService(paymentRepo, auditSvc, validate, logr)

	proofStore, err := storage.NewLocalStorage(cfg.Proofs.StorageDir)
	if err != nil {
		logr.Fatal("failed to prepare proof storage", zap.Error(err))
	}
	proofSvc := service.NewProofService(proofStore, storage.NewSignedURLSigner(cfg.Proofs.SignedURLSecret, cfg.Proofs.SignedURLTTL), service.ProofConfig{
		MaxBytes:     cfg.Proofs.MaxFileSizeBytes,
		AllowedMIMEs: cfg.Proofs.AllowedMIMEs,
		URLPrefix:    strings.TrimSuffix(cfg.APIPrefix, "/") + "/admin/proofs/",
	}, logr)

	if cfg.Monitor.Enabled {
		monitor := service.NewPendingMonitor(purchaseRepo, metrics, service.PendingMonitorConfig{
			Schedule:       cfg.Monitor.Schedule,
			StaleThreshold: cfg.Monitor.StaleThreshold,
		}, logr)
		if err := monitor.Start(); err != nil {
			logr.Fatal("failed to start pending purchase monitor", zap.Error(err))
		}
		defer monitor.Stop()
	}

	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}

	checks := map[string]handler.ReadinessCheck{
		"database": db.PingContext,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	handler.RegisterRoutes(r, handler.Handlers{
		Auth:           handler.NewAuthHandler(authSvc),
		Users:          handler.NewUserHandler(userSvc),
		Catalog:        handler.NewCatalogHandler(catalogSvc),
		Purchases:      handler.NewPurchaseHandler(purchaseSvc, exportSvc),
		Proofs:         handler.NewProofHandler(proofSvc),
		Stream:         handler.NewStreamHandler(streamSvc),
		Dashboard:      handler.NewDashboardHandler(accessSvc),
		PaymentOptions: handler.NewPaymentOptionHandler(paymentSvc),
		Metrics:        handler.NewMetricsHandler(metrics, checks),
	}, handler.RouteConfig{
		APIPrefix: cfg.APIPrefix,
		Tokens:    authSvc,
		Audit:     auditSvc,
		Limiter:   limiter,
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

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
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
