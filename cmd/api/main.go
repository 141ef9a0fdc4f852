package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	_ "go.uber.org/automaxprocs"
	"go.uber.org/zap"

	"docrepo/docs"
	"docrepo/internal/auth"
	"docrepo/internal/cache"
	"docrepo/internal/config"
	"docrepo/internal/database"
	"docrepo/internal/database/migration"
	handlers "docrepo/internal/http/handler"
	"docrepo/internal/http/middleware"
	"docrepo/internal/janitor"
	"docrepo/internal/logger"
	"docrepo/internal/otel"
	"docrepo/internal/repository/postgres"
	"docrepo/internal/service"
	"docrepo/internal/storage"
)

// multipart framing and text fields on top of the file itself
const multipartOverhead = 1 << 20

// @title						Document Repository API
// @version					1.0
// @BasePath					/
// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger is not configured yet
		zap.NewExample().Fatal("load config", zap.Error(err))
	}

	log, cleanup := logger.New(cfg.Log)
	defer cleanup()

	ctx := context.Background()

	shutdownTracing, err := otel.Init(ctx, log)
	if err != nil {
		log.Fatal("init tracing", zap.Error(err))
	}

	db, err := database.NewPostgres(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal("connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := migration.Up(ctx, db, log, cfg.Database.Host); err != nil {
			log.Fatal("migrate database", zap.Error(err))
		}
	}

	objStore, err := storage.NewMinIO(ctx, cfg.MinIO)
	if err != nil {
		log.Fatal("init object storage", zap.Error(err))
	}

	masterCache := cache.FromConfig(cfg.Redis, log)
	if masterCache != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := masterCache.Ping(pingCtx); err != nil {
			// reads fall back to the database while redis is away
			log.Warn("redis unavailable at startup", zap.Error(err))
		}
		cancel()
		defer masterCache.Close()
	}

	docRepo := postgres.NewDocumentPostgres(db)
	masterRepo := postgres.NewMasterDataPostgres(db)
	orphanRepo := postgres.NewOrphanPostgres(db)

	docSvc := service.NewDocumentService(objStore, docRepo, masterRepo, orphanRepo, log, cfg.Upload.MaxBytes)
	masterSvc := service.NewMasterDataService(masterRepo, masterCache, time.Duration(cfg.Redis.CacheTTLSec)*time.Second)

	if cfg.JWT.Secret == "" {
		log.Fatal("JWT_SECRET is required")
	}
	jwter := &auth.JWTer{
		Secret: []byte(cfg.JWT.Secret),
		Issuer: cfg.JWT.Issuer,
		TTL:    time.Duration(cfg.JWT.TTLMin) * time.Minute,
	}

	sweeper := janitor.New(cfg.Janitor, orphanRepo, objStore, log)
	if err := sweeper.Start(ctx); err != nil {
		log.Fatal("start janitor", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	promMiddleware, err := middleware.NewPrometheusMiddleware(reg, handlers.MetricsPath)
	if err != nil {
		log.Fatal("register metrics", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    int(cfg.Upload.MaxBytes) + multipartOverhead,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	})

	app.Use(otelfiber.Middleware())
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(log))
	app.Use(promMiddleware.Handler())
	app.Use(middleware.RateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst))

	docs.SwaggerInfo.Host = cfg.AppHost
	docs.SwaggerInfo.Schemes = cfg.AppSchemes
	handlers.RegisterRoutes(app, handlers.Deps{
		DB:         db,
		Documents:  docSvc,
		MasterData: masterSvc,
		JWT:        jwter,
		Gatherer:   reg,
		Log:        log,
	})

	addr := ":" + cfg.Port
	go func() {
		if err := app.Listen(addr); err != nil {
			log.Fatal("server start failed", zap.Error(err))
		}
	}()
	log.Info("api started", zap.String("addr", addr))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("server shutdown", zap.Error(err))
	}
	if err := sweeper.Stop(shutdownCtx); err != nil {
		log.Error("janitor shutdown", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown", zap.Error(err))
	}
	log.Info("api stopped gracefully")
}
