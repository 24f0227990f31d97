package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/leadflow/consent-service/internal/system/config"
	"github.com/leadflow/consent-service/internal/system/database"
	"github.com/leadflow/consent-service/internal/system/database/provider"
	"github.com/leadflow/consent-service/internal/system/log"
	"github.com/leadflow/consent-service/internal/system/middleware"
	"github.com/leadflow/consent-service/internal/system/stores"
	"github.com/leadflow/consent-service/internal/system/tracing"
)

// Version information (set by build script)
var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	// Priority: CONFIG_PATH env var > repository/conf/deployment.yaml > cmd/server/repository/conf/deployment.yaml
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.GetLogger().Fatal("Failed to load configuration", log.Error(err))
	}
	if err := log.Init(cfg.Logging.Level, cfg.Logging.Format, os.Stdout); err != nil {
		log.GetLogger().Fatal("Failed to initialize logger", log.Error(err))
	}
	logger := log.GetLogger()
	logger.Info("Starting consent service...",
		log.String("version", version),
		log.String("build_date", buildDate))

	shutdownTracing := tracing.Init(cfg.Tracing)

	db, err := database.Initialize(&cfg.Database.Consent)
	if err != nil {
		logger.Fatal("Failed to initialize database", log.Error(err))
	}
	registry := stores.NewStoreRegistry(provider.NewDBClient(db.DB, cfg.Database.Consent.Type))

	gin.SetMode(cfg.Server.Mode)
	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		middleware.CorrelationIDMiddleware(),
		middleware.RequestLogger(),
		middleware.CORSMiddleware(cfg.CORS),
		middleware.OptionalAuth(middleware.NewTokenVerifier(cfg.Security.JWT.Secret, cfg.Security.JWT.Issuer)),
	)
	engine.GET("/health", func(c *gin.Context) {
		if err := db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if err := registerServices(engine.Group("/api/v1"), registry, cfg); err != nil {
		logger.Fatal("Failed to register services", log.Error(err))
	}

	server := &http.Server{
		Addr:           cfg.Server.GetServerAddress(),
		Handler:        engine,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	go func() {
		logger.Info("Starting HTTP server...", log.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", log.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", log.Error(err))
	}
	unregisterServices()
	if err := shutdownTracing(ctx); err != nil {
		logger.Error("Failed to flush traces", log.Error(err))
	}
	if err := db.Close(); err != nil {
		logger.Error("Failed to close database", log.Error(err))
	}

	logger.Info("Server exited gracefully")
}
