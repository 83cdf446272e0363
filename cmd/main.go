package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"licensetracker/internal/caching"
	"licensetracker/internal/config"
	"licensetracker/internal/handlers"
	"licensetracker/internal/jobs/background"
	"licensetracker/internal/logger"
	"licensetracker/internal/middleware"
	"licensetracker/internal/notifier"
	"licensetracker/internal/repositories"
	"licensetracker/internal/services"
	"licensetracker/pkg/database"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logr, err := logger.New(logger.Options{
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
		Service: "license-tracker",
		Version: version,
	})
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logr.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database connection
	pool, err := database.NewPool(ctx, cfg.DatabaseURL, logr)
	if err != nil {
		logr.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	// Redis holds the run lock and the last run summary
	redisClient := caching.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer func() { _ = redisClient.Close() }()
	runStore := caching.NewRedisRunStore(redisClient, logr)

	// Create repositories
	licenseRepo := repositories.NewLicenseRepo(pool)
	notificationLogRepo := repositories.NewNotificationLogRepo(pool)
	masterDataRepo := repositories.NewMasterDataRepo(pool)

	// Create services
	lineSvc := services.NewLineService(cfg.LineAPIURL, cfg.LineAccessToken)
	expiryNotifier := notifier.NewExpiryNotifier(licenseRepo, notificationLogRepo, lineSvc, cfg.NotifierConfig(), logr)
	expiryCheckSvc := services.NewExpiryCheckService(expiryNotifier, runStore, 0, logr)

	scheduler, err := background.NewJobScheduler(expiryCheckSvc, cfg.Schedule, cfg.Location, logr)
	if err != nil {
		logr.Fatal("Failed to create job scheduler", zap.Error(err))
	}

	// Create handlers
	healthHandlers := handlers.NewHealthHandlers(pool, runStore, version)
	cronHandlers := handlers.NewCronHandlers(expiryCheckSvc, logr)
	licenseHandlers := handlers.NewLicenseHandlers(licenseRepo, notificationLogRepo, logr)
	masterDataHandlers := handlers.NewMasterDataHandlers(masterDataRepo, logr)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.Validator = handlers.NewRequestValidator()

	// Global middleware
	e.Pre(echoMiddleware.RemoveTrailingSlash())
	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())
	e.Use(middleware.VersionHeader(version))

	// Health endpoints (no auth required)
	e.GET("/health", healthHandlers.HealthCheck)
	e.GET("/health/ready", healthHandlers.ReadinessCheck)
	e.GET("/health/live", healthHandlers.LivenessCheck)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// External scheduler trigger
	cron := e.Group("/api/cron", middleware.CronAuth(cfg.CronSecret))
	cron.GET("/check-expiry", cronHandlers.CheckExpiry)
	cron.GET("/last-run", cronHandlers.LastRun)

	// Protected routes (require admin JWT)
	v1 := e.Group("/api/v1", middleware.AdminJWT(cfg.AdminJWTSecret), middleware.RequireAdmin)

	v1.GET("/licenses", licenseHandlers.ListLicenses)
	v1.POST("/licenses", licenseHandlers.CreateLicense)
	v1.GET("/licenses/:id", licenseHandlers.GetLicense)
	v1.PUT("/licenses/:id", licenseHandlers.UpdateLicense)
	v1.DELETE("/licenses/:id", licenseHandlers.DeleteLicense)
	v1.GET("/licenses/:id/notifications", licenseHandlers.ListNotifications)

	v1.GET("/companies", masterDataHandlers.ListCompanies)
	v1.POST("/companies", masterDataHandlers.CreateCompany)
	v1.PUT("/companies/:id", masterDataHandlers.UpdateCompany)
	v1.DELETE("/companies/:id", masterDataHandlers.DeleteCompany)

	v1.GET("/tags", masterDataHandlers.ListTags)
	v1.POST("/tags", masterDataHandlers.CreateTag)
	v1.PUT("/tags/:id", masterDataHandlers.UpdateTag)
	v1.DELETE("/tags/:id", masterDataHandlers.DeleteTag)

	v1.GET("/scopes", masterDataHandlers.ListScopes)
	v1.POST("/scopes", masterDataHandlers.CreateScope)
	v1.PUT("/scopes/:id", masterDataHandlers.UpdateScope)
	v1.DELETE("/scopes/:id", masterDataHandlers.DeleteScope)

	scheduler.Start()
	if next, ok := scheduler.NextRun(); ok {
		logr.Info("expiry check scheduled", zap.String("schedule", cfg.Schedule), zap.Time("next_run", next))
	}

	go func() {
		logr.Info("license tracker starting",
			zap.Int("port", cfg.Port),
			zap.String("timezone", cfg.Location.String()),
		)
		if err := e.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && err != http.ErrServerClosed {
			logr.Fatal("HTTP server stopped", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	if err := scheduler.Stop(); err != nil {
		logr.Error("Failed to stop job scheduler", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logr.Error("Failed to shut down HTTP server", zap.Error(err))
	}
}
