package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"adsreport/internal/client"
	"adsreport/internal/config"
	"adsreport/internal/export"
	"adsreport/internal/handlers"
	"adsreport/internal/monitoring"
	"adsreport/internal/report"
	"adsreport/internal/storage"
)

func main() {
	// Load configuration
	cfg := config.Load()
	logger := cfg.NewLogger()

	logger.WithField("family", cfg.ReportFamily).Info("Starting ads KPI report service")

	// Initialize components
	loader, err := client.NewLoader(context.Background(), cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to set up sheet loader")
	}
	store := storage.NewReportStore()
	m := monitoring.NewMetrics()
	mailer := export.NewMailer(cfg, logger)
	service := report.NewService(cfg, loader, mailer, store, m, logger)

	handler := handlers.New(cfg, service, store, service.Renderer(), m, logger)
	if cfg.TriggerKey == "" {
		logger.Warn("TRIGGER_KEY not set, /trigger is disabled")
	}

	// Setup Gin router
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	handler.Register(router)

	// Start server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.WithField("port", cfg.Port).Info("Server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Fatal("Failed to start server")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("Server forced to shutdown")
	}

	logger.Info("Server exited")
}
