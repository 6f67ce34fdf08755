// Command dailyreport runs the report pipeline once and exits, for cron.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"adsreport/internal/client"
	"adsreport/internal/config"
	"adsreport/internal/export"
	"adsreport/internal/monitoring"
	"adsreport/internal/report"
	"adsreport/internal/storage"
)

func main() {
	cfg := config.Load()
	logger := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loader, err := client.NewLoader(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to set up sheet loader")
		os.Exit(1)
	}

	service := report.NewService(cfg, loader, export.NewMailer(cfg, logger),
		storage.NewReportStore(), monitoring.NewMetrics(), logger)

	snapshot, err := service.Run(ctx)
	if err != nil {
		os.Exit(1)
	}

	logger.WithFields(logrus.Fields{
		"run_id":      snapshot.RunID,
		"campaigns":   snapshot.Summary.Campaigns,
		"email_sent":  snapshot.EmailSent,
		"email_error": snapshot.EmailError,
	}).Info("Daily report done")
}
