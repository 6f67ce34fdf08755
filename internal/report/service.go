package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"adsreport/internal/client"
	"adsreport/internal/config"
	"adsreport/internal/export"
	"adsreport/internal/metrics"
	"adsreport/internal/models"
	"adsreport/internal/monitoring"
	"adsreport/internal/storage"
	"adsreport/internal/transformer"
)

// Sender delivers the report email.
type Sender interface {
	Enabled() bool
	Send(ctx context.Context, msg export.Message) error
}

// Service runs the report pipeline: load the sheet, normalize, compute KPIs
// and trends, render, save, email, and cache the result.
type Service struct {
	cfg         *config.Config
	loader      client.SheetLoader
	transformer *transformer.Transformer
	calculator  *metrics.Calculator
	aggregator  *metrics.Aggregator
	trends      *metrics.TrendComparator
	snapshots   *storage.SnapshotStore
	store       *storage.ReportStore
	renderer    *export.Renderer
	mailer      Sender
	metrics     *monitoring.Metrics
	logger      *logrus.Logger
	now         func() time.Time
}

func NewService(
	cfg *config.Config,
	loader client.SheetLoader,
	mailer Sender,
	store *storage.ReportStore,
	m *monitoring.Metrics,
	logger *logrus.Logger,
) *Service {
	t := transformer.New(cfg.SheetVariant)
	calc := metrics.NewCalculator()
	return &Service{
		cfg:         cfg,
		loader:      loader,
		transformer: t,
		calculator:  calc,
		aggregator:  metrics.NewAggregator(calc),
		trends:      metrics.NewTrendComparator(cfg.TrendThreshold, calc),
		snapshots:   storage.NewSnapshotStore(cfg.DataDir, t, logger),
		store:       store,
		renderer:    export.NewRenderer(cfg.ReportsDir, logger),
		mailer:      mailer,
		metrics:     m,
		logger:      logger,
		now:         time.Now,
	}
}

// Renderer is shared with the dashboard handler.
func (s *Service) Renderer() *export.Renderer {
	return s.renderer
}

// Run executes one pipeline run. A sheet failure aborts the run and leaves the
// cached report untouched; snapshot, chart and email failures are recorded on
// the returned report.
func (s *Service) Run(ctx context.Context) (*models.ReportSnapshot, error) {
	start := s.now()
	runID := uuid.NewString()
	log := s.logger.WithField("run_id", runID)
	log.Info("Starting report run")

	report, err := s.build(ctx, runID, start, log)
	if err != nil {
		s.metrics.ObserveRun(monitoring.ResultError, time.Since(start).Seconds())
		log.WithError(err).Error("Report run failed")
		return nil, err
	}

	s.sendEmail(ctx, report, log)

	result := monitoring.ResultSuccess
	if report.EmailError != "" {
		result = monitoring.ResultPartial
	}
	s.store.Replace(report)
	s.metrics.ObserveRun(result, time.Since(start).Seconds())
	s.metrics.SetCampaigns(report.Summary.Campaigns)

	log.WithFields(logrus.Fields{
		"result":      result,
		"campaigns":   report.Summary.Campaigns,
		"rows":        report.Stats.RowsKept,
		"email_sent":  report.EmailSent,
		"warnings":    len(report.Warnings),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Report run finished")
	return report, nil
}

func (s *Service) build(ctx context.Context, runID string, start time.Time, log *logrus.Entry) (*models.ReportSnapshot, error) {
	rows, err := s.loader.FetchRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load sheet: %w", err)
	}

	today := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	report := &models.ReportSnapshot{
		RunID:       runID,
		Date:        today.Format("2006-01-02"),
		GeneratedAt: start,
		Family:      s.cfg.ReportFamily,
	}

	records, stats, err := s.transformer.Normalize(rows)
	if errors.Is(err, transformer.ErrHeaderNotFound) {
		log.WithField("rows", len(rows)).Warn("Header row not found, reporting an empty sheet")
		report.Warnings = append(report.Warnings, "header row not found in sheet")
	}
	report.Stats = stats
	log.WithFields(logrus.Fields{
		"rows_read":        stats.RowsRead,
		"rows_kept":        stats.RowsKept,
		"rows_skipped":     stats.RowsSkipped,
		"header_row":       stats.HeaderRow,
		"fallback_headers": stats.FallbackHeaders,
		"unmapped":         stats.UnmappedHeaders,
	}).Info("Normalized sheet")

	records = s.calculator.Compute(records)
	report.Campaigns = records
	report.Summary = s.calculator.Summarize(records)

	previous, err := s.snapshots.LoadPrevious(today)
	if err != nil {
		log.WithError(err).Warn("Could not read previous snapshot")
		report.Warnings = append(report.Warnings, "previous snapshot unreadable: "+err.Error())
	}
	report.DailyTrends = s.trends.CompareDays(records, previous)
	report.Weekly = s.aggregator.Aggregate(records, models.GranularityWeek, s.cfg.TrendWeeks, today)
	report.WeeklyTrends = s.trends.CompareWeeks(report.Weekly)

	collapsed := s.calculator.CollapseByCampaign(records)
	report.Highlights = metrics.SelectInsights(collapsed, report.DailyTrends)

	if len(records) == 0 {
		log.Info("No records, keeping any existing snapshot for today")
	} else if _, err := s.snapshots.Save(today, records); err != nil {
		log.WithError(err).Warn("Could not save snapshot")
		report.Warnings = append(report.Warnings, "snapshot not saved: "+err.Error())
	}

	png, err := export.RenderSpendChart(collapsed)
	switch {
	case errors.Is(err, export.ErrEmptyChart):
		log.Debug("No spend to chart")
	case err != nil:
		log.WithError(err).Warn("Could not render chart")
		report.Warnings = append(report.Warnings, "chart not rendered: "+err.Error())
	default:
		report.ChartPNG = png
		if _, err := export.SaveChart(s.cfg.StaticDir, png); err != nil {
			log.WithError(err).Warn("Could not save chart")
			report.Warnings = append(report.Warnings, "chart not saved: "+err.Error())
		}
	}

	chartSrc := ""
	if len(report.ChartPNG) > 0 {
		chartSrc = "cid:" + export.ChartCID
	}
	html, err := s.renderer.Render(report, chartSrc)
	if err != nil {
		return nil, err
	}
	report.HTML = html
	if _, err := s.renderer.Save(html); err != nil {
		log.WithError(err).Warn("Could not save report HTML")
		report.Warnings = append(report.Warnings, "report not saved: "+err.Error())
	}
	return report, nil
}

func (s *Service) sendEmail(ctx context.Context, report *models.ReportSnapshot, log *logrus.Entry) {
	if s.mailer == nil || !s.mailer.Enabled() {
		log.Info("EMAIL_TO or EMAIL_USER not set, skipping email")
		s.metrics.ObserveEmail(monitoring.EmailSkipped)
		return
	}

	err := s.mailer.Send(ctx, export.Message{
		Subject:  export.Title(report.Family, report.Date),
		Text:     export.PlainText(report),
		HTML:     report.HTML,
		ChartPNG: report.ChartPNG,
	})
	if err != nil {
		log.WithError(err).Error("Failed to send report email")
		report.EmailError = err.Error()
		s.metrics.ObserveEmail(monitoring.EmailFailed)
		return
	}
	report.EmailSent = true
	s.metrics.ObserveEmail(monitoring.EmailSent)
}
