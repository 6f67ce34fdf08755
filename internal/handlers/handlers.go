package handlers

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"adsreport/internal/config"
	"adsreport/internal/export"
	"adsreport/internal/models"
	"adsreport/internal/monitoring"
	"adsreport/internal/storage"
)

const serviceName = "adsreport"

// Runner runs the report pipeline once.
type Runner interface {
	Run(ctx context.Context) (*models.ReportSnapshot, error)
}

type Handler struct {
	config   *config.Config
	runner   Runner
	store    *storage.ReportStore
	renderer *export.Renderer
	metrics  *monitoring.Metrics
	logger   *logrus.Logger
}

func New(cfg *config.Config, runner Runner, store *storage.ReportStore, renderer *export.Renderer,
	m *monitoring.Metrics, logger *logrus.Logger) *Handler {
	return &Handler{
		config:   cfg,
		runner:   runner,
		store:    store,
		renderer: renderer,
		metrics:  m,
		logger:   logger,
	}
}

// Register mounts every route on r.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/", h.Dashboard)
	r.GET("/trigger", h.Trigger)
	r.GET("/api/data", h.GetData)
	r.GET("/health", h.HealthCheck)
	r.GET("/metrics", gin.WrapH(h.metrics.Handler()))
	r.Static("/static", h.config.StaticDir)
}

func (h *Handler) HealthCheck(c *gin.Context) {
	var lastRun interface{}
	if t := h.store.GetLastRunTime(); !t.IsZero() {
		lastRun = t.Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"service":      serviceName,
		"report_ready": h.store.HasData(),
		"last_run":     lastRun,
		"timestamp":    time.Now().Format(time.RFC3339),
	})
}

// Dashboard renders the last report, or a placeholder before the first run.
func (h *Handler) Dashboard(c *gin.Context) {
	report, ok := h.store.Get()
	if !ok {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(h.renderer.RenderPlaceholder()))
		return
	}

	chartSrc := ""
	if len(report.ChartPNG) > 0 {
		chartSrc = "/static/" + export.ChartFile
	}
	html, err := h.renderer.Render(report, chartSrc)
	if err != nil {
		h.logger.WithError(err).Error("Failed to render dashboard")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to render report"})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

// Trigger runs the pipeline when ?key= matches the configured secret. An empty
// secret disables the endpoint.
func (h *Handler) Trigger(c *gin.Context) {
	key := c.Query("key")
	if h.config.TriggerKey == "" || subtle.ConstantTimeCompare([]byte(key), []byte(h.config.TriggerKey)) != 1 {
		h.logger.WithField("client_ip", c.ClientIP()).Warn("Rejected trigger with bad key")
		c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		return
	}

	report, err := h.runner.Run(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"status": "error",
			"error":  err.Error(),
		})
		return
	}

	status := monitoring.ResultSuccess
	if report.EmailError != "" {
		status = monitoring.ResultPartial
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      status,
		"run_id":      report.RunID,
		"campaigns":   report.Summary.Campaigns,
		"email_sent":  report.EmailSent,
		"email_error": report.EmailError,
	})
}

// GetData returns the cached report as JSON.
func (h *Handler) GetData(c *gin.Context) {
	report, ok := h.store.Get()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "No report available yet, call /trigger first"})
		return
	}
	c.JSON(http.StatusOK, report)
}
