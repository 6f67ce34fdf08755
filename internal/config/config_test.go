package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("TREND_WEEKS", "")
	t.Setenv("EMAIL_TO", "")
	for _, k := range []string{"SHEET_SOURCE", "SHEET_VARIANT", "HTTP_TIMEOUT", "TREND_THRESHOLD_PCT"} {
		t.Setenv(k, "")
	}

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sheets", cfg.SheetSource)
	assert.Equal(t, "extended", cfg.SheetVariant)
	assert.Equal(t, 4, cfg.TrendWeeks)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Zero(t, cfg.TrendThreshold)
	assert.Empty(t, cfg.EmailTo)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SHEET_SOURCE", "XLSX")
	t.Setenv("TREND_THRESHOLD_PCT", "5")
	t.Setenv("TREND_WEEKS", "6")
	t.Setenv("HTTP_TIMEOUT", "5s")
	t.Setenv("EMAIL_TO", "a@example.com, b@example.com,,")

	cfg := Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "xlsx", cfg.SheetSource)
	assert.Equal(t, 5.0, cfg.TrendThreshold)
	assert.Equal(t, 6, cfg.TrendWeeks)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.EmailTo)
}

func TestLoadInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("TREND_THRESHOLD_PCT", "-3")
	t.Setenv("TREND_WEEKS", "zero")
	t.Setenv("HTTP_TIMEOUT", "soon")

	cfg := Load()

	assert.Zero(t, cfg.TrendThreshold)
	assert.Equal(t, 4, cfg.TrendWeeks)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
}

func TestNewLoggerLevel(t *testing.T) {
	cfg := &Config{LogLevel: "debug"}
	assert.Equal(t, logrus.DebugLevel, cfg.NewLogger().GetLevel())

	cfg.LogLevel = "nonsense"
	assert.Equal(t, logrus.InfoLevel, cfg.NewLogger().GetLevel())
}
