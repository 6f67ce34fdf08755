package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Port     string
	LogLevel string

	SheetSource     string
	SheetID         string
	SheetName       string
	SheetsAPIURL    string
	CredentialsFile string
	XLSXPath        string
	SheetVariant    string
	HTTPTimeout     time.Duration

	DataDir    string
	StaticDir  string
	ReportsDir string

	TriggerKey     string
	TrendThreshold float64
	TrendWeeks     int
	ReportFamily   string

	SMTPHost      string
	EmailUser     string
	EmailPassword string
	EmailTo       []string
}

func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Warn("No .env file found, using environment variables")
	}

	timeout, err := time.ParseDuration(getEnv("HTTP_TIMEOUT", "30s"))
	if err != nil {
		timeout = 30 * time.Second
	}
	threshold, err := strconv.ParseFloat(getEnv("TREND_THRESHOLD_PCT", "0"), 64)
	if err != nil || threshold < 0 {
		threshold = 0
	}
	weeks, err := strconv.Atoi(getEnv("TREND_WEEKS", "4"))
	if err != nil || weeks < 1 {
		weeks = 4
	}

	return &Config{
		Port:            getEnv("PORT", "8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		SheetSource:     strings.ToLower(getEnv("SHEET_SOURCE", "sheets")),
		SheetID:         getEnv("SHEET_ID", ""),
		SheetName:       getEnv("SHEET_NAME", "Daily Ad Group Performance Report"),
		SheetsAPIURL:    getEnv("SHEETS_API_URL", "https://sheets.googleapis.com"),
		CredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", "credentials.json"),
		XLSXPath:        getEnv("XLSX_PATH", ""),
		SheetVariant:    strings.ToLower(getEnv("SHEET_VARIANT", "extended")),
		HTTPTimeout:     timeout,
		DataDir:         getEnv("DATA_DIR", "data"),
		StaticDir:       getEnv("STATIC_DIR", "static"),
		ReportsDir:      getEnv("REPORTS_DIR", "reports"),
		TriggerKey:      getEnv("TRIGGER_KEY", ""),
		TrendThreshold:  threshold,
		TrendWeeks:      weeks,
		ReportFamily:    getEnv("REPORT_FAMILY", "Google Ads"),
		SMTPHost:        getEnv("SMTP_HOST", "smtp.gmail.com"),
		EmailUser:       getEnv("EMAIL_USER", ""),
		EmailPassword:   getEnv("EMAIL_PASSWORD", ""),
		EmailTo:         splitList(getEnv("EMAIL_TO", "")),
	}
}

// NewLogger builds the process logger from the configured level.
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.JSONFormatter{})
	return logger
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
