package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"adsreport/internal/config"
	"adsreport/internal/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		SheetSource:  "sheets",
		SheetID:      "sheet-123",
		SheetName:    "Daily Ad Group Performance Report",
		SheetsAPIURL: baseURL,
		HTTPTimeout:  5 * time.Second,
	}
}

func TestFetchRows(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v4/spreadsheets/sheet-123/values/Daily Ad Group Performance Report", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"range":"A1:C3","values":[["Report"],["Date","Campaign Name","Clicks"],["2025-01-01","Brand Search",50]]}`))
	}))
	defer server.Close()

	c, err := NewSheetsClientWithHTTP(server.Client(), testConfig(server.URL+"/"), testLogger())
	require.NoError(t, err)

	rows, err := c.FetchRows(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.RawRow{
		{"Report"},
		{"Date", "Campaign Name", "Clicks"},
		{"2025-01-01", "Brand Search", "50"},
	}, rows)
}

func TestFetchRowsEmptySheet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"range":"A1:Z1000"}`))
	}))
	defer server.Close()

	c, err := NewSheetsClientWithHTTP(server.Client(), testConfig(server.URL), testLogger())
	require.NoError(t, err)
	rows, err := c.FetchRows(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestFetchRowsErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"missing worksheet", http.StatusNotFound, `{}`, "not found"},
		{"forbidden", http.StatusForbidden, `{"error":"denied"}`, "client error: 403"},
		{"unavailable", http.StatusServiceUnavailable, ``, "server error: 503"},
		{"bad json", http.StatusOK, `{"values":`, "failed to decode"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c, err := NewSheetsClientWithHTTP(server.Client(), testConfig(server.URL), testLogger())
			require.NoError(t, err)
			_, err = c.FetchRows(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
			assert.Equal(t, 1, calls)
		})
	}
}

func TestFetchRowsUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	c, err := NewSheetsClientWithHTTP(http.DefaultClient, testConfig(server.URL), testLogger())
	require.NoError(t, err)
	_, err = c.FetchRows(context.Background())
	assert.Error(t, err)
}

func TestNewSheetsClientRequiresSheetID(t *testing.T) {
	cfg := testConfig("http://localhost")
	cfg.SheetID = ""
	_, err := NewSheetsClientWithHTTP(http.DefaultClient, cfg, testLogger())
	assert.Error(t, err)
}

func TestNewSheetsClientMissingCredentials(t *testing.T) {
	cfg := testConfig("http://localhost")
	cfg.CredentialsFile = filepath.Join(t.TempDir(), "nope.json")

	_, err := NewSheetsClient(context.Background(), cfg, testLogger())
	assert.True(t, errors.Is(err, ErrMissingCredentials))
}

func TestNewSheetsClientInvalidKey(t *testing.T) {
	cfg := testConfig("http://localhost")
	cfg.CredentialsFile = filepath.Join(t.TempDir(), "key.json")
	require.NoError(t, os.WriteFile(cfg.CredentialsFile, []byte("not json"), 0o600))

	_, err := NewSheetsClient(context.Background(), cfg, testLogger())
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrMissingCredentials))
}

func writeWorkbook(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"Google Ads export"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"Date", "Campaign Name", "Clicks", "Impressions"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]interface{}{"2025-01-01", "Brand Search", 50, 1000}))

	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestXLSXLoaderFirstSheet(t *testing.T) {
	path := writeWorkbook(t)

	rows, err := NewXLSXLoader(path, "", testLogger()).FetchRows(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, models.RawRow{"Date", "Campaign Name", "Clicks", "Impressions"}, rows[1])
	assert.Equal(t, models.RawRow{"2025-01-01", "Brand Search", "50", "1000"}, rows[2])
}

func TestXLSXLoaderNamedSheet(t *testing.T) {
	path := writeWorkbook(t)

	rows, err := NewXLSXLoader(path, "Sheet1", testLogger()).FetchRows(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	_, err = NewXLSXLoader(path, "Daily Ad Group Performance Report", testLogger()).FetchRows(context.Background())
	assert.Error(t, err)
}

func TestXLSXLoaderMissingFile(t *testing.T) {
	_, err := NewXLSXLoader(filepath.Join(t.TempDir(), "missing.xlsx"), "", testLogger()).FetchRows(context.Background())
	assert.Error(t, err)

	_, err = NewXLSXLoader("", "", testLogger()).FetchRows(context.Background())
	assert.Error(t, err)
}

func TestNewLoader(t *testing.T) {
	cfg := testConfig("http://localhost")
	cfg.SheetSource = "xlsx"
	cfg.XLSXPath = "report.xlsx"
	loader, err := NewLoader(context.Background(), cfg, testLogger())
	require.NoError(t, err)
	assert.IsType(t, &XLSXLoader{}, loader)

	cfg.SheetSource = "csv"
	_, err = NewLoader(context.Background(), cfg, testLogger())
	assert.Error(t, err)
}
