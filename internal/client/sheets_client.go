package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2/google"

	"adsreport/internal/config"
	"adsreport/internal/models"
)

const sheetsReadonlyScope = "https://www.googleapis.com/auth/spreadsheets.readonly"

var ErrMissingCredentials = errors.New("google service account credentials not found")

// SheetLoader fetches the raw rows of one worksheet.
type SheetLoader interface {
	FetchRows(ctx context.Context) ([]models.RawRow, error)
}

// NewLoader picks the loader for cfg.SheetSource.
func NewLoader(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (SheetLoader, error) {
	switch cfg.SheetSource {
	case "xlsx":
		return NewXLSXLoader(cfg.XLSXPath, cfg.SheetName, logger), nil
	case "sheets", "":
		return NewSheetsClient(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown sheet source %q", cfg.SheetSource)
	}
}

// SheetsClient reads a worksheet through the Sheets v4 values endpoint. There
// is no retry: a failed fetch fails the run.
type SheetsClient struct {
	client    *http.Client
	baseURL   string
	sheetID   string
	sheetName string
	logger    *logrus.Logger
}

// NewSheetsClient authenticates with the service-account key in cfg.CredentialsFile.
func NewSheetsClient(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*SheetsClient, error) {
	data, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMissingCredentials, cfg.CredentialsFile, err)
	}
	jwt, err := google.JWTConfigFromJSON(data, sheetsReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account key: %w", err)
	}

	httpClient := jwt.Client(ctx)
	httpClient.Timeout = cfg.HTTPTimeout
	return NewSheetsClientWithHTTP(httpClient, cfg, logger)
}

// NewSheetsClientWithHTTP uses an already authorized client.
func NewSheetsClientWithHTTP(httpClient *http.Client, cfg *config.Config, logger *logrus.Logger) (*SheetsClient, error) {
	if cfg.SheetID == "" {
		return nil, errors.New("SHEET_ID is not set")
	}
	return &SheetsClient{
		client:    httpClient,
		baseURL:   strings.TrimRight(cfg.SheetsAPIURL, "/"),
		sheetID:   cfg.SheetID,
		sheetName: cfg.SheetName,
		logger:    logger,
	}, nil
}

type valueRange struct {
	Range  string  `json:"range"`
	Values [][]any `json:"values"`
}

func (c *SheetsClient) FetchRows(ctx context.Context) ([]models.RawRow, error) {
	endpoint := fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s",
		c.baseURL, url.PathEscape(c.sheetID), url.PathEscape(c.sheetName))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sheet: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("worksheet %q not found in spreadsheet %s", c.sheetName, c.sheetID)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("server error: %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("client error: %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var vr valueRange
	if err := json.Unmarshal(body, &vr); err != nil {
		return nil, fmt.Errorf("failed to decode sheet values: %w", err)
	}

	rows := make([]models.RawRow, 0, len(vr.Values))
	for _, values := range vr.Values {
		row := make(models.RawRow, len(values))
		for i, v := range values {
			if v != nil {
				row[i] = fmt.Sprint(v)
			}
		}
		rows = append(rows, row)
	}

	c.logger.WithFields(logrus.Fields{
		"sheet":  c.sheetName,
		"range":  vr.Range,
		"rows":   len(rows),
		"status": resp.StatusCode,
	}).Info("Fetched sheet rows")
	return rows, nil
}
