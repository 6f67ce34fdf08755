package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"adsreport/internal/models"
	"adsreport/internal/transformer"
)

const snapshotDateFormat = "2006-01-02"

var snapshotHeader = []string{
	"date",
	"campaign",
	"impressions",
	"clicks",
	"ctr",
	"conversions",
	"search_impression_share",
	"cost_per_conversion",
	"cost_micros",
	"phone_calls",
}

// SnapshotStore keeps one CSV of normalized records per calendar day. Files are
// never pruned.
type SnapshotStore struct {
	dir         string
	transformer *transformer.Transformer
	logger      *logrus.Logger
}

func NewSnapshotStore(dir string, t *transformer.Transformer, logger *logrus.Logger) *SnapshotStore {
	return &SnapshotStore{
		dir:         dir,
		transformer: t,
		logger:      logger,
	}
}

// Path is the snapshot file for a day, e.g. data/ads_2025-01-15.csv.
func (s *SnapshotStore) Path(day time.Time) string {
	return filepath.Join(s.dir, "ads_"+day.Format(snapshotDateFormat)+".csv")
}

// Save writes the records for a day, overwriting an earlier snapshot of the same day.
func (s *SnapshotStore) Save(day time.Time, records []models.CampaignRecord) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create snapshot dir: %w", err)
	}

	path := s.Path(day)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create snapshot: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(snapshotHeader); err != nil {
		return "", fmt.Errorf("failed to write snapshot header: %w", err)
	}
	for _, r := range records {
		if err := w.Write(snapshotRow(r)); err != nil {
			return "", fmt.Errorf("failed to write snapshot row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("failed to flush snapshot: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"path":    path,
		"records": len(records),
	}).Info("Saved daily snapshot")
	return path, nil
}

// Load reads the snapshot for a day. A missing file is not an error: it
// returns no records.
func (s *SnapshotStore) Load(day time.Time) ([]models.CampaignRecord, error) {
	path := s.Path(day)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.WithField("path", path).Debug("No snapshot for day")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	lines, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", path, err)
	}
	if len(lines) == 0 {
		return nil, nil
	}

	rows := make([]models.RawRow, 0, len(lines)-1)
	for _, line := range lines[1:] {
		rows = append(rows, models.RawRow(line))
	}
	records, stats := s.transformer.BuildRecords(lines[0], rows)
	s.logger.WithFields(logrus.Fields{
		"path":    path,
		"records": stats.RowsKept,
		"skipped": stats.RowsSkipped,
	}).Debug("Loaded snapshot")
	return records, nil
}

// LoadPrevious returns the snapshot of the day before today.
func (s *SnapshotStore) LoadPrevious(today time.Time) ([]models.CampaignRecord, error) {
	return s.Load(today.AddDate(0, 0, -1))
}

func snapshotRow(r models.CampaignRecord) []string {
	date := ""
	if !r.Date.IsZero() {
		date = r.Date.Format(snapshotDateFormat)
	}
	ctr := ""
	if r.CTRSupplied {
		ctr = formatFloat(r.CTR)
	}
	return []string{
		date,
		r.Campaign,
		strconv.Itoa(r.Impressions),
		strconv.Itoa(r.Clicks),
		ctr,
		formatFloat(r.Conversions),
		formatFloat(r.SearchImpressionShare),
		formatFloat(r.CostPerConversion),
		formatFloat(r.CostMicros),
		formatFloat(r.PhoneCalls),
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
