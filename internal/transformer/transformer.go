package transformer

import (
	"strings"
	"time"

	"adsreport/internal/models"
)

type Transformer struct {
	fallbackHeaders []string
	dateFormats     []string
}

// New builds a transformer for a sheet variant; see FallbackHeaders.
func New(variant string) *Transformer {
	return &Transformer{
		fallbackHeaders: FallbackHeaders(variant),
		dateFormats: []string{
			"2006-01-02",
			"2006/01/02",
			"01/02/2006",
			"Jan 2, 2006",
			"2 Jan 2006",
		},
	}
}

// Normalize locates the header row of a raw sheet and builds campaign records
// from the rows after it. ErrHeaderNotFound comes back with no records.
func (t *Transformer) Normalize(rows []models.RawRow) ([]models.CampaignRecord, models.ParseStats, error) {
	loc, err := Locate(rows)
	if err != nil {
		return []models.CampaignRecord{}, models.ParseStats{RowsRead: len(rows), HeaderRow: NoHeaderRow}, err
	}

	headers := t.fallbackHeaders
	if loc.HeaderRow != NoHeaderRow {
		headers = rows[loc.HeaderRow]
	}

	records, stats := t.BuildRecords(headers, rows[loc.DataStart:])
	stats.HeaderFound = true
	stats.HeaderRow = loc.HeaderRow
	stats.DataStart = loc.DataStart
	stats.FallbackHeaders = loc.HeaderRow == NoHeaderRow
	return records, stats, nil
}

// BuildRecords maps data rows through the given headers. Rows without a
// campaign name are dropped; every numeric field that fails to parse is 0.
func (t *Transformer) BuildRecords(headers []string, rows []models.RawRow) ([]models.CampaignRecord, models.ParseStats) {
	mapping := MapColumns(headers)
	stats := models.ParseStats{
		RowsRead:        len(rows),
		UnmappedHeaders: mapping.Unmapped,
	}

	records := make([]models.CampaignRecord, 0, len(rows))
	if !mapping.Has(models.FieldCampaign) {
		stats.RowsSkipped = len(rows)
		return records, stats
	}
	for _, row := range rows {
		record, ok := t.buildRecord(mapping, row)
		if !ok {
			stats.RowsSkipped++
			continue
		}
		records = append(records, record)
	}
	stats.RowsKept = len(records)
	return records, stats
}

func (t *Transformer) buildRecord(m ColumnMapping, row models.RawRow) (models.CampaignRecord, bool) {
	campaign := strings.TrimSpace(m.Value(row, models.FieldCampaign))
	if emptyTokens[campaign] || strings.EqualFold(campaign, strings.TrimSpace(m.Sources[models.FieldCampaign])) {
		return models.CampaignRecord{}, false
	}

	record := models.CampaignRecord{
		Date:                  t.ParseDate(m.Value(row, models.FieldDate)),
		Campaign:              campaign,
		Impressions:           CleanInt(m.Value(row, models.FieldImpressions)),
		Clicks:                CleanInt(m.Value(row, models.FieldClicks)),
		Conversions:           nonNegative(Clean(m.Value(row, models.FieldConversions))),
		SearchImpressionShare: Clean(m.Value(row, models.FieldSearchImpressionShare)),
		CostPerConversion:     Clean(m.Value(row, models.FieldCostPerConversion)),
		CostMicros:            Clean(m.Value(row, models.FieldCostMicros)),
		PhoneCalls:            nonNegative(Clean(m.Value(row, models.FieldPhoneCalls))),
	}
	if ctr, ok := ParseNumber(m.Value(row, models.FieldCTR)); ok {
		record.CTR = ctr
		record.CTRSupplied = true
	}
	return record, true
}

// ParseDate accepts the date layouts seen in exports; datetimes are cut to their date part.
// Unparseable input gives the zero time.
func (t *Transformer) ParseDate(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	candidates := []string{value}
	if len(value) > 10 {
		candidates = append(candidates, value[:10])
	}
	for _, candidate := range candidates {
		for _, format := range t.dateFormats {
			if d, err := time.Parse(format, candidate); err == nil {
				return d
			}
		}
	}
	return time.Time{}
}

func nonNegative(f float64) float64 {
	if f < 0 {
		return 0
	}
	return f
}
