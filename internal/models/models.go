package models

import (
	"encoding/json"
	"strconv"
	"time"
)

// NoData is rendered wherever a metric had no observations.
const NoData = "—"

// Canonical column names produced by the column mapper
const (
	FieldDate                  = "date"
	FieldCampaign              = "campaign"
	FieldImpressions           = "impressions"
	FieldClicks                = "clicks"
	FieldCTR                   = "ctr_raw"
	FieldConversions           = "conversions"
	FieldSearchImpressionShare = "search_impression_share"
	FieldCostPerConversion     = "cost_per_conversion"
	FieldCostMicros            = "cost_micros"
	FieldPhoneCalls            = "phone_calls"
)

// RawRow is one spreadsheet row exactly as the loader returned it.
type RawRow []string

// Cell returns the i-th cell or "" when the row is shorter.
func (r RawRow) Cell(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return r[i]
}

// Normalized internal structures
type CampaignRecord struct {
	Date                  time.Time `json:"date"`
	Campaign              string    `json:"campaign"`
	Impressions           int       `json:"impressions"`
	Clicks                int       `json:"clicks"`
	CTR                   float64   `json:"ctr"`
	Conversions           float64   `json:"conversions"`
	SearchImpressionShare float64   `json:"search_impression_share"`
	CostPerConversion     float64   `json:"cost_per_conversion"`
	CostMicros            float64   `json:"cost_micros"`
	PhoneCalls            float64   `json:"phone_calls"`

	// CTRSupplied is set when the sheet carried a parseable CTR cell for this row.
	CTRSupplied bool `json:"-"`

	KPIs DerivedKPIs `json:"kpis"`
}

// DerivedKPIs are computed, never read from the sheet. CPC is an estimate
// keyed on the campaign name because the source has no spend column.
type DerivedKPIs struct {
	CTR               float64 `json:"ctr"`
	CPC               float64 `json:"cpc"`
	Spend             float64 `json:"spend"`
	ConversionRate    float64 `json:"conversion_rate"`
	CostPerConversion float64 `json:"cost_per_conversion"`
}

type Summary struct {
	Campaigns         int     `json:"campaigns"`
	TotalSpend        float64 `json:"total_spend"`
	TotalClicks       int     `json:"total_clicks"`
	TotalImpressions  int     `json:"total_impressions"`
	TotalConversions  int     `json:"total_conversions"`
	AvgCTR            float64 `json:"avg_ctr"`
	AvgCPC            float64 `json:"avg_cpc"`
	AvgConversionRate float64 `json:"avg_conversion_rate"`
}

// ParseStats describes how a raw sheet was turned into records.
type ParseStats struct {
	HeaderFound     bool     `json:"header_found"`
	HeaderRow       int      `json:"header_row"`
	DataStart       int      `json:"data_start"`
	FallbackHeaders bool     `json:"fallback_headers"`
	RowsRead        int      `json:"rows_read"`
	RowsKept        int      `json:"rows_kept"`
	RowsSkipped     int      `json:"rows_skipped"`
	UnmappedHeaders []string `json:"unmapped_headers,omitempty"`
}

// Average is a mean over the non-zero observations of a bucket.
// Valid is false when there were none; it then renders as NoData.
type Average struct {
	Value float64
	Valid bool
}

func (a Average) String() string {
	if !a.Valid {
		return NoData
	}
	return strconv.FormatFloat(a.Value, 'f', 2, 64)
}

func (a Average) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return json.Marshal(NoData)
	}
	return json.Marshal(a.Value)
}

// Period aggregation
type Granularity string

const (
	GranularityDay  Granularity = "day"
	GranularityWeek Granularity = "week"
)

type Period struct {
	Label string    `json:"label"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Range string    `json:"range"`
}

type PeriodBucket struct {
	Campaign              string      `json:"campaign"`
	Period                string      `json:"period"`
	Rows                  int         `json:"rows"`
	Impressions           int         `json:"impressions"`
	Clicks                int         `json:"clicks"`
	Conversions           float64     `json:"conversions"`
	PhoneCalls            float64     `json:"phone_calls"`
	CTR                   Average     `json:"ctr"`
	SearchImpressionShare Average     `json:"search_impression_share"`
	CostPerConversion     Average     `json:"cost_per_conversion"`
	CostMicros            Average     `json:"cost_micros"`
	KPIs                  DerivedKPIs `json:"kpis"`
}

type Aggregation struct {
	Granularity Granularity `json:"granularity"`
	// Periods are most recent first.
	Periods   []Period                           `json:"periods"`
	Campaigns []string                           `json:"campaigns"`
	Buckets   map[string]map[string]PeriodBucket `json:"buckets"`
}

// Bucket returns the bucket for a campaign and period label, if any rows fell in it.
func (a *Aggregation) Bucket(campaign, period string) (PeriodBucket, bool) {
	if a == nil {
		return PeriodBucket{}, false
	}
	b, ok := a.Buckets[campaign][period]
	return b, ok
}

// Trends
type Indicator string

const (
	IndicatorUp   Indicator = "up"
	IndicatorDown Indicator = "down"
	IndicatorFlat Indicator = "flat"
	IndicatorNew  Indicator = "new"
)

type TrendResult struct {
	Current   float64   `json:"current"`
	Previous  float64   `json:"previous"`
	ChangePct float64   `json:"change_pct"`
	Indicator Indicator `json:"indicator"`
}

// Arrow is the marker shown next to a value in the HTML report.
func (t TrendResult) Arrow() string {
	switch t.Indicator {
	case IndicatorUp:
		return "⬆️"
	case IndicatorDown:
		return "⬇️"
	case IndicatorNew:
		return "🆕"
	default:
		return "➡️"
	}
}

// CampaignTrends maps campaign -> metric -> trend.
type CampaignTrends map[string]map[string]TrendResult

func (ct CampaignTrends) Get(campaign, metric string) (TrendResult, bool) {
	t, ok := ct[campaign][metric]
	return t, ok
}

type InsightHighlight struct {
	Metric   string       `json:"metric"`
	Campaign string       `json:"campaign"`
	Value    string       `json:"value"`
	Trend    *TrendResult `json:"trend,omitempty"`
}

// ReportSnapshot is the full output of one pipeline run.
type ReportSnapshot struct {
	RunID        string             `json:"run_id"`
	Date         string             `json:"date"`
	GeneratedAt  time.Time          `json:"generated_at"`
	Family       string             `json:"family"`
	Summary      Summary            `json:"summary"`
	Highlights   []InsightHighlight `json:"highlights"`
	Campaigns    []CampaignRecord   `json:"campaigns"`
	DailyTrends  CampaignTrends     `json:"daily_trends,omitempty"`
	Weekly       *Aggregation       `json:"weekly,omitempty"`
	WeeklyTrends CampaignTrends     `json:"weekly_trends,omitempty"`
	Stats        ParseStats         `json:"stats"`
	EmailSent    bool               `json:"email_sent"`
	EmailError   string             `json:"email_error,omitempty"`
	Warnings     []string           `json:"warnings,omitempty"`

	HTML     string `json:"-"`
	ChartPNG []byte `json:"-"`
}
