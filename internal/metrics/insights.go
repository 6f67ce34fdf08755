package metrics

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"

	"adsreport/internal/models"
)

type insightRule struct {
	label  string
	metric string
	value  func(models.CampaignRecord) float64
	format func(float64) string
}

func formatCount(v float64) string { return humanize.Comma(int64(v)) }
func formatPct(v float64) string   { return fmt.Sprintf("%.2f%%", v) }

var insightRules = []insightRule{
	{"Most Clicks", MetricClicks, func(r models.CampaignRecord) float64 { return float64(r.Clicks) }, formatCount},
	{"Most Impressions", MetricImpressions, func(r models.CampaignRecord) float64 { return float64(r.Impressions) }, formatCount},
	{"Best CTR", MetricCTR, func(r models.CampaignRecord) float64 { return r.KPIs.CTR }, formatPct},
	{"Best Conversion Rate", MetricConversionRate, func(r models.CampaignRecord) float64 { return r.KPIs.ConversionRate }, formatPct},
	{"Best Impression Share", "search_impression_share", func(r models.CampaignRecord) float64 { return r.SearchImpressionShare }, formatPct},
}

// NoDataHighlight is returned alone when there is nothing to highlight from.
var NoDataHighlight = models.InsightHighlight{
	Metric:   "No data",
	Campaign: models.NoData,
	Value:    "No data available for this period",
}

// SelectInsights picks the top campaign per highlight metric. A metric whose total
// is zero across all records is left out; empty input gives NoDataHighlight alone.
func SelectInsights(records []models.CampaignRecord, trends models.CampaignTrends) []models.InsightHighlight {
	if len(records) == 0 {
		return []models.InsightHighlight{NoDataHighlight}
	}

	highlights := make([]models.InsightHighlight, 0, len(insightRules))
	for _, rule := range insightRules {
		if lo.SumBy(records, rule.value) == 0 {
			continue
		}
		best := lo.MaxBy(records, func(a, b models.CampaignRecord) bool {
			return rule.value(a) > rule.value(b)
		})
		h := models.InsightHighlight{
			Metric:   rule.label,
			Campaign: best.Campaign,
			Value:    rule.format(rule.value(best)),
		}
		if t, ok := trends.Get(best.Campaign, rule.metric); ok {
			h.Trend = &t
		}
		highlights = append(highlights, h)
	}
	return highlights
}
