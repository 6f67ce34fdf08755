package metrics

import (
	"math"

	"adsreport/internal/models"
)

// TrendComparator compares a current value against a previous one. Changes
// whose magnitude is at or below Threshold percent are reported flat.
type TrendComparator struct {
	Threshold float64
	calc      *Calculator
}

func NewTrendComparator(threshold float64, calc *Calculator) *TrendComparator {
	if threshold < 0 || !finite(threshold) {
		threshold = 0
	}
	return &TrendComparator{Threshold: threshold, calc: calc}
}

func (t *TrendComparator) Compare(current, previous float64) models.TrendResult {
	result := models.TrendResult{Current: current, Previous: previous}

	switch {
	case previous == 0 && current == 0:
		result.Indicator = models.IndicatorFlat
		return result
	case previous == 0:
		// no base to take a percentage of
		result.Indicator = models.IndicatorNew
		return result
	}

	change := (current - previous) / previous * 100
	if !finite(change) {
		change = 0
	}
	result.ChangePct = change

	switch {
	case math.Abs(change) <= t.Threshold:
		result.Indicator = models.IndicatorFlat
	case change > 0:
		result.Indicator = models.IndicatorUp
	default:
		result.Indicator = models.IndicatorDown
	}
	return result
}

// CompareDays compares today's records with the previous snapshot, campaign by
// campaign. Only campaigns present on both days get a trend.
func (t *TrendComparator) CompareDays(current, previous []models.CampaignRecord) models.CampaignTrends {
	trends := make(models.CampaignTrends)
	if len(previous) == 0 {
		return trends
	}

	prevByName := make(map[string]models.CampaignRecord)
	for _, r := range t.calc.CollapseByCampaign(previous) {
		prevByName[r.Campaign] = r
	}

	for _, cur := range t.calc.CollapseByCampaign(current) {
		prev, ok := prevByName[cur.Campaign]
		if !ok {
			continue
		}
		trends[cur.Campaign] = map[string]models.TrendResult{
			MetricClicks:            t.Compare(float64(cur.Clicks), float64(prev.Clicks)),
			MetricCPC:               t.Compare(cur.KPIs.CPC, prev.KPIs.CPC),
			MetricConversionRate:    t.Compare(cur.KPIs.ConversionRate, prev.KPIs.ConversionRate),
			MetricCostPerConversion: t.Compare(cur.KPIs.CostPerConversion, prev.KPIs.CostPerConversion),
		}
	}
	return trends
}

// CompareWeeks compares the most recent period of an aggregation with the one before it.
func (t *TrendComparator) CompareWeeks(agg *models.Aggregation) models.CampaignTrends {
	trends := make(models.CampaignTrends)
	if agg == nil || len(agg.Periods) < 2 {
		return trends
	}
	thisPeriod, lastPeriod := agg.Periods[0].Label, agg.Periods[1].Label

	for _, campaign := range agg.Campaigns {
		cur, _ := agg.Bucket(campaign, thisPeriod)
		prev, _ := agg.Bucket(campaign, lastPeriod)
		trends[campaign] = map[string]models.TrendResult{
			MetricClicks:      t.Compare(float64(cur.Clicks), float64(prev.Clicks)),
			MetricImpressions: t.Compare(float64(cur.Impressions), float64(prev.Impressions)),
			MetricCTR:         t.Compare(cur.KPIs.CTR, prev.KPIs.CTR),
		}
	}
	return trends
}
