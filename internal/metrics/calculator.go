package metrics

import (
	"math"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"adsreport/internal/models"
)

// Metric keys used in trend maps
const (
	MetricClicks            = "clicks"
	MetricImpressions       = "impressions"
	MetricCTR               = "ctr"
	MetricCPC               = "cpc"
	MetricConversionRate    = "conversion_rate"
	MetricCostPerConversion = "cost_per_conversion"
)

type cpcRule struct {
	tokens []string
	cpc    float64
}

// The sheet has no spend column, so CPC is estimated from the campaign type
// in the name. Replace with real cost data once the export carries it.
var cpcRules = []cpcRule{
	{[]string{"search"}, 0.25},
	{[]string{"performance max", "pmax"}, 0.18},
	{[]string{"demand gen", "display"}, 0.05},
}

const defaultCPC = 0.20

type Calculator struct{}

func NewCalculator() *Calculator {
	return &Calculator{}
}

// EstimateCPC returns the placeholder cost per click for a campaign name.
func EstimateCPC(campaign string) float64 {
	name := strings.ToLower(campaign)
	for _, rule := range cpcRules {
		for _, tok := range rule.tokens {
			if strings.Contains(name, tok) {
				return rule.cpc
			}
		}
	}
	return defaultCPC
}

// Compute returns a copy of the records with DerivedKPIs attached.
func (c *Calculator) Compute(records []models.CampaignRecord) []models.CampaignRecord {
	out := make([]models.CampaignRecord, len(records))
	for i, r := range records {
		r.KPIs = c.Derive(r.Campaign, r.Impressions, r.Clicks, r.Conversions, r.CTR, r.CTRSupplied)
		out[i] = r
	}
	return out
}

// Derive computes the KPIs for one record or bucket. A supplied CTR wins over clicks/impressions.
func (c *Calculator) Derive(campaign string, impressions, clicks int, conversions, ctr float64, ctrSupplied bool) models.DerivedKPIs {
	if !ctrSupplied || !finite(ctr) {
		ctr = c.safeDivide(float64(clicks)*100, float64(impressions))
	}
	cpc := EstimateCPC(campaign)
	spend := roundMoney(float64(clicks) * cpc)

	return models.DerivedKPIs{
		CTR:               ctr,
		CPC:               cpc,
		Spend:             spend,
		ConversionRate:    c.safeDivide(conversions*100, float64(clicks)),
		CostPerConversion: c.safeDivide(spend, conversions),
	}
}

// Summarize totals and averages a set of computed records. Empty input is all zeros.
func (c *Calculator) Summarize(records []models.CampaignRecord) models.Summary {
	if len(records) == 0 {
		return models.Summary{}
	}
	n := float64(len(records))
	return models.Summary{
		Campaigns:         len(lo.Uniq(lo.Map(records, func(r models.CampaignRecord, _ int) string { return r.Campaign }))),
		TotalSpend:        roundMoney(lo.SumBy(records, func(r models.CampaignRecord) float64 { return r.KPIs.Spend })),
		TotalClicks:       lo.SumBy(records, func(r models.CampaignRecord) int { return r.Clicks }),
		TotalImpressions:  lo.SumBy(records, func(r models.CampaignRecord) int { return r.Impressions }),
		TotalConversions:  roundCount(lo.SumBy(records, func(r models.CampaignRecord) float64 { return r.Conversions })),
		AvgCTR:            round3(lo.SumBy(records, func(r models.CampaignRecord) float64 { return r.KPIs.CTR }) / n),
		AvgCPC:            round3(lo.SumBy(records, func(r models.CampaignRecord) float64 { return r.KPIs.CPC }) / n),
		AvgConversionRate: round3(lo.SumBy(records, func(r models.CampaignRecord) float64 { return r.KPIs.ConversionRate }) / n),
	}
}

// CollapseByCampaign sums rows of the same campaign (e.g. several days) into one
// record per campaign, in order of first appearance, and recomputes KPIs.
func (c *Calculator) CollapseByCampaign(records []models.CampaignRecord) []models.CampaignRecord {
	type acc struct {
		record     models.CampaignRecord
		shareSum   float64
		shareCount int
	}
	var order []string
	byName := make(map[string]*acc)

	for _, r := range records {
		a, ok := byName[r.Campaign]
		if !ok {
			a = &acc{record: models.CampaignRecord{Campaign: r.Campaign, Date: r.Date}}
			byName[r.Campaign] = a
			order = append(order, r.Campaign)
		}
		if r.Date.After(a.record.Date) {
			a.record.Date = r.Date
		}
		a.record.Impressions += r.Impressions
		a.record.Clicks += r.Clicks
		a.record.Conversions += r.Conversions
		a.record.PhoneCalls += r.PhoneCalls
		a.record.CostMicros += r.CostMicros
		if r.SearchImpressionShare != 0 {
			a.shareSum += r.SearchImpressionShare
			a.shareCount++
		}
	}

	out := make([]models.CampaignRecord, 0, len(order))
	for _, name := range order {
		a := byName[name]
		if a.shareCount > 0 {
			a.record.SearchImpressionShare = orZero(a.shareSum / float64(a.shareCount))
		}
		a.record.Conversions = orZero(a.record.Conversions)
		a.record.PhoneCalls = orZero(a.record.PhoneCalls)
		a.record.CostMicros = orZero(a.record.CostMicros)
		out = append(out, a.record)
	}
	return c.Compute(out)
}

func (c *Calculator) safeDivide(numerator, denominator float64) float64 {
	if denominator == 0 {
		return 0
	}
	result := numerator / denominator
	if !finite(result) {
		return 0
	}
	return round3(result)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// orZero maps an overflowed sum to 0 so it stays JSON encodable.
func orZero(f float64) float64 {
	if !finite(f) {
		return 0
	}
	return f
}

func roundCount(f float64) int {
	if !finite(f) || math.Abs(f) > 1<<53 {
		return 0
	}
	return int(math.Round(f))
}

func round3(f float64) float64 {
	if !finite(f) {
		return 0
	}
	if math.Abs(f) >= 1e15 {
		return f
	}
	return math.Round(f*1000) / 1000
}

func roundMoney(f float64) float64 {
	if !finite(f) {
		return 0
	}
	return decimal.NewFromFloat(f).Round(2).InexactFloat64()
}
