package metrics

import (
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"

	"adsreport/internal/models"
)

type Aggregator struct {
	calc *Calculator
}

func NewAggregator(calc *Calculator) *Aggregator {
	return &Aggregator{calc: calc}
}

// Periods returns the last window periods ending at today, most recent first.
// Weeks start on Monday; the first one is the week containing today.
func Periods(granularity models.Granularity, window int, today time.Time) []models.Period {
	if window < 1 {
		return nil
	}
	day := dateOf(today)
	anchor := day
	step := 1
	if granularity == models.GranularityWeek {
		anchor = day.AddDate(0, 0, -((int(day.Weekday()) + 6) % 7))
		step = 7
	}

	periods := make([]models.Period, 0, window)
	for i := window - 1; i >= 0; i-- {
		start := anchor.AddDate(0, 0, -step*i)
		end := start.AddDate(0, 0, step-1)
		periods = append(periods, models.Period{Start: start, End: end, Range: rangeLabel(start, end)})
	}

	periods = lo.Reverse(periods)
	for i := range periods {
		periods[i].Label = periodLabel(granularity, i)
	}
	return periods
}

func periodLabel(granularity models.Granularity, i int) string {
	if granularity == models.GranularityWeek {
		if i == 0 {
			return "This Week"
		}
		return fmt.Sprintf("Week %d", i+1)
	}
	if i == 0 {
		return "Today"
	}
	return fmt.Sprintf("Day %d", i+1)
}

func rangeLabel(start, end time.Time) string {
	if start.Equal(end) {
		return start.Format("Jan 02")
	}
	return start.Format("Jan 02") + " - " + end.Format("Jan 02")
}

type bucketAcc struct {
	bucket  models.PeriodBucket
	ctr     meanAcc
	share   meanAcc
	costPer meanAcc
	micros  meanAcc
}

type meanAcc struct {
	sum float64
	n   int
}

func (m *meanAcc) add(v float64) {
	if v != 0 && finite(v) {
		m.sum += v
		m.n++
	}
}

func (m meanAcc) average() models.Average {
	if m.n == 0 {
		return models.Average{}
	}
	mean := m.sum / float64(m.n)
	if !finite(mean) {
		return models.Average{}
	}
	return models.Average{Value: round3(mean), Valid: true}
}

// Aggregate buckets records into periods and groups them by exact campaign name.
// Counts are summed; rates are averaged over their non-zero observations.
func (a *Aggregator) Aggregate(records []models.CampaignRecord, granularity models.Granularity, window int, today time.Time) *models.Aggregation {
	periods := Periods(granularity, window, today)
	accs := make(map[string]map[string]*bucketAcc)

	for _, r := range records {
		if r.Date.IsZero() {
			continue
		}
		day := dateOf(r.Date)
		period, ok := lo.Find(periods, func(p models.Period) bool {
			return !day.Before(p.Start) && !day.After(p.End)
		})
		if !ok {
			continue
		}

		byPeriod, ok := accs[r.Campaign]
		if !ok {
			byPeriod = make(map[string]*bucketAcc)
			accs[r.Campaign] = byPeriod
		}
		acc, ok := byPeriod[period.Label]
		if !ok {
			acc = &bucketAcc{bucket: models.PeriodBucket{Campaign: r.Campaign, Period: period.Label}}
			byPeriod[period.Label] = acc
		}

		acc.bucket.Rows++
		acc.bucket.Impressions += r.Impressions
		acc.bucket.Clicks += r.Clicks
		acc.bucket.Conversions += r.Conversions
		acc.bucket.PhoneCalls += r.PhoneCalls
		if r.CTRSupplied {
			acc.ctr.add(r.CTR)
		}
		acc.share.add(r.SearchImpressionShare)
		acc.costPer.add(r.CostPerConversion)
		acc.micros.add(r.CostMicros)
	}

	agg := &models.Aggregation{
		Granularity: granularity,
		Periods:     periods,
		Campaigns:   make([]string, 0, len(accs)),
		Buckets:     make(map[string]map[string]models.PeriodBucket, len(accs)),
	}
	for campaign, byPeriod := range accs {
		agg.Campaigns = append(agg.Campaigns, campaign)
		buckets := make(map[string]models.PeriodBucket, len(byPeriod))
		for label, acc := range byPeriod {
			b := acc.bucket
			b.Conversions = orZero(b.Conversions)
			b.PhoneCalls = orZero(b.PhoneCalls)
			b.CTR = acc.ctr.average()
			b.SearchImpressionShare = acc.share.average()
			b.CostPerConversion = acc.costPer.average()
			b.CostMicros = acc.micros.average()
			b.KPIs = a.calc.Derive(campaign, b.Impressions, b.Clicks, b.Conversions, b.CTR.Value, b.CTR.Valid)
			buckets[label] = b
		}
		agg.Buckets[campaign] = buckets
	}
	sort.Strings(agg.Campaigns)
	return agg
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
