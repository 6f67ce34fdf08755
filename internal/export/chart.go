package export

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/samber/lo"
	"github.com/wcharczuk/go-chart/v2"

	"adsreport/internal/models"
)

const (
	// ChartFile is the chart's name under the static dir.
	ChartFile = "spend_chart.png"
	// ChartCID is the Content-ID of the chart in the email.
	ChartCID = "spend_chart"

	maxLabelLen = 22
)

var ErrEmptyChart = errors.New("no spend to chart")

// RenderSpendChart draws spend per campaign as a PNG bar chart. Records should
// already be one per campaign. ErrEmptyChart means there was nothing to draw.
func RenderSpendChart(records []models.CampaignRecord) ([]byte, error) {
	bars := lo.FilterMap(records, func(r models.CampaignRecord, _ int) (chart.Value, bool) {
		return chart.Value{Label: shortLabel(r.Campaign), Value: r.KPIs.Spend}, r.KPIs.Spend > 0
	})
	if len(bars) == 0 {
		return nil, ErrEmptyChart
	}
	top := lo.MaxBy(bars, func(a, b chart.Value) bool { return a.Value > b.Value }).Value

	graph := chart.BarChart{
		Title:      "Daily Spend per Campaign",
		Background: chart.Style{Padding: chart.Box{Top: 40}},
		Width:      lo.Max([]int{800, len(bars)*80 + 160}),
		Height:     500,
		BarWidth:   50,
		BarSpacing: 30,
		YAxis: chart.YAxis{
			Name: "Spend (€)",
			Range: &chart.ContinuousRange{
				Min: 0,
				Max: top * 1.1,
			},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("€%.2f", f)
				}
				return ""
			},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	return buf.Bytes(), nil
}

// SaveChart writes the PNG under dir and returns its path.
func SaveChart(dir string, png []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create static dir: %w", err)
	}
	path := filepath.Join(dir, ChartFile)
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", fmt.Errorf("failed to write chart: %w", err)
	}
	return path, nil
}

func shortLabel(s string) string {
	r := []rune(s)
	if len(r) <= maxLabelLen {
		return s
	}
	return string(r[:maxLabelLen-1]) + "…"
}
