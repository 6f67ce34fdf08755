package export

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"adsreport/internal/models"
)

// ReportFile is the saved copy of the last email body under the reports dir.
const ReportFile = "daily_kpi_report_email.html"

// Recommendations close every report.
var Recommendations = []string{
	"🚀 Shift budget to high-performing campaigns like Demand Gen",
	"🔍 Improve ad copy and targeting on high-CPC campaigns",
	"🎯 Test new landing pages to improve CVR",
	"📉 Reduce cost-per-conversion with better bidding or creatives",
}

type reportView struct {
	Title           string
	Report          *models.ReportSnapshot
	ChartSrc        template.URL
	Recommendations []string
}

type Renderer struct {
	report      *template.Template
	placeholder *template.Template
	reportsDir  string
	logger      *logrus.Logger
}

func NewRenderer(reportsDir string, logger *logrus.Logger) *Renderer {
	funcs := template.FuncMap{
		"comma": func(n int) string { return humanize.Comma(int64(n)) },
		"money": func(f float64) string { return fmt.Sprintf("€%.2f", f) },
		"pct":   func(f float64) string { return fmt.Sprintf("%.2f%%", f) },
		"arrow": func(trends models.CampaignTrends, campaign, metric string) string {
			if t, ok := trends.Get(campaign, metric); ok {
				return t.Arrow()
			}
			return ""
		},
		"change": func(trends models.CampaignTrends, campaign, metric string) string {
			t, ok := trends.Get(campaign, metric)
			if !ok || t.Indicator == models.IndicatorNew {
				return ""
			}
			return fmt.Sprintf("%+.1f%%", t.ChangePct)
		},
		"bucket": func(agg *models.Aggregation, campaign, period string) *models.PeriodBucket {
			if b, ok := agg.Bucket(campaign, period); ok {
				return &b
			}
			return nil
		},
		"date": func(r models.CampaignRecord) string {
			if r.Date.IsZero() {
				return models.NoData
			}
			return r.Date.Format("2006-01-02")
		},
	}
	return &Renderer{
		report:      template.Must(template.New("report").Funcs(funcs).Parse(reportTemplate)),
		placeholder: template.Must(template.New("placeholder").Parse(placeholderTemplate)),
		reportsDir:  reportsDir,
		logger:      logger,
	}
}

// Title is used as the page heading and the email subject.
func Title(family, date string) string {
	return fmt.Sprintf("%s Daily KPI Report - %s", family, date)
}

// Render renders a report. chartSrc is the image source for the chart, e.g.
// "cid:spend_chart" in the email or "/static/spend_chart.png" on the dashboard;
// empty leaves the chart out.
func (r *Renderer) Render(report *models.ReportSnapshot, chartSrc string) (string, error) {
	var buf bytes.Buffer
	view := reportView{
		Title:           Title(report.Family, report.Date),
		Report:          report,
		ChartSrc:        template.URL(chartSrc),
		Recommendations: Recommendations,
	}
	if err := r.report.Execute(&buf, view); err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	return buf.String(), nil
}

// RenderPlaceholder is shown before the first run completes.
func (r *Renderer) RenderPlaceholder() string {
	var buf bytes.Buffer
	if err := r.placeholder.Execute(&buf, nil); err != nil {
		r.logger.WithError(err).Error("Failed to render placeholder")
		return "No report yet"
	}
	return buf.String()
}

// Save writes html to the reports dir and returns the file path.
func (r *Renderer) Save(html string) (string, error) {
	if err := os.MkdirAll(r.reportsDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create reports dir: %w", err)
	}
	path := filepath.Join(r.reportsDir, ReportFile)
	if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
		return "", fmt.Errorf("failed to save report: %w", err)
	}
	r.logger.WithField("path", path).Info("Saved report HTML")
	return path, nil
}

// PlainText is the text/plain alternative of the email.
func PlainText(report *models.ReportSnapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", Title(report.Family, report.Date))
	fmt.Fprintf(&b, "Campaigns: %d\n", report.Summary.Campaigns)
	fmt.Fprintf(&b, "Spend: €%.2f\n", report.Summary.TotalSpend)
	fmt.Fprintf(&b, "Clicks: %s\n", humanize.Comma(int64(report.Summary.TotalClicks)))
	fmt.Fprintf(&b, "Impressions: %s\n", humanize.Comma(int64(report.Summary.TotalImpressions)))
	fmt.Fprintf(&b, "Conversions: %d\n", report.Summary.TotalConversions)
	fmt.Fprintf(&b, "Avg CTR: %.2f%%\n\nHighlights\n", report.Summary.AvgCTR)
	for _, h := range report.Highlights {
		fmt.Fprintf(&b, "- %s: %s (%s)\n", h.Metric, h.Campaign, h.Value)
	}
	b.WriteString("\nRecommendations\n")
	for _, rec := range Recommendations {
		fmt.Fprintf(&b, "- %s\n", rec)
	}
	return b.String()
}

const placeholderTemplate = `<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Daily KPI Report</title></head>
<body style="font-family: Arial, sans-serif;">
<h2>Daily KPI Report</h2>
<p>No report has been generated yet. Call <code>/trigger?key=...</code> to run it.</p>
</body></html>
`

const reportTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: Arial, sans-serif; color: #222; }
table { border-collapse: collapse; margin-bottom: 20px; }
th, td { border: 1px solid #ddd; padding: 6px 10px; text-align: left; }
th { background: #f4f4f4; }
.muted { color: #888; }
</style>
</head>
<body>
<h2>{{.Title}}</h2>
<p class="muted">Generated {{.Report.GeneratedAt.Format "2006-01-02 15:04 MST"}} &middot; run {{.Report.RunID}}</p>
{{with .Report.Warnings}}<ul class="warnings">{{range .}}<li>⚠️ {{.}}</li>{{end}}</ul>{{end}}

<h3>📊 Daily Highlights</h3>
<table class="highlight-table">
<thead><tr><th>Metric</th><th>Campaign</th><th>Value</th></tr></thead>
<tbody>
{{range .Report.Highlights}}<tr><td>{{.Metric}}</td><td>{{.Campaign}}</td><td>{{.Value}}{{with .Trend}} {{.Arrow}}{{end}}</td></tr>
{{end}}</tbody>
</table>

<h3>Summary</h3>
{{with .Report.Summary}}<table>
<tr><th>Campaigns</th><td>{{.Campaigns}}</td></tr>
<tr><th>Total Spend</th><td>{{money .TotalSpend}}</td></tr>
<tr><th>Total Clicks</th><td>{{comma .TotalClicks}}</td></tr>
<tr><th>Total Impressions</th><td>{{comma .TotalImpressions}}</td></tr>
<tr><th>Total Conversions</th><td>{{comma .TotalConversions}}</td></tr>
<tr><th>Avg CTR</th><td>{{pct .AvgCTR}}</td></tr>
<tr><th>Avg CPC</th><td>{{money .AvgCPC}}</td></tr>
<tr><th>Avg Conversion Rate</th><td>{{pct .AvgConversionRate}}</td></tr>
</table>{{end}}

{{if .ChartSrc}}<img src="{{.ChartSrc}}" alt="Daily Spend per Campaign" style="max-width: 100%;">{{end}}

<h3>Campaigns</h3>
{{$trends := .Report.DailyTrends}}
{{if .Report.Campaigns}}<table>
<thead><tr><th>Date</th><th>Campaign</th><th>Impressions</th><th>Clicks</th><th>CTR</th><th>CPC (est.)</th><th>Spend</th><th>Conv. Rate</th><th>Cost / Conv.</th></tr></thead>
<tbody>
{{range .Report.Campaigns}}<tr>
<td>{{date .}}</td>
<td>{{.Campaign}}</td>
<td>{{comma .Impressions}}</td>
<td>{{comma .Clicks}} {{arrow $trends .Campaign "clicks"}}</td>
<td>{{pct .KPIs.CTR}}</td>
<td>{{money .KPIs.CPC}} {{arrow $trends .Campaign "cpc"}}</td>
<td>{{money .KPIs.Spend}}</td>
<td>{{pct .KPIs.ConversionRate}} {{arrow $trends .Campaign "conversion_rate"}}</td>
<td>{{money .KPIs.CostPerConversion}} {{arrow $trends .Campaign "cost_per_conversion"}}</td>
</tr>
{{end}}</tbody>
</table>{{else}}<p class="muted">No campaign rows found in the sheet.</p>{{end}}

{{with .Report.Weekly}}{{$agg := .}}{{$weekly := $.Report.WeeklyTrends}}
<h3>Weekly Performance</h3>
<table>
<thead><tr><th>Campaign</th>{{range .Periods}}<th>{{.Label}}<br><span class="muted">{{.Range}}</span></th>{{end}}</tr></thead>
<tbody>
{{range $campaign := .Campaigns}}<tr><td>{{$campaign}}</td>
{{range $i, $p := $agg.Periods}}<td>{{with bucket $agg $campaign $p.Label}}{{comma .Clicks}} clicks / {{comma .Impressions}} impr. / {{pct .KPIs.CTR}} CTR<br><span class="muted">IS {{.SearchImpressionShare}} &middot; CPA {{.CostPerConversion}}</span>{{else}}{{"—"}}{{end}}{{if eq $i 0}} {{arrow $weekly $campaign "clicks"}} {{change $weekly $campaign "clicks"}}{{end}}</td>
{{end}}</tr>
{{end}}</tbody>
</table>
{{end}}

<h3>✅ Recommendations</h3>
<ul class="recommendations">
{{range .Recommendations}}<li>{{.}}</li>
{{end}}</ul>
</body>
</html>
`
