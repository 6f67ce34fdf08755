package transformer

import (
	"strings"

	"adsreport/internal/models"
)

type columnRule struct {
	field string
	match func(h string) bool
}

// Evaluated top to bottom against the lowercased header; the first match decides the field.
// "Cost Per Conversion" must hit cost_per_conversion before conversions sees it.
var columnRules = []columnRule{
	{models.FieldDate, func(h string) bool { return strings.Contains(h, "date") }},
	{models.FieldCampaign, func(h string) bool { return strings.Contains(h, "campaign") }},
	{models.FieldImpressions, func(h string) bool {
		return h == "impressions" || (strings.Contains(h, "impression") && !strings.Contains(h, "share"))
	}},
	{models.FieldClicks, func(h string) bool { return strings.Contains(h, "click") }},
	{models.FieldCTR, func(h string) bool { return strings.Contains(h, "ctr") }},
	{models.FieldCostPerConversion, func(h string) bool {
		return strings.Contains(h, "conversion") && (strings.Contains(h, "cost") || strings.Contains(h, "per"))
	}},
	{models.FieldConversions, func(h string) bool {
		return strings.Contains(h, "conversion") && !strings.Contains(h, "micros")
	}},
	{models.FieldSearchImpressionShare, func(h string) bool {
		return strings.Contains(h, "impression") && strings.Contains(h, "share")
	}},
	{models.FieldCostMicros, func(h string) bool { return strings.Contains(h, "cost") && strings.Contains(h, "micro") }},
	{models.FieldPhoneCalls, func(h string) bool { return strings.Contains(h, "phone") && strings.Contains(h, "call") }},
}

// ColumnMapping maps canonical field names to source column indexes.
type ColumnMapping struct {
	Fields   map[string]int
	Sources  map[string]string
	Unmapped []string
}

// MapField returns the canonical field a single header maps to, or "".
func MapField(header string) string {
	h := strings.ToLower(strings.TrimSpace(header))
	if h == "" {
		return ""
	}
	for _, rule := range columnRules {
		if rule.match(h) {
			return rule.field
		}
	}
	return ""
}

// MapColumns maps a header row onto the canonical schema. The first column
// claiming a field keeps it, except that a campaign column whose header also
// says "name" replaces an earlier bare campaign column (ID vs Name).
func MapColumns(headers []string) ColumnMapping {
	m := ColumnMapping{
		Fields:  make(map[string]int),
		Sources: make(map[string]string),
	}
	for i, header := range headers {
		field := MapField(header)
		if field == "" {
			if strings.TrimSpace(header) != "" {
				m.Unmapped = append(m.Unmapped, header)
			}
			continue
		}
		if _, taken := m.Fields[field]; taken {
			if field != models.FieldCampaign || !isCampaignName(header) || isCampaignName(m.Sources[field]) {
				m.Unmapped = append(m.Unmapped, header)
				continue
			}
			m.Unmapped = append(m.Unmapped, m.Sources[field])
		}
		m.Fields[field] = i
		m.Sources[field] = header
	}
	return m
}

func isCampaignName(header string) bool {
	return strings.Contains(strings.ToLower(header), "name")
}

// Has reports whether a field was found in the headers.
func (m ColumnMapping) Has(field string) bool {
	_, ok := m.Fields[field]
	return ok
}

// Value returns the raw cell for a field, "" when the field is unmapped.
func (m ColumnMapping) Value(row models.RawRow, field string) string {
	i, ok := m.Fields[field]
	if !ok {
		return ""
	}
	return row.Cell(i)
}
