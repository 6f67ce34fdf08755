package transformer

import (
	"errors"
	"regexp"
	"strings"

	"adsreport/internal/models"
)

// ErrHeaderNotFound means no header heuristic matched. Callers turn it into an empty result.
var ErrHeaderNotFound = errors.New("header row not found")

// NoHeaderRow is the HeaderRow of a location whose data starts on row 0.
const NoHeaderRow = -1

var datePattern = regexp.MustCompile(`(^|\D)\d{4}-\d{1,2}`)

// Headers used when data starts on the first row and there is no header row to read.
var (
	BasicHeaders = []string{
		"Date", "Campaign Name", "Impressions", "Clicks", "Ctr", "Conversions",
		"Average Target Cpa Micros", "Search Impression Share",
	}
	ExtendedHeaders = []string{
		"Date", "Campaign Name", "Impressions", "Clicks", "Ctr", "Conversions",
		"Average Target Cpa Micros", "Search Impression Share",
		"Cost Per Conversion", "Cost Micros", "Phone Calls",
	}
)

// FallbackHeaders returns the header list for a sheet variant ("basic" or "extended").
func FallbackHeaders(variant string) []string {
	if strings.EqualFold(variant, "basic") {
		return BasicHeaders
	}
	return ExtendedHeaders
}

// Location is where the header row and the data rows of a sheet are.
type Location struct {
	HeaderRow int
	DataStart int
	Rule      string
}

type headerRule struct {
	name   string
	match  func(first string) bool
	locate func(i int) Location
}

// Rules are tried in order over the whole sheet; the first rule that matches any row wins.
var headerRules = []headerRule{
	{
		name:  "date_pattern",
		match: func(first string) bool { return datePattern.MatchString(first) },
		locate: func(i int) Location {
			if i == 0 {
				return Location{HeaderRow: NoHeaderRow, DataStart: 0}
			}
			return Location{HeaderRow: i - 1, DataStart: i}
		},
	},
	{
		name:   "date_token",
		match:  hasDateToken,
		locate: func(i int) Location { return Location{HeaderRow: i, DataStart: i + 1} },
	},
}

func hasDateToken(first string) bool {
	for _, tok := range strings.Fields(first) {
		if strings.EqualFold(tok, "date") {
			return true
		}
	}
	return false
}

// Locate finds the header row and the first data row.
func Locate(rows []models.RawRow) (Location, error) {
	if len(rows) < 3 {
		return Location{}, ErrHeaderNotFound
	}
	for _, rule := range headerRules {
		for i, row := range rows {
			if rule.match(strings.TrimSpace(row.Cell(0))) {
				loc := rule.locate(i)
				loc.Rule = rule.name
				return loc, nil
			}
		}
	}
	return Location{}, ErrHeaderNotFound
}
