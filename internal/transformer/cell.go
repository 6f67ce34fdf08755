package transformer

import (
	"math"
	"strconv"
	"strings"
)

// placeholder tokens the exports use for "no data"
var emptyTokens = map[string]bool{
	"":   true,
	"—":  true,
	"–":  true,
	"--": true,
}

var stripReplacer = strings.NewReplacer(
	"€", "",
	"$", "",
	"£", "",
	",", "",
	"%", "",
	" ", "",
	" ", "",
)

// Clean turns a raw cell into a number. Anything unparseable is 0.
func Clean(value string) float64 {
	v, _ := ParseNumber(value)
	return v
}

// ParseNumber is Clean that also reports whether a number was actually found.
func ParseNumber(value string) (float64, bool) {
	v := strings.TrimSpace(value)
	if emptyTokens[v] {
		return 0, false
	}

	// "5%10%" is two cells glued together by the upstream export
	if strings.Count(v, "%") > 1 {
		for _, segment := range strings.Split(v, "%") {
			if n, ok := parseStripped(segment); ok {
				return n, true
			}
		}
		return 0, false
	}

	return parseStripped(v)
}

func parseStripped(s string) (float64, bool) {
	s = stripReplacer.Replace(strings.TrimSpace(s))
	if emptyTokens[s] {
		return 0, false
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// Counts above this are not exact in a float64 and are treated as unparseable.
const maxCount = 1 << 53

// CleanInt is Clean rounded to a non-negative integer count.
func CleanInt(value string) int {
	n := Clean(value)
	if n < 0 || n > maxCount {
		return 0
	}
	return int(n + 0.5)
}
