package utils

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	yearsPattern  = regexp.MustCompile(`(\d+)\s*(?:years?|yrs?)`)
	monthsPattern = regexp.MustCompile(`(\d+)\s*(?:months?|mos?)`)
)

// ParseTenure extracts whole years and remaining months from free-form tenure
// strings, e.g. "3 years", "2 yrs 6 months", "18 months". Months beyond a
// multiple of twelve roll into years. A bare number is treated as years.
func ParseTenure(s string) (years int, months int) {
	lower := strings.ToLower(strings.TrimSpace(s))
	if lower == "" {
		return 0, 0
	}

	if m := yearsPattern.FindStringSubmatch(lower); m != nil {
		years, _ = strconv.Atoi(m[1])
	}
	if m := monthsPattern.FindStringSubmatch(lower); m != nil {
		months, _ = strconv.Atoi(m[1])
	}

	// No unit at all: "3" means three years.
	if years == 0 && months == 0 {
		if n, err := strconv.Atoi(lower); err == nil && n >= 0 {
			years = n
		}
	}

	years += months / 12
	months = months % 12
	return years, months
}
