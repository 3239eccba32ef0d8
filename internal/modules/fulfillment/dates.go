package fulfillment

import (
	"regexp"
	"strings"
	"time"
)

// Month-first numeric forms are tried before day-first written forms, so
// 05/06/2026 is May 6.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"1-2-2006",
	"01.02.2006",
	"01/02/06",
	"1/2/06",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"2006-01-02T15:04:05Z07:00",
}

var ordinalSuffix = regexp.MustCompile(`(?i)\b(\d{1,2})(st|nd|rd|th)\b`)

// ParseDate normalizes a human date to YYYY-MM-DD.
func ParseDate(raw string) (string, bool) {
	s := strings.Join(strings.Fields(raw), " ")
	s = ordinalSuffix.ReplaceAllString(s, "$1")
	s = strings.TrimSuffix(s, ".")
	s = strings.ReplaceAll(s, "Sept ", "Sep ")
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if t.Year() < 1800 || t.Year() > 2999 {
			return "", false
		}
		return t.Format("2006-01-02"), true
	}
	return "", false
}
