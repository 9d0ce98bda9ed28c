package dataset

import (
	"strconv"
	"strings"
	"time"
)

// naValues are the cell contents read as missing, matching the defaults of
// common dataframe readers.
var naValues = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

// IsNA reports whether s is a missing-value marker.
func IsNA(s string) bool {
	_, ok := naValues[strings.TrimSpace(s)]
	return ok
}

// parseNumber parses a plain decimal or scientific number. Thousands
// separators and units are not accepted.
func parseNumber(s string) (float64, bool) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006/01/02",
	"2006/01/02 15:04:05",
	"01/02/2006",
	"1/2/2006",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"01-02-2006",
	"02-Jan-2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 January 2006",
	"Mon, 02 Jan 2006 15:04:05 MST",
	time.RFC1123Z,
}

// parseTimeMaybe tries the known layouts in order. Ambiguous day/month
// values are read month first.
func parseTimeMaybe(s string) (time.Time, bool) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return time.Time{}, false
	}
	for _, l := range timeLayouts {
		if t, err := time.Parse(l, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// formatTime renders a timestamp the way a date column is usually printed:
// date only when there is no time-of-day component.
func formatTime(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05")
}
