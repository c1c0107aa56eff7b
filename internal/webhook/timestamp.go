package webhook

import (
	"errors"
	"strings"
	"time"
)

// DisplayLayout renders e.g. "4 June 2025 - 3:42 PM UTC".
const DisplayLayout = "2 January 2006 - 3:04 PM UTC"

// Layouts tried in order. Fractional seconds are accepted by time.Parse after
// the seconds field even though the layouts do not spell them out. Layouts
// without a zone are read as UTC.
var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05Z07",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02",

	// Basic format.
	"20060102T150405Z0700",
	"20060102T150405Z07",
	"20060102T150405",
	"20060102T1504Z0700",
	"20060102T1504",
	"20060102",
}

var errBadTimestamp = errors.New("unrecognized ISO-8601 timestamp")

// ParseISO8601 parses the date-time forms source-control hosts and the
// simulator emit and returns the instant in UTC.
func ParseISO8601(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errBadTimestamp
	}
	// The separator and UTC designator may be lower case.
	value = strings.ToUpper(value)
	// "2025-06-04 15:42:10" is accepted as well as the T separator.
	if len(value) > 10 && value[10] == ' ' {
		value = value[:10] + "T" + value[11:]
	}

	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errBadTimestamp
}

// ResolveTimestamp returns the instant to sort by and its display string.
// A missing or unparseable candidate falls back to now.
func ResolveTimestamp(candidate string, ok bool, now time.Time) (time.Time, string) {
	at := now.UTC()
	if ok {
		if parsed, err := ParseISO8601(candidate); err == nil {
			at = parsed
		}
	}
	return at, FormatDisplay(at)
}

// FormatDisplay formats t in UTC using DisplayLayout.
func FormatDisplay(t time.Time) string {
	return t.UTC().Format(DisplayLayout)
}
