package normalize

import (
	"strings"
	"time"

	"github.com/attendance-ledger-api/internal/models"
)

// Accepted business date layouts. Day and month may be unpadded.
var dateLayouts = []string{
	"2006-1-2",
	"2006/1/2",
	"2/1/2006",
	"2-1-2006",
}

// Accepted write timestamp layouts. Fractional seconds are accepted after
// the seconds field even when a layout does not spell them out.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006/01/02 15:04:05",
	"02/01/2006 15:04:05",
	"2006-01-02 15:04",
}

// ParseDate parses a business date in any accepted layout, including a
// datetime whose date part comes first. It returns the canonical
// YYYY-MM-DD form.
func ParseDate(raw string) (string, bool) {
	t, ok := ParseDateTime(raw)
	if !ok {
		return "", false
	}
	return t.Format(models.DateLayout), true
}

// ParseDateTime is ParseDate returning the parsed time at midnight UTC
func ParseDateTime(raw string) (time.Time, bool) {
	s := CleanCell(raw)
	if s == "" {
		return time.Time{}, false
	}
	if i := strings.IndexAny(s, " T"); i > 0 {
		s = s[:i]
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseTimestamp parses a write timestamp in loc. Values carrying their own
// offset keep it.
func ParseTimestamp(raw string, loc *time.Location) (time.Time, bool) {
	s := CleanCell(raw)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
