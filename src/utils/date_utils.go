package utils

import (
	"fmt"
	"strings"
	"time"
)

// DateFormat is the canonical wire/storage format for trade dates.
const DateFormat = "2006-01-02"

// Date layouts accepted from broker exports, tried in order.
var acceptedDateLayouts = []string{
	"2006-01-02",
	"02-01-2006",
	"02/01/2006",
	"2006-01-02 15:04:05",
	"20060102",
}

// ParseTradeDate parses a broker-supplied date string, trying the accepted
// layouts in order. The time component, if any, is discarded: matching works
// on calendar dates only.
func ParseTradeDate(dateStr string) (time.Time, error) {
	s := strings.TrimSpace(dateStr)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range acceptedDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOnly(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

// DateOnly truncates a time to midnight UTC of its calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether two times fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	return DateOnly(a).Equal(DateOnly(b))
}

// WithinDaysAfter reports whether candidate falls strictly after base and no
// more than n calendar days later.
func WithinDaysAfter(base, candidate time.Time, n int) bool {
	base, candidate = DateOnly(base), DateOnly(candidate)
	return candidate.After(base) && !candidate.After(base.AddDate(0, 0, n))
}
