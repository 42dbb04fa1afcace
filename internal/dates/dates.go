package dates

import (
	"strings"
	"time"
)

// Date is a calendar day parsed from the display strings the ingestion
// pipeline stores on circulars. The zero value is the invalid sentinel.
// There are no timezone semantics; comparisons are day-granular.
type Date struct {
	year  int
	month time.Month
	day   int
}

// The two shapes that appear in circular documents. Anything else is invalid.
var layouts = []string{
	"02-01-2006", // 29-12-2021
	"Jan 2, 2006", // Dec 29, 2021
}

// Parse normalizes a raw date string. Unrecognized input returns the invalid
// sentinel, never an error — callers downgrade the record to an unsortable
// position instead of failing the request.
func Parse(raw string) Date {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Date{}
	}
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		return Date{year: t.Year(), month: t.Month(), day: t.Day()}
	}
	return Date{}
}

// ParseKey parses an ISO-8601 day key ("2021-12-29"), the format of the
// date_sort field written by the ingestion pipeline. Unrecognized input
// returns the invalid sentinel.
func ParseKey(key string) Date {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(key))
	if err != nil {
		return Date{}
	}
	return Date{year: t.Year(), month: t.Month(), day: t.Day()}
}

// Valid reports whether the date parsed to a real calendar day.
func (d Date) Valid() bool {
	return d.year != 0
}

// Key returns the ISO-8601 day key ("2021-12-29") used for sorting and for
// server-side range filters on the date_sort field. Invalid dates return "".
func (d Date) Key() string {
	if !d.Valid() {
		return ""
	}
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
}

// Equal reports whether two dates are the same calendar day.
func (d Date) Equal(other Date) bool {
	return d == other
}

// Before reports whether d is an earlier calendar day than other.
// Invalid dates are before nothing and after everything valid; ordering
// between two invalid dates is the caller's (stable) encounter order.
func (d Date) Before(other Date) bool {
	if !d.Valid() || !other.Valid() {
		return false
	}
	if d.year != other.year {
		return d.year < other.year
	}
	if d.month != other.month {
		return d.month < other.month
	}
	return d.day < other.day
}

// Compare orders two dates for a descending-newest-first sort: it returns a
// negative value when a should come before b. Invalid dates sort after all
// valid ones; two invalid dates compare equal so a stable sort keeps their
// original order.
func Compare(a, b Date) int {
	switch {
	case a.Valid() && !b.Valid():
		return -1
	case !a.Valid() && b.Valid():
		return 1
	case !a.Valid() && !b.Valid():
		return 0
	case a.Before(b):
		return 1
	case b.Before(a):
		return -1
	default:
		return 0
	}
}
