package ynab

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the ISO date format YNAB uses for dates and months
const DateLayout = "2006-01-02"

// Date is a calendar date encoded as "YYYY-MM-DD"
type Date struct {
	time.Time
}

// NewDate truncates t to its calendar date in UTC
func NewDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a "YYYY-MM-DD" string
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("unable to parse date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

// DaysAgo returns the date n days before now
func DaysAgo(now time.Time, n int) Date {
	return NewDate(now.AddDate(0, 0, -n))
}

// UnmarshalJSON accepts dates, RFC3339 timestamps and null
func (d *Date) UnmarshalJSON(data []byte) error {
	str := strings.Trim(string(data), `"`)

	if str == "" || str == "null" {
		d.Time = time.Time{}
		return nil
	}

	for _, layout := range []string{DateLayout, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, str); err == nil {
			d.Time = t
			return nil
		}
	}

	return fmt.Errorf("unable to parse date: %s", str)
}

// MarshalJSON writes the date only, or null for the zero value
func (d Date) MarshalJSON() ([]byte, error) {
	if d.Time.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Time.Format(DateLayout) + `"`), nil
}

// String returns the date as a string
func (d Date) String() string {
	if d.Time.IsZero() {
		return ""
	}
	return d.Time.Format(DateLayout)
}
