package lending

import (
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar day. Its underlying time is always midnight UTC.
//
// It must be built with ToDate or ParseDate, so that two dates for the same day compare equal.
type Date struct {
	t time.Time
}

// ToDate converts t to the calendar day it falls on in its own location.
func ToDate(t time.Time) Date {
	y, m, d := t.Date()
	return Date{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// NewDate builds a Date from year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO-8601 calendar date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, err
	}

	return Date{t: t}, nil
}

// AddDays returns the date n days later (or earlier for negative n).
func (d Date) AddDays(n int) Date {
	return Date{t: d.t.AddDate(0, 0, n)}
}

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool {
	return d.t.After(other.t)
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	return d.t.Before(other.t)
}

// Equal reports whether d and other are the same day.
func (d Date) Equal(other Date) bool {
	return d.t.Equal(other.t)
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d.t.IsZero()
}

// DaysUntil returns the number of days from d to other (negative if other is earlier).
func (d Date) DaysUntil(other Date) int {
	return int(other.t.Sub(d.t).Hours() / 24)
}

// Time returns the date as midnight UTC.
func (d Date) Time() time.Time {
	return d.t
}

// String returns the date in YYYY-MM-DD format.
func (d Date) String() string {
	return d.t.Format(dateLayout)
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}

	*d = parsed

	return nil
}
