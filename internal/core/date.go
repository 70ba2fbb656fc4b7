package core

import (
	"time"
)

const isoDateLayout = "2006-01-02"

// Date is a calendar date with no time-of-day and no timezone. Internally it
// is midnight UTC so that round-trips through storage and JSON never drift.
type Date struct {
	time.Time
}

// NewDate creates a Date from year, month and day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses an ISO date string (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(isoDateLayout, s)
	if err != nil {
		return Date{}, NewValidationError("date", "must be a valid date in YYYY-MM-DD format")
	}
	return Date{Time: t.UTC()}, nil
}

// String returns the ISO representation (YYYY-MM-DD).
func (d Date) String() string {
	return d.Format(isoDateLayout)
}

// MarshalJSON encodes the date as an ISO date string.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON decodes an ISO date string.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return NewValidationError("date", "must be a quoted YYYY-MM-DD string")
	}
	parsed, err := ParseDate(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Validate rejects the zero date.
func (d Date) Validate() error {
	if d.IsZero() {
		return NewValidationError("date", "is required")
	}
	return nil
}

// NextMonth returns the first day of the month after d.
func (d Date) NextMonth() Date {
	y, m := d.Year(), int(d.Month())
	if m == 12 {
		return NewDate(y+1, 1, 1)
	}
	return NewDate(y, m+1, 1)
}

// MonthKey returns the YYYY-MM bucket the date falls in.
func (d Date) MonthKey() string {
	return d.Format("2006-01")
}
