package model

import (
	"fmt"
	"time"
)

// DateLayout is the ISO layout used for on-call day keys.
const DateLayout = "2006-01-02"

// MonthLayout is the layout of month keys such as "2025-10".
const MonthLayout = "2006-01"

// Month identifies a calendar month. The zero value is invalid.
type Month struct {
	Year  int
	Month time.Month
}

// NewMonth builds a Month and validates it.
func NewMonth(year int, month time.Month) (Month, error) {
	m := Month{Year: year, Month: month}
	if !m.Valid() {
		return Month{}, fmt.Errorf("%w: %04d-%02d", ErrInvalidMonth, year, int(month))
	}
	return m, nil
}

// ParseMonth parses a zero-padded "YYYY-MM" string.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse(MonthLayout, s)
	if err != nil || len(s) != len(MonthLayout) {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// MustMonth is ParseMonth for literals known to be valid.
func MustMonth(s string) Month {
	m, err := ParseMonth(s)
	if err != nil {
		panic(err)
	}
	return m
}

// Valid reports whether the month is in 1..12 and the year is positive.
func (m Month) Valid() bool {
	return m.Year > 0 && m.Year <= 9999 && m.Month >= time.January && m.Month <= time.December
}

// String returns the "YYYY-MM" key.
func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// First returns midnight UTC on the first day of the month.
func (m Month) First() time.Time {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC)
}

// Days returns the number of days in the month.
func (m Month) Days() int {
	return m.First().AddDate(0, 1, -1).Day()
}

func (m Month) index() int { return m.Year*12 + int(m.Month) - 1 }

// Before reports whether m is strictly earlier than o.
func (m Month) Before(o Month) bool { return m.index() < o.index() }

// After reports whether m is strictly later than o.
func (m Month) After(o Month) bool { return m.index() > o.index() }

// Prev returns the previous calendar month.
func (m Month) Prev() Month {
	t := m.First().AddDate(0, -1, 0)
	return Month{Year: t.Year(), Month: t.Month()}
}

// Next returns the following calendar month.
func (m Month) Next() Month {
	t := m.First().AddDate(0, 1, 0)
	return Month{Year: t.Year(), Month: t.Month()}
}

// Contains reports whether the given date falls inside the month.
func (m Month) Contains(d time.Time) bool {
	return d.Year() == m.Year && d.Month() == m.Month
}

// MarshalText implements encoding.TextMarshaler.
func (m Month) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %04d-%02d", ErrInvalidMonth, m.Year, int(m.Month))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Month) UnmarshalText(b []byte) error {
	v, err := ParseMonth(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ParseDate parses an ISO "YYYY-MM-DD" date in UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil || len(s) != len(DateLayout) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// FormatDate renders t as an ISO date key.
func FormatDate(t time.Time) string { return t.Format(DateLayout) }

// MonthOf returns the month a date belongs to.
func MonthOf(t time.Time) Month { return Month{Year: t.Year(), Month: t.Month()} }
