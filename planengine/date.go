package planengine

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Day-granularity calendar date
// =============================================================================

// Date is a calendar date at day granularity, always UTC midnight.
// Schedule generation never needs finer resolution.
type Date struct {
	t time.Time
}

// NewDate constructs a date from year/month/day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateFromTime truncates a time.Time to its UTC calendar date.
func DateFromTime(t time.Time) Date {
	u := t.UTC()
	return NewDate(u.Year(), u.Month(), u.Day())
}

// ParseDate parses an ISO 8601 date (2006-01-02).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: invalid date %q", ErrInvalidInput, s)
	}
	return Date{t: t}, nil
}

// Comparison
func (d Date) Before(other Date) bool { return d.t.Before(other.t) }
func (d Date) After(other Date) bool  { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool  { return d.t.Equal(other.t) }
func (d Date) IsZero() bool           { return d.t.IsZero() }

// Properties
func (d Date) Year() int         { return d.t.Year() }
func (d Date) Month() time.Month { return d.t.Month() }
func (d Date) Day() int          { return d.t.Day() }
func (d Date) Time() time.Time   { return d.t }

func (d Date) String() string { return d.t.Format("2006-01-02") }

// AddDays advances by n calendar days.
func (d Date) AddDays(n int) Date {
	return Date{t: d.t.AddDate(0, 0, n)}
}

// AddMonths advances by n calendar months, clamping to the last valid day
// of a short target month instead of overflowing (Jan 31 + 1 month is
// Feb 28/29, never Mar 2/3). time.AddDate overflows, so this is explicit.
func (d Date) AddMonths(n int) Date {
	months := d.Year()*12 + int(d.Month()) - 1 + n
	year, month := months/12, time.Month(months%12+1)
	day := d.Day()
	if last := daysInMonth(year, month); day > last {
		day = last
	}
	return NewDate(year, month, day)
}

// AddYears advances by n calendar years with the same clamping rule
// (Feb 29 + 1 year is Feb 28).
func (d Date) AddYears(n int) Date {
	return d.AddMonths(12 * n)
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MaxDate returns the later of two dates.
func MaxDate(a, b Date) Date {
	if b.After(a) {
		return b
	}
	return a
}
