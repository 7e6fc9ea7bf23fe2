package leave

import (
	"time"
)

// =============================================================================
// DATE - Day-granularity calendar date
// =============================================================================

// Date is a calendar date with day granularity, normalized to UTC midnight.
// All leave arithmetic happens on whole calendar days; sub-day resolution is
// expressed through Session markers, never through the Date itself.
type Date struct {
	t time.Time
}

// NewDate constructs a Date for the given year/month/day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an arbitrary time to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

// ParseDate parses an ISO date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// Comparison
func (d Date) Before(other Date) bool        { return d.t.Before(other.t) }
func (d Date) After(other Date) bool         { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool         { return d.t.Equal(other.t) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Arithmetic
func (d Date) AddDays(n int) Date { return Date{t: d.t.AddDate(0, 0, n)} }

// Properties
func (d Date) Year() int             { return d.t.Year() }
func (d Date) Month() time.Month     { return d.t.Month() }
func (d Date) Day() int              { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }
func (d Date) IsZero() bool          { return d.t.IsZero() }
func (d Date) Time() time.Time       { return d.t }

// IsWeekend reports whether the date falls on Saturday or Sunday.
func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func (d Date) String() string { return d.t.Format("2006-01-02") }

// DaysBetween returns the number of whole days from one date to the other.
// Negative when to precedes from.
func DaysBetween(from, to Date) int {
	return int(to.t.Sub(from.t).Hours() / 24)
}
