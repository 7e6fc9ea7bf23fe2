/*
calendar.go - Working-day oracle

PURPOSE:
  Answers exactly one question: is a given date a non-working day?
  A date is non-working when it falls on a weekend (Saturday/Sunday)
  or matches a configured holiday.

  The oracle is a pure lookup. It never fails: invalid dates are
  rejected at the caller's parsing boundary, not here.

SEE ALSO:
  - calculator.go: Sole consumer of the oracle inside the core
*/
package leave

// =============================================================================
// HOLIDAY
// =============================================================================

// Holiday is a configured non-working date. Read-only input to the Calendar.
type Holiday struct {
	Date Date
	Name string
}

// HolidaySource supplies the holiday set for a date range.
// Implementations live outside the core (database table, config file, API).
type HolidaySource interface {
	ListHolidays(from, to Date) ([]Holiday, error)
}

// =============================================================================
// CALENDAR - Weekend + holiday oracle
// =============================================================================

// Calendar answers "is this a non-working day" over a fixed holiday set.
type Calendar struct {
	holidays map[Date]Holiday
}

// NewCalendar builds a Calendar from a holiday list.
func NewCalendar(holidays []Holiday) *Calendar {
	c := &Calendar{holidays: make(map[Date]Holiday, len(holidays))}
	for _, h := range holidays {
		c.holidays[h.Date] = h
	}
	return c
}

// IsNonWorkingDay reports whether the date is a weekend or a holiday.
func (c *Calendar) IsNonWorkingDay(d Date) bool {
	if d.IsWeekend() {
		return true
	}
	_, ok := c.holidays[d]
	return ok
}

// IsHoliday reports whether the date matches a configured holiday.
func (c *Calendar) IsHoliday(d Date) bool {
	_, ok := c.holidays[d]
	return ok
}

// Holidays returns the configured holidays within [from, to], unordered.
func (c *Calendar) Holidays(from, to Date) []Holiday {
	var out []Holiday
	for d, h := range c.holidays {
		if from.BeforeOrEqual(d) && d.BeforeOrEqual(to) {
			out = append(out, h)
		}
	}
	return out
}
