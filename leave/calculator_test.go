package leave_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-ledger/leave"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// March 2025: Mon 10, Tue 11, Wed 12, Thu 13, Fri 14, Sat 15, Sun 16.
func date(day int) leave.Date {
	return leave.NewDate(2025, time.March, day)
}

func emptyCalendar() *leave.Calendar {
	return leave.NewCalendar(nil)
}

func charge(t *testing.T, cal *leave.Calendar, start, end leave.Date, ss, es leave.Session) leave.Days {
	t.Helper()
	days, err := leave.ChargeableDays(cal, start, end, ss, es)
	require.NoError(t, err)
	return days
}

// =============================================================================
// SINGLE-DAY RULES
// =============================================================================

func TestChargeableDays_SingleDay(t *testing.T) {
	cal := emptyCalendar()
	monday := date(10)

	tests := []struct {
		name string
		ss   leave.Session
		es   leave.Session
		want float64
	}{
		{"no markers charges full day", leave.SessionNone, leave.SessionNone, 1.0},
		{"morning only charges half", leave.SessionMorning, leave.SessionNone, 0.5},
		{"afternoon only charges half", leave.SessionNone, leave.SessionAfternoon, 0.5},
		{"morning plus afternoon charges full day", leave.SessionMorning, leave.SessionAfternoon, 1.0},
		{"afternoon plus morning charges full day", leave.SessionAfternoon, leave.SessionMorning, 1.0},
		// Both markers on the same half still charge half a day. Established
		// policy, not a bug.
		{"same half twice charges half", leave.SessionMorning, leave.SessionMorning, 0.5},
		{"same afternoon twice charges half", leave.SessionAfternoon, leave.SessionAfternoon, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := charge(t, cal, monday, monday, tt.ss, tt.es)
			assert.True(t, leave.NewDays(tt.want).Equal(got),
				"want %v got %s", tt.want, got)
		})
	}
}

func TestChargeableDays_SingleDay_NonWorking(t *testing.T) {
	// GIVEN: A Saturday and a holiday Wednesday
	cal := leave.NewCalendar([]leave.Holiday{{Date: date(12), Name: "Founding Day"}})

	// WHEN/THEN: Any single-day request on them charges zero, markers or not
	assert.True(t, charge(t, cal, date(15), date(15), leave.SessionNone, leave.SessionNone).IsZero())
	assert.True(t, charge(t, cal, date(15), date(15), leave.SessionMorning, leave.SessionNone).IsZero())
	assert.True(t, charge(t, cal, date(12), date(12), leave.SessionNone, leave.SessionNone).IsZero())
	assert.True(t, charge(t, cal, date(12), date(12), leave.SessionMorning, leave.SessionAfternoon).IsZero())
}

// =============================================================================
// MULTI-DAY RULES
// =============================================================================

func TestChargeableDays_MultiDay_FullWeek(t *testing.T) {
	// GIVEN: Monday through Friday, no holidays
	// WHEN: No session markers
	// THEN: 5.0 days
	got := charge(t, emptyCalendar(), date(10), date(14), leave.SessionNone, leave.SessionNone)
	assert.True(t, leave.DaysFromInt(5).Equal(got), "got %s", got)
}

func TestChargeableDays_MultiDay_SkipsWeekend(t *testing.T) {
	// GIVEN: Thursday through next Monday (Sat 15, Sun 16 inside the range)
	// THEN: Only Thu, Fri, Mon charge
	got := charge(t, emptyCalendar(), date(13), date(17), leave.SessionNone, leave.SessionNone)
	assert.True(t, leave.DaysFromInt(3).Equal(got), "got %s", got)
}

func TestChargeableDays_MultiDay_SkipsHolidays(t *testing.T) {
	// GIVEN: Mon-Fri with Wednesday a holiday
	cal := leave.NewCalendar([]leave.Holiday{{Date: date(12), Name: "Founding Day"}})
	got := charge(t, cal, date(10), date(14), leave.SessionNone, leave.SessionNone)
	assert.True(t, leave.DaysFromInt(4).Equal(got), "got %s", got)
}

func TestChargeableDays_MultiDay_BoundarySessions(t *testing.T) {
	cal := emptyCalendar()

	// Afternoon start: first day is half
	got := charge(t, cal, date(10), date(12), leave.SessionAfternoon, leave.SessionNone)
	assert.True(t, leave.NewDays(2.5).Equal(got), "got %s", got)

	// Morning end: last day is half
	got = charge(t, cal, date(10), date(12), leave.SessionNone, leave.SessionMorning)
	assert.True(t, leave.NewDays(2.5).Equal(got), "got %s", got)

	// Both boundaries halved
	got = charge(t, cal, date(10), date(12), leave.SessionAfternoon, leave.SessionMorning)
	assert.True(t, leave.DaysFromInt(2).Equal(got), "got %s", got)
}

func TestChargeableDays_MultiDay_SessionOnNonWorkingBoundary(t *testing.T) {
	// GIVEN: Friday through Monday with an afternoon marker on Friday and a
	// morning marker on Monday
	// THEN: Half + half, the weekend contributes nothing
	got := charge(t, emptyCalendar(), date(14), date(17), leave.SessionAfternoon, leave.SessionMorning)
	assert.True(t, leave.DaysFromInt(1).Equal(got), "got %s", got)

	// A boundary falling on a weekend charges zero even with a marker.
	got = charge(t, emptyCalendar(), date(14), date(15), leave.SessionNone, leave.SessionMorning)
	assert.True(t, leave.DaysFromInt(1).Equal(got), "got %s", got)
}

func TestChargeableDays_AllNonWorking_IsZero(t *testing.T) {
	// GIVEN: A Saturday-to-Sunday range
	got := charge(t, emptyCalendar(), date(15), date(16), leave.SessionNone, leave.SessionNone)
	assert.True(t, got.IsZero(), "got %s", got)
	assert.False(t, got.IsNegative())
}

func TestChargeableDays_InvertedRange(t *testing.T) {
	_, err := leave.ChargeableDays(emptyCalendar(), date(14), date(10), leave.SessionNone, leave.SessionNone)
	require.Error(t, err)
	assert.ErrorIs(t, err, leave.ErrInvalidRange)

	var rangeErr *leave.RangeError
	assert.ErrorAs(t, err, &rangeErr)
	assert.Equal(t, date(14), rangeErr.Start)
}

// =============================================================================
// CALENDAR ORACLE
// =============================================================================

func TestCalendar_NonWorkingDays(t *testing.T) {
	cal := leave.NewCalendar([]leave.Holiday{{Date: date(12), Name: "Founding Day"}})

	assert.False(t, cal.IsNonWorkingDay(date(10)), "plain Monday is working")
	assert.True(t, cal.IsNonWorkingDay(date(12)), "holiday is non-working")
	assert.True(t, cal.IsNonWorkingDay(date(15)), "Saturday is non-working")
	assert.True(t, cal.IsNonWorkingDay(date(16)), "Sunday is non-working")

	assert.True(t, cal.IsHoliday(date(12)))
	assert.False(t, cal.IsHoliday(date(15)), "weekend is not a holiday")

	assert.Len(t, cal.Holidays(date(10), date(14)), 1)
	assert.Empty(t, cal.Holidays(date(13), date(14)))
}
