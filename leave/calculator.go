/*
calculator.go - Chargeable-day calculation

PURPOSE:
  Computes the fractional number of days a leave request consumes from a
  balance, given an inclusive date range and optional half-day session
  markers on the boundary days. Weekends and holidays charge nothing.

RULES (single day, start == end):
  - non-working day                          -> 0
  - no session markers                       -> 1.0
  - one marker set, or both set to same half -> 0.5
  - morning + afternoon                      -> 1.0

  The same-half pair ("morning"+"morning") yielding 0.5 and the
  morning+afternoon pair yielding a full day are both deliberate policy,
  not bugs. Do not "fix" either without product sign-off.

RULES (multi day):
  - first day:  0 if non-working, 0.5 if startSession == afternoon, else 1.0
  - last day:   0 if non-working, 0.5 if endSession == morning, else 1.0
  - in between: 1.0 per working day

PURITY:
  ChargeableDays is a pure function. It is invoked at validation time and
  again at balance-deduction time, and both call sites must agree exactly,
  so there is a single implementation and no caching or side effects.

SEE ALSO:
  - calendar.go: The working-day oracle
  - service.go: Both call sites
*/
package leave

// =============================================================================
// SESSION MARKERS
// =============================================================================

// Session marks which half of a boundary day a request covers.
type Session string

const (
	SessionNone      Session = ""
	SessionMorning   Session = "morning"
	SessionAfternoon Session = "afternoon"
)

// Valid reports whether s is a recognized session marker.
func (s Session) Valid() bool {
	switch s {
	case SessionNone, SessionMorning, SessionAfternoon:
		return true
	}
	return false
}

// =============================================================================
// CHARGEABLE DAYS
// =============================================================================

// ChargeableDays computes the fractional day count a request consumes.
// Returns ErrInvalidRange when end precedes start. The result is clamped
// to >= 0 and moves in 0.5 increments by construction.
func ChargeableDays(cal *Calendar, start, end Date, startSession, endSession Session) (Days, error) {
	if end.Before(start) {
		return ZeroDays(), &RangeError{Start: start, End: end}
	}

	if start.Equal(end) {
		return singleDayCharge(cal, start, startSession, endSession), nil
	}

	total := ZeroDays()

	// First-day contribution.
	if !cal.IsNonWorkingDay(start) {
		if startSession == SessionAfternoon {
			total = total.Add(HalfDay())
		} else {
			total = total.Add(FullDay())
		}
	}

	// Interior working days, exclusive on both ends.
	for d := start.AddDays(1); d.Before(end); d = d.AddDays(1) {
		if !cal.IsNonWorkingDay(d) {
			total = total.Add(FullDay())
		}
	}

	// Last-day contribution.
	if !cal.IsNonWorkingDay(end) {
		if endSession == SessionMorning {
			total = total.Add(HalfDay())
		} else {
			total = total.Add(FullDay())
		}
	}

	return total.Max(ZeroDays()), nil
}

func singleDayCharge(cal *Calendar, day Date, startSession, endSession Session) Days {
	if cal.IsNonWorkingDay(day) {
		return ZeroDays()
	}

	switch {
	case startSession == SessionNone && endSession == SessionNone:
		return FullDay()
	case startSession != SessionNone && endSession != SessionNone && startSession != endSession:
		// An explicit morning half plus an explicit afternoon half is the
		// whole day.
		return FullDay()
	default:
		// Exactly one marker set, or both set to the same half.
		return HalfDay()
	}
}
