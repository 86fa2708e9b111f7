/*
Package recurrence computes occurrence dates for recurring transactions and
materializes them into the ledger.

schedule.go - Pure calendar math (no I/O)

PURPOSE:
  Given a recurrence definition, compute when it should fire. These are
  deterministic functions of their inputs - no clock reads, no store
  access - so callers pass "today" explicitly and results are always
  reproducible.

THE MONTH-END PROBLEM:
  Naive "add one month" arithmetic silently rolls over when the anchor day
  does not exist in the target month: Jan 31 + 1 month becomes Mar 2 (or
  Mar 3 in leap years). Worse, once rolled over the anchor day is lost and
  every later occurrence drifts.

  POLICY (deliberate, documented): month and year advancement CLAMPS to
  the last day of the target month, and occurrence enumeration always
  anchors on the recurrence's start date, so the anchor day is preserved
  across clamped months:

    start Jan 31 -> Feb 29 (leap) -> Mar 31 -> Apr 30 -> May 31 ...

RESTARTABILITY:
  UpcomingOccurrences is a plain function, not a stateful generator.
  Re-invoking with a later horizon returns a superset of the earlier call.

SEE ALSO:
  - materialize.go: Feeds these dates into the ledger Mutator
*/
package recurrence

import (
	"time"

	"github.com/warp/finance-ledger/ledger"
)

// =============================================================================
// SINGLE-STEP ADVANCE
// =============================================================================

// NextOccurrence adds exactly one unit of the given frequency to from.
// Month/year advancement clamps to the last day of the target month:
// NextOccurrence(monthly, 2024-01-31) == 2024-02-29.
//
// Note that a clamped result loses the original anchor day (Feb 29 + 1
// month is Mar 29, not Mar 31). Use OccurrenceAt for drift-free
// enumeration from a fixed start date.
func NextOccurrence(freq ledger.Frequency, from ledger.Date) ledger.Date {
	switch freq {
	case ledger.FreqDaily:
		return from.AddDays(1)
	case ledger.FreqWeekly:
		return from.AddDays(7)
	case ledger.FreqMonthly:
		return addMonthsClamped(from, 1)
	case ledger.FreqYearly:
		return addMonthsClamped(from, 12)
	default:
		return from.AddDays(1)
	}
}

// OccurrenceAt returns the n-th occurrence (0-based) of a schedule anchored
// at start. The anchor day is taken from start every time, so clamping in
// one month never drifts later ones.
func OccurrenceAt(start ledger.Date, freq ledger.Frequency, n int) ledger.Date {
	switch freq {
	case ledger.FreqDaily:
		return start.AddDays(n)
	case ledger.FreqWeekly:
		return start.AddDays(7 * n)
	case ledger.FreqMonthly:
		return addMonthsClamped(start, n)
	case ledger.FreqYearly:
		return addMonthsClamped(start, 12*n)
	default:
		return start.AddDays(n)
	}
}

// addMonthsClamped advances by whole months, clamping the day to the last
// day of the target month instead of rolling over.
func addMonthsClamped(d ledger.Date, months int) ledger.Date {
	year := d.Year()
	month := int(d.Month()) - 1 + months // 0-based for arithmetic
	year += month / 12
	month = month % 12
	if month < 0 {
		month += 12
		year--
	}
	targetMonth := time.Month(month + 1)

	day := d.Day()
	if last := ledger.DaysInMonth(year, targetMonth); day > last {
		day = last
	}
	return ledger.NewDate(year, targetMonth, day)
}

// =============================================================================
// ENUMERATION
// =============================================================================

// OccurrencesBetween returns every occurrence of rec in [from, to],
// honoring the recurrence's start and end dates. Occurrences are
// enumerated by stepping from the start date, never by jumping.
func OccurrencesBetween(rec ledger.Recurrence, from, to ledger.Date) []ledger.Date {
	if rec.EndDate != nil && to.After(*rec.EndDate) {
		to = *rec.EndDate
	}
	if to.Before(rec.StartDate) || to.Before(from) {
		return nil
	}

	var dates []ledger.Date
	for n := 0; ; n++ {
		occ := OccurrenceAt(rec.StartDate, rec.Frequency, n)
		if occ.After(to) {
			break
		}
		if occ.AfterOrEqual(from) {
			dates = append(dates, occ)
		}
	}
	return dates
}

// UpcomingOccurrences returns the occurrences of rec that fall on or after
// today, up to and including horizonEnd (and the recurrence's end date, if
// set). Calling again with a later horizon yields a superset.
func UpcomingOccurrences(rec ledger.Recurrence, today, horizonEnd ledger.Date) []ledger.Date {
	return OccurrencesBetween(rec, today, horizonEnd)
}
