package contracts

import (
	"time"
)

// NextPeriodEnd adds every units to anchorStart. Month and year steps clamp to
// the last day of the target month, so Jan 31 plus one month is the end of
// February rather than an overflowed March date.
func NextPeriodEnd(anchorStart time.Time, unit RecurrenceUnit, every int) (time.Time, error) {
	if every < 1 || !unit.Valid() {
		return time.Time{}, ErrInvalidRecurrence
	}
	anchor := civilDate(anchorStart)
	switch unit {
	case UnitDay:
		return anchor.AddDate(0, 0, every), nil
	case UnitWeek:
		return anchor.AddDate(0, 0, 7*every), nil
	case UnitMonth:
		return addMonthsClamped(anchor, every), nil
	default:
		return addMonthsClamped(anchor, 12*every), nil
	}
}

// NextPeriodAfter computes the window of the period following lastEnd.
// Boundaries stay anchored on the contract start (k-th boundary is
// StartDate + k*every units) so repeated renewals never drift. The window is
// truncated to the contract end date.
func NextPeriodAfter(c Contract, lastEnd time.Time) (time.Time, time.Time, error) {
	if !c.IsRecurring {
		return time.Time{}, time.Time{}, ErrInvalidRecurrence
	}
	if c.RecurrenceEvery < 1 || !c.RecurrenceUnit.Valid() {
		return time.Time{}, time.Time{}, ErrInvalidRecurrence
	}
	start := civilDate(lastEnd).AddDate(0, 0, 1)
	if c.EndDate != nil && !start.Before(*c.EndDate) {
		return time.Time{}, time.Time{}, ErrContractEnded
	}

	var end time.Time
	for k := 1; ; k++ {
		boundary, err := NextPeriodEnd(c.StartDate, c.RecurrenceUnit, k*c.RecurrenceEvery)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		if boundary.After(start) {
			end = boundary
			break
		}
	}
	if c.EndDate != nil && end.After(*c.EndDate) {
		end = *c.EndDate
	}
	return start, end, nil
}

// addMonthsClamped adds n months to t, keeping the day of month when the
// target month has it and using the target month's last day otherwise.
func addMonthsClamped(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	firstOfTarget := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	last := daysIn(firstOfTarget.Year(), firstOfTarget.Month())
	if d > last {
		d = last
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), d, 0, 0, 0, 0, time.UTC)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
