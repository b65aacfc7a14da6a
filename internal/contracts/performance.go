package contracts

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// countsTowardGoal reports whether an appointment with status s was delivered.
// Cancelled, rescheduled and no-show appointments do not count.
func countsTowardGoal(s AppointmentStatus) bool {
	return s == AppointmentConfirmed || s == AppointmentDone
}

// ComputePerformance returns delivered appointments inside the period window
// as a percentage of the period goal, rounded to two decimals and unclamped.
func ComputePerformance(period Period, appointments []Appointment) (decimal.Decimal, error) {
	delivered, err := deliveredIn(period, appointments)
	if err != nil {
		return decimal.Zero, err
	}
	return percentOf(delivered, period.Goal), nil
}

// MeasurePeriod computes the live performance of active from the client's
// appointments. Appointments outside the period window are ignored.
func MeasurePeriod(active ActivePeriod, appointments []Appointment) (*PeriodPerformance, error) {
	delivered, err := deliveredIn(active.Period, appointments)
	if err != nil {
		return nil, err
	}
	return &PeriodPerformance{
		Contract:  active.Contract,
		Period:    active.Period,
		Delivered: delivered,
		Percent:   percentOf(delivered, active.Period.Goal),
	}, nil
}

func deliveredIn(period Period, appointments []Appointment) (int, error) {
	if period.Goal <= 0 {
		return 0, fmt.Errorf("%w: period %s has goal %d", ErrNonPositiveGoal, period.ID, period.Goal)
	}
	count := 0
	for _, a := range appointments {
		if !countsTowardGoal(a.Status) {
			continue
		}
		if period.Contains(a.Date) {
			count++
		}
	}
	return count, nil
}

func percentOf(count, goal int) decimal.Decimal {
	return decimal.NewFromInt(int64(count)).
		Mul(hundred).
		Div(decimal.NewFromInt(int64(goal))).
		Round(2)
}
