package contracts

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ValidateCreate admits proposed into the period set of its contract. Checks
// run in order: goal, range, overlap. The admitted period is returned active
// with a zero performance snapshot; existing periods are never modified.
func ValidateCreate(existing []Period, proposed Period) (Period, error) {
	if proposed.Goal < 1 {
		return Period{}, ErrInvalidGoal
	}
	proposed.PeriodStart = civilDate(proposed.PeriodStart)
	proposed.PeriodEnd = civilDate(proposed.PeriodEnd)
	if !proposed.PeriodStart.Before(proposed.PeriodEnd) {
		return Period{}, fmt.Errorf("%w: %s is not before %s", ErrInvalidRange,
			proposed.PeriodStart.Format(dateLayout), proposed.PeriodEnd.Format(dateLayout))
	}
	for _, p := range existing {
		if p.ContractID != proposed.ContractID {
			continue
		}
		if p.Overlaps(proposed) {
			return Period{}, fmt.Errorf("%w: [%s, %s] intersects period %s [%s, %s]", ErrOverlap,
				proposed.PeriodStart.Format(dateLayout), proposed.PeriodEnd.Format(dateLayout),
				p.ID, p.PeriodStart.Format(dateLayout), p.PeriodEnd.Format(dateLayout))
		}
	}
	proposed.Status = PeriodStatusActive
	proposed.PerformancePercent = decimal.Zero
	return proposed, nil
}

// ValidateDelete rejects deleting the last remaining period of a contract,
// whatever its status.
func ValidateDelete(existing []Period, targetID uuid.UUID) error {
	found := false
	for _, p := range existing {
		if p.ID == targetID {
			found = true
			break
		}
	}
	if !found {
		return ErrPeriodNotFound
	}
	if len(existing) == 1 {
		return ErrSolePeriod
	}
	return nil
}

// ValidateGoalUpdate rejects an absent or non-positive goal.
func ValidateGoalUpdate(goal *int) error {
	if goal == nil || *goal < 1 {
		return ErrInvalidGoal
	}
	return nil
}
