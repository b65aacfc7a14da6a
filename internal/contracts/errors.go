package contracts

import (
	"fmt"

	"github.com/salesdesk/salesdesk/internal/shared"
)

// Validation failures.
var (
	ErrInvalidGoal       = fmt.Errorf("%w: goal must be at least 1", shared.ErrValidation)
	ErrInvalidRange      = fmt.Errorf("%w: period start must precede period end", shared.ErrValidation)
	ErrInvalidRecurrence = fmt.Errorf("%w: recurrence needs a unit of day, week, month or year and an interval of at least 1", shared.ErrValidation)
	ErrInvalidContract   = fmt.Errorf("%w: contract end date precedes its start date", shared.ErrValidation)
	ErrOutsideContract   = fmt.Errorf("%w: period lies outside the contract window", shared.ErrValidation)
)

// Conflicts with current state.
var (
	ErrOverlap            = fmt.Errorf("%w: period overlaps an existing period of the contract", shared.ErrConflict)
	ErrSolePeriod         = fmt.Errorf("%w: the only period of a contract cannot be deleted", shared.ErrConflict)
	ErrOpenContractExists = fmt.Errorf("%w: client already has an open-ended contract", shared.ErrConflict)
	ErrContractClosed     = fmt.Errorf("%w: contract already has an end date", shared.ErrConflict)
	ErrContractEnded      = fmt.Errorf("%w: contract has no room for another period", shared.ErrConflict)
)

// Lookup misses.
var (
	ErrContractNotFound = fmt.Errorf("%w: contract", shared.ErrNotFound)
	ErrPeriodNotFound   = fmt.Errorf("%w: period", shared.ErrNotFound)
)

// Invariant violations found in stored data.
var (
	ErrMultipleActiveContracts = fmt.Errorf("%w: several contracts active at the same instant", shared.ErrConsistency)
	ErrNonPositiveGoal         = fmt.Errorf("%w: stored period goal is not positive", shared.ErrConsistency)
	ErrContractWithoutPeriods  = fmt.Errorf("%w: contract has no periods", shared.ErrConsistency)
)
