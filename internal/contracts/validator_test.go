package contracts

import (
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesdesk/salesdesk/internal/shared"
)

func TestValidateCreate(t *testing.T) {
	contractID := uuid.New()
	existing := []Period{{
		ID:          uuid.New(),
		ContractID:  contractID,
		PeriodStart: day("2024-01-01"),
		PeriodEnd:   day("2024-06-30"),
		Goal:        10,
		Status:      PeriodStatusActive,
	}}

	tests := []struct {
		name    string
		start   string
		end     string
		goal    int
		wantErr error
	}{
		{name: "disjoint after", start: "2024-07-01", end: "2024-09-30", goal: 5},
		{name: "disjoint before", start: "2023-10-01", end: "2023-12-31", goal: 5},
		{name: "overlap inside", start: "2024-06-15", end: "2024-09-30", goal: 5, wantErr: ErrOverlap},
		{name: "touching boundary is inclusive", start: "2024-06-30", end: "2024-07-31", goal: 5, wantErr: ErrOverlap},
		{name: "enclosing", start: "2023-12-01", end: "2024-12-31", goal: 5, wantErr: ErrOverlap},
		{name: "zero goal", start: "2024-07-01", end: "2024-09-30", goal: 0, wantErr: ErrInvalidGoal},
		{name: "negative goal", start: "2024-07-01", end: "2024-09-30", goal: -3, wantErr: ErrInvalidGoal},
		{name: "inverted range", start: "2024-09-30", end: "2024-07-01", goal: 5, wantErr: ErrInvalidRange},
		{name: "empty range", start: "2024-07-01", end: "2024-07-01", goal: 5, wantErr: ErrInvalidRange},
		{name: "goal checked before range", start: "2024-09-30", end: "2024-07-01", goal: 0, wantErr: ErrInvalidGoal},
		{name: "range checked before overlap", start: "2024-06-20", end: "2024-06-10", goal: 5, wantErr: ErrInvalidRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateCreate(existing, Period{
				ID:          uuid.New(),
				ContractID:  contractID,
				PeriodStart: day(tt.start),
				PeriodEnd:   day(tt.end),
				Goal:        tt.goal,
			})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, PeriodStatusActive, got.Status)
			assert.True(t, got.PerformancePercent.IsZero())
			assert.Equal(t, tt.goal, got.Goal)
		})
	}
}

func TestValidateCreateErrorClasses(t *testing.T) {
	_, err := ValidateCreate(nil, Period{PeriodStart: day("2024-01-01"), PeriodEnd: day("2024-02-01")})
	assert.True(t, errors.Is(err, shared.ErrValidation))

	contractID := uuid.New()
	existing := []Period{{ContractID: contractID, PeriodStart: day("2024-01-01"), PeriodEnd: day("2024-06-30"), Goal: 1}}
	_, err = ValidateCreate(existing, Period{ContractID: contractID, PeriodStart: day("2024-06-15"), PeriodEnd: day("2024-09-30"), Goal: 1})
	assert.True(t, errors.Is(err, shared.ErrConflict))
}

func TestValidateCreateIgnoresOtherContracts(t *testing.T) {
	existing := []Period{{ContractID: uuid.New(), PeriodStart: day("2024-01-01"), PeriodEnd: day("2024-06-30"), Goal: 1}}
	_, err := ValidateCreate(existing, Period{ContractID: uuid.New(), PeriodStart: day("2024-03-01"), PeriodEnd: day("2024-04-01"), Goal: 1})
	require.NoError(t, err)
}

func TestValidateCreateDoesNotTouchSiblings(t *testing.T) {
	contractID := uuid.New()
	existing := []Period{{ID: uuid.New(), ContractID: contractID, PeriodStart: day("2024-01-01"), PeriodEnd: day("2024-01-31"), Goal: 3, Status: PeriodStatusActive}}
	before := existing[0]
	_, err := ValidateCreate(existing, Period{ContractID: contractID, PeriodStart: day("2024-02-01"), PeriodEnd: day("2024-02-29"), Goal: 4})
	require.NoError(t, err)
	assert.Equal(t, before, existing[0])
}

// Random interval sets: an insertion is admitted exactly when it is disjoint
// from every existing interval.
func TestValidateCreateGeneratedIntervals(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	base := day("2024-01-01")
	contractID := uuid.New()

	for round := 0; round < 300; round++ {
		var existing []Period
		cursor := rng.Intn(10)
		for i := 0; i < 1+rng.Intn(5); i++ {
			length := 1 + rng.Intn(20)
			existing = append(existing, Period{
				ID:          uuid.New(),
				ContractID:  contractID,
				PeriodStart: base.AddDate(0, 0, cursor),
				PeriodEnd:   base.AddDate(0, 0, cursor+length),
				Goal:        1,
			})
			cursor += length + 1 + rng.Intn(10)
		}

		startOffset := rng.Intn(cursor + 10)
		proposed := Period{
			ContractID:  contractID,
			PeriodStart: base.AddDate(0, 0, startOffset),
			PeriodEnd:   base.AddDate(0, 0, startOffset+1+rng.Intn(15)),
			Goal:        1,
		}

		overlaps := false
		for _, p := range existing {
			if !proposed.PeriodEnd.Before(p.PeriodStart) && !p.PeriodEnd.Before(proposed.PeriodStart) {
				overlaps = true
			}
		}

		_, err := ValidateCreate(existing, proposed)
		if overlaps {
			require.ErrorIs(t, err, ErrOverlap, "round %d", round)
		} else {
			require.NoError(t, err, "round %d", round)
		}
	}
}

func TestValidateDelete(t *testing.T) {
	a := Period{ID: uuid.New(), PeriodStart: day("2024-01-01"), PeriodEnd: day("2024-01-31")}
	b := Period{ID: uuid.New(), PeriodStart: day("2024-02-01"), PeriodEnd: day("2024-02-29"), Status: "archived"}

	require.ErrorIs(t, ValidateDelete([]Period{a}, a.ID), ErrSolePeriod)
	require.ErrorIs(t, ValidateDelete([]Period{b}, b.ID), ErrSolePeriod)
	require.NoError(t, ValidateDelete([]Period{a, b}, a.ID))
	require.NoError(t, ValidateDelete([]Period{a, b}, b.ID))
	require.ErrorIs(t, ValidateDelete([]Period{a, b}, uuid.New()), ErrPeriodNotFound)
	require.ErrorIs(t, ValidateDelete(nil, uuid.New()), ErrPeriodNotFound)

	err := ValidateDelete([]Period{a}, a.ID)
	assert.True(t, errors.Is(err, shared.ErrConflict))
}

func TestValidateGoalUpdate(t *testing.T) {
	require.ErrorIs(t, ValidateGoalUpdate(nil), ErrInvalidGoal)
	require.ErrorIs(t, ValidateGoalUpdate(intPtr(0)), ErrInvalidGoal)
	require.ErrorIs(t, ValidateGoalUpdate(intPtr(-1)), ErrInvalidGoal)
	require.NoError(t, ValidateGoalUpdate(intPtr(1)))
}

func TestValidateCreateNormalizesToCivilDates(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*3600)
	got, err := ValidateCreate(nil, Period{
		PeriodStart: time.Date(2024, 3, 1, 15, 30, 0, 0, loc),
		PeriodEnd:   time.Date(2024, 3, 31, 8, 0, 0, 0, loc),
		Goal:        2,
	})
	require.NoError(t, err)
	assert.Equal(t, day("2024-03-01"), got.PeriodStart)
	assert.Equal(t, day("2024-03-31"), got.PeriodEnd)
}
