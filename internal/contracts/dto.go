package contracts

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/salesdesk/salesdesk/internal/platform/httpx"
	"github.com/salesdesk/salesdesk/internal/shared"
)

// CreateContractRequest is the body of POST /api/clients/{clientID}/contracts.
type CreateContractRequest struct {
	StartDate       string  `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate         *string `json:"end_date" validate:"omitempty,datetime=2006-01-02"`
	IsRecurring     bool    `json:"is_recurring"`
	RecurrenceUnit  string  `json:"recurrence_unit" validate:"omitempty,oneof=day week month year"`
	RecurrenceEvery int     `json:"recurrence_every" validate:"gte=0"`
	DefaultGoal     int     `json:"default_goal"`
	FirstPeriodEnd  *string `json:"first_period_end" validate:"omitempty,datetime=2006-01-02"`
}

// CreatePeriodRequest is the body of POST /api/contracts/{contractID}/periods.
type CreatePeriodRequest struct {
	PeriodStart string `json:"period_start" validate:"required,datetime=2006-01-02"`
	PeriodEnd   string `json:"period_end" validate:"required,datetime=2006-01-02"`
	Goal        int    `json:"goal"`
}

// NextPeriodRequest is the optional body of POST /api/contracts/{contractID}/periods/next.
type NextPeriodRequest struct {
	Goal *int `json:"goal"`
}

// UpdateGoalRequest is the body of PATCH /api/periods/{periodID}/goal.
type UpdateGoalRequest struct {
	Goal *int `json:"goal"`
}

// CloseContractRequest is the body of POST /api/contracts/{contractID}/close.
type CloseContractRequest struct {
	EndDate string `json:"end_date" validate:"required,datetime=2006-01-02"`
}

func (r CreateContractRequest) toInput() (CreateContractInput, error) {
	in := CreateContractInput{
		IsRecurring:     r.IsRecurring,
		RecurrenceUnit:  RecurrenceUnit(r.RecurrenceUnit),
		RecurrenceEvery: r.RecurrenceEvery,
		DefaultGoal:     r.DefaultGoal,
	}
	var err error
	if in.StartDate, err = httpx.ParseCivilDate(r.StartDate); err != nil {
		return CreateContractInput{}, err
	}
	if in.EndDate, err = httpx.ParseOptionalDate(r.EndDate); err != nil {
		return CreateContractInput{}, err
	}
	if in.FirstPeriodEnd, err = httpx.ParseOptionalDate(r.FirstPeriodEnd); err != nil {
		return CreateContractInput{}, err
	}
	return in, nil
}

// validationError flattens validator failures into a single validation error.
func validationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("%w: %v", shared.ErrValidation, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", shared.ErrValidation, strings.Join(msgs, "; "))
}
