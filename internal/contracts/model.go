package contracts

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RecurrenceUnit is the calendar granularity of a recurring contract.
type RecurrenceUnit string

const (
	UnitDay   RecurrenceUnit = "day"
	UnitWeek  RecurrenceUnit = "week"
	UnitMonth RecurrenceUnit = "month"
	UnitYear  RecurrenceUnit = "year"
)

// Valid reports whether u is a known unit.
func (u RecurrenceUnit) Valid() bool {
	switch u {
	case UnitDay, UnitWeek, UnitMonth, UnitYear:
		return true
	}
	return false
}

// PeriodStatus enumerates period states.
type PeriodStatus string

const (
	PeriodStatusActive PeriodStatus = "active"
)

// AppointmentStatus enumerates appointment outcomes.
type AppointmentStatus string

const (
	AppointmentConfirmed    AppointmentStatus = "confirmed"
	AppointmentNoShow       AppointmentStatus = "no_show"
	AppointmentCanceled     AppointmentStatus = "canceled"
	AppointmentReprogrammed AppointmentStatus = "reprogrammed"
	AppointmentDone         AppointmentStatus = "done"
)

// Contract is a client's commercial engagement window. A nil EndDate marks
// the open-ended contract; a client holds at most one.
type Contract struct {
	ID              uuid.UUID      `json:"id"`
	ClientID        uuid.UUID      `json:"client_id"`
	StartDate       time.Time      `json:"start_date"`
	EndDate         *time.Time     `json:"end_date,omitempty"`
	IsRecurring     bool           `json:"is_recurring"`
	RecurrenceUnit  RecurrenceUnit `json:"recurrence_unit,omitempty"`
	RecurrenceEvery int            `json:"recurrence_every,omitempty"`
	DefaultGoal     int            `json:"default_goal"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// OpenEnded reports whether the contract has no end date.
func (c Contract) OpenEnded() bool {
	return c.EndDate == nil
}

// Covers reports whether the civil date at falls inside the contract window.
func (c Contract) Covers(at time.Time) bool {
	day := civilDate(at)
	if day.Before(c.StartDate) {
		return false
	}
	return c.EndDate == nil || !day.After(*c.EndDate)
}

// Period is a sub-interval of a contract carrying its own goal and a cached
// performance snapshot. Both bounds are inclusive civil dates.
type Period struct {
	ID                 uuid.UUID       `json:"id"`
	ContractID         uuid.UUID       `json:"contract_id"`
	PeriodStart        time.Time       `json:"period_start"`
	PeriodEnd          time.Time       `json:"period_end"`
	Goal               int             `json:"goal"`
	Status             PeriodStatus    `json:"status"`
	PerformancePercent decimal.Decimal `json:"performance_percent"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// Contains reports whether at falls within [PeriodStart, PeriodEnd].
func (p Period) Contains(at time.Time) bool {
	day := civilDate(at)
	return !day.Before(p.PeriodStart) && !day.After(p.PeriodEnd)
}

// Overlaps reports whether the inclusive ranges of p and other intersect.
func (p Period) Overlaps(other Period) bool {
	return !p.PeriodEnd.Before(other.PeriodStart) && !other.PeriodEnd.Before(p.PeriodStart)
}

// ContractWithPeriods bundles a contract and its periods ordered by start.
type ContractWithPeriods struct {
	Contract
	Periods []Period `json:"periods"`
}

// Appointment is read from the appointments table; its lifecycle belongs to
// the CRUD layer.
type Appointment struct {
	ID        uuid.UUID         `json:"id"`
	ClientID  uuid.UUID         `json:"client_id"`
	ContactID uuid.UUID         `json:"contact_id"`
	Date      time.Time         `json:"date"`
	Status    AppointmentStatus `json:"status"`
}

// PeriodPerformance is the live performance of one period.
type PeriodPerformance struct {
	Contract  Contract        `json:"contract"`
	Period    Period          `json:"period"`
	Delivered int             `json:"delivered"`
	Percent   decimal.Decimal `json:"percent"`
}

// ActivePeriod is the period of the active contract that contains a given day.
type ActivePeriod struct {
	Contract Contract `json:"contract"`
	Period   Period   `json:"period"`
}

// PeriodRef locates a period together with its owning client.
type PeriodRef struct {
	PeriodID uuid.UUID
	ClientID uuid.UUID
}

// civilDate truncates t to midnight UTC of its calendar day.
func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
