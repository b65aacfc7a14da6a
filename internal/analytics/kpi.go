package analytics

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/salesdesk/salesdesk/internal/contracts"
)

// Contact is a prospect registered for a client.
type Contact struct {
	ID        uuid.UUID `json:"id"`
	ClientID  uuid.UUID `json:"client_id"`
	CreatedAt time.Time `json:"created_at"`
}

// KPIs summarises a client's appointment history as of a given day.
type KPIs struct {
	TotalAppointments    int                                 `json:"total_appointments"`
	TotalProspects       int                                 `json:"total_prospects"`
	PastAppointments     int                                 `json:"past_appointments"`
	UpcomingAppointments int                                 `json:"upcoming_appointments"`
	NoShows              int                                 `json:"no_shows"`
	NoShowRate           decimal.Decimal                     `json:"no_show_rate"`
	ByStatus             map[contracts.AppointmentStatus]int `json:"by_status"`
}

var hundred = decimal.NewFromInt(100)

// ComputeKPIs aggregates appointments and contacts. Appointments dated before
// the civil day of asOf are past; the no-show rate is the percentage of past
// appointments marked no_show, zero when there are none.
func ComputeKPIs(appointments []contracts.Appointment, contacts []Contact, asOf time.Time) KPIs {
	cutoff := civilDate(asOf)
	k := KPIs{
		TotalAppointments: len(appointments),
		TotalProspects:    len(contacts),
		NoShowRate:        decimal.Zero,
		ByStatus:          make(map[contracts.AppointmentStatus]int),
	}
	for _, a := range appointments {
		k.ByStatus[a.Status]++
		if !civilDate(a.Date).Before(cutoff) {
			k.UpcomingAppointments++
			continue
		}
		k.PastAppointments++
		if a.Status == contracts.AppointmentNoShow {
			k.NoShows++
		}
	}
	if k.PastAppointments > 0 {
		k.NoShowRate = decimal.NewFromInt(int64(k.NoShows)).
			Mul(hundred).
			Div(decimal.NewFromInt(int64(k.PastAppointments))).
			Round(2)
	}
	return k
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
