package contracts

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

// Ten years of monthly periods is the largest history seen per contract.
func monthlyHistory(n int) []Period {
	contractID := uuid.New()
	start := day("2015-01-01")
	periods := make([]Period, 0, n)
	for i := 0; i < n; i++ {
		end := start.AddDate(0, 1, -1)
		periods = append(periods, Period{ID: uuid.New(), ContractID: contractID, PeriodStart: start, PeriodEnd: end, Goal: 10})
		start = end.AddDate(0, 0, 1)
	}
	return periods
}

func BenchmarkValidateCreate(b *testing.B) {
	existing := monthlyHistory(120)
	last := existing[len(existing)-1]
	proposed := Period{
		ContractID:  last.ContractID,
		PeriodStart: last.PeriodEnd.AddDate(0, 0, 1),
		PeriodEnd:   last.PeriodEnd.AddDate(0, 1, 0),
		Goal:        10,
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ValidateCreate(existing, proposed); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkComputePerformance(b *testing.B) {
	period := Period{PeriodStart: day("2024-01-01"), PeriodEnd: day("2024-12-31"), Goal: 500}
	statuses := []AppointmentStatus{AppointmentConfirmed, AppointmentDone, AppointmentNoShow, AppointmentCanceled}
	appts := make([]Appointment, 0, 2000)
	for i := 0; i < 2000; i++ {
		appts = append(appts, Appointment{
			ID:     uuid.New(),
			Date:   period.PeriodStart.Add(time.Duration(i%366) * 24 * time.Hour),
			Status: statuses[i%len(statuses)],
		})
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := ComputePerformance(period, appts); err != nil {
			b.Fatal(err)
		}
	}
}
