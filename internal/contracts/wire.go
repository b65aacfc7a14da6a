package contracts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/salesdesk/salesdesk/internal/platform/httpx"
)

const dateLayout = httpx.DateLayout

// Date fields travel as YYYY-MM-DD, the same layout requests use. Timestamps
// such as created_at keep RFC3339.

func formatDay(t time.Time) string {
	return t.Format(dateLayout)
}

func formatOptionalDay(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatDay(*t)
	return &s
}

func decodeDay(field, raw string) (time.Time, error) {
	t, err := httpx.ParseCivilDate(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", field, err)
	}
	return t, nil
}

// MarshalJSON encodes the contract window as civil dates.
func (c Contract) MarshalJSON() ([]byte, error) {
	type plain Contract
	return json.Marshal(struct {
		plain
		StartDate string  `json:"start_date"`
		EndDate   *string `json:"end_date,omitempty"`
	}{plain(c), formatDay(c.StartDate), formatOptionalDay(c.EndDate)})
}

// UnmarshalJSON decodes a contract encoded by MarshalJSON.
func (c *Contract) UnmarshalJSON(data []byte) error {
	type plain Contract
	aux := struct {
		*plain
		StartDate string  `json:"start_date"`
		EndDate   *string `json:"end_date"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	start, err := decodeDay("start_date", aux.StartDate)
	if err != nil {
		return err
	}
	end, err := httpx.ParseOptionalDate(aux.EndDate)
	if err != nil {
		return fmt.Errorf("end_date: %w", err)
	}
	c.StartDate, c.EndDate = start, end
	return nil
}

// MarshalJSON keeps the periods next to the contract fields. Without it the
// promoted Contract.MarshalJSON would drop them.
func (c ContractWithPeriods) MarshalJSON() ([]byte, error) {
	head, err := c.Contract.MarshalJSON()
	if err != nil {
		return nil, err
	}
	periods := c.Periods
	if periods == nil {
		periods = []Period{}
	}
	tail, err := json.Marshal(periods)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.Write(bytes.TrimSuffix(head, []byte("}")))
	buf.WriteString(`,"periods":`)
	buf.Write(tail)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes the contract fields and its periods.
func (c *ContractWithPeriods) UnmarshalJSON(data []byte) error {
	if err := c.Contract.UnmarshalJSON(data); err != nil {
		return err
	}
	var aux struct {
		Periods []Period `json:"periods"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	c.Periods = aux.Periods
	return nil
}

// MarshalJSON encodes the period bounds as civil dates.
func (p Period) MarshalJSON() ([]byte, error) {
	type plain Period
	return json.Marshal(struct {
		plain
		PeriodStart string `json:"period_start"`
		PeriodEnd   string `json:"period_end"`
	}{plain(p), formatDay(p.PeriodStart), formatDay(p.PeriodEnd)})
}

// UnmarshalJSON decodes a period encoded by MarshalJSON.
func (p *Period) UnmarshalJSON(data []byte) error {
	type plain Period
	aux := struct {
		*plain
		PeriodStart string `json:"period_start"`
		PeriodEnd   string `json:"period_end"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	start, err := decodeDay("period_start", aux.PeriodStart)
	if err != nil {
		return err
	}
	end, err := decodeDay("period_end", aux.PeriodEnd)
	if err != nil {
		return err
	}
	p.PeriodStart, p.PeriodEnd = start, end
	return nil
}

// MarshalJSON encodes the appointment day as a civil date.
func (a Appointment) MarshalJSON() ([]byte, error) {
	type plain Appointment
	return json.Marshal(struct {
		plain
		Date string `json:"date"`
	}{plain(a), formatDay(a.Date)})
}

// UnmarshalJSON decodes an appointment encoded by MarshalJSON.
func (a *Appointment) UnmarshalJSON(data []byte) error {
	type plain Appointment
	aux := struct {
		*plain
		Date string `json:"date"`
	}{plain: (*plain)(a)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	day, err := decodeDay("date", aux.Date)
	if err != nil {
		return err
	}
	a.Date = day
	return nil
}
