package contracts

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/salesdesk/salesdesk/internal/shared"
)

// ============================================================================
// MOCK REPOSITORY
// ============================================================================

type memState struct {
	contracts    map[uuid.UUID]Contract
	periods      map[uuid.UUID]Period
	appointments []Appointment
}

func (s memState) clone() memState {
	out := memState{
		contracts:    make(map[uuid.UUID]Contract, len(s.contracts)),
		periods:      make(map[uuid.UUID]Period, len(s.periods)),
		appointments: append([]Appointment(nil), s.appointments...),
	}
	for k, v := range s.contracts {
		out.contracts[k] = v
	}
	for k, v := range s.periods {
		out.periods[k] = v
	}
	return out
}

type memRepo struct {
	mu    sync.Mutex
	state memState
	inTx  bool

	// Error injection
	insertPeriodErr error
	listActiveErr   error
	txCalls         int
}

func newMemRepo() *memRepo {
	return &memRepo{state: memState{
		contracts: make(map[uuid.UUID]Contract),
		periods:   make(map[uuid.UUID]Period),
	}}
}

// WithTx restores the previous state when fn fails.
func (m *memRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	m.mu.Lock()
	m.txCalls++
	snapshot := m.state.clone()
	m.inTx = true
	m.mu.Unlock()

	err := fn(ctx, m)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.inTx = false
	if err != nil {
		m.state = snapshot
	}
	return err
}

func (m *memRepo) GetContract(_ context.Context, id uuid.UUID) (Contract, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.state.contracts[id]
	if !ok {
		return Contract{}, ErrContractNotFound
	}
	return c, nil
}

func (m *memRepo) LockContract(ctx context.Context, id uuid.UUID) (Contract, error) {
	return m.GetContract(ctx, id)
}

func (m *memRepo) filterContracts(keep func(Contract) bool) []Contract {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Contract
	for _, c := range m.state.contracts {
		if keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.Before(out[j].StartDate) })
	return out
}

func (m *memRepo) ListContracts(_ context.Context, clientID uuid.UUID) ([]Contract, error) {
	return m.filterContracts(func(c Contract) bool { return c.ClientID == clientID }), nil
}

func (m *memRepo) ListContractsActiveAt(_ context.Context, clientID uuid.UUID, asOf time.Time) ([]Contract, error) {
	if m.listActiveErr != nil {
		return nil, m.listActiveErr
	}
	return m.filterContracts(func(c Contract) bool { return c.ClientID == clientID && c.Covers(asOf) }), nil
}

func (m *memRepo) ListOpenEndedContracts(_ context.Context, clientID uuid.UUID) ([]Contract, error) {
	return m.filterContracts(func(c Contract) bool { return c.ClientID == clientID && c.OpenEnded() }), nil
}

func (m *memRepo) InsertContract(_ context.Context, c Contract) (Contract, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	c.CreatedAt, c.UpdatedAt = now, now
	m.state.contracts[c.ID] = c
	return c, nil
}

func (m *memRepo) SetContractEnd(_ context.Context, id uuid.UUID, end time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.state.contracts[id]
	if !ok {
		return ErrContractNotFound
	}
	c.EndDate = &end
	m.state.contracts[id] = c
	return nil
}

func (m *memRepo) DeleteContract(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.state.contracts[id]; !ok {
		return ErrContractNotFound
	}
	for pid, p := range m.state.periods {
		if p.ContractID == id {
			delete(m.state.periods, pid)
		}
	}
	delete(m.state.contracts, id)
	return nil
}

func (m *memRepo) GetPeriod(_ context.Context, id uuid.UUID) (Period, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.state.periods[id]
	if !ok {
		return Period{}, ErrPeriodNotFound
	}
	return p, nil
}

func (m *memRepo) ListPeriods(_ context.Context, contractID uuid.UUID) ([]Period, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Period
	for _, p := range m.state.periods {
		if p.ContractID == contractID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodStart.Before(out[j].PeriodStart) })
	return out, nil
}

func (m *memRepo) InsertPeriod(_ context.Context, p Period) (Period, error) {
	if m.insertPeriodErr != nil {
		return Period{}, m.insertPeriodErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.periods[p.ID] = p
	return p, nil
}

func (m *memRepo) UpdatePeriodGoal(_ context.Context, id uuid.UUID, goal int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.state.periods[id]
	if !ok {
		return ErrPeriodNotFound
	}
	p.Goal = goal
	m.state.periods[id] = p
	return nil
}

func (m *memRepo) UpdatePeriodPerformance(_ context.Context, id uuid.UUID, percent decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.state.periods[id]
	if !ok {
		return ErrPeriodNotFound
	}
	p.PerformancePercent = percent
	m.state.periods[id] = p
	return nil
}

func (m *memRepo) DeletePeriod(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.state.periods[id]; !ok {
		return ErrPeriodNotFound
	}
	delete(m.state.periods, id)
	return nil
}

func (m *memRepo) ListActivePeriodsAt(_ context.Context, asOf time.Time) ([]PeriodRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var refs []PeriodRef
	for _, p := range m.state.periods {
		if p.Status != PeriodStatusActive || !p.Contains(asOf) {
			continue
		}
		c := m.state.contracts[p.ContractID]
		refs = append(refs, PeriodRef{PeriodID: p.ID, ClientID: c.ClientID})
	}
	return refs, nil
}

func (m *memRepo) ListAppointmentsBetween(_ context.Context, clientID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Appointment
	for _, a := range m.state.appointments {
		if a.ClientID != clientID || a.Date.Before(civilDate(from)) || a.Date.After(civilDate(to)) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (m *memRepo) addAppointment(clientID uuid.UUID, date time.Time, status AppointmentStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.appointments = append(m.state.appointments, Appointment{
		ID:        uuid.New(),
		ClientID:  clientID,
		ContactID: uuid.New(),
		Date:      date,
		Status:    status,
	})
}

// seedContract stores c directly, bypassing service checks, to model
// pre-existing or corrupted data.
func (m *memRepo) seedContract(c Contract, periods ...Period) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.contracts[c.ID] = c
	for _, p := range periods {
		p.ContractID = c.ID
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
		if p.Status == "" {
			p.Status = PeriodStatusActive
		}
		m.state.periods[p.ID] = p
	}
}

func (m *memRepo) periodCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.periods)
}

func (m *memRepo) contractCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.contracts)
}

// ============================================================================
// COLLABORATOR FAKES
// ============================================================================

type recordingAudit struct {
	mu   sync.Mutex
	logs []shared.AuditLog
}

func (a *recordingAudit) Record(_ context.Context, log shared.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, log)
	return nil
}

func (a *recordingAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.logs))
	for _, l := range a.logs {
		out = append(out, l.Action)
	}
	return out
}

type countingNotifier struct {
	mu    sync.Mutex
	bumps int
}

func (n *countingNotifier) Bump(context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.bumps++
	return nil
}

type recordingMetrics struct {
	mu        sync.Mutex
	anomalies map[string]int
	mutations map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{anomalies: map[string]int{}, mutations: map[string]int{}}
}

func (r *recordingMetrics) ConsistencyAnomaly(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.anomalies[kind]++
}

func (r *recordingMetrics) Mutation(entity, action string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mutations[entity+"."+action]++
}

type memIdempotency struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func (m *memIdempotency) CheckAndInsert(_ context.Context, key, scope string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys == nil {
		m.keys = map[string]struct{}{}
	}
	if _, ok := m.keys[scope+"|"+key]; ok {
		return shared.ErrIdempotencyConflict
	}
	m.keys[scope+"|"+key] = struct{}{}
	return nil
}

func (m *memIdempotency) Release(_ context.Context, key, scope string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, scope+"|"+key)
	return nil
}

// ============================================================================
// HELPERS
// ============================================================================

func day(s string) time.Time {
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func dayPtr(s string) *time.Time {
	t := day(s)
	return &t
}

func intPtr(v int) *int {
	return &v
}

func actorCtx(role string) context.Context {
	return shared.ContextWithActor(context.Background(), shared.Actor{UserID: uuid.New(), Role: role})
}

func clientCtx(clientID uuid.UUID) context.Context {
	id := clientID
	return shared.ContextWithActor(context.Background(), shared.Actor{UserID: uuid.New(), Role: shared.RoleClient, ClientID: &id})
}
