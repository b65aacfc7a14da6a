package contracts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/salesdesk/salesdesk/internal/platform/db"
	"github.com/salesdesk/salesdesk/internal/shared"
)

// Storage constraint names declared in migrations/0001_init.sql.
const (
	constraintOneOpenContract = "client_contracts_one_open_per_client"
	constraintNoOverlap       = "contract_periods_no_overlap"
)

// Repository is the storage collaborator of the lifecycle manager.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, Repository) error) error

	GetContract(ctx context.Context, id uuid.UUID) (Contract, error)
	// LockContract loads the contract and holds a row lock until the
	// surrounding transaction ends.
	LockContract(ctx context.Context, id uuid.UUID) (Contract, error)
	ListContracts(ctx context.Context, clientID uuid.UUID) ([]Contract, error)
	ListContractsActiveAt(ctx context.Context, clientID uuid.UUID, asOf time.Time) ([]Contract, error)
	ListOpenEndedContracts(ctx context.Context, clientID uuid.UUID) ([]Contract, error)
	InsertContract(ctx context.Context, c Contract) (Contract, error)
	SetContractEnd(ctx context.Context, id uuid.UUID, end time.Time) error
	DeleteContract(ctx context.Context, id uuid.UUID) error

	GetPeriod(ctx context.Context, id uuid.UUID) (Period, error)
	ListPeriods(ctx context.Context, contractID uuid.UUID) ([]Period, error)
	InsertPeriod(ctx context.Context, p Period) (Period, error)
	UpdatePeriodGoal(ctx context.Context, id uuid.UUID, goal int) error
	UpdatePeriodPerformance(ctx context.Context, id uuid.UUID, percent decimal.Decimal) error
	DeletePeriod(ctx context.Context, id uuid.UUID) error
	ListActivePeriodsAt(ctx context.Context, asOf time.Time) ([]PeriodRef, error)

	ListAppointmentsBetween(ctx context.Context, clientID uuid.UUID, from, to time.Time) ([]Appointment, error)
}

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db   dbtx
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool, pool: pool}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	if _, nested := r.db.(pgx.Tx); nested {
		return fn(ctx, r)
	}
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &repository{db: tx, pool: r.pool})
	})
	if err != nil && db.IsSerializationFailure(err) {
		return fmt.Errorf("%w: concurrent update, retry the request", shared.ErrConflict)
	}
	return err
}

const contractColumns = `id, client_id, start_date, end_date, is_recurring, recurrence_unit, recurrence_every, default_goal, created_at, updated_at`

func scanContract(row pgx.Row) (Contract, error) {
	var (
		c     Contract
		unit  *string
		every *int32
	)
	if err := row.Scan(&c.ID, &c.ClientID, &c.StartDate, &c.EndDate, &c.IsRecurring, &unit, &every, &c.DefaultGoal, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return Contract{}, err
	}
	if unit != nil {
		c.RecurrenceUnit = RecurrenceUnit(*unit)
	}
	if every != nil {
		c.RecurrenceEvery = int(*every)
	}
	normalizeContract(&c)
	return c, nil
}

func normalizeContract(c *Contract) {
	c.StartDate = civilDate(c.StartDate)
	if c.EndDate != nil {
		end := civilDate(*c.EndDate)
		c.EndDate = &end
	}
}

func (r *repository) GetContract(ctx context.Context, id uuid.UUID) (Contract, error) {
	return r.getContract(ctx, `SELECT `+contractColumns+` FROM client_contracts WHERE id = $1`, id)
}

func (r *repository) LockContract(ctx context.Context, id uuid.UUID) (Contract, error) {
	return r.getContract(ctx, `SELECT `+contractColumns+` FROM client_contracts WHERE id = $1 FOR UPDATE`, id)
}

func (r *repository) getContract(ctx context.Context, query string, id uuid.UUID) (Contract, error) {
	c, err := scanContract(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Contract{}, ErrContractNotFound
		}
		return Contract{}, upstream("get contract", err)
	}
	return c, nil
}

func (r *repository) ListContracts(ctx context.Context, clientID uuid.UUID) ([]Contract, error) {
	return r.listContracts(ctx, "list contracts",
		`SELECT `+contractColumns+` FROM client_contracts WHERE client_id = $1 ORDER BY start_date, created_at`, clientID)
}

func (r *repository) ListContractsActiveAt(ctx context.Context, clientID uuid.UUID, asOf time.Time) ([]Contract, error) {
	return r.listContracts(ctx, "list active contracts",
		`SELECT `+contractColumns+` FROM client_contracts
WHERE client_id = $1 AND start_date <= $2 AND (end_date IS NULL OR end_date >= $2)
ORDER BY start_date, created_at`, clientID, civilDate(asOf))
}

func (r *repository) ListOpenEndedContracts(ctx context.Context, clientID uuid.UUID) ([]Contract, error) {
	return r.listContracts(ctx, "list open contracts",
		`SELECT `+contractColumns+` FROM client_contracts WHERE client_id = $1 AND end_date IS NULL ORDER BY start_date`, clientID)
}

func (r *repository) listContracts(ctx context.Context, op, query string, args ...interface{}) ([]Contract, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, upstream(op, err)
	}
	defer rows.Close()

	var out []Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, upstream(op, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, upstream(op, err)
	}
	return out, nil
}

func (r *repository) InsertContract(ctx context.Context, c Contract) (Contract, error) {
	var (
		unit  *string
		every *int32
	)
	if c.IsRecurring {
		u := string(c.RecurrenceUnit)
		e := int32(c.RecurrenceEvery)
		unit, every = &u, &e
	}
	row := r.db.QueryRow(ctx, `INSERT INTO client_contracts
(id, client_id, start_date, end_date, is_recurring, recurrence_unit, recurrence_every, default_goal, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
RETURNING `+contractColumns,
		c.ID, c.ClientID, c.StartDate, c.EndDate, c.IsRecurring, unit, every, c.DefaultGoal)
	inserted, err := scanContract(row)
	if err != nil {
		if db.IsUniqueViolation(err, constraintOneOpenContract) {
			return Contract{}, ErrOpenContractExists
		}
		return Contract{}, upstream("insert contract", err)
	}
	return inserted, nil
}

func (r *repository) SetContractEnd(ctx context.Context, id uuid.UUID, end time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE client_contracts SET end_date = $2, updated_at = NOW() WHERE id = $1`, id, civilDate(end))
	if err != nil {
		return upstream("set contract end", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrContractNotFound
	}
	return nil
}

func (r *repository) DeleteContract(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM contract_periods WHERE contract_id = $1`, id); err != nil {
		return upstream("delete contract periods", err)
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM client_contracts WHERE id = $1`, id)
	if err != nil {
		return upstream("delete contract", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrContractNotFound
	}
	return nil
}

const periodColumns = `id, contract_id, period_start, period_end, goal, status, performance_percent, created_at, updated_at`

func scanPeriod(row pgx.Row) (Period, error) {
	var p Period
	if err := row.Scan(&p.ID, &p.ContractID, &p.PeriodStart, &p.PeriodEnd, &p.Goal, &p.Status, &p.PerformancePercent, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return Period{}, err
	}
	p.PeriodStart = civilDate(p.PeriodStart)
	p.PeriodEnd = civilDate(p.PeriodEnd)
	return p, nil
}

func (r *repository) GetPeriod(ctx context.Context, id uuid.UUID) (Period, error) {
	p, err := scanPeriod(r.db.QueryRow(ctx, `SELECT `+periodColumns+` FROM contract_periods WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{}, ErrPeriodNotFound
		}
		return Period{}, upstream("get period", err)
	}
	return p, nil
}

func (r *repository) ListPeriods(ctx context.Context, contractID uuid.UUID) ([]Period, error) {
	rows, err := r.db.Query(ctx, `SELECT `+periodColumns+` FROM contract_periods WHERE contract_id = $1 ORDER BY period_start`, contractID)
	if err != nil {
		return nil, upstream("list periods", err)
	}
	defer rows.Close()

	var out []Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, upstream("list periods", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, upstream("list periods", err)
	}
	return out, nil
}

func (r *repository) InsertPeriod(ctx context.Context, p Period) (Period, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO contract_periods
(id, contract_id, period_start, period_end, goal, status, performance_percent, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
RETURNING `+periodColumns,
		p.ID, p.ContractID, p.PeriodStart, p.PeriodEnd, p.Goal, p.Status, p.PerformancePercent)
	inserted, err := scanPeriod(row)
	if err != nil {
		if db.IsExclusionViolation(err, constraintNoOverlap) {
			return Period{}, ErrOverlap
		}
		return Period{}, upstream("insert period", err)
	}
	return inserted, nil
}

func (r *repository) UpdatePeriodGoal(ctx context.Context, id uuid.UUID, goal int) error {
	tag, err := r.db.Exec(ctx, `UPDATE contract_periods SET goal = $2, updated_at = NOW() WHERE id = $1`, id, goal)
	if err != nil {
		return upstream("update period goal", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPeriodNotFound
	}
	return nil
}

func (r *repository) UpdatePeriodPerformance(ctx context.Context, id uuid.UUID, percent decimal.Decimal) error {
	tag, err := r.db.Exec(ctx, `UPDATE contract_periods SET performance_percent = $2, updated_at = NOW() WHERE id = $1`, id, percent)
	if err != nil {
		return upstream("update period performance", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPeriodNotFound
	}
	return nil
}

func (r *repository) DeletePeriod(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM contract_periods WHERE id = $1`, id)
	if err != nil {
		return upstream("delete period", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPeriodNotFound
	}
	return nil
}

func (r *repository) ListActivePeriodsAt(ctx context.Context, asOf time.Time) ([]PeriodRef, error) {
	rows, err := r.db.Query(ctx, `SELECT p.id, c.client_id
FROM contract_periods p
JOIN client_contracts c ON c.id = p.contract_id
WHERE p.status = $1 AND p.period_start <= $2 AND p.period_end >= $2
ORDER BY c.client_id, p.period_start`, PeriodStatusActive, civilDate(asOf))
	if err != nil {
		return nil, upstream("list active periods", err)
	}
	defer rows.Close()

	var refs []PeriodRef
	for rows.Next() {
		var ref PeriodRef
		if err := rows.Scan(&ref.PeriodID, &ref.ClientID); err != nil {
			return nil, upstream("list active periods", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, upstream("list active periods", err)
	}
	return refs, nil
}

// ListAppointmentsBetween returns the client's appointments dated within the
// civil days [from, to].
func (r *repository) ListAppointmentsBetween(ctx context.Context, clientID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `SELECT id, client_id, contact_id, date, status
FROM appointments
WHERE client_id = $1 AND date >= $2 AND date < $3
ORDER BY date`, clientID, civilDate(from), civilDate(to).AddDate(0, 0, 1))
	if err != nil {
		return nil, upstream("list appointments", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(&a.ID, &a.ClientID, &a.ContactID, &a.Date, &a.Status); err != nil {
			return nil, upstream("list appointments", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, upstream("list appointments", err)
	}
	return out, nil
}

func upstream(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", shared.ErrUpstream, op, err)
}
