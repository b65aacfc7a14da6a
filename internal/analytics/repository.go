package analytics

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/salesdesk/salesdesk/internal/contracts"
	"github.com/salesdesk/salesdesk/internal/shared"
)

// Repository reads the event sources of the dashboard.
type Repository interface {
	ListAppointments(ctx context.Context, clientID uuid.UUID) ([]contracts.Appointment, error)
	ListContacts(ctx context.Context, clientID uuid.UUID) ([]Contact, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a PostgreSQL backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) ListAppointments(ctx context.Context, clientID uuid.UUID) ([]contracts.Appointment, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, client_id, contact_id, date, status
FROM appointments WHERE client_id = $1 ORDER BY date`, clientID)
	if err != nil {
		return nil, fmt.Errorf("%w: list appointments: %w", shared.ErrUpstream, err)
	}
	defer rows.Close()

	var out []contracts.Appointment
	for rows.Next() {
		var a contracts.Appointment
		if err := rows.Scan(&a.ID, &a.ClientID, &a.ContactID, &a.Date, &a.Status); err != nil {
			return nil, fmt.Errorf("%w: scan appointment: %w", shared.ErrUpstream, err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list appointments: %w", shared.ErrUpstream, err)
	}
	return out, nil
}

func (r *pgRepository) ListContacts(ctx context.Context, clientID uuid.UUID) ([]Contact, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, client_id, created_at FROM contacts WHERE client_id = $1`, clientID)
	if err != nil {
		return nil, fmt.Errorf("%w: list contacts: %w", shared.ErrUpstream, err)
	}
	defer rows.Close()

	var out []Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.ID, &c.ClientID, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan contact: %w", shared.ErrUpstream, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list contacts: %w", shared.ErrUpstream, err)
	}
	return out, nil
}
