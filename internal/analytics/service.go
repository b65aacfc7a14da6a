package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/salesdesk/salesdesk/internal/contracts"
	"github.com/salesdesk/salesdesk/internal/rbac"
	"github.com/salesdesk/salesdesk/internal/shared"
)

// PeriodSource resolves the contract period in progress for a client.
type PeriodSource interface {
	CurrentPeriod(ctx context.Context, clientID uuid.UUID, asOf time.Time) (*contracts.ActivePeriod, error)
}

// Dashboard is the client analytics view.
type Dashboard struct {
	ClientID    uuid.UUID                    `json:"client_id"`
	AsOf        string                       `json:"as_of"`
	KPIs        KPIs                         `json:"kpis"`
	Performance *contracts.PeriodPerformance `json:"performance"`
}

// Service builds client dashboards. Appointment and contact aggregates are
// recomputed on every call since the CRUD layer writes those tables without
// notifying this process; only the contract period lookup is cached.
type Service struct {
	repo    Repository
	periods PeriodSource
	cache   *Cache
	policy  contracts.Authorizer
	logger  *slog.Logger
}

// NewService wires the dashboard dependencies. periods and cache may be nil.
func NewService(repo Repository, periods PeriodSource, cache *Cache, policy contracts.Authorizer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:    repo,
		periods: periods,
		cache:   cache,
		policy:  policy,
		logger:  logger.With(slog.String("component", "analytics")),
	}
}

// ClientDashboard computes KPIs for the client as of the given day together
// with the performance of the period in progress.
func (s *Service) ClientDashboard(ctx context.Context, clientID uuid.UUID, asOf time.Time) (Dashboard, error) {
	actor, ok := shared.ActorFromContext(ctx)
	if !ok {
		return Dashboard{}, shared.ErrUnauthorized
	}
	if s.policy == nil || !s.policy.Can(actor, shared.PermAnalyticsView, rbac.ForClient(rbac.KindAnalytics, clientID)) {
		return Dashboard{}, fmt.Errorf("%w: %s", shared.ErrForbidden, shared.PermAnalyticsView)
	}
	asOf = civilDate(asOf)

	var (
		appointments []contracts.Appointment
		contacts     []Contact
		active       *contracts.ActivePeriod
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		appointments, err = s.repo.ListAppointments(gctx, clientID)
		return err
	})
	g.Go(func() error {
		var err error
		contacts, err = s.repo.ListContacts(gctx, clientID)
		return err
	})
	g.Go(func() error {
		var err error
		active, err = s.currentPeriod(gctx, clientID, asOf)
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	d := Dashboard{
		ClientID: clientID,
		AsOf:     asOf.Format("2006-01-02"),
		KPIs:     ComputeKPIs(appointments, contacts, asOf),
	}
	if active != nil {
		perf, err := contracts.MeasurePeriod(*active, appointments)
		if err != nil {
			s.logger.ErrorContext(ctx, "period cannot be measured",
				slog.String("period_id", active.Period.ID.String()),
				slog.Any("error", err))
			return Dashboard{}, err
		}
		d.Performance = perf
	}
	return d, nil
}

// currentPeriod resolves the period in progress through the cache. Contract
// and period mutations bump the cache version, so entries never outlive them.
func (s *Service) currentPeriod(ctx context.Context, clientID uuid.UUID, asOf time.Time) (*contracts.ActivePeriod, error) {
	if s.periods == nil {
		return nil, nil
	}
	if s.cache == nil {
		return s.periods.CurrentPeriod(ctx, clientID, asOf)
	}
	key, err := s.cache.BuildKey(ctx, keyActivePeriod(clientID, asOf))
	if err != nil {
		s.logger.WarnContext(ctx, "analytics cache unavailable", slog.Any("error", err))
		return s.periods.CurrentPeriod(ctx, clientID, asOf)
	}
	var out *contracts.ActivePeriod
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (interface{}, error) {
		return s.periods.CurrentPeriod(ctx, clientID, asOf)
	})
	if err != nil {
		if errors.Is(err, errCacheBackend) {
			s.logger.WarnContext(ctx, "analytics cache unavailable", slog.Any("error", err))
			return s.periods.CurrentPeriod(ctx, clientID, asOf)
		}
		return nil, err
	}
	return out, nil
}
