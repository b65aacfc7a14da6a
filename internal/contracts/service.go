package contracts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/salesdesk/salesdesk/internal/rbac"
	"github.com/salesdesk/salesdesk/internal/shared"
)

// Authorizer decides whether an actor may perform action on resource.
type Authorizer interface {
	Can(actor shared.Actor, action string, resource rbac.Resource) bool
}

// AuditRecorder persists audit trail entries.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyGuard claims request keys so retried creates are not applied twice.
type IdempotencyGuard interface {
	CheckAndInsert(ctx context.Context, key, scope string) error
	Release(ctx context.Context, key, scope string) error
}

// ChangeNotifier is told about committed mutations, typically to invalidate
// cached analytics.
type ChangeNotifier interface {
	Bump(ctx context.Context) error
}

// Recorder receives business counters.
type Recorder interface {
	ConsistencyAnomaly(kind string)
	Mutation(entity, action string)
}

// ServiceConfig wires the lifecycle manager. Repo and Policy are required.
type ServiceConfig struct {
	Repo        Repository
	Policy      Authorizer
	Audit       AuditRecorder
	Idempotency IdempotencyGuard
	Notifier    ChangeNotifier
	Metrics     Recorder
	Logger      *slog.Logger
	Clock       func() time.Time
}

// Service is the contract and period lifecycle manager.
type Service struct {
	repo        Repository
	policy      Authorizer
	audit       AuditRecorder
	idempotency IdempotencyGuard
	notifier    ChangeNotifier
	metrics     Recorder
	logger      *slog.Logger
	now         func() time.Time
}

// NewService constructs the lifecycle manager.
func NewService(cfg ServiceConfig) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		repo:        cfg.Repo,
		policy:      cfg.Policy,
		audit:       cfg.Audit,
		idempotency: cfg.Idempotency,
		notifier:    cfg.Notifier,
		metrics:     cfg.Metrics,
		logger:      logger.With(slog.String("component", "contracts")),
		now:         clock,
	}
}

// CreateContractInput carries the fields of a new contract. FirstPeriodEnd
// overrides the computed end of the first period.
type CreateContractInput struct {
	ClientID        uuid.UUID
	StartDate       time.Time
	EndDate         *time.Time
	IsRecurring     bool
	RecurrenceUnit  RecurrenceUnit
	RecurrenceEvery int
	DefaultGoal     int
	FirstPeriodEnd  *time.Time
	IdempotencyKey  string
}

const idempotencyScopeCreateContract = "contracts.create"

// CreateContract persists a contract together with its first period in one
// transaction.
func (s *Service) CreateContract(ctx context.Context, in CreateContractInput) (ContractWithPeriods, error) {
	actor, err := s.authorize(ctx, shared.PermContractsCreate, rbac.ForClient(rbac.KindContract, in.ClientID))
	if err != nil {
		return ContractWithPeriods{}, err
	}
	contract, firstEnd, err := prepareContract(in)
	if err != nil {
		return ContractWithPeriods{}, err
	}

	if in.IdempotencyKey != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, in.IdempotencyKey, idempotencyScopeCreateContract); err != nil {
			return ContractWithPeriods{}, err
		}
	}

	var result ContractWithPeriods
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if contract.OpenEnded() {
			open, err := repo.ListOpenEndedContracts(ctx, contract.ClientID)
			if err != nil {
				return err
			}
			if len(open) > 0 {
				return fmt.Errorf("%w: contract %s", ErrOpenContractExists, open[0].ID)
			}
		}
		inserted, err := repo.InsertContract(ctx, contract)
		if err != nil {
			return err
		}
		first, err := ValidateCreate(nil, Period{
			ID:          uuid.New(),
			ContractID:  inserted.ID,
			PeriodStart: inserted.StartDate,
			PeriodEnd:   firstEnd,
			Goal:        inserted.DefaultGoal,
		})
		if err != nil {
			return err
		}
		period, err := repo.InsertPeriod(ctx, first)
		if err != nil {
			return err
		}
		result = ContractWithPeriods{Contract: inserted, Periods: []Period{period}}
		return nil
	})
	if err != nil {
		if in.IdempotencyKey != "" && s.idempotency != nil {
			if relErr := s.idempotency.Release(ctx, in.IdempotencyKey, idempotencyScopeCreateContract); relErr != nil {
				s.logger.WarnContext(ctx, "release idempotency key", slog.Any("error", relErr))
			}
		}
		return ContractWithPeriods{}, err
	}

	s.afterMutation(ctx, actor, "contract", "create", result.ID, map[string]any{
		"client_id":  result.ClientID.String(),
		"start_date": result.StartDate.Format(dateLayout),
		"open_ended": result.OpenEnded(),
		"period_id":  result.Periods[0].ID.String(),
	})
	return result, nil
}

// prepareContract validates the input and returns the contract row together
// with the end date of its first period.
func prepareContract(in CreateContractInput) (Contract, time.Time, error) {
	if in.DefaultGoal < 1 {
		return Contract{}, time.Time{}, ErrInvalidGoal
	}
	c := Contract{
		ID:          uuid.New(),
		ClientID:    in.ClientID,
		StartDate:   civilDate(in.StartDate),
		IsRecurring: in.IsRecurring,
		DefaultGoal: in.DefaultGoal,
	}
	if in.EndDate != nil {
		end := civilDate(*in.EndDate)
		if end.Before(c.StartDate) {
			return Contract{}, time.Time{}, ErrInvalidContract
		}
		c.EndDate = &end
	}
	if in.IsRecurring {
		if !in.RecurrenceUnit.Valid() || in.RecurrenceEvery < 1 {
			return Contract{}, time.Time{}, ErrInvalidRecurrence
		}
		c.RecurrenceUnit = in.RecurrenceUnit
		c.RecurrenceEvery = in.RecurrenceEvery
	}

	var firstEnd time.Time
	switch {
	case in.FirstPeriodEnd != nil:
		firstEnd = civilDate(*in.FirstPeriodEnd)
		if c.EndDate != nil && firstEnd.After(*c.EndDate) {
			return Contract{}, time.Time{}, ErrOutsideContract
		}
	case !c.IsRecurring:
		if c.EndDate == nil {
			return Contract{}, time.Time{}, fmt.Errorf("%w: an open-ended one-off contract needs first_period_end", ErrInvalidRange)
		}
		firstEnd = *c.EndDate
	default:
		end, err := NextPeriodEnd(c.StartDate, c.RecurrenceUnit, c.RecurrenceEvery)
		if err != nil {
			return Contract{}, time.Time{}, err
		}
		if c.EndDate != nil && end.After(*c.EndDate) {
			end = *c.EndDate
		}
		firstEnd = end
	}
	return c, firstEnd, nil
}

// ResolveActiveContract returns the client's contract covering asOf, or nil
// when none does. Several matches indicate corrupted data; the earliest
// starting one is returned and the anomaly is reported.
func (s *Service) ResolveActiveContract(ctx context.Context, clientID uuid.UUID, asOf time.Time) (*Contract, error) {
	if _, err := s.authorize(ctx, shared.PermContractsView, rbac.ForClient(rbac.KindContract, clientID)); err != nil {
		return nil, err
	}
	return s.resolveActive(ctx, clientID, asOf)
}

func (s *Service) resolveActive(ctx context.Context, clientID uuid.UUID, asOf time.Time) (*Contract, error) {
	matches, err := s.repo.ListContractsActiveAt(ctx, clientID, civilDate(asOf))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}
	if len(matches) > 1 {
		ids := make([]string, 0, len(matches))
		for _, c := range matches {
			ids = append(ids, c.ID.String())
		}
		s.logger.ErrorContext(ctx, "multiple active contracts",
			slog.String("client_id", clientID.String()),
			slog.String("as_of", civilDate(asOf).Format(dateLayout)),
			slog.Any("contract_ids", ids),
			slog.Any("error", ErrMultipleActiveContracts))
		if s.metrics != nil {
			s.metrics.ConsistencyAnomaly("multiple_active_contracts")
		}
	}
	active := matches[0]
	return &active, nil
}

// GetContract returns a contract with its periods.
func (s *Service) GetContract(ctx context.Context, contractID uuid.UUID) (ContractWithPeriods, error) {
	contract, err := s.repo.GetContract(ctx, contractID)
	if err != nil {
		return ContractWithPeriods{}, err
	}
	if _, err := s.authorize(ctx, shared.PermContractsView, rbac.ForClient(rbac.KindContract, contract.ClientID)); err != nil {
		return ContractWithPeriods{}, err
	}
	periods, err := s.repo.ListPeriods(ctx, contractID)
	if err != nil {
		return ContractWithPeriods{}, err
	}
	return ContractWithPeriods{Contract: contract, Periods: periods}, nil
}

// ListContracts returns the client's contracts ordered by start date.
func (s *Service) ListContracts(ctx context.Context, clientID uuid.UUID) ([]Contract, error) {
	if _, err := s.authorize(ctx, shared.PermContractsView, rbac.ForClient(rbac.KindContract, clientID)); err != nil {
		return nil, err
	}
	contracts, err := s.repo.ListContracts(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if contracts == nil {
		contracts = []Contract{}
	}
	return contracts, nil
}

// ListPeriods returns the periods of a contract ordered by start date.
func (s *Service) ListPeriods(ctx context.Context, contractID uuid.UUID) ([]Period, error) {
	contract, err := s.repo.GetContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, shared.PermContractsView, rbac.ForClient(rbac.KindPeriod, contract.ClientID)); err != nil {
		return nil, err
	}
	periods, err := s.repo.ListPeriods(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if periods == nil {
		periods = []Period{}
	}
	return periods, nil
}

// CreatePeriod adds a period to a contract. The contract row stays locked
// while siblings are checked so concurrent creations serialise.
func (s *Service) CreatePeriod(ctx context.Context, contractID uuid.UUID, start, end time.Time, goal int) (Period, error) {
	contract, err := s.repo.GetContract(ctx, contractID)
	if err != nil {
		return Period{}, err
	}
	actor, err := s.authorize(ctx, shared.PermPeriodsCreate, rbac.ForClient(rbac.KindPeriod, contract.ClientID))
	if err != nil {
		return Period{}, err
	}

	var created Period
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		locked, err := repo.LockContract(ctx, contractID)
		if err != nil {
			return err
		}
		created, err = s.insertPeriod(ctx, repo, locked, start, end, goal)
		return err
	})
	if err != nil {
		return Period{}, err
	}

	s.afterMutation(ctx, actor, "period", "create", created.ID, periodMeta(created))
	return created, nil
}

// CreateNextPeriod appends the period following the latest one, aligned on
// the contract recurrence. A nil goal falls back to the contract default.
func (s *Service) CreateNextPeriod(ctx context.Context, contractID uuid.UUID, goal *int) (Period, error) {
	contract, err := s.repo.GetContract(ctx, contractID)
	if err != nil {
		return Period{}, err
	}
	actor, err := s.authorize(ctx, shared.PermPeriodsCreate, rbac.ForClient(rbac.KindPeriod, contract.ClientID))
	if err != nil {
		return Period{}, err
	}
	if goal != nil {
		if err := ValidateGoalUpdate(goal); err != nil {
			return Period{}, err
		}
	}

	var created Period
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		locked, err := repo.LockContract(ctx, contractID)
		if err != nil {
			return err
		}
		periods, err := repo.ListPeriods(ctx, contractID)
		if err != nil {
			return err
		}
		if len(periods) == 0 {
			return fmt.Errorf("%w: contract %s", ErrContractWithoutPeriods, contractID)
		}
		lastEnd := periods[0].PeriodEnd
		for _, p := range periods[1:] {
			if p.PeriodEnd.After(lastEnd) {
				lastEnd = p.PeriodEnd
			}
		}
		start, end, err := NextPeriodAfter(locked, lastEnd)
		if err != nil {
			return err
		}
		target := locked.DefaultGoal
		if goal != nil {
			target = *goal
		}
		created, err = s.insertPeriodChecked(ctx, repo, locked, periods, start, end, target)
		return err
	})
	if err != nil {
		return Period{}, err
	}

	s.afterMutation(ctx, actor, "period", "create_next", created.ID, periodMeta(created))
	return created, nil
}

func (s *Service) insertPeriod(ctx context.Context, repo Repository, contract Contract, start, end time.Time, goal int) (Period, error) {
	siblings, err := repo.ListPeriods(ctx, contract.ID)
	if err != nil {
		return Period{}, err
	}
	return s.insertPeriodChecked(ctx, repo, contract, siblings, start, end, goal)
}

func (s *Service) insertPeriodChecked(ctx context.Context, repo Repository, contract Contract, siblings []Period, start, end time.Time, goal int) (Period, error) {
	proposed, err := ValidateCreate(siblings, Period{
		ID:          uuid.New(),
		ContractID:  contract.ID,
		PeriodStart: start,
		PeriodEnd:   end,
		Goal:        goal,
	})
	if err != nil {
		return Period{}, err
	}
	if !contract.Covers(proposed.PeriodStart) || !contract.Covers(proposed.PeriodEnd) {
		return Period{}, ErrOutsideContract
	}
	return repo.InsertPeriod(ctx, proposed)
}

// DeletePeriod removes a period unless it is the last one of its contract.
func (s *Service) DeletePeriod(ctx context.Context, periodID uuid.UUID) error {
	period, err := s.repo.GetPeriod(ctx, periodID)
	if err != nil {
		return err
	}
	contract, err := s.repo.GetContract(ctx, period.ContractID)
	if err != nil {
		return err
	}
	actor, err := s.authorize(ctx, shared.PermPeriodsDelete, rbac.ForClient(rbac.KindPeriod, contract.ClientID))
	if err != nil {
		return err
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if _, err := repo.LockContract(ctx, period.ContractID); err != nil {
			return err
		}
		siblings, err := repo.ListPeriods(ctx, period.ContractID)
		if err != nil {
			return err
		}
		if err := ValidateDelete(siblings, periodID); err != nil {
			return err
		}
		return repo.DeletePeriod(ctx, periodID)
	})
	if err != nil {
		return err
	}

	s.afterMutation(ctx, actor, "period", "delete", periodID, periodMeta(period))
	return nil
}

// UpdatePeriodGoal replaces the goal of a period.
func (s *Service) UpdatePeriodGoal(ctx context.Context, periodID uuid.UUID, goal *int) error {
	if _, ok := shared.ActorFromContext(ctx); !ok {
		return shared.ErrUnauthorized
	}
	if err := ValidateGoalUpdate(goal); err != nil {
		return err
	}
	period, err := s.repo.GetPeriod(ctx, periodID)
	if err != nil {
		return err
	}
	contract, err := s.repo.GetContract(ctx, period.ContractID)
	if err != nil {
		return err
	}
	actor, err := s.authorize(ctx, shared.PermPeriodsUpdateGoal, rbac.ForClient(rbac.KindPeriod, contract.ClientID))
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePeriodGoal(ctx, periodID, *goal); err != nil {
		return err
	}

	s.afterMutation(ctx, actor, "period", "update_goal", periodID, map[string]any{
		"contract_id": period.ContractID.String(),
		"from":        period.Goal,
		"to":          *goal,
	})
	return nil
}

// CloseContract sets the end date of an open-ended contract. Existing periods
// must remain inside the closed window.
func (s *Service) CloseContract(ctx context.Context, contractID uuid.UUID, endDate time.Time) (Contract, error) {
	contract, err := s.repo.GetContract(ctx, contractID)
	if err != nil {
		return Contract{}, err
	}
	actor, err := s.authorize(ctx, shared.PermContractsClose, rbac.ForClient(rbac.KindContract, contract.ClientID))
	if err != nil {
		return Contract{}, err
	}
	end := civilDate(endDate)

	var closed Contract
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		locked, err := repo.LockContract(ctx, contractID)
		if err != nil {
			return err
		}
		if !locked.OpenEnded() {
			return ErrContractClosed
		}
		if end.Before(locked.StartDate) {
			return ErrInvalidContract
		}
		periods, err := repo.ListPeriods(ctx, contractID)
		if err != nil {
			return err
		}
		for _, p := range periods {
			if p.PeriodEnd.After(end) {
				return fmt.Errorf("%w: period %s ends %s", ErrOutsideContract, p.ID, p.PeriodEnd.Format(dateLayout))
			}
		}
		if err := repo.SetContractEnd(ctx, contractID, end); err != nil {
			return err
		}
		locked.EndDate = &end
		closed = locked
		return nil
	})
	if err != nil {
		return Contract{}, err
	}

	s.afterMutation(ctx, actor, "contract", "close", contractID, map[string]any{
		"end_date": end.Format(dateLayout),
	})
	return closed, nil
}

// DeleteContract removes a contract and all of its periods.
func (s *Service) DeleteContract(ctx context.Context, contractID uuid.UUID) error {
	contract, err := s.repo.GetContract(ctx, contractID)
	if err != nil {
		return err
	}
	actor, err := s.authorize(ctx, shared.PermContractsDelete, rbac.ForClient(rbac.KindContract, contract.ClientID))
	if err != nil {
		return err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if _, err := repo.LockContract(ctx, contractID); err != nil {
			return err
		}
		return repo.DeleteContract(ctx, contractID)
	})
	if err != nil {
		return err
	}

	s.afterMutation(ctx, actor, "contract", "delete", contractID, map[string]any{
		"client_id": contract.ClientID.String(),
	})
	return nil
}

// CurrentPerformance computes live performance of the period containing asOf
// within the client's active contract. It returns nil when the client has no
// active contract or no period covers asOf.
func (s *Service) CurrentPerformance(ctx context.Context, clientID uuid.UUID, asOf time.Time) (*PeriodPerformance, error) {
	if _, err := s.authorize(ctx, shared.PermAnalyticsView, rbac.ForClient(rbac.KindAnalytics, clientID)); err != nil {
		return nil, err
	}
	active, err := s.currentPeriod(ctx, clientID, asOf)
	if err != nil || active == nil {
		return nil, err
	}
	appointments, err := s.repo.ListAppointmentsBetween(ctx, clientID, active.Period.PeriodStart, active.Period.PeriodEnd)
	if err != nil {
		return nil, err
	}
	perf, err := MeasurePeriod(*active, appointments)
	if err != nil {
		s.reportAnomaly(ctx, "non_positive_goal", err)
		return nil, err
	}
	return perf, nil
}

// CurrentPeriod returns the active contract together with its period that
// contains asOf, or nil when the client has none.
func (s *Service) CurrentPeriod(ctx context.Context, clientID uuid.UUID, asOf time.Time) (*ActivePeriod, error) {
	if _, err := s.authorize(ctx, shared.PermAnalyticsView, rbac.ForClient(rbac.KindAnalytics, clientID)); err != nil {
		return nil, err
	}
	return s.currentPeriod(ctx, clientID, asOf)
}

func (s *Service) currentPeriod(ctx context.Context, clientID uuid.UUID, asOf time.Time) (*ActivePeriod, error) {
	contract, err := s.resolveActive(ctx, clientID, asOf)
	if err != nil || contract == nil {
		return nil, err
	}
	periods, err := s.repo.ListPeriods(ctx, contract.ID)
	if err != nil {
		return nil, err
	}
	if len(periods) == 0 {
		s.reportAnomaly(ctx, "contract_without_periods", fmt.Errorf("%w: contract %s", ErrContractWithoutPeriods, contract.ID))
		return nil, nil
	}
	for _, p := range periods {
		if p.Contains(asOf) {
			return &ActivePeriod{Contract: *contract, Period: p}, nil
		}
	}
	return nil, nil
}

// RefreshPerformance recomputes and stores the performance snapshot of a period.
func (s *Service) RefreshPerformance(ctx context.Context, periodID uuid.UUID) (Period, error) {
	period, err := s.repo.GetPeriod(ctx, periodID)
	if err != nil {
		return Period{}, err
	}
	contract, err := s.repo.GetContract(ctx, period.ContractID)
	if err != nil {
		return Period{}, err
	}
	actor, err := s.authorize(ctx, shared.PermPeriodsRefreshPerf, rbac.ForClient(rbac.KindPeriod, contract.ClientID))
	if err != nil {
		return Period{}, err
	}
	refreshed, err := s.refreshSnapshot(ctx, contract.ClientID, period)
	if err != nil {
		return Period{}, err
	}
	s.afterMutation(ctx, actor, "period", "refresh_performance", periodID, map[string]any{
		"performance_percent": refreshed.PerformancePercent.StringFixed(2),
	})
	return refreshed, nil
}

func (s *Service) refreshSnapshot(ctx context.Context, clientID uuid.UUID, period Period) (Period, error) {
	appointments, err := s.repo.ListAppointmentsBetween(ctx, clientID, period.PeriodStart, period.PeriodEnd)
	if err != nil {
		return Period{}, err
	}
	percent, err := ComputePerformance(period, appointments)
	if err != nil {
		if errors.Is(err, ErrNonPositiveGoal) {
			s.reportAnomaly(ctx, "non_positive_goal", err)
		}
		return Period{}, err
	}
	if err := s.repo.UpdatePeriodPerformance(ctx, period.ID, percent); err != nil {
		return Period{}, err
	}
	period.PerformancePercent = percent
	return period, nil
}

// RefreshSummary reports the outcome of a bulk snapshot refresh.
type RefreshSummary struct {
	Refreshed int
	Failed    int
}

// RefreshActiveSnapshots refreshes every active period containing asOf.
// Failures of individual periods are logged and counted; the run continues.
func (s *Service) RefreshActiveSnapshots(ctx context.Context, asOf time.Time) (RefreshSummary, error) {
	if _, err := s.authorize(ctx, shared.PermPeriodsRefreshPerf, rbac.Resource{Kind: rbac.KindPeriod}); err != nil {
		return RefreshSummary{}, err
	}
	refs, err := s.repo.ListActivePeriodsAt(ctx, civilDate(asOf))
	if err != nil {
		return RefreshSummary{}, err
	}
	var summary RefreshSummary
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		period, err := s.repo.GetPeriod(ctx, ref.PeriodID)
		if err == nil {
			_, err = s.refreshSnapshot(ctx, ref.ClientID, period)
		}
		if err != nil {
			summary.Failed++
			s.logger.WarnContext(ctx, "refresh period performance",
				slog.String("period_id", ref.PeriodID.String()),
				slog.Any("error", err))
			continue
		}
		summary.Refreshed++
	}
	if summary.Refreshed > 0 {
		s.notify(ctx)
	}
	return summary, nil
}

// Now returns the service clock's current civil date.
func (s *Service) Now() time.Time {
	return civilDate(s.now())
}

func (s *Service) authorize(ctx context.Context, action string, resource rbac.Resource) (shared.Actor, error) {
	actor, ok := shared.ActorFromContext(ctx)
	if !ok {
		return shared.Actor{}, shared.ErrUnauthorized
	}
	if s.policy == nil || !s.policy.Can(actor, action, resource) {
		return shared.Actor{}, fmt.Errorf("%w: %s", shared.ErrForbidden, action)
	}
	return actor, nil
}

func (s *Service) reportAnomaly(ctx context.Context, kind string, err error) {
	s.logger.ErrorContext(ctx, "data consistency anomaly", slog.String("kind", kind), slog.Any("error", err))
	if s.metrics != nil {
		s.metrics.ConsistencyAnomaly(kind)
	}
}

func (s *Service) afterMutation(ctx context.Context, actor shared.Actor, entity, action string, id uuid.UUID, meta map[string]any) {
	if s.metrics != nil {
		s.metrics.Mutation(entity, action)
	}
	if s.audit != nil {
		err := s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actor.UserID,
			Action:   entity + "." + action,
			Entity:   entity,
			EntityID: id.String(),
			Meta:     meta,
			At:       s.now(),
		})
		if err != nil {
			s.logger.WarnContext(ctx, "audit record failed",
				slog.String("entity", entity),
				slog.String("entity_id", id.String()),
				slog.Any("error", err))
		}
	}
	s.notify(ctx)
}

func (s *Service) notify(ctx context.Context) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Bump(ctx); err != nil {
		s.logger.WarnContext(ctx, "invalidate analytics cache", slog.Any("error", err))
	}
}

func periodMeta(p Period) map[string]any {
	return map[string]any{
		"contract_id":  p.ContractID.String(),
		"period_start": p.PeriodStart.Format(dateLayout),
		"period_end":   p.PeriodEnd.Format(dateLayout),
		"goal":         p.Goal,
	}
}

