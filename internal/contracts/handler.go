package contracts

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/salesdesk/salesdesk/internal/platform/httpx"
	"github.com/salesdesk/salesdesk/internal/rbac"
	"github.com/salesdesk/salesdesk/internal/shared"
)

// Handler exposes the lifecycle manager over JSON.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	rbac     rbac.Middleware
}

// NewHandler constructs the contracts handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
		rbac:     rbac,
	}
}

// MountRoutes registers contract and period endpoints under r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermContractsView))
		r.Get("/clients/{clientID}/contracts", h.listContracts)
		r.Get("/clients/{clientID}/contracts/active", h.activeContract)
		r.Get("/contracts/{contractID}", h.getContract)
		r.Get("/contracts/{contractID}/periods", h.listPeriods)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermAnalyticsView))
		r.Get("/clients/{clientID}/performance", h.currentPerformance)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermContractsCreate))
		r.Post("/clients/{clientID}/contracts", h.createContract)
	})
	r.With(h.rbac.RequireAny(shared.PermContractsClose)).Post("/contracts/{contractID}/close", h.closeContract)
	r.With(h.rbac.RequireAny(shared.PermContractsDelete)).Delete("/contracts/{contractID}", h.deleteContract)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.PermPeriodsCreate))
		r.Post("/contracts/{contractID}/periods", h.createPeriod)
		r.Post("/contracts/{contractID}/periods/next", h.createNextPeriod)
	})
	r.With(h.rbac.RequireAny(shared.PermPeriodsUpdateGoal)).Patch("/periods/{periodID}/goal", h.updateGoal)
	r.With(h.rbac.RequireAny(shared.PermPeriodsDelete)).Delete("/periods/{periodID}", h.deletePeriod)
	r.With(h.rbac.RequireAny(shared.PermPeriodsRefreshPerf)).Post("/periods/{periodID}/performance/refresh", h.refreshPerformance)
}

func (h *Handler) listContracts(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.pathID(w, r, "clientID")
	if !ok {
		return
	}
	contracts, err := h.service.ListContracts(r.Context(), clientID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"contracts": contracts})
}

func (h *Handler) activeContract(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.pathID(w, r, "clientID")
	if !ok {
		return
	}
	asOf, err := httpx.ParseDate(r.URL.Query().Get("as_of"), h.service.Now())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	contract, err := h.service.ResolveActiveContract(r.Context(), clientID, asOf)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"contract": contract})
}

func (h *Handler) currentPerformance(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.pathID(w, r, "clientID")
	if !ok {
		return
	}
	asOf, err := httpx.ParseDate(r.URL.Query().Get("as_of"), h.service.Now())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	perf, err := h.service.CurrentPerformance(r.Context(), clientID, asOf)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"performance": perf})
}

func (h *Handler) createContract(w http.ResponseWriter, r *http.Request) {
	clientID, ok := h.pathID(w, r, "clientID")
	if !ok {
		return
	}
	var req CreateContractRequest
	if !h.decode(w, r, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	in.ClientID = clientID
	in.IdempotencyKey = strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	created, err := h.service.CreateContract(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) getContract(w http.ResponseWriter, r *http.Request) {
	contractID, ok := h.pathID(w, r, "contractID")
	if !ok {
		return
	}
	contract, err := h.service.GetContract(r.Context(), contractID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, contract)
}

func (h *Handler) closeContract(w http.ResponseWriter, r *http.Request) {
	contractID, ok := h.pathID(w, r, "contractID")
	if !ok {
		return
	}
	var req CloseContractRequest
	if !h.decode(w, r, &req) {
		return
	}
	end, err := httpx.ParseCivilDate(req.EndDate)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	closed, err := h.service.CloseContract(r.Context(), contractID, end)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, closed)
}

func (h *Handler) deleteContract(w http.ResponseWriter, r *http.Request) {
	contractID, ok := h.pathID(w, r, "contractID")
	if !ok {
		return
	}
	if err := h.service.DeleteContract(r.Context(), contractID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listPeriods(w http.ResponseWriter, r *http.Request) {
	contractID, ok := h.pathID(w, r, "contractID")
	if !ok {
		return
	}
	periods, err := h.service.ListPeriods(r.Context(), contractID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"periods": periods})
}

func (h *Handler) createPeriod(w http.ResponseWriter, r *http.Request) {
	contractID, ok := h.pathID(w, r, "contractID")
	if !ok {
		return
	}
	var req CreatePeriodRequest
	if !h.decode(w, r, &req) {
		return
	}
	start, err := httpx.ParseCivilDate(req.PeriodStart)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	end, err := httpx.ParseCivilDate(req.PeriodEnd)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	period, err := h.service.CreatePeriod(r.Context(), contractID, start, end, req.Goal)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, period)
}

func (h *Handler) createNextPeriod(w http.ResponseWriter, r *http.Request) {
	contractID, ok := h.pathID(w, r, "contractID")
	if !ok {
		return
	}
	var req NextPeriodRequest
	if err := httpx.DecodeOptionalJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	period, err := h.service.CreateNextPeriod(r.Context(), contractID, req.Goal)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, period)
}

func (h *Handler) updateGoal(w http.ResponseWriter, r *http.Request) {
	periodID, ok := h.pathID(w, r, "periodID")
	if !ok {
		return
	}
	var req UpdateGoalRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.service.UpdatePeriodGoal(r.Context(), periodID, req.Goal); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deletePeriod(w http.ResponseWriter, r *http.Request) {
	periodID, ok := h.pathID(w, r, "periodID")
	if !ok {
		return
	}
	if err := h.service.DeletePeriod(r.Context(), periodID); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) refreshPerformance(w http.ResponseWriter, r *http.Request) {
	periodID, ok := h.pathID(w, r, "periodID")
	if !ok {
		return
	}
	period, err := h.service.RefreshPerformance(r.Context(), periodID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, period)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, http.StatusText(http.StatusBadRequest), param+" must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		h.fail(w, r, err)
		return false
	}
	if err := h.validate.Struct(target); err != nil {
		h.fail(w, r, validationError(err))
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "contracts request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
