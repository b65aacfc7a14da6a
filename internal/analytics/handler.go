package analytics

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/salesdesk/salesdesk/internal/platform/httpx"
	"github.com/salesdesk/salesdesk/internal/rbac"
	"github.com/salesdesk/salesdesk/internal/shared"
)

// Handler serves the client dashboard.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
	now     func() time.Time
}

// NewHandler constructs the analytics handler. now supplies the default as_of
// day and may be nil.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware, now func() time.Time) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Handler{logger: logger, service: service, rbac: rbac, now: now}
}

// MountRoutes registers analytics endpoints under r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAny(shared.PermAnalyticsView)).Get("/clients/{clientID}/dashboard", h.dashboard)
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	clientID, err := uuid.Parse(chi.URLParam(r, "clientID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, http.StatusText(http.StatusBadRequest), "clientID must be a UUID")
		return
	}
	asOf, err := httpx.ParseDate(r.URL.Query().Get("as_of"), civilDate(h.now()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	dashboard, err := h.service.ClientDashboard(r.Context(), clientID, asOf)
	if err != nil {
		if httpx.StatusFor(err) >= http.StatusInternalServerError {
			h.logger.ErrorContext(r.Context(), "dashboard failed",
				slog.String("client_id", clientID.String()),
				slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dashboard)
}
