package reports

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dukapos/dukapos/internal/auth"
	"github.com/dukapos/dukapos/internal/platform/httpx"
	"github.com/dukapos/dukapos/internal/shared"
)

// Handler manages report endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	mw      auth.Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw auth.Middleware) *Handler {
	return &Handler{logger: logger, service: service, mw: mw}
}

// MountRoutes registers report routes. The summary report is owner-only;
// the dashboard serves every authenticated user.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/dashboard", h.dashboard)
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireOwner)
		r.Get("/reports/summary", h.summary)
	})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	now := time.Now()
	from := now.AddDate(0, 0, -30)
	to := now
	if raw := q.Get("startDate"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid startDate")
			return
		}
		from = t
	}
	if raw := q.Get("endDate"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid endDate")
			return
		}
		to = t
	}
	if to.Before(from) {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "endDate before startDate")
		return
	}

	summary, err := h.service.Summary(r.Context(), from, to)
	if err != nil {
		h.logger.Error("summary report", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	claims, _ := shared.ClaimsFromContext(r.Context())
	dash, err := h.service.Dashboard(r.Context(), claims)
	if err != nil {
		h.logger.Error("dashboard", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dash)
}
