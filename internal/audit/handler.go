package audit

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dukapos/dukapos/internal/auth"
	"github.com/dukapos/dukapos/internal/platform/httpx"
)

// Handler exposes the audit trail to owners.
type Handler struct {
	logger *slog.Logger
	repo   *Repository
	mw     auth.Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, repo *Repository, mw auth.Middleware) *Handler {
	return &Handler{logger: logger, repo: repo, mw: mw}
}

// MountRoutes registers the audit routes. Owner-only.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireOwner)
		r.Get("/audit-logs", h.list)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := Filter{
		Entity:   q.Get("entity"),
		EntityID: q.Get("entityId"),
	}
	filter.ActorID, _ = strconv.ParseInt(q.Get("actorId"), 10, 64)
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))

	entries, err := h.repo.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list audit logs", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if entries == nil {
		entries = []Entry{}
	}
	httpx.JSON(w, http.StatusOK, entries)
}
