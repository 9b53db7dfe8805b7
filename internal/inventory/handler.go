package inventory

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/dukapos/dukapos/internal/auth"
	"github.com/dukapos/dukapos/internal/platform/httpx"
	"github.com/dukapos/dukapos/internal/shared"
)

// Handler manages inventory endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	mw        auth.Middleware
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, mw auth.Middleware) *Handler {
	return &Handler{logger: logger, service: service, mw: mw, validator: validator.New()}
}

// MountRoutes registers inventory routes. Adjustments are owner-only.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/inventory/movements", h.listMovements)
	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireOwner)
		r.Post("/inventory/adjust", h.adjust)
	})
}

type adjustRequest struct {
	ProductID int64  `json:"productId" validate:"required"`
	Type      string `json:"type" validate:"required,oneof=PURCHASE ADJUSTMENT RETURN"`
	Quantity  int    `json:"quantity" validate:"required"`
	Reason    string `json:"reason" validate:"required"`
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request) {
	claims, _ := shared.ClaimsFromContext(r.Context())
	var req adjustRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	result, err := h.service.Adjust(r.Context(), AdjustInput{
		ProductID: req.ProductID,
		Type:      MovementType(req.Type),
		Quantity:  req.Quantity,
		Reason:    req.Reason,
		ActorID:   claims.UserID,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrInvalidType), errors.Is(err, ErrReasonRequired):
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		case errors.Is(err, ErrNegativeStock):
			httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
		case errors.Is(err, shared.ErrNotFound):
			httpx.Problem(w, http.StatusNotFound, "Not Found", "product not found")
		default:
			h.logger.Error("adjust stock", slog.Any("error", err))
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) listMovements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := MovementFilter{}
	if raw := q.Get("productId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid product id")
			return
		}
		filter.ProductID = id
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))

	movements, err := h.service.ListMovements(r.Context(), filter)
	if err != nil {
		h.logger.Error("list movements", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if movements == nil {
		movements = []Movement{}
	}
	httpx.JSON(w, http.StatusOK, movements)
}
