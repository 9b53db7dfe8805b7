package closing

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/dukapos/dukapos/internal/platform/httpx"
	"github.com/dukapos/dukapos/internal/shared"
)

// Handler manages daily closing endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers closing routes. Sellers submit closings too, so none
// of these are owner-only.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/closings/preview", h.preview)
	r.Get("/closings", h.history)
	r.Post("/closings", h.submit)
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	date := time.Now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid date")
			return
		}
		date = t
	}
	preview, err := h.service.Preview(r.Context(), date)
	if err != nil {
		h.logger.Error("closing preview", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, preview)
}

type submitRequest struct {
	Date          string  `json:"date" validate:"required"`
	DeclaredCash  float64 `json:"declaredCash" validate:"gte=0"`
	DeclaredMpesa float64 `json:"declaredMpesa" validate:"gte=0"`
	DeclaredCard  float64 `json:"declaredCard" validate:"gte=0"`
	Notes         *string `json:"notes"`
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	claims, _ := shared.ClaimsFromContext(r.Context())
	var req submitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid date")
		return
	}

	closing, err := h.service.Submit(r.Context(), SubmitInput{
		Date:          date,
		DeclaredCash:  req.DeclaredCash,
		DeclaredMpesa: req.DeclaredMpesa,
		DeclaredCard:  req.DeclaredCard,
		Notes:         req.Notes,
		ActorID:       claims.UserID,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrClosingExists):
			httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
		case errors.Is(err, ErrFutureDate):
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		default:
			h.logger.Error("submit closing", slog.Any("error", err))
			httpx.RespondError(w, err)
		}
		return
	}
	httpx.JSON(w, http.StatusCreated, closing)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	closings, err := h.service.History(r.Context(), limit)
	if err != nil {
		h.logger.Error("closing history", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if closings == nil {
		closings = []Closing{}
	}
	httpx.JSON(w, http.StatusOK, closings)
}
