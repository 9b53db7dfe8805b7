package sales

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/dukapos/dukapos/internal/auth"
	"github.com/dukapos/dukapos/internal/platform/httpx"
	"github.com/dukapos/dukapos/internal/shared"
)

// Handler manages sales endpoints.
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

// MountRoutes registers sales routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/sales", h.list)
	r.Get("/sales/{id}", h.get)
	r.Post("/sales", h.create)

	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireOwner)
		r.Post("/sales/{id}/void", h.void)
	})
}

type createSaleRequest struct {
	Items            []CartItem `json:"items" validate:"required,min=1,dive"`
	PaymentMethod    string     `json:"paymentMethod" validate:"required"`
	PaymentReference string     `json:"paymentReference"`
	Discount         float64    `json:"discount"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	claims, _ := shared.ClaimsFromContext(r.Context())
	var req createSaleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	sale, err := h.service.Create(r.Context(), CreateSaleInput{
		Items:            req.Items,
		PaymentMethod:    shared.PaymentMethod(req.PaymentMethod),
		PaymentReference: req.PaymentReference,
		Discount:         req.Discount,
		ActorID:          claims.UserID,
	})
	if err != nil {
		h.respondSaleError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sale)
}

func (h *Handler) respondSaleError(w http.ResponseWriter, err error) {
	var unavailable *ProductUnavailableError
	var insufficient *InsufficientStockError
	switch {
	case errors.Is(err, ErrEmptyCart),
		errors.Is(err, ErrInvalidPayment),
		errors.Is(err, ErrInvalidQuantity),
		errors.Is(err, ErrInvalidDiscount),
		errors.Is(err, ErrNegativeTotal):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.As(err, &unavailable):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", unavailable.Error())
	case errors.As(err, &insufficient):
		httpx.Problem(w, http.StatusConflict, "Conflict", insufficient.Error())
	case errors.Is(err, ErrAlreadyVoided):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "sale not found")
	default:
		h.logger.Error("sale operation", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

type listSalesResponse struct {
	Sales      []Sale            `json:"sales"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{}
	if raw := q.Get("startDate"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid startDate")
			return
		}
		filter.From = t
	}
	if raw := q.Get("endDate"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid endDate")
			return
		}
		filter.To = t.Add(24*time.Hour - time.Nanosecond)
	}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.PerPage, _ = strconv.Atoi(q.Get("limit"))

	result, page, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list sales", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if result == nil {
		result = []Sale{}
	}
	httpx.JSON(w, http.StatusOK, listSalesResponse{Sales: result, Pagination: page})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid sale id")
		return
	}
	sale, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondSaleError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) void(w http.ResponseWriter, r *http.Request) {
	claims, _ := shared.ClaimsFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid sale id")
		return
	}
	sale, err := h.service.Void(r.Context(), id, claims.UserID)
	if err != nil {
		h.respondSaleError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}
