package expenses

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

// Handler manages expense endpoints.
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

// MountRoutes registers expense routes. Decisions and category management
// are owner-only.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/expenses", h.list)
	r.Get("/expenses/{id}", h.get)
	r.Post("/expenses", h.submit)
	r.Get("/expenses/categories", h.listCategories)

	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireOwner)
		r.Post("/expenses/{id}/decision", h.decide)
		r.Post("/expenses/categories", h.createCategory)
	})
}

type submitRequest struct {
	CategoryID    int64   `json:"categoryId" validate:"required"`
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	Description   string  `json:"description" validate:"required"`
	PaymentMethod string  `json:"paymentMethod" validate:"required,oneof=CASH MPESA CARD"`
	ReceiptRef    *string `json:"receiptRef"`
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

	expense, err := h.service.Submit(r.Context(), SubmitInput{
		CategoryID:    req.CategoryID,
		Amount:        req.Amount,
		Description:   req.Description,
		PaymentMethod: shared.PaymentMethod(req.PaymentMethod),
		ReceiptRef:    req.ReceiptRef,
		ActorID:       claims.UserID,
	})
	if err != nil {
		h.respondExpenseError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, expense)
}

type listExpensesResponse struct {
	Expenses   []Expense         `json:"expenses"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	claims, _ := shared.ClaimsFromContext(r.Context())
	q := r.URL.Query()
	filter := ListFilter{Status: ExpenseStatus(q.Get("status"))}
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
		filter.To = t.Add(24 * time.Hour)
	}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.PerPage, _ = strconv.Atoi(q.Get("limit"))

	expenses, page, err := h.service.List(r.Context(), filter, claims)
	if err != nil {
		h.logger.Error("list expenses", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if expenses == nil {
		expenses = []Expense{}
	}
	httpx.JSON(w, http.StatusOK, listExpensesResponse{Expenses: expenses, Pagination: page})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	claims, _ := shared.ClaimsFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid expense id")
		return
	}
	expense, err := h.service.Get(r.Context(), id, claims)
	if err != nil {
		h.respondExpenseError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, expense)
}

type decideRequest struct {
	Action string `json:"action" validate:"required,oneof=APPROVE REJECT"`
	Reason string `json:"reason"`
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request) {
	claims, _ := shared.ClaimsFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid expense id")
		return
	}
	var req decideRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	expense, err := h.service.Decide(r.Context(), DecideInput{
		ExpenseID: id,
		Action:    DecisionAction(req.Action),
		Reason:    req.Reason,
		ActorID:   claims.UserID,
	})
	if err != nil {
		h.respondExpenseError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, expense)
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		h.logger.Error("list expense categories", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if categories == nil {
		categories = []Category{}
	}
	httpx.JSON(w, http.StatusOK, categories)
}

type createCategoryRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description"`
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	claims, _ := shared.ClaimsFromContext(r.Context())
	var req createCategoryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	category, err := h.service.CreateCategory(r.Context(), req.Name, req.Description, claims.UserID)
	if err != nil {
		h.respondExpenseError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, category)
}

func (h *Handler) respondExpenseError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidPayment),
		errors.Is(err, ErrInvalidAction),
		errors.Is(err, ErrReasonRequired):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrAlreadyDecided), errors.Is(err, ErrCategoryTaken):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "expense not found")
	default:
		h.logger.Error("expense operation", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
