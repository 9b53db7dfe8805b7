package catalog

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

// Handler manages catalog endpoints. Reads are open to any authenticated
// user; writes are owner-only.
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

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/products", h.list)
	r.Get("/products/{id}", h.get)
	r.Get("/categories", h.listCategories)

	r.Group(func(r chi.Router) {
		r.Use(h.mw.RequireOwner)
		r.Post("/products", h.create)
		r.Put("/products/{id}", h.update)
		r.Delete("/products/{id}", h.archive)
		r.Post("/categories", h.createCategory)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{
		Search:          q.Get("search"),
		LowStock:        q.Get("lowStock") == "true",
		IncludeInactive: q.Get("includeInactive") == "true",
	}
	if raw := q.Get("category"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid category id")
			return
		}
		filter.CategoryID = id
	}
	products, err := h.service.ListProducts(r.Context(), filter)
	if err != nil {
		h.logger.Error("list products", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, products)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid product id")
		return
	}
	product, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "product not found")
			return
		}
		h.logger.Error("get product", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

type productRequest struct {
	SKU          string  `json:"sku" validate:"required"`
	Barcode      string  `json:"barcode"`
	Name         string  `json:"name" validate:"required"`
	Description  string  `json:"description"`
	CategoryID   int64   `json:"categoryId" validate:"required"`
	CostPrice    float64 `json:"costPrice" validate:"gte=0"`
	SellingPrice float64 `json:"sellingPrice" validate:"gte=0"`
	CurrentStock int     `json:"currentStock" validate:"gte=0"`
	ReorderLevel int     `json:"reorderLevel" validate:"gte=0"`
}

func (h *Handler) decodeProduct(w http.ResponseWriter, r *http.Request) (ProductInput, bool) {
	claims, _ := shared.ClaimsFromContext(r.Context())
	var req productRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return ProductInput{}, false
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return ProductInput{}, false
	}
	return ProductInput{
		SKU:          req.SKU,
		Barcode:      req.Barcode,
		Name:         req.Name,
		Description:  req.Description,
		CategoryID:   req.CategoryID,
		CostPrice:    req.CostPrice,
		SellingPrice: req.SellingPrice,
		InitialStock: req.CurrentStock,
		ReorderLevel: req.ReorderLevel,
		ActorID:      claims.UserID,
	}, true
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	in, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}
	product, err := h.service.CreateProduct(r.Context(), in)
	if err != nil {
		h.respondProductError(w, "create product", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, product)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid product id")
		return
	}
	in, ok := h.decodeProduct(w, r)
	if !ok {
		return
	}
	product, err := h.service.UpdateProduct(r.Context(), id, in)
	if err != nil {
		h.respondProductError(w, "update product", err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

func (h *Handler) archive(w http.ResponseWriter, r *http.Request) {
	claims, _ := shared.ClaimsFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid product id")
		return
	}
	if err := h.service.ArchiveProduct(r.Context(), id, claims.UserID); err != nil {
		h.respondProductError(w, "archive product", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.ListCategories(r.Context())
	if err != nil {
		h.logger.Error("list categories", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, categories)
}

type categoryRequest struct {
	Name string `json:"name" validate:"required"`
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	category, err := h.service.CreateCategory(r.Context(), req.Name)
	if err != nil {
		h.respondProductError(w, "create category", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, category)
}

func (h *Handler) respondProductError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrSKUTaken), errors.Is(err, ErrBarcodeTaken):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "product not found")
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
