package sales

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/dukapos/dukapos/internal/auth"
	"github.com/dukapos/dukapos/internal/shared"
)

func newTestRouter(t *testing.T, repo *memoryRepo, claims shared.Claims) chi.Router {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(logger, newTestService(repo), auth.Middleware{Logger: logger})

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(shared.ContextWithClaims(req.Context(), claims)))
		})
	})
	handler.MountRoutes(r)
	return r
}

func TestCreateSaleEndpoint(t *testing.T) {
	repo := newMemoryRepo()
	seedProducts(repo)
	router := newTestRouter(t, repo, shared.Claims{UserID: 7, Name: "Jane", Role: shared.RoleSeller})

	body := `{"items":[{"productId":1,"quantity":2}],"paymentMethod":"MPESA","paymentReference":"SFC3K1XQ2P"}`
	req := httptest.NewRequest(http.MethodPost, "/sales", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var sale Sale
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sale))
	require.Equal(t, "RCP-20250614-0001", sale.ReceiptNumber)
	require.InDelta(t, 500, sale.Total, 0.001)
	require.NotNil(t, sale.PaymentReference)
	require.Equal(t, "SFC3K1XQ2P", *sale.PaymentReference)
}

func TestCreateSaleEndpointValidation(t *testing.T) {
	repo := newMemoryRepo()
	seedProducts(repo)
	router := newTestRouter(t, repo, shared.Claims{UserID: 7, Role: shared.RoleSeller})

	cases := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", `{"items":`, http.StatusBadRequest},
		{"empty cart", `{"items":[],"paymentMethod":"CASH"}`, http.StatusBadRequest},
		{"missing payment", `{"items":[{"productId":1,"quantity":1}]}`, http.StatusBadRequest},
		{"unknown method", `{"items":[{"productId":1,"quantity":1}],"paymentMethod":"GOAT"}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/sales", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			require.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestCreateSaleEndpointInsufficientStock(t *testing.T) {
	repo := newMemoryRepo()
	seedProducts(repo)
	router := newTestRouter(t, repo, shared.Claims{UserID: 7, Role: shared.RoleSeller})

	body := `{"items":[{"productId":2,"quantity":50}],"paymentMethod":"CASH"}`
	req := httptest.NewRequest(http.MethodPost, "/sales", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code)
	require.Contains(t, rec.Body.String(), "insufficient stock")
}

func TestVoidEndpointOwnerOnly(t *testing.T) {
	repo := newMemoryRepo()
	seedProducts(repo)
	seller := newTestRouter(t, repo, shared.Claims{UserID: 7, Role: shared.RoleSeller})

	create := httptest.NewRequest(http.MethodPost, "/sales", strings.NewReader(`{"items":[{"productId":1,"quantity":1}],"paymentMethod":"CASH"}`))
	rec := httptest.NewRecorder()
	seller.ServeHTTP(rec, create)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	seller.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sales/1/void", nil))
	require.Equal(t, http.StatusForbidden, rec.Code)

	owner := newTestRouter(t, repo, shared.Claims{UserID: 1, Role: shared.RoleOwner})
	rec = httptest.NewRecorder()
	owner.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sales/1/void", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 24, repo.products[1].CurrentStock)
}

func TestGetSaleEndpointNotFound(t *testing.T) {
	repo := newMemoryRepo()
	router := newTestRouter(t, repo, shared.Claims{UserID: 7, Role: shared.RoleSeller})

	req := httptest.NewRequest(http.MethodGet, "/sales/42", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}
