package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/dukapos/dukapos/internal/audit"
	"github.com/dukapos/dukapos/internal/auth"
	"github.com/dukapos/dukapos/internal/catalog"
	"github.com/dukapos/dukapos/internal/closing"
	"github.com/dukapos/dukapos/internal/expenses"
	"github.com/dukapos/dukapos/internal/inventory"
	"github.com/dukapos/dukapos/internal/reports"
	"github.com/dukapos/dukapos/internal/sales"
	"github.com/dukapos/dukapos/internal/settings"
	"github.com/dukapos/dukapos/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Config           *Config
	AuthHandler      *auth.Handler
	AuthMiddleware   auth.Middleware
	UsersHandler     *users.Handler
	CatalogHandler   *catalog.Handler
	SalesHandler     *sales.Handler
	InventoryHandler *inventory.Handler
	ExpensesHandler  *expenses.Handler
	ClosingHandler   *closing.Handler
	ReportsHandler   *reports.Handler
	SettingsHandler  *settings.Handler
	AuditHandler     *audit.Handler
}

// NewRouter constructs the chi.Router with Duka defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(params.Config) {
		r.Use(mw)
	}
	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		params.AuthHandler.MountRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(params.AuthMiddleware.RequireAuth)

			params.UsersHandler.MountRoutes(r)
			params.CatalogHandler.MountRoutes(r)
			params.SalesHandler.MountRoutes(r)
			params.InventoryHandler.MountRoutes(r)
			params.ExpensesHandler.MountRoutes(r)
			params.ClosingHandler.MountRoutes(r)
			params.ReportsHandler.MountRoutes(r)
			params.SettingsHandler.MountRoutes(r)
			params.AuditHandler.MountRoutes(r)
		})
	})

	return r
}
