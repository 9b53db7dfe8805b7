package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukapos/dukapos/internal/app"
	"github.com/dukapos/dukapos/internal/audit"
	"github.com/dukapos/dukapos/internal/auth"
	"github.com/dukapos/dukapos/internal/catalog"
	"github.com/dukapos/dukapos/internal/closing"
	"github.com/dukapos/dukapos/internal/expenses"
	"github.com/dukapos/dukapos/internal/inventory"
	"github.com/dukapos/dukapos/internal/platform/cache"
	"github.com/dukapos/dukapos/internal/platform/db"
	"github.com/dukapos/dukapos/internal/reports"
	"github.com/dukapos/dukapos/internal/sales"
	"github.com/dukapos/dukapos/internal/settings"
	"github.com/dukapos/dukapos/internal/shared"
	"github.com/dukapos/dukapos/internal/users"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	auditLogger := shared.NewAuditLogger(pool)

	sessions := auth.NewSessionStore(redisClient, cfg.SessionTTL)
	authService := auth.NewService(auth.NewRepository(pool), sessions)
	authMW := auth.Middleware{Service: authService, Logger: logger}
	authHandler := auth.NewHandler(logger, authService, authMW, cfg.IsProduction())

	usersService := users.NewService(users.NewRepository(pool), auditLogger)
	usersHandler := users.NewHandler(logger, usersService, authMW)

	catalogService := catalog.NewService(catalog.NewRepository(pool), auditLogger)
	catalogHandler := catalog.NewHandler(logger, catalogService, authMW)

	salesService := sales.NewService(sales.NewRepository(pool, auditLogger), sales.ServiceConfig{
		AllowNegativeTotal: cfg.AllowNegativeTotal,
	})
	salesHandler := sales.NewHandler(logger, salesService, authMW)

	inventoryService := inventory.NewService(inventory.NewRepository(pool, auditLogger))
	inventoryHandler := inventory.NewHandler(logger, inventoryService, authMW)

	expensesService := expenses.NewService(expenses.NewRepository(pool, auditLogger), auditLogger)
	expensesHandler := expenses.NewHandler(logger, expensesService, authMW)

	closingService := closing.NewService(closing.NewRepository(pool, auditLogger), cfg.CashVarianceThreshold)
	closingHandler := closing.NewHandler(logger, closingService)

	reportsService := reports.NewService(reports.NewRepository(pool))
	reportsHandler := reports.NewHandler(logger, reportsService, authMW)

	settingsService := settings.NewService(settings.NewRepository(pool), auditLogger)
	settingsHandler := settings.NewHandler(logger, settingsService, authMW)

	auditHandler := audit.NewHandler(logger, audit.NewRepository(pool), authMW)

	router := app.NewRouter(app.RouterParams{
		Config:           cfg,
		AuthHandler:      authHandler,
		AuthMiddleware:   authMW,
		UsersHandler:     usersHandler,
		CatalogHandler:   catalogHandler,
		SalesHandler:     salesHandler,
		InventoryHandler: inventoryHandler,
		ExpensesHandler:  expensesHandler,
		ClosingHandler:   closingHandler,
		ReportsHandler:   reportsHandler,
		SettingsHandler:  settingsHandler,
		AuditHandler:     auditHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", slog.Any("error", err))
	}
	logger.Info("server stopped")
}
