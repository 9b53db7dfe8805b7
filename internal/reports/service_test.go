package reports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dukapos/dukapos/internal/shared"
)

type stubRepo struct {
	totalsByWindow map[string]salesTotals
	expenses       float64
	payments       []PaymentTotal
	topProducts    []ProductRevenue
	daily          []DailyPoint
	byCategory     []CategoryExpenses
	pending        int
	lowStock       []LowStockItem
	recent         []RecentSale
}

func windowKey(from time.Time) string {
	return from.Format("2006-01-02")
}

func (r *stubRepo) SalesTotals(ctx context.Context, from, to time.Time) (salesTotals, error) {
	return r.totalsByWindow[windowKey(from)], nil
}

func (r *stubRepo) ApprovedExpensesTotal(ctx context.Context, from, to time.Time) (float64, error) {
	return r.expenses, nil
}

func (r *stubRepo) PaymentBreakdown(ctx context.Context, from, to time.Time) ([]PaymentTotal, error) {
	return r.payments, nil
}

func (r *stubRepo) TopProducts(ctx context.Context, from, to time.Time, limit int) ([]ProductRevenue, error) {
	if len(r.topProducts) > limit {
		return r.topProducts[:limit], nil
	}
	return r.topProducts, nil
}

func (r *stubRepo) DailySeries(ctx context.Context, from, to time.Time) ([]DailyPoint, error) {
	return r.daily, nil
}

func (r *stubRepo) ExpensesByCategory(ctx context.Context, from, to time.Time) ([]CategoryExpenses, error) {
	return r.byCategory, nil
}

func (r *stubRepo) PendingExpenseCount(ctx context.Context) (int, error) {
	return r.pending, nil
}

func (r *stubRepo) LowStock(ctx context.Context, limit int) ([]LowStockItem, error) {
	return r.lowStock, nil
}

func (r *stubRepo) RecentSales(ctx context.Context, limit int) ([]RecentSale, error) {
	return r.recent, nil
}

var reportDay = time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)

func TestSummaryMath(t *testing.T) {
	repo := &stubRepo{
		totalsByWindow: map[string]salesTotals{
			windowKey(reportDay.AddDate(0, 0, -7)): {Total: 100000, COGS: 64000, Count: 250},
		},
		expenses: 12000,
		payments: []PaymentTotal{{Method: "CASH", Total: 60000, Count: 180}, {Method: "MPESA", Total: 40000, Count: 70}},
	}
	svc := NewService(repo)

	summary, err := svc.Summary(context.Background(), reportDay.AddDate(0, 0, -7), reportDay)
	require.NoError(t, err)

	require.InDelta(t, 100000, summary.TotalSales, 0.001)
	require.InDelta(t, 36000, summary.GrossProfit, 0.001)
	require.InDelta(t, 24000, summary.NetProfit, 0.001)
	require.InDelta(t, 400, summary.AvgSaleValue, 0.001)
	require.Len(t, summary.Payments, 2)
}

func TestSummaryEmptyRange(t *testing.T) {
	svc := NewService(&stubRepo{totalsByWindow: map[string]salesTotals{}})

	summary, err := svc.Summary(context.Background(), reportDay, reportDay)
	require.NoError(t, err)
	require.Zero(t, summary.TotalSales)
	require.Zero(t, summary.AvgSaleValue)
	require.Zero(t, summary.NetProfit)
}

func newDashboardRepo() *stubRepo {
	return &stubRepo{
		totalsByWindow: map[string]salesTotals{
			windowKey(reportDay):                   {Total: 8000, COGS: 5000, Count: 20},
			windowKey(reportDay.AddDate(0, 0, -1)): {Total: 6400, COGS: 4100, Count: 17},
		},
		expenses: 1500,
		pending:  3,
		lowStock: []LowStockItem{{ProductID: 2, Name: "Smirnoff Vodka 750ml", CurrentStock: 4, ReorderLevel: 6}},
		daily: []DailyPoint{
			{Date: reportDay.AddDate(0, 0, -1), Sales: 6400, Profit: 2300, Count: 17},
			{Date: reportDay, Sales: 8000, Profit: 3000, Count: 20},
		},
	}
}

func dashboardService(repo *stubRepo) *Service {
	svc := NewService(repo)
	return svc.WithNow(func() time.Time {
		return reportDay.Add(15 * time.Hour)
	})
}

func TestDashboardOwnerSeesFinancials(t *testing.T) {
	svc := dashboardService(newDashboardRepo())

	dash, err := svc.Dashboard(context.Background(), shared.Claims{UserID: 1, Role: shared.RoleOwner})
	require.NoError(t, err)

	require.InDelta(t, 8000, dash.TodaySales, 0.001)
	require.Equal(t, 20, dash.TodaySalesCount)
	require.InDelta(t, 3000, dash.TodayProfit, 0.001)
	require.InDelta(t, 25, dash.SalesChangePct, 0.001)
	require.InDelta(t, 1500, dash.TodayExpenses, 0.001)
	require.Equal(t, 3, dash.PendingExpenses)
	require.Len(t, dash.LowStock, 1)
}

func TestDashboardSellerFinancialsZeroed(t *testing.T) {
	svc := dashboardService(newDashboardRepo())

	dash, err := svc.Dashboard(context.Background(), shared.Claims{UserID: 2, Role: shared.RoleSeller})
	require.NoError(t, err)

	// sellers still see activity, never money out or margin
	require.InDelta(t, 8000, dash.TodaySales, 0.001)
	require.Equal(t, 20, dash.TodaySalesCount)
	require.Zero(t, dash.TodayProfit)
	require.Zero(t, dash.TodayExpenses)
	for _, point := range dash.WeekSeries {
		require.Zero(t, point.Profit)
	}
	require.Equal(t, 3, dash.PendingExpenses)
}
