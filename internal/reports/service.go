package reports

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dukapos/dukapos/internal/shared"
)

// RepositoryPort abstracts the aggregate queries for the service.
type RepositoryPort interface {
	SalesTotals(ctx context.Context, from, to time.Time) (salesTotals, error)
	ApprovedExpensesTotal(ctx context.Context, from, to time.Time) (float64, error)
	PaymentBreakdown(ctx context.Context, from, to time.Time) ([]PaymentTotal, error)
	TopProducts(ctx context.Context, from, to time.Time, limit int) ([]ProductRevenue, error)
	DailySeries(ctx context.Context, from, to time.Time) ([]DailyPoint, error)
	ExpensesByCategory(ctx context.Context, from, to time.Time) ([]CategoryExpenses, error)
	PendingExpenseCount(ctx context.Context) (int, error)
	LowStock(ctx context.Context, limit int) ([]LowStockItem, error)
	RecentSales(ctx context.Context, limit int) ([]RecentSale, error)
}

// Service assembles report and dashboard views.
type Service struct {
	repo RepositoryPort
	now  func() time.Time
}

// NewService builds a Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// Summary builds the owner's profit report for [from, to]. The queries run
// concurrently; the range is inclusive of the `to` date.
func (s *Service) Summary(ctx context.Context, from, to time.Time) (Summary, error) {
	from = truncateDay(from)
	to = truncateDay(to).AddDate(0, 0, 1)

	summary := Summary{From: from, To: to}
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		totals, err := s.repo.SalesTotals(ctx, from, to)
		if err != nil {
			return err
		}
		summary.TotalSales = totals.Total
		summary.TotalCOGS = totals.COGS
		summary.SalesCount = totals.Count
		return nil
	})
	g.Go(func() error {
		total, err := s.repo.ApprovedExpensesTotal(ctx, from, to)
		if err != nil {
			return err
		}
		summary.TotalExpenses = total
		return nil
	})
	g.Go(func() error {
		breakdown, err := s.repo.PaymentBreakdown(ctx, from, to)
		if err != nil {
			return err
		}
		summary.Payments = breakdown
		return nil
	})
	g.Go(func() error {
		products, err := s.repo.TopProducts(ctx, from, to, 10)
		if err != nil {
			return err
		}
		summary.TopProducts = products
		return nil
	})
	g.Go(func() error {
		series, err := s.repo.DailySeries(ctx, from, to)
		if err != nil {
			return err
		}
		summary.Daily = series
		return nil
	})
	g.Go(func() error {
		categories, err := s.repo.ExpensesByCategory(ctx, from, to)
		if err != nil {
			return err
		}
		summary.Expenses = categories
		return nil
	})

	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	summary.GrossProfit = summary.TotalSales - summary.TotalCOGS
	summary.NetProfit = summary.GrossProfit - summary.TotalExpenses
	if summary.SalesCount > 0 {
		summary.AvgSaleValue = summary.TotalSales / float64(summary.SalesCount)
	}
	return summary, nil
}

// Dashboard builds the landing view. Sellers get the same shape with the
// financial fields zeroed.
func (s *Service) Dashboard(ctx context.Context, claims shared.Claims) (Dashboard, error) {
	now := s.now()
	today := truncateDay(now)
	tomorrow := today.AddDate(0, 0, 1)
	yesterday := today.AddDate(0, 0, -1)
	weekAgo := today.AddDate(0, 0, -6)

	var dash Dashboard
	var todayTotals, yesterdayTotals salesTotals

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		totals, err := s.repo.SalesTotals(ctx, today, tomorrow)
		if err != nil {
			return err
		}
		todayTotals = totals
		return nil
	})
	g.Go(func() error {
		totals, err := s.repo.SalesTotals(ctx, yesterday, today)
		if err != nil {
			return err
		}
		yesterdayTotals = totals
		return nil
	})
	g.Go(func() error {
		breakdown, err := s.repo.PaymentBreakdown(ctx, today, tomorrow)
		if err != nil {
			return err
		}
		dash.Payments = breakdown
		return nil
	})
	g.Go(func() error {
		total, err := s.repo.ApprovedExpensesTotal(ctx, today, tomorrow)
		if err != nil {
			return err
		}
		dash.TodayExpenses = total
		return nil
	})
	g.Go(func() error {
		count, err := s.repo.PendingExpenseCount(ctx)
		if err != nil {
			return err
		}
		dash.PendingExpenses = count
		return nil
	})
	g.Go(func() error {
		items, err := s.repo.LowStock(ctx, 10)
		if err != nil {
			return err
		}
		dash.LowStock = items
		return nil
	})
	g.Go(func() error {
		sales, err := s.repo.RecentSales(ctx, 5)
		if err != nil {
			return err
		}
		dash.RecentSales = sales
		return nil
	})
	g.Go(func() error {
		series, err := s.repo.DailySeries(ctx, weekAgo, tomorrow)
		if err != nil {
			return err
		}
		dash.WeekSeries = series
		return nil
	})

	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	dash.TodaySales = todayTotals.Total
	dash.TodaySalesCount = todayTotals.Count
	dash.TodayProfit = todayTotals.Total - todayTotals.COGS
	if yesterdayTotals.Total > 0 {
		dash.SalesChangePct = (todayTotals.Total - yesterdayTotals.Total) / yesterdayTotals.Total * 100
	}

	if !claims.IsOwner() {
		dash.TodayProfit = 0
		dash.TodayExpenses = 0
		for i := range dash.WeekSeries {
			dash.WeekSeries[i].Profit = 0
		}
	}
	return dash, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
