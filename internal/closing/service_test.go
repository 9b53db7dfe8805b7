package closing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dukapos/dukapos/internal/shared"
)

type memoryRepo struct {
	totals   map[string]DayTotals
	closings map[string]Closing
	audits   []shared.AuditLog
	nextID   int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		totals:   make(map[string]DayTotals),
		closings: make(map[string]Closing),
	}
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	before := newMemoryRepo()
	for k, v := range r.totals {
		before.totals[k] = v
	}
	for k, v := range r.closings {
		before.closings[k] = v
	}
	before.audits = append([]shared.AuditLog(nil), r.audits...)
	before.nextID = r.nextID

	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		*r = *before
		return err
	}
	return nil
}

func (r *memoryRepo) DayTotals(ctx context.Context, date time.Time) (DayTotals, error) {
	return r.totals[dayKey(date)], nil
}

func (r *memoryRepo) GetByDate(ctx context.Context, date time.Time) (Closing, error) {
	c, ok := r.closings[dayKey(date)]
	if !ok {
		return Closing{}, shared.ErrNotFound
	}
	return c, nil
}

func (r *memoryRepo) ListRecent(ctx context.Context, limit int) ([]Closing, error) {
	var result []Closing
	for _, c := range r.closings {
		result = append(result, c)
	}
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (tx *memoryTx) InsertClosing(ctx context.Context, c Closing) (Closing, error) {
	key := dayKey(c.Date)
	if _, exists := tx.repo.closings[key]; exists {
		return Closing{}, ErrClosingExists
	}
	tx.repo.nextID++
	c.ID = tx.repo.nextID
	c.CreatedAt = time.Now()
	tx.repo.closings[key] = c
	return c, nil
}

func (tx *memoryTx) RecordAudit(ctx context.Context, log shared.AuditLog) error {
	tx.repo.audits = append(tx.repo.audits, log)
	return nil
}

var testDay = time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC)

func newTestService(repo *memoryRepo) *Service {
	svc := NewService(repo, 100)
	return svc.WithNow(func() time.Time {
		return testDay.Add(21 * time.Hour)
	})
}

func seedDay(repo *memoryRepo) {
	repo.totals[dayKey(testDay)] = DayTotals{
		Cash:       12500,
		Mpesa:      8300,
		Card:       1500,
		Total:      22300,
		SalesCount: 41,
	}
}

func TestSubmitWithinThresholdApproved(t *testing.T) {
	repo := newMemoryRepo()
	seedDay(repo)
	svc := newTestService(repo)

	closing, err := svc.Submit(context.Background(), SubmitInput{
		Date:         testDay,
		DeclaredCash: 12550,
		ActorID:      2,
	})
	require.NoError(t, err)
	require.Equal(t, StatusApproved, closing.Status)
	require.InDelta(t, 50, closing.CashVariance, 0.001)
	require.InDelta(t, closing.CashVariance, closing.TotalVariance, 0.001)
	require.InDelta(t, 12500, closing.ExpectedCash, 0.001)
	require.Equal(t, 41, closing.SalesCount)

	require.Len(t, repo.audits, 1)
	require.Equal(t, "DAILY_CLOSING", repo.audits[0].Action)
}

func TestSubmitBeyondThresholdDiscrepancy(t *testing.T) {
	repo := newMemoryRepo()
	seedDay(repo)
	svc := newTestService(repo)

	closing, err := svc.Submit(context.Background(), SubmitInput{
		Date:         testDay,
		DeclaredCash: 12300,
		ActorID:      2,
	})
	require.NoError(t, err)
	require.Equal(t, StatusDiscrepancy, closing.Status)
	require.InDelta(t, -200, closing.CashVariance, 0.001)
}

func TestSubmitExactThresholdIsDiscrepancy(t *testing.T) {
	repo := newMemoryRepo()
	seedDay(repo)
	svc := newTestService(repo)

	closing, err := svc.Submit(context.Background(), SubmitInput{
		Date:         testDay,
		DeclaredCash: 12600,
		ActorID:      2,
	})
	require.NoError(t, err)
	require.Equal(t, StatusDiscrepancy, closing.Status)
}

func TestSubmitOncePerDate(t *testing.T) {
	repo := newMemoryRepo()
	seedDay(repo)
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.Submit(ctx, SubmitInput{Date: testDay, DeclaredCash: 12500, ActorID: 2})
	require.NoError(t, err)

	_, err = svc.Submit(ctx, SubmitInput{Date: testDay, DeclaredCash: 12500, ActorID: 2})
	require.ErrorIs(t, err, ErrClosingExists)
	require.Len(t, repo.audits, 1)
}

func TestSubmitRejectsFutureDate(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	_, err := svc.Submit(context.Background(), SubmitInput{
		Date:         testDay.AddDate(0, 0, 1),
		DeclaredCash: 0,
		ActorID:      2,
	})
	require.ErrorIs(t, err, ErrFutureDate)
}

func TestSubmitAcceptsTodayAfterLocalMidnight(t *testing.T) {
	// a store three hours ahead of UTC closes out at 00:30 local, before UTC
	// midnight; the date arrives parsed as UTC midnight of the local today
	eat := time.FixedZone("EAT", 3*60*60)
	repo := newMemoryRepo()
	repo.totals["2025-09-01"] = DayTotals{Cash: 9000, Total: 9000, SalesCount: 12}

	svc := NewService(repo, 100).WithNow(func() time.Time {
		return time.Date(2025, 9, 1, 0, 30, 0, 0, eat)
	})

	closing, err := svc.Submit(context.Background(), SubmitInput{
		Date:         time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC),
		DeclaredCash: 9000,
		ActorID:      2,
	})
	require.NoError(t, err)
	require.Equal(t, StatusApproved, closing.Status)
	require.InDelta(t, 9000, closing.ExpectedCash, 0.001)
	require.Equal(t, eat, closing.Date.Location())

	_, err = svc.Submit(context.Background(), SubmitInput{
		Date:         time.Date(2025, 9, 2, 0, 0, 0, 0, time.UTC),
		DeclaredCash: 0,
		ActorID:      2,
	})
	require.ErrorIs(t, err, ErrFutureDate)
}

func TestPreviewIncludesExistingClosing(t *testing.T) {
	repo := newMemoryRepo()
	seedDay(repo)
	svc := newTestService(repo)
	ctx := context.Background()

	preview, err := svc.Preview(ctx, testDay)
	require.NoError(t, err)
	require.Nil(t, preview.Existing)
	require.InDelta(t, 12500, preview.Expected.Cash, 0.001)
	require.Equal(t, 41, preview.Expected.SalesCount)
	require.Empty(t, preview.Recent)

	_, err = svc.Submit(ctx, SubmitInput{Date: testDay, DeclaredCash: 12500, ActorID: 2})
	require.NoError(t, err)

	preview, err = svc.Preview(ctx, testDay)
	require.NoError(t, err)
	require.NotNil(t, preview.Existing)
	require.Equal(t, StatusApproved, preview.Existing.Status)
	require.Len(t, preview.Recent, 1)
}
