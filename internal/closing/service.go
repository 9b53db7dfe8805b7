package closing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/dukapos/dukapos/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	DayTotals(ctx context.Context, date time.Time) (DayTotals, error)
	GetByDate(ctx context.Context, date time.Time) (Closing, error)
	ListRecent(ctx context.Context, limit int) ([]Closing, error)
}

// Service reconciles declared takings against recorded sales.
type Service struct {
	repo      RepositoryPort
	threshold float64
	now       func() time.Time
}

// NewService builds a Service. threshold is the absolute cash variance above
// which a closing is flagged as a discrepancy.
func NewService(repo RepositoryPort, threshold float64) *Service {
	return &Service{repo: repo, threshold: threshold, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// Preview returns the expected takings for a date alongside the recent
// closing history, so the user can compare before declaring.
func (s *Service) Preview(ctx context.Context, date time.Time) (Preview, error) {
	date = s.day(date)
	totals, err := s.repo.DayTotals(ctx, date)
	if err != nil {
		return Preview{}, err
	}
	preview := Preview{Date: date, Expected: totals}

	existing, err := s.repo.GetByDate(ctx, date)
	switch {
	case err == nil:
		preview.Existing = &existing
	case errors.Is(err, shared.ErrNotFound):
		// no closing yet for this date
	default:
		return Preview{}, err
	}

	recent, err := s.repo.ListRecent(ctx, 7)
	if err != nil {
		return Preview{}, err
	}
	if recent == nil {
		recent = []Closing{}
	}
	preview.Recent = recent
	return preview, nil
}

// Submit records the closing for a date. The cash variance is declared minus
// expected; within the threshold the closing is APPROVED, otherwise it is
// flagged DISCREPANCY. Declared mpesa and card amounts are stored for the
// record but do not affect the status. The closing row and its audit entry
// commit together; the unique date index rejects a concurrent duplicate.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (Closing, error) {
	date := s.day(in.Date)
	if date.After(s.day(s.now())) {
		return Closing{}, ErrFutureDate
	}

	totals, err := s.repo.DayTotals(ctx, date)
	if err != nil {
		return Closing{}, err
	}

	cashVariance := round2(in.DeclaredCash - totals.Cash)
	status := StatusApproved
	if math.Abs(cashVariance) >= s.threshold {
		status = StatusDiscrepancy
	}

	closing := Closing{
		Date:          date,
		ExpectedCash:  totals.Cash,
		ExpectedMpesa: totals.Mpesa,
		ExpectedCard:  totals.Card,
		ExpectedTotal: totals.Total,
		DeclaredCash:  in.DeclaredCash,
		DeclaredMpesa: in.DeclaredMpesa,
		DeclaredCard:  in.DeclaredCard,
		CashVariance:  cashVariance,
		TotalVariance: cashVariance,
		Status:        status,
		SalesCount:    totals.SalesCount,
		Notes:         in.Notes,
		SubmittedBy:   in.ActorID,
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		inserted, err := tx.InsertClosing(ctx, closing)
		if err != nil {
			return err
		}
		description := fmt.Sprintf("Closed %s: declared %s against expected %s (variance %s)",
			date.Format("2006-01-02"), shared.FormatKES(in.DeclaredCash), shared.FormatKES(totals.Cash), shared.FormatKES(cashVariance))
		if status == StatusDiscrepancy {
			description += " - flagged for review"
		}
		if err := tx.RecordAudit(ctx, shared.AuditLog{
			ActorID:     in.ActorID,
			Action:      "DAILY_CLOSING",
			Entity:      "DailyClosing",
			EntityID:    strconv.FormatInt(inserted.ID, 10),
			Description: description,
			NewValue: map[string]any{
				"status":       string(status),
				"cashVariance": cashVariance,
			},
		}); err != nil {
			return err
		}
		closing = inserted
		return nil
	})
	if err != nil {
		return Closing{}, err
	}
	return closing, nil
}

// History returns recent closings, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]Closing, error) {
	return s.repo.ListRecent(ctx, limit)
}

// day normalizes t to midnight of its calendar date in the clock's zone, so a
// date parsed as UTC midnight and "today" on a non-UTC deployment compare as
// the same calendar day and window the same sales.
func (s *Service) day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.now().Location())
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
