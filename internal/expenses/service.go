package expenses

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dukapos/dukapos/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	InsertExpense(ctx context.Context, e Expense) (Expense, error)
	GetExpense(ctx context.Context, expenseID int64) (Expense, error)
	ListExpenses(ctx context.Context, filter ListFilter) ([]Expense, int, error)
	ListCategories(ctx context.Context) ([]Category, error)
	InsertCategory(ctx context.Context, c Category) (Category, error)
}

// AuditPort records audit log entries outside a transaction.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service drives the expense approval workflow.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
	now   func() time.Time
}

// NewService builds a Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// Submit records a new expense in PENDING state. Any authenticated user
// may submit.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (Expense, error) {
	if in.Amount <= 0 {
		return Expense{}, ErrInvalidAmount
	}
	if !in.PaymentMethod.Valid() {
		return Expense{}, ErrInvalidPayment
	}
	expense, err := s.repo.InsertExpense(ctx, Expense{
		CategoryID:    in.CategoryID,
		Amount:        in.Amount,
		Description:   strings.TrimSpace(in.Description),
		PaymentMethod: in.PaymentMethod,
		ReceiptRef:    in.ReceiptRef,
		Status:        StatusPending,
		SubmittedBy:   in.ActorID,
	})
	if err != nil {
		return Expense{}, err
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:     in.ActorID,
		Action:      "EXPENSE_SUBMIT",
		Entity:      "Expense",
		EntityID:    strconv.FormatInt(expense.ID, 10),
		Description: fmt.Sprintf("Submitted expense of %s: %s", shared.FormatKES(expense.Amount), expense.Description),
	}); err != nil {
		return Expense{}, err
	}
	return expense, nil
}

// Get returns a single expense. Sellers may only read their own.
func (s *Service) Get(ctx context.Context, expenseID int64, claims shared.Claims) (Expense, error) {
	expense, err := s.repo.GetExpense(ctx, expenseID)
	if err != nil {
		return Expense{}, err
	}
	if !claims.IsOwner() && expense.SubmittedBy != claims.UserID {
		return Expense{}, shared.ErrNotFound
	}
	return expense, nil
}

// List returns expenses matching the filter. Sellers are restricted to
// their own submissions regardless of the filter.
func (s *Service) List(ctx context.Context, filter ListFilter, claims shared.Claims) ([]Expense, shared.Pagination, error) {
	if !claims.IsOwner() {
		filter.SubmittedBy = claims.UserID
	}
	expenses, total, err := s.repo.ListExpenses(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return expenses, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// Decide approves or rejects a pending expense. The row is locked so two
// concurrent decisions cannot both apply; whichever loses the lock race
// sees a non-pending status and fails with ErrAlreadyDecided. Rejections
// must carry a reason. The status change and its audit row commit together.
func (s *Service) Decide(ctx context.Context, in DecideInput) (Expense, error) {
	if in.Action != ActionApprove && in.Action != ActionReject {
		return Expense{}, ErrInvalidAction
	}
	reason := strings.TrimSpace(in.Reason)
	if in.Action == ActionReject && reason == "" {
		return Expense{}, ErrReasonRequired
	}

	var decided Expense
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		expense, err := tx.GetExpenseForUpdate(ctx, in.ExpenseID)
		if err != nil {
			return err
		}
		if expense.Status != StatusPending {
			return ErrAlreadyDecided
		}

		oldStatus := expense.Status
		now := s.now()
		expense.ApprovedBy = &in.ActorID
		expense.ApprovedAt = &now
		if in.Action == ActionApprove {
			expense.Status = StatusApproved
		} else {
			expense.Status = StatusRejected
			expense.RejectionReason = &reason
		}
		if err := tx.ApplyDecision(ctx, expense); err != nil {
			return err
		}

		description := fmt.Sprintf("Approved expense of %s", shared.FormatKES(expense.Amount))
		if expense.Status == StatusRejected {
			description = fmt.Sprintf("Rejected expense of %s. Reason: %s", shared.FormatKES(expense.Amount), reason)
		}
		if err := tx.RecordAudit(ctx, shared.AuditLog{
			ActorID:     in.ActorID,
			Action:      "EXPENSE_" + string(in.Action),
			Entity:      "Expense",
			EntityID:    strconv.FormatInt(expense.ID, 10),
			Description: description,
			OldValue:    map[string]any{"status": string(oldStatus)},
			NewValue:    map[string]any{"status": string(expense.Status)},
		}); err != nil {
			return err
		}
		decided = expense
		return nil
	})
	if err != nil {
		return Expense{}, err
	}
	return decided, nil
}

// ListCategories returns all expense categories.
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	return s.repo.ListCategories(ctx)
}

// CreateCategory adds an expense category. Owner-only.
func (s *Service) CreateCategory(ctx context.Context, name string, description *string, actorID int64) (Category, error) {
	category, err := s.repo.InsertCategory(ctx, Category{Name: strings.TrimSpace(name), Description: description})
	if err != nil {
		return Category{}, err
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:     actorID,
		Action:      "EXPENSE_CATEGORY_CREATE",
		Entity:      "ExpenseCategory",
		EntityID:    strconv.FormatInt(category.ID, 10),
		Description: fmt.Sprintf("Created expense category %s", category.Name),
	}); err != nil {
		return Category{}, err
	}
	return category, nil
}
