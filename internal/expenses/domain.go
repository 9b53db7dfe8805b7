package expenses

import (
	"errors"
	"time"

	"github.com/dukapos/dukapos/internal/shared"
)

// ExpenseStatus tracks an expense through the approval workflow.
type ExpenseStatus string

const (
	// StatusPending is the state every expense is submitted in.
	StatusPending ExpenseStatus = "PENDING"
	// StatusApproved means an owner accepted the expense.
	StatusApproved ExpenseStatus = "APPROVED"
	// StatusRejected means an owner declined the expense.
	StatusRejected ExpenseStatus = "REJECTED"
)

// DecisionAction is the verb an owner applies to a pending expense.
type DecisionAction string

const (
	ActionApprove DecisionAction = "APPROVE"
	ActionReject  DecisionAction = "REJECT"
)

// Expense is a money-out record. It is decided at most once: the status
// moves from PENDING to APPROVED or REJECTED and never changes again.
type Expense struct {
	ID              int64                `json:"id"`
	CategoryID      int64                `json:"categoryId"`
	CategoryName    string               `json:"categoryName,omitempty"`
	Amount          float64              `json:"amount"`
	Description     string               `json:"description"`
	PaymentMethod   shared.PaymentMethod `json:"paymentMethod"`
	ReceiptRef      *string              `json:"receiptRef,omitempty"`
	Status          ExpenseStatus        `json:"status"`
	SubmittedBy     int64                `json:"submittedBy"`
	SubmitterName   string               `json:"submitterName,omitempty"`
	ApprovedBy      *int64               `json:"approvedBy,omitempty"`
	ApproverName    *string              `json:"approverName,omitempty"`
	ApprovedAt      *time.Time           `json:"approvedAt,omitempty"`
	RejectionReason *string              `json:"rejectionReason,omitempty"`
	CreatedAt       time.Time            `json:"createdAt"`
}

// Category groups expenses for reporting.
type Category struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

// SubmitInput describes a new expense.
type SubmitInput struct {
	CategoryID    int64
	Amount        float64
	Description   string
	PaymentMethod shared.PaymentMethod
	ReceiptRef    *string
	ActorID       int64
}

// DecideInput carries an owner's verdict on a pending expense.
type DecideInput struct {
	ExpenseID int64
	Action    DecisionAction
	Reason    string
	ActorID   int64
}

// ListFilter narrows expense listings.
type ListFilter struct {
	Status      ExpenseStatus
	From        time.Time
	To          time.Time
	SubmittedBy int64
	Page        int
	PerPage     int
}

// ErrAlreadyDecided is returned when deciding an expense that is no longer pending.
var ErrAlreadyDecided = errors.New("expenses: expense has already been decided")

// ErrInvalidAmount indicates a non-positive amount.
var ErrInvalidAmount = errors.New("expenses: amount must be greater than zero")

// ErrInvalidPayment indicates an unknown payment method.
var ErrInvalidPayment = errors.New("expenses: invalid payment method")

// ErrInvalidAction indicates an unknown decision action.
var ErrInvalidAction = errors.New("expenses: invalid decision action")

// ErrReasonRequired indicates a rejection without a reason.
var ErrReasonRequired = errors.New("expenses: rejection reason required")

// ErrCategoryTaken indicates a duplicate category name.
var ErrCategoryTaken = errors.New("expenses: category name already exists")
