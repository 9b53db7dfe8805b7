package closing

import (
	"errors"
	"time"
)

// ClosingStatus classifies a daily closing by its cash variance.
type ClosingStatus string

const (
	// StatusApproved means the declared cash was within the variance threshold.
	StatusApproved ClosingStatus = "APPROVED"
	// StatusDiscrepancy means the declared cash missed the threshold and the
	// closing needs an owner's attention.
	StatusDiscrepancy ClosingStatus = "DISCREPANCY"
)

// Closing reconciles a day's declared takings against recorded sales.
// At most one closing exists per calendar date.
type Closing struct {
	ID            int64         `json:"id"`
	Date          time.Time     `json:"date"`
	ExpectedCash  float64       `json:"expectedCash"`
	ExpectedMpesa float64       `json:"expectedMpesa"`
	ExpectedCard  float64       `json:"expectedCard"`
	ExpectedTotal float64       `json:"expectedTotal"`
	DeclaredCash  float64       `json:"declaredCash"`
	DeclaredMpesa float64       `json:"declaredMpesa"`
	DeclaredCard  float64       `json:"declaredCard"`
	CashVariance  float64       `json:"cashVariance"`
	TotalVariance float64       `json:"totalVariance"`
	Status        ClosingStatus `json:"status"`
	SalesCount    int           `json:"salesCount"`
	Notes         *string       `json:"notes,omitempty"`
	SubmittedBy   int64         `json:"submittedBy"`
	SubmitterName string        `json:"submitterName,omitempty"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// DayTotals aggregates a day's non-voided sales by payment method.
type DayTotals struct {
	Cash       float64 `json:"cash"`
	Mpesa      float64 `json:"mpesa"`
	Card       float64 `json:"card"`
	Total      float64 `json:"total"`
	SalesCount int     `json:"salesCount"`
}

// Preview is what a user sees before submitting a closing.
type Preview struct {
	Date     time.Time `json:"date"`
	Expected DayTotals `json:"expected"`
	Existing *Closing  `json:"existing,omitempty"`
	Recent   []Closing `json:"recent"`
}

// SubmitInput carries a declared closing for one date.
type SubmitInput struct {
	Date          time.Time
	DeclaredCash  float64
	DeclaredMpesa float64
	DeclaredCard  float64
	Notes         *string
	ActorID       int64
}

// ErrClosingExists is returned when the date already has a closing.
var ErrClosingExists = errors.New("closing: a closing already exists for this date")

// ErrFutureDate is returned when the closing date is after today.
var ErrFutureDate = errors.New("closing: cannot close a future date")
