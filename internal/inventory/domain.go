package inventory

import (
	"errors"
	"time"
)

// MovementType enumerates stock movement reasons.
type MovementType string

const (
	// MovementPurchase is inbound stock from a supplier.
	MovementPurchase MovementType = "PURCHASE"
	// MovementSale is an outbound movement written by the sales processor.
	MovementSale MovementType = "SALE"
	// MovementAdjustment is a manual correction, signed either way.
	MovementAdjustment MovementType = "ADJUSTMENT"
	// MovementReturn is stock coming back in.
	MovementReturn MovementType = "RETURN"
)

// Adjustable reports whether a manual adjustment may use this movement type.
// SALE movements are written only by the sales processor.
func (t MovementType) Adjustable() bool {
	return t == MovementPurchase || t == MovementAdjustment || t == MovementReturn
}

// Movement records a signed stock change. The running sum of quantities per
// product always equals the product's current stock.
type Movement struct {
	ID          int64        `json:"id"`
	ProductID   int64        `json:"productId"`
	ProductName string       `json:"productName,omitempty"`
	Type        MovementType `json:"type"`
	Quantity    int          `json:"quantity"`
	Reason      string       `json:"reason"`
	ReferenceID *int64       `json:"referenceId,omitempty"`
	UserID      int64        `json:"userId"`
	UserName    string       `json:"userName,omitempty"`
	UnitCost    float64      `json:"unitCost"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// AdjustInput describes a manual stock adjustment.
type AdjustInput struct {
	ProductID int64
	Type      MovementType
	Quantity  int
	Reason    string
	ActorID   int64
}

// AdjustResult pairs the updated product stock with the recorded movement.
type AdjustResult struct {
	ProductID   int64    `json:"productId"`
	ProductName string   `json:"productName"`
	NewStock    int      `json:"newStock"`
	Movement    Movement `json:"movement"`
}

// MovementFilter narrows movement listings.
type MovementFilter struct {
	ProductID int64
	Limit     int
}

// ErrNegativeStock is returned when an adjustment would drive stock below zero.
var ErrNegativeStock = errors.New("inventory: insufficient stock for this adjustment")

// ErrInvalidQuantity indicates a zero quantity delta.
var ErrInvalidQuantity = errors.New("inventory: quantity must be non zero")

// ErrInvalidType indicates a movement type manual adjustments may not use.
var ErrInvalidType = errors.New("inventory: invalid stock movement type")

// ErrReasonRequired indicates a missing adjustment reason.
var ErrReasonRequired = errors.New("inventory: reason required")
