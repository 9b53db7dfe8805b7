package sales

import (
	"errors"
	"fmt"
	"time"

	"github.com/dukapos/dukapos/internal/shared"
)

// Sale is an immutable record of a completed transaction. Only the voided
// flag may change after creation.
type Sale struct {
	ID               int64                `json:"id"`
	ReceiptNumber    string               `json:"receiptNumber"`
	UserID           int64                `json:"userId"`
	UserName         string               `json:"userName,omitempty"`
	Subtotal         float64              `json:"subtotal"`
	Discount         float64              `json:"discount"`
	Total            float64              `json:"total"`
	PaymentMethod    shared.PaymentMethod `json:"paymentMethod"`
	PaymentReference *string              `json:"paymentReference,omitempty"`
	TotalCost        float64              `json:"totalCost"`
	GrossProfit      float64              `json:"grossProfit"`
	IsVoided         bool                 `json:"isVoided"`
	CreatedAt        time.Time            `json:"createdAt"`
	Items            []SaleItem           `json:"items"`
}

// SaleItem is a line of a sale. Name, price, and cost are point-in-time
// snapshots of the product, so later catalog edits never rewrite history.
type SaleItem struct {
	ID          int64   `json:"id"`
	SaleID      int64   `json:"saleId"`
	ProductID   int64   `json:"productId"`
	ProductName string  `json:"productName"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unitPrice"`
	UnitCost    float64 `json:"unitCost"`
	Subtotal    float64 `json:"subtotal"`
}

// CartItem is a requested line in a new sale.
type CartItem struct {
	ProductID int64 `json:"productId"`
	Quantity  int   `json:"quantity"`
}

// CreateSaleInput carries everything needed to record a sale.
type CreateSaleInput struct {
	Items            []CartItem
	PaymentMethod    shared.PaymentMethod
	PaymentReference string
	Discount         float64
	ActorID          int64
}

// ListFilter narrows sale listings to a date range.
type ListFilter struct {
	From    time.Time
	To      time.Time
	Page    int
	PerPage int
}

// saleProduct is the locked product snapshot a sale line is priced from.
type saleProduct struct {
	ID           int64
	Name         string
	CostPrice    float64
	SellingPrice float64
	CurrentStock int
}

var (
	// ErrEmptyCart indicates a sale request without items.
	ErrEmptyCart = errors.New("sales: no items in sale")
	// ErrInvalidPayment indicates an unknown payment method.
	ErrInvalidPayment = errors.New("sales: invalid payment method")
	// ErrInvalidQuantity indicates a non-positive line quantity.
	ErrInvalidQuantity = errors.New("sales: quantity must be > 0")
	// ErrInvalidDiscount indicates a negative discount.
	ErrInvalidDiscount = errors.New("sales: discount must be >= 0")
	// ErrNegativeTotal indicates the discount exceeds the subtotal.
	ErrNegativeTotal = errors.New("sales: discount exceeds subtotal")
	// ErrAlreadyVoided indicates a repeated void attempt.
	ErrAlreadyVoided = errors.New("sales: sale already voided")
)

// ProductUnavailableError names a cart product that is missing or archived.
type ProductUnavailableError struct {
	ProductID int64
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("sales: product %d not found or inactive", e.ProductID)
}

// InsufficientStockError names the offending product and what is available.
type InsufficientStockError struct {
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("sales: insufficient stock for %s. Available: %d", e.ProductName, e.Available)
}
