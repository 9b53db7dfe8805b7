package catalog

import (
	"errors"
	"strings"
	"time"
)

// Product is a sellable item. Deletion is a soft archive via IsActive so that
// historical sale items and stock movements keep resolving the product.
type Product struct {
	ID           int64     `json:"id"`
	SKU          string    `json:"sku"`
	Barcode      *string   `json:"barcode,omitempty"`
	Name         string    `json:"name"`
	Description  *string   `json:"description,omitempty"`
	CategoryID   int64     `json:"categoryId"`
	CategoryName string    `json:"categoryName,omitempty"`
	CostPrice    float64   `json:"costPrice"`
	SellingPrice float64   `json:"sellingPrice"`
	CurrentStock int       `json:"currentStock"`
	ReorderLevel int       `json:"reorderLevel"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// LowStock reports whether the product sits at or below its reorder level.
func (p Product) LowStock() bool {
	return p.CurrentStock <= p.ReorderLevel
}

// Category groups products.
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ProductInput carries fields for creating or updating a product.
type ProductInput struct {
	SKU          string
	Barcode      string
	Name         string
	Description  string
	CategoryID   int64
	CostPrice    float64
	SellingPrice float64
	InitialStock int
	ReorderLevel int
	ActorID      int64
}

// Validate checks the basic field rules shared by create and update.
func (in ProductInput) Validate() error {
	if strings.TrimSpace(in.SKU) == "" {
		return errors.New("catalog: sku required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return errors.New("catalog: name required")
	}
	if in.CategoryID == 0 {
		return errors.New("catalog: category required")
	}
	if in.CostPrice < 0 || in.SellingPrice < 0 {
		return errors.New("catalog: prices must be >= 0")
	}
	if in.InitialStock < 0 {
		return errors.New("catalog: initial stock must be >= 0")
	}
	if in.ReorderLevel < 0 {
		return errors.New("catalog: reorder level must be >= 0")
	}
	return nil
}

// ListFilter narrows product listings.
type ListFilter struct {
	Search          string
	CategoryID      int64
	LowStock        bool
	IncludeInactive bool
}

// ErrSKUTaken indicates the SKU is already used by another product.
var ErrSKUTaken = errors.New("catalog: sku already exists")

// ErrBarcodeTaken indicates the barcode is already used by another product.
var ErrBarcodeTaken = errors.New("catalog: barcode already exists")
