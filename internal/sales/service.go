package sales

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/dukapos/dukapos/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetSale(ctx context.Context, id int64) (Sale, error)
	ListSales(ctx context.Context, filter ListFilter) ([]Sale, int, error)
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	// AllowNegativeTotal permits a discount larger than the subtotal.
	AllowNegativeTotal bool
}

// Service processes sale transactions.
type Service struct {
	repo     RepositoryPort
	allowNeg bool
	now      func() time.Time
}

// NewService builds a Service.
func NewService(repo RepositoryPort, cfg ServiceConfig) *Service {
	return &Service{
		repo:     repo,
		allowNeg: cfg.AllowNegativeTotal,
		now:      time.Now,
	}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Create validates a cart and atomically persists the sale, its line items,
// the per-product stock decrements, and the SALE movements. Either the whole
// write set commits or none of it does.
func (s *Service) Create(ctx context.Context, in CreateSaleInput) (Sale, error) {
	if len(in.Items) == 0 {
		return Sale{}, ErrEmptyCart
	}
	if !in.PaymentMethod.Valid() {
		return Sale{}, ErrInvalidPayment
	}
	if in.Discount < 0 {
		return Sale{}, ErrInvalidDiscount
	}
	merged, err := mergeCart(in.Items)
	if err != nil {
		return Sale{}, err
	}

	var saleID int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		now := s.now().UTC()
		seq, err := tx.NextReceiptSequence(ctx, now)
		if err != nil {
			return fmt.Errorf("sales: receipt sequence: %w", err)
		}
		receipt := fmt.Sprintf("RCP-%s-%04d", now.Format("20060102"), seq)

		var subtotal, totalCost float64
		lines := make([]SaleItem, 0, len(merged))
		for _, item := range merged {
			product, err := tx.GetProductForUpdate(ctx, item.ProductID)
			if err != nil {
				if err == errProductRowMissing {
					return &ProductUnavailableError{ProductID: item.ProductID}
				}
				return err
			}
			if product.CurrentStock < item.Quantity {
				return &InsufficientStockError{
					ProductName: product.Name,
					Available:   product.CurrentStock,
					Requested:   item.Quantity,
				}
			}
			lineSubtotal := product.SellingPrice * float64(item.Quantity)
			subtotal += lineSubtotal
			totalCost += product.CostPrice * float64(item.Quantity)
			lines = append(lines, SaleItem{
				ProductID:   product.ID,
				ProductName: product.Name,
				Quantity:    item.Quantity,
				UnitPrice:   product.SellingPrice,
				UnitCost:    product.CostPrice,
				Subtotal:    lineSubtotal,
			})
		}

		total := subtotal - in.Discount
		if total < 0 && !s.allowNeg {
			return ErrNegativeTotal
		}

		sale := Sale{
			ReceiptNumber: receipt,
			UserID:        in.ActorID,
			Subtotal:      subtotal,
			Discount:      in.Discount,
			Total:         total,
			PaymentMethod: in.PaymentMethod,
			TotalCost:     totalCost,
			GrossProfit:   total - totalCost,
		}
		if in.PaymentReference != "" {
			ref := in.PaymentReference
			sale.PaymentReference = &ref
		}

		saleID, err = tx.InsertSale(ctx, sale)
		if err != nil {
			return err
		}
		if err := tx.InsertSaleItems(ctx, saleID, lines); err != nil {
			return err
		}
		for _, line := range lines {
			if err := tx.DecrementStock(ctx, line.ProductID, line.Quantity); err != nil {
				return err
			}
			reason := fmt.Sprintf("Sale %s", receipt)
			if err := tx.InsertMovement(ctx, line.ProductID, "SALE", -line.Quantity, reason, saleID, in.ActorID, line.UnitCost); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Sale{}, err
	}
	return s.repo.GetSale(ctx, saleID)
}

// Get loads a single sale with items.
func (s *Service) Get(ctx context.Context, id int64) (Sale, error) {
	return s.repo.GetSale(ctx, id)
}

// List returns non-voided sales in a date range, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Sale, shared.Pagination, error) {
	result, total, err := s.repo.ListSales(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return result, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// Void marks a sale voided, restores its stock with RETURN movements and
// records the audit entry, as one atomic unit. Voiding twice is rejected.
func (s *Service) Void(ctx context.Context, saleID int64, actorID int64) (Sale, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		sale, err := tx.GetSaleForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		if sale.IsVoided {
			return ErrAlreadyVoided
		}
		if err := tx.MarkVoided(ctx, saleID); err != nil {
			return err
		}
		reason := fmt.Sprintf("Void %s", sale.ReceiptNumber)
		for _, item := range sale.Items {
			if err := tx.IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
			if err := tx.InsertMovement(ctx, item.ProductID, "RETURN", item.Quantity, reason, saleID, actorID, item.UnitCost); err != nil {
				return err
			}
		}
		return tx.RecordAudit(ctx, shared.AuditLog{
			ActorID:     actorID,
			Action:      "SALE_VOID",
			Entity:      "Sale",
			EntityID:    strconv.FormatInt(saleID, 10),
			Description: fmt.Sprintf("Voided sale %s and restored stock", sale.ReceiptNumber),
			OldValue:    map[string]any{"isVoided": false},
			NewValue:    map[string]any{"isVoided": true},
		})
	})
	if err != nil {
		return Sale{}, err
	}
	return s.repo.GetSale(ctx, saleID)
}

// mergeCart combines duplicate product lines and orders them by product id so
// concurrent sales acquire row locks in a consistent order.
func mergeCart(items []CartItem) ([]CartItem, error) {
	byProduct := make(map[int64]int, len(items))
	for _, item := range items {
		if item.ProductID == 0 {
			return nil, &ProductUnavailableError{ProductID: item.ProductID}
		}
		if item.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		byProduct[item.ProductID] += item.Quantity
	}
	merged := make([]CartItem, 0, len(byProduct))
	for id, qty := range byProduct {
		merged = append(merged, CartItem{ProductID: id, Quantity: qty})
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].ProductID < merged[j].ProductID })
	return merged, nil
}
