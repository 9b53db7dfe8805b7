package inventory

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dukapos/dukapos/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error)
}

// Service coordinates manual stock adjustments.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Adjust applies a signed stock delta. The product row is locked for the
// duration of the transaction, so the check and the write cannot interleave
// with a concurrent sale. Stock update, movement, and audit row commit
// together or not at all.
func (s *Service) Adjust(ctx context.Context, in AdjustInput) (AdjustResult, error) {
	if in.Quantity == 0 {
		return AdjustResult{}, ErrInvalidQuantity
	}
	if !in.Type.Adjustable() {
		return AdjustResult{}, ErrInvalidType
	}
	if strings.TrimSpace(in.Reason) == "" {
		return AdjustResult{}, ErrReasonRequired
	}

	var result AdjustResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		product, err := tx.GetProductForUpdate(ctx, in.ProductID)
		if err != nil {
			return err
		}
		newStock := product.Stock + in.Quantity
		if newStock < 0 {
			return ErrNegativeStock
		}
		if err := tx.SetStock(ctx, in.ProductID, newStock); err != nil {
			return err
		}
		movement, err := tx.InsertMovement(ctx, Movement{
			ProductID: in.ProductID,
			Type:      in.Type,
			Quantity:  in.Quantity,
			Reason:    in.Reason,
			UserID:    in.ActorID,
			UnitCost:  product.CostPrice,
		})
		if err != nil {
			return err
		}
		if err := tx.RecordAudit(ctx, shared.AuditLog{
			ActorID:     in.ActorID,
			Action:      "STOCK_ADJUSTMENT",
			Entity:      "Product",
			EntityID:    strconv.FormatInt(in.ProductID, 10),
			Description: fmt.Sprintf("Adjusted stock for %s by %d. Reason: %s", product.Name, in.Quantity, in.Reason),
			OldValue:    map[string]any{"stock": product.Stock},
			NewValue:    map[string]any{"stock": newStock},
		}); err != nil {
			return err
		}
		result = AdjustResult{
			ProductID:   product.ID,
			ProductName: product.Name,
			NewStock:    newStock,
			Movement:    movement,
		}
		return nil
	})
	if err != nil {
		return AdjustResult{}, err
	}
	return result, nil
}

// ListMovements returns recent stock movements.
func (s *Service) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	return s.repo.ListMovements(ctx, filter)
}
