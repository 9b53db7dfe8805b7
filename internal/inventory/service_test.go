package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dukapos/dukapos/internal/shared"
)

type memoryRepo struct {
	products  map[int64]productState
	movements []Movement
	audits    []shared.AuditLog
	nextID    int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{products: make(map[int64]productState)}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	before := &memoryRepo{products: make(map[int64]productState)}
	for id, p := range r.products {
		before.products[id] = p
	}
	before.movements = append([]Movement(nil), r.movements...)
	before.audits = append([]shared.AuditLog(nil), r.audits...)
	before.nextID = r.nextID

	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		*r = *before
		return err
	}
	return nil
}

func (r *memoryRepo) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	result := make([]Movement, len(r.movements))
	copy(result, r.movements)
	return result, nil
}

func (tx *memoryTx) GetProductForUpdate(ctx context.Context, productID int64) (productState, error) {
	p, ok := tx.repo.products[productID]
	if !ok {
		return productState{}, shared.ErrNotFound
	}
	return p, nil
}

func (tx *memoryTx) SetStock(ctx context.Context, productID int64, stock int) error {
	p := tx.repo.products[productID]
	p.Stock = stock
	tx.repo.products[productID] = p
	return nil
}

func (tx *memoryTx) InsertMovement(ctx context.Context, m Movement) (Movement, error) {
	tx.repo.nextID++
	m.ID = tx.repo.nextID
	tx.repo.movements = append(tx.repo.movements, m)
	return m, nil
}

func (tx *memoryTx) RecordAudit(ctx context.Context, log shared.AuditLog) error {
	tx.repo.audits = append(tx.repo.audits, log)
	return nil
}

func TestAdjustIncreasesStock(t *testing.T) {
	repo := newMemoryRepo()
	repo.products[1] = productState{ID: 1, Name: "Tusker Lager 500ml", CostPrice: 180, Stock: 10}
	svc := NewService(repo)

	result, err := svc.Adjust(context.Background(), AdjustInput{
		ProductID: 1,
		Type:      MovementPurchase,
		Quantity:  24,
		Reason:    "Delivery from EABL",
		ActorID:   3,
	})
	require.NoError(t, err)
	require.Equal(t, 34, result.NewStock)
	require.Equal(t, 34, repo.products[1].Stock)

	require.Len(t, repo.movements, 1)
	require.Equal(t, MovementPurchase, repo.movements[0].Type)
	require.Equal(t, 24, repo.movements[0].Quantity)
	require.InDelta(t, 180, repo.movements[0].UnitCost, 0.001)

	require.Len(t, repo.audits, 1)
	require.Equal(t, "STOCK_ADJUSTMENT", repo.audits[0].Action)
	require.Equal(t, map[string]any{"stock": 10}, repo.audits[0].OldValue)
	require.Equal(t, map[string]any{"stock": 34}, repo.audits[0].NewValue)
}

func TestAdjustRejectsNegativeStock(t *testing.T) {
	repo := newMemoryRepo()
	repo.products[1] = productState{ID: 1, Name: "Tusker Lager 500ml", CostPrice: 180, Stock: 5}
	svc := NewService(repo)

	_, err := svc.Adjust(context.Background(), AdjustInput{
		ProductID: 1,
		Type:      MovementAdjustment,
		Quantity:  -6,
		Reason:    "Breakage count",
		ActorID:   3,
	})
	require.ErrorIs(t, err, ErrNegativeStock)
	require.Equal(t, 5, repo.products[1].Stock)
	require.Empty(t, repo.movements)
	require.Empty(t, repo.audits)
}

func TestAdjustValidation(t *testing.T) {
	repo := newMemoryRepo()
	repo.products[1] = productState{ID: 1, Name: "Tusker Lager 500ml", Stock: 5}
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.Adjust(ctx, AdjustInput{ProductID: 1, Type: MovementPurchase, Quantity: 0, Reason: "x", ActorID: 3})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.Adjust(ctx, AdjustInput{ProductID: 1, Type: MovementSale, Quantity: -1, Reason: "x", ActorID: 3})
	require.ErrorIs(t, err, ErrInvalidType)

	_, err = svc.Adjust(ctx, AdjustInput{ProductID: 1, Type: MovementPurchase, Quantity: 2, Reason: "  ", ActorID: 3})
	require.ErrorIs(t, err, ErrReasonRequired)

	_, err = svc.Adjust(ctx, AdjustInput{ProductID: 99, Type: MovementPurchase, Quantity: 2, Reason: "restock", ActorID: 3})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestAdjustMovementSumMatchesStock(t *testing.T) {
	repo := newMemoryRepo()
	repo.products[1] = productState{ID: 1, Name: "Tusker Lager 500ml", CostPrice: 180, Stock: 0}
	svc := NewService(repo)
	ctx := context.Background()

	steps := []struct {
		kind MovementType
		qty  int
	}{
		{MovementPurchase, 48},
		{MovementAdjustment, -3},
		{MovementReturn, 2},
		{MovementAdjustment, -1},
	}
	for _, step := range steps {
		_, err := svc.Adjust(ctx, AdjustInput{ProductID: 1, Type: step.kind, Quantity: step.qty, Reason: "cycle count", ActorID: 3})
		require.NoError(t, err)
	}

	sum := 0
	for _, m := range repo.movements {
		sum += m.Quantity
	}
	require.Equal(t, repo.products[1].Stock, sum)
	require.Equal(t, 46, repo.products[1].Stock)
}
