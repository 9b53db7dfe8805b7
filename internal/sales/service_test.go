package sales

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dukapos/dukapos/internal/shared"
)

type movementRec struct {
	productID int64
	kind      string
	quantity  int
	reason    string
	unitCost  float64
}

type memoryRepo struct {
	products  map[int64]saleProduct
	sales     map[int64]Sale
	movements []movementRec
	counters  map[string]int
	audits    []shared.AuditLog
	nextID    int64

	failMovementFor int64
	failAudit       bool
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		products: make(map[int64]saleProduct),
		sales:    make(map[int64]Sale),
		counters: make(map[string]int),
	}
}

func (r *memoryRepo) snapshot() *memoryRepo {
	clone := newMemoryRepo()
	for id, p := range r.products {
		clone.products[id] = p
	}
	for id, s := range r.sales {
		clone.sales[id] = s
	}
	clone.movements = append([]movementRec(nil), r.movements...)
	for k, v := range r.counters {
		clone.counters[k] = v
	}
	clone.audits = append([]shared.AuditLog(nil), r.audits...)
	clone.nextID = r.nextID
	clone.failMovementFor = r.failMovementFor
	clone.failAudit = r.failAudit
	return clone
}

// WithTx mimics transactional rollback: any error restores the prior state.
func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	before := r.snapshot()
	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		*r = *before
		return err
	}
	return nil
}

func (r *memoryRepo) GetSale(ctx context.Context, id int64) (Sale, error) {
	sale, ok := r.sales[id]
	if !ok {
		return Sale{}, shared.ErrNotFound
	}
	return sale, nil
}

func (r *memoryRepo) ListSales(ctx context.Context, filter ListFilter) ([]Sale, int, error) {
	var result []Sale
	for _, s := range r.sales {
		if !s.IsVoided {
			result = append(result, s)
		}
	}
	return result, len(result), nil
}

func (tx *memoryTx) NextReceiptSequence(ctx context.Context, day time.Time) (int, error) {
	key := day.Format("20060102")
	tx.repo.counters[key]++
	return tx.repo.counters[key], nil
}

func (tx *memoryTx) GetProductForUpdate(ctx context.Context, productID int64) (saleProduct, error) {
	p, ok := tx.repo.products[productID]
	if !ok {
		return saleProduct{}, errProductRowMissing
	}
	return p, nil
}

func (tx *memoryTx) InsertSale(ctx context.Context, sale Sale) (int64, error) {
	tx.repo.nextID++
	sale.ID = tx.repo.nextID
	tx.repo.sales[sale.ID] = sale
	return sale.ID, nil
}

func (tx *memoryTx) InsertSaleItems(ctx context.Context, saleID int64, items []SaleItem) error {
	sale := tx.repo.sales[saleID]
	for i := range items {
		items[i].SaleID = saleID
	}
	sale.Items = items
	tx.repo.sales[saleID] = sale
	return nil
}

func (tx *memoryTx) DecrementStock(ctx context.Context, productID int64, quantity int) error {
	p := tx.repo.products[productID]
	if p.CurrentStock < quantity {
		return errStockGuard
	}
	p.CurrentStock -= quantity
	tx.repo.products[productID] = p
	return nil
}

func (tx *memoryTx) IncrementStock(ctx context.Context, productID int64, quantity int) error {
	p := tx.repo.products[productID]
	p.CurrentStock += quantity
	tx.repo.products[productID] = p
	return nil
}

func (tx *memoryTx) InsertMovement(ctx context.Context, productID int64, movementType string, quantity int, reason string, referenceID int64, userID int64, unitCost float64) error {
	if tx.repo.failMovementFor == productID {
		return fmt.Errorf("movement insert failed for product %d", productID)
	}
	tx.repo.movements = append(tx.repo.movements, movementRec{
		productID: productID,
		kind:      movementType,
		quantity:  quantity,
		reason:    reason,
		unitCost:  unitCost,
	})
	return nil
}

func (tx *memoryTx) GetSaleForUpdate(ctx context.Context, saleID int64) (Sale, error) {
	sale, ok := tx.repo.sales[saleID]
	if !ok {
		return Sale{}, shared.ErrNotFound
	}
	return sale, nil
}

func (tx *memoryTx) MarkVoided(ctx context.Context, saleID int64) error {
	sale := tx.repo.sales[saleID]
	sale.IsVoided = true
	tx.repo.sales[saleID] = sale
	return nil
}

func (tx *memoryTx) RecordAudit(ctx context.Context, log shared.AuditLog) error {
	if tx.repo.failAudit {
		return fmt.Errorf("audit insert failed")
	}
	tx.repo.audits = append(tx.repo.audits, log)
	return nil
}

func newTestService(repo *memoryRepo) *Service {
	svc := NewService(repo, ServiceConfig{})
	svc.WithNow(func() time.Time {
		return time.Date(2025, 6, 14, 10, 30, 0, 0, time.UTC)
	})
	return svc
}

func seedProducts(repo *memoryRepo) {
	repo.products[1] = saleProduct{ID: 1, Name: "Tusker Lager 500ml", CostPrice: 180, SellingPrice: 250, CurrentStock: 24}
	repo.products[2] = saleProduct{ID: 2, Name: "Smirnoff Vodka 750ml", CostPrice: 950, SellingPrice: 1400, CurrentStock: 5}
}

func TestCreateSaleComputesTotals(t *testing.T) {
	repo := newMemoryRepo()
	seedProducts(repo)
	svc := newTestService(repo)
	ctx := context.Background()

	sale, err := svc.Create(ctx, CreateSaleInput{
		Items: []CartItem{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 1},
			{ProductID: 1, Quantity: 1}, // duplicate line, merged into the first
		},
		PaymentMethod: shared.PaymentCash,
		Discount:      50,
		ActorID:       7,
	})
	require.NoError(t, err)

	require.Equal(t, "RCP-20250614-0001", sale.ReceiptNumber)
	require.Len(t, sale.Items, 2)
	require.InDelta(t, 3*250+1400, sale.Subtotal, 0.001)
	require.InDelta(t, sale.Subtotal-50, sale.Total, 0.001)
	require.InDelta(t, 3*180+950, sale.TotalCost, 0.001)
	require.InDelta(t, sale.Total-sale.TotalCost, sale.GrossProfit, 0.001)

	require.Equal(t, 21, repo.products[1].CurrentStock)
	require.Equal(t, 4, repo.products[2].CurrentStock)

	require.Len(t, repo.movements, 2)
	require.Equal(t, "SALE", repo.movements[0].kind)
	require.Equal(t, -3, repo.movements[0].quantity)
	require.Equal(t, "Sale RCP-20250614-0001", repo.movements[0].reason)
	require.InDelta(t, 180, repo.movements[0].unitCost, 0.001)
}

func TestCreateSaleReceiptSequenceIncrements(t *testing.T) {
	repo := newMemoryRepo()
	seedProducts(repo)
	svc := newTestService(repo)
	ctx := context.Background()

	first, err := svc.Create(ctx, CreateSaleInput{
		Items:         []CartItem{{ProductID: 1, Quantity: 1}},
		PaymentMethod: shared.PaymentCash,
		ActorID:       7,
	})
	require.NoError(t, err)
	second, err := svc.Create(ctx, CreateSaleInput{
		Items:         []CartItem{{ProductID: 1, Quantity: 1}},
		PaymentMethod: shared.PaymentMpesa,
		ActorID:       7,
	})
	require.NoError(t, err)

	require.Equal(t, "RCP-20250614-0001", first.ReceiptNumber)
	require.Equal(t, "RCP-20250614-0002", second.ReceiptNumber)
}

func TestCreateSaleValidation(t *testing.T) {
	repo := newMemoryRepo()
	seedProducts(repo)
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateSaleInput{PaymentMethod: shared.PaymentCash, ActorID: 7})
	require.ErrorIs(t, err, ErrEmptyCart)

	_, err = svc.Create(ctx, CreateSaleInput{
		Items:         []CartItem{{ProductID: 1, Quantity: 1}},
		PaymentMethod: "CHEQUE",
		ActorID:       7,
	})
	require.ErrorIs(t, err, ErrInvalidPayment)

	_, err = svc.Create(ctx, CreateSaleInput{
		Items:         []CartItem{{ProductID: 1, Quantity: 0}},
		PaymentMethod: shared.PaymentCash,
		ActorID:       7,
	})
	require.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.Create(ctx, CreateSaleInput{
		Items:         []CartItem{{ProductID: 1, Quantity: 1}},
		PaymentMethod: shared.PaymentCash,
		Discount:      -10,
		ActorID:       7,
	})
	require.ErrorIs(t, err, ErrInvalidDiscount)
}

func TestCreateSaleInsufficientStock(t *testing.T) {
	repo := newMemoryRepo()
	seedProducts(repo)
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateSaleInput{
		Items:         []CartItem{{ProductID: 2, Quantity: 6}},
		PaymentMethod: shared.PaymentCash,
		ActorID:       7,
	})

	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, "Smirnoff Vodka 750ml", insufficient.ProductName)
	require.Equal(t, 5, insufficient.Available)
	require.Equal(t, 6, insufficient.Requested)

	require.Equal(t, 5, repo.products[2].CurrentStock)
	require.Empty(t, repo.sales)
	require.Empty(t, repo.movements)
}

func TestCreateSaleUnknownProduct(t *testing.T) {
	repo := newMemoryRepo()
	seedProducts(repo)
	svc := newTestService(repo)

	_, err := svc.Create(context.Background(), CreateSaleInput{
		Items:         []CartItem{{ProductID: 99, Quantity: 1}},
		PaymentMethod: shared.PaymentCash,
		ActorID:       7,
	})
	var unavailable *ProductUnavailableError
	require.ErrorAs(t, err, &unavailable)
	require.Equal(t, int64(99), unavailable.ProductID)
}

func TestCreateSaleNegativeTotalPolicy(t *testing.T) {
	repo := newMemoryRepo()
	seedProducts(repo)
	svc := newTestService(repo)
	ctx := context.Background()

	input := CreateSaleInput{
		Items:         []CartItem{{ProductID: 1, Quantity: 1}},
		PaymentMethod: shared.PaymentCash,
		Discount:      1000,
		ActorID:       7,
	}

	_, err := svc.Create(ctx, input)
	require.ErrorIs(t, err, ErrNegativeTotal)
	require.Equal(t, 24, repo.products[1].CurrentStock)

	permissive := NewService(repo, ServiceConfig{AllowNegativeTotal: true})
	sale, err := permissive.Create(ctx, input)
	require.NoError(t, err)
	require.InDelta(t, 250-1000, sale.Total, 0.001)
}

func TestCreateSaleRollsBackOnPartialFailure(t *testing.T) {
	repo := newMemoryRepo()
	seedProducts(repo)
	repo.failMovementFor = 2
	svc := newTestService(repo)

	_, err := svc.Create(context.Background(), CreateSaleInput{
		Items: []CartItem{
			{ProductID: 1, Quantity: 2},
			{ProductID: 2, Quantity: 1},
		},
		PaymentMethod: shared.PaymentCash,
		ActorID:       7,
	})
	require.Error(t, err)

	// nothing from the failed transaction may survive
	require.Equal(t, 24, repo.products[1].CurrentStock)
	require.Equal(t, 5, repo.products[2].CurrentStock)
	require.Empty(t, repo.sales)
	require.Empty(t, repo.movements)
	require.Empty(t, repo.counters)
}

func TestVoidRestoresStock(t *testing.T) {
	repo := newMemoryRepo()
	seedProducts(repo)
	svc := NewService(repo, ServiceConfig{})
	ctx := context.Background()

	sale, err := svc.Create(ctx, CreateSaleInput{
		Items:         []CartItem{{ProductID: 1, Quantity: 4}},
		PaymentMethod: shared.PaymentCash,
		ActorID:       7,
	})
	require.NoError(t, err)
	require.Equal(t, 20, repo.products[1].CurrentStock)

	voided, err := svc.Void(ctx, sale.ID, 9)
	require.NoError(t, err)
	require.True(t, voided.IsVoided)
	require.Equal(t, 24, repo.products[1].CurrentStock)

	last := repo.movements[len(repo.movements)-1]
	require.Equal(t, "RETURN", last.kind)
	require.Equal(t, 4, last.quantity)

	require.Len(t, repo.audits, 1)
	require.Equal(t, "SALE_VOID", repo.audits[0].Action)

	_, err = svc.Void(ctx, sale.ID, 9)
	require.ErrorIs(t, err, ErrAlreadyVoided)
}

func TestVoidRollsBackWhenAuditFails(t *testing.T) {
	repo := newMemoryRepo()
	seedProducts(repo)
	svc := NewService(repo, ServiceConfig{})
	ctx := context.Background()

	sale, err := svc.Create(ctx, CreateSaleInput{
		Items:         []CartItem{{ProductID: 1, Quantity: 4}},
		PaymentMethod: shared.PaymentCash,
		ActorID:       7,
	})
	require.NoError(t, err)
	require.Equal(t, 20, repo.products[1].CurrentStock)

	repo.failAudit = true
	_, err = svc.Void(ctx, sale.ID, 9)
	require.Error(t, err)

	// the void must not survive without its audit row
	require.False(t, repo.sales[sale.ID].IsVoided)
	require.Equal(t, 20, repo.products[1].CurrentStock)
	require.Empty(t, repo.audits)
	for _, m := range repo.movements {
		require.NotEqual(t, "RETURN", m.kind)
	}

	repo.failAudit = false
	voided, err := svc.Void(ctx, sale.ID, 9)
	require.NoError(t, err)
	require.True(t, voided.IsVoided)
	require.Equal(t, 24, repo.products[1].CurrentStock)
}

func TestMergeCartOrdersByProduct(t *testing.T) {
	merged, err := mergeCart([]CartItem{
		{ProductID: 5, Quantity: 1},
		{ProductID: 2, Quantity: 2},
		{ProductID: 5, Quantity: 3},
	})
	require.NoError(t, err)
	require.Equal(t, []CartItem{{ProductID: 2, Quantity: 2}, {ProductID: 5, Quantity: 4}}, merged)
}
