package catalog

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dukapos/dukapos/internal/shared"
)

type memoryRepo struct {
	products   map[int64]Product
	categories []Category
	nextID     int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{products: make(map[int64]Product)}
}

func (r *memoryRepo) ListProducts(ctx context.Context, filter ListFilter) ([]Product, error) {
	var result []Product
	for _, p := range r.products {
		if filter.LowStock && !p.LowStock() {
			continue
		}
		result = append(result, p)
	}
	return result, nil
}

func (r *memoryRepo) GetProduct(ctx context.Context, id int64) (Product, error) {
	p, ok := r.products[id]
	if !ok {
		return Product{}, shared.ErrNotFound
	}
	return p, nil
}

func (r *memoryRepo) SKUExists(ctx context.Context, sku string, excludeID int64) (bool, error) {
	for _, p := range r.products {
		if p.SKU == sku && p.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryRepo) BarcodeExists(ctx context.Context, barcode string, excludeID int64) (bool, error) {
	for _, p := range r.products {
		if p.Barcode != nil && *p.Barcode == barcode && p.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryRepo) InsertProduct(ctx context.Context, in ProductInput) (Product, error) {
	r.nextID++
	p := Product{
		ID:           r.nextID,
		SKU:          in.SKU,
		Name:         in.Name,
		CategoryID:   in.CategoryID,
		CostPrice:    in.CostPrice,
		SellingPrice: in.SellingPrice,
		CurrentStock: in.InitialStock,
		ReorderLevel: in.ReorderLevel,
		IsActive:     true,
	}
	if in.Barcode != "" {
		b := in.Barcode
		p.Barcode = &b
	}
	r.products[p.ID] = p
	return p, nil
}

func (r *memoryRepo) UpdateProduct(ctx context.Context, id int64, in ProductInput) (Product, error) {
	p, ok := r.products[id]
	if !ok {
		return Product{}, shared.ErrNotFound
	}
	p.SKU = in.SKU
	p.Name = in.Name
	p.CategoryID = in.CategoryID
	p.CostPrice = in.CostPrice
	p.SellingPrice = in.SellingPrice
	p.ReorderLevel = in.ReorderLevel
	// current stock deliberately untouched
	r.products[id] = p
	return p, nil
}

func (r *memoryRepo) ArchiveProduct(ctx context.Context, id int64) error {
	p, ok := r.products[id]
	if !ok {
		return shared.ErrNotFound
	}
	p.IsActive = false
	r.products[id] = p
	return nil
}

func (r *memoryRepo) ListCategories(ctx context.Context) ([]Category, error) {
	return append([]Category(nil), r.categories...), nil
}

func (r *memoryRepo) InsertCategory(ctx context.Context, name string) (Category, error) {
	r.nextID++
	c := Category{ID: r.nextID, Name: name}
	r.categories = append(r.categories, c)
	return c, nil
}

type recordingAudit struct {
	logs []shared.AuditLog
	fail bool
}

func (a *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	if a.fail {
		return fmt.Errorf("audit insert failed")
	}
	a.logs = append(a.logs, log)
	return nil
}

func validInput() ProductInput {
	return ProductInput{
		SKU:          "BEER-TUSK-500",
		Barcode:      "5034567000011",
		Name:         "Tusker Lager 500ml",
		CategoryID:   1,
		CostPrice:    180,
		SellingPrice: 250,
		InitialStock: 48,
		ReorderLevel: 24,
		ActorID:      1,
	}
}

func TestCreateProduct(t *testing.T) {
	repo := newMemoryRepo()
	audit := &recordingAudit{}
	svc := NewService(repo, audit)

	product, err := svc.CreateProduct(context.Background(), validInput())
	require.NoError(t, err)
	require.Equal(t, 48, product.CurrentStock)
	require.True(t, product.IsActive)

	require.Len(t, audit.logs, 1)
	require.Equal(t, "PRODUCT_CREATE", audit.logs[0].Action)
}

func TestCreateProductSurfacesAuditFailure(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, &recordingAudit{fail: true})

	_, err := svc.CreateProduct(context.Background(), validInput())
	require.Error(t, err)
}

func TestCreateProductDuplicateSKU(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, &recordingAudit{})
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, validInput())
	require.NoError(t, err)

	dup := validInput()
	dup.Barcode = "5034567000099"
	_, err = svc.CreateProduct(ctx, dup)
	require.ErrorIs(t, err, ErrSKUTaken)
}

func TestCreateProductDuplicateBarcode(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, &recordingAudit{})
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, validInput())
	require.NoError(t, err)

	dup := validInput()
	dup.SKU = "BEER-TUSK-500X"
	_, err = svc.CreateProduct(ctx, dup)
	require.ErrorIs(t, err, ErrBarcodeTaken)
}

func TestUpdateProductNeverTouchesStock(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, &recordingAudit{})
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, validInput())
	require.NoError(t, err)

	updated := validInput()
	updated.SellingPrice = 280
	updated.InitialStock = 500 // must be ignored on update

	result, err := svc.UpdateProduct(ctx, product.ID, updated)
	require.NoError(t, err)
	require.InDelta(t, 280, result.SellingPrice, 0.001)
	require.Equal(t, 48, result.CurrentStock)
}

func TestUpdateProductAllowsOwnSKU(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, &recordingAudit{})
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, validInput())
	require.NoError(t, err)

	// Re-submitting the product's own SKU and barcode is not a conflict.
	_, err = svc.UpdateProduct(ctx, product.ID, validInput())
	require.NoError(t, err)
}

func TestArchiveProduct(t *testing.T) {
	repo := newMemoryRepo()
	audit := &recordingAudit{}
	svc := NewService(repo, audit)
	ctx := context.Background()

	product, err := svc.CreateProduct(ctx, validInput())
	require.NoError(t, err)

	require.NoError(t, svc.ArchiveProduct(ctx, product.ID, 1))
	require.False(t, repo.products[product.ID].IsActive)

	last := audit.logs[len(audit.logs)-1]
	require.Equal(t, "PRODUCT_ARCHIVE", last.Action)

	err = svc.ArchiveProduct(ctx, 999, 1)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestValidateInput(t *testing.T) {
	svc := NewService(newMemoryRepo(), &recordingAudit{})
	ctx := context.Background()

	in := validInput()
	in.SKU = "  "
	_, err := svc.CreateProduct(ctx, in)
	require.Error(t, err)

	in = validInput()
	in.CostPrice = -1
	_, err = svc.CreateProduct(ctx, in)
	require.Error(t, err)

	in = validInput()
	in.InitialStock = -5
	_, err = svc.CreateProduct(ctx, in)
	require.Error(t, err)
}
