package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dukapos/dukapos/internal/shared"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	ListProducts(ctx context.Context, filter ListFilter) ([]Product, error)
	GetProduct(ctx context.Context, id int64) (Product, error)
	SKUExists(ctx context.Context, sku string, excludeID int64) (bool, error)
	BarcodeExists(ctx context.Context, barcode string, excludeID int64) (bool, error)
	InsertProduct(ctx context.Context, in ProductInput) (Product, error)
	UpdateProduct(ctx context.Context, id int64, in ProductInput) (Product, error)
	ArchiveProduct(ctx context.Context, id int64) error
	ListCategories(ctx context.Context) ([]Category, error)
	InsertCategory(ctx context.Context, name string) (Category, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates catalog operations.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds a Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// ListProducts returns products matching the filter.
func (s *Service) ListProducts(ctx context.Context, filter ListFilter) ([]Product, error) {
	return s.repo.ListProducts(ctx, filter)
}

// GetProduct loads a single product.
func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// CreateProduct validates and persists a new product. An initial stock above
// zero is recorded as a PURCHASE movement atomically with the insert.
func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (Product, error) {
	if err := s.checkInput(ctx, &in, 0); err != nil {
		return Product{}, err
	}
	product, err := s.repo.InsertProduct(ctx, in)
	if err != nil {
		return Product{}, err
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:     in.ActorID,
		Action:      "PRODUCT_CREATE",
		Entity:      "Product",
		EntityID:    strconv.FormatInt(product.ID, 10),
		Description: fmt.Sprintf("Created product %s (%s), initial stock %d", product.Name, product.SKU, in.InitialStock),
		NewValue:    map[string]any{"sku": product.SKU, "stock": product.CurrentStock},
	}); err != nil {
		return Product{}, err
	}
	return product, nil
}

// UpdateProduct validates and updates an existing product. Stock cannot be
// edited here; use an inventory adjustment.
func (s *Service) UpdateProduct(ctx context.Context, id int64, in ProductInput) (Product, error) {
	old, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if err := s.checkInput(ctx, &in, id); err != nil {
		return Product{}, err
	}
	product, err := s.repo.UpdateProduct(ctx, id, in)
	if err != nil {
		return Product{}, err
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:     in.ActorID,
		Action:      "PRODUCT_UPDATE",
		Entity:      "Product",
		EntityID:    strconv.FormatInt(id, 10),
		Description: fmt.Sprintf("Updated product %s (%s)", product.Name, product.SKU),
		OldValue:    map[string]any{"costPrice": old.CostPrice, "sellingPrice": old.SellingPrice},
		NewValue:    map[string]any{"costPrice": product.CostPrice, "sellingPrice": product.SellingPrice},
	}); err != nil {
		return Product{}, err
	}
	return product, nil
}

// ArchiveProduct soft-deletes a product so past receipts keep resolving it.
func (s *Service) ArchiveProduct(ctx context.Context, id int64, actorID int64) error {
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.ArchiveProduct(ctx, id); err != nil {
		return err
	}
	return s.audit.Record(ctx, shared.AuditLog{
		ActorID:     actorID,
		Action:      "PRODUCT_ARCHIVE",
		Entity:      "Product",
		EntityID:    strconv.FormatInt(id, 10),
		Description: fmt.Sprintf("Archived product %s (%s)", product.Name, product.SKU),
		OldValue:    map[string]any{"isActive": true},
		NewValue:    map[string]any{"isActive": false},
	})
}

// ListCategories returns all categories.
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	return s.repo.ListCategories(ctx)
}

// CreateCategory creates a category.
func (s *Service) CreateCategory(ctx context.Context, name string) (Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Category{}, errors.New("catalog: category name required")
	}
	return s.repo.InsertCategory(ctx, name)
}

func (s *Service) checkInput(ctx context.Context, in *ProductInput, excludeID int64) error {
	in.SKU = strings.TrimSpace(in.SKU)
	in.Barcode = strings.TrimSpace(in.Barcode)
	in.Name = strings.TrimSpace(in.Name)
	if err := in.Validate(); err != nil {
		return err
	}
	taken, err := s.repo.SKUExists(ctx, in.SKU, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return ErrSKUTaken
	}
	if in.Barcode != "" {
		taken, err = s.repo.BarcodeExists(ctx, in.Barcode, excludeID)
		if err != nil {
			return err
		}
		if taken {
			return ErrBarcodeTaken
		}
	}
	return nil
}
