package product

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/commerceflow/backend/internal/domain/category"
)

// CreateRequest holds the input for creating a product.
type CreateRequest struct {
	SKU        string
	Name       string
	CategoryID string
	Price      decimal.Decimal
	Quantity   int
}

// UpdateRequest holds the input for updating a product. The SKU is immutable.
type UpdateRequest struct {
	Name       string
	CategoryID string
	Price      decimal.Decimal
	Quantity   int
}

// Service implements product CRUD against the catalog.
type Service struct {
	products   Repository
	categories category.Repository
}

// NewService creates a product Service.
func NewService(products Repository, categories category.Repository) *Service {
	return &Service{products: products, categories: categories}
}

// Create persists a new product after validating price, quantity, SKU
// uniqueness, and that the referenced category exists.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Product, error) {
	sku := strings.TrimSpace(req.SKU)
	if sku == "" {
		return nil, ErrEmptySKU
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrEmptyName
	}
	if err := validatePriceAndQuantity(req.Price, req.Quantity); err != nil {
		return nil, err
	}

	taken, err := s.products.ExistsBySKU(ctx, sku)
	if err != nil {
		return nil, fmt.Errorf("check SKU: %w", err)
	}
	if taken {
		return nil, fmt.Errorf("%s: %w", sku, ErrSKUTaken)
	}

	if _, err := s.categories.GetByID(ctx, req.CategoryID); err != nil {
		return nil, fmt.Errorf("get category %s: %w", req.CategoryID, err)
	}

	p := &Product{
		ID:         uuid.New().String(),
		SKU:        sku,
		Name:       name,
		CategoryID: req.CategoryID,
		Price:      req.Price,
		Quantity:   req.Quantity,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	return p, nil
}

// Get returns a product by id.
func (s *Service) Get(ctx context.Context, id string) (*Product, error) {
	return s.products.GetByID(ctx, id)
}

// List returns all catalog products.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	return s.products.List(ctx)
}

// Update changes a product's mutable fields. Existing order items keep their
// unit price snapshots regardless of price changes here.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (*Product, error) {
	if err := validatePriceAndQuantity(req.Price, req.Quantity); err != nil {
		return nil, err
	}

	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrEmptyName
	}

	if _, err := s.categories.GetByID(ctx, req.CategoryID); err != nil {
		return nil, fmt.Errorf("get category %s: %w", req.CategoryID, err)
	}

	p.Name = name
	p.CategoryID = req.CategoryID
	p.Price = req.Price
	p.Quantity = req.Quantity

	if err := s.products.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update product %s: %w", id, err)
	}

	return p, nil
}

// Delete removes a product. The delete is attempted, not pre-checked: a
// foreign key violation from referencing order items surfaces as ErrInUse
// and leaves the row untouched.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.products.GetByID(ctx, id); err != nil {
		return err
	}
	return s.products.Delete(ctx, id)
}

func validatePriceAndQuantity(price decimal.Decimal, quantity int) error {
	if price.IsNegative() {
		return ErrPriceNegative
	}
	if quantity < 0 {
		return ErrQtyNegative
	}
	return nil
}
