package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound      = errors.New("product not found")
	ErrSKUTaken      = errors.New("SKU already exists")
	ErrEmptySKU      = errors.New("SKU is required")
	ErrEmptyName     = errors.New("product name is required")
	ErrPriceNegative = errors.New("price must be non-negative")
	ErrQtyNegative   = errors.New("quantity must be non-negative")

	// ErrInUse is returned when a delete is refused because order items still
	// reference the product.
	ErrInUse = errors.New("product cannot be deleted because orders reference it")
)

// Product is a catalog item. Price is the current catalog price; order items
// snapshot it at creation time and are never affected by later changes here.
type Product struct {
	ID         string
	SKU        string
	Name       string
	CategoryID string
	Price      decimal.Decimal
	Quantity   int
	CreatedAt  time.Time
}

// Repository defines persistence operations for the product catalog.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
	ExistsBySKU(ctx context.Context, sku string) (bool, error)
	Update(ctx context.Context, p *Product) error
	List(ctx context.Context) ([]Product, error)
	// Delete attempts the row delete and returns ErrInUse when the store
	// reports a foreign key violation from referencing order items.
	Delete(ctx context.Context, id string) error
}
