package category

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

var (
	ErrNotFound  = errors.New("category not found")
	ErrNameTaken = errors.New("category name already exists")
	ErrEmptyName = errors.New("category name is required")

	// ErrInUse is returned when a delete is refused because products still
	// reference the category.
	ErrInUse = errors.New("category cannot be deleted because products reference it")
)

// Category groups catalog products. Names are unique case-insensitively.
type Category struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
}

// Repository defines persistence operations for categories.
type Repository interface {
	Create(ctx context.Context, c *Category) error
	GetByID(ctx context.Context, id string) (*Category, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	Update(ctx context.Context, c *Category) error
	// List returns categories ordered by name, optionally filtered by a
	// case-insensitive name substring.
	List(ctx context.Context, nameFilter string) ([]Category, error)
	// Delete attempts the row delete and returns ErrInUse when the store
	// reports a foreign key violation from referencing products.
	Delete(ctx context.Context, id string) error
}
