package customer

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

var (
	ErrNotFound          = errors.New("customer not found")
	ErrEmailTaken        = errors.New("email already exists")
	ErrFirstNameRequired = errors.New("firstName is required")
	ErrInvalidEmail      = errors.New("email must be empty or end with @gmail.com, @yahoo.com, or @outlook.com")
	ErrInvalidPhone      = errors.New("phone number must be exactly 10 digits")
)

// Customer owns zero or more orders. Email and phone are optional; a stored
// email is always lowercase.
type Customer struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	Phone     string
	CreatedAt time.Time
}

// Repository defines persistence operations for customers.
type Repository interface {
	Create(ctx context.Context, c *Customer) error
	GetByID(ctx context.Context, id string) (*Customer, error)
	GetByEmail(ctx context.Context, email string) (*Customer, error)
	Update(ctx context.Context, c *Customer) error
	// List returns customers, optionally filtered by a case-insensitive
	// substring of the first or last name.
	List(ctx context.Context, nameFilter string) ([]Customer, error)
	// Delete removes the customer and cascades over every owned order and
	// every item those orders own, all in one transaction. The cascade is
	// walked by the application, not delegated to the store's delete rules.
	Delete(ctx context.Context, id string) error
}
