package customer

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// Optional fields validate only when present. Emails are restricted to a
// small provider allow-list; phones are exactly ten digits.
var (
	emailPattern = regexp.MustCompile(`^[a-z0-9._%+-]+@(gmail\.com|yahoo\.com|outlook\.com)$`)
	phonePattern = regexp.MustCompile(`^[0-9]{10}$`)
)

// CreateRequest holds the input for creating a customer.
type CreateRequest struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

// UpdateRequest holds the input for updating a customer. An empty email
// clears the stored one.
type UpdateRequest struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
}

// Service implements customer CRUD. Deleting a customer cascades over all of
// its orders and their items.
type Service struct {
	customers Repository
}

// NewService creates a customer Service.
func NewService(customers Repository) *Service {
	return &Service{customers: customers}
}

// Create persists a new customer. Emails are lowercased before the
// uniqueness check and before storage.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Customer, error) {
	firstName := strings.TrimSpace(req.FirstName)
	if firstName == "" {
		return nil, ErrFirstNameRequired
	}

	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if err := validatePhone(req.Phone); err != nil {
		return nil, err
	}

	if email != "" {
		if _, err := s.customers.GetByEmail(ctx, email); err == nil {
			return nil, ErrEmailTaken
		} else if !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("check email: %w", err)
		}
	}

	c := &Customer{
		ID:        uuid.New().String(),
		FirstName: firstName,
		LastName:  strings.TrimSpace(req.LastName),
		Email:     email,
		Phone:     req.Phone,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.customers.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}

	return c, nil
}

// Get returns a customer by id.
func (s *Service) Get(ctx context.Context, id string) (*Customer, error) {
	return s.customers.GetByID(ctx, id)
}

// List returns customers, optionally filtered by name substring.
func (s *Service) List(ctx context.Context, nameFilter string) ([]Customer, error) {
	return s.customers.List(ctx, nameFilter)
}

// Update changes a customer's fields. A new email may not belong to another
// customer; an empty one clears the field.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (*Customer, error) {
	c, err := s.customers.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	firstName := strings.TrimSpace(req.FirstName)
	if firstName == "" {
		return nil, ErrFirstNameRequired
	}

	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if err := validatePhone(req.Phone); err != nil {
		return nil, err
	}

	if email != "" {
		existing, err := s.customers.GetByEmail(ctx, email)
		switch {
		case err == nil && existing.ID != id:
			return nil, ErrEmailTaken
		case err != nil && !errors.Is(err, ErrNotFound):
			return nil, fmt.Errorf("check email: %w", err)
		}
	}

	c.FirstName = firstName
	c.LastName = strings.TrimSpace(req.LastName)
	c.Email = email
	c.Phone = req.Phone

	if err := s.customers.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("update customer %s: %w", id, err)
	}

	return c, nil
}

// Delete removes a customer together with all of its orders and their items.
// Unlike catalog deletes this never conflicts: an order has no meaning
// without its customer, so ownership cascades.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.customers.GetByID(ctx, id); err != nil {
		return err
	}
	return s.customers.Delete(ctx, id)
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", nil
	}
	if !emailPattern.MatchString(email) {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func validatePhone(phone string) error {
	if phone == "" {
		return nil
	}
	if !phonePattern.MatchString(phone) {
		return ErrInvalidPhone
	}
	return nil
}
