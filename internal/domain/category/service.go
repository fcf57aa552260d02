package category

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CreateRequest holds the input for creating a category.
type CreateRequest struct {
	Name        string
	Description string
}

// UpdateRequest holds the input for updating a category.
type UpdateRequest struct {
	Name        string
	Description string
}

// Service implements category CRUD with case-insensitive name uniqueness.
type Service struct {
	categories Repository
}

// NewService creates a category Service.
func NewService(categories Repository) *Service {
	return &Service{categories: categories}
}

// Create persists a new category after checking the name is unused.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrEmptyName
	}

	taken, err := s.categories.ExistsByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("check category name: %w", err)
	}
	if taken {
		return nil, ErrNameTaken
	}

	c := &Category{
		ID:          uuid.New().String(),
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.categories.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}

	return c, nil
}

// Get returns a category by id.
func (s *Service) Get(ctx context.Context, id string) (*Category, error) {
	return s.categories.GetByID(ctx, id)
}

// List returns categories, optionally filtered by name substring.
func (s *Service) List(ctx context.Context, nameFilter string) ([]Category, error) {
	return s.categories.List(ctx, nameFilter)
}

// Update renames or re-describes a category. The uniqueness check only runs
// when the name actually changes, so saving a category under its own name
// never conflicts with itself.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (*Category, error) {
	c, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrEmptyName
	}

	if !strings.EqualFold(c.Name, name) {
		taken, err := s.categories.ExistsByName(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("check category name: %w", err)
		}
		if taken {
			return nil, ErrNameTaken
		}
	}

	c.Name = name
	c.Description = strings.TrimSpace(req.Description)

	if err := s.categories.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("update category %s: %w", id, err)
	}

	return c, nil
}

// Delete removes a category. The delete is attempted, not pre-checked: a
// foreign key violation from referencing products surfaces as ErrInUse and
// leaves the row untouched, which stays correct under concurrent inserts.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.categories.GetByID(ctx, id); err != nil {
		return err
	}
	return s.categories.Delete(ctx, id)
}
