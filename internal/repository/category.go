package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/commerceflow/backend/internal/domain/category"
)

const (
	createCategorySQL = `INSERT INTO category (id, name, description, created_at)
		VALUES ($1, $2, $3, $4)`

	getCategoryByIDSQL = `SELECT id, name, description, created_at
		FROM category WHERE id = $1`

	categoryExistsByNameSQL = `SELECT EXISTS (
		SELECT 1 FROM category WHERE LOWER(name) = LOWER($1))`

	updateCategorySQL = `UPDATE category SET name = $2, description = $3 WHERE id = $1`

	listCategoriesSQL = `SELECT id, name, description, created_at
		FROM category
		WHERE $1 = '' OR name ILIKE '%' || $1 || '%'
		ORDER BY name`

	deleteCategorySQL = `DELETE FROM category WHERE id = $1`
)

var _ category.Repository = (*CategoryRepository)(nil)

// CategoryRepository implements category.Repository backed by PostgreSQL.
type CategoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository returns a CategoryRepository that uses the given pool.
func NewCategoryRepository(pool *pgxpool.Pool) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

// Create persists a new category.
func (r *CategoryRepository) Create(ctx context.Context, c *category.Category) error {
	_, err := r.pool.Exec(ctx, createCategorySQL, c.ID, c.Name, c.Description, c.CreatedAt)
	if err != nil {
		if errors.Is(classifyConstraint(err), ErrUniqueViolation) {
			return category.ErrNameTaken
		}
		return fmt.Errorf("creating category %q: %w", c.ID, err)
	}
	return nil
}

// GetByID returns a single category by its identifier.
func (r *CategoryRepository) GetByID(ctx context.Context, id string) (*category.Category, error) {
	rows, err := r.pool.Query(ctx, getCategoryByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting category %q: %w", id, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCategory)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, category.ErrNotFound
		}
		return nil, fmt.Errorf("getting category %q: %w", id, err)
	}
	return &c, nil
}

// ExistsByName reports whether a category with the given name exists,
// compared case-insensitively.
func (r *CategoryRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, categoryExistsByNameSQL, name).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking category name %q: %w", name, err)
	}
	return exists, nil
}

// Update persists the category's mutable fields.
func (r *CategoryRepository) Update(ctx context.Context, c *category.Category) error {
	tag, err := r.pool.Exec(ctx, updateCategorySQL, c.ID, c.Name, c.Description)
	if err != nil {
		if errors.Is(classifyConstraint(err), ErrUniqueViolation) {
			return category.ErrNameTaken
		}
		return fmt.Errorf("updating category %q: %w", c.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return category.ErrNotFound
	}
	return nil
}

// List returns categories ordered by name, optionally filtered by a
// case-insensitive name substring.
func (r *CategoryRepository) List(ctx context.Context, nameFilter string) ([]category.Category, error) {
	rows, err := r.pool.Query(ctx, listCategoriesSQL, nameFilter)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return pgx.CollectRows(rows, scanCategory)
}

// Delete attempts the row delete. Referencing products surface as a foreign
// key violation, reported as category.ErrInUse with the row left untouched.
func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteCategorySQL, id)
	if err != nil {
		if errors.Is(classifyConstraint(err), ErrForeignKeyViolation) {
			return category.ErrInUse
		}
		return fmt.Errorf("deleting category %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return category.ErrNotFound
	}
	return nil
}

func scanCategory(row pgx.CollectableRow) (category.Category, error) {
	var c category.Category
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.CreatedAt)
	return c, err
}
