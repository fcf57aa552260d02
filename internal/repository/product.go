package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/commerceflow/backend/internal/domain/product"
)

const (
	createProductSQL = `INSERT INTO products (id, sku, name, category_id, price, quantity, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	getProductByIDSQL = `SELECT id, sku, name, category_id, price, quantity, created_at
		FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT id, sku, name, category_id, price, quantity, created_at
		FROM products WHERE id = ANY($1)`

	productExistsBySKUSQL = `SELECT EXISTS (SELECT 1 FROM products WHERE sku = $1)`

	updateProductSQL = `UPDATE products
		SET name = $2, category_id = $3, price = $4, quantity = $5
		WHERE id = $1`

	listProductsSQL = `SELECT id, sku, name, category_id, price, quantity, created_at
		FROM products ORDER BY sku`

	deleteProductSQL = `DELETE FROM products WHERE id = $1`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// Create persists a new product.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	_, err := r.pool.Exec(ctx, createProductSQL,
		p.ID, p.SKU, p.Name, p.CategoryID, p.Price, p.Quantity, p.CreatedAt,
	)
	if err != nil {
		if errors.Is(classifyConstraint(err), ErrUniqueViolation) {
			return product.ErrSKUTaken
		}
		return fmt.Errorf("creating product %q: %w", p.ID, err)
	}
	return nil
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// ExistsBySKU reports whether a product with the given SKU exists.
func (r *ProductRepository) ExistsBySKU(ctx context.Context, sku string) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, productExistsBySKUSQL, sku).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking SKU %q: %w", sku, err)
	}
	return exists, nil
}

// Update persists the product's mutable fields. The SKU never changes.
func (r *ProductRepository) Update(ctx context.Context, p *product.Product) error {
	tag, err := r.pool.Exec(ctx, updateProductSQL,
		p.ID, p.Name, p.CategoryID, p.Price, p.Quantity,
	)
	if err != nil {
		return fmt.Errorf("updating product %q: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

// List returns all products from the catalog ordered by SKU.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Delete attempts the row delete. Referencing order items surface as a
// foreign key violation, reported as product.ErrInUse with the row left
// untouched.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteProductSQL, id)
	if err != nil {
		if errors.Is(classifyConstraint(err), ErrForeignKeyViolation) {
			return product.ErrInUse
		}
		return fmt.Errorf("deleting product %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return product.ErrNotFound
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.CategoryID, &p.Price, &p.Quantity, &p.CreatedAt)
	return p, err
}
