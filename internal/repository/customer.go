package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/commerceflow/backend/internal/domain/customer"
)

const (
	createCustomerSQL = `INSERT INTO customers (id, first_name, last_name, email, phone, created_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)`

	getCustomerByIDSQL = `SELECT id, first_name, last_name, COALESCE(email, ''), phone, created_at
		FROM customers WHERE id = $1`

	getCustomerByEmailSQL = `SELECT id, first_name, last_name, COALESCE(email, ''), phone, created_at
		FROM customers WHERE LOWER(email) = LOWER($1)`

	updateCustomerSQL = `UPDATE customers
		SET first_name = $2, last_name = $3, email = NULLIF($4, ''), phone = $5
		WHERE id = $1`

	listCustomersSQL = `SELECT id, first_name, last_name, COALESCE(email, ''), phone, created_at
		FROM customers
		WHERE $1 = '' OR first_name ILIKE '%' || $1 || '%' OR last_name ILIKE '%' || $1 || '%'
		ORDER BY first_name, last_name`

	customerOrderIDsSQL = `SELECT id FROM orders WHERE customer_id = $1`

	deleteItemsByOrderIDsSQL = `DELETE FROM order_items WHERE order_id = ANY($1)`
	deleteOrdersByIDsSQL     = `DELETE FROM orders WHERE id = ANY($1)`
	deleteCustomerSQL        = `DELETE FROM customers WHERE id = $1`
)

var _ customer.Repository = (*CustomerRepository)(nil)

// CustomerRepository implements customer.Repository backed by PostgreSQL.
type CustomerRepository struct {
	pool *pgxpool.Pool
}

// NewCustomerRepository returns a CustomerRepository that uses the given pool.
func NewCustomerRepository(pool *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{pool: pool}
}

// Create persists a new customer. An empty email is stored as NULL so the
// unique index only constrains real addresses.
func (r *CustomerRepository) Create(ctx context.Context, c *customer.Customer) error {
	_, err := r.pool.Exec(ctx, createCustomerSQL,
		c.ID, c.FirstName, c.LastName, c.Email, c.Phone, c.CreatedAt,
	)
	if err != nil {
		if errors.Is(classifyConstraint(err), ErrUniqueViolation) {
			return customer.ErrEmailTaken
		}
		return fmt.Errorf("creating customer %q: %w", c.ID, err)
	}
	return nil
}

// GetByID returns a single customer by its identifier.
func (r *CustomerRepository) GetByID(ctx context.Context, id string) (*customer.Customer, error) {
	rows, err := r.pool.Query(ctx, getCustomerByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting customer %q: %w", id, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCustomer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrNotFound
		}
		return nil, fmt.Errorf("getting customer %q: %w", id, err)
	}
	return &c, nil
}

// GetByEmail returns the customer with the given email, compared
// case-insensitively.
func (r *CustomerRepository) GetByEmail(ctx context.Context, email string) (*customer.Customer, error) {
	rows, err := r.pool.Query(ctx, getCustomerByEmailSQL, email)
	if err != nil {
		return nil, fmt.Errorf("getting customer by email: %w", err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCustomer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrNotFound
		}
		return nil, fmt.Errorf("getting customer by email: %w", err)
	}
	return &c, nil
}

// Update persists the customer's mutable fields.
func (r *CustomerRepository) Update(ctx context.Context, c *customer.Customer) error {
	tag, err := r.pool.Exec(ctx, updateCustomerSQL,
		c.ID, c.FirstName, c.LastName, c.Email, c.Phone,
	)
	if err != nil {
		if errors.Is(classifyConstraint(err), ErrUniqueViolation) {
			return customer.ErrEmailTaken
		}
		return fmt.Errorf("updating customer %q: %w", c.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return customer.ErrNotFound
	}
	return nil
}

// List returns customers, optionally filtered by a case-insensitive name
// substring.
func (r *CustomerRepository) List(ctx context.Context, nameFilter string) ([]customer.Customer, error) {
	rows, err := r.pool.Query(ctx, listCustomersSQL, nameFilter)
	if err != nil {
		return nil, fmt.Errorf("listing customers: %w", err)
	}
	return pgx.CollectRows(rows, scanCustomer)
}

// Delete removes the customer and cascades over everything it owns: the
// owned order ids are collected first, then their items, the orders, and
// finally the customer row are deleted in one transaction. The cascade is
// walked here rather than left to ON DELETE rules so it holds regardless of
// the store's schema configuration.
func (r *CustomerRepository) Delete(ctx context.Context, id string) error {
	return execTx(ctx, r.pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, customerOrderIDsSQL, id)
		if err != nil {
			return fmt.Errorf("listing orders of customer %q: %w", id, err)
		}
		orderIDs, err := pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return fmt.Errorf("listing orders of customer %q: %w", id, err)
		}

		if len(orderIDs) > 0 {
			if _, err := tx.Exec(ctx, deleteItemsByOrderIDsSQL, orderIDs); err != nil {
				return fmt.Errorf("deleting items of customer %q: %w", id, err)
			}
			if _, err := tx.Exec(ctx, deleteOrdersByIDsSQL, orderIDs); err != nil {
				return fmt.Errorf("deleting orders of customer %q: %w", id, err)
			}
		}

		tag, err := tx.Exec(ctx, deleteCustomerSQL, id)
		if err != nil {
			return fmt.Errorf("deleting customer %q: %w", id, err)
		}
		if tag.RowsAffected() == 0 {
			return customer.ErrNotFound
		}
		return nil
	})
}

func scanCustomer(row pgx.CollectableRow) (customer.Customer, error) {
	var c customer.Customer
	err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.CreatedAt)
	return c, err
}
