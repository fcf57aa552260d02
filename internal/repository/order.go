package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/commerceflow/backend/internal/domain/order"
	"github.com/commerceflow/backend/internal/domain/product"
)

const (
	insertOrderSQL = `INSERT INTO orders (id, customer_id, order_date, status, total)
		VALUES ($1, $2, $3, $4, $5)`

	insertOrderItemSQL = `INSERT INTO order_items (id, order_id, product_id, unit_price, quantity, line_total)
		VALUES ($1, $2, $3, $4, $5, $6)`

	getOrderByIDSQL = `SELECT id, customer_id, order_date, status, total
		FROM orders WHERE id = $1`

	getOrderItemSQL = `SELECT id, order_id, product_id, unit_price, quantity, line_total
		FROM order_items WHERE id = $1`

	listOrderItemsSQL = `SELECT id, order_id, product_id, unit_price, quantity, line_total
		FROM order_items WHERE order_id = $1 ORDER BY seq`

	lockOrderItemSQL = `SELECT order_id, line_total FROM order_items WHERE id = $1 FOR UPDATE`

	updateOrderItemSQL = `UPDATE order_items SET quantity = $2, line_total = $3 WHERE id = $1`

	deleteOrderItemSQL      = `DELETE FROM order_items WHERE id = $1 RETURNING order_id, line_total`
	deleteItemsByOrderIDSQL = `DELETE FROM order_items WHERE order_id = $1`
	deleteOrderSQL          = `DELETE FROM orders WHERE id = $1`

	// The relative update is the whole ledger trick: it takes the row lock and
	// reads the committed total at lock acquisition, so concurrent writers to
	// the same order serialize and no increment is lost.
	adjustOrderTotalSQL = `UPDATE orders SET total = total + $2 WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists the order and all of its items in one transaction. A
// failure on any row leaves nothing behind.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	return execTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, insertOrderSQL,
			o.ID, o.CustomerID, o.OrderDate, o.Status, o.Total,
		)
		if err != nil {
			return fmt.Errorf("creating order %q: %w", o.ID, err)
		}

		for i := range o.Items {
			item := &o.Items[i]
			_, err := tx.Exec(ctx, insertOrderItemSQL,
				item.ID, item.OrderID, item.ProductID,
				item.UnitPrice, item.Quantity, item.LineTotal,
			)
			if err != nil {
				return fmt.Errorf("creating order item %q: %w", item.ID, err)
			}
		}
		return nil
	})
}

// GetByID returns the order with its items attached.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	items, err := r.ListItems(ctx, id)
	if err != nil {
		return nil, err
	}
	o.Items = items

	return &o, nil
}

// Delete removes the order and every item it owns in one transaction.
func (r *OrderRepository) Delete(ctx context.Context, id string) error {
	return execTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, deleteItemsByOrderIDSQL, id); err != nil {
			return fmt.Errorf("deleting items of order %q: %w", id, err)
		}

		tag, err := tx.Exec(ctx, deleteOrderSQL, id)
		if err != nil {
			return fmt.Errorf("deleting order %q: %w", id, err)
		}
		if tag.RowsAffected() == 0 {
			return order.ErrNotFound
		}
		return nil
	})
}

// GetItem returns a single order item by its identifier.
func (r *OrderRepository) GetItem(ctx context.Context, itemID string) (*order.Item, error) {
	rows, err := r.pool.Query(ctx, getOrderItemSQL, itemID)
	if err != nil {
		return nil, fmt.Errorf("getting order item %q: %w", itemID, err)
	}

	item, err := pgx.CollectExactlyOneRow(rows, scanOrderItem)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrItemNotFound
		}
		return nil, fmt.Errorf("getting order item %q: %w", itemID, err)
	}
	return &item, nil
}

// ListItems returns all items of the given order.
func (r *OrderRepository) ListItems(ctx context.Context, orderID string) ([]order.Item, error) {
	rows, err := r.pool.Query(ctx, listOrderItemsSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("listing items of order %q: %w", orderID, err)
	}
	return pgx.CollectRows(rows, scanOrderItem)
}

// AddItem inserts the item and adds its line total to the parent order's
// total; both writes commit together.
func (r *OrderRepository) AddItem(ctx context.Context, item *order.Item) error {
	return execTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, insertOrderItemSQL,
			item.ID, item.OrderID, item.ProductID,
			item.UnitPrice, item.Quantity, item.LineTotal,
		)
		if err != nil {
			if errors.Is(classifyConstraint(err), ErrForeignKeyViolation) {
				return itemInsertFKError(err)
			}
			return fmt.Errorf("inserting order item %q: %w", item.ID, err)
		}

		tag, err := tx.Exec(ctx, adjustOrderTotalSQL, item.OrderID, item.LineTotal)
		if err != nil {
			return fmt.Errorf("adjusting total of order %q: %w", item.OrderID, err)
		}
		if tag.RowsAffected() == 0 {
			return order.ErrNotFound
		}
		return nil
	})
}

// UpdateItemQuantity persists the item's new quantity and line total and
// moves the parent order's total by the difference from the stored line
// total, atomically. The stored value is read under a row lock inside the
// transaction: a delta carried in from an earlier pool-level read could be
// stale after a concurrent update of the same item, and the relative total
// update cannot repair a stale delta.
func (r *OrderRepository) UpdateItemQuantity(ctx context.Context, item *order.Item) error {
	return execTx(ctx, r.pool, func(tx pgx.Tx) error {
		var (
			orderID string
			stored  decimal.Decimal
		)
		if err := tx.QueryRow(ctx, lockOrderItemSQL, item.ID).Scan(&orderID, &stored); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return order.ErrItemNotFound
			}
			return fmt.Errorf("locking order item %q: %w", item.ID, err)
		}

		if _, err := tx.Exec(ctx, updateOrderItemSQL, item.ID, item.Quantity, item.LineTotal); err != nil {
			return fmt.Errorf("updating order item %q: %w", item.ID, err)
		}

		tag, err := tx.Exec(ctx, adjustOrderTotalSQL, orderID, item.LineTotal.Sub(stored))
		if err != nil {
			return fmt.Errorf("adjusting total of order %q: %w", orderID, err)
		}
		if tag.RowsAffected() == 0 {
			return order.ErrNotFound
		}
		return nil
	})
}

// RemoveItem deletes the item and subtracts the line total the delete
// returns, so the adjustment always matches the row that actually existed. A
// parent order that no longer exists makes the adjustment a no-op; the item
// delete still commits.
func (r *OrderRepository) RemoveItem(ctx context.Context, itemID string) error {
	return execTx(ctx, r.pool, func(tx pgx.Tx) error {
		var (
			orderID   string
			lineTotal decimal.Decimal
		)
		if err := tx.QueryRow(ctx, deleteOrderItemSQL, itemID).Scan(&orderID, &lineTotal); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return order.ErrItemNotFound
			}
			return fmt.Errorf("deleting order item %q: %w", itemID, err)
		}

		if _, err := tx.Exec(ctx, adjustOrderTotalSQL, orderID, lineTotal.Neg()); err != nil {
			return fmt.Errorf("adjusting total of order %q: %w", orderID, err)
		}
		return nil
	})
}

// itemInsertFKError picks the sentinel for a foreign key violation raised by
// an order_items insert. Two constraints can fire: the order FK when the
// parent order vanished, and the product FK when the product was deleted
// after the service's existence check.
func itemInsertFKError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.Contains(pgErr.ConstraintName, "product_id") {
		return product.ErrNotFound
	}
	return order.ErrNotFound
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var o order.Order
	err := row.Scan(&o.ID, &o.CustomerID, &o.OrderDate, &o.Status, &o.Total)
	return o, err
}

func scanOrderItem(row pgx.CollectableRow) (order.Item, error) {
	var item order.Item
	err := row.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.UnitPrice, &item.Quantity, &item.LineTotal)
	return item, err
}
