package repository

import (
	"testing"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/commerceflow/backend/internal/domain/order"
	"github.com/commerceflow/backend/internal/domain/product"
)

func TestClassifyConstraint(t *testing.T) {
	fk := &pgconn.PgError{Code: "23503", ConstraintName: "products_category_id_fkey"}
	assert.ErrorIs(t, classifyConstraint(fk), ErrForeignKeyViolation)

	unique := &pgconn.PgError{Code: "23505", ConstraintName: "products_sku_key"}
	assert.ErrorIs(t, classifyConstraint(unique), ErrUniqueViolation)

	// Wrapped constraint errors still classify.
	wrapped := errors.Wrap(fk, "delete category")
	assert.ErrorIs(t, classifyConstraint(wrapped), ErrForeignKeyViolation)

	// Other SQLSTATEs and plain errors pass through unchanged.
	check := &pgconn.PgError{Code: "23514"}
	assert.Equal(t, error(check), classifyConstraint(check))

	plain := errors.New("boom")
	assert.Equal(t, plain, classifyConstraint(plain))

	assert.Nil(t, classifyConstraint(nil))
}

// The order_items insert carries two foreign keys; the constraint name must
// decide which entity is reported missing.
func TestItemInsertFKError(t *testing.T) {
	productFK := &pgconn.PgError{Code: "23503", ConstraintName: "order_items_product_id_fkey"}
	assert.ErrorIs(t, itemInsertFKError(productFK), product.ErrNotFound)

	orderFK := &pgconn.PgError{Code: "23503", ConstraintName: "order_items_order_id_fkey"}
	assert.ErrorIs(t, itemInsertFKError(orderFK), order.ErrNotFound)

	wrapped := errors.Wrap(productFK, "insert item")
	assert.ErrorIs(t, itemInsertFKError(wrapped), product.ErrNotFound)
}
