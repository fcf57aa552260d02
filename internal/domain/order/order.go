package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// StatusNew is the status assigned to every freshly created order.
const StatusNew = "NEW"

// Sentinel errors for order lookups and validation.
var (
	ErrNotFound     = errors.New("order not found")
	ErrItemNotFound = errors.New("order item not found")
	ErrEmptyItems   = errors.New("items required")
)

// Order is an aggregate root: the order row plus every line item it owns.
// Total is derived and always equals the sum of the items' line totals.
type Order struct {
	ID         string
	CustomerID string
	OrderDate  time.Time
	Status     string
	Total      decimal.Decimal
	Items      []Item
}

// Item is a single order line. UnitPrice snapshots the product price at the
// time the item was created; later catalog price changes never touch it.
type Item struct {
	ID        string
	OrderID   string
	ProductID string
	UnitPrice decimal.Decimal
	Quantity  int
	LineTotal decimal.Decimal
}

// Repository defines persistence operations for orders and their items.
// Every mutating method commits all of its row writes in one transaction;
// total adjustments are applied as relative updates (total = total + delta)
// so concurrent writers to the same order serialize on the order row.
type Repository interface {
	// Create persists the order and all of its items atomically.
	Create(ctx context.Context, o *Order) error
	// GetByID returns the order with its items attached.
	GetByID(ctx context.Context, id string) (*Order, error)
	// Delete removes the order and every item it owns in one transaction.
	Delete(ctx context.Context, id string) error

	GetItem(ctx context.Context, itemID string) (*Item, error)
	ListItems(ctx context.Context, orderID string) ([]Item, error)

	// AddItem inserts the item and adds its line total to the parent order.
	AddItem(ctx context.Context, item *Item) error
	// UpdateItemQuantity persists the item's new quantity and line total and
	// moves the parent order's total by the difference from the line total it
	// reads, under lock, inside the same transaction. A delta computed from an
	// earlier read could be stale under concurrent mutation of the same item.
	UpdateItemQuantity(ctx context.Context, item *Item) error
	// RemoveItem deletes the item and subtracts the line total stored at
	// delete time from the parent order. A missing parent order is tolerated:
	// the item is still deleted and no total adjustment happens.
	RemoveItem(ctx context.Context, itemID string) error
}
