package order

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/commerceflow/backend/internal/domain/customer"
	"github.com/commerceflow/backend/internal/domain/product"
)

// moneyScale is the currency minor unit. Line totals and order totals are
// rounded to this scale at computation time; unit prices keep the catalog scale.
const moneyScale = 2

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

// Line is one requested (product, quantity) pair for order creation.
type Line struct {
	ProductID string
	Quantity  int
}

// CreateRequest holds the input for creating an order aggregate.
type CreateRequest struct {
	CustomerID string
	Lines      []Line
}

// Service owns the order aggregate: it builds new orders from product lines
// and keeps order.Total equal to the sum of the items' line totals across
// every item mutation. All total maintenance is delta arithmetic; the total
// is never recomputed by re-summing items.
type Service struct {
	customers customer.Repository
	products  product.Repository
	orders    Repository
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	customers customer.Repository,
	products product.Repository,
	orders Repository,
) *Service {
	return &Service{
		customers: customers,
		products:  products,
		orders:    orders,
	}
}

// Create validates every line, snapshots unit prices, and persists the order
// together with all of its items in one transaction. A failure on any line
// means nothing is written.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Order, error) {
	if len(req.Lines) == 0 {
		return nil, ErrEmptyItems
	}

	if _, err := s.customers.GetByID(ctx, req.CustomerID); err != nil {
		return nil, fmt.Errorf("get customer %s: %w", req.CustomerID, err)
	}

	// Validate quantities and collect product IDs.
	ids := make([]string, len(req.Lines))
	for i, line := range req.Lines {
		if line.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: line.ProductID}
		}
		ids[i] = line.ProductID
	}

	// Batch fetch all products in a single query.
	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}

	productMap := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		productMap[p.ID] = p
	}

	o := &Order{
		ID:         uuid.New().String(),
		CustomerID: req.CustomerID,
		OrderDate:  time.Now().UTC(),
		Status:     StatusNew,
		Items:      make([]Item, 0, len(req.Lines)),
	}

	total := decimal.Zero
	for _, line := range req.Lines {
		p, ok := productMap[line.ProductID]
		if !ok {
			return nil, fmt.Errorf("product %s: %w", line.ProductID, product.ErrNotFound)
		}

		lineTotal := lineTotalFor(p.Price, line.Quantity)
		o.Items = append(o.Items, Item{
			ID:        uuid.New().String(),
			OrderID:   o.ID,
			ProductID: p.ID,
			UnitPrice: p.Price,
			Quantity:  line.Quantity,
			LineTotal: lineTotal,
		})
		total = total.Add(lineTotal)
	}
	o.Total = total

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	return o, nil
}

// Get returns the order with its items.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.orders.GetByID(ctx, id)
}

// Delete removes the order and every item it owns.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.orders.GetByID(ctx, id); err != nil {
		return err
	}
	return s.orders.Delete(ctx, id)
}

// AddItem appends a new line to an existing order. The item insert and the
// order total increment commit in the same transaction.
func (s *Service) AddItem(ctx context.Context, orderID, productID string, quantity int) (*Item, error) {
	if quantity <= 0 {
		return nil, &InvalidQuantityError{ProductID: productID}
	}

	if _, err := s.orders.GetByID(ctx, orderID); err != nil {
		return nil, err
	}

	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", productID, err)
	}

	item := &Item{
		ID:        uuid.New().String(),
		OrderID:   orderID,
		ProductID: p.ID,
		UnitPrice: p.Price,
		Quantity:  quantity,
		LineTotal: lineTotalFor(p.Price, quantity),
	}

	if err := s.orders.AddItem(ctx, item); err != nil {
		return nil, fmt.Errorf("add item: %w", err)
	}

	return item, nil
}

// GetItem returns a single order item.
func (s *Service) GetItem(ctx context.Context, itemID string) (*Item, error) {
	return s.orders.GetItem(ctx, itemID)
}

// ListItems returns all items of the given order.
func (s *Service) ListItems(ctx context.Context, orderID string) ([]Item, error) {
	if _, err := s.orders.GetByID(ctx, orderID); err != nil {
		return nil, err
	}
	return s.orders.ListItems(ctx, orderID)
}

// UpdateItemQuantity changes an item's quantity. The new line total is
// computed from the stored unit price snapshot; the total delta is derived by
// the repository from the line total it reads inside the update transaction,
// so two concurrent updates of the same item cannot drift the order total.
func (s *Service) UpdateItemQuantity(ctx context.Context, itemID string, quantity int) (*Item, error) {
	item, err := s.orders.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if quantity <= 0 {
		return nil, &InvalidQuantityError{ProductID: item.ProductID}
	}

	item.Quantity = quantity
	item.LineTotal = lineTotalFor(item.UnitPrice, quantity)

	if err := s.orders.UpdateItemQuantity(ctx, item); err != nil {
		return nil, fmt.Errorf("update item %s: %w", itemID, err)
	}

	return item, nil
}

// RemoveItem deletes an item and subtracts its stored line total from the
// parent order. When the parent order is unexpectedly gone the item is still
// removed and no total adjustment is attempted.
func (s *Service) RemoveItem(ctx context.Context, itemID string) error {
	if err := s.orders.RemoveItem(ctx, itemID); err != nil {
		return fmt.Errorf("remove item %s: %w", itemID, err)
	}
	return nil
}

func lineTotalFor(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity))).Round(moneyScale)
}
