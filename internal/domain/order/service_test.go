package order

import (
	"context"
	"sync"
	"testing"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commerceflow/backend/internal/domain/customer"
	"github.com/commerceflow/backend/internal/domain/product"
)

// --- Mock implementations ---

type mockCustomerRepo struct {
	byID map[string]*customer.Customer
}

func (m *mockCustomerRepo) Create(_ context.Context, _ *customer.Customer) error { return nil }
func (m *mockCustomerRepo) Update(_ context.Context, _ *customer.Customer) error { return nil }
func (m *mockCustomerRepo) Delete(_ context.Context, _ string) error             { return nil }
func (m *mockCustomerRepo) List(_ context.Context, _ string) ([]customer.Customer, error) {
	return nil, nil
}

func (m *mockCustomerRepo) GetByID(_ context.Context, id string) (*customer.Customer, error) {
	c, ok := m.byID[id]
	if !ok {
		return nil, customer.ErrNotFound
	}
	return c, nil
}

func (m *mockCustomerRepo) GetByEmail(_ context.Context, _ string) (*customer.Customer, error) {
	return nil, customer.ErrNotFound
}

type mockProductRepo struct {
	byID map[string]*product.Product
}

func (m *mockProductRepo) Create(_ context.Context, _ *product.Product) error { return nil }
func (m *mockProductRepo) Update(_ context.Context, _ *product.Product) error { return nil }
func (m *mockProductRepo) Delete(_ context.Context, _ string) error           { return nil }
func (m *mockProductRepo) List(_ context.Context) ([]product.Product, error)  { return nil, nil }
func (m *mockProductRepo) ExistsBySKU(_ context.Context, _ string) (bool, error) {
	return false, nil
}

func (m *mockProductRepo) GetByID(_ context.Context, id string) (*product.Product, error) {
	p, ok := m.byID[id]
	if !ok {
		return nil, product.ErrNotFound
	}
	return p, nil
}

func (m *mockProductRepo) GetByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := m.byID[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

// mockOrderRepo keeps orders in memory and mirrors the real store's ledger
// behavior: each mutating method runs atomically (the mutex stands in for the
// transaction), total adjustments are relative, and the delta for an update
// or removal comes from the line total stored at apply time, never from a
// value the caller read earlier.
type mockOrderRepo struct {
	mu     sync.Mutex
	orders map[string]*Order
	items  map[string]*Item

	createErr error
	// orphanItems simulates items whose parent order row is gone.
	orphanItems bool
	// getItemHook runs after every GetItem, outside the lock.
	getItemHook func()
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{
		orders: make(map[string]*Order),
		items:  make(map[string]*Item),
	}
}

func (m *mockOrderRepo) Create(_ context.Context, o *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return m.createErr
	}
	m.orders[o.ID] = o
	for i := range o.Items {
		m.items[o.Items[i].ID] = &o.Items[i]
	}
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return o, nil
}

func (m *mockOrderRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return ErrNotFound
	}
	for itemID, it := range m.items {
		if it.OrderID == o.ID {
			delete(m.items, itemID)
		}
	}
	delete(m.orders, id)
	return nil
}

func (m *mockOrderRepo) GetItem(_ context.Context, itemID string) (*Item, error) {
	m.mu.Lock()
	it, ok := m.items[itemID]
	var cp Item
	if ok {
		cp = *it
	}
	m.mu.Unlock()

	if m.getItemHook != nil {
		m.getItemHook()
	}
	if !ok {
		return nil, ErrItemNotFound
	}
	return &cp, nil
}

func (m *mockOrderRepo) ListItems(_ context.Context, orderID string) ([]Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []Item
	for _, it := range m.items {
		if it.OrderID == orderID {
			out = append(out, *it)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) AddItem(_ context.Context, item *Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[item.OrderID]
	if !ok {
		return ErrNotFound
	}
	cp := *item
	m.items[item.ID] = &cp
	o.Total = o.Total.Add(item.LineTotal)
	return nil
}

func (m *mockOrderRepo) UpdateItemQuantity(_ context.Context, item *Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.items[item.ID]
	if !ok {
		return ErrItemNotFound
	}
	delta := item.LineTotal.Sub(stored.LineTotal)
	stored.Quantity = item.Quantity
	stored.LineTotal = item.LineTotal
	if o, ok := m.orders[item.OrderID]; ok {
		o.Total = o.Total.Add(delta)
	}
	return nil
}

func (m *mockOrderRepo) RemoveItem(_ context.Context, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.items[itemID]
	if !ok {
		return ErrItemNotFound
	}
	delete(m.items, itemID)
	if m.orphanItems {
		return nil
	}
	if o, ok := m.orders[stored.OrderID]; ok {
		o.Total = o.Total.Sub(stored.LineTotal)
	}
	return nil
}

// --- Helpers ---

func money(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newProductRepo(products ...product.Product) *mockProductRepo {
	byID := make(map[string]*product.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	return &mockProductRepo{byID: byID}
}

func newCustomerRepo(ids ...string) *mockCustomerRepo {
	byID := make(map[string]*customer.Customer, len(ids))
	for _, id := range ids {
		byID[id] = &customer.Customer{ID: id, FirstName: "Test"}
	}
	return &mockCustomerRepo{byID: byID}
}

func testProduct(id, sku string, price string) product.Product {
	return product.Product{
		ID:    id,
		SKU:   sku,
		Name:  "Product " + sku,
		Price: money(price),
	}
}

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, money(want).Equal(got), "want %s, got %s", want, got)
}

// --- Tests ---

func TestCreate_EmptyItems(t *testing.T) {
	svc := NewService(newCustomerRepo("c1"), newProductRepo(), newMockOrderRepo())

	_, err := svc.Create(context.Background(), CreateRequest{CustomerID: "c1"})
	require.ErrorIs(t, err, ErrEmptyItems)
}

func TestCreate_CustomerNotFound(t *testing.T) {
	p1 := testProduct("p1", "SKU-1", "10.00")
	svc := NewService(newCustomerRepo(), newProductRepo(p1), newMockOrderRepo())

	_, err := svc.Create(context.Background(), CreateRequest{
		CustomerID: "ghost",
		Lines:      []Line{{ProductID: "p1", Quantity: 1}},
	})
	require.ErrorIs(t, err, customer.ErrNotFound)
}

func TestCreate_InvalidQuantity(t *testing.T) {
	p1 := testProduct("p1", "SKU-1", "10.00")
	svc := NewService(newCustomerRepo("c1"), newProductRepo(p1), newMockOrderRepo())

	_, err := svc.Create(context.Background(), CreateRequest{
		CustomerID: "c1",
		Lines:      []Line{{ProductID: "p1", Quantity: 0}},
	})

	var iqErr *InvalidQuantityError
	require.ErrorAs(t, err, &iqErr)
	assert.Equal(t, "p1", iqErr.ProductID)
}

func TestCreate_ProductNotFound(t *testing.T) {
	svc := NewService(newCustomerRepo("c1"), newProductRepo(), newMockOrderRepo())

	_, err := svc.Create(context.Background(), CreateRequest{
		CustomerID: "c1",
		Lines:      []Line{{ProductID: "missing", Quantity: 1}},
	})
	require.ErrorIs(t, err, product.ErrNotFound)
}

func TestCreate_TotalIsSumOfLineTotals(t *testing.T) {
	p1 := testProduct("p1", "SKU-1", "10.00")
	p2 := testProduct("p2", "SKU-2", "5.50")
	repo := newMockOrderRepo()
	svc := NewService(newCustomerRepo("c1"), newProductRepo(p1, p2), repo)

	o, err := svc.Create(context.Background(), CreateRequest{
		CustomerID: "c1",
		Lines: []Line{
			{ProductID: "p1", Quantity: 2},
			{ProductID: "p2", Quantity: 3},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, StatusNew, o.Status)
	assert.Equal(t, "c1", o.CustomerID)
	require.Len(t, o.Items, 2)
	assertMoney(t, "20.00", o.Items[0].LineTotal)
	assertMoney(t, "16.50", o.Items[1].LineTotal)
	assertMoney(t, "36.50", o.Total)
	require.NotNil(t, repo.orders[o.ID])
}

func TestCreate_SnapshotsUnitPrice(t *testing.T) {
	p1 := testProduct("p1", "SKU-1", "10.00")
	products := newProductRepo(p1)
	repo := newMockOrderRepo()
	svc := NewService(newCustomerRepo("c1"), products, repo)

	o, err := svc.Create(context.Background(), CreateRequest{
		CustomerID: "c1",
		Lines:      []Line{{ProductID: "p1", Quantity: 1}},
	})
	require.NoError(t, err)

	// A later catalog price change must not touch the stored snapshot.
	products.byID["p1"].Price = money("99.99")

	item, err := svc.GetItem(context.Background(), o.Items[0].ID)
	require.NoError(t, err)
	assertMoney(t, "10.00", item.UnitPrice)
	assertMoney(t, "10.00", item.LineTotal)
}

func TestCreate_RoundsLineTotals(t *testing.T) {
	// Catalog prices carry four decimals; line totals round to cents.
	p1 := testProduct("p1", "SKU-1", "3.3333")
	svc := NewService(newCustomerRepo("c1"), newProductRepo(p1), newMockOrderRepo())

	o, err := svc.Create(context.Background(), CreateRequest{
		CustomerID: "c1",
		Lines:      []Line{{ProductID: "p1", Quantity: 3}},
	})

	require.NoError(t, err)
	assertMoney(t, "10.00", o.Items[0].LineTotal)
	assertMoney(t, "10.00", o.Total)
}

func TestCreate_RepoError(t *testing.T) {
	p1 := testProduct("p1", "SKU-1", "10.00")
	repo := newMockOrderRepo()
	repo.createErr = errors.New("db write failed")
	svc := NewService(newCustomerRepo("c1"), newProductRepo(p1), repo)

	_, err := svc.Create(context.Background(), CreateRequest{
		CustomerID: "c1",
		Lines:      []Line{{ProductID: "p1", Quantity: 1}},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "create order")
}

func TestDelete_NotFound(t *testing.T) {
	svc := NewService(newCustomerRepo(), newProductRepo(), newMockOrderRepo())

	err := svc.Delete(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDelete_RemovesOrderAndItems(t *testing.T) {
	p1 := testProduct("p1", "SKU-1", "10.00")
	repo := newMockOrderRepo()
	svc := NewService(newCustomerRepo("c1"), newProductRepo(p1), repo)

	o, err := svc.Create(context.Background(), CreateRequest{
		CustomerID: "c1",
		Lines:      []Line{{ProductID: "p1", Quantity: 2}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), o.ID))
	assert.Empty(t, repo.orders)
	assert.Empty(t, repo.items)
}

func TestAddItem_InvalidQuantity(t *testing.T) {
	svc := NewService(newCustomerRepo(), newProductRepo(), newMockOrderRepo())

	_, err := svc.AddItem(context.Background(), "o1", "p1", -1)

	var iqErr *InvalidQuantityError
	require.ErrorAs(t, err, &iqErr)
}

func TestAddItem_OrderNotFound(t *testing.T) {
	p1 := testProduct("p1", "SKU-1", "10.00")
	svc := NewService(newCustomerRepo(), newProductRepo(p1), newMockOrderRepo())

	_, err := svc.AddItem(context.Background(), "missing", "p1", 1)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAddItem_ProductNotFound(t *testing.T) {
	p1 := testProduct("p1", "SKU-1", "10.00")
	repo := newMockOrderRepo()
	svc := NewService(newCustomerRepo("c1"), newProductRepo(p1), repo)

	o, err := svc.Create(context.Background(), CreateRequest{
		CustomerID: "c1",
		Lines:      []Line{{ProductID: "p1", Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = svc.AddItem(context.Background(), o.ID, "missing", 1)
	require.ErrorIs(t, err, product.ErrNotFound)
}

func TestListItems_OrderNotFound(t *testing.T) {
	svc := NewService(newCustomerRepo(), newProductRepo(), newMockOrderRepo())

	_, err := svc.ListItems(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateItemQuantity_ItemNotFound(t *testing.T) {
	svc := NewService(newCustomerRepo(), newProductRepo(), newMockOrderRepo())

	_, err := svc.UpdateItemQuantity(context.Background(), "missing", 2)
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestUpdateItemQuantity_InvalidQuantity(t *testing.T) {
	p1 := testProduct("p1", "SKU-1", "10.00")
	repo := newMockOrderRepo()
	svc := NewService(newCustomerRepo("c1"), newProductRepo(p1), repo)

	o, err := svc.Create(context.Background(), CreateRequest{
		CustomerID: "c1",
		Lines:      []Line{{ProductID: "p1", Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = svc.UpdateItemQuantity(context.Background(), o.Items[0].ID, 0)

	var iqErr *InvalidQuantityError
	require.ErrorAs(t, err, &iqErr)
	assert.Equal(t, "p1", iqErr.ProductID)
}

func TestRemoveItem_ItemNotFound(t *testing.T) {
	svc := NewService(newCustomerRepo(), newProductRepo(), newMockOrderRepo())

	err := svc.RemoveItem(context.Background(), "missing")
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestRemoveItem_OrphanedItemStillRemoved(t *testing.T) {
	p1 := testProduct("p1", "SKU-1", "10.00")
	repo := newMockOrderRepo()
	svc := NewService(newCustomerRepo("c1"), newProductRepo(p1), repo)

	o, err := svc.Create(context.Background(), CreateRequest{
		CustomerID: "c1",
		Lines:      []Line{{ProductID: "p1", Quantity: 1}},
	})
	require.NoError(t, err)

	repo.orphanItems = true
	require.NoError(t, svc.RemoveItem(context.Background(), o.Items[0].ID))
	assert.Empty(t, repo.items)
}

// TestTotalLedgerAcrossMutations walks an order through the full item
// lifecycle and checks the running total after every step. The total is
// maintained purely by deltas; the final assertion re-sums the items
// independently to prove the ledger never drifted.
func TestTotalLedgerAcrossMutations(t *testing.T) {
	ctx := context.Background()
	p1 := testProduct("p1", "SKU-1", "10.00")
	p2 := testProduct("p2", "SKU-2", "5.00")
	repo := newMockOrderRepo()
	svc := NewService(newCustomerRepo("c1"), newProductRepo(p1, p2), repo)

	// Create with 2 x 10.00.
	o, err := svc.Create(ctx, CreateRequest{
		CustomerID: "c1",
		Lines:      []Line{{ProductID: "p1", Quantity: 2}},
	})
	require.NoError(t, err)
	assertMoney(t, "20.00", repo.orders[o.ID].Total)

	// Add 2 x 5.00; total moves by the new line total.
	added, err := svc.AddItem(ctx, o.ID, "p2", 2)
	require.NoError(t, err)
	assertMoney(t, "10.00", added.LineTotal)
	assertMoney(t, "30.00", repo.orders[o.ID].Total)

	// Grow the first line to quantity 4; total moves by the delta, +20.00.
	updated, err := svc.UpdateItemQuantity(ctx, o.Items[0].ID, 4)
	require.NoError(t, err)
	assertMoney(t, "40.00", updated.LineTotal)
	assertMoney(t, "50.00", repo.orders[o.ID].Total)

	// Shrink it back to 1; total moves by -30.00.
	updated, err = svc.UpdateItemQuantity(ctx, o.Items[0].ID, 1)
	require.NoError(t, err)
	assertMoney(t, "10.00", updated.LineTotal)
	assertMoney(t, "20.00", repo.orders[o.ID].Total)

	// Remove the added line; total moves by -10.00.
	require.NoError(t, svc.RemoveItem(ctx, added.ID))
	assertMoney(t, "10.00", repo.orders[o.ID].Total)

	// Independent re-summation must agree with the running total.
	items, err := svc.ListItems(ctx, o.ID)
	require.NoError(t, err)
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.LineTotal)
	}
	assert.True(t, sum.Equal(repo.orders[o.ID].Total),
		"re-summed %s, ledger %s", sum, repo.orders[o.ID].Total)
}

// resumItems re-sums the order's current line totals independently of the
// running total.
func resumItems(t *testing.T, svc *Service, orderID string) decimal.Decimal {
	t.Helper()

	items, err := svc.ListItems(context.Background(), orderID)
	require.NoError(t, err)
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.LineTotal)
	}
	return sum
}

// TestUpdateItemQuantity_ConcurrentUpdates gates two updates of the same item
// so both read the item before either writes. Whichever line total survives,
// the order total must match it: the delta has to come from the line total
// read inside the repository's own transaction, because a delta computed from
// the earlier snapshot would apply both increments against the same stale
// base and drift the total.
func TestUpdateItemQuantity_ConcurrentUpdates(t *testing.T) {
	ctx := context.Background()
	p1 := testProduct("p1", "SKU-1", "10.00")
	repo := newMockOrderRepo()
	svc := NewService(newCustomerRepo("c1"), newProductRepo(p1), repo)

	o, err := svc.Create(ctx, CreateRequest{
		CustomerID: "c1",
		Lines:      []Line{{ProductID: "p1", Quantity: 2}},
	})
	require.NoError(t, err)
	itemID := o.Items[0].ID

	var barrier sync.WaitGroup
	barrier.Add(2)
	repo.getItemHook = func() {
		barrier.Done()
		barrier.Wait()
	}

	var wg sync.WaitGroup
	for _, qty := range []int{3, 5} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.UpdateItemQuantity(ctx, itemID, qty)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	repo.getItemHook = nil

	sum := resumItems(t, svc, o.ID)
	assert.True(t, sum.Equal(repo.orders[o.ID].Total),
		"re-summed %s, ledger %s", sum, repo.orders[o.ID].Total)
}

func TestAddItem_ConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	p1 := testProduct("p1", "SKU-1", "10.00")
	p2 := testProduct("p2", "SKU-2", "5.00")
	repo := newMockOrderRepo()
	svc := NewService(newCustomerRepo("c1"), newProductRepo(p1, p2), repo)

	o, err := svc.Create(ctx, CreateRequest{
		CustomerID: "c1",
		Lines:      []Line{{ProductID: "p1", Quantity: 2}},
	})
	require.NoError(t, err)

	// Every one of the ten concurrent increments must land.
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddItem(ctx, o.ID, "p2", 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assertMoney(t, "70.00", repo.orders[o.ID].Total)
	sum := resumItems(t, svc, o.ID)
	assert.True(t, sum.Equal(repo.orders[o.ID].Total),
		"re-summed %s, ledger %s", sum, repo.orders[o.ID].Total)
}

// A concurrent update and removal of the same item both start from the same
// read. Either the removal goes second and subtracts the updated line total,
// or it goes first and the update fails on the vanished item; in both
// outcomes the total matches the surviving items.
func TestUpdateItemQuantity_ConcurrentWithRemove(t *testing.T) {
	ctx := context.Background()
	p1 := testProduct("p1", "SKU-1", "10.00")
	repo := newMockOrderRepo()
	svc := NewService(newCustomerRepo("c1"), newProductRepo(p1), repo)

	o, err := svc.Create(ctx, CreateRequest{
		CustomerID: "c1",
		Lines:      []Line{{ProductID: "p1", Quantity: 2}},
	})
	require.NoError(t, err)
	itemID := o.Items[0].ID

	var barrier sync.WaitGroup
	barrier.Add(2)
	gate := func() {
		barrier.Done()
		barrier.Wait()
	}
	repo.getItemHook = gate

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if _, err := svc.UpdateItemQuantity(ctx, itemID, 5); err != nil {
			assert.ErrorIs(t, err, ErrItemNotFound)
		}
	}()
	go func() {
		defer wg.Done()
		gate()
		err := svc.RemoveItem(ctx, itemID)
		if err != nil {
			assert.ErrorIs(t, err, ErrItemNotFound)
		}
	}()
	wg.Wait()
	repo.getItemHook = nil

	sum := resumItems(t, svc, o.ID)
	assert.True(t, sum.Equal(repo.orders[o.ID].Total),
		"re-summed %s, ledger %s", sum, repo.orders[o.ID].Total)
}

func TestUpdateItemQuantity_UsesSnapshotPrice(t *testing.T) {
	ctx := context.Background()
	p1 := testProduct("p1", "SKU-1", "10.00")
	products := newProductRepo(p1)
	repo := newMockOrderRepo()
	svc := NewService(newCustomerRepo("c1"), products, repo)

	o, err := svc.Create(ctx, CreateRequest{
		CustomerID: "c1",
		Lines:      []Line{{ProductID: "p1", Quantity: 1}},
	})
	require.NoError(t, err)

	// Catalog price changes after the order is placed.
	products.byID["p1"].Price = money("50.00")

	updated, err := svc.UpdateItemQuantity(ctx, o.Items[0].ID, 3)
	require.NoError(t, err)

	// The new line total comes from the stored snapshot, not the catalog.
	assertMoney(t, "30.00", updated.LineTotal)
	assertMoney(t, "30.00", repo.orders[o.ID].Total)
}
