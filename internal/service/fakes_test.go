package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"storefront/internal/models"
	"storefront/internal/store"

	"github.com/stretchr/testify/mock"
)

// fakeLedger is an in-memory Ledger whose transactions stage writes on a
// copy and swap it in on Commit, holding a lock from Begin to Commit the
// way the database serializes conflicting transactions. That makes the
// exactly-once and clamp laws observable without Postgres.
type fakeLedger struct {
	mu       sync.Mutex
	orders   map[int64]models.Order
	items    map[int64][]models.OrderItem
	products map[int64]models.Product
	nextID   int64

	failDeduct      error
	failInsertItems error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		orders:   make(map[int64]models.Order),
		items:    make(map[int64][]models.OrderItem),
		products: make(map[int64]models.Product),
	}
}

func (l *fakeLedger) addProduct(id int64, stock int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.products[id] = models.Product{ID: id, SKU: "SKU-000001", Name: "product", StockQuantity: stock, IsActive: true}
}

func (l *fakeLedger) stock(id int64) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.products[id].StockQuantity
}

func (l *fakeLedger) orderStatus(id int64) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.orders[id].Status
}

func cloneOrders(in map[int64]models.Order) map[int64]models.Order {
	out := make(map[int64]models.Order, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func cloneItems(in map[int64][]models.OrderItem) map[int64][]models.OrderItem {
	out := make(map[int64][]models.OrderItem, len(in))
	for k, v := range in {
		out[k] = append([]models.OrderItem(nil), v...)
	}
	return out
}

func cloneProducts(in map[int64]models.Product) map[int64]models.Product {
	out := make(map[int64]models.Product, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

type fakeTx struct {
	l        *fakeLedger
	orders   map[int64]models.Order
	items    map[int64][]models.OrderItem
	products map[int64]models.Product
	done     bool
}

func (l *fakeLedger) Begin(ctx context.Context) (LedgerTx, error) {
	l.mu.Lock()
	return &fakeTx{
		l:        l,
		orders:   cloneOrders(l.orders),
		items:    cloneItems(l.items),
		products: cloneProducts(l.products),
	}, nil
}

func (t *fakeTx) Commit() error {
	if t.done {
		return nil
	}
	t.l.orders = t.orders
	t.l.items = t.items
	t.l.products = t.products
	t.done = true
	t.l.mu.Unlock()
	return nil
}

func (t *fakeTx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.l.mu.Unlock()
	return nil
}

func (t *fakeTx) InsertOrder(ctx context.Context, order *models.Order) error {
	t.l.nextID++
	order.ID = t.l.nextID
	order.CreatedAt = time.Now()
	t.orders[order.ID] = *order
	return nil
}

func (t *fakeTx) InsertOrderItems(ctx context.Context, items []models.OrderItem) error {
	if t.l.failInsertItems != nil {
		return t.l.failInsertItems
	}
	for i := range items {
		t.l.nextID++
		items[i].ID = t.l.nextID
		t.items[items[i].OrderID] = append(t.items[items[i].OrderID], items[i])
	}
	return nil
}

func (t *fakeTx) LockOrderStatus(ctx context.Context, orderID int64) (string, error) {
	order, ok := t.orders[orderID]
	if !ok {
		return "", store.ErrNotFound
	}
	return order.Status, nil
}

func (t *fakeTx) SetOrderStatus(ctx context.Context, orderID int64, status string) error {
	order := t.orders[orderID]
	order.Status = status
	t.orders[orderID] = order
	return nil
}

func (t *fakeTx) OrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	return append([]models.OrderItem(nil), t.items[orderID]...), nil
}

func (t *fakeTx) DeductStock(ctx context.Context, productID int64, quantity int) error {
	if t.l.failDeduct != nil {
		return t.l.failDeduct
	}
	p, ok := t.products[productID]
	if !ok {
		return nil
	}
	p.StockQuantity -= quantity
	if p.StockQuantity < 0 {
		p.StockQuantity = 0
	}
	t.products[productID] = p
	return nil
}

func (l *fakeLedger) OrderByID(ctx context.Context, id int64) (*models.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	order, ok := l.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &order, nil
}

func (l *fakeLedger) OrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.Order
	for _, o := range l.orders {
		if o.UserID.Valid && o.UserID.Int64 == userID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (l *fakeLedger) OrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]models.OrderItem(nil), l.items[orderID]...), nil
}

// fakeCatalog backs product lookups for detail enrichment tests.
type fakeCatalog struct {
	mu       sync.Mutex
	products map[int64]models.Product
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{products: make(map[int64]models.Product)}
}

func (c *fakeCatalog) ProductByID(ctx context.Context, id int64) (*models.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (c *fakeCatalog) InsertProduct(ctx context.Context, p *models.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.products {
		if existing.SKU == p.SKU {
			return store.ErrDuplicate
		}
	}
	p.ID = int64(len(c.products) + 1)
	p.CreatedAt = time.Now()
	c.products[p.ID] = *p
	return nil
}

func (c *fakeCatalog) UpdateProduct(ctx context.Context, p *models.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.products[p.ID]; !ok {
		return store.ErrNotFound
	}
	c.products[p.ID] = *p
	return nil
}

func (c *fakeCatalog) DeleteProduct(ctx context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.products[id]; !ok {
		return store.ErrNotFound
	}
	delete(c.products, id)
	return nil
}

// fakeUsers is an in-memory UserDirectory enforcing email uniqueness the
// way the database constraint does.
type fakeUsers struct {
	mu     sync.Mutex
	users  map[int64]models.User
	emails map[string]int64
	nextID int64

	failAvatar error
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{
		users:  make(map[int64]models.User),
		emails: make(map[string]int64),
	}
}

func (d *fakeUsers) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, ok := d.emails[email]
	if !ok {
		return nil, store.ErrNotFound
	}
	user := d.users[id]
	return &user, nil
}

func (d *fakeUsers) UserByID(ctx context.Context, id int64) (*models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	user, ok := d.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &user, nil
}

func (d *fakeUsers) InsertUser(ctx context.Context, user *models.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.emails[user.Email]; exists {
		return store.ErrDuplicate
	}
	d.nextID++
	user.ID = d.nextID
	user.CreatedAt = time.Now()
	d.users[user.ID] = *user
	d.emails[user.Email] = user.ID
	return nil
}

func (d *fakeUsers) UpdateUserAvatar(ctx context.Context, userID int64, avatar string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failAvatar != nil {
		return d.failAvatar
	}
	user := d.users[userID]
	user.Avatar.String = avatar
	user.Avatar.Valid = true
	d.users[userID] = user
	return nil
}

func (d *fakeUsers) UpdateUserProfile(ctx context.Context, userID int64, fullName, phone, address string, passwordHash *string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	user, ok := d.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	user.FullName = fullName
	user.Phone.String, user.Phone.Valid = phone, phone != ""
	user.Address.String, user.Address.Valid = address, address != ""
	if passwordHash != nil {
		user.Password.String = *passwordHash
		user.Password.Valid = true
	}
	d.users[userID] = user
	return nil
}

func (d *fakeUsers) SetUserStatus(ctx context.Context, userID int64, status string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	user, ok := d.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	user.Status = status
	d.users[userID] = user
	return nil
}

// mockPublisher records lifecycle events via testify's mock.
type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *mockPublisher) PublishOrderCompleted(ctx context.Context, event *models.OrderCompletedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *mockPublisher) PublishOrderCancelled(ctx context.Context, event *models.OrderCancelledEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// plainHasher is a deterministic stand-in for the bcrypt collaborator.
type plainHasher struct{}

func (plainHasher) Hash(plain string) (string, error) { return "hashed:" + plain, nil }
func (plainHasher) Compare(hash, plain string) bool   { return hash == "hashed:"+plain }
