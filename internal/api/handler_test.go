package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"storefront/internal/models"
	"storefront/internal/service"
	"storefront/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// In-memory collaborators. Handler tests exercise the HTTP mapping, not
// transactional behavior, so the ledger applies writes directly.

type memLedger struct {
	mu     sync.Mutex
	orders map[int64]models.Order
	items  map[int64][]models.OrderItem
	nextID int64
}

func newMemLedger() *memLedger {
	return &memLedger{orders: make(map[int64]models.Order), items: make(map[int64][]models.OrderItem)}
}

type memTx struct {
	l    *memLedger
	done bool
}

func (l *memLedger) Begin(ctx context.Context) (service.LedgerTx, error) {
	l.mu.Lock()
	return &memTx{l: l}, nil
}

func (t *memTx) Commit() error {
	if !t.done {
		t.done = true
		t.l.mu.Unlock()
	}
	return nil
}

func (t *memTx) Rollback() error {
	if !t.done {
		t.done = true
		t.l.mu.Unlock()
	}
	return nil
}

func (t *memTx) InsertOrder(ctx context.Context, order *models.Order) error {
	t.l.nextID++
	order.ID = t.l.nextID
	t.l.orders[order.ID] = *order
	return nil
}

func (t *memTx) InsertOrderItems(ctx context.Context, items []models.OrderItem) error {
	for _, it := range items {
		t.l.items[it.OrderID] = append(t.l.items[it.OrderID], it)
	}
	return nil
}

func (t *memTx) LockOrderStatus(ctx context.Context, orderID int64) (string, error) {
	order, ok := t.l.orders[orderID]
	if !ok {
		return "", store.ErrNotFound
	}
	return order.Status, nil
}

func (t *memTx) SetOrderStatus(ctx context.Context, orderID int64, status string) error {
	order := t.l.orders[orderID]
	order.Status = status
	t.l.orders[orderID] = order
	return nil
}

func (t *memTx) OrderItems(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	return t.l.items[orderID], nil
}

func (t *memTx) DeductStock(ctx context.Context, productID int64, quantity int) error {
	return nil
}

func (l *memLedger) OrderByID(ctx context.Context, id int64) (*models.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	order, ok := l.orders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &order, nil
}

func (l *memLedger) OrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []models.Order
	for _, o := range l.orders {
		if o.UserID.Valid && o.UserID.Int64 == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (l *memLedger) OrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.items[orderID], nil
}

type memCatalog struct {
	mu       sync.Mutex
	products map[int64]models.Product
	nextID   int64
}

func newMemCatalog() *memCatalog {
	return &memCatalog{products: make(map[int64]models.Product)}
}

func (c *memCatalog) ProductByID(ctx context.Context, id int64) (*models.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (c *memCatalog) InsertProduct(ctx context.Context, p *models.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	p.ID = c.nextID
	c.products[p.ID] = *p
	return nil
}

func (c *memCatalog) UpdateProduct(ctx context.Context, p *models.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.products[p.ID]; !ok {
		return store.ErrNotFound
	}
	c.products[p.ID] = *p
	return nil
}

func (c *memCatalog) DeleteProduct(ctx context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.products[id]; !ok {
		return store.ErrNotFound
	}
	delete(c.products, id)
	return nil
}

type memUsers struct {
	mu     sync.Mutex
	users  map[int64]models.User
	emails map[string]int64
	nextID int64
}

func newMemUsers() *memUsers {
	return &memUsers{users: make(map[int64]models.User), emails: make(map[string]int64)}
}

func (d *memUsers) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, ok := d.emails[email]
	if !ok {
		return nil, store.ErrNotFound
	}
	user := d.users[id]
	return &user, nil
}

func (d *memUsers) UserByID(ctx context.Context, id int64) (*models.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	user, ok := d.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &user, nil
}

func (d *memUsers) InsertUser(ctx context.Context, user *models.User) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.emails[user.Email]; exists {
		return store.ErrDuplicate
	}
	d.nextID++
	user.ID = d.nextID
	d.users[user.ID] = *user
	d.emails[user.Email] = user.ID
	return nil
}

func (d *memUsers) UpdateUserAvatar(ctx context.Context, userID int64, avatar string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	user := d.users[userID]
	user.Avatar.String, user.Avatar.Valid = avatar, true
	d.users[userID] = user
	return nil
}

func (d *memUsers) UpdateUserProfile(ctx context.Context, userID int64, fullName, phone, address string, passwordHash *string) error {
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
		user.Password.String, user.Password.Valid = *passwordHash, true
	}
	d.users[userID] = user
	return nil
}

func (d *memUsers) SetUserStatus(ctx context.Context, userID int64, status string) error {
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

type memHasher struct{}

func (memHasher) Hash(plain string) (string, error) { return "hashed:" + plain, nil }
func (memHasher) Compare(hash, plain string) bool   { return hash == "hashed:"+plain }

type memVerifier struct {
	assertion *service.Assertion
	err       error
}

func (v *memVerifier) Verify(ctx context.Context, idToken string) (*service.Assertion, error) {
	return v.assertion, v.err
}

type testEnv struct {
	router  *gin.Engine
	ledger  *memLedger
	catalog *memCatalog
	users   *memUsers
}

func newTestEnv(verifier TokenVerifier) *testEnv {
	gin.SetMode(gin.TestMode)

	env := &testEnv{
		ledger:  newMemLedger(),
		catalog: newMemCatalog(),
		users:   newMemUsers(),
	}

	statuses := []string{"Pending", "Processing", "Shipped", "Completed", "Cancelled"}
	orders := service.NewOrderEngine(env.ledger, env.catalog, nil, nil, statuses, 0.005)
	identity := service.NewIdentityResolver(env.users, memHasher{})
	catalog := service.NewCatalogService(env.catalog, nil)

	handler := NewHandler(orders, identity, catalog, verifier)
	env.router = gin.New()
	handler.SetupRoutes(env.router)
	return env
}

func (env *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func orderPayload() map[string]interface{} {
	return map[string]interface{}{
		"customer_info": map[string]string{
			"name":    "Budi Santoso",
			"phone":   "08123456789",
			"address": "Jl. Merdeka 1",
		},
		"cart_items": []map[string]interface{}{
			{"product_id": 1, "name": "Kopi Arabica", "price": 50000, "quantity": 2},
		},
		"total": 100000,
	}
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(nil)
	w := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateOrderEndpoint(t *testing.T) {
	env := newTestEnv(nil)

	w := env.do(t, http.MethodPost, "/api/orders", orderPayload())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp service.CreateOrderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotZero(t, resp.OrderID)
	assert.Equal(t, models.OrderStatusPending, resp.Status)
}

func TestCreateOrderEndpointTotalMismatch(t *testing.T) {
	env := newTestEnv(nil)

	payload := orderPayload()
	payload["total"] = 90000
	w := env.do(t, http.MethodPost, "/api/orders", payload)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_FAILED")
	assert.Empty(t, env.ledger.orders)
}

func TestTransitionEndpoint(t *testing.T) {
	env := newTestEnv(nil)

	w := env.do(t, http.MethodPost, "/api/orders", orderPayload())
	require.Equal(t, http.StatusCreated, w.Code)
	var resp service.CreateOrderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	path := fmt.Sprintf("/api/admin/orders/%d/status", resp.OrderID)
	w = env.do(t, http.MethodPut, path, map[string]string{"status": "Completed"})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Completed stays completed; a cancellation attempt is just a status
	// update here, but completing a cancelled order must conflict.
	w = env.do(t, http.MethodPut, path, map[string]string{"status": "Completed"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTransitionEndpointConflict(t *testing.T) {
	env := newTestEnv(nil)

	w := env.do(t, http.MethodPost, "/api/orders", orderPayload())
	require.Equal(t, http.StatusCreated, w.Code)
	var resp service.CreateOrderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	path := fmt.Sprintf("/api/admin/orders/%d/status", resp.OrderID)
	w = env.do(t, http.MethodPut, path, map[string]string{"status": "Cancelled"})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPut, path, map[string]string{"status": "Completed"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_TRANSITION")
}

func TestTransitionEndpointNotFound(t *testing.T) {
	env := newTestEnv(nil)

	w := env.do(t, http.MethodPut, "/api/admin/orders/999/status", map[string]string{"status": "Completed"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPut, "/api/admin/orders/abc/status", map[string]string{"status": "Completed"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegisterAndLoginEndpoints(t *testing.T) {
	env := newTestEnv(nil)

	w := env.do(t, http.MethodPost, "/api/register", map[string]string{
		"full_name": "Siti Aminah",
		"email":     "siti@example.com",
		"password":  "rahasia123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "password", "response must never carry the credential")

	w = env.do(t, http.MethodPost, "/api/login", map[string]string{
		"email":    "siti@example.com",
		"password": "rahasia123",
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "rahasia123")

	w = env.do(t, http.MethodPost, "/api/login", map[string]string{
		"email":    "siti@example.com",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "AUTH_FAILED")
}

func TestRegisterEndpointDuplicate(t *testing.T) {
	env := newTestEnv(nil)

	payload := map[string]string{"full_name": "Siti", "email": "siti@example.com", "password": "x"}
	w := env.do(t, http.MethodPost, "/api/register", payload)
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodPost, "/api/register", payload)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGoogleLoginEndpoint(t *testing.T) {
	env := newTestEnv(&memVerifier{assertion: &service.Assertion{
		Email:     "budi@example.com",
		Name:      "Budi Santoso",
		SubjectID: "g-1",
	}})

	w := env.do(t, http.MethodPost, "/api/auth/google", map[string]string{"token": "opaque"})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "budi@example.com")
	assert.Len(t, env.users.users, 1)
}

func TestGoogleLoginEndpointBadToken(t *testing.T) {
	env := newTestEnv(&memVerifier{err: errors.New("expired")})

	w := env.do(t, http.MethodPost, "/api/auth/google", map[string]string{"token": "bad"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, env.users.users)
}

func TestLockedCustomerCannotLogin(t *testing.T) {
	env := newTestEnv(nil)

	w := env.do(t, http.MethodPost, "/api/register", map[string]string{
		"full_name": "Siti", "email": "siti@example.com", "password": "rahasia123",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodPut, "/api/admin/customers/1/status", map[string]string{"status": "locked"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodPost, "/api/login", map[string]string{
		"email": "siti@example.com", "password": "rahasia123",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "ACCOUNT_LOCKED")
}

func TestCustomerStatusEndpointValidation(t *testing.T) {
	env := newTestEnv(nil)

	w := env.do(t, http.MethodPut, "/api/admin/customers/1/status", map[string]string{"status": "suspended"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProductEndpoints(t *testing.T) {
	env := newTestEnv(nil)

	w := env.do(t, http.MethodPost, "/api/admin/products", map[string]interface{}{
		"name": "Kopi Arabica", "category": "beverage", "price": 50000, "stock_quantity": 10,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "SKU-")

	w = env.do(t, http.MethodGet, "/api/products/1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/products/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodDelete, "/api/admin/products/1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/api/products/1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
