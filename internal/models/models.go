package models

import (
	"database/sql"
	"time"
)

// Product represents a product in the catalog
type Product struct {
	ID            int64          `db:"id" json:"id"`
	SKU           string         `db:"sku" json:"sku"`
	Name          string         `db:"name" json:"name"`
	Category      string         `db:"category" json:"category"`
	Price         float64        `db:"price" json:"price"`
	Image         sql.NullString `db:"image" json:"image,omitempty"`
	Description   sql.NullString `db:"description" json:"description,omitempty"`
	StockQuantity int            `db:"stock_quantity" json:"stock_quantity"`
	IsActive      bool           `db:"is_active" json:"is_active"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
}

// Order represents a customer order. Customer fields are a snapshot taken
// at order time and never follow later edits of the user record.
type Order struct {
	ID              int64         `db:"id" json:"id"`
	UserID          sql.NullInt64 `db:"user_id" json:"user_id,omitempty"`
	CustomerName    string        `db:"customer_name" json:"customer_name"`
	CustomerPhone   string        `db:"customer_phone" json:"customer_phone"`
	CustomerAddress string        `db:"customer_address" json:"customer_address"`
	TotalPrice      float64       `db:"total_price" json:"total_price"`
	Status          string        `db:"status" json:"status"`
	CreatedAt       time.Time     `db:"created_at" json:"created_at"`
}

// OrderItem represents a line item. ProductName and Price are frozen at
// purchase time; ProductID is a soft reference, the product may be gone.
type OrderItem struct {
	ID          int64   `db:"id" json:"id"`
	OrderID     int64   `db:"order_id" json:"order_id"`
	ProductID   int64   `db:"product_id" json:"product_id"`
	ProductName string  `db:"product_name" json:"product_name"`
	Price       float64 `db:"price" json:"price"`
	Quantity    int     `db:"quantity" json:"quantity"`
}

// OrderItemDetail is an order item enriched with display attributes
// resolved from the product table where the product still exists.
type OrderItemDetail struct {
	OrderItem
	Image sql.NullString `db:"image" json:"image,omitempty"`
	SKU   sql.NullString `db:"sku" json:"sku,omitempty"`
}

// OrderDetail is an order together with its enriched items.
type OrderDetail struct {
	Order
	Items []OrderItemDetail `json:"items"`
}

// User represents an account. Password holds the bcrypt hash, never
// plaintext, and is NULL for federated-only accounts.
type User struct {
	ID        int64          `db:"id" json:"id"`
	FullName  string         `db:"full_name" json:"full_name"`
	Email     string         `db:"email" json:"email"`
	Password  sql.NullString `db:"password" json:"-"`
	Phone     sql.NullString `db:"phone" json:"phone,omitempty"`
	Address   sql.NullString `db:"address" json:"address,omitempty"`
	GoogleID  sql.NullString `db:"google_id" json:"google_id,omitempty"`
	Avatar    sql.NullString `db:"avatar" json:"avatar,omitempty"`
	Role      string         `db:"role" json:"role"`
	Status    string         `db:"status" json:"status"`
	CreatedAt time.Time      `db:"created_at" json:"created_at"`
}

// UserView is the credential-free projection of a User. It is the only
// user shape services hand back to callers: the credential field does not
// exist on it, so it cannot be serialized by accident.
type UserView struct {
	ID        int64     `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	Avatar    string    `json:"avatar,omitempty"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// View projects the user into its credential-free form.
func (u *User) View() *UserView {
	return &UserView{
		ID:        u.ID,
		FullName:  u.FullName,
		Email:     u.Email,
		Phone:     u.Phone.String,
		Address:   u.Address.String,
		Avatar:    u.Avatar.String,
		Role:      u.Role,
		Status:    u.Status,
		CreatedAt: u.CreatedAt,
	}
}

// Order statuses. The recognized set is open-ended and configurable;
// these three carry semantics of their own.
const (
	OrderStatusPending   = "Pending"
	OrderStatusCompleted = "Completed"
	OrderStatusCancelled = "Cancelled"
)

// User roles
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// User statuses
const (
	UserStatusActive = "active"
	UserStatusLocked = "locked"
)
