// Package testutil builds throwaway databases and fixtures for tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/javajoker/storefront-backend/internal/database"
	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/utils"
)

// NewTestDB opens a private in-memory sqlite database with the schema
// migrated. A single connection keeps the database alive and shared
// between goroutines of the same test.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	require.NoError(t, database.RunMigrations(db))

	t.Cleanup(func() { sqlDB.Close() })
	return db
}

var seq atomic.Int64

func next() int64 { return seq.Add(1) }

// Price parses a decimal literal, panicking on malformed input.
func Price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type ProductOption func(*models.Product)

func Unpublished() ProductOption {
	return func(p *models.Product) { p.IsPublished = false }
}

func WithQuantity(q uint) ProductOption {
	return func(p *models.Product) { p.Quantity = q }
}

func WithPrice(price string) ProductOption {
	return func(p *models.Product) { p.Price = Price(price) }
}

func WithName(name string) ProductOption {
	return func(p *models.Product) { p.Name = name }
}

// CreateProduct inserts a published product with stock 10 priced 10.00
// unless options say otherwise.
func CreateProduct(t testing.TB, db *gorm.DB, opts ...ProductOption) *models.Product {
	t.Helper()

	n := next()
	p := &models.Product{
		Name:        fmt.Sprintf("Product %d", n),
		Slug:        fmt.Sprintf("product-%d", n),
		Description: "A product used in tests",
		IsPublished: true,
		Quantity:    10,
		Price:       Price("10.00"),
	}
	for _, opt := range opts {
		opt(p)
	}

	require.NoError(t, db.Create(p).Error)
	return p
}

func CreateCategory(t testing.TB, db *gorm.DB) *models.Category {
	t.Helper()

	n := next()
	c := &models.Category{
		Name:        fmt.Sprintf("Category %d", n),
		Slug:        fmt.Sprintf("category-%d", n),
		Description: "A category used in tests",
	}
	require.NoError(t, db.Create(c).Error)
	return c
}

func createUser(t testing.TB, db *gorm.DB, role models.UserRole) *models.User {
	t.Helper()

	n := next()
	u := &models.User{
		Name:  fmt.Sprintf("User %d", n),
		Email: fmt.Sprintf("user%d@example.com", n),
		Role:  role,
	}
	require.NoError(t, u.SetPassword("Password123"))
	require.NoError(t, db.Create(u).Error)
	return u
}

func CreateCustomer(t testing.TB, db *gorm.DB) *models.User {
	return createUser(t, db, models.UserRoleCustomer)
}

func CreateAdmin(t testing.TB, db *gorm.DB) *models.User {
	return createUser(t, db, models.UserRoleAdmin)
}

// Item is a product/quantity pair used to build orders directly.
type Item struct {
	Product  *models.Product
	Quantity uint
}

// CreateOrder writes an order and its line items without going through
// pricing, snapshotting each product's current price.
func CreateOrder(t testing.TB, db *gorm.DB, customer *models.User, items ...Item) *models.Order {
	t.Helper()

	order := &models.Order{
		CustomerID: customer.ID,
		Address:    models.Address{StreetAddress: "1 Test Street", City: "Testville"},
	}
	total := decimal.Zero
	lines := make([]models.OrderProduct, 0, len(items))
	for _, it := range items {
		line := models.OrderProduct{ProductID: it.Product.ID, Quantity: it.Quantity, UnitPrice: it.Product.Price}
		total = total.Add(line.Subtotal())
		lines = append(lines, line)
	}
	order.TotalPrice = total

	require.NoError(t, db.Create(order).Error)
	for i := range lines {
		lines[i].OrderID = order.ID
	}
	if len(lines) > 0 {
		require.NoError(t, db.Create(&lines).Error)
	}
	order.LineItems = lines
	return order
}

// SetOrderStatus bypasses the lifecycle rules to place an order in a state.
func SetOrderStatus(t testing.TB, db *gorm.DB, order *models.Order, status models.OrderStatus) {
	t.Helper()
	require.NoError(t, db.Model(order).Update("status", status).Error)
	order.Status = status
}

// Page returns normalized pagination params sorted newest first.
func Page(page, limit int) utils.PaginationParams {
	return utils.NormalizePagination(utils.PaginationParams{Page: page, Limit: limit}, utils.DefaultPageSize)
}
