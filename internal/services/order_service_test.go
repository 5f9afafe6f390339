package services

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/javajoker/storefront-backend/internal/apperrors"
	"github.com/javajoker/storefront-backend/internal/config"
	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/testutil"
)

type recordingNotifier struct {
	mu      sync.Mutex
	created []uuid.UUID
	shipped []uuid.UUID
}

func (n *recordingNotifier) OrderCreated(order *models.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, order.UUID)
}

func (n *recordingNotifier) OrderShipped(order *models.Order) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.shipped = append(n.shipped, order.UUID)
}

type OrderServiceTestSuite struct {
	suite.Suite
	db       *gorm.DB
	notifier *recordingNotifier
	service  *OrderService
	customer *models.User
	ctx      context.Context
}

func (s *OrderServiceTestSuite) SetupTest() {
	s.db = testutil.NewTestDB(s.T())
	s.notifier = &recordingNotifier{}
	s.service = NewOrderService(s.db, NewPricingService(s.db), s.notifier, config.OrdersConfig{})
	s.customer = testutil.CreateCustomer(s.T(), s.db)
	s.ctx = context.Background()
}

func checkout(items ...CartItem) *CheckoutRequest {
	return &CheckoutRequest{
		Address:       &models.Address{StreetAddress: "1 Main St", City: "Springfield"},
		OrderProducts: items,
	}
}

func (s *OrderServiceTestSuite) TestCheckoutCreatesNewOrder() {
	p1 := testutil.CreateProduct(s.T(), s.db, testutil.WithPrice("10.00"))
	p2 := testutil.CreateProduct(s.T(), s.db, testutil.WithPrice("5.00"))

	order, err := s.service.Checkout(s.ctx, s.customer.ID, checkout(
		CartItem{ProductID: p1.ID, Quantity: 2},
		CartItem{ProductID: p2.ID, Quantity: 1},
	))

	s.Require().NoError(err)
	s.Equal(models.OrderStatusNew, order.Status)
	s.Equal(s.customer.ID, order.CustomerID)
	s.NotEqual(uuid.Nil, order.UUID)
	s.Equal(uuid.Version(7), order.UUID.Version())
	s.Equal("25", order.TotalPrice.String())
	s.Require().Len(order.Products, 2)
	s.Equal(uint(2), order.Products[0].OrderProduct.Quantity)
	s.Nil(order.Customer, "customer view must not embed the customer")
	s.Equal([]uuid.UUID{order.UUID}, s.notifier.created)

	var stock models.Product
	s.Require().NoError(s.db.First(&stock, p1.ID).Error)
	s.Equal(uint(10), stock.Quantity, "stock is untouched unless decrementing is enabled")
}

func (s *OrderServiceTestSuite) TestCheckoutRejectsInsufficientStockWithoutWriting() {
	p := testutil.CreateProduct(s.T(), s.db, testutil.WithQuantity(3))

	_, err := s.service.Checkout(s.ctx, s.customer.ID, checkout(CartItem{ProductID: p.ID, Quantity: 5}))

	verr, ok := apperrors.AsValidation(err)
	s.Require().True(ok)
	s.Contains(verr.Fields["order_products.0.quantity"][0], `Only "3" remaining`)

	var orders, lines int64
	s.db.Model(&models.Order{}).Count(&orders)
	s.db.Model(&models.OrderProduct{}).Count(&lines)
	s.Zero(orders)
	s.Zero(lines)
	s.Empty(s.notifier.created)
}

func (s *OrderServiceTestSuite) TestCheckoutValidatesRequest() {
	_, err := s.service.Checkout(s.ctx, s.customer.ID, &CheckoutRequest{
		OrderProducts: []CartItem{{ProductID: 1, Quantity: 0}},
	})

	verr, ok := apperrors.AsValidation(err)
	s.Require().True(ok)
	s.Contains(verr.Fields, "address")
	s.Contains(verr.Fields, "order_products.0.quantity")
}

func (s *OrderServiceTestSuite) TestOrderKeepsPriceSnapshot() {
	p := testutil.CreateProduct(s.T(), s.db, testutil.WithPrice("10.00"))
	order, err := s.service.Checkout(s.ctx, s.customer.ID, checkout(CartItem{ProductID: p.ID, Quantity: 2}))
	s.Require().NoError(err)

	s.Require().NoError(s.db.Model(p).Update("price", testutil.Price("99.99")).Error)

	again, err := s.service.GetCustomerOrder(s.ctx, s.customer.ID, order.UUID)
	s.Require().NoError(err)
	s.True(order.TotalPrice.Equal(again.TotalPrice))
	s.Require().Len(again.Products, 1)
	s.Equal("10", again.Products[0].OrderProduct.UnitPrice.String())
}

func (s *OrderServiceTestSuite) TestCustomerCannotSeeOthersOrders() {
	other := testutil.CreateCustomer(s.T(), s.db)
	p := testutil.CreateProduct(s.T(), s.db)
	order := testutil.CreateOrder(s.T(), s.db, other, testutil.Item{Product: p, Quantity: 1})

	_, err := s.service.GetCustomerOrder(s.ctx, s.customer.ID, order.UUID)

	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *OrderServiceTestSuite) TestCustomerViewHidesUnpublishedProducts() {
	visible := testutil.CreateProduct(s.T(), s.db)
	hidden := testutil.CreateProduct(s.T(), s.db, testutil.Unpublished())
	order := testutil.CreateOrder(s.T(), s.db, s.customer,
		testutil.Item{Product: visible, Quantity: 1},
		testutil.Item{Product: hidden, Quantity: 1},
	)

	got, err := s.service.GetCustomerOrder(s.ctx, s.customer.ID, order.UUID)
	s.Require().NoError(err)
	s.Require().Len(got.Products, 1)
	s.Equal(visible.ID, got.Products[0].ID)
	s.Equal("20", got.TotalPrice.String())

	admin, err := s.service.GetOrder(s.ctx, order.ID, false)
	s.Require().NoError(err)
	s.Len(admin.Products, 2)
	s.NotNil(admin.Customer)
}

func (s *OrderServiceTestSuite) TestListCustomerOrdersOnlyActive() {
	p := testutil.CreateProduct(s.T(), s.db)
	active := testutil.CreateOrder(s.T(), s.db, s.customer, testutil.Item{Product: p, Quantity: 1})
	done := testutil.CreateOrder(s.T(), s.db, s.customer, testutil.Item{Product: p, Quantity: 1})
	testutil.SetOrderStatus(s.T(), s.db, done, models.OrderStatusDelivered)
	testutil.CreateOrder(s.T(), s.db, testutil.CreateCustomer(s.T(), s.db), testutil.Item{Product: p, Quantity: 1})

	params := testutil.Page(1, 15)
	orders, total, err := s.service.ListCustomerOrders(s.ctx, s.customer.ID, params)

	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Require().Len(orders, 1)
	s.Equal(active.ID, orders[0].ID)
}

func (s *OrderServiceTestSuite) TestAdminCreateOrderRequiresCustomer() {
	p := testutil.CreateProduct(s.T(), s.db)
	admin := testutil.CreateAdmin(s.T(), s.db)

	_, err := s.service.CreateOrder(s.ctx, &CreateOrderRequest{
		CustomerID:      admin.ID,
		CheckoutRequest: *checkout(CartItem{ProductID: p.ID, Quantity: 1}),
	})
	verr, ok := apperrors.AsValidation(err)
	s.Require().True(ok)
	s.Contains(verr.Fields, "customer_id")

	order, err := s.service.CreateOrder(s.ctx, &CreateOrderRequest{
		CustomerID:      s.customer.ID,
		CheckoutRequest: *checkout(CartItem{ProductID: p.ID, Quantity: 1}),
	})
	s.Require().NoError(err)
	s.Equal(s.customer.ID, order.CustomerID)
	s.Require().NotNil(order.Customer, "admin view embeds the customer")
	s.Equal(s.customer.Email, order.Customer.Email)
}

func (s *OrderServiceTestSuite) TestCheckoutRejectsDeletedCustomer() {
	p := testutil.CreateProduct(s.T(), s.db)
	s.Require().NoError(s.db.Delete(&models.User{}, s.customer.ID).Error)

	_, err := s.service.Checkout(s.ctx, s.customer.ID, checkout(CartItem{ProductID: p.ID, Quantity: 1}))
	s.ErrorIs(err, apperrors.ErrUnauthorized)

	var orders int64
	s.db.Model(&models.Order{}).Count(&orders)
	s.Zero(orders)
	s.Empty(s.notifier.created)
}

func (s *OrderServiceTestSuite) TestCheckoutRejectsOversizedQuantities() {
	p := testutil.CreateProduct(s.T(), s.db, testutil.WithQuantity(3))

	_, err := s.service.Checkout(s.ctx, s.customer.ID, checkout(
		CartItem{ProductID: p.ID, Quantity: math.MaxInt64},
		CartItem{ProductID: p.ID, Quantity: math.MaxInt64},
		CartItem{ProductID: p.ID, Quantity: 4},
	))
	verr, ok := apperrors.AsValidation(err)
	s.Require().True(ok)
	s.Contains(verr.Fields, "order_products.0.quantity")
	s.Contains(verr.Fields, "order_products.1.quantity")

	var orders int64
	s.db.Model(&models.Order{}).Count(&orders)
	s.Zero(orders)
}

func (s *OrderServiceTestSuite) TestUpdateOrderRepricesCart() {
	p1 := testutil.CreateProduct(s.T(), s.db, testutil.WithPrice("10.00"))
	p2 := testutil.CreateProduct(s.T(), s.db, testutil.WithPrice("3.50"))
	order := testutil.CreateOrder(s.T(), s.db, s.customer, testutil.Item{Product: p1, Quantity: 1})

	updated, err := s.service.UpdateOrder(s.ctx, order.ID, &UpdateOrderRequest{
		OrderProducts: []CartItem{{ProductID: p2.ID, Quantity: 2}},
	})

	s.Require().NoError(err)
	s.Equal("7", updated.TotalPrice.String())
	s.Require().Len(updated.Products, 1)
	s.Equal(p2.ID, updated.Products[0].ID)

	var lines int64
	s.db.Model(&models.OrderProduct{}).Where("order_id = ?", order.ID).Count(&lines)
	s.Equal(int64(1), lines)
}

func (s *OrderServiceTestSuite) TestUpdateOrderInvalidCartRollsBack() {
	p := testutil.CreateProduct(s.T(), s.db)
	hidden := testutil.CreateProduct(s.T(), s.db, testutil.Unpublished())
	order := testutil.CreateOrder(s.T(), s.db, s.customer, testutil.Item{Product: p, Quantity: 1})
	notes := "leave at door"

	_, err := s.service.UpdateOrder(s.ctx, order.ID, &UpdateOrderRequest{
		Notes:         &notes,
		OrderProducts: []CartItem{{ProductID: hidden.ID, Quantity: 1}},
	})
	_, ok := apperrors.AsValidation(err)
	s.Require().True(ok)

	got, err := s.service.GetOrder(s.ctx, order.ID, false)
	s.Require().NoError(err)
	s.Nil(got.Notes)
	s.Require().Len(got.Products, 1)
	s.Equal(p.ID, got.Products[0].ID)
}

func (s *OrderServiceTestSuite) TestUpdateOrderStatusLifecycle() {
	p := testutil.CreateProduct(s.T(), s.db)
	order := testutil.CreateOrder(s.T(), s.db, s.customer, testutil.Item{Product: p, Quantity: 1})

	shipped := models.OrderStatusShipped
	updated, err := s.service.UpdateOrder(s.ctx, order.ID, &UpdateOrderRequest{Status: &shipped})
	s.Require().NoError(err)
	s.Equal(models.OrderStatusShipped, updated.Status)
	s.Equal([]uuid.UUID{order.UUID}, s.notifier.shipped)

	// Same status again is a no-op and does not notify twice.
	_, err = s.service.UpdateOrder(s.ctx, order.ID, &UpdateOrderRequest{Status: &shipped})
	s.Require().NoError(err)
	s.Len(s.notifier.shipped, 1)

	back := models.OrderStatusNew
	_, err = s.service.UpdateOrder(s.ctx, order.ID, &UpdateOrderRequest{Status: &back})
	verr, ok := apperrors.AsValidation(err)
	s.Require().True(ok)
	s.Contains(verr.Fields, "status")
}

func (s *OrderServiceTestSuite) TestUpdateMissingOrder() {
	notes := "x"
	_, err := s.service.UpdateOrder(s.ctx, 4242, &UpdateOrderRequest{Notes: &notes})
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *OrderServiceTestSuite) TestDeleteRestoreRoundTrip() {
	p := testutil.CreateProduct(s.T(), s.db)
	order := testutil.CreateOrder(s.T(), s.db, s.customer, testutil.Item{Product: p, Quantity: 2})
	before, err := s.service.GetOrder(s.ctx, order.ID, false)
	s.Require().NoError(err)

	s.Require().NoError(s.service.DeleteOrder(s.ctx, order.ID))
	_, err = s.service.GetOrder(s.ctx, order.ID, false)
	s.ErrorIs(err, apperrors.ErrNotFound)

	trashed, err := s.service.GetOrder(s.ctx, order.ID, true)
	s.Require().NoError(err)
	s.True(trashed.DeletedAt.Valid)

	restored, err := s.service.RestoreOrder(s.ctx, order.ID)
	s.Require().NoError(err)
	s.False(restored.DeletedAt.Valid)
	s.Equal(before.UUID, restored.UUID)
	s.Equal(before.Status, restored.Status)
	s.True(before.TotalPrice.Equal(restored.TotalPrice))
	s.True(before.UpdatedAt.Equal(restored.UpdatedAt))
	s.Equal(before.Address, restored.Address)

	s.ErrorIs(s.service.DeleteOrder(s.ctx, 4242), apperrors.ErrNotFound)
	_, err = s.service.RestoreOrder(s.ctx, 4242)
	s.ErrorIs(err, apperrors.ErrNotFound)
}

func (s *OrderServiceTestSuite) TestListOrdersWithTrashedAndStatus() {
	p := testutil.CreateProduct(s.T(), s.db)
	kept := testutil.CreateOrder(s.T(), s.db, s.customer, testutil.Item{Product: p, Quantity: 1})
	gone := testutil.CreateOrder(s.T(), s.db, s.customer, testutil.Item{Product: p, Quantity: 1})
	s.Require().NoError(s.service.DeleteOrder(s.ctx, gone.ID))

	params := OrderListParams{PaginationParams: testutil.Page(1, 15)}
	orders, total, err := s.service.ListOrders(s.ctx, params)
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Equal(kept.ID, orders[0].ID)

	params.WithTrashed = true
	_, total, err = s.service.ListOrders(s.ctx, params)
	s.Require().NoError(err)
	s.Equal(int64(2), total)

	shipped := models.OrderStatusShipped
	params.Status = &shipped
	_, total, err = s.service.ListOrders(s.ctx, params)
	s.Require().NoError(err)
	s.Zero(total)
}

func TestOrderServiceTestSuite(t *testing.T) {
	suite.Run(t, new(OrderServiceTestSuite))
}

func TestCheckoutDecrementsStock(t *testing.T) {
	db := testutil.NewTestDB(t)
	svc := NewOrderService(db, NewPricingService(db), nil, config.OrdersConfig{DecrementStock: true})
	customer := testutil.CreateCustomer(t, db)
	p := testutil.CreateProduct(t, db, testutil.WithQuantity(5))
	ctx := context.Background()

	order, err := svc.Checkout(ctx, customer.ID, checkout(CartItem{ProductID: p.ID, Quantity: 3}))
	require.NoError(t, err)
	assertStock(t, db, p.ID, 2)

	_, err = svc.Checkout(ctx, customer.ID, checkout(CartItem{ProductID: p.ID, Quantity: 3}))
	_, ok := apperrors.AsValidation(err)
	require.True(t, ok)
	assertStock(t, db, p.ID, 2)

	// Shrinking the order returns the difference to stock.
	_, err = svc.UpdateOrder(ctx, order.ID, &UpdateOrderRequest{
		OrderProducts: []CartItem{{ProductID: p.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	assertStock(t, db, p.ID, 4)

	cancelled := models.OrderStatusCancelled
	_, err = svc.UpdateOrder(ctx, order.ID, &UpdateOrderRequest{Status: &cancelled})
	require.NoError(t, err)
	assertStock(t, db, p.ID, 5)
}

func assertStock(t *testing.T, db *gorm.DB, productID uint, want uint) {
	t.Helper()
	var p models.Product
	require.NoError(t, db.First(&p, productID).Error)
	assert.Equal(t, want, p.Quantity)
}
