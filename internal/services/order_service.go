package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/storefront-backend/internal/apperrors"
	"github.com/javajoker/storefront-backend/internal/config"
	"github.com/javajoker/storefront-backend/internal/database"
	"github.com/javajoker/storefront-backend/internal/i18n"
	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/utils"
)

type OrderService struct {
	db             *gorm.DB
	pricing        *PricingService
	notifier       Notifier
	decrementStock bool
	perPage        int
}

// CheckoutRequest is what a customer submits. Status and totals are never
// read from the client.
type CheckoutRequest struct {
	Notes         *string         `json:"notes" validate:"omitempty,max=255"`
	Address       *models.Address `json:"address" validate:"required"`
	OrderProducts []CartItem      `json:"order_products" validate:"required,min=1,dive"`
}

// CreateOrderRequest is the admin variant of checkout on behalf of a customer.
type CreateOrderRequest struct {
	CustomerID uint `json:"customer_id" validate:"required"`
	CheckoutRequest
}

type UpdateOrderRequest struct {
	Status        *models.OrderStatus `json:"status" validate:"omitempty,oneof=new processing shipped delivered cancelled"`
	Notes         *string             `json:"notes" validate:"omitempty,max=255"`
	Address       *models.Address     `json:"address" validate:"omitempty"`
	OrderProducts []CartItem          `json:"order_products" validate:"omitempty,min=1,dive"`
}

type OrderListParams struct {
	utils.PaginationParams
	Status *models.OrderStatus
}

var orderSortFields = []string{"created_at", "total_price", "status", "id"}

func NewOrderService(db *gorm.DB, pricing *PricingService, notifier Notifier, cfg config.OrdersConfig) *OrderService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &OrderService{
		db:             db,
		pricing:        pricing,
		notifier:       notifier,
		decrementStock: cfg.DecrementStock,
		perPage:        cfg.PerPage,
	}
}

// PerPage is the default page size of order listings.
func (s *OrderService) PerPage() int {
	return s.perPage
}

func persistence(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", apperrors.ErrPersistence, op, err)
}

// Checkout places an order for the authenticated customer.
func (s *OrderService) Checkout(ctx context.Context, customerID uint, req *CheckoutRequest) (*models.Order, error) {
	if verr := utils.Validate(req); verr != nil {
		return nil, verr
	}
	return s.placeOrder(ctx, customerID, req, true)
}

// CreateOrder places an order on behalf of req.CustomerID.
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*models.Order, error) {
	if verr := utils.Validate(req); verr != nil {
		return nil, verr
	}

	var customer models.User
	err := s.db.WithContext(ctx).
		Where("role = ?", models.UserRoleCustomer).
		First(&customer, req.CustomerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.FieldError("customer_id", i18n.TC(ctx, i18n.KeyOrderCustomerInvalid))
	}
	if err != nil {
		return nil, persistence("load customer", err)
	}

	return s.placeOrder(ctx, customer.ID, &req.CheckoutRequest, false)
}

// placeOrder prices and stores the cart. A customer placing their own order
// must still be an active customer, since access tokens outlive deletion.
func (s *OrderService) placeOrder(ctx context.Context, customerID uint, req *CheckoutRequest, customerView bool) (*models.Order, error) {
	order := &models.Order{
		CustomerID: customerID,
		Address:    *req.Address,
		Notes:      req.Notes,
	}

	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if customerView {
			var count int64
			err := tx.Model(&models.User{}).
				Where("id = ? AND role = ?", customerID, models.UserRoleCustomer).
				Count(&count).Error
			if err != nil {
				return persistence("load customer", err)
			}
			if count == 0 {
				return apperrors.ErrUnauthorized
			}
		}

		cart, err := s.pricing.PriceCart(ctx, tx, req.OrderProducts)
		if err != nil {
			return err
		}
		order.TotalPrice = cart.TotalPrice

		if err := tx.Create(order).Error; err != nil {
			return persistence("create order", err)
		}
		items := cart.OrderProducts(order.ID)
		if err := tx.Create(&items).Error; err != nil {
			return persistence("attach line items", err)
		}

		if s.decrementStock {
			return s.reserveStock(ctx, tx, cart)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	created, err := s.loadOrder(ctx, s.db.Where("orders.id = ?", order.ID), customerView, false)
	if err != nil {
		return nil, err
	}
	s.notifier.OrderCreated(created)
	return created, nil
}

// reserveStock decrements product quantities with a floor check so two
// concurrent checkouts cannot both take the last units.
func (s *OrderService) reserveStock(ctx context.Context, tx *gorm.DB, cart *PricedCart) error {
	verr := apperrors.NewValidationError()
	for _, line := range cart.LineItems {
		res := tx.Model(&models.Product{}).
			Where("id = ? AND quantity >= ?", line.ProductID, line.Quantity).
			UpdateColumn("quantity", gorm.Expr("quantity - ?", line.Quantity))
		if res.Error != nil {
			return persistence("decrement stock", res.Error)
		}
		if res.RowsAffected == 0 {
			var product models.Product
			if err := tx.Select("name", "quantity").First(&product, line.ProductID).Error; err != nil {
				return persistence("reload product", err)
			}
			verr.Add(cartField(line.Position, "quantity"),
				i18n.TC(ctx, i18n.KeyOrderInsufficientQuantity, product.Name, product.Quantity))
		}
	}
	return verr.ErrOrNil()
}

func (s *OrderService) releaseStock(tx *gorm.DB, items []models.OrderProduct) error {
	for _, item := range items {
		err := tx.Unscoped().Model(&models.Product{}).
			Where("id = ?", item.ProductID).
			UpdateColumn("quantity", gorm.Expr("quantity + ?", item.Quantity)).Error
		if err != nil {
			return persistence("restore stock", err)
		}
	}
	return nil
}

// UpdateOrder applies an admin edit. A supplied cart is re-priced and
// replaces every line item; status changes must follow the order lifecycle.
func (s *OrderService) UpdateOrder(ctx context.Context, id uint, req *UpdateOrderRequest) (*models.Order, error) {
	if verr := utils.Validate(req); verr != nil {
		return nil, verr
	}

	var previous models.OrderStatus
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Preload("LineItems").First(&order, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return persistence("load order", err)
		}
		previous = order.Status

		updates := map[string]interface{}{}
		if req.Status != nil && *req.Status != order.Status {
			if !order.Status.CanTransitionTo(*req.Status) {
				return apperrors.FieldError("status",
					i18n.TC(ctx, i18n.KeyOrderStatusTransition, order.Status, *req.Status))
			}
			updates["status"] = *req.Status
		}
		if req.Notes != nil {
			updates["notes"] = *req.Notes
		}
		if req.Address != nil {
			updates["address"] = *req.Address
		}

		restock := s.decrementStock && req.Status != nil &&
			*req.Status == models.OrderStatusCancelled && order.Status != models.OrderStatusCancelled

		if req.OrderProducts != nil {
			if err := s.replaceLineItems(ctx, tx, &order, req.OrderProducts, restock, updates); err != nil {
				return err
			}
		} else if restock {
			if err := s.releaseStock(tx, order.LineItems); err != nil {
				return err
			}
		}

		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).Updates(updates).Error; err != nil {
			return persistence("update order", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.loadOrder(ctx, s.db.Where("orders.id = ?", id), false, false)
	if err != nil {
		return nil, err
	}
	if updated.Status == models.OrderStatusShipped && previous != models.OrderStatusShipped {
		s.notifier.OrderShipped(updated)
	}
	return updated, nil
}

func (s *OrderService) replaceLineItems(ctx context.Context, tx *gorm.DB, order *models.Order, items []CartItem, cancelling bool, updates map[string]interface{}) error {
	// Units held by the current lines count as available while re-pricing.
	if s.decrementStock && order.Status != models.OrderStatusCancelled {
		if err := s.releaseStock(tx, order.LineItems); err != nil {
			return err
		}
	}

	cart, err := s.pricing.PriceCart(ctx, tx, items)
	if err != nil {
		return err
	}

	if err := tx.Where("order_id = ?", order.ID).Delete(&models.OrderProduct{}).Error; err != nil {
		return persistence("detach line items", err)
	}
	lines := cart.OrderProducts(order.ID)
	if err := tx.Create(&lines).Error; err != nil {
		return persistence("attach line items", err)
	}
	updates["total_price"] = cart.TotalPrice

	if s.decrementStock && !cancelling && order.Status != models.OrderStatusCancelled {
		return s.reserveStock(ctx, tx, cart)
	}
	return nil
}

// loadOrder fetches one order with its line items. Customers only see
// published, non-deleted products; admins see everything.
func (s *OrderService) loadOrder(ctx context.Context, query *gorm.DB, customerView, withTrashed bool) (*models.Order, error) {
	query = query.WithContext(ctx)
	if withTrashed {
		query = query.Unscoped()
	}

	var order models.Order
	err := s.preloadLines(query, customerView).Preload("Customer", func(db *gorm.DB) *gorm.DB {
		return db.Unscoped()
	}).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, persistence("load order", err)
	}

	order.HydrateProducts(customerView)
	if customerView {
		order.Customer = nil
	}
	return &order, nil
}

func (s *OrderService) preloadLines(query *gorm.DB, customerView bool) *gorm.DB {
	return query.
		Preload("LineItems", func(db *gorm.DB) *gorm.DB { return db.Order("product_id") }).
		Preload("LineItems.Product", func(db *gorm.DB) *gorm.DB {
			if customerView {
				return db.Where("is_published = ?", true)
			}
			return db.Unscoped()
		})
}

// ListCustomerOrders returns the caller's active orders, newest first.
func (s *OrderService) ListCustomerOrders(ctx context.Context, customerID uint, params utils.PaginationParams) ([]models.Order, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("customer_id = ? AND status IN ?", customerID, models.ActiveOrderStatuses())

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, persistence("count orders", err)
	}

	var orders []models.Order
	q := utils.ApplySort(query, params, orderSortFields)
	if err := s.preloadLines(utils.ApplyPagination(q, params), true).Find(&orders).Error; err != nil {
		return nil, 0, persistence("list orders", err)
	}
	for i := range orders {
		orders[i].HydrateProducts(true)
	}
	return orders, total, nil
}

// GetCustomerOrder returns one of the caller's orders. Orders owned by
// someone else are reported as not found.
func (s *OrderService) GetCustomerOrder(ctx context.Context, customerID uint, orderUUID uuid.UUID) (*models.Order, error) {
	query := s.db.Where("uuid = ? AND customer_id = ?", orderUUID, customerID)
	return s.loadOrder(ctx, query, true, false)
}

func (s *OrderService) ListOrders(ctx context.Context, params OrderListParams) ([]models.Order, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Order{})
	if params.WithTrashed {
		query = query.Unscoped()
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, persistence("count orders", err)
	}

	var orders []models.Order
	q := utils.ApplyPagination(utils.ApplySort(query, params.PaginationParams, orderSortFields), params.PaginationParams)
	err := s.preloadLines(q, false).
		Preload("Customer", func(db *gorm.DB) *gorm.DB { return db.Unscoped() }).
		Find(&orders).Error
	if err != nil {
		return nil, 0, persistence("list orders", err)
	}
	for i := range orders {
		orders[i].HydrateProducts(false)
	}
	return orders, total, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id uint, withTrashed bool) (*models.Order, error) {
	return s.loadOrder(ctx, s.db.Where("orders.id = ?", id), false, withTrashed)
}

func (s *OrderService) DeleteOrder(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Order{}, id)
	if res.Error != nil {
		return persistence("delete order", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (s *OrderService) RestoreOrder(ctx context.Context, id uint) (*models.Order, error) {
	if err := restoreRow(ctx, s.db, &models.Order{}, id); err != nil {
		return nil, err
	}
	return s.GetOrder(ctx, id, false)
}

// restoreRow clears deleted_at without touching updated_at. Restoring a
// live row is a no-op.
func restoreRow(ctx context.Context, db *gorm.DB, model interface{}, id uint) error {
	var count int64
	if err := db.WithContext(ctx).Unscoped().Model(model).Where("id = ?", id).Count(&count).Error; err != nil {
		return persistence("find trashed row", err)
	}
	if count == 0 {
		return apperrors.ErrNotFound
	}

	err := db.WithContext(ctx).Unscoped().Model(model).
		Where("id = ? AND deleted_at IS NOT NULL", id).
		UpdateColumn("deleted_at", nil).Error
	if err != nil {
		return persistence("restore row", err)
	}
	return nil
}
