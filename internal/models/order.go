// internal/models/order.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusNew        OrderStatus = "new"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Forward-only lifecycle. Terminal states have no outgoing edges.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusNew:        {OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
}

// ActiveOrderStatuses are the statuses of orders still in flight.
func ActiveOrderStatuses() []OrderStatus {
	return []OrderStatus{OrderStatusNew, OrderStatusProcessing, OrderStatusShipped}
}

func (s OrderStatus) Valid() bool {
	_, ok := orderTransitions[s]
	return ok
}

func (s OrderStatus) IsTerminal() bool {
	next, ok := orderTransitions[s]
	return ok && len(next) == 0
}

// CanTransitionTo reports whether an order in status s may move to next.
// Re-applying the current status is always allowed.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s == next {
		return next.Valid()
	}
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Address struct {
	StreetAddress string `json:"street_address" validate:"required,max=255"`
	City          string `json:"city" validate:"required,max=255"`
}

func (a Address) Value() (driver.Value, error) {
	return json.Marshal(a)
}

func (a *Address) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*a = Address{}
		return nil
	case []byte:
		return json.Unmarshal(v, a)
	case string:
		return json.Unmarshal([]byte(v), a)
	}
	return errors.New("unsupported address source type")
}

type Order struct {
	SoftDeleteModel
	UUID       uuid.UUID       `json:"uuid" gorm:"type:uuid;uniqueIndex;not null"`
	CustomerID uint            `json:"customer_id" gorm:"not null;index"`
	Status     OrderStatus     `json:"status" gorm:"type:varchar(20);not null;default:'new';index"`
	Notes      *string         `json:"notes,omitempty" gorm:"type:text"`
	Address    Address         `json:"address" gorm:"type:jsonb"`
	TotalPrice decimal.Decimal `json:"total_price" gorm:"type:decimal(12,2);not null"`

	// Relationships
	Customer  *User          `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	LineItems []OrderProduct `json:"-" gorm:"foreignKey:OrderID"`
	Products  []Product      `json:"products,omitempty" gorm:"-"`
}

// BeforeCreate assigns the time-ordered public identifier and forces the
// initial status. Neither is ever taken from the caller.
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	id, err := uuid.NewV7()
	if err != nil {
		return err
	}
	o.UUID = id
	o.Status = OrderStatusNew
	return nil
}

// OrderProduct is a line item: a product, a quantity and the unit price
// captured when it was attached.
type OrderProduct struct {
	OrderID   uint            `json:"order_id" gorm:"primaryKey;autoIncrement:false"`
	ProductID uint            `json:"product_id" gorm:"primaryKey;autoIncrement:false;index"`
	Quantity  uint            `json:"quantity" gorm:"not null"`
	UnitPrice decimal.Decimal `json:"unit_price" gorm:"type:decimal(10,2);not null"`

	Product *Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
}

func (OrderProduct) TableName() string {
	return "order_product"
}

// Subtotal is quantity × unit price for the line.
func (op OrderProduct) Subtotal() decimal.Decimal {
	return op.UnitPrice.Mul(decimal.NewFromInt(int64(op.Quantity)))
}

// HydrateProducts fills Products from the loaded line items, attaching the
// pivot snapshot to each product. When publishedOnly is set, unpublished
// products are left out of the view (the order total is unaffected).
func (o *Order) HydrateProducts(publishedOnly bool) {
	products := make([]Product, 0, len(o.LineItems))
	for _, item := range o.LineItems {
		if item.Product == nil {
			continue
		}
		if publishedOnly && !item.Product.IsPublished {
			continue
		}
		p := *item.Product
		p.OrderProduct = &OrderProductPivot{Quantity: item.Quantity, UnitPrice: item.UnitPrice}
		products = append(products, p)
	}
	o.Products = products
}
