// internal/models/product.go
package models

import (
	"github.com/shopspring/decimal"
)

type Product struct {
	SoftDeleteModel
	Name        string           `json:"name" gorm:"size:255;not null"`
	Slug        string           `json:"slug" gorm:"uniqueIndex;size:255;not null"`
	Excerpt     *string          `json:"excerpt,omitempty" gorm:"size:255"`
	Description string           `json:"description,omitempty" gorm:"type:text;not null"`
	IsPublished bool             `json:"is_published" gorm:"not null;default:false;index"`
	Quantity    uint             `json:"quantity" gorm:"not null;default:0"`
	Price       decimal.Decimal  `json:"price" gorm:"type:decimal(10,2);not null"`
	OldPrice    *decimal.Decimal `json:"old_price,omitempty" gorm:"type:decimal(10,2)"`

	// Relationships
	Categories []Category `json:"categories,omitempty" gorm:"many2many:category_product;"`
	Media      []Media    `json:"media,omitempty" gorm:"polymorphic:Owner;polymorphicValue:products"`

	// Pivot data when loaded through an order
	OrderProduct *OrderProductPivot `json:"order_product,omitempty" gorm:"-"`
}

// OrderProductPivot is the line-item view of a product inside an order.
type OrderProductPivot struct {
	Quantity  uint            `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type Category struct {
	SoftDeleteModel
	Slug        string `json:"slug" gorm:"uniqueIndex;size:255;not null"`
	Name        string `json:"name" gorm:"size:255;not null"`
	Description string `json:"description" gorm:"type:text"`
	Image       JSONB  `json:"image,omitempty" gorm:"type:jsonb"`

	// Relationships
	Products []Product `json:"products,omitempty" gorm:"many2many:category_product;"`
}
