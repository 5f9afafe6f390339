package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/javajoker/storefront-backend/internal/apperrors"
	"github.com/javajoker/storefront-backend/internal/i18n"
	"github.com/javajoker/storefront-backend/internal/models"
)

// MaxLineQuantity bounds a single cart line and the merged quantity of a
// product across lines.
const MaxLineQuantity = 1000000

// CartItem is one requested line of a checkout.
type CartItem struct {
	ProductID uint `json:"product_id" validate:"required"`
	Quantity  int  `json:"quantity" validate:"required,min=1,max=1000000"`
}

type PricedLine struct {
	// Position is the index of the cart line the product first appeared at.
	Position  int             `json:"-"`
	ProductID uint            `json:"product_id"`
	Quantity  uint            `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type PricedCart struct {
	LineItems  []PricedLine    `json:"line_items"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// OrderProducts converts the priced lines into unsaved line items.
func (c *PricedCart) OrderProducts(orderID uint) []models.OrderProduct {
	items := make([]models.OrderProduct, 0, len(c.LineItems))
	for _, l := range c.LineItems {
		items = append(items, models.OrderProduct{
			OrderID:   orderID,
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}
	return items
}

type PricingService struct {
	db *gorm.DB
}

func NewPricingService(db *gorm.DB) *PricingService {
	return &PricingService{db: db}
}

// cartField is the request path errors for a cart line are reported under.
func cartField(index int, field string) string {
	return fmt.Sprintf("order_products.%d.%s", index, field)
}

// PriceCart validates a cart against current stock and snapshots unit
// prices. It never writes. Every offending line is reported in one
// ValidationError; lines requesting the same product are merged and
// reported at the first occurrence. Pass tx to read inside an open
// transaction, or nil to use the service connection.
func (s *PricingService) PriceCart(ctx context.Context, tx *gorm.DB, items []CartItem) (*PricedCart, error) {
	if tx == nil {
		tx = s.db
	}

	verr := apperrors.NewValidationError()
	if len(items) == 0 {
		verr.Add("order_products", i18n.TC(ctx, i18n.KeyOrderCartEmpty))
		return nil, verr
	}

	// Merge duplicate lines, remembering where each product first appeared.
	type requested struct {
		index    int
		quantity uint
	}
	order := make([]uint, 0, len(items))
	wanted := make(map[uint]*requested, len(items))
	for i, item := range items {
		if item.ProductID == 0 {
			verr.Add(cartField(i, "product_id"), i18n.TC(ctx, i18n.KeyOrderProductInvalid))
			continue
		}
		if item.Quantity < 1 {
			verr.Add(cartField(i, "quantity"), i18n.TC(ctx, i18n.KeyOrderQuantityMin))
			continue
		}
		if item.Quantity > MaxLineQuantity {
			verr.Add(cartField(i, "quantity"), i18n.TC(ctx, i18n.KeyOrderQuantityMax, MaxLineQuantity))
			continue
		}
		quantity := uint(item.Quantity)
		if r, ok := wanted[item.ProductID]; ok {
			r.quantity += quantity
			continue
		}
		wanted[item.ProductID] = &requested{index: i, quantity: quantity}
		order = append(order, item.ProductID)
	}

	var products []models.Product
	if len(order) > 0 {
		if err := tx.WithContext(ctx).Where("id IN ?", order).Find(&products).Error; err != nil {
			return nil, fmt.Errorf("%w: load cart products: %v", apperrors.ErrPersistence, err)
		}
	}
	byID := make(map[uint]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}

	cart := &PricedCart{LineItems: make([]PricedLine, 0, len(order)), TotalPrice: decimal.Zero}
	for _, id := range order {
		req := wanted[id]
		product, ok := byID[id]
		switch {
		case req.quantity > MaxLineQuantity:
			verr.Add(cartField(req.index, "quantity"), i18n.TC(ctx, i18n.KeyOrderQuantityMax, MaxLineQuantity))
		case !ok:
			verr.Add(cartField(req.index, "product_id"), i18n.TC(ctx, i18n.KeyOrderProductInvalid))
		case !product.IsPublished:
			verr.Add(cartField(req.index, "product_id"),
				i18n.TC(ctx, i18n.KeyOrderProductUnavailable, product.Name))
		case req.quantity > product.Quantity:
			verr.Add(cartField(req.index, "quantity"),
				i18n.TC(ctx, i18n.KeyOrderInsufficientQuantity, product.Name, product.Quantity))
		default:
			line := PricedLine{Position: req.index, ProductID: id, Quantity: req.quantity, UnitPrice: product.Price.Round(2)}
			cart.LineItems = append(cart.LineItems, line)
			cart.TotalPrice = cart.TotalPrice.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
		}
	}

	if verr.HasErrors() {
		return nil, verr
	}
	cart.TotalPrice = cart.TotalPrice.Round(2)
	return cart, nil
}
