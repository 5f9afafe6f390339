package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/utils"
)

const (
	// PopularProductMinLines is how many line items make a product popular.
	PopularProductMinLines = 5
	ShortProductQuantity   = 5
	shortProductsLimit     = 10
)

type DashboardService struct {
	db *gorm.DB
}

type ProductsCount struct {
	Published   int64 `json:"published"`
	Unpublished int64 `json:"unpublished"`
}

type DashboardParams struct {
	Outstanding utils.PaginationParams
	Popular     utils.PaginationParams
}

type Dashboard struct {
	ProductsCount     ProductsCount          `json:"products_count"`
	OrdersCount       int64                  `json:"orders_count"`
	CustomersCount    int64                  `json:"customers_count"`
	OutstandingOrders utils.PaginationResult `json:"outstanding_orders"`
	PopularProducts   utils.PaginationResult `json:"popular_products"`
	ShortProducts     []models.Product       `json:"short_products"`
}

func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db}
}

// Build runs every aggregate concurrently. It never writes.
func (s *DashboardService) Build(ctx context.Context, params DashboardParams) (*Dashboard, error) {
	outstandingParams := utils.NormalizePagination(params.Outstanding, utils.DefaultPageSize)
	popularParams := utils.NormalizePagination(params.Popular, utils.DefaultPageSize)

	d := &Dashboard{}
	outstanding := []models.Order{}
	popular := []models.Product{}
	short := []models.Product{}
	var outstandingTotal, popularTotal int64

	g, ctx := errgroup.WithContext(ctx)
	db := s.db.WithContext(ctx)

	g.Go(func() error {
		return wrapCount("published products", db.Model(&models.Product{}).
			Where("is_published = ?", true).Count(&d.ProductsCount.Published).Error)
	})
	g.Go(func() error {
		return wrapCount("unpublished products", db.Model(&models.Product{}).
			Where("is_published = ?", false).Count(&d.ProductsCount.Unpublished).Error)
	})
	g.Go(func() error {
		return wrapCount("orders", db.Model(&models.Order{}).Count(&d.OrdersCount).Error)
	})
	g.Go(func() error {
		return wrapCount("customers", db.Model(&models.User{}).
			Where("role = ?", models.UserRoleCustomer).Count(&d.CustomersCount).Error)
	})

	g.Go(func() error {
		query := db.Model(&models.Order{}).Where("status = ?", models.OrderStatusNew)
		if err := query.Count(&outstandingTotal).Error; err != nil {
			return wrapCount("outstanding orders", err)
		}
		err := utils.ApplyPagination(query.Order("created_at DESC").Order("id DESC"), outstandingParams).
			Select("id", "uuid", "total_price", "created_at").
			Find(&outstanding).Error
		if err != nil {
			return fmt.Errorf("failed to load outstanding orders: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		lines := db.Table("order_product").
			Select("order_product.product_id").
			Joins("JOIN orders ON orders.id = order_product.order_id AND orders.deleted_at IS NULL").
			Group("order_product.product_id").
			Having("COUNT(*) >= ?", PopularProductMinLines)

		query := db.Model(&models.Product{}).
			Where("is_published = ?", true).
			Where("id IN (?)", lines)
		if err := query.Count(&popularTotal).Error; err != nil {
			return wrapCount("popular products", err)
		}
		err := utils.ApplyPagination(query.Order("id ASC"), popularParams).
			Select("id", "name", "slug", "quantity", "price", "old_price").
			Find(&popular).Error
		if err != nil {
			return fmt.Errorf("failed to load popular products: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		err := db.Where("quantity <= ?", ShortProductQuantity).
			Order("quantity ASC").Order("id ASC").
			Limit(shortProductsLimit).
			Select("id", "name", "slug", "quantity", "price", "old_price", "is_published").
			Find(&short).Error
		if err != nil {
			return fmt.Errorf("failed to load short products: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	d.OutstandingOrders = utils.CreatePaginationResult(outstanding, outstandingTotal, outstandingParams)
	d.PopularProducts = utils.CreatePaginationResult(popular, popularTotal, popularParams)
	d.ShortProducts = short
	return d, nil
}

func wrapCount(what string, err error) error {
	if err != nil {
		return fmt.Errorf("failed to count %s: %w", what, err)
	}
	return nil
}
