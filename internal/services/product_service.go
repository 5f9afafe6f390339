// internal/services/product_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/javajoker/storefront-backend/internal/apperrors"
	"github.com/javajoker/storefront-backend/internal/database"
	"github.com/javajoker/storefront-backend/internal/i18n"
	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/utils"
)

type ProductService struct {
	db    *gorm.DB
	media *MediaService
}

// ImageRef points at a staged attachment whose media should move onto the
// product.
type ImageRef struct {
	ID uint `json:"id" validate:"required"`
}

type CreateProductRequest struct {
	Name        string           `json:"name" validate:"required,max=255"`
	Slug        string           `json:"slug" validate:"required,max=255,slug"`
	Excerpt     *string          `json:"excerpt" validate:"omitempty,max=255"`
	Description string           `json:"description" validate:"required"`
	IsPublished *bool            `json:"is_published" validate:"required"`
	Quantity    *int             `json:"quantity" validate:"required,min=0"`
	Price       *decimal.Decimal `json:"price" validate:"required,decimal2"`
	OldPrice    *decimal.Decimal `json:"old_price" validate:"omitempty,decimal2"`
	Categories  []uint           `json:"categories" validate:"omitempty,dive,required"`
	Images      []ImageRef       `json:"images" validate:"omitempty,dive"`
}

type UpdateProductRequest struct {
	Name        *string          `json:"name" validate:"omitempty,max=255"`
	Slug        *string          `json:"slug" validate:"omitempty,max=255,slug"`
	Excerpt     *string          `json:"excerpt" validate:"omitempty,max=255"`
	Description *string          `json:"description"`
	IsPublished *bool            `json:"is_published"`
	Quantity    *int             `json:"quantity" validate:"omitempty,min=0"`
	Price       *decimal.Decimal `json:"price" validate:"omitempty,decimal2"`
	OldPrice    *decimal.Decimal `json:"old_price" validate:"omitempty,decimal2"`
	Categories  []uint           `json:"categories" validate:"omitempty,dive,required"`
	Images      []ImageRef       `json:"images" validate:"omitempty,dive"`
}

type ProductSearchParams struct {
	utils.PaginationParams
	CategoryID *uint
}

var productSortFields = []string{"created_at", "updated_at", "name", "price", "quantity"}

func NewProductService(db *gorm.DB, media *MediaService) *ProductService {
	return &ProductService{db: db, media: media}
}

func (s *ProductService) withRelations(query *gorm.DB) *gorm.DB {
	return query.
		Preload("Categories").
		Preload("Media", func(db *gorm.DB) *gorm.DB { return db.Order("order_column, id") })
}

func (s *ProductService) present(products []models.Product) {
	for i := range products {
		s.media.Present(products[i].Media)
	}
}

func (s *ProductService) search(ctx context.Context, params ProductSearchParams, publishedOnly bool) ([]models.Product, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Product{})
	if params.WithTrashed && !publishedOnly {
		query = query.Unscoped()
	}
	if publishedOnly {
		query = query.Where("is_published = ?", true)
	}
	if params.Search != "" {
		term := "%" + strings.ToLower(params.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", term, term)
	}
	if params.CategoryID != nil {
		query = query.Where("id IN (?)",
			s.db.Table("category_product").Select("product_id").Where("category_id = ?", *params.CategoryID))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	query = utils.ApplySort(query, params.PaginationParams, productSortFields)
	query = utils.ApplyPagination(query, params.PaginationParams)

	var products []models.Product
	if err := s.withRelations(query).Find(&products).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	s.present(products)
	return products, total, nil
}

// ListPublished is the storefront catalog.
func (s *ProductService) ListPublished(ctx context.Context, params ProductSearchParams) ([]models.Product, int64, error) {
	return s.search(ctx, params, true)
}

func (s *ProductService) GetPublished(ctx context.Context, id uint) (*models.Product, error) {
	return s.get(ctx, s.db.Where("is_published = ?", true), id)
}

func (s *ProductService) ListProducts(ctx context.Context, params ProductSearchParams) ([]models.Product, int64, error) {
	return s.search(ctx, params, false)
}

func (s *ProductService) GetProduct(ctx context.Context, id uint, withTrashed bool) (*models.Product, error) {
	query := s.db
	if withTrashed {
		query = query.Unscoped()
	}
	return s.get(ctx, query, id)
}

func (s *ProductService) get(ctx context.Context, query *gorm.DB, id uint) (*models.Product, error) {
	var product models.Product
	if err := s.withRelations(query.WithContext(ctx)).First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	s.media.Present(product.Media)
	return &product, nil
}

func (s *ProductService) CreateProduct(ctx context.Context, req *CreateProductRequest) (*models.Product, error) {
	if verr := utils.Validate(req); verr != nil {
		return nil, verr
	}

	product := &models.Product{
		Name:        req.Name,
		Slug:        req.Slug,
		Excerpt:     req.Excerpt,
		Description: req.Description,
		IsPublished: *req.IsPublished,
		Quantity:    uint(*req.Quantity),
		Price:       req.Price.Round(2),
	}
	if req.OldPrice != nil {
		old := req.OldPrice.Round(2)
		product.OldPrice = &old
	}

	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		slugErr, err := s.checkSlug(ctx, tx, product.Slug, 0)
		if err != nil {
			return err
		}
		verr := apperrors.NewValidationError()
		verr.Merge(slugErr)
		verr.Merge(checkOldPrice(ctx, product))
		if verr.HasErrors() {
			return verr
		}

		if err := tx.Create(product).Error; err != nil {
			return s.translateWriteError(ctx, err)
		}
		if err := s.syncCategories(ctx, tx, product, req.Categories); err != nil {
			return err
		}
		return s.media.MoveToProduct(ctx, tx, "images", imageIDs(req.Images), product.ID)
	})
	if err != nil {
		return nil, err
	}

	return s.GetProduct(ctx, product.ID, false)
}

func (s *ProductService) UpdateProduct(ctx context.Context, id uint, req *UpdateProductRequest) (*models.Product, error) {
	if verr := utils.Validate(req); verr != nil {
		return nil, verr
	}

	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.First(&product, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return fmt.Errorf("failed to load product: %w", err)
		}

		updates := map[string]interface{}{}
		if req.Name != nil {
			updates["name"] = *req.Name
		}
		if req.Slug != nil {
			updates["slug"] = *req.Slug
			product.Slug = *req.Slug
		}
		if req.Excerpt != nil {
			updates["excerpt"] = *req.Excerpt
		}
		if req.Description != nil {
			updates["description"] = *req.Description
		}
		if req.IsPublished != nil {
			updates["is_published"] = *req.IsPublished
		}
		if req.Quantity != nil {
			updates["quantity"] = *req.Quantity
		}
		if req.Price != nil {
			product.Price = req.Price.Round(2)
			updates["price"] = product.Price
		}
		if req.OldPrice != nil {
			old := req.OldPrice.Round(2)
			product.OldPrice = &old
			updates["old_price"] = old
		}

		verr := apperrors.NewValidationError()
		if req.Slug != nil {
			slugErr, err := s.checkSlug(ctx, tx, product.Slug, product.ID)
			if err != nil {
				return err
			}
			verr.Merge(slugErr)
		}
		if req.Price != nil || req.OldPrice != nil {
			verr.Merge(checkOldPrice(ctx, &product))
		}
		if verr.HasErrors() {
			return verr
		}

		if len(updates) > 0 {
			if err := tx.Model(&models.Product{}).Where("id = ?", product.ID).Updates(updates).Error; err != nil {
				return s.translateWriteError(ctx, err)
			}
		}
		if req.Categories != nil {
			if err := s.syncCategories(ctx, tx, &product, req.Categories); err != nil {
				return err
			}
		}
		return s.media.MoveToProduct(ctx, tx, "images", imageIDs(req.Images), product.ID)
	})
	if err != nil {
		return nil, err
	}

	return s.GetProduct(ctx, id, false)
}

// DeleteProduct detaches the product from its categories and soft-deletes it.
func (s *ProductService) DeleteProduct(ctx context.Context, id uint) error {
	return database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.First(&product, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return fmt.Errorf("failed to load product: %w", err)
		}

		if err := tx.Model(&product).Association("Categories").Clear(); err != nil {
			return fmt.Errorf("failed to detach categories: %w", err)
		}
		if err := tx.Delete(&product).Error; err != nil {
			return fmt.Errorf("failed to delete product: %w", err)
		}
		return nil
	})
}

func (s *ProductService) RestoreProduct(ctx context.Context, id uint) (*models.Product, error) {
	if err := restoreRow(ctx, s.db, &models.Product{}, id); err != nil {
		return nil, err
	}
	return s.GetProduct(ctx, id, false)
}

// DeleteMedia removes one image from whatever owns it.
func (s *ProductService) DeleteMedia(ctx context.Context, mediaID uint) error {
	return s.media.Delete(ctx, mediaID)
}

func (s *ProductService) syncCategories(ctx context.Context, tx *gorm.DB, product *models.Product, ids []uint) error {
	if ids == nil {
		return nil
	}

	var categories []models.Category
	if len(ids) > 0 {
		if err := tx.Where("id IN ?", ids).Find(&categories).Error; err != nil {
			return fmt.Errorf("failed to load categories: %w", err)
		}
	}
	known := make(map[uint]bool, len(categories))
	for _, c := range categories {
		known[c.ID] = true
	}
	verr := apperrors.NewValidationError()
	for i, id := range ids {
		if !known[id] {
			verr.Add(fmt.Sprintf("categories.%d", i), i18n.TC(ctx, i18n.KeyProductUnknownCategory))
		}
	}
	if verr.HasErrors() {
		return verr
	}

	if err := tx.Model(product).Association("Categories").Replace(categories); err != nil {
		return fmt.Errorf("failed to sync categories: %w", err)
	}
	return nil
}

// checkSlug reports a taken slug. Trashed rows still hold their slug.
func (s *ProductService) checkSlug(ctx context.Context, tx *gorm.DB, slug string, exceptID uint) (*apperrors.ValidationError, error) {
	var count int64
	if err := tx.Unscoped().Model(&models.Product{}).Where("slug = ? AND id <> ?", slug, exceptID).Count(&count).Error; err != nil {
		return nil, persistence("check product slug", err)
	}
	if count > 0 {
		return apperrors.FieldError("slug", i18n.TC(ctx, i18n.KeyProductSlugTaken)), nil
	}
	return nil, nil
}

func (s *ProductService) translateWriteError(ctx context.Context, err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperrors.FieldError("slug", i18n.TC(ctx, i18n.KeyProductSlugTaken))
	}
	return fmt.Errorf("failed to save product: %w", err)
}

func checkOldPrice(ctx context.Context, p *models.Product) *apperrors.ValidationError {
	if p.OldPrice != nil && !p.OldPrice.LessThan(p.Price) {
		return apperrors.FieldError("old_price", i18n.TC(ctx, i18n.KeyProductOldPrice))
	}
	return nil
}

func imageIDs(refs []ImageRef) []uint {
	ids := make([]uint, 0, len(refs))
	for _, r := range refs {
		ids = append(ids, r.ID)
	}
	return ids
}
