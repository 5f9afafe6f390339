package services

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/javajoker/storefront-backend/internal/apperrors"
	"github.com/javajoker/storefront-backend/internal/i18n"
	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/utils"
)

type CategoryService struct {
	db    *gorm.DB
	media *MediaService
}

type CreateCategoryRequest struct {
	Name        string       `json:"name" validate:"required,max=255"`
	Slug        string       `json:"slug" validate:"required,max=255,slug"`
	Description string       `json:"description" validate:"required"`
	Image       models.JSONB `json:"image"`
}

type UpdateCategoryRequest struct {
	Name        *string      `json:"name" validate:"omitempty,max=255"`
	Slug        *string      `json:"slug" validate:"omitempty,max=255,slug"`
	Description *string      `json:"description"`
	Image       models.JSONB `json:"image"`
}

var categorySortFields = []string{"created_at", "name", "slug"}

func NewCategoryService(db *gorm.DB, media *MediaService) *CategoryService {
	return &CategoryService{db: db, media: media}
}

func (s *CategoryService) ListCategories(ctx context.Context, params utils.PaginationParams) ([]models.Category, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Category{})
	if params.WithTrashed {
		query = query.Unscoped()
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count categories: %w", err)
	}

	var categories []models.Category
	query = utils.ApplyPagination(utils.ApplySort(query, params, categorySortFields), params)
	if err := query.Find(&categories).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, total, nil
}

// GetCategory loads a category with its products. The storefront only sees
// published ones.
func (s *CategoryService) GetCategory(ctx context.Context, id uint, publishedOnly, withTrashed bool) (*models.Category, error) {
	query := s.db.WithContext(ctx)
	if withTrashed {
		query = query.Unscoped()
	}

	var category models.Category
	err := query.
		Preload("Products", func(db *gorm.DB) *gorm.DB {
			if publishedOnly {
				db = db.Where("is_published = ?", true)
			}
			return db.Order("products.id")
		}).
		Preload("Products.Media", func(db *gorm.DB) *gorm.DB { return db.Order("order_column, id") }).
		First(&category, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load category: %w", err)
	}

	for i := range category.Products {
		s.media.Present(category.Products[i].Media)
	}
	return &category, nil
}

func (s *CategoryService) CreateCategory(ctx context.Context, req *CreateCategoryRequest) (*models.Category, error) {
	if verr := utils.Validate(req); verr != nil {
		return nil, verr
	}
	if err := s.checkSlug(ctx, req.Slug, 0); err != nil {
		return nil, err
	}

	category := &models.Category{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		Image:       req.Image,
	}
	if err := s.db.WithContext(ctx).Create(category).Error; err != nil {
		return nil, s.translateWriteError(ctx, err)
	}
	return category, nil
}

func (s *CategoryService) UpdateCategory(ctx context.Context, id uint, req *UpdateCategoryRequest) (*models.Category, error) {
	if verr := utils.Validate(req); verr != nil {
		return nil, verr
	}

	var category models.Category
	if err := s.db.WithContext(ctx).First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load category: %w", err)
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Slug != nil {
		if err := s.checkSlug(ctx, *req.Slug, category.ID); err != nil {
			return nil, err
		}
		updates["slug"] = *req.Slug
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Image != nil {
		updates["image"] = req.Image
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&category).Updates(updates).Error; err != nil {
			return nil, s.translateWriteError(ctx, err)
		}
	}
	return s.GetCategory(ctx, id, false, false)
}

// DeleteCategory soft-deletes the category. Product links are kept so a
// restore brings them back.
func (s *CategoryService) DeleteCategory(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Category{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete category: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (s *CategoryService) RestoreCategory(ctx context.Context, id uint) (*models.Category, error) {
	if err := restoreRow(ctx, s.db, &models.Category{}, id); err != nil {
		return nil, err
	}
	return s.GetCategory(ctx, id, false, false)
}

func (s *CategoryService) checkSlug(ctx context.Context, slug string, exceptID uint) error {
	var count int64
	err := s.db.WithContext(ctx).Unscoped().Model(&models.Category{}).
		Where("slug = ? AND id <> ?", slug, exceptID).Count(&count).Error
	if err != nil {
		return persistence("check category slug", err)
	}
	if count > 0 {
		return apperrors.FieldError("slug", i18n.TC(ctx, i18n.KeyCategorySlugTaken))
	}
	return nil
}

func (s *CategoryService) translateWriteError(ctx context.Context, err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperrors.FieldError("slug", i18n.TC(ctx, i18n.KeyCategorySlugTaken))
	}
	return fmt.Errorf("failed to save category: %w", err)
}
