package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/storefront-backend/internal/apperrors"
	"github.com/javajoker/storefront-backend/internal/i18n"
	"github.com/javajoker/storefront-backend/internal/models"
)

// MediaService owns media rows and the blobs behind them.
type MediaService struct {
	db    *gorm.DB
	store FileStore
}

func NewMediaService(db *gorm.DB, store FileStore) *MediaService {
	return &MediaService{db: db, store: store}
}

// Present fills the public URLs of each media item.
func (s *MediaService) Present(media []models.Media) {
	for i := range media {
		m := &media[i]
		m.OriginalURL = s.store.URL(m.StorageKey)
		m.ThumbnailURL = ""
		if m.HasConversion(ThumbnailConversion) {
			m.ThumbnailURL = s.store.URL(m.ConversionKey(ThumbnailConversion))
		}
	}
}

// MoveToProduct re-owns the media of the given attachments onto a product
// and removes the emptied attachments. Unknown attachment ids are reported
// as validation errors keyed by position under field.
func (s *MediaService) MoveToProduct(ctx context.Context, tx *gorm.DB, field string, attachmentIDs []uint, productID uint) error {
	if len(attachmentIDs) == 0 {
		return nil
	}

	verr := apperrors.NewValidationError()
	seen := make(map[uint]bool, len(attachmentIDs))
	for i, id := range attachmentIDs {
		if seen[id] {
			verr.Add(fmt.Sprintf("%s.%d.id", field, i), i18n.TC(ctx, i18n.KeyProductDuplicateImage))
		}
		seen[id] = true
	}
	if verr.HasErrors() {
		return verr
	}

	var found []uint
	if err := tx.Model(&models.Attachment{}).Where("id IN ?", attachmentIDs).Pluck("id", &found).Error; err != nil {
		return persistence("load attachments", err)
	}
	exists := make(map[uint]bool, len(found))
	for _, id := range found {
		exists[id] = true
	}
	for i, id := range attachmentIDs {
		if !exists[id] {
			verr.Add(fmt.Sprintf("%s.%d.id", field, i), i18n.TC(ctx, i18n.KeyProductUnknownImage))
		}
	}
	if verr.HasErrors() {
		return verr
	}

	var position int64
	if err := tx.Model(&models.Media{}).
		Where("owner_type = ? AND owner_id = ?", models.OwnerTypeProduct, productID).
		Count(&position).Error; err != nil {
		return persistence("count product media", err)
	}

	for _, id := range attachmentIDs {
		var media []models.Media
		if err := tx.Where("owner_type = ? AND owner_id = ?", models.OwnerTypeAttachment, id).
			Order("order_column, id").Find(&media).Error; err != nil {
			return persistence("load attachment media", err)
		}
		for _, m := range media {
			position++
			err := tx.Model(&models.Media{}).Where("id = ?", m.ID).Updates(map[string]interface{}{
				"owner_type":   models.OwnerTypeProduct,
				"owner_id":     productID,
				"order_column": position,
			}).Error
			if err != nil {
				return persistence("move media", err)
			}
		}
	}

	if err := tx.Delete(&models.Attachment{}, attachmentIDs).Error; err != nil {
		return persistence("delete attachments", err)
	}
	return nil
}

// Delete removes a media row and its files.
func (s *MediaService) Delete(ctx context.Context, id uint) error {
	var media models.Media
	if err := s.db.WithContext(ctx).First(&media, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrNotFound
		}
		return persistence("load media", err)
	}

	if err := s.db.WithContext(ctx).Delete(&media).Error; err != nil {
		return persistence("delete media", err)
	}
	s.removeFiles(ctx, []models.Media{media})
	return nil
}

// DeleteOwned removes every media item of an owner inside tx and returns
// the rows so callers can drop the files after commit.
func (s *MediaService) DeleteOwned(tx *gorm.DB, ownerType string, ownerID uint) ([]models.Media, error) {
	var media []models.Media
	if err := tx.Where("owner_type = ? AND owner_id = ?", ownerType, ownerID).Find(&media).Error; err != nil {
		return nil, persistence("load media", err)
	}
	if len(media) == 0 {
		return nil, nil
	}
	if err := tx.Delete(&media).Error; err != nil {
		return nil, persistence("delete media", err)
	}
	return media, nil
}

// removeFiles deletes blobs best effort. A leftover file is logged, the
// database row is already gone.
func (s *MediaService) removeFiles(ctx context.Context, media []models.Media) {
	for _, m := range media {
		keys := []string{m.StorageKey}
		for _, c := range m.Conversions {
			keys = append(keys, m.ConversionKey(c))
		}
		for _, key := range keys {
			if err := s.store.Delete(ctx, key); err != nil {
				logrus.WithError(err).WithField("key", key).Warn("Failed to delete media file")
			}
		}
	}
}
