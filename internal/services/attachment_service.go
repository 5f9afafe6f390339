package services

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/storefront-backend/internal/apperrors"
	"github.com/javajoker/storefront-backend/internal/config"
	"github.com/javajoker/storefront-backend/internal/database"
	"github.com/javajoker/storefront-backend/internal/i18n"
	"github.com/javajoker/storefront-backend/internal/models"
)

const attachmentImageField = "image"

// AttachmentService stages uploaded images until a product claims them.
type AttachmentService struct {
	db      *gorm.DB
	store   FileStore
	media   *MediaService
	maxSize int64 // bytes
}

type UploadedImage struct {
	SessionID string
	FileName  string
	Data      []byte
}

func NewAttachmentService(db *gorm.DB, store FileStore, media *MediaService, cfg config.StorageConfig) *AttachmentService {
	return &AttachmentService{
		db:      db,
		store:   store,
		media:   media,
		maxSize: cfg.MaxImageSize * 1024,
	}
}

func (s *AttachmentService) MaxSizeKB() int64 {
	return s.maxSize / 1024
}

// Store validates the image, writes it with a thumbnail conversion and
// records it under a new attachment.
func (s *AttachmentService) Store(ctx context.Context, upload UploadedImage) (*models.Attachment, error) {
	if len(upload.Data) == 0 {
		return nil, apperrors.FieldError(attachmentImageField, i18n.TC(ctx, i18n.KeyFileRequired))
	}
	if int64(len(upload.Data)) > s.maxSize {
		return nil, apperrors.FieldError(attachmentImageField, i18n.TC(ctx, i18n.KeyFileTooLarge, s.MaxSizeKB()))
	}
	mimeType, ext, ok := DetectImageType(upload.Data)
	if !ok {
		return nil, apperrors.FieldError(attachmentImageField, i18n.TC(ctx, i18n.KeyFileInvalidType))
	}

	key := GenerateStorageKey(models.OwnerTypeAttachment, "image"+ext)
	if err := s.store.Put(ctx, key, mimeType, upload.Data); err != nil {
		return nil, err
	}
	written := []string{key}

	conversions := pq.StringArray{}
	if thumb, err := MakeThumbnail(upload.Data, mimeType); err != nil {
		logrus.WithError(err).WithField("key", key).Warn("Failed to build thumbnail")
	} else {
		thumbKey := models.ConversionKey(key, ThumbnailConversion)
		if err := s.store.Put(ctx, thumbKey, mimeType, thumb); err != nil {
			logrus.WithError(err).WithField("key", thumbKey).Warn("Failed to store thumbnail")
		} else {
			conversions = append(conversions, ThumbnailConversion)
			written = append(written, thumbKey)
		}
	}

	name := strings.TrimSuffix(filepath.Base(upload.FileName), filepath.Ext(upload.FileName))
	if name == "" || name == "." {
		name = "image"
	}

	attachment := &models.Attachment{SessionID: upload.SessionID}
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		if err := tx.Create(attachment).Error; err != nil {
			return persistence("create attachment", err)
		}
		media := models.Media{
			OwnerType:      models.OwnerTypeAttachment,
			OwnerID:        attachment.ID,
			CollectionName: "default",
			Name:           name,
			FileName:       name + ext,
			MimeType:       mimeType,
			Disk:           s.store.Disk(),
			StorageKey:     key,
			Size:           int64(len(upload.Data)),
			Conversions:    conversions,
			OrderColumn:    1,
		}
		if err := tx.Create(&media).Error; err != nil {
			return persistence("create media", err)
		}
		attachment.Media = []models.Media{media}
		return nil
	})
	if err != nil {
		for _, k := range written {
			if derr := s.store.Delete(ctx, k); derr != nil {
				logrus.WithError(derr).WithField("key", k).Warn("Failed to clean up media file")
			}
		}
		return nil, err
	}

	s.media.Present(attachment.Media)
	return attachment, nil
}

// Destroy deletes an attachment together with its media and files.
func (s *AttachmentService) Destroy(ctx context.Context, id uint) error {
	var removed []models.Media
	err := database.WithTransaction(s.db.WithContext(ctx), func(tx *gorm.DB) error {
		var attachment models.Attachment
		if err := tx.First(&attachment, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrNotFound
			}
			return persistence("load attachment", err)
		}

		media, err := s.media.DeleteOwned(tx, models.OwnerTypeAttachment, attachment.ID)
		if err != nil {
			return err
		}
		removed = media

		if err := tx.Delete(&attachment).Error; err != nil {
			return persistence("delete attachment", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.media.removeFiles(ctx, removed)
	return nil
}
