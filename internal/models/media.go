// internal/models/media.go
package models

import (
	"github.com/lib/pq"
)

// Attachment is a staging owner for an uploaded image until a product
// claims it.
type Attachment struct {
	BaseModel
	SessionID string  `json:"session_id" gorm:"size:255;index"`
	Media     []Media `json:"media,omitempty" gorm:"polymorphic:Owner;polymorphicValue:attachments"`
}

type Media struct {
	BaseModel
	OwnerType      string         `json:"owner_type" gorm:"size:50;not null;index:idx_media_owner"`
	OwnerID        uint           `json:"owner_id" gorm:"not null;index:idx_media_owner"`
	CollectionName string         `json:"collection_name" gorm:"size:100;not null;default:'default'"`
	Name           string         `json:"name" gorm:"size:255;not null"`
	FileName       string         `json:"file_name" gorm:"size:255;not null"`
	MimeType       string         `json:"mime_type" gorm:"size:100"`
	Disk           string         `json:"disk" gorm:"size:20;not null"`
	StorageKey     string         `json:"-" gorm:"size:512;not null"`
	Size           int64          `json:"size"`
	Conversions    pq.StringArray `json:"conversions" gorm:"type:text[]"`
	OrderColumn    int            `json:"order_column" gorm:"default:0"`

	// Computed
	OriginalURL  string `json:"original" gorm:"-"`
	ThumbnailURL string `json:"thumbnail,omitempty" gorm:"-"`
}

func (Media) TableName() string {
	return "media"
}

// ConversionKey derives the storage key of a named conversion.
func (m *Media) ConversionKey(conversion string) string {
	return ConversionKey(m.StorageKey, conversion)
}

func (m *Media) HasConversion(conversion string) bool {
	for _, c := range m.Conversions {
		if c == conversion {
			return true
		}
	}
	return false
}

func ConversionKey(key, conversion string) string {
	dot := len(key)
	for i := len(key) - 1; i >= 0 && key[i] != '/'; i-- {
		if key[i] == '.' {
			dot = i
			break
		}
	}
	return key[:dot] + "-" + conversion + key[dot:]
}
