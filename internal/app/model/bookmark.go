package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Bookmark is a saved URL plus its enrichment metadata, owned by one user.
// Optional columns are pointers so that an omitted value stays NULL instead of "".
type Bookmark struct {
	ID              string    `json:"id" gorm:"primaryKey;size:36"`
	UserID          string    `json:"user_id" gorm:"size:64;not null;index"`
	Title           string    `json:"title" gorm:"type:text;not null"`
	URL             string    `json:"url" gorm:"type:text;not null"`
	Description     *string   `json:"description" gorm:"type:text"`
	OGImageURL      *string   `json:"og_image_url" gorm:"type:text"`
	OGImageURLThumb *string   `json:"og_image_url_thumb" gorm:"type:text"`
	FaviconURL      *string   `json:"favicon_url" gorm:"type:text"`
	FaviconURLThumb *string   `json:"favicon_url_thumb" gorm:"type:text"`
	MediaType       *string   `json:"media_type" gorm:"size:16"`
	MediaEmbedID    *string   `json:"media_embed_id" gorm:"size:128"`
	CategoryID      *string   `json:"category_id" gorm:"size:36;index"`
	Category        *Category `json:"category" gorm:"foreignKey:CategoryID"`
	CreatedAt       time.Time `json:"created_at" gorm:"autoCreateTime;index"`
	UpdatedAt       time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// BeforeCreate assigns the immutable identifier.
func (b *Bookmark) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// Bookmark column names used for sparse inserts and ordering.
const (
	ColumnID              = "id"
	ColumnUserID          = "user_id"
	ColumnTitle           = "title"
	ColumnURL             = "url"
	ColumnDescription     = "description"
	ColumnOGImageURL      = "og_image_url"
	ColumnOGImageURLThumb = "og_image_url_thumb"
	ColumnFaviconURL      = "favicon_url"
	ColumnFaviconURLThumb = "favicon_url_thumb"
	ColumnMediaType       = "media_type"
	ColumnMediaEmbedID    = "media_embed_id"
	ColumnCategoryID      = "category_id"
	ColumnCreatedAt       = "created_at"
	ColumnUpdatedAt       = "updated_at"
)
