package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Image represents one gallery entry.
// The JSON shape is the catalog API wire format; Ts is the creation time in
// Unix microseconds and is the only field used for ordering.
type Image struct {
	ID          string    `gorm:"type:text;primaryKey" json:"id"`
	Title       string    `gorm:"type:text;not null" json:"title"`
	Description string    `gorm:"type:text;not null" json:"description"`
	URL         string    `gorm:"type:text;not null" json:"url"`
	Ts          int64     `gorm:"not null;index:idx_images_ts" json:"ts"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}

// TableName returns the database table name for Image.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (Image) TableName() string {
	return "images"
}

// BeforeCreate assigns an ID and timestamp to records that do not have one yet.
func (i *Image) BeforeCreate(_ *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	if i.Ts == 0 {
		i.Ts = time.Now().UnixMicro()
	}
	return nil
}

// CreatedTime converts Ts into a time.Time.
func (i Image) CreatedTime() time.Time {
	return time.UnixMicro(i.Ts)
}

// ImageMetadata is the payload registered with the catalog after the binary
// has been stored.
type ImageMetadata struct {
	URL         string `json:"url" binding:"required,url"`
	Title       string `json:"title" binding:"required,min=2,max=20"`
	Description string `json:"description" binding:"required,min=1,max=65"`
}

// Page is one fetch result. An empty NextCursor marks the end of the collection.
type Page struct {
	Items      []Image
	NextCursor string
}

// HasNext reports whether another page follows this one.
func (p Page) HasNext() bool {
	return p.NextCursor != ""
}
