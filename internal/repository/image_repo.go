package repository

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/timmy/gallery/internal/domain"
	"gorm.io/gorm"
)

// ErrInvalidCursor is returned for cursors this repository did not issue.
var ErrInvalidCursor = errors.New("invalid cursor")

// ImageRepository handles image catalog operations.
type ImageRepository struct {
	db *gorm.DB
}

// NewImageRepository creates a new ImageRepository.
func NewImageRepository(db *gorm.DB) *ImageRepository {
	return &ImageRepository{db: db}
}

// Create inserts a new image record, assigning its ID and timestamp.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - image: image record to persist.
// Returns:
//   - error: non-nil if the insert fails.
func (r *ImageRepository) Create(ctx context.Context, image *domain.Image) error {
	return r.db.WithContext(ctx).Create(image).Error
}

// GetByID retrieves an image by its ID.
func (r *ImageRepository) GetByID(ctx context.Context, id string) (*domain.Image, error) {
	var image domain.Image
	if err := r.db.WithContext(ctx).First(&image, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &image, nil
}

// ListAfter returns up to limit images following cursor in (ts, id) order,
// plus the cursor of the next page or "" when the listing is exhausted.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - cursor: value returned by a previous call, or "" for the first page.
//   - limit: page size.
// Returns:
//   - []domain.Image: page items.
//   - string: next cursor.
//   - error: ErrInvalidCursor for malformed cursors, or a query error.
func (r *ImageRepository) ListAfter(ctx context.Context, cursor string, limit int) ([]domain.Image, string, error) {
	if limit <= 0 {
		return nil, "", fmt.Errorf("limit must be positive")
	}

	query := r.db.WithContext(ctx).Model(&domain.Image{})
	if cursor != "" {
		ts, id, err := DecodeCursor(cursor)
		if err != nil {
			return nil, "", err
		}
		query = query.Where("ts > ? OR (ts = ? AND id > ?)", ts, ts, id)
	}

	var images []domain.Image
	if err := query.Order("ts ASC").Order("id ASC").Limit(limit + 1).Find(&images).Error; err != nil {
		return nil, "", fmt.Errorf("failed to list images: %w", err)
	}

	next := ""
	if len(images) > limit {
		images = images[:limit]
		last := images[len(images)-1]
		next = EncodeCursor(last.Ts, last.ID)
	}
	return images, next, nil
}

// Count returns the number of stored images.
func (r *ImageRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.Image{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// EncodeCursor builds the opaque cursor for the position after (ts, id).
func EncodeCursor(ts int64, id string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatInt(ts, 10) + ":" + id))
}

// DecodeCursor reverses EncodeCursor.
func DecodeCursor(cursor string) (int64, string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, "", ErrInvalidCursor
	}
	tsPart, id, ok := strings.Cut(string(raw), ":")
	if !ok || id == "" {
		return 0, "", ErrInvalidCursor
	}
	ts, err := strconv.ParseInt(tsPart, 10, 64)
	if err != nil {
		return 0, "", ErrInvalidCursor
	}
	return ts, id, nil
}
