package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/gallery/internal/domain"
	"github.com/timmy/gallery/internal/logger"
)

// ImageUploader stores gallery images under a key prefix and returns their
// public URL.
type ImageUploader struct {
	storage ObjectStorage
	prefix  string
}

// NewImageUploader creates an uploader writing below prefix.
func NewImageUploader(storage ObjectStorage, prefix string) *ImageUploader {
	return &ImageUploader{storage: storage, prefix: strings.Trim(prefix, "/")}
}

// UploadBinary uploads file under a fresh key and returns its URL.
func (u *ImageUploader) UploadBinary(ctx context.Context, file *domain.File) (string, error) {
	if file == nil {
		return "", fmt.Errorf("no file to upload")
	}

	body, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", file.Name, err)
	}
	defer body.Close()

	key := u.objectKey(file)
	start := time.Now()
	if err := u.storage.Upload(ctx, key, body, file.Size, file.MediaType); err != nil {
		return "", err
	}

	logger.With(logger.Fields{
		logger.FieldSize: file.Size,
		"key":            key,
	}).WithDuration(start).Info(ctx, "Image uploaded")

	return u.storage.GetURL(key), nil
}

// objectKey builds "<prefix>/<yyyy>/<mm>/<uuid><ext>".
func (u *ImageUploader) objectKey(file *domain.File) string {
	now := time.Now().UTC()
	name := uuid.NewString() + extension(file)
	return path.Join(u.prefix, now.Format("2006"), now.Format("01"), name)
}

func extension(file *domain.File) string {
	switch {
	case strings.Contains(file.MediaType, "image/jpeg"):
		return ".jpg"
	case strings.Contains(file.MediaType, "image/png"):
		return ".png"
	case strings.Contains(file.MediaType, "image/gif"):
		return ".gif"
	}
	if ext := path.Ext(file.Name); ext != "" {
		return strings.ToLower(ext)
	}
	return ""
}
