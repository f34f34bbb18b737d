package storage

import (
	"context"
	"io"
)

// ObjectStorage defines the object storage operations the gallery needs.
type ObjectStorage interface {
	// Upload stores an object under key
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// GetURL returns the public URL of an object
	GetURL(key string) string
}
