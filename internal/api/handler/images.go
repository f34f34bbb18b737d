package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/gallery/internal/domain"
	"github.com/timmy/gallery/internal/logger"
	"github.com/timmy/gallery/internal/repository"
)

// ImageStore is the persistence the image handler needs.
type ImageStore interface {
	Create(ctx context.Context, image *domain.Image) error
	ListAfter(ctx context.Context, cursor string, limit int) ([]domain.Image, string, error)
}

// ImageHandler serves the catalog endpoints.
type ImageHandler struct {
	store    ImageStore
	pageSize int
}

// NewImageHandler creates a new image handler.
// Parameters:
//   - store: image persistence.
//   - pageSize: number of images per page.
// Returns:
//   - *ImageHandler: initialized handler.
func NewImageHandler(store ImageStore, pageSize int) *ImageHandler {
	if pageSize <= 0 {
		pageSize = 6
	}
	return &ImageHandler{store: store, pageSize: pageSize}
}

// listImagesResponse keeps the null "after" of the last page on the wire.
type listImagesResponse struct {
	After *string        `json:"after"`
	Data  []domain.Image `json:"data"`
}

// ListImages handles GET /api/images?after=<cursor>.
func (h *ImageHandler) ListImages(c *gin.Context) {
	ctx := c.Request.Context()

	images, next, err := h.store.ListAfter(ctx, c.Query("after"), h.pageSize)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidCursor) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cursor"})
			return
		}
		logger.FromContext(ctx).WithError(err).Error("Failed to list images")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list images"})
		return
	}

	resp := listImagesResponse{Data: images}
	if resp.Data == nil {
		resp.Data = []domain.Image{}
	}
	if next != "" {
		resp.After = &next
	}
	c.JSON(http.StatusOK, resp)
}

// CreateImage handles POST /api/images.
func (h *ImageHandler) CreateImage(c *gin.Context) {
	ctx := c.Request.Context()

	var req domain.ImageMetadata
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	image := &domain.Image{
		Title:       req.Title,
		Description: req.Description,
		URL:         req.URL,
	}
	if err := h.store.Create(ctx, image); err != nil {
		logger.FromContext(ctx).WithError(err).Error("Failed to create image")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create image"})
		return
	}

	logger.FromContext(ctx).WithField("image_id", image.ID).Info("Image registered")
	c.JSON(http.StatusCreated, image)
}
