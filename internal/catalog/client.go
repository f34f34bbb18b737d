// Package catalog talks to the image catalog API: it reads pages of the
// gallery and registers newly uploaded images.
package catalog

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/gallery/internal/domain"
)

const imagesPath = "/api/images"

// Client is a resty-based catalog API client.
type Client struct {
	client *resty.Client
}

// Config holds configuration for the catalog client.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// NewClient creates a catalog client.
// Parameters:
//   - cfg: base URL and request timeout.
// Returns:
//   - *Client: initialized client.
func NewClient(cfg *Config) *Client {
	client := resty.New()
	client.SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/"))
	client.SetHeader("Content-Type", "application/json")
	client.SetHeader("Accept", "application/json")

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client.SetTimeout(timeout)

	return &Client{client: client}
}

// listResponse is the wire shape of GET /api/images.
type listResponse struct {
	After *string        `json:"after"`
	Data  []domain.Image `json:"data"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// FetchPage reads the page after cursor; an empty cursor reads the first page.
func (c *Client) FetchPage(ctx context.Context, cursor string) (domain.Page, error) {
	var resp listResponse
	var apiErr errorResponse

	req := c.client.R().
		SetContext(ctx).
		SetResult(&resp).
		SetError(&apiErr)
	if cursor != "" {
		req.SetQueryParam("after", cursor)
	}

	httpResp, err := req.Get(imagesPath)
	if err != nil {
		return domain.Page{}, fmt.Errorf("failed to call catalog API: %w", err)
	}
	if httpResp.StatusCode() != http.StatusOK {
		return domain.Page{}, statusError(httpResp, apiErr)
	}

	page := domain.Page{Items: resp.Data}
	if resp.After != nil {
		page.NextCursor = *resp.After
	}
	if page.Items == nil {
		page.Items = []domain.Image{}
	}
	return page, nil
}

// RegisterMetadata registers an uploaded image and returns the stored record.
func (c *Client) RegisterMetadata(ctx context.Context, meta domain.ImageMetadata) (*domain.Image, error) {
	var image domain.Image
	var apiErr errorResponse

	httpResp, err := c.client.R().
		SetContext(ctx).
		SetBody(meta).
		SetResult(&image).
		SetError(&apiErr).
		Post(imagesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to call catalog API: %w", err)
	}
	if httpResp.StatusCode() != http.StatusCreated && httpResp.StatusCode() != http.StatusOK {
		return nil, statusError(httpResp, apiErr)
	}
	if image.ID == "" {
		return nil, fmt.Errorf("catalog API returned an image without id")
	}
	return &image, nil
}

func statusError(resp *resty.Response, apiErr errorResponse) error {
	if apiErr.Error != "" {
		return fmt.Errorf("catalog API error: status %d: %s", resp.StatusCode(), apiErr.Error)
	}
	return fmt.Errorf("catalog API error: status %d", resp.StatusCode())
}
