package client

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"time"

	"github.com/Vinicius-jafe/bookish-broccoli/domain"
)

type bannerResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	ImageURL  string    `json:"imageUrl"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CurrentBanner returns the homepage banner, or nil when none has been uploaded.
// The server answers {"success": false} in that case; a 404 is treated the same.
func (c *Client) CurrentBanner(ctx context.Context) (*domain.Banner, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/banner", nil, nil, "")
	if err != nil {
		return nil, err
	}

	var current bannerResponse
	if err := c.do(req, &current); err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting banner: %w", err)
	}
	if !current.Success || current.ImageURL == "" {
		return nil, nil
	}
	return &domain.Banner{
		Filename:  path.Base(current.ImageURL),
		URL:       current.ImageURL,
		UpdatedAt: current.UpdatedAt,
	}, nil
}

// ReplaceBanner uploads the image at filePath as the new banner and returns its URL.
func (c *Client) ReplaceBanner(ctx context.Context, filePath string) (string, error) {
	body, contentType, err := multipartFiles("banner", filePath)
	if err != nil {
		return "", err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/banner", nil, body, contentType)
	if err != nil {
		return "", err
	}
	if err := c.authorize(req); err != nil {
		return "", err
	}

	var replaced bannerResponse
	if err := c.do(req, &replaced); err != nil {
		return "", fmt.Errorf("replacing banner: %w", err)
	}
	return replaced.ImageURL, nil
}
