package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Vinicius-jafe/bookish-broccoli/domain"
	"github.com/gabriel-vasile/mimetype"
)

// filterQuery encodes the filter the way GET /api/packages reads it.
func filterQuery(filter domain.PackageFilter) url.Values {
	query := url.Values{}
	if filter.Type != "" {
		query.Set("tipo", string(filter.Type))
	}
	if filter.Region != "" {
		query.Set("region", filter.Region)
	}
	if filter.Month != "" {
		query.Set("month", filter.Month)
	}
	if filter.Term != "" {
		query.Set("q", filter.Term)
	}
	if filter.MinDuration > 0 {
		query.Set("minDuration", strconv.Itoa(filter.MinDuration))
	}
	if filter.MaxDuration > 0 {
		query.Set("maxDuration", strconv.Itoa(filter.MaxDuration))
	}
	if filter.FeaturedOnly {
		query.Set("featured", "true")
	}
	return query
}

// ListPackages returns the packages matching filter. A zero filter returns the whole catalog.
func (c *Client) ListPackages(ctx context.Context, filter domain.PackageFilter) ([]*domain.Package, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/packages", filterQuery(filter), nil, "")
	if err != nil {
		return nil, err
	}

	packages := []*domain.Package{}
	if err := c.do(req, &packages); err != nil {
		return nil, fmt.Errorf("listing packages: %w", err)
	}
	for _, pkg := range packages {
		pkg.Normalize()
	}
	return packages, nil
}

// GetPackageBySlug returns the package published under slug, or nil when there is none.
func (c *Client) GetPackageBySlug(ctx context.Context, slug string) (*domain.Package, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/packages/"+url.PathEscape(slug), nil, nil, "")
	if err != nil {
		return nil, err
	}

	var pkg domain.Package
	if err := c.do(req, &pkg); err != nil {
		if isStatus(err, http.StatusNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting package %s: %w", slug, err)
	}
	pkg.Normalize()
	return &pkg, nil
}

type upsertResponse struct {
	OK   bool   `json:"ok"`
	Slug string `json:"slug"`
	ID   string `json:"id"`
}

// UpsertPackage creates pkg, or replaces the stored package with the same ID.
// The ID and slug resolved by the server are written back into pkg.
func (c *Client) UpsertPackage(ctx context.Context, pkg *domain.Package) (string, error) {
	req, err := c.newJSONRequest(ctx, http.MethodPost, "/api/packages", pkg)
	if err != nil {
		return "", err
	}
	if err := c.authorize(req); err != nil {
		return "", err
	}

	var saved upsertResponse
	if err := c.do(req, &saved); err != nil {
		return "", fmt.Errorf("saving package %q: %w", pkg.Title, err)
	}
	pkg.ID = saved.ID
	pkg.Slug = saved.Slug
	return saved.Slug, nil
}

// DeletePackage removes the package with id. Unknown ids are not an error.
func (c *Client) DeletePackage(ctx context.Context, id string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/api/packages/"+url.PathEscape(id), nil, nil, "")
	if err != nil {
		return err
	}
	if err := c.authorize(req); err != nil {
		return err
	}

	if err := c.do(req, nil); err != nil {
		return fmt.Errorf("deleting package %s: %w", id, err)
	}
	return nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// multipartFiles builds a form body with every file in paths under field.
// Each part carries the sniffed content type of its file.
func multipartFiles(field string, paths ...string) (*bytes.Buffer, string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	for _, path := range paths {
		if err := addFilePart(writer, field, path); err != nil {
			return nil, "", err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart body: %w", err)
	}
	return &body, writer.FormDataContentType(), nil
}

func addFilePart(writer *multipart.Writer, field, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	mtype, err := mimetype.DetectReader(file)
	if err != nil {
		return fmt.Errorf("detecting type of %s: %w", path, err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewinding %s: %w", path, err)
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field), quoteEscaper.Replace(filepath.Base(path))))
	header.Set("Content-Type", mtype.String())

	part, err := writer.CreatePart(header)
	if err != nil {
		return fmt.Errorf("creating part for %s: %w", path, err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("copying %s: %w", path, err)
	}
	return nil
}

// UploadPackageImages uploads the image files at paths and returns the URL paths to store in
// a package's images list, in the same order.
func (c *Client) UploadPackageImages(ctx context.Context, paths ...string) ([]string, error) {
	body, contentType, err := multipartFiles("images", paths...)
	if err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/packages/upload-images", nil, body, contentType)
	if err != nil {
		return nil, err
	}
	if err := c.authorize(req); err != nil {
		return nil, err
	}

	var uploaded struct {
		OK    bool     `json:"ok"`
		Paths []string `json:"paths"`
	}
	if err := c.do(req, &uploaded); err != nil {
		return nil, fmt.Errorf("uploading images: %w", err)
	}
	return uploaded.Paths, nil
}

// Stats returns the catalog counters shown on the admin dashboard.
func (c *Client) Stats(ctx context.Context) (*domain.CatalogStats, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/admin/stats", nil, nil, "")
	if err != nil {
		return nil, err
	}
	if err := c.authorize(req); err != nil {
		return nil, err
	}

	var stats domain.CatalogStats
	if err := c.do(req, &stats); err != nil {
		return nil, fmt.Errorf("loading stats: %w", err)
	}
	return &stats, nil
}

// AuditLogs returns up to limit audit entries, newest first.
func (c *Client) AuditLogs(ctx context.Context, limit int) ([]*domain.Log, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	req, err := c.newRequest(ctx, http.MethodGet, "/api/admin/logs", query, nil, "")
	if err != nil {
		return nil, err
	}
	if err := c.authorize(req); err != nil {
		return nil, err
	}

	entries := []*domain.Log{}
	if err := c.do(req, &entries); err != nil {
		return nil, fmt.Errorf("loading audit logs: %w", err)
	}
	return entries, nil
}
