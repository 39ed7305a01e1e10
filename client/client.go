// Package client talks to the catalog API on behalf of the admin panel and the public site.
//
// Public calls (listing packages, reading one package, the current banner) need no session.
// Admin calls attach the bearer token kept in a Session and fail with ErrNotAuthenticated
// when there is none.
package client

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Vinicius-jafe/bookish-broccoli/rawhttp"
	"github.com/andybalholm/brotli"
)

// ErrNotAuthenticated is returned by admin calls when the session holds no valid token.
var ErrNotAuthenticated = errors.New("not authenticated")

// APIError is a non-2xx answer from the API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api responded %d: %s", e.Status, e.Message)
}

// Client is a catalog API client. It is safe for concurrent use.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	session *Session
	logger  *slog.Logger
	debug   io.Writer
	now     func() time.Time
}

// Option configures a Client.
type Option func(*Client) error

// WithSession sets the session the admin token is read from and stored in.
func WithSession(session *Session) Option {
	return func(c *Client) error {
		if session == nil {
			return errors.New("session is nil")
		}
		c.session = session
		return nil
	}
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) error {
		if httpClient == nil {
			return errors.New("http client is nil")
		}
		c.http = httpClient
		return nil
	}
}

// WithLogger sets the logger. A nil logger discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) error {
		if logger == nil {
			logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		}
		c.logger = logger
		return nil
	}
}

// WithDebug writes every request and response to w.
func WithDebug(w io.Writer) Option {
	return func(c *Client) error {
		c.debug = w
		return nil
	}
}

// New creates a client for the API served at baseURL, e.g. http://localhost:4000.
func New(baseURL string, options ...Option) (*Client, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base url %q: %w", baseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("base url %q must be http or https", baseURL)
	}

	c := &Client{
		baseURL: parsed,
		http:    &http.Client{Timeout: 30 * time.Second},
		session: &Session{},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:     time.Now,
	}
	for _, option := range options {
		if err := option(c); err != nil {
			return nil, fmt.Errorf("applying client option: %w", err)
		}
	}
	return c, nil
}

// Session returns the session used by the client.
func (c *Client) Session() *Session {
	return c.session
}

// endpoint resolves path against the base URL.
func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	u.RawQuery = query.Encode()
	return u.String()
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), body)
	if err != nil {
		return nil, fmt.Errorf("creating %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "br, gzip")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

func (c *Client) newJSONRequest(ctx context.Context, method, path string, payload any) (*http.Request, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding %s body: %w", path, err)
	}
	return c.newRequest(ctx, method, path, nil, bytes.NewReader(encoded), "application/json")
}

// authorize attaches the session token, refusing locally when it is missing or expired.
func (c *Client) authorize(req *http.Request) error {
	token := c.session.Token()
	if !token.Valid(c.now()) {
		return ErrNotAuthenticated
	}
	req.Header.Set("Authorization", "Bearer "+token.Value)
	return nil
}

// do sends req, decodes a 2xx JSON body into out (when not nil) and turns anything else into *APIError.
func (c *Client) do(req *http.Request, out any) error {
	if c.debug != nil {
		if dump, err := rawhttp.DumpRequest(req); err == nil {
			fmt.Fprintf(c.debug, "%s\n\n", dump)
		}
	}

	start := c.now()
	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer res.Body.Close()

	if err := decompress(res); err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	c.logger.Debug("api call",
		"method", req.Method,
		"path", req.URL.Path,
		"status", res.StatusCode,
		"request_id", res.Header.Get("X-Request-ID"),
		"duration", c.now().Sub(start),
	)

	if c.debug != nil {
		if dump, err := rawhttp.DumpResponse(res); err == nil {
			fmt.Fprintf(c.debug, "%s\n\n", dump)
		}
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("reading %s response: %w", req.URL.Path, err)
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return newAPIError(res.StatusCode, body)
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding %s response: %w", req.URL.Path, err)
	}
	return nil
}

// newAPIError reads the message from either error shape the API uses.
func newAPIError(status int, body []byte) *APIError {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	json.Unmarshal(body, &payload)

	message := payload.Error
	if message == "" {
		message = payload.Message
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return &APIError{Status: status, Message: message}
}

// decompress replaces an encoded body with its decoded form and drops Content-Encoding.
func decompress(res *http.Response) error {
	var reader io.Reader
	switch res.Header.Get("Content-Encoding") {
	case "br":
		reader = brotli.NewReader(res.Body)
	case "gzip":
		gzipReader, err := gzip.NewReader(res.Body)
		if err != nil {
			return fmt.Errorf("creating gzip reader: %w", err)
		}
		defer gzipReader.Close()
		reader = gzipReader
	default:
		return nil
	}

	decoded, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("reading %s content: %w", res.Header.Get("Content-Encoding"), err)
	}
	res.Body.Close()

	res.Body = io.NopCloser(bytes.NewReader(decoded))
	res.ContentLength = int64(len(decoded))
	res.Header.Set("Content-Length", fmt.Sprint(len(decoded)))
	res.Header.Del("Content-Encoding")
	return nil
}

// isStatus reports whether err is an *APIError with the given status.
func isStatus(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == status
}
