package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/Vinicius-jafe/bookish-broccoli/auth"
	"github.com/Vinicius-jafe/bookish-broccoli/banner"
	"github.com/Vinicius-jafe/bookish-broccoli/db"
	"github.com/Vinicius-jafe/bookish-broccoli/hooks"
	"github.com/Vinicius-jafe/bookish-broccoli/upload"
	"github.com/gin-gonic/gin"
)

const (
	adminEmail    = "admin@agencia.com"
	adminPassword = "s3nha-forte"
)

type testServer struct {
	server    *Server
	repo      *db.Repository
	uploadDir string
	token     string
}

type serverOption func(cfg *Config)

func withHooks(t *testing.T, code string) serverOption {
	return func(cfg *Config) {
		runner, err := hooks.New("test.lua", code, nil)
		if err != nil {
			t.Fatalf("hooks.New() failed: %v", err)
		}
		cfg.Hooks = runner
	}
}

func withURLs(publicURL, apiURL string) serverOption {
	return func(cfg *Config) {
		cfg.PublicURL = publicURL
		cfg.APIURL = apiURL
	}
}

func inProduction() serverOption {
	return func(cfg *Config) {
		cfg.Production = true
	}
}

func setupTestServer(t *testing.T, options ...serverOption) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	dbConn, err := db.New(filepath.Join(dir, "catalog.db"))
	if err != nil {
		t.Fatalf("db.New() failed: %v", err)
	}
	repo := db.NewCatalogRepo(dbConn, nil)
	t.Cleanup(func() { repo.Close() })

	uploadDir := filepath.Join(dir, "uploads")
	authService, err := auth.NewService(repo, []byte("test-secret"), time.Hour, nil)
	if err != nil {
		t.Fatalf("auth.NewService() failed: %v", err)
	}
	if _, err := authService.SeedAdmin(context.Background(), adminEmail, adminPassword); err != nil {
		t.Fatalf("SeedAdmin() failed: %v", err)
	}

	cfg := Config{
		Packages:  repo,
		Stats:     repo,
		Logs:      repo,
		Banner:    banner.NewStore(filepath.Join(uploadDir, "banners"), "/uploads/banners", 5<<20, repo, nil),
		Uploader:  upload.New(upload.PackageImages(uploadDir, 5<<20), nil),
		Auth:      authService,
		PublicURL: "https://agencia.example",
		APIURL:    "https://api.agencia.example",
		UploadDir: uploadDir,
	}
	for _, option := range options {
		option(&cfg)
	}

	server, err := New(cfg)
	if err != nil {
		t.Fatalf("api.New() failed: %v", err)
	}

	token, err := authService.Login(context.Background(), adminEmail, adminPassword)
	if err != nil {
		t.Fatalf("Login() failed: %v", err)
	}

	return &testServer{server: server, repo: repo, uploadDir: uploadDir, token: token.Value}
}

func (ts *testServer) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	return ts.do(t, httptest.NewRequest(http.MethodGet, path, nil))
}

// authed sends a request with the admin token.
func (ts *testServer) authed(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encoding body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+ts.token)
	return ts.do(t, req)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
	return out
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(0, 0, color.RGBA{G: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encoding png: %v", err)
	}
	return buf.Bytes()
}

type formPart struct {
	name string
	data []byte
}

// multipartRequest builds an authenticated multipart request with every part under field.
func (ts *testServer) multipartRequest(t *testing.T, path, field string, parts ...formPart) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for _, part := range parts {
		w, err := writer.CreateFormFile(field, part.name)
		if err != nil {
			t.Fatalf("creating form file: %v", err)
		}
		w.Write(part.data)
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+ts.token)
	return req
}

func assertStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("\nwanted:\n%d\ngot:\n%d %s", want, rec.Code, rec.Body.String())
	}
}
