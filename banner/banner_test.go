package banner

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Vinicius-jafe/bookish-broccoli/domain"
	"github.com/Vinicius-jafe/bookish-broccoli/upload"
)

// memoryRepo is an in-memory domain.BannerRepository.
type memoryRepo struct {
	mu     sync.Mutex
	banner *domain.Banner
}

func (r *memoryRepo) GetBanner() (*domain.Banner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.banner == nil {
		return nil, domain.ErrNoBanner
	}
	copied := *r.banner
	return &copied, nil
}

func (r *memoryRepo) SetBanner(filename string, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.banner = &domain.Banner{Filename: filename, UpdatedAt: updatedAt}
	return nil
}

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	img.Set(2, 2, color.RGBA{B: 255, A: 255})
	return img
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage()); err != nil {
		t.Fatalf("encoding png: %v", err)
	}
	return buf.Bytes()
}

func jpegBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, testImage(), nil); err != nil {
		t.Fatalf("encoding jpeg: %v", err)
	}
	return buf.Bytes()
}

func formFile(t *testing.T, name string, data []byte) *multipart.FileHeader {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("banner", name)
	if err != nil {
		t.Fatalf("creating form file: %v", err)
	}
	part.Write(data)
	writer.Close()

	form, err := multipart.NewReader(&body, writer.Boundary()).ReadForm(32 << 20)
	if err != nil {
		t.Fatalf("reading form: %v", err)
	}
	t.Cleanup(func() { form.RemoveAll() })
	return form.File["banner"][0]
}

func bannerFiles(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("reading dir: %v", err)
	}
	var names []string
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), Prefix) {
			names = append(names, entry.Name())
		}
	}
	return names
}

func TestStore_Replace(t *testing.T) {
	t.Run("should leave exactly one banner after two replacements", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "banners")
		store := NewStore(dir, "/uploads/banners", 5<<20, &memoryRepo{}, nil)
		ctx := context.Background()

		if _, err := store.Replace(ctx, formFile(t, "primeiro.png", pngBytes(t))); err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		second, err := store.Replace(ctx, formFile(t, "segundo.jpg", jpegBytes(t)))
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		got := bannerFiles(t, dir)
		if len(got) != 1 || got[0] != "banner.jpg" {
			t.Fatalf("\nwanted:\n[banner.jpg]\ngot:\n%v", got)
		}
		if second.URL != "/uploads/banners/banner.jpg" {
			t.Fatalf("\nwanted:\n%s\ngot:\n%s", "/uploads/banners/banner.jpg", second.URL)
		}

		current, err := store.Current(ctx)
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if current.Filename != "banner.jpg" {
			t.Fatalf("\nwanted:\nbanner.jpg\ngot:\n%s", current.Filename)
		}
	})

	t.Run("should reject non-images and keep the current banner", func(t *testing.T) {
		dir := t.TempDir()
		store := NewStore(dir, "/uploads/banners", 5<<20, &memoryRepo{}, nil)
		ctx := context.Background()

		if _, err := store.Replace(ctx, formFile(t, "banner.png", pngBytes(t))); err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		_, err := store.Replace(ctx, formFile(t, "banner.txt", []byte("not an image")))
		if !errors.Is(err, upload.ErrInvalidType) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", upload.ErrInvalidType, err)
		}

		got := bannerFiles(t, dir)
		if len(got) != 1 || got[0] != "banner.png" {
			t.Fatalf("\nwanted:\n[banner.png]\ngot:\n%v", got)
		}
	})

	t.Run("should reject oversized banners", func(t *testing.T) {
		data := pngBytes(t)
		store := NewStore(t.TempDir(), "/uploads/banners", int64(len(data)-1), &memoryRepo{}, nil)

		_, err := store.Replace(context.Background(), formFile(t, "banner.png", data))
		if !errors.Is(err, upload.ErrTooLarge) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", upload.ErrTooLarge, err)
		}
	})

	t.Run("should not leave temp files behind", func(t *testing.T) {
		dir := t.TempDir()
		store := NewStore(dir, "/uploads/banners", 5<<20, &memoryRepo{}, nil)

		if _, err := store.Replace(context.Background(), formFile(t, "b.png", pngBytes(t))); err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		entries, _ := os.ReadDir(dir)
		if len(entries) != 1 {
			t.Fatalf("\nwanted:\n1 entry\ngot:\n%d", len(entries))
		}
	})
}

func TestStore_Current(t *testing.T) {
	t.Run("should return ErrNoBanner before any upload", func(t *testing.T) {
		store := NewStore(t.TempDir(), "/uploads/banners", 5<<20, &memoryRepo{}, nil)

		if _, err := store.Current(context.Background()); !errors.Is(err, domain.ErrNoBanner) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", domain.ErrNoBanner, err)
		}
	})

	t.Run("should return ErrNoBanner when the file disappeared", func(t *testing.T) {
		repo := &memoryRepo{}
		repo.SetBanner("banner.png", time.Now())
		store := NewStore(t.TempDir(), "/uploads/banners", 5<<20, repo, nil)

		if _, err := store.Current(context.Background()); !errors.Is(err, domain.ErrNoBanner) {
			t.Fatalf("\nwanted:\n%v\ngot:\n%v", domain.ErrNoBanner, err)
		}
	})
}

func TestStore_Sync(t *testing.T) {
	t.Run("should adopt the newest legacy banner file", func(t *testing.T) {
		dir := t.TempDir()
		old := filepath.Join(dir, "banner.gif")
		newer := filepath.Join(dir, "banner.webp")
		os.WriteFile(old, []byte("old"), 0644)
		os.WriteFile(newer, []byte("new"), 0644)
		past := time.Now().Add(-time.Hour)
		os.Chtimes(old, past, past)

		repo := &memoryRepo{}
		store := NewStore(dir, "/uploads/banners", 5<<20, repo, nil)

		if err := store.Sync(context.Background()); err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}

		got, err := repo.GetBanner()
		if err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		if got.Filename != "banner.webp" {
			t.Fatalf("\nwanted:\nbanner.webp\ngot:\n%s", got.Filename)
		}
	})

	t.Run("should keep an existing pointer", func(t *testing.T) {
		dir := t.TempDir()
		os.WriteFile(filepath.Join(dir, "banner.gif"), []byte("x"), 0644)

		repo := &memoryRepo{}
		repo.SetBanner("banner.png", time.Now())
		store := NewStore(dir, "/uploads/banners", 5<<20, repo, nil)

		if err := store.Sync(context.Background()); err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
		got, _ := repo.GetBanner()
		if got.Filename != "banner.png" {
			t.Fatalf("\nwanted:\nbanner.png\ngot:\n%s", got.Filename)
		}
	})

	t.Run("should tolerate a missing directory", func(t *testing.T) {
		store := NewStore(filepath.Join(t.TempDir(), "none"), "/uploads/banners", 5<<20, &memoryRepo{}, nil)

		if err := store.Sync(context.Background()); err != nil {
			t.Fatalf("\nwanted:\nnil\ngot:\n%v", err)
		}
	})
}
