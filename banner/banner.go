// Package banner keeps the single promotional image shown on the homepage.
//
// A new banner is written to a hidden temporary file and renamed into place as
// banner<ext>, then recorded as the current one in the BannerRepository. Readers only
// follow that pointer; the directory is never scanned to find the current banner.
package banner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Vinicius-jafe/bookish-broccoli/domain"
	"github.com/Vinicius-jafe/bookish-broccoli/upload"
)

// Prefix is the file name prefix every banner file carries.
const Prefix = "banner"

// ErrNotSaved is returned when the renamed banner cannot be found on disk afterwards.
var ErrNotSaved = errors.New("banner file was not saved")

// Store replaces and serves the current banner.
type Store struct {
	dir       string
	urlPrefix string
	maxSize   int64
	repo      domain.BannerRepository
	logger    *slog.Logger
	now       func() time.Time

	mu sync.Mutex // serializes Replace and Sync
}

// NewStore creates a Store writing into dir and publishing files under urlPrefix.
// A nil logger discards output.
func NewStore(dir, urlPrefix string, maxSize int64, repo domain.BannerRepository, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{
		dir:       dir,
		urlPrefix: urlPrefix,
		maxSize:   maxSize,
		repo:      repo,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// MaxSize returns the size ceiling for a banner file in bytes.
func (s *Store) MaxSize() int64 {
	return s.maxSize
}

// Current returns the banner recorded by the last successful Replace.
// It returns domain.ErrNoBanner when none was recorded or its file has gone missing.
func (s *Store) Current(ctx context.Context) (*domain.Banner, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	banner, err := s.repo.GetBanner()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(filepath.Join(s.dir, banner.Filename)); err != nil {
		s.logger.Warn("banner pointer references a missing file", "file", banner.Filename, "error", err)
		return nil, domain.ErrNoBanner
	}

	banner.URL = s.url(banner.Filename)
	return banner, nil
}

// Replace validates file, moves it into place as the current banner and removes every
// older banner file. Cleanup failures are logged and do not fail the call.
func (s *Store) Replace(ctx context.Context, file *multipart.FileHeader) (*domain.Banner, error) {
	if file == nil {
		return nil, upload.ErrNoFiles
	}
	if s.maxSize > 0 && file.Size > s.maxSize {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit is %d", upload.ErrTooLarge, file.Filename, file.Size, s.maxSize)
	}

	mtype, err := upload.Sniff(file)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(mtype.String(), "image/") {
		return nil, fmt.Errorf("%w: %s is %s", upload.ErrInvalidType, file.Filename, mtype.String())
	}
	name := Prefix + upload.Extension(file.Filename, mtype)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return nil, fmt.Errorf("creating banner dir %s: %w", s.dir, err)
	}

	if err := s.writeAtomic(file, name); err != nil {
		return nil, err
	}

	if _, err := os.Stat(filepath.Join(s.dir, name)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotSaved, err)
	}

	updatedAt := s.now()
	if err := s.repo.SetBanner(name, updatedAt); err != nil {
		return nil, fmt.Errorf("recording banner %s: %w", name, err)
	}

	s.removeStale(name)

	s.logger.Info("banner replaced", "file", name, "type", mtype.String())
	return &domain.Banner{
		Filename:  name,
		URL:       s.url(name),
		UpdatedAt: updatedAt,
	}, nil
}

// Sync adopts a banner file left by an earlier release that did not record a pointer.
// The most recently modified banner file wins. It is a no-op when a pointer already exists.
func (s *Store) Sync(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := s.repo.GetBanner()
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrNoBanner) {
		return fmt.Errorf("checking banner pointer: %w", err)
	}

	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading banner dir %s: %w", s.dir, err)
	}

	var newest os.FileInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), Prefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if newest == nil || info.ModTime().After(newest.ModTime()) {
			newest = info
		}
	}
	if newest == nil {
		return nil
	}

	if err := s.repo.SetBanner(newest.Name(), newest.ModTime().UTC()); err != nil {
		return fmt.Errorf("adopting banner %s: %w", newest.Name(), err)
	}
	s.logger.Info("adopted existing banner", "file", newest.Name())
	return nil
}

func (s *Store) writeAtomic(file *multipart.FileHeader, name string) error {
	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("opening %s: %w", file.Filename, err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("creating temp banner: %w", err)
	}
	tmpName := tmp.Name()

	fail := func(err error) error {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}

	if _, err := io.Copy(tmp, src); err != nil {
		return fail(fmt.Errorf("writing temp banner: %w", err))
	}
	if err := tmp.Sync(); err != nil {
		return fail(fmt.Errorf("syncing temp banner: %w", err))
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp banner: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("setting banner permissions: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("moving banner into place: %w", err)
	}
	return nil
}

// removeStale deletes every banner file other than keep.
func (s *Store) removeStale(keep string) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Warn("listing banner dir for cleanup", "error", err)
		return
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == keep || !strings.HasPrefix(name, Prefix) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
			s.logger.Warn("removing old banner", "file", name, "error", err)
		}
	}
}

func (s *Store) url(name string) string {
	return path.Join(s.urlPrefix, name)
}
