// Package upload validates multipart image uploads and stores them on disk under
// collision-free names.
//
// A request is accepted or rejected as a whole: every file is checked against the
// Policy before the first byte is written, so a rejected request never leaves files behind.
package upload

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	// ErrInvalidType is returned when a file's detected content type is not allowed.
	ErrInvalidType = errors.New("invalid file type")
	// ErrTooLarge is returned when a file exceeds the size ceiling.
	ErrTooLarge = errors.New("file too large")
	// ErrNoFiles is returned when the request carries no file under the expected field.
	ErrNoFiles = errors.New("no files uploaded")
	// ErrTooManyFiles is returned when the request carries more files than allowed.
	ErrTooManyFiles = errors.New("too many files")
)

// Policy describes what an upload endpoint accepts and where accepted files go.
type Policy struct {
	Field        string   // Multipart field name, also used as the stored file name prefix.
	Dir          string   // Destination directory, created on first use.
	URLPrefix    string   // Public URL prefix the stored files are served under.
	AllowedTypes []string // Accepted MIME types, compared against the sniffed content.
	MaxSize      int64    // Per-file ceiling in bytes.
	MaxFiles     int      // Maximum number of files per request.
}

// PackageImages returns the policy used for package gallery images.
func PackageImages(uploadDir string, maxSize int64) Policy {
	return Policy{
		Field:        "images",
		Dir:          filepath.Join(uploadDir, "packages"),
		URLPrefix:    "/uploads/packages",
		AllowedTypes: []string{"image/jpeg", "image/png", "image/gif", "image/webp"},
		MaxSize:      maxSize,
		MaxFiles:     5,
	}
}

// Uploader stores files that satisfy its Policy.
type Uploader struct {
	policy Policy
	logger *slog.Logger
}

// New creates an Uploader for the given policy. A nil logger discards output.
func New(policy Policy, logger *slog.Logger) *Uploader {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Uploader{policy: policy, logger: logger}
}

// Policy returns the policy the uploader enforces.
func (u *Uploader) Policy() Policy {
	return u.policy
}

// accepted is a file that passed validation, with the extension it will be stored under.
type accepted struct {
	header *multipart.FileHeader
	ext    string
}

// Save validates every file and then writes them to the policy directory.
// It returns the public path of each stored file, in the order the files were given.
func (u *Uploader) Save(files []*multipart.FileHeader) ([]string, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	if u.policy.MaxFiles > 0 && len(files) > u.policy.MaxFiles {
		return nil, fmt.Errorf("%w: %d files, at most %d allowed", ErrTooManyFiles, len(files), u.policy.MaxFiles)
	}

	checked := make([]accepted, 0, len(files))
	for _, file := range files {
		ext, err := u.check(file)
		if err != nil {
			return nil, err
		}
		checked = append(checked, accepted{header: file, ext: ext})
	}

	if err := os.MkdirAll(u.policy.Dir, 0755); err != nil {
		return nil, fmt.Errorf("creating upload dir %s: %w", u.policy.Dir, err)
	}

	paths := make([]string, 0, len(checked))
	written := make([]string, 0, len(checked))
	for _, file := range checked {
		name, err := u.write(file)
		if err != nil {
			// Files stored earlier in this request are useless without the rest.
			for _, stored := range written {
				if rmErr := os.Remove(stored); rmErr != nil {
					u.logger.Warn("removing partial upload", "file", stored, "error", rmErr)
				}
			}
			return nil, err
		}
		written = append(written, filepath.Join(u.policy.Dir, name))
		paths = append(paths, path.Join(u.policy.URLPrefix, name))
	}

	u.logger.Info("files uploaded", "field", u.policy.Field, "count", len(paths))
	return paths, nil
}

// check validates a single file against the policy and returns the extension to store it with.
func (u *Uploader) check(file *multipart.FileHeader) (string, error) {
	if u.policy.MaxSize > 0 && file.Size > u.policy.MaxSize {
		return "", fmt.Errorf("%w: %s is %d bytes, limit is %d", ErrTooLarge, file.Filename, file.Size, u.policy.MaxSize)
	}

	mtype, err := Sniff(file)
	if err != nil {
		return "", err
	}

	for _, allowed := range u.policy.AllowedTypes {
		if mtype.Is(allowed) {
			return Extension(file.Filename, mtype), nil
		}
	}
	return "", fmt.Errorf("%w: %s is %s", ErrInvalidType, file.Filename, mtype.String())
}

func (u *Uploader) write(file accepted) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generating file name: %w", err)
	}
	name := fmt.Sprintf("%s-%s%s", u.policy.Field, id, file.ext)

	src, err := file.header.Open()
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", file.header.Filename, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(filepath.Join(u.policy.Dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", name, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		return "", fmt.Errorf("writing %s: %w", name, err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(dst.Name())
		return "", fmt.Errorf("closing %s: %w", name, err)
	}
	return name, nil
}

// Sniff detects the content type of an uploaded file from its leading bytes.
// The Content-Type header sent by the client is ignored.
func Sniff(file *multipart.FileHeader) (*mimetype.MIME, error) {
	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", file.Filename, err)
	}
	defer src.Close()

	mtype, err := mimetype.DetectReader(src)
	if err != nil {
		return nil, fmt.Errorf("detecting type of %s: %w", file.Filename, err)
	}
	return mtype, nil
}

// Extension returns the lower-cased extension of the original file name, falling back to
// the canonical extension of the detected type when the name has none or it looks unsafe.
func Extension(filename string, mtype *mimetype.MIME) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if len(ext) < 2 || len(ext) > 8 {
		return mtype.Extension()
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return mtype.Extension()
		}
	}
	return ext
}
