package domain

import (
	"errors"
	"time"
)

// ErrNoBanner is returned when no banner has been uploaded yet.
var ErrNoBanner = errors.New("no banner image found")

// BannerRepository keeps the pointer to the single current banner file.
// The file itself lives on disk; only its name and replacement time are persisted.
type BannerRepository interface {
	// GetBanner returns the current banner pointer, or ErrNoBanner if none was recorded.
	GetBanner() (*Banner, error)

	// SetBanner records filename as the current banner.
	SetBanner(filename string, updatedAt time.Time) error
}

// Banner is the promotional image shown at the top of the homepage.
type Banner struct {
	Filename  string    // Name of the file inside the banner directory, e.g. banner.jpg.
	URL       string    // Public URL the file is served under.
	UpdatedAt time.Time // When the banner was last replaced.
}
