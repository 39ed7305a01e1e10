package client

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// SessionFile is the name of the file the admin session is persisted in.
const SessionFile = "session.yaml"

// Token is a bearer token issued by the catalog API together with its expiry.
type Token struct {
	Value     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Valid reports whether the token is present and not expired at now.
func (t Token) Valid(now time.Time) bool {
	return t.Value != "" && now.Before(t.ExpiresAt)
}

// Session holds the admin token between runs. The zero value keeps it in memory only.
type Session struct {
	mu    sync.Mutex
	viper *viper.Viper
	token Token
}

// OpenSession loads the session persisted in dir, creating the directory when needed.
func OpenSession(dir string) (*Session, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating session dir %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(filepath.Join(dir, SessionFile))
	v.SetConfigType("yaml")
	v.SetConfigPermissions(0600)
	v.SetDefault("token.value", "")
	v.SetDefault("token.expires_at", "")

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading session file: %w", err)
	}

	session := &Session{viper: v}
	session.token.Value = v.GetString("token.value")
	if raw := v.GetString("token.expires_at"); raw != "" {
		expiresAt, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("parsing session expiry %q: %w", raw, err)
		}
		session.token.ExpiresAt = expiresAt
	}
	return session, nil
}

// Token returns the stored token, which may be empty or expired.
func (s *Session) Token() Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Save stores token and persists it when the session is file backed.
func (s *Session) Save(token Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
	return s.persist()
}

// Clear forgets the stored token.
func (s *Session) Clear() error {
	return s.Save(Token{})
}

func (s *Session) persist() error {
	if s.viper == nil {
		return nil
	}

	expiresAt := ""
	if !s.token.ExpiresAt.IsZero() {
		expiresAt = s.token.ExpiresAt.UTC().Format(time.RFC3339)
	}
	s.viper.Set("token.value", s.token.Value)
	s.viper.Set("token.expires_at", expiresAt)

	if err := s.viper.WriteConfig(); err != nil {
		return fmt.Errorf("writing session file: %w", err)
	}
	return nil
}
