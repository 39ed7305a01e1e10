package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Login exchanges the admin credentials for a token and stores it in the session.
// Rejected credentials return false without an error.
func (c *Client) Login(ctx context.Context, email, password string) (bool, error) {
	req, err := c.newJSONRequest(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return false, err
	}

	var token Token
	if err := c.do(req, &token); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
			c.logger.Info("login rejected", "email", email)
			return false, nil
		}
		return false, fmt.Errorf("logging in: %w", err)
	}

	if err := c.session.Save(token); err != nil {
		return false, err
	}
	return true, nil
}

// Logout forgets the session token.
func (c *Client) Logout() error {
	return c.session.Clear()
}

// IsAuthenticated reports whether the session holds a token that has not expired yet.
// It does not contact the server; use Verify for that.
func (c *Client) IsAuthenticated() bool {
	return c.session.Token().Valid(c.now())
}

// Me is the admin the session token belongs to.
type Me struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Verify asks the server whether the session token is still accepted.
// A rejected token is cleared from the session.
func (c *Client) Verify(ctx context.Context) (*Me, error) {
	if !c.IsAuthenticated() {
		return nil, ErrNotAuthenticated
	}

	req, err := c.newRequest(ctx, http.MethodGet, "/api/auth/me", nil, nil, "")
	if err != nil {
		return nil, err
	}
	if err := c.authorize(req); err != nil {
		return nil, err
	}

	var me Me
	if err := c.do(req, &me); err != nil {
		if isStatus(err, http.StatusUnauthorized) {
			if clearErr := c.session.Clear(); clearErr != nil {
				return nil, clearErr
			}
			return nil, ErrNotAuthenticated
		}
		return nil, fmt.Errorf("verifying session: %w", err)
	}
	return &me, nil
}
