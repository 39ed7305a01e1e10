// Package broccoli wires the travel catalog server together: configuration, the SQLite
// store, admin authentication, upload storage, the optional Lua hook and the HTTP API.
//
// A server is assembled with New and a list of options, then started with Run:
//
//	app, err := broccoli.New(
//		broccoli.WithLogger(logger),
//		broccoli.WithConfigDir(dir),
//		broccoli.WithDatabase(),
//		broccoli.WithStorage(),
//		broccoli.WithAuth(),
//		broccoli.WithHooks(),
//	)
package broccoli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/Vinicius-jafe/bookish-broccoli/api"
	"github.com/Vinicius-jafe/bookish-broccoli/auth"
	"github.com/Vinicius-jafe/bookish-broccoli/banner"
	"github.com/Vinicius-jafe/bookish-broccoli/domain"
	"github.com/Vinicius-jafe/bookish-broccoli/hooks"
	"github.com/Vinicius-jafe/bookish-broccoli/listener"
	"github.com/Vinicius-jafe/bookish-broccoli/upload"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

// Repository is everything the server needs from its store.
type Repository interface {
	domain.PackageRepository
	domain.BannerRepository
	domain.LogRepository
	domain.UserRepository
	domain.StatsRepository
	Close() error
}

// App orchestrates the catalog server.
type App struct {
	Config   *Config          // Loaded configuration
	Logger   *slog.Logger     // Process logger
	Repo     Repository       // Catalog store
	Auth     *auth.Service    // Admin authentication
	Banner   *banner.Store    // Homepage banner storage
	Uploader *upload.Uploader // Package image storage
	Hooks    *hooks.Runner    // Optional before_save script, nil when not configured
	Addr     string           // Address the server is listening on once Serve was called
}

// New creates an App and applies the options in order.
func New(options ...func(*App) error) (*App, error) {
	app := &App{
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if err := app.WithOptions(options...); err != nil {
		return nil, err
	}
	return app, nil
}

// WithOptions applies a series of configuration functions to the app.
func (app *App) WithOptions(options ...func(*App) error) error {
	for _, option := range options {
		if err := option(app); err != nil {
			return fmt.Errorf("applying option on app: %w", err)
		}
	}
	return nil
}

// NewLogger returns the process logger: JSON lines in production, text otherwise.
func NewLogger(w io.Writer, production bool) *slog.Logger {
	if production {
		return slog.New(slog.NewJSONHandler(w, nil))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// Handler builds the HTTP API from the configured components.
func (app *App) Handler() (http.Handler, error) {
	if app.Config == nil {
		return nil, errors.New("app has no config")
	}
	if app.Repo == nil {
		return nil, errors.New("app has no repository")
	}

	if app.Config.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	server, err := api.New(api.Config{
		Packages:    app.Repo,
		Stats:       app.Repo,
		Logs:        app.Repo,
		Banner:      app.Banner,
		Uploader:    app.Uploader,
		Auth:        app.Auth,
		Hooks:       app.Hooks,
		Logger:      app.Logger,
		Production:  app.Config.Production(),
		PublicURL:   app.Config.PublicURL,
		APIURL:      app.Config.APIURL,
		UploadDir:   app.Config.UploadDir,
		CORSOrigins: app.Config.CORSOrigins,
	})
	if err != nil {
		return nil, err
	}
	return server.Handler(), nil
}

// GetListener listens on address:port and wraps the socket in a resilient listener.
func (app *App) GetListener(address, port string) (net.Listener, error) {
	rawListener, err := net.Listen("tcp", net.JoinHostPort(address, port))
	if err != nil {
		return nil, fmt.Errorf("setting up listener on %s:%s: %w", address, port, err)
	}
	app.Addr = rawListener.Addr().String()
	return listener.NewResilientListener(rawListener, app.Logger), nil
}

// Serve answers API requests on l until ctx is cancelled, then shuts down gracefully.
func (app *App) Serve(ctx context.Context, l net.Listener) error {
	handler, err := app.Handler()
	if err != nil {
		return err
	}

	server := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(app.Logger.Handler(), slog.LevelWarn),
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(l)
	}()
	app.Logger.Info("catalog server started", "addr", l.Addr().String(), "env", app.Config.Env)

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	app.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}

// Run listens on the configured address and serves until ctx is cancelled.
func (app *App) Run(ctx context.Context) error {
	if app.Config == nil {
		return errors.New("app has no config")
	}
	l, err := app.GetListener(app.Config.Address, app.Config.Port)
	if err != nil {
		return err
	}
	return app.Serve(ctx, l)
}

// Close releases the hook script and the store.
func (app *App) Close() error {
	var errs []error
	if err := app.Hooks.Close(); err != nil {
		errs = append(errs, err)
	}
	if app.Repo != nil {
		if err := app.Repo.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ensureDir creates dir when it does not exist yet.
func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	return nil
}
