package broccoli

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/Vinicius-jafe/bookish-broccoli/auth"
	"github.com/Vinicius-jafe/bookish-broccoli/banner"
	"github.com/Vinicius-jafe/bookish-broccoli/db"
	"github.com/Vinicius-jafe/bookish-broccoli/hooks"
	"github.com/Vinicius-jafe/bookish-broccoli/upload"
)

const megabyte = 1 << 20

// WithLogger sets the logger of the app and every component created after it.
// A nil logger discards all output.
func WithLogger(logger *slog.Logger) func(*App) error {
	return func(app *App) error {
		if logger == nil {
			logger = slog.New(slog.NewTextHandler(io.Discard, nil))
		}
		app.Logger = logger
		return nil
	}
}

// WithConfig uses an already loaded configuration.
func WithConfig(cfg *Config) func(*App) error {
	return func(app *App) error {
		if cfg == nil {
			return errors.New("config is nil")
		}
		app.Config = cfg
		return nil
	}
}

// WithConfigDir loads the configuration from appConfigDir, creating the directory and a
// default config.yaml when missing.
func WithConfigDir(appConfigDir string) func(*App) error {
	return func(app *App) error {
		cfg, err := LoadConfig(appConfigDir)
		if err != nil {
			return err
		}
		app.Config = cfg
		app.Logger.Info("configuration loaded", "dir", appConfigDir, "file", cfg.ConfigFile(), "env", cfg.Env)
		return nil
	}
}

// WithRepo sets the store, closing the previous one if there was one.
func WithRepo(repo Repository) func(*App) error {
	return func(app *App) error {
		if app.Repo != nil {
			if err := app.Repo.Close(); err != nil {
				return err
			}
			app.Repo = nil
		}
		app.Repo = repo
		return nil
	}
}

// WithDatabase opens and migrates the SQLite database at the configured path.
func WithDatabase() func(*App) error {
	return func(app *App) error {
		if app.Config == nil {
			return errors.New("app has no config")
		}
		if err := ensureDir(filepath.Dir(app.Config.DatabasePath)); err != nil {
			return err
		}

		dbConn, err := db.New(app.Config.DatabasePath)
		if err != nil {
			return fmt.Errorf("opening database %s: %w", app.Config.DatabasePath, err)
		}
		app.Logger.Info("database ready", "path", app.Config.DatabasePath)
		return WithRepo(db.NewCatalogRepo(dbConn, app.Logger))(app)
	}
}

// WithStorage sets up the package image uploader and the banner store under the upload dir,
// and adopts a banner left on disk by an earlier release.
func WithStorage() func(*App) error {
	return func(app *App) error {
		if app.Config == nil {
			return errors.New("app has no config")
		}
		if app.Repo == nil {
			return errors.New("app has no repository")
		}

		uploadDir := app.Config.UploadDir
		if err := ensureDir(uploadDir); err != nil {
			return err
		}

		app.Uploader = upload.New(upload.PackageImages(uploadDir, app.Config.PackageImageMaxMB*megabyte), app.Logger)
		app.Banner = banner.NewStore(
			filepath.Join(uploadDir, "banners"),
			"/uploads/banners",
			app.Config.BannerMaxMB*megabyte,
			app.Repo,
			app.Logger,
		)
		if err := app.Banner.Sync(context.Background()); err != nil {
			return fmt.Errorf("syncing banner: %w", err)
		}
		return nil
	}
}

// WithAuth creates the token service and seeds the configured admin account.
// Outside production a missing JWT secret is replaced by a random one, so tokens do not
// survive a restart.
func WithAuth() func(*App) error {
	return func(app *App) error {
		if app.Config == nil {
			return errors.New("app has no config")
		}
		if app.Repo == nil {
			return errors.New("app has no repository")
		}

		secret := []byte(app.Config.JWTSecret)
		if len(secret) == 0 {
			secret = make([]byte, 32)
			if _, err := rand.Read(secret); err != nil {
				return fmt.Errorf("generating jwt secret: %w", err)
			}
			app.Logger.Warn("JWT_SECRET not set, using a random secret for this process")
		}

		service, err := auth.NewService(app.Repo, secret, app.Config.TokenTTL, app.Logger)
		if err != nil {
			return err
		}
		app.Auth = service

		if _, err := service.SeedAdmin(context.Background(), app.Config.AdminEmail, app.Config.AdminPassword); err != nil {
			return fmt.Errorf("seeding admin: %w", err)
		}
		count, err := app.Repo.CountUsers()
		if err != nil {
			return fmt.Errorf("counting admins: %w", err)
		}
		if count == 0 {
			app.Logger.Warn("no admin account exists, set ADMIN_EMAIL and ADMIN_PASSWORD to create one")
		}
		return nil
	}
}

// WithHooks loads the Lua script named by HOOK_SCRIPT, if any.
func WithHooks() func(*App) error {
	return func(app *App) error {
		if app.Config == nil {
			return errors.New("app has no config")
		}
		if app.Config.HookScript == "" {
			return nil
		}

		runner, err := hooks.Load(app.Config.HookScript, app.Logger)
		if err != nil {
			return fmt.Errorf("loading hook script: %w", err)
		}
		app.Hooks = runner
		app.Logger.Info("hook script loaded", "path", app.Config.HookScript, "before_save", runner.HasBeforeSave())
		return nil
	}
}
