package broccoli

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	configName = "config"
	configType = "yaml"
)

// Config is the server configuration. Values come from, in increasing precedence, the
// defaults below, config.yaml in the config directory, a .env file and the environment.
type Config struct {
	viper             *viper.Viper
	ConfigDir         string        `mapstructure:"config_dir"`
	Env               string        `mapstructure:"app_env"`              // production enables the JSON logger, gin release mode and hides error details
	Address           string        `mapstructure:"address"`              // Interface to listen on
	Port              string        `mapstructure:"port"`                 // Port to listen on
	CORSOrigins       []string      `mapstructure:"cors_origins"`         // Allowed origins, * for any
	DatabasePath      string        `mapstructure:"database_path"`        // SQLite file
	UploadDir         string        `mapstructure:"upload_dir"`           // Root of the package images and banner directories
	PublicURL         string        `mapstructure:"public_url"`           // Base URL of the public site
	APIURL            string        `mapstructure:"api_url"`              // Base URL this API is reachable at, used for image links
	JWTSecret         string        `mapstructure:"jwt_secret"`           // HMAC key for admin tokens
	TokenTTL          time.Duration `mapstructure:"token_ttl"`            // Lifetime of an admin token
	AdminEmail        string        `mapstructure:"admin_email"`          // Admin seeded at startup when missing
	AdminPassword     string        `mapstructure:"admin_password"`       // Password of the seeded admin
	PackageImageMaxMB int64         `mapstructure:"package_image_max_mb"` // Size ceiling per package image
	BannerMaxMB       int64         `mapstructure:"banner_max_mb"`        // Size ceiling of the banner
	HookScript        string        `mapstructure:"hook_script"`          // Optional Lua script with before_save
}

// defaults are the settings written to a fresh config.yaml. Secrets are never written.
var defaults = map[string]any{
	"app_env":              "development",
	"address":              "0.0.0.0",
	"port":                 "4000",
	"cors_origins":         "*",
	"public_url":           "http://localhost:3000",
	"api_url":              "http://localhost:4000",
	"token_ttl":            "24h",
	"package_image_max_mb": 5,
	"banner_max_mb":        5,
}

// envAliases lists extra environment variables accepted for a key, checked in order.
var envAliases = map[string][]string{
	"app_env": {"APP_ENV", "NODE_ENV"},
}

// LoadConfig reads the configuration for configDir, creating the directory and a default
// config.yaml when they do not exist yet.
func LoadConfig(configDir string) (*Config, error) {
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, fmt.Errorf("creating config dir %s: %w", configDir, err)
	}

	for _, envFile := range []string{".env", filepath.Join(configDir, ".env")} {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType(configType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := writeDefaultConfig(configDir); err != nil {
			return nil, err
		}
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetDefault("config_dir", configDir)
	v.SetDefault("database_path", filepath.Join(configDir, "catalog.db"))
	v.SetDefault("upload_dir", filepath.Join(configDir, "uploads"))
	for _, key := range []string{"jwt_secret", "admin_email", "admin_password", "hook_script"} {
		v.SetDefault(key, "")
	}

	v.AutomaticEnv()
	for key, names := range envAliases {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	cfg := &Config{viper: v}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config to struct: %w", err)
	}
	cfg.Env = strings.ToLower(strings.TrimSpace(cfg.Env))
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func writeDefaultConfig(configDir string) error {
	w := viper.New()
	w.SetConfigType(configType)
	for key, value := range defaults {
		w.Set(key, value)
	}
	if err := w.SafeWriteConfigAs(filepath.Join(configDir, configName+"."+configType)); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate reports settings the server cannot start with.
func (cfg *Config) Validate() error {
	if cfg.Production() && cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required in production")
	}
	if cfg.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive, got %s", cfg.TokenTTL)
	}
	if cfg.PackageImageMaxMB <= 0 || cfg.BannerMaxMB <= 0 {
		return errors.New("upload size limits must be positive")
	}
	if (cfg.AdminEmail == "") != (cfg.AdminPassword == "") {
		return errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}
	return nil
}

// Production reports whether the server runs in production mode.
func (cfg *Config) Production() bool {
	return cfg.Env == "production"
}

// ListenAddr is the host:port the server listens on.
func (cfg *Config) ListenAddr() string {
	return net.JoinHostPort(cfg.Address, cfg.Port)
}

// ConfigFile returns the path of the config file in use, if any.
func (cfg *Config) ConfigFile() string {
	return cfg.viper.ConfigFileUsed()
}
