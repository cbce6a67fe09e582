package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config holds the client's runtime settings, sourced from environment
// variables with an optional .env file for local use.
type Config struct {
	BaseURL         string        `mapstructure:"PORTAL_BASE_URL"`
	HTTPTimeout     time.Duration `mapstructure:"PORTAL_HTTP_TIMEOUT"`
	CredentialsFile string        `mapstructure:"PORTAL_CREDENTIALS_FILE"`
	AppName         string        `mapstructure:"PORTAL_APP_NAME"`
	Env             string        `mapstructure:"PORTAL_ENV"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORTAL_BASE_URL", "http://localhost:8000/api")
	v.SetDefault("PORTAL_HTTP_TIMEOUT", "15s")
	v.SetDefault("PORTAL_CREDENTIALS_FILE", defaultCredentialsFile())
	v.SetDefault("PORTAL_APP_NAME", "Portal Client")
	v.SetDefault("PORTAL_ENV", "development")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORTAL_BASE_URL")
	v.BindEnv("PORTAL_HTTP_TIMEOUT")
	v.BindEnv("PORTAL_CREDENTIALS_FILE")
	v.BindEnv("PORTAL_APP_NAME")
	v.BindEnv("PORTAL_ENV")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "[config.Load] unmarshal config")
	}

	if cfg.BaseURL == "" {
		return nil, errors.New("[config.Load] PORTAL_BASE_URL is required")
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 15 * time.Second
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func defaultCredentialsFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "portalctl", "credentials.json")
}
