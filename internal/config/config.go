package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/xhit/go-str2duration/v2"

	"github.com/teemow/odoocal/internal/notify"
)

// Environment variables read by Load
const (
	EnvURL               = "ODOO_URL"
	EnvDB                = "ODOO_DB"
	EnvLogin             = "ODOO_LOGIN"
	EnvPassword          = "ODOO_PASSWORD"
	EnvTimeout           = "ODOO_TIMEOUT"
	EnvNotifyInterval    = "NOTIFY_INTERVAL"
	EnvSentryDSN         = "SENTRY_DSN"
	EnvSentryEnvironment = "SENTRY_ENVIRONMENT"
)

// DefaultTimeout is the HTTP timeout of RPC calls
const DefaultTimeout = 30 * time.Second

// Config holds the connection and runtime settings
type Config struct {
	// URL is the server base URL, e.g. https://erp.example.com
	URL      string
	DB       string
	Login    string
	Password string

	// Timeout bounds each RPC request
	Timeout time.Duration

	// NotifyInterval is the time between two notification polls
	NotifyInterval time.Duration

	SentryDSN         string
	SentryEnvironment string
}

// Load reads the given .env files (default ".env"; missing files are
// ignored) and then the environment. Variables already set in the
// environment win over .env values.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := Config{
		URL:               strings.TrimRight(os.Getenv(EnvURL), "/"),
		DB:                os.Getenv(EnvDB),
		Login:             os.Getenv(EnvLogin),
		Password:          os.Getenv(EnvPassword),
		SentryDSN:         os.Getenv(EnvSentryDSN),
		SentryEnvironment: os.Getenv(EnvSentryEnvironment),
	}

	var err error
	if cfg.Timeout, err = durationFromEnv(EnvTimeout, DefaultTimeout); err != nil {
		return Config{}, err
	}
	if cfg.NotifyInterval, err = durationFromEnv(EnvNotifyInterval, notify.DefaultInterval); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// durationFromEnv parses durations such as "30s", "5m" or "1d12h"
func durationFromEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	d, err := str2duration.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", key, v)
	}
	return d, nil
}

// Validate reports missing or malformed connection settings.
func (c *Config) Validate() error {
	var missing []string
	if c.URL == "" {
		missing = append(missing, EnvURL)
	}
	if c.DB == "" {
		missing = append(missing, EnvDB)
	}
	if c.Login == "" {
		missing = append(missing, EnvLogin)
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing configuration: %s", strings.Join(missing, ", "))
	}

	u, err := url.Parse(c.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid %s %q: must be an http(s) URL", EnvURL, c.URL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.NotifyInterval <= 0 {
		return fmt.Errorf("notify interval must be positive")
	}
	return nil
}
