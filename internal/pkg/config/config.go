package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	EnvAppEnv              = "HONEYSHOP_APP_ENV"
	EnvPort                = "HONEYSHOP_APP_PORT"
	EnvLogLevel            = "HONEYSHOP_LOG_LEVEL"
	EnvServiceName         = "HONEYSHOP_SERVICE_NAME"
	EnvInventoryURL        = "HONEYSHOP_INVENTORY_URL"
	EnvInventoryInterval   = "HONEYSHOP_INVENTORY_REFRESH_INTERVAL"
	EnvInventoryTimeout    = "HONEYSHOP_INVENTORY_FETCH_TIMEOUT"
	EnvCheckoutFormURL     = "HONEYSHOP_CHECKOUT_FORM_URL"
	EnvCheckoutFieldID     = "HONEYSHOP_CHECKOUT_FIELD_ID"
	EnvSessionTTL          = "HONEYSHOP_SESSION_TTL"
	EnvSessionSweep        = "HONEYSHOP_SESSION_SWEEP_INTERVAL"
	EnvShutdownGracePeriod = "HONEYSHOP_SHUTDOWN_GRACE_PERIOD"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App       AppConfig
	Inventory InventoryConfig
	Checkout  CheckoutConfig
	Session   SessionConfig
}

// Load reads an optional .env file, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv parses the process environment only.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env                 string        `envconfig:"HONEYSHOP_APP_ENV" default:"dev"`
	Port                string        `envconfig:"HONEYSHOP_APP_PORT" default:"8080"`
	LogLevel            string        `envconfig:"HONEYSHOP_LOG_LEVEL" default:"info"`
	ServiceName         string        `envconfig:"HONEYSHOP_SERVICE_NAME" default:"honeyshop"`
	ShutdownGracePeriod time.Duration `envconfig:"HONEYSHOP_SHUTDOWN_GRACE_PERIOD" default:"10s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// Addr is the listen address for the HTTP server.
func (a AppConfig) Addr() string {
	if strings.HasPrefix(a.Port, ":") {
		return a.Port
	}
	return ":" + a.Port
}

type InventoryConfig struct {
	URL             string        `envconfig:"HONEYSHOP_INVENTORY_URL" default:"https://script.google.com/macros/s/AKfycbwRbc1QcZw4I7yR6j8OA91FXzi_d_O3XlbrOP8yNsNadjJrSKHF3JSk5UD0tk-j66maDg/exec"`
	RefreshInterval time.Duration `envconfig:"HONEYSHOP_INVENTORY_REFRESH_INTERVAL" default:"300s"`
	FetchTimeout    time.Duration `envconfig:"HONEYSHOP_INVENTORY_FETCH_TIMEOUT" default:"15s"`
}

type CheckoutConfig struct {
	FormURL string `envconfig:"HONEYSHOP_CHECKOUT_FORM_URL" default:"https://docs.google.com/forms/d/e/1FAIpQLSeeo3brfYPjNcLU3Sm7WdetZgbTxpT1X6CEXYjCbty5dJxdtw/viewform"`
	FieldID string `envconfig:"HONEYSHOP_CHECKOUT_FIELD_ID" default:"261192025"`
}

type SessionConfig struct {
	TTL           time.Duration `envconfig:"HONEYSHOP_SESSION_TTL" default:"24h"`
	SweepInterval time.Duration `envconfig:"HONEYSHOP_SESSION_SWEEP_INTERVAL" default:"5m"`
}

func (c *Config) validate() error {
	if _, err := url.ParseRequestURI(c.Inventory.URL); err != nil {
		return fmt.Errorf("config: %s: %w", EnvInventoryURL, err)
	}
	if _, err := url.ParseRequestURI(c.Checkout.FormURL); err != nil {
		return fmt.Errorf("config: %s: %w", EnvCheckoutFormURL, err)
	}
	if c.Inventory.RefreshInterval <= 0 {
		return fmt.Errorf("config: %s must be positive", EnvInventoryInterval)
	}
	if c.Inventory.FetchTimeout <= 0 {
		return fmt.Errorf("config: %s must be positive", EnvInventoryTimeout)
	}
	if c.Session.SweepInterval <= 0 {
		return fmt.Errorf("config: %s must be positive", EnvSessionSweep)
	}
	if strings.TrimSpace(c.Checkout.FieldID) == "" {
		return fmt.Errorf("config: %s is required", EnvCheckoutFieldID)
	}
	return nil
}
