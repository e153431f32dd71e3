// Package config declares the environment configuration for the tea shop
// client service.
package config

import (
	"fmt"
	"time"

	"github.com/Hian201/AniceHolidaySample/internal/checkout"
	"github.com/Hian201/AniceHolidaySample/pkg/config"
	"github.com/Hian201/AniceHolidaySample/pkg/httpclient"
)

// Config holds every runtime setting, populated from the environment.
type Config struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"teashop"`
	HTTPPort    int    `env:"HTTP_PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	Airtable AirtableConfig
	Backend  BackendConfig
	Checkout CheckoutConfig
}

// AirtableConfig identifies the backing base and its three tables.
type AirtableConfig struct {
	BaseURL    string `env:"AIRTABLE_BASE_URL,notEmpty"`
	APIKey     string `env:"AIRTABLE_API_KEY,notEmpty"`
	MenuTable  string `env:"AIRTABLE_MENU_TABLE" envDefault:"Menu"`
	OrderTable string `env:"AIRTABLE_ORDER_TABLE" envDefault:"Order"`
	ItemsTable string `env:"AIRTABLE_ITEMS_TABLE" envDefault:"Order items"`
}

// BackendConfig tunes the outbound HTTP client and breaker.
type BackendConfig struct {
	Timeout         time.Duration `env:"BACKEND_TIMEOUT" envDefault:"15s"`
	MaxRetries      int           `env:"BACKEND_MAX_RETRIES" envDefault:"0"`
	BreakerEnabled  bool          `env:"BACKEND_BREAKER_ENABLED" envDefault:"true"`
	BreakerFailures uint32        `env:"BACKEND_BREAKER_FAILURES" envDefault:"5"`
	BreakerTimeout  time.Duration `env:"BACKEND_BREAKER_TIMEOUT" envDefault:"30s"`
}

// CheckoutConfig bounds each step of the checkout workflows.
type CheckoutConfig struct {
	CreateOrderTimeout time.Duration `env:"CHECKOUT_CREATE_ORDER_TIMEOUT" envDefault:"15s"`
	UploadItemsTimeout time.Duration `env:"CHECKOUT_UPLOAD_ITEMS_TIMEOUT" envDefault:"30s"`
	LinkItemsTimeout   time.Duration `env:"CHECKOUT_LINK_ITEMS_TIMEOUT" envDefault:"15s"`
	EditItemTimeout    time.Duration `env:"CHECKOUT_EDIT_ITEM_TIMEOUT" envDefault:"20s"`
	DeleteOrderTimeout time.Duration `env:"CHECKOUT_DELETE_ORDER_TIMEOUT" envDefault:"20s"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// HTTPClientConfig maps the backend settings onto the outbound client.
func (c *Config) HTTPClientConfig() httpclient.Config {
	hc := httpclient.DefaultConfig()
	hc.Timeout = c.Backend.Timeout
	hc.MaxRetries = c.Backend.MaxRetries
	return hc
}

// CheckoutTimeouts maps the checkout settings onto the orchestrator.
func (c *Config) CheckoutTimeouts() checkout.Timeouts {
	return checkout.Timeouts{
		CreateOrder: c.Checkout.CreateOrderTimeout,
		UploadItems: c.Checkout.UploadItemsTimeout,
		LinkItems:   c.Checkout.LinkItemsTimeout,
		EditItem:    c.Checkout.EditItemTimeout,
		DeleteOrder: c.Checkout.DeleteOrderTimeout,
	}
}
