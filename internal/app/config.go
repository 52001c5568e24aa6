// Package app assembles the bot from configuration: storage, checkout,
// payments, delivery and the gateway webhook.
package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	coreconfig "github.com/m3rciful/callmylawyer/core/config"
	coredatabase "github.com/m3rciful/callmylawyer/core/database"
	"github.com/m3rciful/callmylawyer/internal/catalog"
	"github.com/m3rciful/callmylawyer/internal/orders"
	"github.com/m3rciful/callmylawyer/internal/payment"
	"github.com/m3rciful/callmylawyer/internal/webhook"
)

const (
	// StorageFile keeps the ledger in a JSON file.
	StorageFile = "file"
	// StoragePostgres keeps the ledger in the orders table.
	StoragePostgres = "postgres"
)

const (
	defaultStoragePath   = "data/orders.json"
	defaultPaymentListen = ":3000"
)

// StorageConfig selects the ledger backend.
type StorageConfig struct {
	Driver string `yaml:"driver" envconfig:"STORAGE_DRIVER"`
	Path   string `yaml:"path" envconfig:"STORAGE_PATH"`
	Retain int    `yaml:"retain" envconfig:"STORAGE_RETAIN"`
}

// PaymentConfig holds merchant credentials and the result endpoint.
type PaymentConfig struct {
	MerchantLogin string `yaml:"merchant_login" envconfig:"ROBOKASSA_MERCHANT_LOGIN"`
	Password1     string `yaml:"password1" envconfig:"ROBOKASSA_PASSWORD1"`
	Password2     string `yaml:"password2" envconfig:"ROBOKASSA_PASSWORD2"`
	Test          bool   `yaml:"test" envconfig:"ROBOKASSA_TEST"`
	BaseURL       string `yaml:"base_url" envconfig:"ROBOKASSA_BASE_URL"`
	Listen        string `yaml:"listen" envconfig:"PAYMENT_LISTEN"`
	ResultPath    string `yaml:"result_path" envconfig:"PAYMENT_RESULT_PATH"`
}

// BotConfig tunes user-facing content.
type BotConfig struct {
	WelcomePhoto string `yaml:"welcome_photo" envconfig:"BOT_WELCOME_PHOTO"`
	PolicyURL    string `yaml:"policy_url" envconfig:"BOT_POLICY_URL"`
}

// Config is the full application configuration. The core sections are
// inlined so one YAML file serves both layers.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database coredatabase.Config `yaml:"database"`
	Storage  StorageConfig       `yaml:"storage"`
	Payment  PaymentConfig       `yaml:"payment"`
	Bot      BotConfig           `yaml:"bot"`
	Catalog  []catalog.Service   `yaml:"catalog" ignored:"true"`
}

// CoreConfig exposes the transport configuration to the core runner.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// Load reads path, overlays the environment and normalizes the result.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates the application sections after the core ones.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}

	driver := strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	switch driver {
	case "", StorageFile:
		driver = StorageFile
		if strings.TrimSpace(cfg.Storage.Path) == "" {
			cfg.Storage.Path = defaultStoragePath
		}
	case StoragePostgres:
		if strings.TrimSpace(cfg.Database.Host) == "" || strings.TrimSpace(cfg.Database.Name) == "" {
			return fmt.Errorf("database.host and database.name are required when storage.driver is 'postgres'")
		}
		if cfg.Database.SSLMode == "" {
			cfg.Database.SSLMode = "disable"
		}
		if cfg.Database.Port == "" {
			cfg.Database.Port = "5432"
		}
	default:
		return fmt.Errorf("invalid storage.driver %q; allowed: file, postgres", cfg.Storage.Driver)
	}
	cfg.Storage.Driver = driver

	if cfg.Storage.Retain < 0 {
		return fmt.Errorf("storage.retain must be >= 0")
	}
	if cfg.Storage.Retain == 0 {
		cfg.Storage.Retain = orders.DefaultRetain
	}

	p := &cfg.Payment
	p.MerchantLogin = strings.TrimSpace(p.MerchantLogin)
	if p.MerchantLogin == "" || p.Password1 == "" || p.Password2 == "" {
		return fmt.Errorf("payment.merchant_login, payment.password1 and payment.password2 are required")
	}
	gw := payment.Gateway{MerchantID: p.MerchantLogin, Secret1: p.Password1, BaseURL: p.BaseURL, Test: p.Test}
	if err := gw.Validate(); err != nil {
		return fmt.Errorf("invalid payment settings: %w", err)
	}
	if strings.TrimSpace(p.Listen) == "" {
		p.Listen = defaultPaymentListen
	}
	if strings.TrimSpace(p.ResultPath) == "" {
		p.ResultPath = webhook.DefaultResultPath
	}
	if !strings.HasPrefix(p.ResultPath, "/") {
		p.ResultPath = "/" + p.ResultPath
	}

	if len(cfg.Catalog) == 0 {
		cfg.Catalog = catalog.Defaults()
	}
	if _, err := catalog.New(cfg.Catalog); err != nil {
		return fmt.Errorf("invalid catalog: %w", err)
	}
	return nil
}
