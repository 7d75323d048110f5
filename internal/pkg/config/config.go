package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration. Values come from defaults, an
// optional YAML file, then environment overrides, in that order.
type Config struct {
	Service  ServiceConfig `yaml:"service"`
	HTTP     HTTPConfig    `yaml:"http"`
	Store    StoreConfig   `yaml:"store"`
	Cache    CacheConfig   `yaml:"cache"`
	Gateways GatewayConfig `yaml:"gateways"`
}

type ServiceConfig struct {
	Name string `yaml:"name"`
	Env  string `yaml:"env"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type StoreConfig struct {
	// Backend selects the order store: "memory" or "postgres".
	Backend     string `yaml:"backend"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

type CacheConfig struct {
	// RedisAddr enables the read-through order cache when non-empty.
	RedisAddr string        `yaml:"redis_addr"`
	TTL       time.Duration `yaml:"ttl"`
}

type GatewayConfig struct {
	// Mode selects the collaborator adapters: "embedded" runs in-process
	// fakes for local development, "http" talks to the real services.
	Mode        string        `yaml:"mode"`
	CallTimeout time.Duration `yaml:"call_timeout"`
	IdentityURL string        `yaml:"identity_url"`
	CatalogURL  string        `yaml:"catalog_url"`
	PaymentURL  string        `yaml:"payment_url"`
	// IdentityFallback degrades identity outages to a stub profile instead
	// of failing the placement. Off by default: a verified user and a
	// fallback must never be confused.
	IdentityFallback bool `yaml:"identity_fallback"`
}

func Default() Config {
	return Config{
		Service: ServiceConfig{Name: "orderflow", Env: "dev"},
		HTTP:    HTTPConfig{Addr: ":8080"},
		Store:   StoreConfig{Backend: "memory"},
		Cache:   CacheConfig{TTL: 5 * time.Minute},
		Gateways: GatewayConfig{
			Mode:        "embedded",
			CallTimeout: 5 * time.Second,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (if
// any) and environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.Service.Name = getenvDefault("SERVICE_NAME", cfg.Service.Name)
	cfg.Service.Env = getenvDefault("ENV", cfg.Service.Env)
	cfg.HTTP.Addr = getenvDefault("HTTP_ADDR", cfg.HTTP.Addr)
	cfg.Store.Backend = getenvDefault("STORE_BACKEND", cfg.Store.Backend)
	cfg.Store.PostgresDSN = getenvDefault("POSTGRES_DSN", cfg.Store.PostgresDSN)
	cfg.Cache.RedisAddr = getenvDefault("REDIS_ADDR", cfg.Cache.RedisAddr)
	cfg.Gateways.Mode = getenvDefault("GATEWAY_MODE", cfg.Gateways.Mode)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Store.Backend {
	case "memory":
	case "postgres":
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("config: store.postgres_dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}

	switch c.Gateways.Mode {
	case "embedded":
	case "http":
		if c.Gateways.IdentityURL == "" || c.Gateways.CatalogURL == "" || c.Gateways.PaymentURL == "" {
			return fmt.Errorf("config: identity_url, catalog_url and payment_url are required in http gateway mode")
		}
	default:
		return fmt.Errorf("config: unknown gateway mode %q", c.Gateways.Mode)
	}
	return nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
