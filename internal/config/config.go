// Package config handles loading and validation of gateway configuration.
// Supports both development (env vars, optional .env) and production
// (merchant secrets from Secret Manager) modes.
package config

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"bnpl-gateway/internal/capture"
	"bnpl-gateway/internal/flowstore"
	"bnpl-gateway/internal/handler"
	"bnpl-gateway/internal/limits"
	"bnpl-gateway/internal/lock"
	"bnpl-gateway/internal/merchant"
	"bnpl-gateway/internal/provider"
	"bnpl-gateway/internal/transport"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	StoreWooCommerce = "woocommerce"
	StoreMemory      = "memory"

	MinRefreshInterval = time.Minute

	DefaultStoreCurrency = "AUD"
)

// Config holds all gateway configuration.
// Environment determines whether merchant secrets load from env vars
// (development) or Secret Manager (production).
type Config struct {
	// Server settings
	Port        string
	Environment string // "development" or "production"
	LogLevel    string // "debug", "info", "warn", "error"

	// GCP settings (required in production)
	GCPProject string
	// SecretName names the Secret Manager secret holding MerchantSecrets.
	SecretName string

	Merchant MerchantConfig
	Provider ProviderConfig
	Store    StoreConfig

	// Optional shared backends. Nil selects the in-process implementation.
	Redis *lock.RedisConfig
	MySQL *flowstore.MySQLConfig

	Checkout CheckoutConfig
	Pages    handler.Pages

	ReturnStateSecret string
	AdminToken        string
	RefreshInterval   time.Duration
}

// MerchantConfig is the merchant's provider account.
type MerchantConfig struct {
	Enabled            bool                 `json:"enabled" yaml:"enabled"`
	Environment        merchant.Environment `json:"environment" yaml:"environment"`
	Sandbox            merchant.Credentials `json:"sandbox" yaml:"sandbox"`
	Production         merchant.Credentials `json:"production" yaml:"production"`
	IntegrationVersion string               `json:"integration_version,omitempty" yaml:"integration_version,omitempty"`
}

// Endpoint is one environment's provider base URLs.
type Endpoint struct {
	APIURL string `json:"api_url" yaml:"api_url"`
	WebURL string `json:"web_url" yaml:"web_url"`
}

// ProviderConfig locates the provider API.
type ProviderConfig struct {
	Sandbox      Endpoint       `json:"sandbox" yaml:"sandbox"`
	Production   Endpoint       `json:"production" yaml:"production"`
	USSandbox    Endpoint       `json:"us_sandbox,omitempty" yaml:"us_sandbox,omitempty"`
	USProduction Endpoint       `json:"us_production,omitempty" yaml:"us_production,omitempty"`
	Timeout      time.Duration  `json:"-" yaml:"-"`
	Transport    transport.Kind `json:"transport,omitempty" yaml:"transport,omitempty"`
}

// StoreConfig selects the store implementation.
type StoreConfig struct {
	Type      string         `json:"type" yaml:"type"` // "woocommerce" or "memory"
	Currency  string         `json:"currency,omitempty" yaml:"currency,omitempty"`
	URL       string         `json:"url,omitempty" yaml:"url,omitempty"`
	APIKey    string         `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	APISecret string         `json:"api_secret,omitempty" yaml:"api_secret,omitempty"`
	Transport transport.Kind `json:"transport,omitempty" yaml:"transport,omitempty"`
}

// CheckoutConfig holds the shopper return URLs sent to the provider.
type CheckoutConfig struct {
	ConfirmURL     string `json:"confirm_url" yaml:"confirm_url"`
	CancelURL      string `json:"cancel_url" yaml:"cancel_url"`
	PopupOriginURL string `json:"popup_origin_url,omitempty" yaml:"popup_origin_url,omitempty"`
}

// MerchantSecrets is the Secret Manager payload. Present fields override
// the plain configuration.
type MerchantSecrets struct {
	Sandbox           *merchant.Credentials `json:"sandbox,omitempty"`
	Production        *merchant.Credentials `json:"production,omitempty"`
	StoreAPIKey       string                `json:"store_api_key,omitempty"`
	StoreAPISecret    string                `json:"store_api_secret,omitempty"`
	ReturnStateSecret string                `json:"return_state_secret,omitempty"`
	AdminToken        string                `json:"admin_token,omitempty"`
}

// fileConfig mirrors the CONFIG_FILE layout. Durations are strings.
type fileConfig struct {
	Port              string                 `json:"port" yaml:"port"`
	Environment       string                 `json:"environment" yaml:"environment"`
	LogLevel          string                 `json:"log_level" yaml:"log_level"`
	GCPProject        string                 `json:"gcp_project" yaml:"gcp_project"`
	SecretName        string                 `json:"secret_name" yaml:"secret_name"`
	Merchant          MerchantConfig         `json:"merchant" yaml:"merchant"`
	Provider          ProviderConfig         `json:"provider" yaml:"provider"`
	ProviderTimeout   string                 `json:"provider_timeout" yaml:"provider_timeout"`
	Store             StoreConfig            `json:"store" yaml:"store"`
	Redis             *lock.RedisConfig      `json:"redis" yaml:"redis"`
	MySQL             *flowstore.MySQLConfig `json:"mysql" yaml:"mysql"`
	Checkout          CheckoutConfig         `json:"checkout" yaml:"checkout"`
	Pages             handler.Pages          `json:"pages" yaml:"pages"`
	ReturnStateSecret string                 `json:"return_state_secret" yaml:"return_state_secret"`
	AdminToken        string                 `json:"admin_token" yaml:"admin_token"`
	RefreshInterval   string                 `json:"refresh_interval" yaml:"refresh_interval"`
}

// SecretSource reads the raw payload of a secret.
type SecretSource interface {
	Access(ctx context.Context, name string) ([]byte, error)
}

// Load reads configuration from file or environment, then merchant secrets
// from Secret Manager in production.
// Priority: CONFIG_FILE (if set) → ENV vars (seeded from .env in development).
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, nil)
}

func load(ctx context.Context, secrets SecretSource) (*Config, error) {
	var (
		cfg *Config
		err error
	)
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		cfg, err = loadFromFile(configPath)
	} else {
		if err := loadDotEnv(); err != nil {
			return nil, err
		}
		cfg, err = loadFromEnv()
	}
	if err != nil {
		return nil, err
	}

	if cfg.Environment == EnvProduction && cfg.SecretName != "" {
		if cfg.GCPProject == "" {
			return nil, fmt.Errorf("GCP_PROJECT required when loading secrets in production")
		}
		if secrets == nil {
			sm, err := newSecretManager(ctx)
			if err != nil {
				return nil, err
			}
			defer sm.Close()
			secrets = sm
		}
		if err := cfg.applySecrets(ctx, secrets); err != nil {
			return nil, fmt.Errorf("loading merchant secrets: %w", err)
		}
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadDotEnv seeds the environment from DOTENV_FILE (default .env) outside
// production. Variables already set win. A missing file is not an error.
func loadDotEnv() error {
	if os.Getenv("ENVIRONMENT") == EnvProduction {
		return nil
	}
	path := envOrDefault("DOTENV_FILE", ".env")
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}
	return nil
}

// loadFromFile reads all configuration from a JSON or YAML file.
// Unknown keys are rejected in both formats.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var fc fileConfig
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&fc); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg := &Config{
		Port:              fc.Port,
		Environment:       fc.Environment,
		LogLevel:          fc.LogLevel,
		GCPProject:        fc.GCPProject,
		SecretName:        fc.SecretName,
		Merchant:          fc.Merchant,
		Provider:          fc.Provider,
		Store:             fc.Store,
		Redis:             fc.Redis,
		MySQL:             fc.MySQL,
		Checkout:          fc.Checkout,
		Pages:             fc.Pages,
		ReturnStateSecret: fc.ReturnStateSecret,
		AdminToken:        fc.AdminToken,
	}
	if cfg.Provider.Timeout, err = parseDuration("provider_timeout", fc.ProviderTimeout); err != nil {
		return nil, err
	}
	if cfg.RefreshInterval, err = parseDuration("refresh_interval", fc.RefreshInterval); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromEnv reads configuration from individual environment variables.
func loadFromEnv() (*Config, error) {
	cfg := &Config{
		Port:        os.Getenv("PORT"),
		Environment: os.Getenv("ENVIRONMENT"),
		LogLevel:    os.Getenv("LOG_LEVEL"),
		GCPProject:  os.Getenv("GCP_PROJECT"),
		SecretName:  os.Getenv("SECRET_NAME"),
		Merchant: MerchantConfig{
			Environment: merchant.Environment(os.Getenv("PROVIDER_ENVIRONMENT")),
			Sandbox: merchant.Credentials{
				MerchantID: os.Getenv("PROVIDER_SANDBOX_MERCHANT_ID"),
				SecretKey:  os.Getenv("PROVIDER_SANDBOX_SECRET_KEY"),
			},
			Production: merchant.Credentials{
				MerchantID: os.Getenv("PROVIDER_PRODUCTION_MERCHANT_ID"),
				SecretKey:  os.Getenv("PROVIDER_PRODUCTION_SECRET_KEY"),
			},
			IntegrationVersion: os.Getenv("PROVIDER_INTEGRATION_VERSION"),
		},
		Provider: ProviderConfig{
			Sandbox:      Endpoint{APIURL: os.Getenv("PROVIDER_SANDBOX_API_URL"), WebURL: os.Getenv("PROVIDER_SANDBOX_WEB_URL")},
			Production:   Endpoint{APIURL: os.Getenv("PROVIDER_PRODUCTION_API_URL"), WebURL: os.Getenv("PROVIDER_PRODUCTION_WEB_URL")},
			USSandbox:    Endpoint{APIURL: os.Getenv("PROVIDER_US_SANDBOX_API_URL"), WebURL: os.Getenv("PROVIDER_US_SANDBOX_WEB_URL")},
			USProduction: Endpoint{APIURL: os.Getenv("PROVIDER_US_PRODUCTION_API_URL"), WebURL: os.Getenv("PROVIDER_US_PRODUCTION_WEB_URL")},
			Transport:    transport.Kind(os.Getenv("PROVIDER_TRANSPORT")),
		},
		Store: StoreConfig{
			Type:      os.Getenv("STORE_TYPE"),
			Currency:  os.Getenv("STORE_CURRENCY"),
			URL:       os.Getenv("WOOCOMMERCE_STORE_URL"),
			APIKey:    os.Getenv("WOOCOMMERCE_API_KEY"),
			APISecret: os.Getenv("WOOCOMMERCE_API_SECRET"),
			Transport: transport.Kind(os.Getenv("WOOCOMMERCE_TRANSPORT")),
		},
		Checkout: CheckoutConfig{
			ConfirmURL:     os.Getenv("CHECKOUT_CONFIRM_URL"),
			CancelURL:      os.Getenv("CHECKOUT_CANCEL_URL"),
			PopupOriginURL: os.Getenv("CHECKOUT_POPUP_ORIGIN_URL"),
		},
		ReturnStateSecret: os.Getenv("RETURN_STATE_SECRET"),
		AdminToken:        os.Getenv("ADMIN_TOKEN"),
	}

	var err error
	if cfg.Merchant.Enabled, err = parseBool("PROVIDER_ENABLED", os.Getenv("PROVIDER_ENABLED"), true); err != nil {
		return nil, err
	}
	if cfg.Provider.Timeout, err = parseDuration("PROVIDER_TIMEOUT", os.Getenv("PROVIDER_TIMEOUT")); err != nil {
		return nil, err
	}
	if cfg.RefreshInterval, err = parseDuration("REFRESH_INTERVAL", os.Getenv("REFRESH_INTERVAL")); err != nil {
		return nil, err
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		db, err := parseInt("REDIS_DB", os.Getenv("REDIS_DB"))
		if err != nil {
			return nil, err
		}
		cfg.Redis = &lock.RedisConfig{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       db,
			Prefix:   os.Getenv("REDIS_PREFIX"),
		}
	}
	if addr := os.Getenv("MYSQL_ADDR"); addr != "" {
		cfg.MySQL = &flowstore.MySQLConfig{
			Addr:     addr,
			User:     os.Getenv("MYSQL_USER"),
			Password: os.Getenv("MYSQL_PASSWORD"),
			Database: os.Getenv("MYSQL_DATABASE"),
		}
	}

	// Storefront pages are a JSON object.
	if pagesJSON := os.Getenv("PAGES"); pagesJSON != "" {
		dec := json.NewDecoder(strings.NewReader(pagesJSON))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg.Pages); err != nil {
			return nil, fmt.Errorf("parsing PAGES JSON: %w", err)
		}
	}
	return cfg, nil
}

// applySecrets overlays the Secret Manager payload.
// Secret name format: projects/{project}/secrets/{name}/versions/latest
func (c *Config) applySecrets(ctx context.Context, src SecretSource) error {
	name := fmt.Sprintf("projects/%s/secrets/%s/versions/latest", c.GCPProject, c.SecretName)
	data, err := src.Access(ctx, name)
	if err != nil {
		return fmt.Errorf("accessing secret %s: %w", name, err)
	}

	var s MerchantSecrets
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return fmt.Errorf("parsing secret JSON: %w", err)
	}

	if s.Sandbox != nil {
		c.Merchant.Sandbox = *s.Sandbox
	}
	if s.Production != nil {
		c.Merchant.Production = *s.Production
	}
	c.Store.APIKey = withDefault(s.StoreAPIKey, c.Store.APIKey)
	c.Store.APISecret = withDefault(s.StoreAPISecret, c.Store.APISecret)
	c.ReturnStateSecret = withDefault(s.ReturnStateSecret, c.ReturnStateSecret)
	c.AdminToken = withDefault(s.AdminToken, c.AdminToken)
	return nil
}

func (c *Config) applyDefaults() {
	c.Port = withDefault(c.Port, "8080")
	c.Environment = withDefault(c.Environment, EnvDevelopment)
	c.LogLevel = withDefault(c.LogLevel, "info")
	if c.Merchant.Environment == "" {
		c.Merchant.Environment = merchant.Sandbox
	}
	if c.Store.Type == "" {
		c.Store.Type = StoreWooCommerce
	}
	c.Store.Currency = strings.ToUpper(withDefault(c.Store.Currency, DefaultStoreCurrency))
	if c.RefreshInterval == 0 {
		c.RefreshInterval = merchant.DefaultRefreshInterval
	}
	if c.Pages.Generic == "" {
		c.Pages.Generic = c.Pages.Cart
	}
}

// validate checks that all required configuration fields are present.
func (c *Config) validate() error {
	if c.Environment != EnvDevelopment && c.Environment != EnvProduction {
		return fmt.Errorf("environment must be %q or %q, got %q", EnvDevelopment, EnvProduction, c.Environment)
	}
	if !c.Merchant.Environment.Valid() {
		return fmt.Errorf("provider environment must be %q or %q, got %q",
			merchant.Sandbox, merchant.Production, c.Merchant.Environment)
	}

	active := c.Provider.Sandbox
	if c.Merchant.Environment == merchant.Production {
		active = c.Provider.Production
	}
	if active.APIURL == "" {
		return fmt.Errorf("%s provider api_url is required", c.Merchant.Environment)
	}
	for name, raw := range map[string]string{
		"sandbox api_url":       c.Provider.Sandbox.APIURL,
		"production api_url":    c.Provider.Production.APIURL,
		"us_sandbox api_url":    c.Provider.USSandbox.APIURL,
		"us_production api_url": c.Provider.USProduction.APIURL,
		"confirm_url":           c.Checkout.ConfirmURL,
		"cancel_url":            c.Checkout.CancelURL,
	} {
		if err := checkURL(name, raw); err != nil {
			return err
		}
	}
	if c.Provider.Timeout < 0 {
		return fmt.Errorf("provider timeout must not be negative")
	}
	if _, err := transport.New(c.Provider.Transport, 0); err != nil {
		return fmt.Errorf("provider transport: %w", err)
	}

	if !merchant.CurrencySupported(c.Store.Currency) {
		return fmt.Errorf("unsupported store currency: %s", c.Store.Currency)
	}
	if (c.Store.Currency == "USD" || c.Store.Currency == "CAD") && c.activeUSEndpoint().APIURL == "" {
		return fmt.Errorf("provider %s us api_url is required for %s stores", c.Merchant.Environment, c.Store.Currency)
	}

	switch c.Store.Type {
	case StoreWooCommerce:
		if c.Store.URL == "" {
			return fmt.Errorf("store url is required")
		}
		if c.Store.APIKey == "" {
			return fmt.Errorf("store api_key is required")
		}
		if c.Store.APISecret == "" {
			return fmt.Errorf("store api_secret is required")
		}
		if err := checkURL("store url", c.Store.URL); err != nil {
			return err
		}
		if _, err := transport.New(c.Store.Transport, 0); err != nil {
			return fmt.Errorf("store transport: %w", err)
		}
	case StoreMemory:
		if c.Environment == EnvProduction {
			return fmt.Errorf("memory store is not allowed in production")
		}
	default:
		return fmt.Errorf("unsupported store type: %s", c.Store.Type)
	}

	if c.Checkout.ConfirmURL == "" || c.Checkout.CancelURL == "" {
		return fmt.Errorf("checkout confirm_url and cancel_url are required")
	}
	if c.Environment == EnvProduction && c.ReturnStateSecret == "" {
		return fmt.Errorf("return_state_secret is required in production")
	}
	if c.RefreshInterval < MinRefreshInterval {
		return fmt.Errorf("refresh interval must be at least %s", MinRefreshInterval)
	}
	if c.Redis != nil && c.Redis.Addr == "" {
		return fmt.Errorf("redis addr is required when redis is configured")
	}
	if c.MySQL != nil && (c.MySQL.Addr == "" || c.MySQL.Database == "") {
		return fmt.Errorf("mysql addr and database are required when mysql is configured")
	}
	return nil
}

// Settings builds the initial merchant settings. Limits start unavailable
// until the first refresh.
func (c *Config) Settings() merchant.Settings {
	return merchant.Settings{
		Enabled:            c.Merchant.Enabled,
		Environment:        c.Merchant.Environment,
		Sandbox:            c.Merchant.Sandbox,
		Production:         c.Merchant.Production,
		IntegrationVersion: c.Merchant.IntegrationVersion,
		Limits:             limits.Unavailable(),
	}
}

// ProviderClientConfig builds the provider client configuration.
func (c *Config) ProviderClientConfig() (provider.Config, error) {
	rt, err := transport.New(c.Provider.Transport, c.Provider.Timeout)
	if err != nil {
		return provider.Config{}, err
	}
	pc := provider.Config{
		Endpoints:     map[merchant.Environment]provider.Endpoint{},
		USEndpoints:   map[merchant.Environment]provider.Endpoint{},
		StoreCurrency: c.Store.Currency,
		Timeout:       c.Provider.Timeout,
		Transport:     rt,
	}
	addEndpoint(pc.Endpoints, merchant.Sandbox, c.Provider.Sandbox)
	addEndpoint(pc.Endpoints, merchant.Production, c.Provider.Production)
	addEndpoint(pc.USEndpoints, merchant.Sandbox, c.Provider.USSandbox)
	addEndpoint(pc.USEndpoints, merchant.Production, c.Provider.USProduction)
	return pc, nil
}

// CaptureConfig returns the shopper return URLs for the orchestrator.
func (c *Config) CaptureConfig() capture.Config {
	return capture.Config{
		ConfirmURL:     c.Checkout.ConfirmURL,
		CancelURL:      c.Checkout.CancelURL,
		PopupOriginURL: c.Checkout.PopupOriginURL,
	}
}

// activeUSEndpoint is the US endpoint for the configured merchant environment.
func (c *Config) activeUSEndpoint() Endpoint {
	if c.Merchant.Environment == merchant.Production {
		return c.Provider.USProduction
	}
	return c.Provider.USSandbox
}

func addEndpoint(m map[merchant.Environment]provider.Endpoint, env merchant.Environment, ep Endpoint) {
	if ep.APIURL == "" {
		return
	}
	m[env] = provider.Endpoint{
		APIURL: strings.TrimSuffix(ep.APIURL, "/"),
		WebURL: strings.TrimSuffix(ep.WebURL, "/"),
	}
}

// secretManager adapts the Secret Manager client to SecretSource.
type secretManager struct {
	client *secretmanager.Client
}

func newSecretManager(ctx context.Context) (*secretManager, error) {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating secret manager client: %w", err)
	}
	return &secretManager{client: client}, nil
}

func (s *secretManager) Access(ctx context.Context, name string) ([]byte, error) {
	result, err := s.client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: name,
	})
	if err != nil {
		return nil, err
	}
	return result.Payload.Data, nil
}

func (s *secretManager) Close() error {
	return s.client.Close()
}

// checkURL accepts empty values; presence is checked separately.
func checkURL(name, raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid %s %q: absolute http(s) URL required", name, raw)
	}
	return nil
}

func parseDuration(key, val string) (time.Duration, error) {
	if val == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return d, nil
}

func parseBool(key, val string, defaultVal bool) (bool, error) {
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("parsing %s: %w", key, err)
	}
	return b, nil
}

func parseInt(key, val string) (int, error) {
	if val == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return n, nil
}

// withDefault returns val if non-empty, otherwise defaultVal.
func withDefault(val, defaultVal string) string {
	if val != "" {
		return val
	}
	return defaultVal
}

// envOrDefault returns the environment variable value or the default if not set.
func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
