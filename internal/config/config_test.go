package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"bnpl-gateway/internal/merchant"
	"bnpl-gateway/internal/transport"
)

var envKeys = []string{
	"CONFIG_FILE", "DOTENV_FILE", "PORT", "ENVIRONMENT", "LOG_LEVEL", "GCP_PROJECT", "SECRET_NAME",
	"PROVIDER_ENABLED", "PROVIDER_ENVIRONMENT", "PROVIDER_INTEGRATION_VERSION",
	"PROVIDER_SANDBOX_MERCHANT_ID", "PROVIDER_SANDBOX_SECRET_KEY",
	"PROVIDER_PRODUCTION_MERCHANT_ID", "PROVIDER_PRODUCTION_SECRET_KEY",
	"PROVIDER_SANDBOX_API_URL", "PROVIDER_SANDBOX_WEB_URL",
	"PROVIDER_PRODUCTION_API_URL", "PROVIDER_PRODUCTION_WEB_URL",
	"PROVIDER_US_SANDBOX_API_URL", "PROVIDER_US_SANDBOX_WEB_URL",
	"PROVIDER_US_PRODUCTION_API_URL", "PROVIDER_US_PRODUCTION_WEB_URL",
	"PROVIDER_TIMEOUT", "PROVIDER_TRANSPORT",
	"STORE_TYPE", "STORE_CURRENCY", "WOOCOMMERCE_STORE_URL", "WOOCOMMERCE_API_KEY", "WOOCOMMERCE_API_SECRET", "WOOCOMMERCE_TRANSPORT",
	"CHECKOUT_CONFIRM_URL", "CHECKOUT_CANCEL_URL", "CHECKOUT_POPUP_ORIGIN_URL",
	"RETURN_STATE_SECRET", "ADMIN_TOKEN", "REFRESH_INTERVAL", "PAGES",
	"REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB", "REDIS_PREFIX",
	"MYSQL_ADDR", "MYSQL_USER", "MYSQL_PASSWORD", "MYSQL_DATABASE",
}

// clearEnv unsets every variable Load reads and restores them after the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	// Keep a stray .env in the package directory out of the picture.
	t.Setenv("DOTENV_FILE", filepath.Join(t.TempDir(), "absent.env"))
}

// setMinimalEnv sets the smallest valid development configuration.
func setMinimalEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PROVIDER_SANDBOX_API_URL", "https://api.sandbox.provider.test")
	t.Setenv("PROVIDER_SANDBOX_WEB_URL", "https://portal.sandbox.provider.test")
	t.Setenv("WOOCOMMERCE_STORE_URL", "https://shop.example.com")
	t.Setenv("WOOCOMMERCE_API_KEY", "ck_test123")
	t.Setenv("WOOCOMMERCE_API_SECRET", "cs_test456")
	t.Setenv("CHECKOUT_CONFIRM_URL", "https://gateway.example.com/payment/return")
	t.Setenv("CHECKOUT_CANCEL_URL", "https://shop.example.com/cart")
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	setMinimalEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("PROVIDER_SANDBOX_MERCHANT_ID", "m-100")
	t.Setenv("PROVIDER_SANDBOX_SECRET_KEY", "sk-100")
	t.Setenv("PROVIDER_INTEGRATION_VERSION", "1.4.0")
	t.Setenv("PROVIDER_US_SANDBOX_API_URL", "https://api.us.sandbox.provider.test/")
	t.Setenv("PROVIDER_TIMEOUT", "15s")
	t.Setenv("REFRESH_INTERVAL", "5m")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "2")
	t.Setenv("MYSQL_ADDR", "localhost:3306")
	t.Setenv("MYSQL_USER", "gateway")
	t.Setenv("MYSQL_DATABASE", "payments")
	t.Setenv("ADMIN_TOKEN", "admin-secret")
	t.Setenv("PAGES", `{"order_received":"https://shop.example.com/checkout/order-received","cart":"https://shop.example.com/cart"}`)

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Port = %s, want 9090", cfg.Port)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %s, want debug", cfg.LogLevel)
	}
	if cfg.Environment != EnvDevelopment {
		t.Errorf("Environment = %s, want development", cfg.Environment)
	}
	if !cfg.Merchant.Enabled {
		t.Error("Merchant.Enabled = false, want true by default")
	}
	if cfg.Merchant.Environment != merchant.Sandbox {
		t.Errorf("Merchant.Environment = %s, want sandbox", cfg.Merchant.Environment)
	}
	if cfg.Merchant.Sandbox.MerchantID != "m-100" || cfg.Merchant.Sandbox.SecretKey != "sk-100" {
		t.Errorf("Sandbox credentials = %+v", cfg.Merchant.Sandbox)
	}
	if cfg.Store.Type != StoreWooCommerce {
		t.Errorf("Store.Type = %s, want woocommerce", cfg.Store.Type)
	}
	if cfg.Provider.Timeout != 15*time.Second {
		t.Errorf("Provider.Timeout = %v, want 15s", cfg.Provider.Timeout)
	}
	if cfg.RefreshInterval != 5*time.Minute {
		t.Errorf("RefreshInterval = %v, want 5m", cfg.RefreshInterval)
	}
	if cfg.Redis == nil || cfg.Redis.Addr != "localhost:6379" || cfg.Redis.DB != 2 {
		t.Errorf("Redis = %+v", cfg.Redis)
	}
	if cfg.MySQL == nil || cfg.MySQL.Database != "payments" {
		t.Errorf("MySQL = %+v", cfg.MySQL)
	}
	if cfg.AdminToken != "admin-secret" {
		t.Errorf("AdminToken = %q", cfg.AdminToken)
	}
	if cfg.Pages.OrderReceived != "https://shop.example.com/checkout/order-received" {
		t.Errorf("Pages.OrderReceived = %q", cfg.Pages.OrderReceived)
	}
	// Generic falls back to the cart page.
	if cfg.Pages.Generic != "https://shop.example.com/cart" {
		t.Errorf("Pages.Generic = %q, want cart page", cfg.Pages.Generic)
	}

	settings := cfg.Settings()
	if settings.IntegrationVersion != "1.4.0" {
		t.Errorf("IntegrationVersion = %q", settings.IntegrationVersion)
	}
	if settings.Limits.Available() {
		t.Error("initial limits should be unavailable")
	}

	pc, err := cfg.ProviderClientConfig()
	if err != nil {
		t.Fatalf("ProviderClientConfig() error: %v", err)
	}
	if got := pc.Endpoints[merchant.Sandbox].APIURL; got != "https://api.sandbox.provider.test" {
		t.Errorf("sandbox endpoint = %q", got)
	}
	if _, ok := pc.Endpoints[merchant.Production]; ok {
		t.Error("production endpoint should be absent when not configured")
	}
	if got := pc.USEndpoints[merchant.Sandbox].APIURL; got != "https://api.us.sandbox.provider.test" {
		t.Errorf("US sandbox endpoint = %q, want trailing slash trimmed", got)
	}
	if pc.Transport == nil {
		t.Error("provider transport should be set")
	}

	cc := cfg.CaptureConfig()
	if cc.ConfirmURL != "https://gateway.example.com/payment/return" || cc.CancelURL != "https://shop.example.com/cart" {
		t.Errorf("CaptureConfig = %+v", cc)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	setMinimalEnv(t)

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("Port = %s, want 8080", cfg.Port)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %s, want info", cfg.LogLevel)
	}
	if cfg.RefreshInterval != merchant.DefaultRefreshInterval {
		t.Errorf("RefreshInterval = %v, want %v", cfg.RefreshInterval, merchant.DefaultRefreshInterval)
	}
	if cfg.Redis != nil || cfg.MySQL != nil {
		t.Error("shared backends should be nil when not configured")
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	setMinimalEnv(t)

	path := filepath.Join(t.TempDir(), "test.env")
	content := "ADMIN_TOKEN=from-dotenv\nPORT=7070\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing env file: %v", err)
	}
	t.Setenv("DOTENV_FILE", path)
	// Already-set variables win over the file.
	t.Setenv("PORT", "9191")

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.AdminToken != "from-dotenv" {
		t.Errorf("AdminToken = %q, want from-dotenv", cfg.AdminToken)
	}
	if cfg.Port != "9191" {
		t.Errorf("Port = %s, want 9191", cfg.Port)
	}
}

func TestLoadMissingRequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		unset   string
		set     map[string]string
		wantErr string
	}{
		{name: "missing sandbox api url", unset: "PROVIDER_SANDBOX_API_URL", wantErr: "sandbox provider api_url is required"},
		{name: "missing store url", unset: "WOOCOMMERCE_STORE_URL", wantErr: "store url is required"},
		{name: "missing api key", unset: "WOOCOMMERCE_API_KEY", wantErr: "store api_key is required"},
		{name: "missing api secret", unset: "WOOCOMMERCE_API_SECRET", wantErr: "store api_secret is required"},
		{name: "missing confirm url", unset: "CHECKOUT_CONFIRM_URL", wantErr: "confirm_url and cancel_url are required"},
		{
			name:    "production provider without endpoint",
			set:     map[string]string{"PROVIDER_ENVIRONMENT": "production"},
			wantErr: "production provider api_url is required",
		},
		{
			name:    "unknown provider environment",
			set:     map[string]string{"PROVIDER_ENVIRONMENT": "staging"},
			wantErr: "provider environment must be",
		},
		{
			name:    "unknown environment",
			set:     map[string]string{"ENVIRONMENT": "qa"},
			wantErr: "environment must be",
		},
		{
			name:    "relative store url",
			set:     map[string]string{"WOOCOMMERCE_STORE_URL": "shop.example.com"},
			wantErr: "invalid store url",
		},
		{
			name:    "unknown transport",
			set:     map[string]string{"WOOCOMMERCE_TRANSPORT": "quic"},
			wantErr: "store transport",
		},
		{
			name:    "unknown store type",
			set:     map[string]string{"STORE_TYPE": "magento"},
			wantErr: "unsupported store type",
		},
		{
			name:    "refresh interval too short",
			set:     map[string]string{"REFRESH_INTERVAL": "10s"},
			wantErr: "refresh interval must be at least",
		},
		{
			name:    "bad duration",
			set:     map[string]string{"PROVIDER_TIMEOUT": "soon"},
			wantErr: "parsing PROVIDER_TIMEOUT",
		},
		{
			name:    "bad enabled flag",
			set:     map[string]string{"PROVIDER_ENABLED": "maybe"},
			wantErr: "parsing PROVIDER_ENABLED",
		},
		{
			name:    "bad redis db",
			set:     map[string]string{"REDIS_ADDR": "localhost:6379", "REDIS_DB": "one"},
			wantErr: "parsing REDIS_DB",
		},
		{
			name:    "mysql without database",
			set:     map[string]string{"MYSQL_ADDR": "localhost:3306"},
			wantErr: "mysql addr and database are required",
		},
		{
			name:    "unknown page key",
			set:     map[string]string{"PAGES": `{"checkout":"https://shop.example.com"}`},
			wantErr: "parsing PAGES JSON",
		},
		{
			name:    "production without return state secret",
			set:     map[string]string{"ENVIRONMENT": "production"},
			wantErr: "return_state_secret is required in production",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			setMinimalEnv(t)
			if tt.unset != "" {
				os.Unsetenv(tt.unset)
			}
			for k, v := range tt.set {
				t.Setenv(k, v)
			}

			_, err := Load(context.Background())
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestMemoryStoreRejectedInProduction(t *testing.T) {
	clearEnv(t)
	setMinimalEnv(t)
	t.Setenv("STORE_TYPE", "memory")

	if _, err := Load(context.Background()); err != nil {
		t.Fatalf("memory store in development: %v", err)
	}

	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("RETURN_STATE_SECRET", "state-secret")
	_, err := Load(context.Background())
	if err == nil || !strings.Contains(err.Error(), "memory store is not allowed") {
		t.Errorf("error = %v, want memory store rejection", err)
	}
}

func TestStoreCurrencySelectsRegion(t *testing.T) {
	clearEnv(t)
	setMinimalEnv(t)

	cfg, err := Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Store.Currency != "AUD" {
		t.Errorf("Store.Currency = %q, want AUD", cfg.Store.Currency)
	}

	t.Setenv("STORE_CURRENCY", "usd")
	if _, err := Load(context.Background()); err == nil || !strings.Contains(err.Error(), "us api_url is required") {
		t.Fatalf("error = %v, want missing us endpoint", err)
	}

	t.Setenv("PROVIDER_US_SANDBOX_API_URL", "https://api.us.sandbox.provider.test")
	cfg, err = Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	pc, err := cfg.ProviderClientConfig()
	if err != nil {
		t.Fatalf("ProviderClientConfig() error = %v", err)
	}
	if pc.StoreCurrency != "USD" {
		t.Errorf("StoreCurrency = %q, want USD", pc.StoreCurrency)
	}

	t.Setenv("STORE_CURRENCY", "EUR")
	if _, err := Load(context.Background()); err == nil || !strings.Contains(err.Error(), "unsupported store currency") {
		t.Errorf("error = %v, want unsupported currency", err)
	}
}

const jsonConfig = `{
  "port": "8081",
  "environment": "development",
  "log_level": "warn",
  "merchant": {
    "enabled": true,
    "environment": "production",
    "production": {"merchant_id": "m-200", "secret_key": "sk-200"},
    "integration_version": "v2.1.0"
  },
  "provider": {
    "sandbox": {"api_url": "https://api.sandbox.provider.test", "web_url": "https://portal.sandbox.provider.test"},
    "production": {"api_url": "https://api.provider.test", "web_url": "https://portal.provider.test"},
    "transport": "chrome"
  },
  "provider_timeout": "25s",
  "store": {"type": "woocommerce", "url": "https://shop.example.com", "api_key": "ck", "api_secret": "cs"},
  "redis": {"addr": "redis:6379", "prefix": "shop:"},
  "checkout": {"confirm_url": "https://gateway.example.com/payment/return", "cancel_url": "https://shop.example.com/cart"},
  "pages": {"cart": "https://shop.example.com/cart", "payment_page": "https://shop.example.com/pay"},
  "refresh_interval": "30m"
}`

const yamlConfig = `
port: "8082"
environment: development
merchant:
  enabled: true
  environment: sandbox
  sandbox:
    merchant_id: m-300
    secret_key: sk-300
provider:
  sandbox:
    api_url: https://api.sandbox.provider.test
    web_url: https://portal.sandbox.provider.test
store:
  type: memory
mysql:
  addr: mysql:3306
  user: gateway
  database: payments
checkout:
  confirm_url: https://gateway.example.com/payment/return
  cancel_url: https://shop.example.com/cart
admin_token: yaml-admin
`

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadFromFile(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CONFIG_FILE", writeConfig(t, "config.json", jsonConfig))

		cfg, err := Load(context.Background())
		if err != nil {
			t.Fatalf("Load() error: %v", err)
		}
		if cfg.Port != "8081" || cfg.LogLevel != "warn" {
			t.Errorf("Port/LogLevel = %s/%s", cfg.Port, cfg.LogLevel)
		}
		if cfg.Merchant.Environment != merchant.Production {
			t.Errorf("Merchant.Environment = %s, want production", cfg.Merchant.Environment)
		}
		if cfg.Merchant.Production.MerchantID != "m-200" {
			t.Errorf("Production.MerchantID = %q", cfg.Merchant.Production.MerchantID)
		}
		if cfg.Provider.Transport != transport.Chrome {
			t.Errorf("Provider.Transport = %q, want chrome", cfg.Provider.Transport)
		}
		if cfg.Provider.Timeout != 25*time.Second {
			t.Errorf("Provider.Timeout = %v, want 25s", cfg.Provider.Timeout)
		}
		if cfg.Redis == nil || cfg.Redis.Prefix != "shop:" {
			t.Errorf("Redis = %+v", cfg.Redis)
		}
		if cfg.RefreshInterval != 30*time.Minute {
			t.Errorf("RefreshInterval = %v, want 30m", cfg.RefreshInterval)
		}
		if cfg.Pages.Generic != "https://shop.example.com/cart" {
			t.Errorf("Pages.Generic = %q, want cart fallback", cfg.Pages.Generic)
		}
	})

	t.Run("yaml", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CONFIG_FILE", writeConfig(t, "config.yaml", yamlConfig))

		cfg, err := Load(context.Background())
		if err != nil {
			t.Fatalf("Load() error: %v", err)
		}
		if cfg.Port != "8082" {
			t.Errorf("Port = %s, want 8082", cfg.Port)
		}
		if cfg.Store.Type != StoreMemory {
			t.Errorf("Store.Type = %q, want memory", cfg.Store.Type)
		}
		if cfg.Merchant.Sandbox.SecretKey != "sk-300" {
			t.Errorf("Sandbox.SecretKey = %q", cfg.Merchant.Sandbox.SecretKey)
		}
		if cfg.MySQL == nil || cfg.MySQL.User != "gateway" {
			t.Errorf("MySQL = %+v", cfg.MySQL)
		}
		if cfg.AdminToken != "yaml-admin" {
			t.Errorf("AdminToken = %q", cfg.AdminToken)
		}
	})
}

func TestLoadFromFileErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{
			name:    "unknown json key",
			file:    "config.json",
			content: `{"port": "8080", "store_kind": "legacy"}`,
			wantErr: "parsing config file",
		},
		{
			name:    "unknown yaml key",
			file:    "config.yml",
			content: "port: \"8080\"\nstore_kind: legacy\n",
			wantErr: "parsing config file",
		},
		{
			name:    "invalid json",
			file:    "config.json",
			content: `{not json`,
			wantErr: "parsing config file",
		},
		{
			name:    "bad duration",
			file:    "config.json",
			content: `{"refresh_interval": "often"}`,
			wantErr: "parsing refresh_interval",
		},
		{
			name:    "empty yaml fails validation",
			file:    "config.yaml",
			content: "",
			wantErr: "sandbox provider api_url is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("CONFIG_FILE", writeConfig(t, tt.file, tt.content))

			_, err := Load(context.Background())
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want to contain %q", err.Error(), tt.wantErr)
			}
		})
	}

	t.Run("missing file", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.json"))
		_, err := Load(context.Background())
		if err == nil || !strings.Contains(err.Error(), "reading config file") {
			t.Errorf("error = %v, want reading config file", err)
		}
	})
}

type fakeSecrets struct {
	payload string
	err     error
	name    string
}

func (f *fakeSecrets) Access(_ context.Context, name string) ([]byte, error) {
	f.name = name
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.payload), nil
}

func TestLoadSecrets(t *testing.T) {
	setProductionEnv := func(t *testing.T) {
		clearEnv(t)
		setMinimalEnv(t)
		t.Setenv("ENVIRONMENT", "production")
		t.Setenv("GCP_PROJECT", "shop-prod")
		t.Setenv("SECRET_NAME", "bnpl-merchant")
		t.Setenv("WOOCOMMERCE_API_SECRET", "plain-secret")
	}

	t.Run("overlay", func(t *testing.T) {
		setProductionEnv(t)
		src := &fakeSecrets{payload: `{
			"production": {"merchant_id": "m-live", "secret_key": "sk-live"},
			"store_api_secret": "cs_live",
			"return_state_secret": "state-secret",
			"admin_token": "live-admin"
		}`}

		cfg, err := load(context.Background(), src)
		if err != nil {
			t.Fatalf("load() error: %v", err)
		}
		if src.name != "projects/shop-prod/secrets/bnpl-merchant/versions/latest" {
			t.Errorf("secret name = %q", src.name)
		}
		if cfg.Merchant.Production.MerchantID != "m-live" {
			t.Errorf("Production.MerchantID = %q", cfg.Merchant.Production.MerchantID)
		}
		if cfg.Store.APISecret != "cs_live" {
			t.Errorf("Store.APISecret = %q, want secret value", cfg.Store.APISecret)
		}
		// Absent secret fields keep the plain configuration.
		if cfg.Store.APIKey != "ck_test123" {
			t.Errorf("Store.APIKey = %q, want env value", cfg.Store.APIKey)
		}
		if cfg.ReturnStateSecret != "state-secret" || cfg.AdminToken != "live-admin" {
			t.Errorf("ReturnStateSecret/AdminToken = %q/%q", cfg.ReturnStateSecret, cfg.AdminToken)
		}
	})

	t.Run("access error", func(t *testing.T) {
		setProductionEnv(t)
		_, err := load(context.Background(), &fakeSecrets{err: errors.New("permission denied")})
		if err == nil || !strings.Contains(err.Error(), "permission denied") {
			t.Errorf("error = %v, want permission denied", err)
		}
	})

	t.Run("unknown secret key", func(t *testing.T) {
		setProductionEnv(t)
		_, err := load(context.Background(), &fakeSecrets{payload: `{"api_key": "x"}`})
		if err == nil || !strings.Contains(err.Error(), "parsing secret JSON") {
			t.Errorf("error = %v, want parsing secret JSON", err)
		}
	})

	t.Run("missing project", func(t *testing.T) {
		setProductionEnv(t)
		os.Unsetenv("GCP_PROJECT")
		_, err := load(context.Background(), &fakeSecrets{payload: `{}`})
		if err == nil || !strings.Contains(err.Error(), "GCP_PROJECT required") {
			t.Errorf("error = %v, want GCP_PROJECT required", err)
		}
	})
}

func TestEnvOrDefault(t *testing.T) {
	t.Setenv("TEST_VAR_SET", "custom")
	os.Unsetenv("TEST_VAR_UNSET")

	if got := envOrDefault("TEST_VAR_SET", "default"); got != "custom" {
		t.Errorf("envOrDefault(set) = %s, want custom", got)
	}
	if got := envOrDefault("TEST_VAR_UNSET", "default"); got != "default" {
		t.Errorf("envOrDefault(unset) = %s, want default", got)
	}
}

func TestWithDefault(t *testing.T) {
	if got := withDefault("", "fallback"); got != "fallback" {
		t.Errorf("withDefault(\"\") = %q, want fallback", got)
	}
	if got := withDefault("value", "fallback"); got != "value" {
		t.Errorf("withDefault(value) = %q, want value", got)
	}
}
