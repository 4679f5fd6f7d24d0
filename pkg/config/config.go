package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App     AppConfig
	Storage StorageConfig
	Redis   RedisConfig
	Backend BackendConfig
	Auth    AuthConfig
	Metrics MetricsConfig
	Dev     DevBackendConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" default:"dev"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"warn"`
	LogFormat    string `envconfig:"STOREFRONT_LOG_FORMAT" default:"console"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// StorageConfig selects the client-local key-value storage holding the guest cart.
type StorageConfig struct {
	Driver       string        `envconfig:"STOREFRONT_STORAGE_DRIVER" default:"sqlite"`
	GuestCartKey string        `envconfig:"STOREFRONT_GUEST_CART_KEY" default:"guestCart"`
	SQLitePath   string        `envconfig:"STOREFRONT_STORAGE_SQLITE_PATH" default:"storefront-cart.db"`
	OpTimeout    time.Duration `envconfig:"STOREFRONT_STORAGE_OP_TIMEOUT" default:"2s"`
}

// NormalizedDriver returns the lower-cased driver name.
func (s StorageConfig) NormalizedDriver() string {
	return strings.ToLower(strings.TrimSpace(s.Driver))
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"4"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"1"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"2s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"2s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"2s"`
}

// BackendConfig points the remote cart client at the storefront REST API.
type BackendConfig struct {
	BaseURL string        `envconfig:"STOREFRONT_BACKEND_URL" default:"http://localhost:8081/api/v1"`
	Timeout time.Duration `envconfig:"STOREFRONT_BACKEND_TIMEOUT" default:"10s"`
}

type AuthConfig struct {
	UserID      string `envconfig:"STOREFRONT_AUTH_USER_ID"`
	AccessToken string `envconfig:"STOREFRONT_AUTH_ACCESS_TOKEN"`
	JWTSecret   string `envconfig:"STOREFRONT_AUTH_JWT_SECRET"`
	JWTIssuer   string `envconfig:"STOREFRONT_AUTH_JWT_ISSUER" default:"grocery-store"`
}

type MetricsConfig struct {
	Addr string `envconfig:"STOREFRONT_METRICS_ADDR"`
}

// DevBackendConfig tunes the in-memory cart backend served by cartctl.
type DevBackendConfig struct {
	CORSOrigins []string `envconfig:"STOREFRONT_DEV_CORS_ORIGINS" default:"http://localhost:3000,http://localhost:5173"`
}

func (c *Config) validate() error {
	switch c.Storage.NormalizedDriver() {
	case StorageDriverMemory:
	case StorageDriverSQLite:
		if strings.TrimSpace(c.Storage.SQLitePath) == "" {
			return fmt.Errorf("%s is required for the sqlite storage driver", EnvStorageSQLitePath)
		}
	case StorageDriverRedis:
		if c.Redis.URL == "" && c.Redis.Address == "" {
			return fmt.Errorf("either %s or %s is required for the redis storage driver", EnvRedisURL, EnvRedisAddr)
		}
	default:
		return fmt.Errorf("unsupported %s %q", EnvStorageDriver, c.Storage.Driver)
	}

	if strings.TrimSpace(c.Storage.GuestCartKey) == "" {
		return fmt.Errorf("%s must not be empty", EnvGuestCartKey)
	}

	parsed, err := url.Parse(strings.TrimSpace(c.Backend.BaseURL))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("%s must be an absolute url, got %q", EnvBackendURL, c.Backend.BaseURL)
	}

	if c.Auth.AccessToken != "" && c.Auth.JWTSecret == "" {
		return fmt.Errorf("%s is required when %s is set", EnvAuthJWTSecret, EnvAuthAccessToken)
	}
	return nil
}
