package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App        AppConfig
	Admin      AdminConfig
	Storefront StorefrontConfig
	Checkout   CheckoutConfig
	Redis      RedisConfig
	DB         DBConfig
	LocalStore LocalStoreConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.LocalStore.validate(); err != nil {
		return nil, err
	}
	if err := cfg.DB.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" default:"dev"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// AdminConfig locates the admin service. URL is the canonical setting and is
// expected to be a bare origin; LegacyPublicAPIURL is read only for
// deployments that still carry the old storefront variable.
type AdminConfig struct {
	URL                string `envconfig:"STOREFRONT_ADMIN_URL"`
	LegacyPublicAPIURL string `envconfig:"STOREFRONT_PUBLIC_API_URL"`
	StoreID            string `envconfig:"STOREFRONT_STORE_ID"`
}

// BaseURL returns the configured admin address, preferring the canonical
// variable. The second return value reports whether the legacy variable was used.
func (a AdminConfig) BaseURL() (string, bool) {
	if v := strings.TrimSpace(a.URL); v != "" {
		return v, false
	}
	if v := strings.TrimSpace(a.LegacyPublicAPIURL); v != "" {
		return v, true
	}
	return "", false
}

// CatalogURL is the base for product listing calls. The legacy public API
// value historically pointed at the store-scoped catalog, so it wins when set.
func (a AdminConfig) CatalogURL() string {
	if v := strings.TrimSpace(a.LegacyPublicAPIURL); v != "" {
		return strings.TrimRight(v, "/")
	}
	v, _ := a.BaseURL()
	if v == "" {
		return ""
	}
	v = strings.TrimRight(v, "/")
	if id := strings.TrimSpace(a.StoreID); id != "" {
		return v + "/api/" + id
	}
	return v
}

type StorefrontConfig struct {
	PublicURL      string   `envconfig:"STOREFRONT_PUBLIC_URL"`
	AllowedOrigins []string `envconfig:"STOREFRONT_CORS_ORIGINS" default:"http://localhost:3000"`
}

type CheckoutConfig struct {
	IdempotencyTTL   time.Duration `envconfig:"STOREFRONT_CHECKOUT_IDEMPOTENCY_TTL" default:"168h"`
	CommitWindow     time.Duration `envconfig:"STOREFRONT_CHECKOUT_RATE_LIMIT_WINDOW" default:"1m"`
	CommitIPLimit    int           `envconfig:"STOREFRONT_CHECKOUT_RATE_LIMIT_IP_LIMIT" default:"10"`
	CartTTL          time.Duration `envconfig:"STOREFRONT_CART_TTL" default:"720h"`
	DisableRateLimit bool          `envconfig:"STOREFRONT_CHECKOUT_DISABLE_RATE_LIMIT" default:"false"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether any redis endpoint is configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type DBConfig struct {
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"sqlite"`
	DSN    string `envconfig:"STOREFRONT_DB_DSN" default:"storefront.db"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"4"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (db DBConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(db.Driver)) {
	case DBDriverSQLite, DBDriverPostgres:
	default:
		return fmt.Errorf("%s must be one of %s, %s", EnvDBDriver, DBDriverSQLite, DBDriverPostgres)
	}
	if strings.TrimSpace(db.DSN) == "" {
		return fmt.Errorf("%s is required", EnvDBDSN)
	}
	return nil
}

// LocalStoreConfig selects where the shopper-side cart document lives.
type LocalStoreConfig struct {
	Backend string `envconfig:"STOREFRONT_LOCAL_STORE" default:"sql"`
	Dir     string `envconfig:"STOREFRONT_LOCAL_STORE_DIR" default:".storefront"`
}

func (l LocalStoreConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(l.Backend)) {
	case LocalStoreFile, LocalStoreSQL:
		return nil
	}
	return fmt.Errorf("%s must be one of %s, %s", EnvLocalStore, LocalStoreFile, LocalStoreSQL)
}
