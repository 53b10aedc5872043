package config

const (
	EnvPrefix = "STOREFRONT"

	EnvAppEnv   = "STOREFRONT_APP_ENV"
	EnvPort     = "STOREFRONT_APP_PORT"
	EnvLogLevel = "STOREFRONT_LOG_LEVEL"

	EnvAdminURL           = "STOREFRONT_ADMIN_URL"
	EnvLegacyPublicAPIURL = "STOREFRONT_PUBLIC_API_URL"
	EnvStoreID            = "STOREFRONT_STORE_ID"

	EnvPublicURL   = "STOREFRONT_PUBLIC_URL"
	EnvCORSOrigins = "STOREFRONT_CORS_ORIGINS"

	EnvCheckoutIdempotencyTTL = "STOREFRONT_CHECKOUT_IDEMPOTENCY_TTL"
	EnvCheckoutIPLimit        = "STOREFRONT_CHECKOUT_RATE_LIMIT_IP_LIMIT"

	EnvRedisURL = "STOREFRONT_REDIS_URL"

	EnvDBDriver = "STOREFRONT_DB_DRIVER"
	EnvDBDSN    = "STOREFRONT_DB_DSN"

	EnvLocalStore    = "STOREFRONT_LOCAL_STORE"
	EnvLocalStoreDir = "STOREFRONT_LOCAL_STORE_DIR"
)

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverSQLite   = "sqlite"
	DBDriverPostgres = "postgres"

	LocalStoreFile = "file"
	LocalStoreSQL  = "sql"
)
