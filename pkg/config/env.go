package config

const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	StorageDriverMemory = "memory"
	StorageDriverSQLite = "sqlite"
	StorageDriverRedis  = "redis"
)

const (
	EnvAppEnv            = "STOREFRONT_APP_ENV"
	EnvLogLevel          = "STOREFRONT_LOG_LEVEL"
	EnvLogFormat         = "STOREFRONT_LOG_FORMAT"
	EnvStorageDriver     = "STOREFRONT_STORAGE_DRIVER"
	EnvGuestCartKey      = "STOREFRONT_GUEST_CART_KEY"
	EnvStorageSQLitePath = "STOREFRONT_STORAGE_SQLITE_PATH"
	EnvRedisURL          = "STOREFRONT_REDIS_URL"
	EnvRedisAddr         = "STOREFRONT_REDIS_ADDR"
	EnvBackendURL        = "STOREFRONT_BACKEND_URL"
	EnvBackendTimeout    = "STOREFRONT_BACKEND_TIMEOUT"
	EnvAuthUserID        = "STOREFRONT_AUTH_USER_ID"
	EnvAuthAccessToken   = "STOREFRONT_AUTH_ACCESS_TOKEN"
	EnvAuthJWTSecret     = "STOREFRONT_AUTH_JWT_SECRET"
	EnvMetricsAddr       = "STOREFRONT_METRICS_ADDR"
	EnvDevCORSOrigins    = "STOREFRONT_DEV_CORS_ORIGINS"
)
