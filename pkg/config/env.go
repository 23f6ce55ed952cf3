package config

// EnvPrefix is empty because every envconfig tag already carries the full name.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv             = "STOREFRONT_APP_ENV"
	EnvPort               = "STOREFRONT_APP_PORT"
	EnvDBDSN              = "STOREFRONT_DB_DSN"
	EnvDBHost             = "STOREFRONT_DB_HOST"
	EnvDBUser             = "STOREFRONT_DB_USER"
	EnvDBName             = "STOREFRONT_DB_NAME"
	EnvRedisURL           = "STOREFRONT_REDIS_URL"
	EnvJWTSecret          = "STOREFRONT_JWT_SECRET"
	EnvJWTIssuer          = "STOREFRONT_JWT_ISSUER"
	EnvJWTExpMins         = "STOREFRONT_JWT_EXPIRATION_MINUTES"
	EnvPricingTolerance   = "STOREFRONT_PRICING_TOLERANCE"
	EnvShippingGuestLimit = "STOREFRONT_SHIPPING_GUEST_RATE_LIMIT"
	EnvUseSQLite          = "STOREFRONT_USE_SQLITE"
	EnvCronInterval       = "STOREFRONT_CRON_INTERVAL"
	EnvCronLockTTL        = "STOREFRONT_CRON_LOCK_TTL"
)

var splitDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
