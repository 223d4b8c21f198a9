package config

const (
	EnvPrefix = "PRICING"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv          = "PRICING_APP_ENV"
	EnvPort            = "PRICING_APP_PORT"
	EnvLogLevel        = "PRICING_LOG_LEVEL"
	EnvDBDSN           = "PRICING_DB_DSN"
	EnvDBHost          = "PRICING_DB_HOST"
	EnvDBUser          = "PRICING_DB_USER"
	EnvDBName          = "PRICING_DB_NAME"
	EnvRedisURL        = "PRICING_REDIS_URL"
	EnvJWTSecret       = "PRICING_JWT_SECRET"
	EnvJWTIssuer       = "PRICING_JWT_ISSUER"
	EnvPricingTimezone = "PRICING_TIMEZONE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
