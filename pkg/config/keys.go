package config

const (
	EnvPrefix = "FRESHBASKET"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv   = "FRESHBASKET_APP_ENV"
	EnvPort     = "FRESHBASKET_APP_PORT"
	EnvLogLevel = "FRESHBASKET_LOG_LEVEL"

	EnvDBDSN  = "FRESHBASKET_DB_DSN"
	EnvDBHost = "FRESHBASKET_DB_HOST"
	EnvDBUser = "FRESHBASKET_DB_USER"
	EnvDBName = "FRESHBASKET_DB_NAME"

	EnvRedisURL = "FRESHBASKET_REDIS_URL"

	EnvJWTSecret  = "FRESHBASKET_JWT_SECRET"
	EnvJWTIssuer  = "FRESHBASKET_JWT_ISSUER"
	EnvJWTExpMins = "FRESHBASKET_JWT_EXPIRATION_MINUTES"

	EnvUseSQLite  = "FRESHBASKET_USE_SQLITE"
	EnvSQLitePath = "FRESHBASKET_SQLITE_PATH"

	EnvPricingDeliveryTiers  = "FRESHBASKET_PRICING_DELIVERY_TIERS"
	EnvPricingMinimumOrder   = "FRESHBASKET_PRICING_MINIMUM_ORDER"
	EnvPricingServiceFeeKind = "FRESHBASKET_PRICING_SERVICE_FEE_KIND"
	EnvPricingServiceFee     = "FRESHBASKET_PRICING_SERVICE_FEE_VALUE"

	EnvGCPProjectID       = "FRESHBASKET_GCP_PROJECT_ID"
	EnvPubSubLoyaltyTopic = "FRESHBASKET_PUBSUB_LOYALTY_TOPIC"
)

// legacyDBEnvVars must all be present when no DSN is provided.
var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
