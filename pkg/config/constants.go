package config

const EnvPrefix = "KHMART"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

const (
	EnvAppEnv   = "KHMART_APP_ENV"
	EnvPort     = "KHMART_APP_PORT"
	EnvLogLevel = "KHMART_LOG_LEVEL"

	EnvDBDSN    = "KHMART_DB_DSN"
	EnvDBHost   = "KHMART_DB_HOST"
	EnvDBUser   = "KHMART_DB_USER"
	EnvDBName   = "KHMART_DB_NAME"
	EnvRedisURL = "KHMART_REDIS_URL"

	EnvJWTSecret  = "KHMART_JWT_SECRET"
	EnvJWTIssuer  = "KHMART_JWT_ISSUER"
	EnvJWTExpMins = "KHMART_JWT_EXPIRATION_MINUTES"

	EnvPayWayMerchantID = "KHMART_PAYWAY_MERCHANT_ID"
	EnvPayWayAPIKey     = "KHMART_PAYWAY_API_KEY"
	EnvPayWayBaseURL    = "KHMART_PAYWAY_BASE_URL"

	EnvGCPProjectID      = "KHMART_GCP_PROJECT_ID"
	EnvPubSubOrdersTopic = "KHMART_PUBSUB_ORDERS_TOPIC"
	EnvPubSubAlertsTopic = "KHMART_PUBSUB_ALERTS_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
