package config

const EnvPrefix = "OCCASIONBUDDY"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	OrderPolicyPermissive = "permissive"
	OrderPolicyStrict     = "strict"
)

const (
	EnvAppEnv                 = "OCCASIONBUDDY_APP_ENV"
	EnvPort                   = "OCCASIONBUDDY_APP_PORT"
	EnvLogLevel               = "OCCASIONBUDDY_LOG_LEVEL"
	EnvDBDSN                  = "OCCASIONBUDDY_DB_DSN"
	EnvDBHost                 = "OCCASIONBUDDY_DB_HOST"
	EnvDBUser                 = "OCCASIONBUDDY_DB_USER"
	EnvDBName                 = "OCCASIONBUDDY_DB_NAME"
	EnvDBPassword             = "OCCASIONBUDDY_DB_PASSWORD"
	EnvRedisURL               = "OCCASIONBUDDY_REDIS_URL"
	EnvJWTSecret              = "OCCASIONBUDDY_JWT_SECRET"
	EnvJWTIssuer              = "OCCASIONBUDDY_JWT_ISSUER"
	EnvJWTExpMins             = "OCCASIONBUDDY_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "OCCASIONBUDDY_REFRESH_TOKEN_TTL_MINUTES"
	EnvGCPProjectID           = "OCCASIONBUDDY_GCP_PROJECT_ID"
	EnvPubSubDomainTopic      = "OCCASIONBUDDY_PUBSUB_DOMAIN_TOPIC"
	EnvPubSubNotificationSub  = "OCCASIONBUDDY_PUBSUB_NOTIFICATION_SUBSCRIPTION"
	EnvPubSubAnalyticsSub     = "OCCASIONBUDDY_PUBSUB_ANALYTICS_SUBSCRIPTION"
	EnvOrderTransitionPolicy  = "OCCASIONBUDDY_ORDER_TRANSITION_POLICY"
	EnvToastDefaultDuration   = "OCCASIONBUDDY_TOAST_DEFAULT_DURATION"
	EnvOutboxMaxAttempts      = "OCCASIONBUDDY_OUTBOX_MAX_ATTEMPTS"
)
