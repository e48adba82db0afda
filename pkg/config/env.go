package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvRedisAddr        = "REDIS_ADDR"
	EnvRedisPassword    = "REDIS_PASSWORD"
	EnvRedisDB          = "REDIS_DB"
	EnvRedisDialTimeout = "REDIS_DIAL_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvLockBackend     = "LOCK_BACKEND"
	EnvBookingLockTTL  = "BOOKING_LOCK_TTL"
	EnvCatalogCacheTTL = "CATALOG_CACHE_TTL"

	EnvUsersServiceURL     = "USERS_SERVICE_URL"
	EnvUsersServiceTimeout = "USERS_SERVICE_TIMEOUT"

	EnvBookingJobsTopic     = "BOOKING_JOBS_TOPIC"
	EnvBookingJobsDLQTopic  = "BOOKING_JOBS_DLQ_TOPIC"
	EnvNotificationsGroupID = "NOTIFICATIONS_GROUP_ID"
	EnvNotificationDedupTTL = "NOTIFICATION_DEDUP_TTL"

	EnvOutboxPollInterval = "OUTBOX_POLL_INTERVAL"
	EnvOutboxMaxAttempts  = "OUTBOX_MAX_ATTEMPTS"
)
