package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "tourbook"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultRedisAddr        = "localhost:6379"
	DefaultRedisDB          = 0
	DefaultRedisDialTimeout = 5 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	LockBackendRedis = "redis"
	LockBackendMongo = "mongo"

	DefaultLockBackend     = LockBackendRedis
	DefaultBookingLockTTL  = 5 * time.Second
	DefaultCatalogCacheTTL = 300 * time.Second

	DefaultUsersServiceURL     = "http://localhost:8083"
	DefaultUsersServiceTimeout = 3 * time.Second

	DefaultBookingJobsTopic     = "booking-jobs"
	DefaultBookingJobsDLQTopic  = "booking-jobs-dlq"
	DefaultNotificationsGroupID = "notifications"
	DefaultNotificationDedupTTL = 24 * time.Hour

	DefaultOutboxPollInterval = 10 * time.Second
	DefaultOutboxMaxAttempts  = 20

	DefaultPaginationLimit = 100
)
