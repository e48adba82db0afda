package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"
	"tourbook/pkg/client"
	"tourbook/pkg/logger"
	"tourbook/pkg/metrics"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	RedisDialTimeout time.Duration

	Port string

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	LockBackend     string
	BookingLockTTL  time.Duration
	CatalogCacheTTL time.Duration

	UsersServiceURL     string
	UsersServiceTimeout time.Duration

	BookingJobsTopic     string
	BookingJobsDLQTopic  string
	NotificationsGroupID string
	NotificationDedupTTL time.Duration

	OutboxPollInterval time.Duration
	OutboxMaxAttempts  int

	Log      *logger.Logger
	Client   *client.Client
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry
}

// Load reads the process environment (and a .env file when present) once and
// returns the parameter object every component is built from.
func Load(serviceName string) *Config {
	_ = godotenv.Load()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		RedisAddr:        getEnvStr(EnvRedisAddr, DefaultRedisAddr),
		RedisPassword:    getEnvStr(EnvRedisPassword, ""),
		RedisDB:          getEnvNum(EnvRedisDB, DefaultRedisDB),
		RedisDialTimeout: getEnvDuration(EnvRedisDialTimeout, DefaultRedisDialTimeout),

		Port: getEnvStr(EnvPort, DefaultPort),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		LockBackend:     getEnvStr(EnvLockBackend, DefaultLockBackend),
		BookingLockTTL:  getEnvDuration(EnvBookingLockTTL, DefaultBookingLockTTL),
		CatalogCacheTTL: getEnvDuration(EnvCatalogCacheTTL, DefaultCatalogCacheTTL),

		UsersServiceURL:     getEnvStr(EnvUsersServiceURL, DefaultUsersServiceURL),
		UsersServiceTimeout: getEnvDuration(EnvUsersServiceTimeout, DefaultUsersServiceTimeout),

		BookingJobsTopic:     getEnvStr(EnvBookingJobsTopic, DefaultBookingJobsTopic),
		BookingJobsDLQTopic:  getEnvStr(EnvBookingJobsDLQTopic, DefaultBookingJobsDLQTopic),
		NotificationsGroupID: getEnvStr(EnvNotificationsGroupID, DefaultNotificationsGroupID),
		NotificationDedupTTL: getEnvDuration(EnvNotificationDedupTTL, DefaultNotificationDedupTTL),

		OutboxPollInterval: getEnvDuration(EnvOutboxPollInterval, DefaultOutboxPollInterval),
		OutboxMaxAttempts:  getEnvNum(EnvOutboxMaxAttempts, DefaultOutboxMaxAttempts),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client:   client.NewClient(),
		Metrics:  metrics.New(serviceName, registry),
		Registry: registry,
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) SetRedis() {
	cfg.Client.SetRedis(cfg.Log, client.RedisConfig{
		Addr:        cfg.RedisAddr,
		Password:    cfg.RedisPassword,
		DB:          cfg.RedisDB,
		DialTimeout: cfg.RedisDialTimeout,
	})
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if len(cfg.MongoURI) < 10 || !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
	}
	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}
	if cfg.MongoConnTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("MongoConnTimeout must be positive, got: %s", cfg.MongoConnTimeout))
	}

	if cfg.RedisAddr == "" {
		errors = append(errors, "RedisAddr cannot be empty")
	}
	if cfg.RedisDB < 0 {
		errors = append(errors, fmt.Sprintf("RedisDB cannot be negative, got: %d", cfg.RedisDB))
	}
	if cfg.RedisDialTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RedisDialTimeout must be positive, got: %s", cfg.RedisDialTimeout))
	}

	if cfg.RequestTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("RequestTimeout must be positive, got: %s", cfg.RequestTimeout))
	}
	if cfg.IdempotencyTTL <= 0 {
		errors = append(errors, fmt.Sprintf("IdempotencyTTL must be positive, got: %s", cfg.IdempotencyTTL))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.ReadTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ReadTimeout must be positive, got: %s", cfg.ReadTimeout))
	}
	if cfg.WriteTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("WriteTimeout must be positive, got: %s", cfg.WriteTimeout))
	}
	if cfg.IdleTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("IdleTimeout must be positive, got: %s", cfg.IdleTimeout))
	}
	if cfg.ShutdownTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("ShutdownTimeout must be positive, got: %s", cfg.ShutdownTimeout))
	}

	if cfg.LockBackend != LockBackendRedis && cfg.LockBackend != LockBackendMongo {
		errors = append(errors, fmt.Sprintf("LockBackend must be one of [%s, %s], got: %s", LockBackendRedis, LockBackendMongo, cfg.LockBackend))
	}
	if cfg.BookingLockTTL <= 0 {
		errors = append(errors, fmt.Sprintf("BookingLockTTL must be positive, got: %s", cfg.BookingLockTTL))
	}
	if cfg.CatalogCacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("CatalogCacheTTL must be positive, got: %s", cfg.CatalogCacheTTL))
	}

	if !regexp.MustCompile(`^https?://`).MatchString(cfg.UsersServiceURL) {
		errors = append(errors, fmt.Sprintf("UsersServiceURL must start with 'http://' or 'https://', got: %s", cfg.UsersServiceURL))
	}
	if cfg.UsersServiceTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("UsersServiceTimeout must be positive, got: %s", cfg.UsersServiceTimeout))
	}

	if cfg.BookingJobsTopic == "" {
		errors = append(errors, "BookingJobsTopic cannot be empty")
	}
	if cfg.BookingJobsDLQTopic == cfg.BookingJobsTopic {
		errors = append(errors, "BookingJobsDLQTopic must differ from BookingJobsTopic")
	}
	if cfg.NotificationsGroupID == "" {
		errors = append(errors, "NotificationsGroupID cannot be empty")
	}
	if cfg.NotificationDedupTTL <= 0 {
		errors = append(errors, fmt.Sprintf("NotificationDedupTTL must be positive, got: %s", cfg.NotificationDedupTTL))
	}

	if cfg.OutboxPollInterval <= 0 {
		errors = append(errors, fmt.Sprintf("OutboxPollInterval must be positive, got: %s", cfg.OutboxPollInterval))
	}
	if cfg.OutboxMaxAttempts <= 0 {
		errors = append(errors, fmt.Sprintf("OutboxMaxAttempts must be positive, got: %d", cfg.OutboxMaxAttempts))
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"redis_addr", cfg.RedisAddr,
		"redis_db", cfg.RedisDB,
		"redis_password_set", cfg.RedisPassword != "",
		"port", cfg.Port,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"lock_backend", cfg.LockBackend,
		"booking_lock_ttl", cfg.BookingLockTTL,
		"catalog_cache_ttl", cfg.CatalogCacheTTL,
		"users_service_url", cfg.UsersServiceURL,
		"users_service_timeout", cfg.UsersServiceTimeout,
		"booking_jobs_topic", cfg.BookingJobsTopic,
		"booking_jobs_dlq_topic", cfg.BookingJobsDLQTopic,
		"notifications_group_id", cfg.NotificationsGroupID,
		"notification_dedup_ttl", cfg.NotificationDedupTTL,
		"outbox_poll_interval", cfg.OutboxPollInterval,
		"outbox_max_attempts", cfg.OutboxMaxAttempts,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
