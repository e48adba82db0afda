package main

import (
	"context"
	"errors"
	"tourbook/internal/notifications"
	"tourbook/pkg/app"
	"tourbook/pkg/cache"
	"tourbook/pkg/config"
	"tourbook/pkg/kafka"
	kafka_config "tourbook/pkg/kafka/config"
	kafka_middleware "tourbook/pkg/kafka/middleware"
)

const ServiceName = "notifications"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetRedis()

	cfg.Log.Info("Starting Notifications worker")
	consumer := initConsumer(cfg)

	serverApp := app.NewApplication(cfg)
	serverApp.AddWorker(func(ctx context.Context) {
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			cfg.Log.Fatal("Notification consumer stopped", "error", err)
		}
	})
	serverApp.OnShutdown(consumer.Close)
	serverApp.SetApp(nil)
	serverApp.Run()
}

func initConsumer(cfg *config.Config) *kafka.Consumer {
	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	handler := notifications.NewHandler(
		notifications.NewLogSender(cfg.Log),
		cache.NewStore(cfg.Client.Redis),
		cfg.NotificationDedupTTL,
		cfg.Log,
		cfg.Metrics,
	)

	consumer, err := kafka.NewConsumer(
		kafkaCfg,
		cfg.BookingJobsTopic,
		cfg.NotificationsGroupID,
		cfg.BookingJobsDLQTopic,
		handler.Handle,
		cfg.Log,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}
	consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
	consumer.Use(kafka_middleware.MetricsConsumerMiddleware(cfg.Metrics))

	cfg.Log.Info("Notification consumer initialized",
		"topic", cfg.BookingJobsTopic,
		"group_id", cfg.NotificationsGroupID,
		"dlq_topic", cfg.BookingJobsDLQTopic,
	)
	return consumer
}
