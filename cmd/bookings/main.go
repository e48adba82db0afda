package main

import (
	"tourbook/internal/bookings/handler"
	"tourbook/internal/bookings/repository"
	"tourbook/internal/bookings/service"
	"tourbook/internal/bookings/validator"
	toursrepo "tourbook/internal/tours/repository"
	"tourbook/pkg/app"
	"tourbook/pkg/client"
	"tourbook/pkg/config"
	"tourbook/pkg/jobs"
	"tourbook/pkg/kafka"
	kafka_config "tourbook/pkg/kafka/config"
	kafka_middleware "tourbook/pkg/kafka/middleware"
	"tourbook/pkg/lock"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting Bookings service")
	serverApp := app.NewApplication(cfg)

	producer := initProducer(cfg)
	serverApp.OnShutdown(producer.Close)
	queue := jobs.NewKafkaQueue(producer)

	outbox := repository.NewMongoOutboxRepository(cfg)
	bookingService := initServices(cfg, outbox, queue)
	serverApp.AddWorker(service.NewOutboxRelay(outbox, queue, cfg).Run)

	serverApp.SetApp(handler.NewBookingHandler(bookingService, cfg.Log))
	serverApp.Run()
}

func initProducer(cfg *config.Config) *kafka.Producer {
	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.BookingJobsTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	producer.Use(kafka_middleware.MetricsProducerMiddleware(cfg.Metrics))
	return producer
}

func initLocker(cfg *config.Config) lock.Locker {
	var locker lock.Locker
	switch cfg.LockBackend {
	case config.LockBackendMongo:
		locker = lock.NewMongoLocker(cfg.Client.Mongo.Database(cfg.MongoDatabaseName))
	default:
		locker = lock.NewRedisLocker(cfg.Client.Redis)
	}
	cfg.Log.Info("Booking lock backend selected", "backend", cfg.LockBackend, "ttl", cfg.BookingLockTTL)
	return lock.WithMetrics(locker, cfg.Metrics)
}

func initServices(cfg *config.Config, outbox repository.OutboxRepository, queue *jobs.KafkaQueue) service.BookingService {
	bookingService := service.NewBookingService(service.Dependencies{
		Bookings:  repository.NewMongoBookingRepository(cfg),
		Outbox:    outbox,
		Tours:     toursrepo.NewMongoTourRepository(cfg),
		Users:     client.NewUserClient(cfg.UsersServiceURL, cfg.UsersServiceTimeout),
		Locker:    initLocker(cfg),
		Queue:     queue,
		Validator: validator.NewBookingValidator(cfg.Log),
	}, cfg)

	cfg.Log.Info("Booking service initialized", "database", cfg.MongoDatabaseName)
	return bookingService
}
