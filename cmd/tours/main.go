package main

import (
	"tourbook/internal/tours/cache"
	"tourbook/internal/tours/handler"
	"tourbook/internal/tours/repository"
	"tourbook/internal/tours/service"
	"tourbook/internal/tours/validator"
	"tourbook/pkg/app"
	rediscache "tourbook/pkg/cache"
	"tourbook/pkg/config"
)

const ServiceName = "tours"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting Tours service")
	tourService := initServices(cfg)
	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(handler.NewTourHandler(tourService, cfg.Log))
	serverApp.Run()
}

func initServices(cfg *config.Config) service.TourService {
	tourRepo := repository.NewMongoTourRepository(cfg)
	catalog := cache.NewCatalog(
		rediscache.NewStore(cfg.Client.Redis),
		tourRepo,
		cfg.CatalogCacheTTL,
		cfg.Log,
		cfg.Metrics,
	)
	tourService := service.NewTourService(
		tourRepo,
		catalog,
		validator.NewTourValidator(cfg.Log),
		cfg,
	)

	cfg.Log.Info("Tour service initialized", "database", cfg.MongoDatabaseName, "cache_ttl", cfg.CatalogCacheTTL)
	return tourService
}
