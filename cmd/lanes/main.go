package main

import (
	_ "time/tzdata"

	"lanesched/internal/allocations/handler"
	"lanesched/internal/allocations/publisher"
	"lanesched/internal/allocations/repository"
	"lanesched/internal/allocations/service"
	"lanesched/internal/allocations/validator"
	"lanesched/pkg/app"
	"lanesched/pkg/config"
	kafka_middleware "lanesched/pkg/kafka/middleware"
)

const ServiceName = "lanes"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	cfg.Log.Info("Starting Lanes service")
	serverApp := app.NewApplication(cfg)
	allocationService := initServices(cfg, serverApp)
	serverApp.SetApp(handler.NewAllocationHandler(allocationService, cfg.Log))
	serverApp.Run()
}

func initServices(cfg *config.Config, serverApp *app.Application) service.AllocationService {
	allocationValidator := validator.NewAllocationValidator(cfg.MaxBatchSize, cfg.Log)
	allocationRepo := repository.NewMongoAllocationRepository(cfg)

	var runPublisher service.RunPublisher
	if cfg.PublishEvents {
		cfg.SetKafka()
		metrics := kafka_middleware.NewMetrics()
		kafkaPublisher, err := publisher.NewKafkaPublisher(cfg, metrics)
		if err != nil {
			cfg.Log.Fatal("Failed to create Kafka publisher", "error", err)
		}
		serverApp.OnShutdown(func() {
			metrics.Log(cfg.Log)
			if err := kafkaPublisher.Close(); err != nil {
				cfg.Log.Error("Failed to close Kafka publisher", "error", err)
			}
		})
		runPublisher = kafkaPublisher
	}

	allocationService := service.NewAllocationService(
		allocationRepo,
		allocationValidator,
		runPublisher,
		cfg,
	)

	cfg.Log.Info("Lanes service initialized",
		"database", cfg.MongoDatabaseName,
		"publish_events", cfg.PublishEvents,
	)
	return allocationService
}
