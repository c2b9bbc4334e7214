package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"lanesched/internal/allocations/consumer"
	"lanesched/internal/allocations/publisher"
	"lanesched/internal/allocations/repository"
	"lanesched/internal/allocations/service"
	"lanesched/internal/allocations/validator"
	"lanesched/pkg/config"
	"lanesched/pkg/kafka"
	kafka_middleware "lanesched/pkg/kafka/middleware"
)

const ServiceName = "lanes-worker"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetKafka()
	defer cfg.GracefulShutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := kafka_middleware.NewMetrics()
	defer metrics.Log(cfg.Log)

	var runPublisher service.RunPublisher
	if cfg.PublishEvents {
		kafkaPublisher, err := publisher.NewKafkaPublisher(cfg, metrics)
		if err != nil {
			cfg.Log.Fatal("Failed to create Kafka publisher", "error", err)
		}
		defer kafkaPublisher.Close()
		runPublisher = kafkaPublisher
	}

	allocationService := service.NewAllocationService(
		repository.NewMongoAllocationRepository(cfg),
		validator.NewAllocationValidator(cfg.MaxBatchSize, cfg.Log),
		runPublisher,
		cfg,
	)
	reservations := consumer.NewReservationHandler(allocationService, cfg.Log)

	c, err := kafka.NewConsumer(cfg.Kafka, cfg.ReservationsTopic, cfg.ReservationsGroupID, cfg.DLQTopic, reservations.Handle, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka consumer", "error", err)
	}
	defer c.Close()
	c.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
	c.Use(metrics.ConsumerMiddleware())

	cfg.Log.Info("Starting lanes worker",
		"topic", cfg.ReservationsTopic,
		"group_id", cfg.ReservationsGroupID,
	)
	if err := c.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Error("Consumer stopped", "error", err)
	}
	cfg.Log.Info("Lanes worker stopped")
}
