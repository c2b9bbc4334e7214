package publisher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lanesched/pkg/config"
	"lanesched/pkg/kafka"
	kafka_middleware "lanesched/pkg/kafka/middleware"
	"lanesched/pkg/logger"
	"lanesched/pkg/model"
)

const (
	EventRunCompleted = "allocation.run_completed"
	EventLaneAssigned = "allocation.lane_assigned"
	eventDiagnostic   = "allocation.diagnostic."

	eventSource   = "lanesched"
	schemaVersion = "1"
)

type RunCompleted struct {
	RunID     string         `json:"run_id"`
	Source    string         `json:"source"`
	Day       string         `json:"day,omitempty"`
	Stats     model.RunStats `json:"stats"`
	CreatedAt time.Time      `json:"created_at"`
}

type LaneAssigned struct {
	RunID      string           `json:"run_id"`
	Assignment model.Assignment `json:"assignment"`
}

type Diagnostic struct {
	RunID string      `json:"run_id"`
	Event model.Event `json:"event"`
}

// producer is the part of *kafka.Producer the publisher uses.
type producer interface {
	Publish(ctx context.Context, msg kafka.Message) error
	PublishBatch(ctx context.Context, messages []kafka.Message) error
	Close() error
}

// KafkaPublisher writes run summaries and assignments to the assignments
// topic and diagnostics to the diagnostics topic. Every message of a run is
// keyed by the run ID so consumers see a run in order.
type KafkaPublisher struct {
	assignments producer
	diagnostics producer
	log         *logger.Logger
}

func NewKafkaPublisher(cfg *config.Config, metrics *kafka_middleware.Metrics) (*KafkaPublisher, error) {
	assignments, err := kafka.NewProducer(cfg.Kafka, cfg.AssignmentsTopic, cfg.DLQTopic, cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to create assignments producer: %w", err)
	}
	diagnostics, err := kafka.NewProducer(cfg.Kafka, cfg.DiagnosticsTopic, cfg.DLQTopic, cfg.Log)
	if err != nil {
		_ = assignments.Close()
		return nil, fmt.Errorf("failed to create diagnostics producer: %w", err)
	}

	for _, p := range []*kafka.Producer{assignments, diagnostics} {
		p.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
		if metrics != nil {
			p.Use(metrics.ProducerMiddleware())
		}
	}

	return newKafkaPublisher(assignments, diagnostics, cfg.Log), nil
}

func newKafkaPublisher(assignments, diagnostics producer, log *logger.Logger) *KafkaPublisher {
	if log == nil {
		log = logger.Discard()
	}
	return &KafkaPublisher{
		assignments: assignments,
		diagnostics: diagnostics,
		log:         log,
	}
}

// PublishRun sends the assignments, then the diagnostics, then the summary.
// The summary goes last so its arrival means the run is complete.
func (p *KafkaPublisher) PublishRun(ctx context.Context, run *model.Run) error {
	if len(run.Assignments) > 0 {
		msgs := make([]kafka.Message, 0, len(run.Assignments))
		for _, a := range run.Assignments {
			msg, err := p.message(run, EventLaneAssigned, LaneAssigned{RunID: run.ID, Assignment: a})
			if err != nil {
				return err
			}
			msgs = append(msgs, msg)
		}
		if err := p.assignments.PublishBatch(ctx, msgs); err != nil {
			return fmt.Errorf("failed to publish assignments: %w", err)
		}
	}

	if len(run.Events) > 0 {
		msgs := make([]kafka.Message, 0, len(run.Events))
		for _, e := range run.Events {
			msg, err := p.message(run, eventDiagnostic+string(e.Kind), Diagnostic{RunID: run.ID, Event: e})
			if err != nil {
				return err
			}
			msgs = append(msgs, msg)
		}
		if err := p.diagnostics.PublishBatch(ctx, msgs); err != nil {
			return fmt.Errorf("failed to publish diagnostics: %w", err)
		}
	}

	summary, err := p.message(run, EventRunCompleted, RunCompleted{
		RunID:     run.ID,
		Source:    run.Source,
		Day:       run.Day,
		Stats:     run.Stats,
		CreatedAt: run.CreatedAt,
	})
	if err != nil {
		return err
	}
	if err := p.assignments.Publish(ctx, summary); err != nil {
		return fmt.Errorf("failed to publish run summary: %w", err)
	}

	p.log.Info("Allocation run published",
		"run_id", run.ID,
		"assignments", len(run.Assignments),
		"diagnostics", len(run.Events),
	)
	return nil
}

func (p *KafkaPublisher) message(run *model.Run, eventType string, payload any) (kafka.Message, error) {
	return kafka.NewMessage().
		WithKey(run.ID).
		WithValue(payload).
		WithEventType(eventType).
		WithRunID(run.ID).
		WithSource(eventSource).
		WithSchemaVersion(schemaVersion).
		Build()
}

func (p *KafkaPublisher) Close() error {
	return errors.Join(p.assignments.Close(), p.diagnostics.Close())
}
