package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"lanesched/pkg/kafka"
	"lanesched/pkg/model"
)

type fakeProducer struct {
	published []kafka.Message
	batches   [][]kafka.Message
	err       error
	closed    bool
}

func (f *fakeProducer) Publish(ctx context.Context, msg kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeProducer) PublishBatch(ctx context.Context, messages []kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, messages)
	return nil
}

func (f *fakeProducer) Close() error {
	f.closed = true
	return nil
}

func testRun() *model.Run {
	start := time.Date(2025, 5, 17, 10, 0, 0, 0, time.UTC)
	return &model.Run{
		ID:     "run-1",
		Source: model.RunSourceRequest,
		Assignments: []model.Assignment{
			{Group: "acme", StartTime: start, EndTime: start.Add(55 * time.Minute), Lanes: []model.Lane{1, 2}},
			{Group: "globex", StartTime: start, EndTime: start.Add(55 * time.Minute), Lanes: []model.Lane{3}},
		},
		Events: []model.Event{
			{Kind: model.EventUnmetDemand, Group: "initech", StartTime: start, Requested: 4, Assigned: 1},
		},
		Stats: model.RunStats{Reservations: 3, Assigned: 2, UnmetDemand: 1},
	}
}

func TestPublishRun(t *testing.T) {
	assignments, diagnostics := &fakeProducer{}, &fakeProducer{}
	p := newKafkaPublisher(assignments, diagnostics, nil)

	if err := p.PublishRun(context.Background(), testRun()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(assignments.batches) != 1 || len(assignments.batches[0]) != 2 {
		t.Fatalf("expected one batch of 2 assignments, got %v", assignments.batches)
	}
	first := assignments.batches[0][0]
	if first.Key != "run-1" || first.GetEventType() != EventLaneAssigned {
		t.Errorf("unexpected assignment message key=%s type=%s", first.Key, first.GetEventType())
	}
	if runID, _ := first.GetHeader(kafka.HeaderRunID); runID != "run-1" {
		t.Errorf("expected run-id header, got %q", runID)
	}
	var la LaneAssigned
	if err := first.DecodeValue(&la); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if la.Assignment.Group != "acme" || len(la.Assignment.Lanes) != 2 {
		t.Errorf("unexpected payload %+v", la)
	}

	if len(diagnostics.batches) != 1 || len(diagnostics.batches[0]) != 1 {
		t.Fatalf("expected one diagnostic, got %v", diagnostics.batches)
	}
	if got := diagnostics.batches[0][0].GetEventType(); got != "allocation.diagnostic.unmet_demand" {
		t.Errorf("unexpected diagnostic type %s", got)
	}

	if len(assignments.published) != 1 {
		t.Fatalf("expected one summary, got %d", len(assignments.published))
	}
	var summary RunCompleted
	if err := json.Unmarshal(assignments.published[0].Value, &summary); err != nil {
		t.Fatalf("failed to decode summary: %v", err)
	}
	if summary.Stats.Assigned != 2 || summary.RunID != "run-1" {
		t.Errorf("unexpected summary %+v", summary)
	}
}

func TestPublishRun_SkipsEmptySections(t *testing.T) {
	assignments, diagnostics := &fakeProducer{}, &fakeProducer{}
	p := newKafkaPublisher(assignments, diagnostics, nil)

	if err := p.PublishRun(context.Background(), &model.Run{ID: "run-2"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(assignments.batches) != 0 || len(diagnostics.batches) != 0 {
		t.Error("empty runs should not publish batches")
	}
	if len(assignments.published) != 1 {
		t.Error("the summary is always published")
	}
}

func TestPublishRun_Failure(t *testing.T) {
	boom := errors.New("broker unavailable")
	p := newKafkaPublisher(&fakeProducer{err: boom}, &fakeProducer{}, nil)

	if err := p.PublishRun(context.Background(), testRun()); !errors.Is(err, boom) {
		t.Errorf("expected wrapped broker error, got %v", err)
	}
}

func TestClose(t *testing.T) {
	assignments, diagnostics := &fakeProducer{}, &fakeProducer{}
	p := newKafkaPublisher(assignments, diagnostics, nil)

	if err := p.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !assignments.closed || !diagnostics.closed {
		t.Error("expected both producers to be closed")
	}
}
