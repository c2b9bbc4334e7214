package kafka

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"lanesched/pkg/logger"

	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	written []kafka.Message
	err     error
	closed  bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.written = append(w.written, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func header(msg kafka.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestMessageBuilder(t *testing.T) {
	msg, err := NewMessage().
		WithKey("run-1").
		WithValue(map[string]int{"lanes": 2}).
		WithEventType("assignment").
		WithRunID("run-1").
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(msg.Value) != `{"lanes":2}` {
		t.Errorf("unexpected value %s", msg.Value)
	}
	if msg.GetEventID() == "" || msg.Headers[HeaderTimestamp] == "" {
		t.Error("expected generated event id and timestamp")
	}
	if msg.Headers[HeaderRunID] != "run-1" {
		t.Errorf("unexpected run id header %q", msg.Headers[HeaderRunID])
	}
}

func TestMessageBuilder_EncodingError(t *testing.T) {
	_, err := NewMessage().WithKey("k").WithValue(make(chan int)).Build()
	if ClassifyError(err) != ErrorTypePermanent {
		t.Errorf("expected permanent error, got %v", err)
	}
}

func TestRetryCount(t *testing.T) {
	msg := Message{}
	for i := 0; i < 12; i++ {
		msg.IncrementRetryCount()
	}
	if got := msg.GetRetryCount(); got != 12 {
		t.Errorf("expected 12 retries, got %d", got)
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorType
	}{
		{name: "nil", err: nil, expected: ErrorTypeUnknown},
		{name: "explicit transient", err: NewTransientError("save run", errors.New("x")), expected: ErrorTypeTransient},
		{name: "wrapped permanent", err: fmt.Errorf("worker: %w", NewPermanentError("bad payload", nil)), expected: ErrorTypePermanent},
		{name: "deadline", err: context.DeadlineExceeded, expected: ErrorTypeTransient},
		{name: "network message", err: errors.New("dial tcp: Connection Refused"), expected: ErrorTypeTransient},
		{name: "unknown", err: errors.New("something odd"), expected: ErrorTypePermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != tt.expected {
				t.Errorf("ClassifyError() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{writer: w, topic: "lanes.assignments", log: logger.Discard()}

	var seen []string
	p.Use(func(ctx context.Context, msg Message, next func(context.Context, Message) error) error {
		seen = append(seen, msg.Topic)
		return next(ctx, msg)
	})

	msg, _ := NewMessage().WithKey("run-1").WithValue("x").Build()
	if err := p.Publish(context.Background(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(w.written) != 1 || string(w.written[0].Key) != "run-1" {
		t.Errorf("unexpected writes %+v", w.written)
	}
	if len(seen) != 1 || seen[0] != "lanes.assignments" {
		t.Errorf("middleware should see the producer topic, got %v", seen)
	}

	if err := p.Publish(context.Background(), Message{Value: []byte("x")}); !errors.Is(err, ErrEmptyKey) {
		t.Errorf("expected ErrEmptyKey, got %v", err)
	}

	_ = p.Close()
	if err := p.Publish(context.Background(), msg); !errors.Is(err, ErrProducerClosed) {
		t.Errorf("expected ErrProducerClosed, got %v", err)
	}
	if !w.closed {
		t.Error("expected writer closed")
	}
}

func TestProducer_FailedWriteGoesToDLQ(t *testing.T) {
	writeErr := errors.New("leader not available")
	dlq := &fakeWriter{}
	p := &Producer{writer: &fakeWriter{err: writeErr}, dlqWriter: dlq, topic: "lanes.assignments", log: logger.Discard()}

	msg, _ := NewMessage().WithKey("run-1").WithValue("x").Build()
	err := p.Publish(context.Background(), msg)

	if !errors.Is(err, writeErr) {
		t.Errorf("expected original error, got %v", err)
	}
	if len(dlq.written) != 1 {
		t.Fatalf("expected one DLQ message, got %d", len(dlq.written))
	}
	if header(dlq.written[0], HeaderOriginalTopic) != "lanes.assignments" {
		t.Error("expected original topic header")
	}
	if _, ok := msg.Headers[HeaderDLQError]; ok {
		t.Error("caller's headers must not be modified")
	}
}

func TestProducer_PublishBatchSkipsInvalid(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{writer: w, topic: "t", log: logger.Discard()}

	err := p.PublishBatch(context.Background(), []Message{
		{Key: "a", Value: []byte("1")},
		{Key: "", Value: []byte("2")},
		{Key: "c", Value: nil},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(w.written) != 1 {
		t.Errorf("expected one message written, got %d", len(w.written))
	}

	if err := p.PublishBatch(context.Background(), []Message{{}}); !errors.Is(err, ErrInvalidMessage) {
		t.Errorf("expected ErrInvalidMessage, got %v", err)
	}
}

func TestConsumer_ProcessMessage(t *testing.T) {
	newConsumer := func(handler MessageHandler, dlq *fakeWriter) *Consumer {
		c := &Consumer{
			topic:        "lanes.reservations",
			groupID:      "lanes-worker",
			maxRetries:   2,
			retryBackoff: time.Millisecond,
			handler:      handler,
			log:          logger.Discard(),
		}
		if dlq != nil {
			c.dlqWriter = dlq
		}
		return c
	}

	t.Run("transient errors are retried", func(t *testing.T) {
		calls := 0
		c := newConsumer(func(context.Context, Message) error {
			calls++
			if calls < 3 {
				return NewTransientError("mongo", errors.New("timeout"))
			}
			return nil
		}, nil)

		if err := c.processMessage(context.Background(), Message{Headers: map[string]string{}}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calls != 3 {
			t.Errorf("expected 3 calls, got %d", calls)
		}
	})

	t.Run("permanent errors go straight to DLQ", func(t *testing.T) {
		calls := 0
		dlq := &fakeWriter{}
		c := newConsumer(func(context.Context, Message) error {
			calls++
			return NewPermanentError("bad json", nil)
		}, dlq)

		err := c.processMessage(context.Background(), Message{Key: "b-1", Headers: map[string]string{}})
		if err == nil {
			t.Fatal("expected error")
		}
		if calls != 1 {
			t.Errorf("expected a single attempt, got %d", calls)
		}
		if len(dlq.written) != 1 || header(dlq.written[0], HeaderDLQGroup) != "lanes-worker" {
			t.Errorf("unexpected DLQ writes %+v", dlq.written)
		}
	})

	t.Run("retries are bounded", func(t *testing.T) {
		calls := 0
		dlq := &fakeWriter{}
		c := newConsumer(func(context.Context, Message) error {
			calls++
			return NewTransientError("mongo", errors.New("timeout"))
		}, dlq)

		_ = c.processMessage(context.Background(), Message{Headers: map[string]string{}})
		if calls != 3 {
			t.Errorf("expected 1 attempt + 2 retries, got %d", calls)
		}
		if len(dlq.written) != 1 || header(dlq.written[0], HeaderRetryCount) != "2" {
			t.Errorf("expected DLQ message with retry count 2, got %+v", dlq.written)
		}
	})
}
