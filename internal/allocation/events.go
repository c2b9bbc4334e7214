package allocation

import (
	"sync"

	"lanesched/pkg/model"
)

// EventSink receives diagnostics raised during a run.
type EventSink interface {
	Emit(event model.Event)
}

type EventSinkFunc func(event model.Event)

func (f EventSinkFunc) Emit(event model.Event) {
	f(event)
}

// Collector is an EventSink that keeps every event in emission order.
type Collector struct {
	mu     sync.Mutex
	events []model.Event
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Emit(event model.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
}

func (c *Collector) Events() []model.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Event(nil), c.events...)
}

// Count returns how many events of kind were collected.
func (c *Collector) Count(kind model.EventKind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}
