// Package annotations provides a low-overhead event stream for tracing
// fixpoint evaluation: materializations, semi-naive rounds, rule firings
// and dynamic inserts.
package annotations

import (
	"sync"
	"time"
)

// Event name constants following hierarchical naming pattern
const (
	// Materialization lifecycle
	MaterializeBegin    = "materialize/begin"
	MaterializeComplete = "materialize/complete"

	// Semi-naive rounds
	RoundBegin    = "round/begin"
	RoundComplete = "round/complete"

	// Rule evaluation
	RuleFired = "rule/fired"

	// Dynamic updates
	InsertApplied = "insert/applied"

	// Errors
	ErrorEvaluation = "error/evaluation"
)

// Event represents a single annotation event during evaluation.
type Event struct {
	Name    string                 // Event name using hierarchical constants above
	Start   time.Time              // Start timestamp
	End     time.Time              // End timestamp
	Latency time.Duration          // Duration (End - Start)
	Data    map[string]interface{} // Event-specific data, keys grouped with dots
}

// Handler processes annotation events as they occur.
type Handler func(event Event)

// Collector accumulates events and forwards them to a handler.
// Safe for concurrent use by parallel rule workers.
type Collector struct {
	handler Handler
	events  []Event
	mu      sync.Mutex
}

// NewCollector creates a new annotation collector. A nil handler still
// records events.
func NewCollector(handler Handler) *Collector {
	return &Collector{
		handler: handler,
		events:  make([]Event, 0, 64),
	}
}

// Add records a new event.
func (c *Collector) Add(event Event) {
	c.mu.Lock()
	c.events = append(c.events, event)
	c.mu.Unlock()

	// Call handler outside the lock to avoid deadlocks
	if c.handler != nil {
		c.handler(event)
	}
}

// AddTiming records an event that started at start and ends now.
func (c *Collector) AddTiming(name string, start time.Time, data map[string]interface{}) {
	end := time.Now()
	c.Add(Event{
		Name:    name,
		Start:   start,
		End:     end,
		Latency: end.Sub(start),
		Data:    data,
	})
}

// Events returns a copy of all collected events.
func (c *Collector) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	eventsCopy := make([]Event, len(c.events))
	copy(eventsCopy, c.events)
	return eventsCopy
}

// Count returns how many events with the given name were collected
func (c *Collector) Count(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.events {
		if e.Name == name {
			n++
		}
	}
	return n
}

// Reset clears the collected events. The handler is kept.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = c.events[:0]
}
