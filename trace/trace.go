// Package trace records the lifecycle of one planning run as an append-only
// stream of events keyed by a correlation ID. Producers fire and forget;
// a failed or slow sink never blocks orchestration.
package trace

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tripweaver/tripweaver/core"
)

// Stage identifies the orchestration phase an event belongs to
type Stage string

const (
	StageDispatch Stage = "dispatch"
	StageAttempt  Stage = "attempt"
	StageParse    Stage = "parse"
	StageFallback Stage = "fallback"
	StageComplete Stage = "complete"
)

// Outcome classifies what happened at a stage
type Outcome string

const (
	OutcomeSuccess       Outcome = "success"
	OutcomeTransient     Outcome = "transient_failure"
	OutcomeNonRetryable  Outcome = "non_retryable_failure"
	OutcomeExhausted     Outcome = "exhausted"
	OutcomeRepaired      Outcome = "repaired"
	OutcomeUnrecoverable Outcome = "unrecoverable"
	OutcomeDegraded      Outcome = "degraded"
	OutcomeComplete      Outcome = "complete"
)

// Event is one immutable trace record
type Event struct {
	CorrelationID string    `json:"correlation_id"`
	Stage         Stage     `json:"stage"`
	Worker        string    `json:"worker,omitempty"`
	Attempt       int       `json:"attempt,omitempty"`
	Outcome       Outcome   `json:"outcome"`
	Detail        string    `json:"detail,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Recorder is the append-only event consumer
type Recorder interface {
	Emit(event Event)
}

// NopRecorder discards all events
type NopRecorder struct{}

func (NopRecorder) Emit(Event) {}

// contextKey type for context keys
type contextKey string

const correlationIDKey contextKey = "correlation_id"

// NewCorrelationID generates a fresh correlation ID for one run
func NewCorrelationID() string {
	return uuid.New().String()
}

// WithCorrelationID stamps a correlation ID into the context
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationID extracts the correlation ID from the context, or ""
func CorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}

// LoggerSink feeds events from concurrent producers to a single consuming
// goroutine that writes them through a core.Logger. Emit never blocks: if
// the buffer is full the event is dropped and counted.
type LoggerSink struct {
	events  chan Event
	logger  core.Logger
	dropped atomic.Int64

	closeOnce sync.Once
	done      chan struct{}
}

// NewLoggerSink starts the consuming goroutine. Callers own Close.
func NewLoggerSink(logger core.Logger, buffer int) *LoggerSink {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if buffer <= 0 {
		buffer = 256
	}
	s := &LoggerSink{
		events: make(chan Event, buffer),
		logger: logger,
		done:   make(chan struct{}),
	}
	go s.consume()
	return s
}

// Emit appends an event without blocking
func (s *LoggerSink) Emit(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case s.events <- event:
	default:
		s.dropped.Add(1)
	}
}

// Dropped reports how many events were discarded due to backpressure
func (s *LoggerSink) Dropped() int64 {
	return s.dropped.Load()
}

// Close stops the consumer after draining buffered events
func (s *LoggerSink) Close() {
	s.closeOnce.Do(func() {
		close(s.events)
		<-s.done
	})
}

func (s *LoggerSink) consume() {
	defer close(s.done)
	for event := range s.events {
		s.logger.Info("trace event", map[string]interface{}{
			"correlation_id": event.CorrelationID,
			"stage":          string(event.Stage),
			"worker":         event.Worker,
			"attempt":        event.Attempt,
			"outcome":        string(event.Outcome),
			"detail":         event.Detail,
			"timestamp":      event.Timestamp.Format(time.RFC3339Nano),
		})
	}
}
