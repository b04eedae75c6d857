package planner

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/tripweaver/tripweaver/core"
	"github.com/tripweaver/tripweaver/trace"
)

// Orchestrator fans one trip request out to the data-gathering workers,
// waits for every slot to settle, then hands the settled slots to the
// itinerary synthesizer. A run fails only on an invalid request; worker
// failures degrade the result instead.
type Orchestrator struct {
	adapters    []Adapter
	synthesizer *Synthesizer
	cache       core.Memory
	cacheTTL    time.Duration
	telemetry   core.Telemetry
	recorder    trace.Recorder
	logger      core.Logger
	runTimeout  time.Duration
}

// Option configures optional orchestrator collaborators
type Option func(*Orchestrator)

// WithCache enables plan caching. Only fully successful results are
// cached; degraded results are always recomputed.
func WithCache(cache core.Memory, ttl time.Duration) Option {
	return func(o *Orchestrator) {
		o.cache = cache
		o.cacheTTL = ttl
	}
}

// WithTelemetry attaches a span factory for distributed tracing
func WithTelemetry(telemetry core.Telemetry) Option {
	return func(o *Orchestrator) {
		o.telemetry = telemetry
	}
}

// WithRecorder attaches an execution trace sink
func WithRecorder(recorder trace.Recorder) Option {
	return func(o *Orchestrator) {
		o.recorder = recorder
	}
}

// WithLogger attaches a structured logger
func WithLogger(logger core.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithRunTimeout bounds one whole run end to end
func WithRunTimeout(timeout time.Duration) Option {
	return func(o *Orchestrator) {
		o.runTimeout = timeout
	}
}

// NewOrchestrator wires the data-gathering adapters and the itinerary
// synthesizer into one run loop.
func NewOrchestrator(adapters []Adapter, synthesizer *Synthesizer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		adapters:    adapters,
		synthesizer: synthesizer,
		recorder:    trace.NopRecorder{},
		logger:      &core.NoOpLogger{},
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.recorder == nil {
		o.recorder = trace.NopRecorder{}
	}
	if o.logger == nil {
		o.logger = &core.NoOpLogger{}
	}
	return o
}

// Run executes one planning run. The returned error is non-nil only for
// an invalid request or an unusable run context; every downstream
// failure is absorbed into the result as a degraded slot.
func (o *Orchestrator) Run(ctx context.Context, req *TripRequest) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	correlationID := trace.CorrelationID(ctx)
	if correlationID == "" {
		correlationID = trace.NewCorrelationID()
		ctx = trace.WithCorrelationID(ctx, correlationID)
	}
	if o.runTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.runTimeout)
		defer cancel()
	}
	if o.telemetry != nil {
		var span core.Span
		ctx, span = o.telemetry.StartSpan(ctx, "planner.run")
		span.SetAttribute("trip.city", req.City)
		span.SetAttribute("trip.days", req.TravelDays)
		defer span.End()
	}

	start := time.Now()
	o.logger.Info("Planning run started", map[string]interface{}{
		"operation":      "run_start",
		"correlation_id": correlationID,
		"city":           req.City,
		"travel_days":    req.TravelDays,
	})
	o.recorder.Emit(trace.Event{
		CorrelationID: correlationID,
		Stage:         trace.StageDispatch,
		Outcome:       trace.OutcomeSuccess,
		Detail:        req.City,
	})

	if cached := o.lookupCache(ctx, req); cached != nil {
		cached.CorrelationID = correlationID
		cached.Elapsed = time.Since(start)
		o.logger.Info("Planning run served from cache", map[string]interface{}{
			"operation":      "run_cache_hit",
			"correlation_id": correlationID,
			"city":           req.City,
		})
		return cached, nil
	}

	slots := o.gather(ctx, req)

	plan, itinerarySlot := o.synthesizer.Synthesize(ctx, req, slots)
	slots[itinerarySlot.Worker] = itinerarySlot

	degraded := false
	for _, slot := range slots {
		if slot.Fallback {
			degraded = true
			break
		}
	}

	result := &Result{
		CorrelationID: correlationID,
		Plan:          plan,
		Slots:         slots,
		Degraded:      degraded,
		Elapsed:       time.Since(start),
	}

	outcome := trace.OutcomeComplete
	if degraded {
		outcome = trace.OutcomeDegraded
	}
	o.recorder.Emit(trace.Event{
		CorrelationID: correlationID,
		Stage:         trace.StageComplete,
		Outcome:       outcome,
		Detail:        req.City,
	})
	o.logger.Info("Planning run finished", map[string]interface{}{
		"operation":      "run_complete",
		"correlation_id": correlationID,
		"city":           req.City,
		"degraded":       degraded,
		"elapsed_ms":     result.Elapsed.Milliseconds(),
	})

	if !degraded {
		o.storeCache(ctx, req, result)
	}
	return result, nil
}

// gather runs the data-gathering adapters concurrently and blocks until
// every slot has settled. There is no short-circuit: a fast failure in
// one worker never cancels another.
func (o *Orchestrator) gather(ctx context.Context, req *TripRequest) map[core.WorkerName]Slot {
	results := make(chan Slot, len(o.adapters))
	var wg sync.WaitGroup
	for _, adapter := range o.adapters {
		wg.Add(1)
		go func(a Adapter) {
			defer wg.Done()
			results <- a.Invoke(ctx, req)
		}(adapter)
	}
	wg.Wait()
	close(results)

	slots := make(map[core.WorkerName]Slot, len(o.adapters)+1)
	for slot := range results {
		slots[slot.Worker] = slot
	}
	return slots
}

func (o *Orchestrator) lookupCache(ctx context.Context, req *TripRequest) *Result {
	if o.cache == nil {
		return nil
	}
	raw, err := o.cache.Get(ctx, req.CacheKey())
	if err != nil || raw == "" {
		return nil
	}
	var result Result
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		o.logger.Warn("Discarding undecodable cached plan", map[string]interface{}{
			"operation": "cache_decode",
			"key":       req.CacheKey(),
			"error":     err.Error(),
		})
		return nil
	}
	return &result
}

func (o *Orchestrator) storeCache(ctx context.Context, req *TripRequest, result *Result) {
	if o.cache == nil {
		return
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := o.cache.Set(ctx, req.CacheKey(), string(raw), o.cacheTTL); err != nil {
		o.logger.Warn("Failed to cache plan", map[string]interface{}{
			"operation": "cache_store",
			"key":       req.CacheKey(),
			"error":     err.Error(),
		})
	}
}
