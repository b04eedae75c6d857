package planner

import (
	"context"
	"fmt"

	"github.com/tripweaver/tripweaver/core"
	"github.com/tripweaver/tripweaver/jsonx"
	"github.com/tripweaver/tripweaver/resilience"
	"github.com/tripweaver/tripweaver/trace"
)

// Synthesizer is the itinerary worker: it feeds the three gathered slots
// to the language model and parses the plan out of its reply. Retry
// happens at the outbound-call level; each fresh response is re-parsed.
// Terminal failure yields a synthetic fallback plan, never an error.
type Synthesizer struct {
	client   core.AIClient
	parser   *jsonx.Parser
	config   core.WorkerConfig
	options  core.AIOptions
	recorder trace.Recorder
	logger   core.Logger
}

// NewSynthesizer creates the itinerary worker
func NewSynthesizer(client core.AIClient, config core.WorkerConfig, options core.AIOptions, recorder trace.Recorder, logger core.Logger) *Synthesizer {
	if recorder == nil {
		recorder = trace.NopRecorder{}
	}
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if options.SystemPrompt == "" {
		options.SystemPrompt = itinerarySystemPrompt
	}
	return &Synthesizer{
		client:   client,
		parser:   jsonx.New(recorder),
		config:   config,
		options:  options,
		recorder: recorder,
		logger:   logger,
	}
}

// ID implements the worker identity
func (s *Synthesizer) ID() core.WorkerName { return core.WorkerItinerary }

// Synthesize produces the trip plan from the settled upstream slots.
// The returned slot is always populated; on terminal failure the plan is
// the synthetic fallback and the slot records why.
func (s *Synthesizer) Synthesize(ctx context.Context, req *TripRequest, slots map[core.WorkerName]Slot) (*TripPlan, Slot) {
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	prompt := buildItineraryPrompt(req,
		slots[core.WorkerAttractions].Content,
		slots[core.WorkerWeather].Content,
		slots[core.WorkerLodging].Content,
	)

	var plan *TripPlan
	var provenance jsonx.Provenance

	attempts, err := resilience.Retry(ctx, s.config.Retry, s.recorder, string(s.ID()), func(ctx context.Context) error {
		resp, callErr := s.client.GenerateResponse(ctx, prompt, &s.options)
		if callErr != nil {
			return callErr
		}

		result, parseErr := s.parser.Parse(ctx, resp.Content)
		if parseErr != nil {
			// Parse failures are not transient: no parser-level
			// retry, the attempt loop ends here.
			return parseErr
		}

		decoded := &TripPlan{}
		if decodeErr := result.Decode(decoded); decodeErr != nil {
			return fmt.Errorf("plan schema mismatch: %w", core.ErrUnparsable)
		}
		plan = decoded
		provenance = result.Provenance
		return nil
	})
	if err != nil {
		s.logger.Warn("Itinerary synthesis failed, building fallback plan", map[string]interface{}{
			"operation":      "worker_fallback",
			"worker":         string(s.ID()),
			"correlation_id": trace.CorrelationID(ctx),
			"attempts":       attempts,
			"error":          err.Error(),
		})
		s.recorder.Emit(trace.Event{
			CorrelationID: trace.CorrelationID(ctx),
			Stage:         trace.StageFallback,
			Worker:        string(s.ID()),
			Attempt:       attempts,
			Outcome:       trace.OutcomeExhausted,
			Detail:        err.Error(),
		})
		fallback := FallbackPlan(req)
		return fallback, Slot{
			Worker:         s.ID(),
			Content:        "synthetic fallback plan",
			Fallback:       true,
			FallbackReason: err.Error(),
			Attempts:       attempts,
		}
	}

	// Carry forward request identity the model sometimes omits
	if plan.City == "" {
		plan.City = req.City
	}
	if plan.StartDate == "" {
		plan.StartDate = req.StartDate
	}
	if plan.EndDate == "" {
		plan.EndDate = req.EndDate
	}

	s.logger.Debug("Itinerary synthesized", map[string]interface{}{
		"operation":      "worker_complete",
		"worker":         string(s.ID()),
		"correlation_id": trace.CorrelationID(ctx),
		"attempts":       attempts,
		"days":           len(plan.Days),
		"provenance":     string(provenance),
	})
	return plan, Slot{
		Worker:     s.ID(),
		Content:    fmt.Sprintf("%d-day plan", len(plan.Days)),
		Attempts:   attempts,
		Provenance: provenance,
	}
}
