package planner

import (
	"context"
	"fmt"

	"github.com/tripweaver/tripweaver/core"
	"github.com/tripweaver/tripweaver/resilience"
	"github.com/tripweaver/tripweaver/trace"
)

// Adapter is one specialized worker. Invoke always returns a populated
// slot: a real result on success, the configured fallback on terminal
// failure. Adapters never propagate raw errors and are mutually
// independent.
type Adapter interface {
	ID() core.WorkerName
	Invoke(ctx context.Context, req *TripRequest) Slot
}

// GeoSearcher is the place-search capability of the geo service
type GeoSearcher interface {
	SearchPlaces(ctx context.Context, keywords, city string) (string, error)
}

// WeatherProvider is the forecast capability of the geo service
type WeatherProvider interface {
	Weather(ctx context.Context, city string) (string, error)
}

// geoAdapter is the shared machinery of the three data-gathering workers:
// build a query, run the outbound call through the retry executor, fall
// back on terminal failure.
type geoAdapter struct {
	id       core.WorkerName
	config   core.WorkerConfig
	recorder trace.Recorder
	logger   core.Logger
	call     func(ctx context.Context, req *TripRequest) (string, error)
}

func (a *geoAdapter) ID() core.WorkerName { return a.id }

func (a *geoAdapter) Invoke(ctx context.Context, req *TripRequest) Slot {
	if a.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
	}

	var raw string
	attempts, err := resilience.Retry(ctx, a.config.Retry, a.recorder, string(a.id), func(ctx context.Context) error {
		out, callErr := a.call(ctx, req)
		if callErr != nil {
			return callErr
		}
		raw = out
		return nil
	})
	if err != nil {
		a.logger.Warn("Worker exhausted, substituting fallback", map[string]interface{}{
			"operation":      "worker_fallback",
			"worker":         string(a.id),
			"correlation_id": trace.CorrelationID(ctx),
			"attempts":       attempts,
			"error":          err.Error(),
		})
		a.recorder.Emit(trace.Event{
			CorrelationID: trace.CorrelationID(ctx),
			Stage:         trace.StageFallback,
			Worker:        string(a.id),
			Attempt:       attempts,
			Outcome:       trace.OutcomeExhausted,
			Detail:        err.Error(),
		})
		return Slot{
			Worker:         a.id,
			Content:        a.config.Fallback,
			Fallback:       true,
			FallbackReason: err.Error(),
			Attempts:       attempts,
		}
	}

	a.logger.Debug("Worker completed", map[string]interface{}{
		"operation":      "worker_complete",
		"worker":         string(a.id),
		"correlation_id": trace.CorrelationID(ctx),
		"attempts":       attempts,
		"result_length":  len(raw),
	})
	return Slot{
		Worker:   a.id,
		Content:  raw,
		Attempts: attempts,
	}
}

// NewAttractionsAdapter creates the attraction-search worker. The first
// stated preference drives the search keyword.
func NewAttractionsAdapter(geo GeoSearcher, config core.WorkerConfig, recorder trace.Recorder, logger core.Logger) Adapter {
	return newGeoAdapter(core.WorkerAttractions, config, recorder, logger,
		func(ctx context.Context, req *TripRequest) (string, error) {
			keywords := "scenic spots"
			if len(req.Preferences) > 0 && req.Preferences[0] != "" {
				keywords = req.Preferences[0]
			}
			return geo.SearchPlaces(ctx, keywords, req.City)
		})
}

// NewWeatherAdapter creates the weather-lookup worker
func NewWeatherAdapter(weather WeatherProvider, config core.WorkerConfig, recorder trace.Recorder, logger core.Logger) Adapter {
	return newGeoAdapter(core.WorkerWeather, config, recorder, logger,
		func(ctx context.Context, req *TripRequest) (string, error) {
			return weather.Weather(ctx, req.City)
		})
}

// NewLodgingAdapter creates the lodging-recommendation worker
func NewLodgingAdapter(geo GeoSearcher, config core.WorkerConfig, recorder trace.Recorder, logger core.Logger) Adapter {
	return newGeoAdapter(core.WorkerLodging, config, recorder, logger,
		func(ctx context.Context, req *TripRequest) (string, error) {
			keywords := "hotel"
			if req.Accommodation != "" {
				keywords = fmt.Sprintf("%s hotel", req.Accommodation)
			}
			return geo.SearchPlaces(ctx, keywords, req.City)
		})
}

func newGeoAdapter(id core.WorkerName, config core.WorkerConfig, recorder trace.Recorder, logger core.Logger, call func(context.Context, *TripRequest) (string, error)) *geoAdapter {
	if recorder == nil {
		recorder = trace.NopRecorder{}
	}
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	return &geoAdapter{
		id:       id,
		config:   config,
		recorder: recorder,
		logger:   logger,
		call:     call,
	}
}
