package planner

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tripweaver/tripweaver/core"
)

// fakeGeo is a scripted stand-in for the geo service. Errors queued in
// searchErrs and weatherErrs are consumed one per call; once drained,
// calls succeed.
type fakeGeo struct {
	mu           sync.Mutex
	searchCalls  int
	weatherCalls int
	searchErrs   []error
	weatherErrs  []error
	searchDelay  time.Duration
	lastKeywords string
	lastCity     string
}

func (f *fakeGeo) SearchPlaces(ctx context.Context, keywords, city string) (string, error) {
	f.mu.Lock()
	f.searchCalls++
	f.lastKeywords = keywords
	f.lastCity = city
	var err error
	if len(f.searchErrs) > 0 {
		err = f.searchErrs[0]
		f.searchErrs = f.searchErrs[1:]
	}
	delay := f.searchDelay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err != nil {
		return "", err
	}
	return "places: " + keywords + " in " + city, nil
}

func (f *fakeGeo) Weather(ctx context.Context, city string) (string, error) {
	f.mu.Lock()
	f.weatherCalls++
	f.lastCity = city
	var err error
	if len(f.weatherErrs) > 0 {
		err = f.weatherErrs[0]
		f.weatherErrs = f.weatherErrs[1:]
	}
	f.mu.Unlock()

	if err != nil {
		return "", err
	}
	return "forecast for " + city, nil
}

func (f *fakeGeo) searchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.searchCalls
}

func testWorkerConfig(fallback string) core.WorkerConfig {
	return core.WorkerConfig{
		Retry: core.RetryConfig{
			MaxAttempts:  3,
			BaseDelay:    time.Millisecond,
			MaxDelay:     5 * time.Millisecond,
			GrowthFactor: 2.0,
			Jitter:       0,
		},
		Timeout:  time.Second,
		Fallback: fallback,
	}
}

func testRequest() *TripRequest {
	return &TripRequest{
		City:           "Lisbon",
		StartDate:      "2026-05-01",
		EndDate:        "2026-05-03",
		TravelDays:     3,
		Transportation: "metro",
		Accommodation:  "boutique",
		Preferences:    []string{"museums"},
	}
}

// TestAttractionsAdapterSuccess verifies a healthy worker settles a real
// slot on the first attempt.
func TestAttractionsAdapterSuccess(t *testing.T) {
	geo := &fakeGeo{}
	adapter := NewAttractionsAdapter(geo, testWorkerConfig("n/a"), nil, nil)

	slot := adapter.Invoke(context.Background(), testRequest())

	if slot.Worker != core.WorkerAttractions {
		t.Errorf("expected worker %q, got %q", core.WorkerAttractions, slot.Worker)
	}
	if slot.Fallback {
		t.Error("expected a real slot, got a fallback")
	}
	if slot.Attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", slot.Attempts)
	}
	if !strings.Contains(slot.Content, "museums") || !strings.Contains(slot.Content, "Lisbon") {
		t.Errorf("content missing query terms: %q", slot.Content)
	}
}

// TestAttractionsAdapterDefaultKeyword verifies the search falls back to a
// generic keyword when the request states no preferences.
func TestAttractionsAdapterDefaultKeyword(t *testing.T) {
	geo := &fakeGeo{}
	adapter := NewAttractionsAdapter(geo, testWorkerConfig("n/a"), nil, nil)

	req := testRequest()
	req.Preferences = nil
	adapter.Invoke(context.Background(), req)

	if geo.lastKeywords != "scenic spots" {
		t.Errorf("expected default keyword, got %q", geo.lastKeywords)
	}
}

// TestLodgingAdapterKeyword verifies the accommodation preference drives
// the hotel search query.
func TestLodgingAdapterKeyword(t *testing.T) {
	geo := &fakeGeo{}
	adapter := NewLodgingAdapter(geo, testWorkerConfig("n/a"), nil, nil)

	slot := adapter.Invoke(context.Background(), testRequest())

	if geo.lastKeywords != "boutique hotel" {
		t.Errorf("expected keyword %q, got %q", "boutique hotel", geo.lastKeywords)
	}
	if slot.Worker != core.WorkerLodging {
		t.Errorf("expected worker %q, got %q", core.WorkerLodging, slot.Worker)
	}
}

// TestWeatherAdapterQueriesCity verifies the weather worker passes the
// request city through.
func TestWeatherAdapterQueriesCity(t *testing.T) {
	geo := &fakeGeo{}
	adapter := NewWeatherAdapter(geo, testWorkerConfig("n/a"), nil, nil)

	slot := adapter.Invoke(context.Background(), testRequest())

	if geo.lastCity != "Lisbon" {
		t.Errorf("expected city Lisbon, got %q", geo.lastCity)
	}
	if slot.Worker != core.WorkerWeather {
		t.Errorf("expected worker %q, got %q", core.WorkerWeather, slot.Worker)
	}
}

// TestAdapterRecoversWithinBudget verifies transient failures are retried
// and a later success settles a real slot.
func TestAdapterRecoversWithinBudget(t *testing.T) {
	geo := &fakeGeo{searchErrs: []error{core.ErrTimeout, core.ErrConnectionFailed}}
	adapter := NewAttractionsAdapter(geo, testWorkerConfig("n/a"), nil, nil)

	slot := adapter.Invoke(context.Background(), testRequest())

	if slot.Fallback {
		t.Fatalf("expected recovery, got fallback: %s", slot.FallbackReason)
	}
	if slot.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", slot.Attempts)
	}
}

// TestAdapterFallbackAfterExhaustion verifies a persistently failing
// worker settles its configured fallback, never an error.
func TestAdapterFallbackAfterExhaustion(t *testing.T) {
	geo := &fakeGeo{searchErrs: []error{core.ErrTimeout, core.ErrTimeout, core.ErrTimeout}}
	adapter := NewAttractionsAdapter(geo, testWorkerConfig("attraction search unavailable"), nil, nil)

	slot := adapter.Invoke(context.Background(), testRequest())

	if !slot.Fallback {
		t.Fatal("expected a fallback slot")
	}
	if slot.Content != "attraction search unavailable" {
		t.Errorf("expected configured fallback content, got %q", slot.Content)
	}
	if slot.FallbackReason == "" {
		t.Error("expected the fallback reason to be recorded")
	}
	if slot.Attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", slot.Attempts)
	}
	if geo.searchCount() != 3 {
		t.Errorf("expected 3 outbound calls, got %d", geo.searchCount())
	}
}

// TestAdapterNonRetryableStopsImmediately verifies a non-retryable error
// skips the remaining retry budget.
func TestAdapterNonRetryableStopsImmediately(t *testing.T) {
	geo := &fakeGeo{searchErrs: []error{core.ErrUnauthorized}}
	adapter := NewAttractionsAdapter(geo, testWorkerConfig("n/a"), nil, nil)

	slot := adapter.Invoke(context.Background(), testRequest())

	if !slot.Fallback {
		t.Fatal("expected a fallback slot")
	}
	if geo.searchCount() != 1 {
		t.Errorf("expected exactly 1 outbound call, got %d", geo.searchCount())
	}
}
