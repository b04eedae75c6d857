package telemetry

import (
	"context"
	"errors"
	"testing"
)

// TestProviderSpanLifecycle verifies spans can be started, annotated and
// ended through the core interface.
func TestProviderSpanLifecycle(t *testing.T) {
	provider, err := NewProvider("tripweaver-test", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Errorf("shutdown failed: %v", err)
		}
	}()

	ctx, span := provider.StartSpan(context.Background(), "test.operation")
	if ctx == nil || span == nil {
		t.Fatal("expected a context and a span")
	}
	span.SetAttribute("string", "value")
	span.SetAttribute("int", 42)
	span.SetAttribute("float", 1.5)
	span.SetAttribute("bool", true)
	span.SetAttribute("other", struct{ A int }{A: 1})
	span.RecordError(errors.New("recorded"))
	span.End()
}

// TestProviderRecordMetric verifies counters are created lazily and
// reused across calls.
func TestProviderRecordMetric(t *testing.T) {
	provider, err := NewProvider("tripweaver-test", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer provider.Shutdown(context.Background())

	provider.RecordMetric("runs_total", 1, map[string]string{"outcome": "complete"})
	provider.RecordMetric("runs_total", 1, map[string]string{"outcome": "degraded"})

	provider.mu.Lock()
	n := len(provider.counters)
	provider.mu.Unlock()
	if n != 1 {
		t.Errorf("expected 1 cached counter, got %d", n)
	}
}
