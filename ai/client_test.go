package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripweaver/tripweaver/core"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client := NewClient(core.AIConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "test-model",
		Timeout: 2 * time.Second,
	}, nil)
	return server, client
}

// TestGenerateResponseSuccess verifies a normal round trip
func TestGenerateResponseSuccess(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req["model"])

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"model": "test-model",
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "hello"}},
			},
			"usage": map[string]int{"prompt_tokens": 5, "completion_tokens": 1, "total_tokens": 6},
		})
	})

	resp, err := client.GenerateResponse(context.Background(), "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
	assert.Equal(t, 6, resp.Usage.TotalTokens)
}

// TestGenerateResponseSystemPrompt verifies the system message is sent first
func TestGenerateResponseSystemPrompt(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "be brief", req.Messages[0].Content)
		assert.Equal(t, "user", req.Messages[1].Role)

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": "ok"}},
			},
		})
	})

	_, err := client.GenerateResponse(context.Background(), "hi", &core.AIOptions{SystemPrompt: "be brief"})
	require.NoError(t, err)
}

// TestGenerateResponseStatusClassification verifies the error taxonomy
func TestGenerateResponseStatusClassification(t *testing.T) {
	cases := []struct {
		status int
		want   error
	}{
		{http.StatusTooManyRequests, core.ErrRateLimited},
		{http.StatusInternalServerError, core.ErrServerError},
		{http.StatusBadGateway, core.ErrServerError},
		{http.StatusUnauthorized, core.ErrUnauthorized},
		{http.StatusForbidden, core.ErrUnauthorized},
		{http.StatusBadRequest, core.ErrInvalidRequest},
		{http.StatusNotFound, core.ErrInvalidRequest},
	}

	for _, tc := range cases {
		status := tc.status
		_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		})

		_, err := client.GenerateResponse(context.Background(), "hi", nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, tc.want, "status %d", status)
	}
}

// TestGenerateResponseTransientVsNot verifies retryability of classified errors
func TestGenerateResponseTransientVsNot(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	_, err := client.GenerateResponse(context.Background(), "hi", nil)
	assert.True(t, core.IsTransient(err))

	_, client = newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	})
	_, err = client.GenerateResponse(context.Background(), "hi", nil)
	assert.True(t, core.IsNonRetryable(err))
}

// TestGenerateResponseMissingAPIKey verifies the unauthorized short-circuit
func TestGenerateResponseMissingAPIKey(t *testing.T) {
	client := NewClient(core.AIConfig{BaseURL: "http://localhost:0"}, nil)
	_, err := client.GenerateResponse(context.Background(), "hi", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUnauthorized)
}

// TestGenerateResponseConnectionRefused verifies network failures are transient
func TestGenerateResponseConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // guarantee a refused connection

	client := NewClient(core.AIConfig{
		APIKey:  "k",
		BaseURL: server.URL,
		Timeout: time.Second,
	}, nil)

	_, err := client.GenerateResponse(context.Background(), "hi", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrConnectionFailed)
	assert.True(t, core.IsTransient(err))
}

// TestGenerateResponseEmptyChoices verifies malformed success bodies fail transient
func TestGenerateResponseEmptyChoices(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
	})

	_, err := client.GenerateResponse(context.Background(), "hi", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrServerError)
}

// TestMockClientScripting verifies the mock's ordered replies
func TestMockClientScripting(t *testing.T) {
	mock := NewMockClient("first").QueueError(core.ErrTimeout).QueueResponse("third")

	resp, err := mock.GenerateResponse(context.Background(), "p", nil)
	require.NoError(t, err)
	assert.Equal(t, "first", resp.Content)

	_, err = mock.GenerateResponse(context.Background(), "p", nil)
	assert.ErrorIs(t, err, core.ErrTimeout)

	resp, err = mock.GenerateResponse(context.Background(), "p", nil)
	require.NoError(t, err)
	assert.Equal(t, "third", resp.Content)

	// Exhausted scripts repeat the final reply
	resp, err = mock.GenerateResponse(context.Background(), "p", nil)
	require.NoError(t, err)
	assert.Equal(t, "third", resp.Content)

	assert.Equal(t, 4, mock.Calls())
}
