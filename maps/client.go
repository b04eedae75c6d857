// Package maps implements the outbound geo-service boundary: place text
// search and weather forecast lookups against an AMap-style REST API.
// Like the ai package, it never retries; failures are classified with the
// core sentinels for the retry executor.
package maps

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/tripweaver/tripweaver/core"
)

// Client talks to the geo service
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     core.Logger
}

// NewClient creates a geo client from configuration
func NewClient(cfg core.MapsConfig, logger core.Logger) *Client {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://restapi.amap.com/v3"
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
	}
}

// SearchPlaces runs a keyword search scoped to a city and returns the raw
// response JSON for the adapter to forward.
func (c *Client) SearchPlaces(ctx context.Context, keywords, city string) (string, error) {
	params := url.Values{}
	params.Set("keywords", keywords)
	params.Set("city", city)
	return c.get(ctx, "/place/text", params)
}

// Weather fetches the multi-day forecast for a city as raw JSON
func (c *Client) Weather(ctx context.Context, city string) (string, error) {
	params := url.Values{}
	params.Set("city", city)
	params.Set("extensions", "all")
	return c.get(ctx, "/weather/weatherInfo", params)
}

// apiEnvelope is the service's own status wrapper
type apiEnvelope struct {
	Status   string `json:"status"`
	Info     string `json:"info"`
	Infocode string `json:"infocode"`
}

func (c *Client) get(ctx context.Context, path string, params url.Values) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("maps API key not configured: %w", core.ErrUnauthorized)
	}
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		classified := classifyTransportError(err)
		c.logger.Warn("Geo request failed", map[string]interface{}{
			"operation": "maps_request",
			"path":      path,
			"error":     err.Error(),
		})
		return "", classified
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", core.ErrConnectionFailed)
	}

	if resp.StatusCode != http.StatusOK {
		classified := classifyStatus(resp.StatusCode)
		c.logger.Warn("Geo request rejected", map[string]interface{}{
			"operation":   "maps_request",
			"path":        path,
			"status_code": resp.StatusCode,
		})
		return "", classified
	}

	// The service reports failures inside a 200 body
	var envelope apiEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Status == "0" {
		classified := classifyServiceInfo(envelope)
		c.logger.Warn("Geo request returned service error", map[string]interface{}{
			"operation": "maps_request",
			"path":      path,
			"info":      envelope.Info,
			"infocode":  envelope.Infocode,
		})
		return "", classified
	}

	return string(body), nil
}

// classifyServiceInfo maps in-band service errors onto the taxonomy.
// Quota and QPS exhaustion codes are transient; everything else is a
// request or credential problem.
func classifyServiceInfo(envelope apiEnvelope) error {
	info := strings.ToUpper(envelope.Info)
	switch {
	case strings.Contains(info, "CUQPS") || strings.Contains(info, "QUOTA") ||
		strings.Contains(info, "OVER_LIMIT") || envelope.Infocode == "10003" ||
		envelope.Infocode == "10019" || envelope.Infocode == "10020" || envelope.Infocode == "10021":
		return fmt.Errorf("service throttled (%s): %w", envelope.Info, core.ErrRateLimited)
	case strings.Contains(info, "INVALID_USER_KEY") || envelope.Infocode == "10001":
		return fmt.Errorf("service rejected key (%s): %w", envelope.Info, core.ErrUnauthorized)
	default:
		return fmt.Errorf("service error (%s): %w", envelope.Info, core.ErrInvalidRequest)
	}
}

func classifyStatus(status int) error {
	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("status %d: %w", status, core.ErrRateLimited)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("status %d: %w", status, core.ErrUnauthorized)
	case status >= 500:
		return fmt.Errorf("status %d: %w", status, core.ErrServerError)
	default:
		return fmt.Errorf("status %d: %w", status, core.ErrInvalidRequest)
	}
}

func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%v: %w", err, core.ErrTimeout)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%v: %w", err, core.ErrConnectionFailed)
}
