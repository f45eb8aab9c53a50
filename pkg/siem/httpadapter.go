package siem

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// HTTPAdapter queries a SIEM backend that exposes a single JSON search
// endpoint: POST {event_filter, from_ms, to_ms, limit} -> {events[], total_count}.
// A circuit breaker guards the endpoint so a degraded backend fails fast
// instead of piling up timed-out goroutines under the executor's semaphore.
type HTTPAdapter struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger
}

// NewHTTPAdapter builds an adapter for a SIEM backend reachable at baseURL.
// apiKey may be empty for backends that don't require one.
func NewHTTPAdapter(baseURL, apiKey string) *HTTPAdapter {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "siem_query",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("siem circuit breaker state change", "breaker", name, "from", from, "to", to)
		},
	})

	return &HTTPAdapter{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
		breaker:    breaker,
		logger:     slog.Default(),
	}
}

type searchRequest struct {
	EventFilter string `json:"event_filter"`
	FromMS      int64  `json:"from_ms"`
	ToMS        int64  `json:"to_ms"`
	Limit       int    `json:"limit"`
}

type searchResponse struct {
	Events     []map[string]interface{} `json:"events"`
	TotalCount int                       `json:"total_count"`
}

// Query implements Adapter.
func (a *HTTPAdapter) Query(ctx context.Context, eventFilter string, fromMS, toMS int64, limit int) ([]map[string]interface{}, int, error) {
	result, err := a.breaker.Execute(func() (interface{}, error) {
		return a.doQuery(ctx, eventFilter, fromMS, toMS, limit)
	})
	if err != nil {
		return nil, 0, err
	}
	resp := result.(*searchResponse)
	return resp.Events, resp.TotalCount, nil
}

func (a *HTTPAdapter) doQuery(ctx context.Context, eventFilter string, fromMS, toMS int64, limit int) (*searchResponse, error) {
	body, err := json.Marshal(searchRequest{EventFilter: eventFilter, FromMS: fromMS, ToMS: toMS, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("encode search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query siem backend: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("siem backend returned HTTP %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	var parsed searchResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	return &parsed, nil
}
