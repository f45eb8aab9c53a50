// Package caseadapter fetches raw case records (including their
// detections) from the external case-management system the orchestrator
// enriches cases on behalf of.
package caseadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// RawDetection is one detection as the external system reports it, before
// eligibility filtering or normalization.
type RawDetection struct {
	ID          string                 `json:"id"`
	RuleName    string                 `json:"rule_name"`
	RuleType    string                 `json:"rule_type,omitempty"`
	EventFilter string                 `json:"event_filter"`
	EventFromMS int64                  `json:"event_from_time_ms"`
	EventToMS   int64                  `json:"event_to_time_ms"`
	Fields      map[string]interface{} `json:"fields,omitempty"`
}

// RawCase is the raw case payload fetched from the external system.
type RawCase struct {
	ID         string                 `json:"id"`
	Title      string                 `json:"title"`
	Detections []RawDetection         `json:"detections"`
	Fields     map[string]interface{} `json:"fields"`
}

// Adapter fetches raw cases by id.
type Adapter struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *slog.Logger
}

// NewAdapter builds an Adapter against the external case-management API at
// baseURL.
func NewAdapter(baseURL, apiKey string) *Adapter {
	return &Adapter{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    baseURL,
		apiKey:     apiKey,
		logger:     slog.Default(),
	}
}

// FetchCases returns the raw cases for ids, fetched with a single batch
// request. Any failure of that request is logged and yields an empty,
// non-nil slice; ids are not fetched individually, so one unreachable
// case is not isolated from the rest of the batch.
func (a *Adapter) FetchCases(ctx context.Context, ids []string) []RawCase {
	if len(ids) == 0 {
		return []RawCase{}
	}

	body, err := json.Marshal(struct {
		IDs []string `json:"ids"`
	}{IDs: ids})
	if err != nil {
		a.logger.Error("encode fetch_cases request", "error", err)
		return []RawCase{}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/cases/batch", bytes.NewReader(body))
	if err != nil {
		a.logger.Error("build fetch_cases request", "error", err)
		return []RawCase{}
	}
	req.Header.Set("Content-Type", "application/json")
	if a.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.apiKey)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		a.logger.Warn("fetch_cases request failed", "error", err)
		return []RawCase{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		a.logger.Warn("fetch_cases non-200 response", "status", resp.StatusCode)
		return []RawCase{}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		a.logger.Warn("read fetch_cases response", "error", err)
		return []RawCase{}
	}

	var cases []RawCase
	if err := json.Unmarshal(raw, &cases); err != nil {
		a.logger.Warn("decode fetch_cases response", "error", err)
		return []RawCase{}
	}

	for i := range cases {
		for j := range cases[i].Detections {
			if cases[i].Detections[j].RuleType == "" {
				cases[i].Detections[j].RuleType = classifyRuleType(cases[i].Detections[j].RuleName)
			}
		}
	}

	return cases
}

// classifyRuleType derives a rule_type from a rule_name prefix when the
// source system didn't supply one, mirroring the eligibility filter's own
// prefix vocabulary.
func classifyRuleType(ruleName string) string {
	name := strings.ToLower(ruleName)
	switch {
	case strings.HasPrefix(name, "fact"):
		return "factFeature"
	case strings.HasPrefix(name, "prof"):
		return "profileFeature"
	default:
		return ""
	}
}
