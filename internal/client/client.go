// Package client is a small HTTP client for the cyber defense API, used by the CLI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/iyulab/cyber-defense/internal/analyzer"
	"github.com/iyulab/cyber-defense/internal/demo"
	"github.com/iyulab/cyber-defense/internal/event"
	"github.com/iyulab/cyber-defense/internal/store"
)

// DefaultBaseURL is the API address used when none is configured.
const DefaultBaseURL = "http://localhost:8000"

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Client calls the API over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client. A timeout of zero uses 120s so analysis calls can
// outlast the server's gateway timeout.
func New(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health is the /health response.
type Health struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// Stats is the /stats response.
type Stats struct {
	TotalLogs        int64                  `json:"total_logs"`
	Last24hSeverity  map[string]int64       `json:"last_24h_severity"`
	TopEventTypes24h []store.EventTypeCount `json:"top_event_types_24h"`
	Timestamp        time.Time              `json:"timestamp"`
}

// Analysis is the /analysis response.
type Analysis struct {
	analyzer.Assessment
	Timestamp time.Time `json:"timestamp"`
}

// ChatAnswer is the /chat response.
type ChatAnswer struct {
	Question        string    `json:"question"`
	Answer          string    `json:"answer"`
	ContextLogsUsed int       `json:"context_logs_used"`
	Timestamp       time.Time `json:"timestamp"`
}

// Created is the POST /logs response.
type Created struct {
	Message string `json:"message"`
	ID      uint   `json:"id"`
	Status  string `json:"status"`
}

// SimulationResult is the /simulate-attack response.
type SimulationResult struct {
	AttackType   string `json:"attack_type"`
	LogsCreated  int    `json:"logs_created"`
	SimulationID string `json:"simulation_id"`
	Message      string `json:"message"`
	Status       string `json:"status"`
}

// LogQuery filters ListLogs. Zero values use server defaults.
type LogQuery struct {
	Limit     int
	Severity  string
	EventType string
	HoursBack int
}

func (q LogQuery) values() url.Values {
	v := url.Values{}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Severity != "" {
		v.Set("severity", q.Severity)
	}
	if q.EventType != "" {
		v.Set("event_type", q.EventType)
	}
	if q.HoursBack > 0 {
		v.Set("hours_back", strconv.Itoa(q.HoursBack))
	}
	return v
}

func (c *Client) Health(ctx context.Context) (*Health, error) {
	var out Health
	return &out, c.do(ctx, http.MethodGet, "/health", nil, nil, &out)
}

func (c *Client) Stats(ctx context.Context) (*Stats, error) {
	var out Stats
	return &out, c.do(ctx, http.MethodGet, "/stats", nil, nil, &out)
}

func (c *Client) Analysis(ctx context.Context, hoursBack, limit int) (*Analysis, error) {
	q := LogQuery{HoursBack: hoursBack, Limit: limit}.values()
	var out Analysis
	return &out, c.do(ctx, http.MethodGet, "/analysis", q, nil, &out)
}

func (c *Client) Chat(ctx context.Context, question string) (*ChatAnswer, error) {
	var out ChatAnswer
	return &out, c.do(ctx, http.MethodPost, "/chat", nil, map[string]string{"question": question}, &out)
}

func (c *Client) ListLogs(ctx context.Context, q LogQuery) ([]event.Record, error) {
	var out []event.Record
	if err := c.do(ctx, http.MethodGet, "/logs", q.values(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateLog posts one record. A zero timestamp lets the server stamp it.
func (c *Client) CreateLog(ctx context.Context, r event.Record) (*Created, error) {
	body := map[string]any{
		"source_ip":  r.SourceIP,
		"dest_ip":    r.DestIP,
		"event_type": r.EventType,
		"severity":   r.Severity,
		"message":    r.Message,
	}
	if !r.Timestamp.IsZero() {
		body["timestamp"] = r.Timestamp.UTC().Format(time.RFC3339Nano)
	}
	var out Created
	return &out, c.do(ctx, http.MethodPost, "/logs", nil, body, &out)
}

func (c *Client) SimulateAttack(ctx context.Context, attackType string) (*SimulationResult, error) {
	q := url.Values{"attack_type": {attackType}}
	var out SimulationResult
	return &out, c.do(ctx, http.MethodPost, "/simulate-attack", q, nil, &out)
}

func (c *Client) ExecuteAction(ctx context.Context, action, target string) (*demo.ActionResult, error) {
	var out demo.ActionResult
	body := map[string]string{"action": action, "target": target}
	return &out, c.do(ctx, http.MethodPost, "/execute-action", nil, body, &out)
}

func (c *Client) ThreatIntelligence(ctx context.Context) (*demo.ThreatIntelligence, error) {
	var out demo.ThreatIntelligence
	return &out, c.do(ctx, http.MethodGet, "/threat-intelligence", nil, nil, &out)
}

// PurgeDemo deletes records whose message contains marker (empty = server default).
func (c *Client) PurgeDemo(ctx context.Context, marker string) (int64, error) {
	var q url.Values
	if marker != "" {
		q = url.Values{"marker": {marker}}
	}
	var out struct {
		Deleted int64 `json:"deleted"`
	}
	err := c.do(ctx, http.MethodDelete, "/logs/demo", q, nil, &out)
	return out.Deleted, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("parse %s response: %w", path, err)
	}
	return nil
}

// errorMessage extracts {"error": "..."} or falls back to a truncated body.
func errorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	const maxLen = 512
	if len(body) <= maxLen {
		return string(body)
	}
	return string(body[:maxLen]) + "... (truncated)"
}
