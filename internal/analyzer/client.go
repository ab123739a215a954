package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultGeminiEndpoint is the public Generative Language API base URL.
const DefaultGeminiEndpoint = "https://generativelanguage.googleapis.com/v1beta"

// ErrGatewayUnavailable wraps transport failures and timeouts.
var ErrGatewayUnavailable = errors.New("gateway unavailable")

// Provider is the interface for generative-text backends.
type Provider interface {
	Generate(ctx context.Context, prompt string) (*GatewayResponse, error)
}

// GatewayError is a non-2xx reply from the gateway. Body is truncated.
type GatewayError struct {
	StatusCode int
	Body       string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gemini API error %d: %s", e.StatusCode, e.Body)
}

// GatewayResponse is the subset of a generateContent reply the analyzer reads.
type GatewayResponse struct {
	Candidates []Candidate `json:"candidates"`
}

// Candidate is one generated completion.
type Candidate struct {
	Content struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"content"`
	FinishReason string `json:"finishReason,omitempty"`
}

// GenerationConfig holds sampling parameters sent with every request.
type GenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
	TopK            int     `json:"topK"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// SafetySetting is one harm-category threshold.
type SafetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

// DefaultGenerationConfig favours stable, structured output.
var DefaultGenerationConfig = GenerationConfig{
	Temperature:     0.3,
	TopP:            0.8,
	TopK:            40,
	MaxOutputTokens: 1024,
}

// DefaultSafetySettings blocks medium-and-above content in all four categories.
var DefaultSafetySettings = []SafetySetting{
	{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_SEXUALLY_EXPLICIT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
	{Category: "HARM_CATEGORY_DANGEROUS_CONTENT", Threshold: "BLOCK_MEDIUM_AND_ABOVE"},
}

// NewProvider creates a Provider from configuration. It returns nil, nil for
// provider "none" so callers run on heuristics alone.
// timeoutSec overrides the default HTTP timeout; 0 uses 30s.
func NewProvider(provider, apiKey, model, endpoint string, timeoutSec int) (Provider, error) {
	switch provider {
	case "gemini":
		return NewGeminiProvider(apiKey, model, endpoint, timeoutSec), nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported provider: %q", provider)
	}
}

// GeminiProvider implements Provider for Google Gemini generateContent.
type GeminiProvider struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

// NewGeminiProvider creates a Gemini client with a fixed request timeout.
func NewGeminiProvider(apiKey, model, endpoint string, timeoutSec int) *GeminiProvider {
	ep := DefaultGeminiEndpoint
	if endpoint != "" {
		ep = strings.TrimRight(endpoint, "/")
	}
	timeout := 30 * time.Second
	if timeoutSec > 0 {
		timeout = time.Duration(timeoutSec) * time.Second
	}
	return &GeminiProvider{
		apiKey:   apiKey,
		model:    model,
		endpoint: ep,
		client:   &http.Client{Timeout: timeout},
	}
}

func (p *GeminiProvider) Generate(ctx context.Context, prompt string) (*GatewayResponse, error) {
	body := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": []map[string]string{{"text": prompt}}},
		},
		"generationConfig": DefaultGenerationConfig,
		"safetySettings":   DefaultSafetySettings,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", p.endpoint, p.model)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-goog-api-key", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrGatewayUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &GatewayError{StatusCode: resp.StatusCode, Body: truncateAPIError(respBody)}
	}

	var result GatewayResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &result, nil
}

// truncateAPIError limits API error response bodies to prevent sensitive information leakage.
// Returns at most 512 bytes of the response for diagnostic purposes.
func truncateAPIError(body []byte) string {
	const maxLen = 512
	if len(body) <= maxLen {
		return string(body)
	}
	return string(body[:maxLen]) + "... (truncated)"
}

// errorKind labels a gateway failure for logs and metrics.
func errorKind(err error) string {
	var gwErr *GatewayError
	switch {
	case errors.As(err, &gwErr):
		return fmt.Sprintf("http_%d", gwErr.StatusCode)
	case errors.Is(err, ErrGatewayUnavailable):
		return "unavailable"
	case errors.Is(err, ErrNoCandidates):
		return "no_candidates"
	default:
		return "invalid_response"
	}
}
