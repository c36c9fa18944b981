// Gemini text-generation client for the generative language REST endpoint.
package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/time/rate"

	"moodify/internal/shared"
)

const (
	geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// DefaultModel is used when the config does not name one.
	DefaultModel = "gemini-1.0-pro-latest"
)

// GeminiClient calls the generative language model's generateContent endpoint.
//
// One prompt in, one text blob out. The client enforces a local rate limit on
// outgoing calls; it never retries.
type GeminiClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewGeminiClient creates a client for the given API key and model.
func NewGeminiClient(apiKey, model string, opts ...GeminiOption) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: gemini api_key is required", shared.ErrMissingCredentials)
	}
	if model == "" {
		model = DefaultModel
	}

	c := &GeminiClient{
		apiKey:     apiKey,
		model:      model,
		baseURL:    geminiBaseURL,
		httpClient: http.DefaultClient,
		limiter:    rate.NewLimiter(rate.Limit(1), 3),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// GeminiOption customizes a [GeminiClient].
type GeminiOption func(*GeminiClient)

// WithBaseURL overrides the API base URL (used in tests).
func WithBaseURL(u string) GeminiOption {
	return func(c *GeminiClient) { c.baseURL = u }
}

// WithGeminiHTTPClient overrides the HTTP client.
func WithGeminiHTTPClient(h *http.Client) GeminiOption {
	return func(c *GeminiClient) { c.httpClient = h }
}

// WithLimiter overrides the outgoing-call rate limiter.
func WithLimiter(l *rate.Limiter) GeminiOption {
	return func(c *GeminiClient) { c.limiter = l }
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Generate sends the prompt and returns the model's raw text response.
func (c *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrSynthesisFailed, err)
	}

	payload, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrSynthesisFailed, err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrSynthesisFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrSynthesisFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: model endpoint returned status %d", shared.ErrSynthesisFailed, resp.StatusCode)
	}

	var body generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: malformed model response: %v", shared.ErrSynthesisFailed, err)
	}

	if len(body.Candidates) == 0 || len(body.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: model returned no candidates", shared.ErrSynthesisFailed)
	}

	return body.Candidates[0].Content.Parts[0].Text, nil
}
