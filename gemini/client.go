// Package gemini implements an HTTP client for the Google AI (Gemini)
// generateContent API with a two-tier retry policy.
//
// Transient failures (rate limit, server errors, timeouts) are retried: the
// wait before the next attempt is the server-supplied duration when the
// response carries one (Retry-After header or a RetryInfo error detail),
// otherwise an exponential backoff computed from the configured initial
// delay. Non-transient failures are never retried. Retries are bounded; when
// the budget is exhausted the last cause is surfaced wrapped in a
// *RetryExhaustedError.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultBaseURL is the public Generative Language API endpoint.
const DefaultBaseURL = "https://generativelanguage.googleapis.com"

// DefaultModel is used when the configuration names none.
const DefaultModel = "gemini-2.5-flash"

// Config holds everything the client needs. It is passed in explicitly;
// the client never reads ambient process-wide state.
type Config struct {
	// APIKey authenticates against the API.
	APIKey string
	// Model is the model identifier (e.g. "gemini-2.5-flash").
	Model string
	// BaseURL overrides the API endpoint (used by tests).
	BaseURL string
	// Proxy is an optional HTTP/HTTPS proxy URL.
	Proxy string
	// Timeout is the per-request timeout.
	Timeout time.Duration
	// MaxRetries bounds the retry budget per logical request.
	MaxRetries int
	// InitialDelay seeds the exponential backoff fallback.
	InitialDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Timeout <= 0 {
		c.Timeout = 120 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 5
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = time.Second
	}
	return c
}

// Client calls the Gemini API with retries. Concurrent Generate calls are
// independent; no rate-limit state is shared between them.
type Client struct {
	cfg  Config
	http *http.Client

	// OnRetry is called before each retry sleep with the attempt number
	// (starting at 0), the computed wait, and where the wait came from.
	OnRetry func(attempt int, wait time.Duration, source DelaySource)
	// OnLog emits diagnostic messages.
	OnLog func(format string, args ...any)

	// sleep is replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New builds a client from cfg, applying defaults for unset fields.
func New(cfg Config) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		cfg:   cfg,
		http:  makeHTTPClient(cfg.Proxy, cfg.Timeout),
		sleep: sleepContext,
	}
}

func makeHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxyURL != "" {
		if parsed, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(parsed)
		}
	} else {
		transport.Proxy = http.ProxyFromEnvironment
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

func (c *Client) log(format string, args ...any) {
	if c.OnLog != nil {
		c.OnLog(format, args...)
	}
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

// APIError is a non-2xx API response. Transient errors are retried
// internally and only escape wrapped in a RetryExhaustedError.
type APIError struct {
	Status    int
	Message   string
	Transient bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API returned status %d: %s", e.Status, e.Message)
}

// RetryExhaustedError reports that every attempt of the retry budget failed.
type RetryExhaustedError struct {
	// Attempts is the total number of requests made.
	Attempts int
	// Waited is the total time slept between attempts.
	Waited time.Duration
	// Err is the last underlying cause.
	Err error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts (waited %s total): %v", e.Attempts, e.Waited, e.Err)
}

func (e *RetryExhaustedError) Unwrap() error { return e.Err }

// transientStatus classifies HTTP statuses that are expected to resolve
// with waiting.
func transientStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// ---------------------------------------------------------------------------
// Request / response wire format
// ---------------------------------------------------------------------------

func buildRequest(systemPrompt, userPrompt string, temperature float64) ([]byte, error) {
	type part struct {
		Text string `json:"text"`
	}
	type content struct {
		Role  string `json:"role,omitempty"`
		Parts []part `json:"parts"`
	}
	type genConfig struct {
		Temperature float64 `json:"temperature"`
	}
	req := struct {
		Contents          []content `json:"contents"`
		GenerationConfig  genConfig `json:"generationConfig"`
		SystemInstruction *content  `json:"systemInstruction,omitempty"`
	}{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: userPrompt}}},
		},
		GenerationConfig: genConfig{Temperature: temperature},
	}
	if systemPrompt != "" {
		req.SystemInstruction = &content{Parts: []part{{Text: systemPrompt}}}
	}
	return json.Marshal(req)
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func parseResponseText(body []byte) (string, error) {
	var resp generateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("invalid JSON response: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("response has no candidates: %s", truncate(string(body), 300))
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}

// apiMessage extracts the error message from an API error body.
func apiMessage(body []byte) string {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		return errResp.Error.Message
	}
	return truncate(string(body), 300)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// ---------------------------------------------------------------------------
// Generate
// ---------------------------------------------------------------------------

// Generate sends one prompt and returns the response text, retrying
// transient failures per the configured policy. Context cancellation
// interrupts both requests and retry sleeps.
func (c *Client) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	body, err := buildRequest(systemPrompt, userPrompt, 0.3)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent",
		strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.Model)
	reqID := uuid.NewString()

	st := newRetryState(c.cfg.MaxRetries, c.cfg.InitialDelay)
	var lastErr error

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		if c.cfg.APIKey != "" {
			req.Header.Set("x-goog-api-key", c.cfg.APIKey)
		}

		var (
			hint    time.Duration
			hasHint bool
		)

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			// Network failures and timeouts are transient; retry
			// on the backoff schedule.
			lastErr = fmt.Errorf("request %s: %w", reqID, err)
		} else {
			respBody, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			if readErr != nil {
				lastErr = fmt.Errorf("request %s: reading response: %w", reqID, readErr)
			} else if resp.StatusCode == http.StatusOK {
				return parseResponseText(respBody)
			} else {
				apiErr := &APIError{
					Status:    resp.StatusCode,
					Message:   apiMessage(respBody),
					Transient: transientStatus(resp.StatusCode),
				}
				if !apiErr.Transient {
					return "", apiErr
				}
				lastErr = apiErr
				hint, hasHint = serverWait(resp.Header, respBody)
			}
		}

		attempt := st.attempt
		wait, source, ok := st.next(hint, hasHint)
		if !ok {
			return "", &RetryExhaustedError{
				Attempts: st.attempt + 1,
				Waited:   st.waited,
				Err:      lastErr,
			}
		}

		c.log("[%s] transient API failure, retrying in %s (attempt %d/%d, %s): %v",
			reqID, wait, attempt+1, c.cfg.MaxRetries, source, lastErr)
		if c.OnRetry != nil {
			c.OnRetry(attempt, wait, source)
		}

		if wait > 0 {
			if err := c.sleep(ctx, wait); err != nil {
				return "", err
			}
			st.waited += wait
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
