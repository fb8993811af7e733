package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"resume-roaster/internal/llm"
	"resume-roaster/internal/shared/telemetry"
)

const (
	DefaultURL     = "https://openrouter.ai/api/v1/chat/completions"
	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 4 << 20
)

var (
	// ErrMissingAPIKey is returned by NewClient without a credential.
	ErrMissingAPIKey = errors.New("OPENROUTER_API_KEY is required")
	// ErrTimeout marks a request that hit the client deadline.
	ErrTimeout = errors.New("openrouter request timeout")
)

// Options configures a Client.
type Options struct {
	APIKey  string
	URL     string
	Referer string
	Title   string
	Timeout time.Duration
}

// Client sends chat completions to OpenRouter and returns the raw reply so
// callers can relay or classify it themselves.
type Client struct {
	apiKey     string
	url        string
	referer    string
	title      string
	httpClient *http.Client
}

// Response is an unparsed provider reply.
type Response struct {
	StatusCode int
	Status     string
	Body       []byte
	Duration   time.Duration
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// StatusText is the reason phrase without the numeric prefix.
func (r *Response) StatusText() string {
	text := strings.TrimSpace(strings.TrimPrefix(r.Status, fmt.Sprint(r.StatusCode)))
	if text == "" {
		text = http.StatusText(r.StatusCode)
	}
	return text
}

// NewClient constructs a new OpenRouter client.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	if strings.TrimSpace(opts.URL) == "" {
		opts.URL = DefaultURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &Client{
		apiKey:  strings.TrimSpace(opts.APIKey),
		url:     opts.URL,
		referer: opts.Referer,
		title:   opts.Title,
		httpClient: &http.Client{
			Timeout: opts.Timeout,
		},
	}, nil
}

// Do posts req and returns the provider's status and body. A non-2xx status
// is not an error here. referer overrides the configured HTTP-Referer when set.
func (c *Client) Do(ctx context.Context, req llm.ChatRequest, referer string) (*Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	if referer = strings.TrimSpace(referer); referer == "" {
		referer = c.referer
	}
	if referer != "" {
		httpReq.Header.Set("HTTP-Referer", referer)
	}
	if c.title != "" {
		httpReq.Header.Set("X-Title", c.title)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if IsTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if IsTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("openrouter read body: %w", err)
	}
	out := &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       body,
		Duration:   time.Since(start),
	}
	logUsage(req.Model, out)
	return out, nil
}

// IsTimeout reports whether err came from a deadline or a network timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func logUsage(model string, resp *Response) {
	fields := map[string]any{
		"ai_model":    model,
		"status":      resp.StatusCode,
		"duration_ms": float64(resp.Duration.Microseconds()) / 1000.0,
		"body_bytes":  len(resp.Body),
	}
	var parsed llm.ChatResponse
	if resp.OK() && json.Unmarshal(resp.Body, &parsed) == nil && parsed.Usage != nil {
		fields["prompt_tokens"] = parsed.Usage.PromptTokens
		fields["completion_tokens"] = parsed.Usage.CompletionTokens
		fields["total_tokens"] = parsed.Usage.TotalTokens
	}
	telemetry.Info("llm.response", fields)
}
