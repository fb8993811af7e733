package roast

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

	"resume-roaster/internal/llm"
	"resume-roaster/internal/llm/openrouter"
	"resume-roaster/internal/shared/telemetry"
)

const (
	// DefaultTimeout bounds one roast request end to end.
	DefaultTimeout = 30 * time.Second
	// DefaultModel is the free OpenRouter model the roaster targets.
	DefaultModel = "google/gemma-3-1b-it:free"
	// ProxyPath is where the proxy handler is mounted.
	ProxyPath = "/api/chat-proxy"

	maxResponseBytes = 4 << 20
)

// Generator produces a roast for a résumé.
type Generator interface {
	Generate(ctx context.Context, resumeText string, level Spiciness) (string, error)
}

type outbound struct {
	resumeText  string
	level       Spiciness
	prompt      string
	temperature float64
}

type reply struct {
	status int
	body   []byte
}

type sender interface {
	send(ctx context.Context, req outbound) (reply, error)
	// fallback is the message used when a failure body has none.
	fallback(status int) string
}

type options struct {
	model       string
	timeout     time.Duration
	maxTokens   int
	httpClient  *http.Client
	providerURL string
	referer     string
	title       string
}

// Option customizes a Client.
type Option func(*options)

// WithModel selects the provider model.
func WithModel(model string) Option {
	return func(o *options) {
		if m := strings.TrimSpace(model); m != "" {
			o.model = m
		}
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithMaxTokens caps the completion length in direct mode.
func WithMaxTokens(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxTokens = n
		}
	}
}

// WithHTTPClient replaces the HTTP client used in proxy mode.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		if c != nil {
			o.httpClient = c
		}
	}
}

// WithProviderURL points direct mode at another chat completions endpoint.
func WithProviderURL(url string) Option {
	return func(o *options) {
		o.providerURL = strings.TrimSpace(url)
	}
}

// WithAttribution sets the HTTP-Referer and X-Title headers sent in direct mode.
func WithAttribution(referer, title string) Option {
	return func(o *options) {
		o.referer = strings.TrimSpace(referer)
		o.title = strings.TrimSpace(title)
	}
}

func buildOptions(opts []Option) options {
	o := options{
		model:     DefaultModel,
		timeout:   DefaultTimeout,
		maxTokens: DefaultMaxTokens,
		title:     "Resume Roaster",
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Client generates roasts either through the proxy or straight against the
// provider. It never retries; a retry is a new call to Generate.
type Client struct {
	sender  sender
	model   string
	timeout time.Duration
}

// NewProxyClient talks to a proxy at baseURL (scheme and host, no path).
func NewProxyClient(baseURL string, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, newError(KindUnconfigured, 0, "proxy URL is required", nil)
	}
	o := buildOptions(opts)
	hc := o.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: o.timeout}
	}
	return &Client{
		sender:  &proxySender{url: base + ProxyPath, model: o.model, httpClient: hc},
		model:   o.model,
		timeout: o.timeout,
	}, nil
}

// NewDirectClient calls the provider with the caller's own API key.
func NewDirectClient(apiKey string, opts ...Option) (*Client, error) {
	o := buildOptions(opts)
	orClient, err := openrouter.NewClient(openrouter.Options{
		APIKey:  apiKey,
		URL:     o.providerURL,
		Referer: o.referer,
		Title:   o.title,
		Timeout: o.timeout,
	})
	if err != nil {
		return nil, newError(KindUnconfigured, 0, "an OpenRouter API key is required for direct mode", err)
	}
	return &Client{
		sender:  &directSender{client: orClient, model: o.model, maxTokens: o.maxTokens},
		model:   o.model,
		timeout: o.timeout,
	}, nil
}

// Generate validates the input locally, sends one request and returns the
// trimmed roast text. Failures are *Error values.
func (c *Client) Generate(ctx context.Context, resumeText string, level Spiciness) (string, error) {
	if TooShort(resumeText) {
		return "", newError(KindTooShort, 0, "", nil)
	}
	if !level.Valid() {
		return "", newError(KindInvalidRequest, 0, fmt.Sprintf("unknown spiciness %q", level), nil)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	rep, err := c.sender.send(ctx, outbound{
		resumeText:  resumeText,
		level:       level,
		prompt:      level.Prompt(),
		temperature: level.Temperature(),
	})
	if err != nil {
		if openrouter.IsTimeout(err) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", newError(KindTimeout, 0, "", err)
		}
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", newError(KindProviderError, 0, "roast request failed", err)
	}
	telemetry.Debug("roast.response", map[string]any{
		"status":      rep.status,
		"spiciness":   string(level),
		"ai_model":    c.model,
		"body_bytes":  len(rep.body),
		"duration_ms": float64(time.Since(start).Microseconds()) / 1000.0,
	})

	if rep.status < 200 || rep.status > 299 {
		return "", ClassifyFailure(rep.status, rep.body, c.sender.fallback(rep.status))
	}

	parsed, perr := ParseCompletion(rep.status, rep.body)
	if perr != nil {
		return "", perr
	}
	content, ok := parsed.Content()
	if !ok {
		return "", newError(KindNoContent, rep.status, "", nil)
	}
	return strings.TrimSpace(content), nil
}

type proxySender struct {
	url        string
	model      string
	httpClient *http.Client
}

func (p *proxySender) send(ctx context.Context, req outbound) (reply, error) {
	payload, err := json.Marshal(ProxyRequest{
		ResumeText:  req.resumeText,
		Spiciness:   string(req.level),
		Prompt:      req.prompt,
		Temperature: llm.Float(req.temperature),
		Model:       p.model,
	})
	if err != nil {
		return reply{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return reply{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return reply{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return reply{}, err
	}
	return reply{status: resp.StatusCode, body: body}, nil
}

func (p *proxySender) fallback(status int) string {
	return fmt.Sprintf("API error: status %d", status)
}

type directSender struct {
	client    *openrouter.Client
	model     string
	maxTokens int
}

func (d *directSender) send(ctx context.Context, req outbound) (reply, error) {
	chat := BuildChatRequest(req.prompt, req.resumeText, req.temperature, d.model, d.maxTokens)
	resp, err := d.client.Do(ctx, chat, "")
	if err != nil {
		return reply{}, err
	}
	return reply{status: resp.StatusCode, body: resp.Body}, nil
}

func (d *directSender) fallback(status int) string {
	return fmt.Sprintf("OpenRouter API error: status %d", status)
}

var _ Generator = (*Client)(nil)
