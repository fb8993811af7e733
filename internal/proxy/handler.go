package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-roaster/internal/llm"
	"resume-roaster/internal/llm/openrouter"
	"resume-roaster/internal/roast"
	"resume-roaster/internal/shared/metrics"
	"resume-roaster/internal/shared/server/middleware"
	"resume-roaster/internal/shared/server/respond"
)

const (
	maxBodyBytes   = 1 << 20
	maxTemperature = 2.0
)

// Upstream forwards a chat completion and returns the raw provider reply.
type Upstream interface {
	Do(ctx context.Context, req llm.ChatRequest, referer string) (*openrouter.Response, error)
}

// Handler holds the provider credential server-side (inside Upstream) and
// relays roast requests. It keeps no per-request state.
type Handler struct {
	upstream  Upstream
	model     string
	maxTokens int
}

// NewHandler constructs a Handler. A nil upstream means the server has no
// provider credential; every roast request then fails with "unconfigured".
func NewHandler(upstream Upstream, model string, maxTokens int) *Handler {
	if strings.TrimSpace(model) == "" {
		model = roast.DefaultModel
	}
	if maxTokens <= 0 {
		maxTokens = roast.DefaultMaxTokens
	}
	return &Handler{upstream: upstream, model: model, maxTokens: maxTokens}
}

// RegisterRoutes attaches the proxy routes. Extra handlers (rate limiting) run
// before the POST handler only.
func (h *Handler) RegisterRoutes(rg gin.IRoutes, guards ...gin.HandlerFunc) {
	rg.OPTIONS("/chat-proxy", h.preflight)
	rg.POST("/chat-proxy", append(guards, h.chatProxy)...)
}

func (h *Handler) preflight(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func (h *Handler) chatProxy(c *gin.Context) {
	if h.upstream == nil {
		fail(c, http.StatusInternalServerError, roast.KindUnconfigured, "API key not configured on the server")
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	var req roast.ProxyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, roast.KindInvalidRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.ResumeText) == "" || strings.TrimSpace(req.Spiciness) == "" {
		fail(c, http.StatusBadRequest, roast.KindInvalidRequest, "Missing required parameters")
		return
	}
	level, err := roast.ParseSpiciness(req.Spiciness)
	if err != nil {
		fail(c, http.StatusBadRequest, roast.KindInvalidRequest, err.Error())
		return
	}
	c.Set(middleware.SpicinessKey, string(level))
	if t := req.Temperature; t != nil && (*t < 0 || *t > maxTemperature) {
		fail(c, http.StatusBadRequest, roast.KindInvalidRequest, "temperature must be between 0 and 2")
		return
	}

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		prompt = level.Prompt()
	}
	temperature := level.Temperature()
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = h.model
	}

	metrics.IncRoastRequested()
	chat := roast.BuildChatRequest(prompt, req.ResumeText, temperature, model, h.maxTokens)
	resp, err := h.upstream.Do(c.Request.Context(), chat, c.GetHeader("Origin"))
	if err != nil {
		if openrouter.IsTimeout(err) {
			fail(c, http.StatusGatewayTimeout, roast.KindTimeout, "OpenRouter API request timed out")
			return
		}
		fail(c, http.StatusInternalServerError, roast.KindProviderError, err.Error())
		return
	}
	metrics.ObserveUpstreamDurationMs(float64(resp.Duration.Microseconds()) / 1000.0)
	c.Set(middleware.UpstreamStatusKey, resp.StatusCode)

	if !resp.OK() {
		fallback := fmt.Sprintf("OpenRouter API error: %d %s", resp.StatusCode, resp.StatusText())
		message := roast.FailureMessage(resp.Body)
		if message == "" {
			message = fallback
		}
		kind := roast.ClassifyFailure(resp.StatusCode, resp.Body, fallback).Kind
		fail(c, resp.StatusCode, kind, message)
		return
	}

	if rerr := validateCompletion(resp.Body); rerr != nil {
		status := http.StatusInternalServerError
		if rerr.Kind == roast.KindInsufficientCredit {
			status = http.StatusPaymentRequired
		}
		c.Set(middleware.ErrorCodeKey, string(rerr.Kind))
		metrics.IncRoastFailed(string(rerr.Kind))
		body := respond.ErrorResponse{Error: rerr.Message, Code: string(rerr.Kind)}
		if rerr.Kind == roast.KindMalformedResponse {
			body.Details = rerr.Err.Error()
			body.RawResponse = roast.Truncate(string(resp.Body), roast.MaxRawDiagnostic)
		}
		respond.Abort(c, status, body)
		return
	}

	metrics.IncRoastSucceeded()
	respond.RawJSON(c, http.StatusOK, resp.Body)
}

// validateCompletion separates an empty body, an unparsable body and a
// payload without a choices array before the body is relayed untouched.
func validateCompletion(body []byte) *roast.Error {
	if _, perr := roast.ParseCompletion(http.StatusOK, body); perr != nil {
		switch perr.Kind {
		case roast.KindEmptyResponse:
			perr.Message = "Empty response from OpenRouter API"
		case roast.KindMalformedResponse:
			perr.Message = "Failed to parse OpenRouter API response"
		}
		return perr
	}
	var probe struct {
		Choices json.RawMessage `json:"choices"`
	}
	_ = json.Unmarshal(body, &probe)
	if !bytes.HasPrefix(bytes.TrimSpace(probe.Choices), []byte("[")) {
		return &roast.Error{Kind: roast.KindNoContent, Message: "Invalid response structure from OpenRouter API: missing choices array"}
	}
	return nil
}

func fail(c *gin.Context, status int, kind roast.Kind, message string) {
	c.Set(middleware.ErrorCodeKey, string(kind))
	metrics.IncRoastFailed(string(kind))
	respond.Error(c, status, string(kind), message)
}
