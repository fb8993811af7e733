package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"resume-roaster/internal/llm"
	"resume-roaster/internal/llm/openrouter"
	"resume-roaster/internal/roast"
	"resume-roaster/internal/shared/server/middleware"
)

type fakeUpstream struct {
	resp    *openrouter.Response
	err     error
	calls   int
	lastReq llm.ChatRequest
	referer string
}

func (f *fakeUpstream) Do(ctx context.Context, req llm.ChatRequest, referer string) (*openrouter.Response, error) {
	f.calls++
	f.lastReq = req
	f.referer = referer
	return f.resp, f.err
}

func reply(status int, body string) *openrouter.Response {
	return &openrouter.Response{
		StatusCode: status,
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Body:       []byte(body),
		Duration:   5 * time.Millisecond,
	}
}

func newRouter(up Upstream) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.CORS([]string{"*"}))
	var h *Handler
	if up == nil {
		h = NewHandler(nil, "", 0)
	} else {
		h = NewHandler(up, "default/model", 500)
	}
	h.RegisterRoutes(r.Group("/api"))
	return r
}

func post(t *testing.T, r http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/chat-proxy", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "https://roaster.test")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error body: %v (raw=%q)", err, resp.Body.String())
	}
	return payload
}

const validBody = `{"resumeText":"Ten years of synergy","spiciness":"spicy","prompt":"Roast this.","temperature":0.8,"model":"google/gemma-3-1b-it:free"}`

func TestPreflightReturnsCORSWithoutBody(t *testing.T) {
	r := newRouter(&fakeUpstream{})
	req := httptest.NewRequest(http.MethodOptions, "/api/chat-proxy", nil)
	req.Header.Set("Origin", "https://roaster.test")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
	if resp.Body.Len() != 0 {
		t.Fatalf("expected no body, got %q", resp.Body.String())
	}
	if resp.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing CORS headers: %v", resp.Header())
	}
}

func TestUnconfiguredServer(t *testing.T) {
	resp := post(t, newRouter(nil), validBody)
	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	payload := decodeError(t, resp)
	if payload["code"] != "unconfigured" || payload["error"] != "API key not configured on the server" {
		t.Fatalf("unexpected body: %v", payload)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: `resume please`},
		{name: "missing resume", body: `{"spiciness":"mild"}`},
		{name: "missing spiciness", body: `{"resumeText":"hello"}`},
		{name: "unknown spiciness", body: `{"resumeText":"hello","spiciness":"volcanic"}`},
		{name: "temperature out of range", body: `{"resumeText":"hello","spiciness":"mild","temperature":7}`},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			up := &fakeUpstream{resp: reply(200, `{"choices":[]}`)}
			resp := post(t, newRouter(up), tt.body)
			if resp.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", resp.Code)
			}
			if decodeError(t, resp)["code"] != "invalid_request" {
				t.Fatalf("expected invalid_request code")
			}
			if up.calls != 0 {
				t.Fatalf("upstream must not be called")
			}
		})
	}
}

func TestForwardsChatCompletion(t *testing.T) {
	upstreamBody := `{"id":"gen-1","choices":[{"message":{"role":"assistant","content":"Nice try."}}],"usage":{"total_tokens":12}}`
	up := &fakeUpstream{resp: reply(200, upstreamBody)}
	resp := post(t, newRouter(up), validBody)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if resp.Body.String() != upstreamBody {
		t.Fatalf("expected body relayed unmodified, got %q", resp.Body.String())
	}
	if up.referer != "https://roaster.test" {
		t.Fatalf("expected origin forwarded as referer, got %q", up.referer)
	}
	req := up.lastReq
	if req.Model != "google/gemma-3-1b-it:free" || req.MaxTokens != 500 {
		t.Fatalf("unexpected upstream request: %+v", req)
	}
	if req.Temperature == nil || *req.Temperature != 0.8 {
		t.Fatalf("unexpected temperature")
	}
	if req.Messages[0].Role != llm.RoleSystem || req.Messages[0].Content != roast.SystemPersona {
		t.Fatalf("unexpected system message: %+v", req.Messages[0])
	}
	if req.Messages[1].Content != "Roast this.\n\nHere is the resume to roast:\nTen years of synergy" {
		t.Fatalf("unexpected user message: %q", req.Messages[1].Content)
	}
}

func TestDefaultsFromSpiciness(t *testing.T) {
	up := &fakeUpstream{resp: reply(200, `{"choices":[{"message":{"content":"x"}}]}`)}
	resp := post(t, newRouter(up), `{"resumeText":"hello","spiciness":"extra_spicy"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if up.lastReq.Model != "default/model" {
		t.Fatalf("expected configured model, got %q", up.lastReq.Model)
	}
	if *up.lastReq.Temperature != 0.9 {
		t.Fatalf("expected derived temperature 0.9, got %v", *up.lastReq.Temperature)
	}
	if !strings.HasPrefix(up.lastReq.Messages[1].Content, roast.ExtraSpicy.Prompt()) {
		t.Fatalf("expected level prompt")
	}
}

func TestExplicitZeroTemperatureIsHonored(t *testing.T) {
	up := &fakeUpstream{resp: reply(200, `{"choices":[{"message":{"content":"x"}}]}`)}
	resp := post(t, newRouter(up), `{"resumeText":"hello","spiciness":"spicy","temperature":0}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if up.lastReq.Temperature == nil || *up.lastReq.Temperature != 0 {
		t.Fatalf("expected temperature 0, got %v", up.lastReq.Temperature)
	}
}

func TestUpstreamFailures(t *testing.T) {
	tests := []struct {
		name       string
		upstream   *fakeUpstream
		wantStatus int
		wantCode   string
		wantError  string
	}{
		{
			name:       "402 relayed",
			upstream:   &fakeUpstream{resp: reply(402, `{"error":{"message":"Insufficient credits","code":402}}`)},
			wantStatus: 402, wantCode: "insufficient_credit", wantError: "Insufficient credits",
		},
		{
			name:       "429 message verbatim",
			upstream:   &fakeUpstream{resp: reply(429, `{"error":{"message":"Rate limit exceeded: free-models-per-day"}}`)},
			wantStatus: 429, wantCode: "provider_error", wantError: "Rate limit exceeded: free-models-per-day",
		},
		{
			name:       "non json error falls back to status text",
			upstream:   &fakeUpstream{resp: reply(503, `<html>down</html>`)},
			wantStatus: 503, wantCode: "provider_error", wantError: "OpenRouter API error: 503 Service Unavailable",
		},
		{
			name:       "empty body",
			upstream:   &fakeUpstream{resp: reply(200, "  ")},
			wantStatus: 500, wantCode: "empty_response", wantError: "Empty response from OpenRouter API",
		},
		{
			name:       "missing choices",
			upstream:   &fakeUpstream{resp: reply(200, `{"id":"gen-1"}`)},
			wantStatus: 500, wantCode: "no_content",
		},
		{
			name:       "payload error",
			upstream:   &fakeUpstream{resp: reply(200, `{"error":"Insufficient credits"}`)},
			wantStatus: 402, wantCode: "insufficient_credit",
		},
		{
			name:       "transport timeout",
			upstream:   &fakeUpstream{err: fmt.Errorf("%w: deadline", openrouter.ErrTimeout)},
			wantStatus: 504, wantCode: "timeout",
		},
		{
			name:       "transport failure",
			upstream:   &fakeUpstream{err: errors.New("dial tcp: connection refused")},
			wantStatus: 500, wantCode: "provider_error", wantError: "dial tcp: connection refused",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, newRouter(tt.upstream), validBody)
			if resp.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d: %s", tt.wantStatus, resp.Code, resp.Body.String())
			}
			payload := decodeError(t, resp)
			if payload["code"] != tt.wantCode {
				t.Fatalf("expected code %s, got %v", tt.wantCode, payload["code"])
			}
			if tt.wantError != "" && payload["error"] != tt.wantError {
				t.Fatalf("expected error %q, got %v", tt.wantError, payload["error"])
			}
			if _, ok := payload["stack"]; ok {
				t.Fatalf("stack traces must not leak")
			}
		})
	}
}

func TestMalformedBodyDiagnosticIsTruncated(t *testing.T) {
	raw := "{" + strings.Repeat("x", 800)
	up := &fakeUpstream{resp: reply(200, raw)}
	resp := post(t, newRouter(up), validBody)

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.Code)
	}
	var payload struct {
		Error       string `json:"error"`
		Code        string `json:"code"`
		Details     string `json:"details"`
		RawResponse string `json:"rawResponse"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Code != "malformed_response" || payload.Details == "" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if len(payload.RawResponse) != roast.MaxRawDiagnostic || !strings.HasPrefix(raw, payload.RawResponse) {
		t.Fatalf("expected first %d chars of raw body, got %d", roast.MaxRawDiagnostic, len(payload.RawResponse))
	}
}

func TestEndToEndWithRoastClient(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer server-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  Your buzzwords have buzzwords.  "}}]}`))
	}))
	defer provider.Close()

	upstream, err := openrouter.NewClient(openrouter.Options{APIKey: "server-key", URL: provider.URL, Title: "Resume Roaster"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	proxyServer := httptest.NewServer(newRouter(upstream))
	defer proxyServer.Close()

	client, err := roast.NewProxyClient(proxyServer.URL)
	if err != nil {
		t.Fatalf("NewProxyClient: %v", err)
	}
	resume := strings.Repeat("Results-oriented team player. ", 3)
	got, err := client.Generate(context.Background(), resume, roast.Mild)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "Your buzzwords have buzzwords." {
		t.Fatalf("unexpected roast %q", got)
	}
}

func TestEndToEndUnconfiguredSurfacesKind(t *testing.T) {
	proxyServer := httptest.NewServer(newRouter(nil))
	defer proxyServer.Close()

	client, _ := roast.NewProxyClient(proxyServer.URL)
	_, err := client.Generate(context.Background(), strings.Repeat("x", 60), roast.Spicy)
	if !errors.Is(err, roast.ErrUnconfigured) {
		t.Fatalf("expected unconfigured, got %v", err)
	}
}

