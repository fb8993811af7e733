package bootstrap

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"resume-roaster/internal/shared/config"
)

func TestBuildWithoutKeyAnswersUnconfigured(t *testing.T) {
	app, err := Build(config.Config{Env: "test", CORSAllowOrigin: []string{"*"}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if app.Upstream != nil {
		t.Fatalf("expected no upstream without a key")
	}

	req := httptest.NewRequest(http.MethodPost, "/api/chat-proxy", strings.NewReader(`{"resumeText":"x","spiciness":"mild"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)

	if resp.Code != http.StatusInternalServerError || !strings.Contains(resp.Body.String(), `"code":"unconfigured"`) {
		t.Fatalf("unexpected response %d: %s", resp.Code, resp.Body.String())
	}
}

func TestBuildWithKey(t *testing.T) {
	app, err := Build(config.Config{ProviderAPIKey: "sk-test", Model: "m", CORSAllowOrigin: []string{"*"}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if app.Upstream == nil || !app.Health.Status().Configured {
		t.Fatalf("expected configured upstream")
	}
	if app.Config.Env != "dev" {
		t.Fatalf("expected default env, got %q", app.Config.Env)
	}
}
