package bootstrap

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-roaster/internal/extract"
	"resume-roaster/internal/llm/openrouter"
	"resume-roaster/internal/proxy"
	"resume-roaster/internal/services/health"
	"resume-roaster/internal/shared/config"
	"resume-roaster/internal/shared/server"
	"resume-roaster/internal/shared/server/middleware"
	"resume-roaster/internal/shared/telemetry"
	"resume-roaster/internal/uploads"
)

// App holds shared dependencies and the routed engine.
type App struct {
	Config         config.Config
	Router         *gin.Engine
	Upstream       *openrouter.Client
	Extractor      *extract.Extractor
	Health         *health.Service
	ProxyHandler   *proxy.Handler
	UploadsHandler *uploads.Handler
}

// Build prepares dependencies and wires routes. A missing provider key is not
// a build failure: the proxy answers "unconfigured" until one is supplied.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}

	upstream, err := buildUpstream(cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config:    cfg,
		Upstream:  upstream,
		Extractor: extract.New(),
		Health:    health.NewService(upstream != nil, cfg.Model),
	}

	// A typed nil *openrouter.Client must not reach the handler as a non-nil interface.
	var up proxy.Upstream
	if upstream != nil {
		up = upstream
	}
	app.ProxyHandler = proxy.NewHandler(up, cfg.Model, cfg.MaxTokens)
	app.UploadsHandler = uploads.NewHandler(app.Extractor, cfg.MaxUploadBytes)

	if app.ProxyHandler == nil || app.UploadsHandler == nil {
		return nil, errors.New("failed to initialize handlers")
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:         cfg,
		ProxyHandler:   app.ProxyHandler,
		UploadsHandler: app.UploadsHandler,
		Health:         app.Health,
		RateLimiter:    middleware.NewRateLimiter(nil),
	})
	return app, nil
}

func buildUpstream(cfg config.Config) (*openrouter.Client, error) {
	if !cfg.Configured() {
		telemetry.Warn("bootstrap.unconfigured", map[string]any{
			"env":    cfg.Env,
			"reason": "OPENROUTER_API_KEY is empty; chat proxy will answer 500",
		})
		return nil, nil
	}
	return openrouter.NewClient(openrouter.Options{
		APIKey:  cfg.ProviderAPIKey,
		URL:     cfg.ProviderURL,
		Referer: cfg.Referer,
		Title:   cfg.Title,
		Timeout: cfg.LLMTimeout,
	})
}
