package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"resume-roaster/internal/shared/telemetry"
)

const (
	DefaultProviderURL = "https://openrouter.ai/api/v1/chat/completions"
	DefaultModel       = "google/gemma-3-1b-it:free"
	DefaultReferer     = "https://resume-roaster.local"
	DefaultTitle       = "Resume Roaster"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	CORSAllowOrigin []string
	ProviderAPIKey  string
	ProviderURL     string
	Model           string
	MaxTokens       int
	LLMTimeout      time.Duration
	Referer         string
	Title           string
	RateLimitRPS    float64
	RateLimitBurst  int
	MaxUploadBytes  int64
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	apiKey := strings.TrimSpace(os.Getenv("OPENROUTER_API_KEY"))
	if apiKey == "" {
		telemetry.Warn("config.provider_key_missing", map[string]any{
			"env": env,
			"key": "OPENROUTER_API_KEY",
		})
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		Env:             env,
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "*")),
		ProviderAPIKey:  apiKey,
		ProviderURL:     getEnv("OPENROUTER_API_URL", DefaultProviderURL),
		Model:           getEnv("LLM_MODEL", DefaultModel),
		MaxTokens:       getInt("LLM_MAX_TOKENS", 500),
		LLMTimeout:      time.Duration(getInt("LLM_TIMEOUT_SECONDS", 30)) * time.Second,
		Referer:         getEnv("APP_REFERER", DefaultReferer),
		Title:           getEnv("APP_TITLE", DefaultTitle),
		RateLimitRPS:    getFloat("RATE_LIMIT_RPS", 0.5),
		RateLimitBurst:  getInt("RATE_LIMIT_BURST", 5),
		MaxUploadBytes:  int64(getInt("MAX_UPLOAD_BYTES", 5<<20)),
	}
}

// Configured reports whether the proxy holds a provider credential.
func (c Config) Configured() bool {
	return strings.TrimSpace(c.ProviderAPIKey) != ""
}

func getEnv(key, def string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return def
}

func getInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func getFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil || parsed < 0 {
		return def
	}
	return parsed
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}
