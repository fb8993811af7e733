package main

import (
	"log"
	"os"

	"resume-roaster/internal/bootstrap"
	"resume-roaster/internal/shared/config"
	"resume-roaster/internal/shared/server"
	"resume-roaster/internal/shared/telemetry"
)

func main() {
	cfg := config.Load()
	telemetry.Configure(os.Stdout, telemetry.Options{JSON: true, Debug: cfg.Env == "dev"})
	defer func() { _ = telemetry.Sync() }()

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}

	addr := server.Addr(cfg.Port)
	telemetry.Info("server.start", map[string]any{
		"addr":       addr,
		"env":        cfg.Env,
		"configured": cfg.Configured(),
		"ai_model":   cfg.Model,
	})

	if err := app.Router.Run(addr); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
