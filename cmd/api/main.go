package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/serenehq/serene/pkg/engine"
	"github.com/serenehq/serene/pkg/httpapi"
	"github.com/serenehq/serene/pkg/logging"
	"github.com/serenehq/serene/pkg/runner"
)

type drainAdapter struct {
	server *http.Server
	eng    *engine.Engine
	log    *slog.Logger
}

func (d *drainAdapter) Drain() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := d.server.Shutdown(ctx); err != nil {
		d.log.Warn("server_shutdown_error", "error", err.Error())
	}
	d.eng.Drain()
	return d.eng.Close()
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file loaded", "error", err.Error())
	}

	cfg, err := engine.LoadConfig(*configPath)
	if err != nil {
		slog.Error("config load failed", "error", err.Error())
		os.Exit(1)
	}

	log := logging.SetDefault(cfg.LogLevel, cfg.LogFormat)

	eng, err := engine.Build(cfg, engine.DefaultRegistry(), log)
	if err != nil {
		log.Error("engine build failed", "error", err.Error())
		os.Exit(1)
	}

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: httpapi.NewRouter(httpapi.NewHandler(eng)),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	drainTimeout := time.Duration(cfg.Server.DrainTimeoutMS) * time.Millisecond
	lifecycle := runner.NewLifecycleRunner(
		&drainAdapter{server: server, eng: eng, log: log},
		runner.Hooks{
			OnStart: func() {
				log.Info("server_listening", "addr", cfg.Server.Addr, "environment", cfg.Environment)
			},
			OnStop: func() {
				log.Info("server_stopped")
			},
		},
		drainTimeout,
	)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server_error", "error", err.Error())
			stop()
		}
	}()

	if err := lifecycle.Run(ctx); err != nil {
		log.Error("shutdown_error", "error", err.Error())
		os.Exit(1)
	}
}
