package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"siyuan-recall/internal/config"
	"siyuan-recall/internal/http"
	"siyuan-recall/internal/plugin"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file (optional)")
	flag.Parse()

	coordinator, err := plugin.Register(*configPath, nil)
	if err != nil {
		log.Fatalf("Failed to start recall sidecar: %v", err)
	}
	setupLogging(coordinator.Config())
	defer func() {
		_ = coordinator.Close()
	}()

	router := http.NewRouter(&http.Deps{Sidecar: coordinator})

	addr := coordinator.ListenAddr()
	server := &nethttp.Server{Addr: addr, Handler: router}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("Starting recall sidecar", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			log.Fatalf("Sidecar server failed: %v", err)
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down recall sidecar")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}
}

// setupLogging configures structured logging with configurable level and
// format.
func setupLogging(cfg *config.Config) {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel()}
	var handler slog.Handler
	if cfg.Log.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
	slog.Debug("Logging configured", "level", cfg.LogLevel().String(), "format", cfg.Log.Format)
}
