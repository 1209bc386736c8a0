// Command server serves fraud risk scores for transactions over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mbd888/fraudrisk/internal/config"
	"github.com/mbd888/fraudrisk/internal/logging"
	"github.com/mbd888/fraudrisk/internal/server"
	"github.com/mbd888/fraudrisk/internal/traces"
)

// Build info - set by ldflags
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting fraudrisk",
		"version", Version,
		"commit", Commit,
		"build_time", BuildTime,
		"env", cfg.Env,
	)

	ctx := context.Background()
	shutdownTraces, err := traces.Init(ctx, server.ServiceName, cfg.OTLPEndpoint, logger)
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
		shutdownTraces = func(context.Context) error { return nil }
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTraces(flushCtx)
	}()

	srv, err := server.New(cfg, server.WithLogger(logger))
	if err != nil {
		logger.Error("failed to create server", "error", err)
		_ = shutdownTraces(ctx)
		os.Exit(1)
	}

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		_ = shutdownTraces(ctx)
		os.Exit(1)
	}
}
