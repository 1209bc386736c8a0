// Command train synthesizes the transaction dataset, fits the fraud
// classifier and writes the model artifact read by the server.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mbd888/fraudrisk/internal/config"
	"github.com/mbd888/fraudrisk/internal/logging"
	"github.com/mbd888/fraudrisk/internal/traces"
	"github.com/mbd888/fraudrisk/internal/training"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()
	shutdownTraces, err := traces.Init(ctx, "fraudrisk-train", cfg.OTLPEndpoint, logger)
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
		shutdownTraces = func(context.Context) error { return nil }
	}

	tcfg := training.DefaultConfig()
	tcfg.ArtifactPath = cfg.ModelPath

	result, err := training.Run(ctx, tcfg, logger)
	_ = shutdownTraces(ctx)
	if err != nil {
		logger.Error("training failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Model Accuracy: %.4f\n", result.Accuracy)
	fmt.Printf("Model saved as %s\n", result.ArtifactPath)
}
