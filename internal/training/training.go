// Package training runs the offline pipeline that produces the fraud model artifact:
// synthesize a labeled dataset, split it, fit the classifier, report holdout
// accuracy and persist the artifact.
package training

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/mbd888/fraudrisk/internal/dataset"
	"github.com/mbd888/fraudrisk/internal/model"
	"github.com/mbd888/fraudrisk/internal/schema"
	"github.com/mbd888/fraudrisk/internal/traces"
)

// Config describes one pipeline run.
type Config struct {
	Dataset      dataset.Config
	Fit          model.FitOptions
	ArtifactPath string
}

// DefaultConfig returns the fixed pipeline settings.
func DefaultConfig() Config {
	return Config{
		Dataset:      dataset.DefaultConfig(),
		Fit:          model.DefaultFitOptions(),
		ArtifactPath: model.DefaultArtifactPath,
	}
}

// Result summarizes a completed run.
type Result struct {
	Samples      int     `json:"samples"`
	FraudCount   int     `json:"fraudCount"`
	TrainSize    int     `json:"trainSize"`
	TestSize     int     `json:"testSize"`
	Accuracy     float64 `json:"accuracy"`
	Iterations   int     `json:"iterations"`
	Converged    bool    `json:"converged"`
	ArtifactPath string  `json:"artifactPath"`

	Model *model.LogisticRegression `json:"-"`
}

// Run executes the pipeline. Accuracy is reported, not enforced.
// A failure to write the artifact aborts the run.
func Run(ctx context.Context, cfg Config, logger *slog.Logger) (*Result, error) {
	if err := cfg.Dataset.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dataset config: %w", err)
	}
	if cfg.ArtifactPath == "" {
		cfg.ArtifactPath = model.DefaultArtifactPath
	}

	ctx, span := traces.StartSpan(ctx, "training.Run",
		traces.Samples(cfg.Dataset.Samples), traces.Seed(cfg.Dataset.Seed), traces.ArtifactPath(cfg.ArtifactPath))
	defer span.End()

	rng := dataset.NewRand(cfg.Dataset.Seed)

	logger.Info("generating synthetic dataset", "samples", cfg.Dataset.Samples, "seed", cfg.Dataset.Seed)
	ds := generate(ctx, rng, cfg.Dataset.Samples)
	res := &Result{
		Samples:      ds.Len(),
		FraudCount:   ds.FraudCount(),
		ArtifactPath: cfg.ArtifactPath,
	}
	logger.Info("dataset created", "samples", res.Samples, "fraud_count", res.FraudCount)

	train, test, err := ds.Split(rng, cfg.Dataset.HoldoutFraction)
	if err != nil {
		traces.Fail(span, err, "split failed")
		return nil, fmt.Errorf("failed to split dataset: %w", err)
	}
	res.TrainSize = train.Len()
	res.TestSize = test.Len()

	logger.Info("training model", "train_size", res.TrainSize, "c", cfg.Fit.C)
	m, report, err := fit(ctx, train, cfg.Fit)
	if err != nil {
		traces.Fail(span, err, "fit failed")
		return nil, fmt.Errorf("failed to fit model: %w", err)
	}
	res.Model = m
	res.Iterations = report.Iterations
	res.Converged = report.Converged
	if !report.Converged {
		logger.Warn("solver did not converge", "iterations", report.Iterations)
	}
	logger.Info("model trained", "iterations", report.Iterations, "loss", report.Loss)

	x, y := test.Matrix()
	res.Accuracy, err = m.Accuracy(x, y)
	if err != nil {
		traces.Fail(span, err, "evaluation failed")
		return nil, fmt.Errorf("failed to evaluate model: %w", err)
	}
	span.SetAttributes(traces.Accuracy(res.Accuracy))
	logger.Info("holdout accuracy", "accuracy_pct", fmt.Sprintf("%.2f", res.Accuracy*100), "test_size", res.TestSize)

	artifact := model.NewArtifact(m, model.TrainingInfo{
		Samples:         res.Samples,
		FraudCount:      res.FraudCount,
		Seed:            cfg.Dataset.Seed,
		HoldoutFraction: cfg.Dataset.HoldoutFraction,
		HoldoutAccuracy: res.Accuracy,
		C:               cfg.Fit.C,
		Iterations:      report.Iterations,
		Converged:       report.Converged,
	})
	if err := save(ctx, artifact, cfg.ArtifactPath); err != nil {
		traces.Fail(span, err, "save failed")
		return nil, err
	}
	logger.Info("model saved", "path", cfg.ArtifactPath)

	return res, nil
}

func generate(ctx context.Context, rng *rand.Rand, n int) *dataset.Dataset {
	_, span := traces.StartSpan(ctx, "training.Generate", traces.Samples(n))
	defer span.End()
	return dataset.Generate(rng, n)
}

func fit(ctx context.Context, train *dataset.Dataset, opts model.FitOptions) (*model.LogisticRegression, model.FitReport, error) {
	_, span := traces.StartSpan(ctx, "training.Fit", traces.Samples(train.Len()))
	defer span.End()
	x, y := train.Matrix()
	return model.Fit(schema.Names(), x, y, opts)
}

func save(ctx context.Context, a *model.Artifact, path string) error {
	_, span := traces.StartSpan(ctx, "training.Save", traces.ArtifactPath(path))
	defer span.End()
	if err := a.Save(path); err != nil {
		return fmt.Errorf("failed to persist model artifact: %w", err)
	}
	return nil
}
