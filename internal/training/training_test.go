package training

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/mbd888/fraudrisk/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRun_WritesLoadableArtifact(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ArtifactPath = filepath.Join(t.TempDir(), "fraud_model.json")

	res, err := Run(context.Background(), cfg, testLogger())
	require.NoError(t, err)

	assert.Equal(t, 2000, res.Samples)
	assert.Equal(t, 400, res.TestSize)
	assert.Equal(t, 1600, res.TrainSize)
	assert.Greater(t, res.FraudCount, 0)
	assert.Greater(t, res.Accuracy, 0.9)
	assert.LessOrEqual(t, res.Accuracy, 1.0)

	a, err := model.LoadArtifact(cfg.ArtifactPath)
	require.NoError(t, err)
	assert.Equal(t, res.Accuracy, a.Training.HoldoutAccuracy)
	assert.Equal(t, uint64(42), a.Training.Seed)
	assert.Equal(t, res.Model.Weights, a.Weights)
}

func TestRun_Deterministic(t *testing.T) {
	dir := t.TempDir()

	cfg := DefaultConfig()
	cfg.ArtifactPath = filepath.Join(dir, "a.json")
	first, err := Run(context.Background(), cfg, testLogger())
	require.NoError(t, err)

	cfg.ArtifactPath = filepath.Join(dir, "b.json")
	second, err := Run(context.Background(), cfg, testLogger())
	require.NoError(t, err)

	assert.Equal(t, first.FraudCount, second.FraudCount)
	assert.Equal(t, first.Accuracy, second.Accuracy)
	assert.Equal(t, first.Model.Weights, second.Model.Weights)
}

func TestRun_SaveFailureIsFatal(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ArtifactPath = filepath.Join(t.TempDir(), "no-such-dir", "fraud_model.json")

	res, err := Run(context.Background(), cfg, testLogger())
	assert.Nil(t, res)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to persist model artifact")
}

func TestRun_InvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dataset.HoldoutFraction = 0

	_, err := Run(context.Background(), cfg, testLogger())
	assert.Error(t, err)
}
