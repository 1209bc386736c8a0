package traces

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_DisabledWithoutEndpoint(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	shutdown, err := Init(context.Background(), "fraudrisk-test", "", logger)
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestStartSpan_NoopProvider(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "test.span", Samples(10), Seed(42), RiskScore(0.5))
	require.NotNil(t, ctx)
	require.NotNil(t, span)
	Fail(span, errors.New("boom"), "failed")
	span.End()
}

func TestAttributes(t *testing.T) {
	assert.Equal(t, "dataset.samples", string(Samples(1).Key))
	assert.Equal(t, int64(42), Seed(42).Value.AsInt64())
	assert.Equal(t, "model.artifact", string(ArtifactPath("x").Key))
	assert.Equal(t, 0.9, Accuracy(0.9).Value.AsFloat64())
	assert.Equal(t, "assessment.id", string(AssessmentID("a").Key))
}
