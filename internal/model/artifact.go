package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/mbd888/fraudrisk/internal/schema"
)

// ArtifactFormat tags the artifact layout written by Save.
const ArtifactFormat = "fraudrisk.logreg/v1"

// DefaultArtifactPath is where the training pipeline writes and the server reads the model.
const DefaultArtifactPath = "fraud_model.json"

var (
	ErrArtifactNotFound = errors.New("model artifact not found")
	ErrInvalidArtifact  = errors.New("invalid model artifact")
)

// TrainingInfo records how an artifact was produced.
type TrainingInfo struct {
	Samples         int     `json:"samples"`
	FraudCount      int     `json:"fraud_count"`
	Seed            uint64  `json:"seed"`
	HoldoutFraction float64 `json:"holdout_fraction"`
	HoldoutAccuracy float64 `json:"holdout_accuracy"`
	C               float64 `json:"c"`
	Iterations      int     `json:"iterations"`
	Converged       bool    `json:"converged"`
}

// Artifact is the persisted form of a fitted model.
type Artifact struct {
	Format    string       `json:"format"`
	Features  []string     `json:"features"`
	Weights   []float64    `json:"weights"`
	Intercept float64      `json:"intercept"`
	Classes   [2]int       `json:"classes"`
	TrainedAt time.Time    `json:"trained_at"`
	Training  TrainingInfo `json:"training"`
}

// NewArtifact wraps a fitted model for persistence.
func NewArtifact(m *LogisticRegression, info TrainingInfo) *Artifact {
	return &Artifact{
		Format:    ArtifactFormat,
		Features:  append([]string(nil), m.Features...),
		Weights:   append([]float64(nil), m.Weights...),
		Intercept: m.Intercept,
		Classes:   Classes,
		TrainedAt: time.Now().UTC(),
		Training:  info,
	}
}

// Model returns the classifier described by the artifact.
func (a *Artifact) Model() *LogisticRegression {
	return &LogisticRegression{
		Features:  append([]string(nil), a.Features...),
		Weights:   append([]float64(nil), a.Weights...),
		Intercept: a.Intercept,
	}
}

// Validate checks the artifact against the shared feature schema.
func (a *Artifact) Validate() error {
	if a.Format != ArtifactFormat {
		return fmt.Errorf("%w: format %q, want %q", ErrInvalidArtifact, a.Format, ArtifactFormat)
	}
	if err := schema.Validate(a.Features); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArtifact, err)
	}
	if len(a.Weights) != len(a.Features) {
		return fmt.Errorf("%w: %d weights for %d features", ErrInvalidArtifact, len(a.Weights), len(a.Features))
	}
	if a.Classes != Classes {
		return fmt.Errorf("%w: classes %v, want %v", ErrInvalidArtifact, a.Classes, Classes)
	}
	return nil
}

// Save writes the artifact to path. The file is replaced atomically.
func (a *Artifact) Save(path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".fraud_model-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create model file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(a); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to encode model: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync model file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close model file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to write model file: %w", err)
	}
	return nil
}

// LoadArtifact reads and validates the artifact at path.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied model path
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", ErrArtifactNotFound, err)
		}
		return nil, fmt.Errorf("failed to read model file: %w", err)
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArtifact, err)
	}
	if err := a.Validate(); err != nil {
		return nil, err
	}
	return &a, nil
}

// Load reads the artifact at path and returns its classifier.
func Load(path string) (*LogisticRegression, error) {
	a, err := LoadArtifact(path)
	if err != nil {
		return nil, err
	}
	return a.Model(), nil
}
