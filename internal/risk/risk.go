// Package risk serves fraud risk scores for individual transactions.
//
// A Service owns the classifier loaded at startup and is shared by every
// request. Each scored transaction yields an Assessment with a probability in
// [0, 1] that the transaction is fraudulent; assessments can be written to an
// audit Store.
package risk

import (
	"context"
	"time"
)

// Decision buckets a score for the audit trail.
type Decision string

const (
	DecisionLow    Decision = "low"
	DecisionMedium Decision = "medium"
	DecisionHigh   Decision = "high"
)

// Score cut-offs for decisions. Informational only; the API returns the raw score.
const (
	DefaultHighThreshold   = 0.8
	DefaultMediumThreshold = 0.5
)

// Assessment is the result of scoring a single transaction.
type Assessment struct {
	ID          string             `json:"id"`
	Score       float64            `json:"score"`
	Decision    Decision           `json:"decision"`
	Features    map[string]float64 `json:"features"`
	RequestID   string             `json:"requestId,omitempty"`
	EvaluatedAt time.Time          `json:"evaluatedAt"`
}

// Scorer estimates class probabilities for a feature row in schema order.
type Scorer interface {
	PredictProba(row []float64) ([2]float64, error)
}

// Store persists assessments for audit.
type Store interface {
	Record(ctx context.Context, assessment *Assessment) error
	ListRecent(ctx context.Context, limit int) ([]*Assessment, error)
}
