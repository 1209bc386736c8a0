// Package schema defines the transaction feature contract shared by the
// training pipeline and the inference service.
//
// Both sides build feature vectors through this package, so the positional
// order the classifier was fitted on is the order it is served with. Model
// artifacts carry the feature names and are checked against Features at load.
package schema

import (
	"errors"
	"fmt"
	"math"
)

// Kind describes how a feature is encoded.
type Kind string

const (
	KindContinuous Kind = "continuous"
	KindBinary     Kind = "binary"
)

// Feature is a single named input column.
type Feature struct {
	Name string
	Kind Kind
}

// Feature names as they appear on the wire and in model artifacts.
const (
	Amount          = "amount"
	TimeSinceLastTx = "time_since_last_tx"
	SenderRiskScore = "sender_risk_score"
	RecipientIsNew  = "recipient_is_new"
)

// Features is the ordered feature list. Index i of every Vector holds Features[i].
var Features = []Feature{
	{Name: Amount, Kind: KindContinuous},
	{Name: TimeSinceLastTx, Kind: KindContinuous},
	{Name: SenderRiskScore, Kind: KindContinuous},
	{Name: RecipientIsNew, Kind: KindBinary},
}

// Width is the number of features in a Vector.
var Width = len(Features)

var (
	ErrMissingFeature  = errors.New("missing feature")
	ErrInvalidFeature  = errors.New("invalid feature value")
	ErrFeatureMismatch = errors.New("feature names do not match schema")
)

// Vector is a fixed-order numeric encoding of a Transaction.
type Vector []float64

// Transaction is the typed form of a transaction record.
type Transaction struct {
	Amount          float64 `json:"amount"`
	TimeSinceLastTx float64 `json:"time_since_last_tx"`
	SenderRiskScore float64 `json:"sender_risk_score"`
	RecipientIsNew  bool    `json:"recipient_is_new"`
}

// Vector encodes the transaction in schema order.
func (t Transaction) Vector() Vector {
	return Vector{
		t.Amount,
		t.TimeSinceLastTx,
		t.SenderRiskScore,
		boolToFloat(t.RecipientIsNew),
	}
}

// Names returns the feature names in schema order.
func Names() []string {
	names := make([]string, len(Features))
	for i, f := range Features {
		names[i] = f.Name
	}
	return names
}

// Validate reports whether names is exactly the schema's feature list, in order.
func Validate(names []string) error {
	if len(names) != len(Features) {
		return fmt.Errorf("%w: got %d features, want %d", ErrFeatureMismatch, len(names), len(Features))
	}
	for i, f := range Features {
		if names[i] != f.Name {
			return fmt.Errorf("%w: position %d is %q, want %q", ErrFeatureMismatch, i, names[i], f.Name)
		}
	}
	return nil
}

// FromPayload builds a Vector from a decoded JSON object.
// Numbers and booleans are accepted; anything else, or a missing key, is an error.
// Keys outside the schema are ignored.
// Binary features must be exactly 0 or 1. A value such as 2 is rejected
// rather than passed through to the model, which a plain numeric cast would allow.
func FromPayload(payload map[string]any) (Vector, error) {
	if payload == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingFeature, Features[0].Name)
	}

	vec := make(Vector, len(Features))
	for i, f := range Features {
		raw, ok := payload[f.Name]
		if !ok || raw == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingFeature, f.Name)
		}
		v, err := toFloat(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidFeature, f.Name, err)
		}
		if f.Kind == KindBinary && v != 0 && v != 1 {
			return nil, fmt.Errorf("%w: %s must be 0 or 1, got %v", ErrInvalidFeature, f.Name, v)
		}
		vec[i] = v
	}
	return vec, nil
}

// Map returns the vector keyed by feature name.
func (v Vector) Map() map[string]float64 {
	m := make(map[string]float64, len(v))
	for i, f := range Features {
		if i < len(v) {
			m[f.Name] = v[i]
		}
	}
	return m
}

func toFloat(raw any) (float64, error) {
	var v float64
	switch x := raw.(type) {
	case float64:
		v = x
	case float32:
		v = float64(x)
	case int:
		v = float64(x)
	case int64:
		v = float64(x)
	case bool:
		v = boolToFloat(x)
	case interface{ Float64() (float64, error) }: // json.Number
		f, err := x.Float64()
		if err != nil {
			return 0, err
		}
		v = f
	default:
		return 0, fmt.Errorf("expected number, got %T", raw)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("value is not finite")
	}
	return v, nil
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
