// Package dataset synthesizes labeled transactions for training the fraud classifier.
//
// All randomness comes from a caller-supplied *rand.Rand, so two runs with the
// same seed produce the same samples, labels and train/test split.
package dataset

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/mbd888/fraudrisk/internal/schema"
)

// Generation defaults.
const (
	DefaultSamples         = 2000
	DefaultSeed            = 42
	DefaultHoldoutFraction = 0.2
)

// Distribution parameters for the synthetic features.
const (
	AmountLogMean  = 3.0
	AmountLogSigma = 1.0

	MinTimeSinceLastTx = 0.1
	MaxTimeSinceLastTx = 1000.0

	MinSenderRiskScore = 0.01
	MaxSenderRiskScore = 0.99
)

// Labeling thresholds.
const (
	RiskyAmountThreshold = 150.0
	RiskScoreThreshold   = 0.7
	HighAmountThreshold  = 500.0
)

// Config controls dataset generation and splitting.
type Config struct {
	Samples         int
	Seed            uint64
	HoldoutFraction float64
}

// DefaultConfig returns the fixed configuration used by the training pipeline.
func DefaultConfig() Config {
	return Config{
		Samples:         DefaultSamples,
		Seed:            DefaultSeed,
		HoldoutFraction: DefaultHoldoutFraction,
	}
}

// Validate checks the config for usable values.
func (c Config) Validate() error {
	if c.Samples < 2 {
		return fmt.Errorf("samples must be at least 2, got %d", c.Samples)
	}
	if c.HoldoutFraction <= 0 || c.HoldoutFraction >= 1 {
		return fmt.Errorf("holdout fraction must be in (0, 1), got %v", c.HoldoutFraction)
	}
	return nil
}

// NewRand returns the seeded generator used for a pipeline run.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

// Sample is one labeled transaction.
type Sample struct {
	Transaction schema.Transaction
	IsFraud     int
}

// Dataset is an ordered collection of samples.
type Dataset struct {
	Samples []Sample
}

var ErrEmptyDataset = errors.New("dataset is empty")

// Label applies the fraud rule: a risky amount from a risky sender, or any very large amount.
func Label(tx schema.Transaction) int {
	if (tx.Amount > RiskyAmountThreshold && tx.SenderRiskScore > RiskScoreThreshold) ||
		tx.Amount > HighAmountThreshold {
		return 1
	}
	return 0
}

// Generate draws n labeled samples from rng.
func Generate(rng *rand.Rand, n int) *Dataset {
	amount := distuv.LogNormal{Mu: AmountLogMean, Sigma: AmountLogSigma, Src: rng}
	elapsed := distuv.Uniform{Min: MinTimeSinceLastTx, Max: MaxTimeSinceLastTx, Src: rng}
	senderRisk := distuv.Uniform{Min: MinSenderRiskScore, Max: MaxSenderRiskScore, Src: rng}

	ds := &Dataset{Samples: make([]Sample, 0, n)}
	for i := 0; i < n; i++ {
		tx := schema.Transaction{
			Amount:          round2(amount.Rand()),
			TimeSinceLastTx: round2(elapsed.Rand()),
			SenderRiskScore: round2(senderRisk.Rand()),
			RecipientIsNew:  rng.IntN(2) == 1,
		}
		ds.Samples = append(ds.Samples, Sample{Transaction: tx, IsFraud: Label(tx)})
	}
	return ds
}

// Len returns the number of samples.
func (d *Dataset) Len() int {
	return len(d.Samples)
}

// FraudCount returns how many samples are labeled fraudulent.
func (d *Dataset) FraudCount() int {
	n := 0
	for _, s := range d.Samples {
		n += s.IsFraud
	}
	return n
}

// Matrix returns the feature rows in schema order and the label column.
func (d *Dataset) Matrix() ([][]float64, []int) {
	x := make([][]float64, len(d.Samples))
	y := make([]int, len(d.Samples))
	for i, s := range d.Samples {
		x[i] = s.Transaction.Vector()
		y[i] = s.IsFraud
	}
	return x, y
}

// Split shuffles the dataset with rng and partitions it into train and test sets.
// The test set holds ceil(n*holdout) samples.
func (d *Dataset) Split(rng *rand.Rand, holdout float64) (train, test *Dataset, err error) {
	n := len(d.Samples)
	if n == 0 {
		return nil, nil, ErrEmptyDataset
	}
	if holdout <= 0 || holdout >= 1 {
		return nil, nil, fmt.Errorf("holdout fraction must be in (0, 1), got %v", holdout)
	}

	nTest := int(math.Ceil(float64(n)*holdout - 1e-9))
	if nTest >= n {
		return nil, nil, fmt.Errorf("holdout of %v leaves no training samples out of %d", holdout, n)
	}

	perm := rng.Perm(n)
	test = &Dataset{Samples: make([]Sample, 0, nTest)}
	train = &Dataset{Samples: make([]Sample, 0, n-nTest)}
	for i, idx := range perm {
		if i < nTest {
			test.Samples = append(test.Samples, d.Samples[idx])
		} else {
			train.Samples = append(train.Samples, d.Samples[idx])
		}
	}
	return train, test, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
