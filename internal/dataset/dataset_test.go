package dataset

import (
	"math"
	"sort"
	"testing"

	"github.com/mbd888/fraudrisk/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabel(t *testing.T) {
	tests := []struct {
		name string
		tx   schema.Transaction
		want int
	}{
		{"small amount low risk", schema.Transaction{Amount: 10, SenderRiskScore: 0.1}, 0},
		{"small amount high risk", schema.Transaction{Amount: 100, SenderRiskScore: 0.95}, 0},
		{"risky amount risky sender", schema.Transaction{Amount: 151, SenderRiskScore: 0.71}, 1},
		{"risky amount safe sender", schema.Transaction{Amount: 300, SenderRiskScore: 0.7}, 0},
		{"threshold amount is not risky", schema.Transaction{Amount: 150, SenderRiskScore: 0.9}, 0},
		{"high amount any sender", schema.Transaction{Amount: 600, SenderRiskScore: 0.01}, 1},
		{"exactly high threshold", schema.Transaction{Amount: 500, SenderRiskScore: 0.1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Label(tt.tx))
		})
	}
}

func TestGenerate_Ranges(t *testing.T) {
	ds := Generate(NewRand(DefaultSeed), 500)
	require.Equal(t, 500, ds.Len())

	for _, s := range ds.Samples {
		tx := s.Transaction
		assert.GreaterOrEqual(t, tx.Amount, 0.0)
		assert.GreaterOrEqual(t, tx.TimeSinceLastTx, MinTimeSinceLastTx)
		assert.LessOrEqual(t, tx.TimeSinceLastTx, MaxTimeSinceLastTx)
		assert.GreaterOrEqual(t, tx.SenderRiskScore, MinSenderRiskScore)
		assert.LessOrEqual(t, tx.SenderRiskScore, MaxSenderRiskScore)
		assert.Equal(t, Label(tx), s.IsFraud)
	}
}

func TestGenerate_Distributions(t *testing.T) {
	ds := Generate(NewRand(DefaultSeed), DefaultSamples)

	amounts := make([]float64, 0, ds.Len())
	var riskSum, timeSum float64
	newRecipients := 0
	for _, s := range ds.Samples {
		amounts = append(amounts, s.Transaction.Amount)
		riskSum += s.Transaction.SenderRiskScore
		timeSum += s.Transaction.TimeSinceLastTx
		if s.Transaction.RecipientIsNew {
			newRecipients++
		}
	}
	sort.Float64s(amounts)
	n := float64(ds.Len())

	// Lognormal(3, 1) has median e^3.
	assert.InDelta(t, math.Exp(AmountLogMean), amounts[len(amounts)/2], 3)
	assert.InDelta(t, (MinSenderRiskScore+MaxSenderRiskScore)/2, riskSum/n, 0.05)
	assert.InDelta(t, (MinTimeSinceLastTx+MaxTimeSinceLastTx)/2, timeSum/n, 50)
	assert.InDelta(t, 0.5, float64(newRecipients)/n, 0.05)
}

func TestGenerate_Deterministic(t *testing.T) {
	a := Generate(NewRand(7), 300)
	b := Generate(NewRand(7), 300)
	assert.Equal(t, a.Samples, b.Samples)
	assert.Equal(t, a.FraudCount(), b.FraudCount())

	c := Generate(NewRand(8), 300)
	assert.NotEqual(t, a.Samples, c.Samples)
}

func TestGenerate_HasBothClasses(t *testing.T) {
	ds := Generate(NewRand(DefaultSeed), DefaultSamples)
	fraud := ds.FraudCount()
	assert.Greater(t, fraud, 0)
	assert.Less(t, fraud, ds.Len())
}

func TestSplit(t *testing.T) {
	ds := Generate(NewRand(1), 101)

	train, test, err := ds.Split(NewRand(1), 0.2)
	require.NoError(t, err)
	assert.Equal(t, 21, test.Len())
	assert.Equal(t, 80, train.Len())
	assert.Equal(t, ds.FraudCount(), train.FraudCount()+test.FraudCount())

	train2, test2, err := ds.Split(NewRand(1), 0.2)
	require.NoError(t, err)
	assert.Equal(t, train.Samples, train2.Samples)
	assert.Equal(t, test.Samples, test2.Samples)
}

func TestSplit_Errors(t *testing.T) {
	_, _, err := (&Dataset{}).Split(NewRand(1), 0.2)
	assert.ErrorIs(t, err, ErrEmptyDataset)

	ds := Generate(NewRand(1), 10)
	_, _, err = ds.Split(NewRand(1), 0)
	assert.Error(t, err)
	_, _, err = ds.Split(NewRand(1), 1)
	assert.Error(t, err)
}

func TestMatrix(t *testing.T) {
	ds := &Dataset{Samples: []Sample{
		{Transaction: schema.Transaction{Amount: 600, TimeSinceLastTx: 1, SenderRiskScore: 0.2, RecipientIsNew: true}, IsFraud: 1},
		{Transaction: schema.Transaction{Amount: 5, TimeSinceLastTx: 2, SenderRiskScore: 0.3}, IsFraud: 0},
	}}
	x, y := ds.Matrix()
	assert.Equal(t, [][]float64{{600, 1, 0.2, 1}, {5, 2, 0.3, 0}}, x)
	assert.Equal(t, []int{1, 0}, y)
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.Error(t, Config{Samples: 1, HoldoutFraction: 0.2}.Validate())
	assert.Error(t, Config{Samples: 100, HoldoutFraction: 1.5}.Validate())
}
