// Package model implements the binary logistic-regression classifier behind
// the fraud risk score, along with its on-disk artifact format.
package model

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Classes are the label values in PredictProba order.
var Classes = [2]int{0, 1}

var ErrWidthMismatch = errors.New("feature vector width mismatch")

// LogisticRegression is a fitted linear classifier in log-odds space.
// It is immutable once fitted or loaded and safe for concurrent use.
type LogisticRegression struct {
	Features  []string
	Weights   []float64
	Intercept float64
}

// DecisionFunction returns the log-odds of the positive class for row.
func (m *LogisticRegression) DecisionFunction(row []float64) (float64, error) {
	if len(row) != len(m.Weights) {
		return 0, fmt.Errorf("%w: got %d values, want %d", ErrWidthMismatch, len(row), len(m.Weights))
	}
	return m.Intercept + floats.Dot(m.Weights, row), nil
}

// PredictProba returns [P(legitimate), P(fraud)] for row.
func (m *LogisticRegression) PredictProba(row []float64) ([2]float64, error) {
	z, err := m.DecisionFunction(row)
	if err != nil {
		return [2]float64{}, err
	}
	p := sigmoid(z)
	return [2]float64{1 - p, p}, nil
}

// Predict returns the most likely class for row; ties go to fraud.
func (m *LogisticRegression) Predict(row []float64) (int, error) {
	proba, err := m.PredictProba(row)
	if err != nil {
		return 0, err
	}
	if proba[1] >= 0.5 {
		return Classes[1], nil
	}
	return Classes[0], nil
}

// Accuracy returns the fraction of rows in x whose prediction matches y.
func (m *LogisticRegression) Accuracy(x [][]float64, y []int) (float64, error) {
	if len(x) == 0 {
		return 0, ErrEmptyData
	}
	if len(x) != len(y) {
		return 0, fmt.Errorf("%d rows but %d labels", len(x), len(y))
	}
	correct := 0
	for i, row := range x {
		pred, err := m.Predict(row)
		if err != nil {
			return 0, fmt.Errorf("row %d: %w", i, err)
		}
		if pred == y[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(x)), nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

// logOnePlusExp computes log(1+exp(z)) without overflow.
func logOnePlusExp(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}
