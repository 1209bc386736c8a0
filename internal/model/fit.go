package model

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Fit defaults. C is the inverse L2 regularization strength; the intercept is not penalized.
const (
	DefaultC       = 1.0
	DefaultMaxIter = 100
	DefaultTol     = 1e-8
)

var (
	ErrEmptyData   = errors.New("no training data")
	ErrSingleClass = errors.New("training labels contain a single class")
	ErrSingular    = errors.New("hessian is singular")
)

// FitOptions controls the solver.
type FitOptions struct {
	C       float64
	MaxIter int
	Tol     float64
}

// DefaultFitOptions returns the solver settings used by the training pipeline.
func DefaultFitOptions() FitOptions {
	return FitOptions{C: DefaultC, MaxIter: DefaultMaxIter, Tol: DefaultTol}
}

// FitReport describes how the solver finished.
type FitReport struct {
	Iterations int     `json:"iterations"`
	Converged  bool    `json:"converged"`
	Loss       float64 `json:"loss"`
}

// Fit trains an L2-regularized logistic regression with Newton's method.
// Each step is damped by backtracking until the penalized log-loss decreases.
func Fit(features []string, x [][]float64, y []int, opts FitOptions) (*LogisticRegression, FitReport, error) {
	var report FitReport

	if len(x) == 0 {
		return nil, report, ErrEmptyData
	}
	if len(x) != len(y) {
		return nil, report, fmt.Errorf("%d rows but %d labels", len(x), len(y))
	}
	d := len(x[0])
	if d == 0 {
		return nil, report, fmt.Errorf("%w: rows have no features", ErrWidthMismatch)
	}
	if features != nil && len(features) != d {
		return nil, report, fmt.Errorf("%w: %d names for %d columns", ErrWidthMismatch, len(features), d)
	}
	positives := 0
	for i, row := range x {
		if len(row) != d {
			return nil, report, fmt.Errorf("%w: row %d has %d values, want %d", ErrWidthMismatch, i, len(row), d)
		}
		switch y[i] {
		case 0:
		case 1:
			positives++
		default:
			return nil, report, fmt.Errorf("label %d at row %d is not 0 or 1", y[i], i)
		}
	}
	if positives == 0 || positives == len(y) {
		return nil, report, ErrSingleClass
	}

	if opts.C <= 0 {
		opts.C = DefaultC
	}
	if opts.MaxIter <= 0 {
		opts.MaxIter = DefaultMaxIter
	}
	if opts.Tol <= 0 {
		opts.Tol = DefaultTol
	}

	// beta[0..d-1] are weights, beta[d] is the intercept.
	beta := make([]float64, d+1)
	candidate := make([]float64, d+1)
	loss := penalizedLoss(x, y, beta, opts.C)

	for iter := 1; iter <= opts.MaxIter; iter++ {
		report.Iterations = iter

		grad, hess := gradientAndHessian(x, y, beta, opts.C)
		step, err := newtonStep(hess, grad)
		if err != nil {
			return nil, report, err
		}

		slope := mat.Dot(grad, step)
		dir := step.RawVector().Data
		t := 1.0
		var next float64
		for {
			floats.AddScaledTo(candidate, beta, -t, dir)
			next = penalizedLoss(x, y, candidate, opts.C)
			if next <= loss-1e-4*t*slope || t < 1e-10 {
				break
			}
			t /= 2
		}
		if next > loss {
			// No descent left at machine precision.
			report.Converged = true
			break
		}

		maxMove := floats.Distance(candidate, beta, math.Inf(1))
		improvement := loss - next
		copy(beta, candidate)
		loss = next

		if maxMove <= opts.Tol || math.Abs(improvement) <= opts.Tol*math.Max(1, math.Abs(loss)) {
			report.Converged = true
			break
		}
	}
	report.Loss = loss

	m := &LogisticRegression{
		Features:  append([]string(nil), features...),
		Weights:   append([]float64(nil), beta[:d]...),
		Intercept: beta[d],
	}
	return m, report, nil
}

// penalizedLoss is sum(log(1+e^z) - y*z) + ||w||^2 / (2C).
func penalizedLoss(x [][]float64, y []int, beta []float64, c float64) float64 {
	d := len(beta) - 1
	w := beta[:d]
	var loss float64
	for i, row := range x {
		z := beta[d] + floats.Dot(w, row)
		loss += logOnePlusExp(z) - float64(y[i])*z
	}
	return loss + floats.Dot(w, w)/(2*c)
}

// gradientAndHessian evaluates the penalized loss derivatives at beta.
// Rows are augmented with a trailing 1 for the intercept.
func gradientAndHessian(x [][]float64, y []int, beta []float64, c float64) (*mat.VecDense, *mat.SymDense) {
	d := len(beta) - 1
	n := d + 1
	grad := make([]float64, n)
	hess := mat.NewSymDense(n, nil)

	aug := make([]float64, n)
	augVec := mat.NewVecDense(n, aug)
	for i, row := range x {
		copy(aug, row)
		aug[d] = 1

		p := sigmoid(floats.Dot(beta, aug))
		floats.AddScaled(grad, p-float64(y[i]), aug)
		hess.SymRankOne(hess, p*(1-p), augVec)
	}

	for j := 0; j < d; j++ {
		grad[j] += beta[j] / c
		hess.SetSym(j, j, hess.At(j, j)+1/c)
	}
	return mat.NewVecDense(n, grad), hess
}

// newtonStep solves hess*s = grad by Cholesky factorization.
// The penalized Hessian is positive definite whenever the data is non-degenerate.
func newtonStep(hess *mat.SymDense, grad *mat.VecDense) (*mat.VecDense, error) {
	var chol mat.Cholesky
	if ok := chol.Factorize(hess); !ok {
		return nil, ErrSingular
	}
	var step mat.VecDense
	if err := chol.SolveVecTo(&step, grad); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, fmt.Errorf("%w: %v", ErrSingular, err)
		}
	}
	for _, v := range step.RawVector().Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, ErrSingular
		}
	}
	return &step, nil
}
