// Package learning holds the regression models used to predict injury
// counts and the helpers to split and score them.
package learning

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrNotFitted      = errors.New("learning: model is not fitted")
	ErrShapeMismatch  = errors.New("learning: shape mismatch")
	ErrNoSamples      = errors.New("learning: no samples")
	ErrInvalidSplit   = errors.New("learning: invalid split")
	ErrSingularSystem = errors.New("learning: factorization failed")
)

// Model is a regressor trained on a dense design matrix.
type Model interface {
	// Fit trains the model on X (n x p) and y (n).
	Fit(X *mat.Dense, y []float64) error
	// Predict returns one estimate per row of X.
	Predict(X *mat.Dense) ([]float64, error)
	// Name identifies the kind of model.
	Name() string
	// Version changes on every successful Fit.
	Version() string
}

func newVersion() string {
	return fmt.Sprintf("model-%s", uuid.New().String())
}

func checkFit(X *mat.Dense, y []float64) (n, p int, err error) {
	n, p = X.Dims()
	if n == 0 {
		return 0, 0, ErrNoSamples
	}
	if len(y) != n {
		return 0, 0, fmt.Errorf("%w: %d rows, %d targets", ErrShapeMismatch, n, len(y))
	}
	return n, p, nil
}

// MeanRegressor always predicts the mean of the training target.
type MeanRegressor struct {
	Mean         float64
	ModelVersion string
}

// NewMeanRegressor returns an unfitted baseline.
func NewMeanRegressor() *MeanRegressor { return &MeanRegressor{} }

func (m *MeanRegressor) Fit(X *mat.Dense, y []float64) error {
	if _, _, err := checkFit(X, y); err != nil {
		return err
	}
	m.Mean = mean(y)
	m.ModelVersion = newVersion()
	return nil
}

func (m *MeanRegressor) Predict(X *mat.Dense) ([]float64, error) {
	if m.ModelVersion == "" {
		return nil, ErrNotFitted
	}
	n, _ := X.Dims()
	out := make([]float64, n)
	for i := range out {
		out[i] = m.Mean
	}
	return out, nil
}

func (m *MeanRegressor) Name() string    { return "mean" }
func (m *MeanRegressor) Version() string { return m.ModelVersion }

func mean(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var s float64
	for _, v := range x {
		s += v
	}
	return s / float64(len(x))
}

// center returns X with every column shifted to zero mean, the column
// means, y shifted to zero mean and the mean of y.
func center(X *mat.Dense, y []float64) (*mat.Dense, []float64, []float64, float64) {
	n, p := X.Dims()
	xm := make([]float64, p)
	for j := range p {
		var s float64
		for i := range n {
			s += X.At(i, j)
		}
		xm[j] = s / float64(n)
	}
	xc := mat.NewDense(n, p, nil)
	xc.Apply(func(_, j int, v float64) float64 { return v - xm[j] }, X)

	ym := mean(y)
	yc := make([]float64, n)
	for i, v := range y {
		yc[i] = v - ym
	}
	return xc, xm, yc, ym
}

// linearPredict computes X·coef + intercept.
func linearPredict(X *mat.Dense, coef []float64, intercept float64) ([]float64, error) {
	n, p := X.Dims()
	if p != len(coef) {
		return nil, fmt.Errorf("%w: %d columns, model has %d", ErrShapeMismatch, p, len(coef))
	}
	out := make([]float64, n)
	if p == 0 {
		for i := range out {
			out[i] = intercept
		}
		return out, nil
	}
	var v mat.VecDense
	v.MulVec(X, mat.NewVecDense(p, coef))
	for i := range out {
		out[i] = v.AtVec(i) + intercept
	}
	return out, nil
}
