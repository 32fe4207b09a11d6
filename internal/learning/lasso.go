package learning

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Lasso is L1-regularised least squares with an intercept, fitted by
// cyclic coordinate descent on
//
//	1/(2n) * ||y - Xw - b||² + Alpha * ||w||₁
type Lasso struct {
	Alpha   float64
	MaxIter int
	Tol     float64

	Coef         []float64
	Intercept    float64
	Iterations   int
	ModelVersion string
}

// NewLasso returns an unfitted model.
func NewLasso(alpha float64, maxIter int, tol float64) *Lasso {
	return &Lasso{Alpha: alpha, MaxIter: maxIter, Tol: tol}
}

func (m *Lasso) Fit(X *mat.Dense, y []float64) error {
	n, p, err := checkFit(X, y)
	if err != nil {
		return err
	}
	maxIter := m.MaxIter
	if maxIter <= 0 {
		maxIter = 1000
	}
	xc, xm, yc, ym := center(X, y)

	cols := make([][]float64, p)
	norms := make([]float64, p)
	for j := range p {
		cols[j] = mat.Col(nil, j, xc)
		norms[j] = floats.Dot(cols[j], cols[j])
	}

	w := make([]float64, p)
	resid := append([]float64(nil), yc...)
	threshold := m.Alpha * float64(n)
	iter := 0
	for iter < maxIter {
		iter++
		var maxDelta, maxW float64
		for j := range p {
			if norms[j] == 0 {
				continue
			}
			old := w[j]
			if old != 0 {
				floats.AddScaled(resid, old, cols[j])
			}
			rho := floats.Dot(cols[j], resid)
			w[j] = softThreshold(rho, threshold) / norms[j]
			if w[j] != 0 {
				floats.AddScaled(resid, -w[j], cols[j])
			}
			maxDelta = math.Max(maxDelta, math.Abs(w[j]-old))
			maxW = math.Max(maxW, math.Abs(w[j]))
		}
		if maxW == 0 || maxDelta/maxW < m.Tol {
			break
		}
	}

	intercept := ym
	for j, c := range w {
		intercept -= c * xm[j]
	}
	m.Coef, m.Intercept, m.Iterations = w, intercept, iter
	m.ModelVersion = newVersion()
	return nil
}

func (m *Lasso) Predict(X *mat.Dense) ([]float64, error) {
	if m.ModelVersion == "" {
		return nil, ErrNotFitted
	}
	return linearPredict(X, m.Coef, m.Intercept)
}

func (m *Lasso) Name() string    { return "lasso" }
func (m *Lasso) Version() string { return m.ModelVersion }

// Support lists the indices of the non-zero coefficients.
func (m *Lasso) Support() []int {
	var idx []int
	for j, c := range m.Coef {
		if c != 0 {
			idx = append(idx, j)
		}
	}
	return idx
}

func softThreshold(x, t float64) float64 {
	switch {
	case x > t:
		return x - t
	case x < -t:
		return x + t
	}
	return 0
}
