package learning

import (
	"gonum.org/v1/gonum/mat"
)

// rcond is the relative cut-off below which singular values are treated
// as zero. One-hot blocks make the centred design rank deficient.
const rcond = 1e-10

// LinearRegression is ordinary least squares with an intercept. The
// coefficients are the minimum-norm solution, so collinear columns are
// allowed.
type LinearRegression struct {
	Coef         []float64
	Intercept    float64
	ModelVersion string
}

// NewLinearRegression returns an unfitted model.
func NewLinearRegression() *LinearRegression { return &LinearRegression{} }

func (m *LinearRegression) Fit(X *mat.Dense, y []float64) error {
	_, p, err := checkFit(X, y)
	if err != nil {
		return err
	}
	xc, xm, yc, ym := center(X, y)

	coef := make([]float64, p)
	if p > 0 {
		var svd mat.SVD
		if ok := svd.Factorize(xc, mat.SVDThin); !ok {
			return ErrSingularSystem
		}
		if rank := svd.Rank(rcond); rank > 0 {
			var w mat.VecDense
			svd.SolveVecTo(&w, mat.NewVecDense(len(yc), yc), rank)
			for j := range coef {
				coef[j] = w.AtVec(j)
			}
		}
	}

	intercept := ym
	for j, c := range coef {
		intercept -= c * xm[j]
	}
	m.Coef, m.Intercept = coef, intercept
	m.ModelVersion = newVersion()
	return nil
}

func (m *LinearRegression) Predict(X *mat.Dense) ([]float64, error) {
	if m.ModelVersion == "" {
		return nil, ErrNotFitted
	}
	return linearPredict(X, m.Coef, m.Intercept)
}

func (m *LinearRegression) Name() string    { return "linear" }
func (m *LinearRegression) Version() string { return m.ModelVersion }
