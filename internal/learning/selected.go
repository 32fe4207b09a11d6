package learning

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// SelectedRegression uses a lasso fit to choose the features with non-zero
// coefficients and refits ordinary least squares on those columns only.
// With no feature selected it predicts the training mean.
type SelectedRegression struct {
	Alpha   float64
	MaxIter int
	Tol     float64

	Width        int
	Selected     []int
	Linear       *LinearRegression
	Mean         float64
	ModelVersion string
}

// NewSelectedRegression returns an unfitted model with the lasso settings
// used for selection.
func NewSelectedRegression(alpha float64, maxIter int, tol float64) *SelectedRegression {
	return &SelectedRegression{Alpha: alpha, MaxIter: maxIter, Tol: tol}
}

func (m *SelectedRegression) Fit(X *mat.Dense, y []float64) error {
	_, p, err := checkFit(X, y)
	if err != nil {
		return err
	}
	lasso := NewLasso(m.Alpha, m.MaxIter, m.Tol)
	if err := lasso.Fit(X, y); err != nil {
		return fmt.Errorf("select features: %w", err)
	}
	selected := lasso.Support()

	var linear *LinearRegression
	if len(selected) > 0 {
		linear = NewLinearRegression()
		if err := linear.Fit(columns(X, selected), y); err != nil {
			return fmt.Errorf("refit selected features: %w", err)
		}
	}
	m.Width, m.Selected, m.Linear, m.Mean = p, selected, linear, mean(y)
	m.ModelVersion = newVersion()
	return nil
}

func (m *SelectedRegression) Predict(X *mat.Dense) ([]float64, error) {
	if m.ModelVersion == "" {
		return nil, ErrNotFitted
	}
	n, p := X.Dims()
	if p != m.Width {
		return nil, fmt.Errorf("%w: %d columns, model has %d", ErrShapeMismatch, p, m.Width)
	}
	if len(m.Selected) == 0 || m.Linear == nil {
		out := make([]float64, n)
		for i := range out {
			out[i] = m.Mean
		}
		return out, nil
	}
	return m.Linear.Predict(columns(X, m.Selected))
}

func (m *SelectedRegression) Name() string    { return "lasso_selected_linear" }
func (m *SelectedRegression) Version() string { return m.ModelVersion }

// SelectedNames maps the selected column indices onto names.
func (m *SelectedRegression) SelectedNames(names []string) []string {
	out := make([]string, 0, len(m.Selected))
	for _, j := range m.Selected {
		if j < len(names) {
			out = append(out, names[j])
		}
	}
	return out
}

// columns copies the listed columns of X into a new matrix.
func columns(X *mat.Dense, idx []int) *mat.Dense {
	n, _ := X.Dims()
	out := mat.NewDense(n, len(idx), nil)
	for k, j := range idx {
		out.SetCol(k, mat.Col(nil, j, X))
	}
	return out
}
