package learning

import (
	"errors"
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// MockModel is a mock for the Model interface.
type MockModel struct {
	mock.Mock
}

func (m *MockModel) Fit(X *mat.Dense, y []float64) error {
	args := m.Called(X, y)
	return args.Error(0)
}

func (m *MockModel) Predict(X *mat.Dense) ([]float64, error) {
	args := m.Called(X)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float64), args.Error(1)
}

func (m *MockModel) Name() string    { return "mock" }
func (m *MockModel) Version() string { return m.Called().String(0) }

func TestMeanRegressor(t *testing.T) {
	m := NewMeanRegressor()
	_, err := m.Predict(mat.NewDense(1, 1, nil))
	assert.ErrorIs(t, err, ErrNotFitted)

	require.NoError(t, m.Fit(mat.NewDense(3, 1, []float64{9, 9, 9}), []float64{1, 2, 3}))
	pred, err := m.Predict(mat.NewDense(2, 1, nil))
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 2}, pred)
	assert.Contains(t, m.Version(), "model-")
}

func TestLinearRegression_Exact(t *testing.T) {
	X := mat.NewDense(5, 2, []float64{
		0, 1,
		1, 0,
		2, 3,
		3, 1,
		4, 5,
	})
	y := make([]float64, 5)
	for i := range y {
		y[i] = 1 + 2*X.At(i, 0) - 3*X.At(i, 1)
	}

	m := NewLinearRegression()
	require.NoError(t, m.Fit(X, y))
	assert.InDelta(t, 2, m.Coef[0], 1e-9)
	assert.InDelta(t, -3, m.Coef[1], 1e-9)
	assert.InDelta(t, 1, m.Intercept, 1e-9)

	pred, err := m.Predict(mat.NewDense(1, 2, []float64{10, 10}))
	require.NoError(t, err)
	assert.InDelta(t, -9, pred[0], 1e-9)

	_, err = m.Predict(mat.NewDense(1, 3, nil))
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestLinearRegression_CollinearMinNorm(t *testing.T) {
	// The second column duplicates the first.
	X := mat.NewDense(4, 2, []float64{1, 1, 2, 2, 3, 3, 4, 4})
	y := []float64{2, 4, 6, 8}

	m := NewLinearRegression()
	require.NoError(t, m.Fit(X, y))
	assert.InDelta(t, 1, m.Coef[0], 1e-9)
	assert.InDelta(t, 1, m.Coef[1], 1e-9)
	assert.InDelta(t, 0, m.Intercept, 1e-9)
}

func TestLinearRegression_Errors(t *testing.T) {
	m := NewLinearRegression()
	assert.ErrorIs(t, m.Fit(mat.NewDense(2, 1, nil), []float64{1}), ErrShapeMismatch)
	_, err := m.Predict(mat.NewDense(1, 1, nil))
	assert.ErrorIs(t, err, ErrNotFitted)
}

func TestLasso_SoftThreshold(t *testing.T) {
	X := mat.NewDense(2, 1, []float64{-1, 1})
	y := []float64{0, 4}

	m := NewLasso(0.5, 100, 1e-8)
	require.NoError(t, m.Fit(X, y))
	// rho = 4, n*alpha = 1, ||x||² = 2
	assert.InDelta(t, 1.5, m.Coef[0], 1e-12)
	assert.InDelta(t, 2, m.Intercept, 1e-12)
	assert.Equal(t, []int{0}, m.Support())
}

func TestLasso_ZeroAlphaMatchesOLS(t *testing.T) {
	X := mat.NewDense(6, 2, []float64{
		1, 1,
		2, 0,
		3, 1,
		4, 0,
		5, 1,
		6, 0,
	})
	y := []float64{3.5, 3.9, 7.6, 8.1, 11.4, 12.2}

	ols := NewLinearRegression()
	require.NoError(t, ols.Fit(X, y))
	lasso := NewLasso(0, 10000, 1e-12)
	require.NoError(t, lasso.Fit(X, y))

	assert.InDeltaSlice(t, ols.Coef, lasso.Coef, 1e-6)
	assert.InDelta(t, ols.Intercept, lasso.Intercept, 1e-6)
}

func TestLasso_LargeAlphaZeroesEverything(t *testing.T) {
	X := mat.NewDense(4, 2, []float64{1, 0, 2, 1, 3, 0, 4, 1})
	y := []float64{1, 2, 3, 4}

	m := NewLasso(100, 100, 1e-6)
	require.NoError(t, m.Fit(X, y))
	assert.Empty(t, m.Support())
	assert.InDelta(t, 2.5, m.Intercept, 1e-12)
	assert.Equal(t, 1, m.Iterations)
}

func TestSelectedRegression(t *testing.T) {
	// The constant column can never be selected.
	X := mat.NewDense(5, 2, []float64{
		1, 7,
		2, 7,
		3, 7,
		4, 7,
		5, 7,
	})
	y := []float64{3, 5, 7, 9, 11}

	m := NewSelectedRegression(0.01, 1000, 1e-8)
	require.NoError(t, m.Fit(X, y))
	assert.Equal(t, []int{0}, m.Selected)
	assert.Equal(t, []string{"speed"}, m.SelectedNames([]string{"speed", "units"}))
	require.NotNil(t, m.Linear)
	assert.InDelta(t, 2, m.Linear.Coef[0], 1e-9, "refit is unpenalised")

	pred, err := m.Predict(mat.NewDense(1, 2, []float64{10, 0}))
	require.NoError(t, err)
	assert.InDelta(t, 21, pred[0], 1e-9)

	_, err = m.Predict(mat.NewDense(1, 1, nil))
	assert.ErrorIs(t, err, ErrShapeMismatch)
}

func TestSelectedRegression_NothingSelected(t *testing.T) {
	X := mat.NewDense(3, 1, []float64{1, 2, 3})
	y := []float64{1, 1, 4}

	m := NewSelectedRegression(1000, 100, 1e-6)
	require.NoError(t, m.Fit(X, y))
	assert.Empty(t, m.Selected)
	assert.Nil(t, m.Linear)

	pred, err := m.Predict(mat.NewDense(2, 1, []float64{5, 6}))
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 2}, pred)
}

func TestTrainTestSplit(t *testing.T) {
	train, test, err := TrainTestSplit(8, 0.25, 42)
	require.NoError(t, err)
	assert.Len(t, test, 2)
	assert.Len(t, train, 6)

	all := append(append([]int(nil), train...), test...)
	sort.Ints(all)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7}, all)

	train2, test2, err := TrainTestSplit(8, 0.25, 42)
	require.NoError(t, err)
	assert.Equal(t, train, train2, "same seed, same split")
	assert.Equal(t, test, test2)

	for _, tc := range []struct {
		n     int
		ratio float64
	}{{8, 0}, {8, 1}, {1, 0.25}, {0, 0.5}} {
		_, _, err := TrainTestSplit(tc.n, tc.ratio, 1)
		assert.ErrorIs(t, err, ErrInvalidSplit, "n=%d ratio=%v", tc.n, tc.ratio)
	}
}

func TestMetrics(t *testing.T) {
	rmse, err := RMSE([]float64{1, 2}, []float64{1, 4})
	require.NoError(t, err)
	assert.InDelta(t, math.Sqrt2, rmse, 1e-12)

	mae, err := MAE([]float64{1, 2}, []float64{1, 4})
	require.NoError(t, err)
	assert.InDelta(t, 1, mae, 1e-12)

	r2, err := R2([]float64{1, 2, 3}, []float64{1, 2, 3})
	require.NoError(t, err)
	assert.InDelta(t, 1, r2, 1e-12)

	_, err = RMSE([]float64{1}, []float64{1, 2})
	assert.ErrorIs(t, err, ErrShapeMismatch)
	_, err = MAE(nil, nil)
	assert.ErrorIs(t, err, ErrNoSamples)
}

func TestEvaluate(t *testing.T) {
	xTrain := mat.NewDense(2, 1, []float64{1, 2})
	xTest := mat.NewDense(2, 1, []float64{3, 4})

	m := new(MockModel)
	m.On("Fit", xTrain, []float64{1, 2}).Return(nil).Once()
	m.On("Predict", xTest).Return([]float64{3, 5}, nil).Once()

	score, err := Evaluate(m, xTrain, []float64{1, 2}, xTest, []float64{3, 4})
	require.NoError(t, err)
	assert.Equal(t, "mock", score.Model)
	assert.InDelta(t, math.Sqrt(0.5), score.RMSE, 1e-12)
	assert.InDelta(t, 0.5, score.MAE, 1e-12)
	m.AssertExpectations(t)

	failing := new(MockModel)
	failing.On("Fit", mock.Anything, mock.Anything).Return(errors.New("boom"))
	_, err = Evaluate(failing, xTrain, []float64{1, 2}, xTest, []float64{3, 4})
	assert.ErrorContains(t, err, "fit mock: boom")
}
