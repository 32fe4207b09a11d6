package learning

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// TrainTestSplit shuffles the row indices 0..n-1 with seed and returns the
// training and test partitions. The test partition holds ceil(n*ratio)
// rows; both partitions must be non-empty.
func TrainTestSplit(n int, ratio float64, seed int64) (train, test []int, err error) {
	if ratio <= 0 || ratio >= 1 {
		return nil, nil, fmt.Errorf("%w: ratio %v", ErrInvalidSplit, ratio)
	}
	nTest := int(math.Ceil(float64(n) * ratio))
	if nTest == 0 || nTest >= n {
		return nil, nil, fmt.Errorf("%w: %d rows at ratio %v", ErrInvalidSplit, n, ratio)
	}
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	return perm[nTest:], perm[:nTest], nil
}

func checkScore(pred, actual []float64) error {
	if len(actual) == 0 {
		return ErrNoSamples
	}
	if len(pred) != len(actual) {
		return fmt.Errorf("%w: %d predictions, %d values", ErrShapeMismatch, len(pred), len(actual))
	}
	return nil
}

// RMSE is the root mean squared error.
func RMSE(pred, actual []float64) (float64, error) {
	if err := checkScore(pred, actual); err != nil {
		return 0, err
	}
	var s float64
	for i, v := range actual {
		d := pred[i] - v
		s += d * d
	}
	return math.Sqrt(s / float64(len(actual))), nil
}

// MAE is the mean absolute error.
func MAE(pred, actual []float64) (float64, error) {
	if err := checkScore(pred, actual); err != nil {
		return 0, err
	}
	var s float64
	for i, v := range actual {
		s += math.Abs(pred[i] - v)
	}
	return s / float64(len(actual)), nil
}

// R2 is the coefficient of determination.
func R2(pred, actual []float64) (float64, error) {
	if err := checkScore(pred, actual); err != nil {
		return 0, err
	}
	return stat.RSquaredFrom(pred, actual, nil), nil
}

// Score summarises a model on held-out data.
type Score struct {
	Model string
	RMSE  float64
	MAE   float64
	R2    float64
}

func (s Score) String() string {
	return fmt.Sprintf("%s rmse=%.4f mae=%.4f r2=%.4f", s.Model, s.RMSE, s.MAE, s.R2)
}

// Evaluate fits m on the training data and scores it on the test data.
func Evaluate(m Model, xTrain *mat.Dense, yTrain []float64, xTest *mat.Dense, yTest []float64) (Score, error) {
	if err := m.Fit(xTrain, yTrain); err != nil {
		return Score{}, fmt.Errorf("fit %s: %w", m.Name(), err)
	}
	pred, err := m.Predict(xTest)
	if err != nil {
		return Score{}, fmt.Errorf("predict %s: %w", m.Name(), err)
	}
	score := Score{Model: m.Name()}
	if score.RMSE, err = RMSE(pred, yTest); err != nil {
		return Score{}, err
	}
	if score.MAE, err = MAE(pred, yTest); err != nil {
		return Score{}, err
	}
	if score.R2, err = R2(pred, yTest); err != nil {
		return Score{}, err
	}
	return score, nil
}
