// Package features reproduces the training-time transform: standardized
// numeric columns followed by one-hot encoded categorical columns.
package features

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/your-org/chi-traffic-accidents/internal/frame"
)

var (
	ErrNotFitted       = errors.New("features: transformer is not fitted")
	ErrNullValue       = errors.New("features: null value")
	ErrNoRows          = errors.New("features: no rows")
	ErrNoFeatures      = errors.New("features: no feature columns")
	ErrUnknownCategory = errors.New("features: unknown category")
)

// StandardScaler centres each column on its mean and divides by its
// population standard deviation. Constant columns keep a scale of 1.
type StandardScaler struct {
	Columns  []string
	Mean     []float64
	Scale    []float64
	NSamples int
}

// NewStandardScaler creates an unfitted scaler over the named columns.
func NewStandardScaler(columns []string) *StandardScaler {
	return &StandardScaler{Columns: append([]string(nil), columns...)}
}

// Fitted reports whether Fit has run.
func (s *StandardScaler) Fitted() bool {
	return s != nil && s.NSamples > 0 && len(s.Mean) == len(s.Columns)
}

// Fit learns the mean and scale of every column.
func (s *StandardScaler) Fit(f *frame.Frame) error {
	if f.Len() == 0 {
		return ErrNoRows
	}
	s.Mean = make([]float64, len(s.Columns))
	s.Scale = make([]float64, len(s.Columns))
	for j, name := range s.Columns {
		x, err := floats(f, name)
		if err != nil {
			s.Mean, s.Scale, s.NSamples = nil, nil, 0
			return err
		}
		mean, std := stat.PopMeanStdDev(x, nil)
		if std == 0 {
			std = 1
		}
		s.Mean[j], s.Scale[j] = mean, std
	}
	s.NSamples = f.Len()
	return nil
}

// Transform returns the standardized columns as an n x len(Columns) matrix.
func (s *StandardScaler) Transform(f *frame.Frame) (*mat.Dense, error) {
	if len(s.Columns) == 0 {
		return nil, ErrNoFeatures
	}
	if f.Len() == 0 {
		return nil, ErrNoRows
	}
	data := make([]float64, f.Len()*len(s.Columns))
	if err := s.fill(f, data, len(s.Columns), 0); err != nil {
		return nil, err
	}
	return mat.NewDense(f.Len(), len(s.Columns), data), nil
}

// FitTransform is Fit followed by Transform.
func (s *StandardScaler) FitTransform(f *frame.Frame) (*mat.Dense, error) {
	if err := s.Fit(f); err != nil {
		return nil, err
	}
	return s.Transform(f)
}

// fill writes the scaled values into a row-major buffer of the given
// stride, starting at column offset.
func (s *StandardScaler) fill(f *frame.Frame, data []float64, stride, offset int) error {
	if !s.Fitted() {
		return ErrNotFitted
	}
	for j, name := range s.Columns {
		x, err := floats(f, name)
		if err != nil {
			return err
		}
		for i, v := range x {
			data[i*stride+offset+j] = (v - s.Mean[j]) / s.Scale[j]
		}
	}
	return nil
}

func floats(f *frame.Frame, name string) ([]float64, error) {
	c, ok := f.Col(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", frame.ErrColumnNotFound, name)
	}
	x := make([]float64, f.Len())
	for i := range x {
		v, ok := c.Float(i)
		if !ok {
			if c.IsNull(i) {
				return nil, fmt.Errorf("%w: %s row %d", ErrNullValue, name, i)
			}
			return nil, fmt.Errorf("features: %s row %d is not numeric", name, i)
		}
		x[i] = v
	}
	return x, nil
}
