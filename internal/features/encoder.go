package features

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/your-org/chi-traffic-accidents/internal/frame"
)

// OneHotEncoder expands each categorical column into one indicator column
// per category seen during Fit. Output columns are named
// column + "_" + lower(category).
type OneHotEncoder struct {
	Columns       []string
	Categories    [][]string
	IgnoreUnknown bool
	NSamples      int
}

// NewOneHotEncoder creates an unfitted encoder. With ignoreUnknown a value
// not seen during Fit encodes as an all-zero block instead of failing.
func NewOneHotEncoder(columns []string, ignoreUnknown bool) *OneHotEncoder {
	return &OneHotEncoder{Columns: append([]string(nil), columns...), IgnoreUnknown: ignoreUnknown}
}

// Fitted reports whether Fit has run.
func (e *OneHotEncoder) Fitted() bool {
	return e != nil && e.NSamples > 0 && len(e.Categories) == len(e.Columns)
}

// Fit records the sorted distinct values of every column.
func (e *OneHotEncoder) Fit(f *frame.Frame) error {
	if f.Len() == 0 {
		return ErrNoRows
	}
	cats := make([][]string, len(e.Columns))
	for j, name := range e.Columns {
		c, ok := f.Col(name)
		if !ok {
			return fmt.Errorf("%w: %s", frame.ErrColumnNotFound, name)
		}
		seen := make(map[string]struct{})
		for i := range f.Len() {
			s, ok := c.String(i)
			if !ok {
				return fmt.Errorf("%w: %s row %d", ErrNullValue, name, i)
			}
			seen[s] = struct{}{}
		}
		values := make([]string, 0, len(seen))
		for s := range seen {
			values = append(values, s)
		}
		sort.Strings(values)
		cats[j] = values
	}
	e.Categories = cats
	e.NSamples = f.Len()
	return nil
}

// Width is the number of output columns.
func (e *OneHotEncoder) Width() int {
	n := 0
	for _, c := range e.Categories {
		n += len(c)
	}
	return n
}

// FeatureNames lists the output columns in order.
func (e *OneHotEncoder) FeatureNames() []string {
	names := make([]string, 0, e.Width())
	for j, col := range e.Columns {
		for _, cat := range e.Categories[j] {
			names = append(names, col+"_"+strings.ToLower(cat))
		}
	}
	return names
}

// Transform returns the indicator matrix.
func (e *OneHotEncoder) Transform(f *frame.Frame) (*mat.Dense, error) {
	if !e.Fitted() {
		return nil, ErrNotFitted
	}
	if e.Width() == 0 {
		return nil, ErrNoFeatures
	}
	if f.Len() == 0 {
		return nil, ErrNoRows
	}
	data := make([]float64, f.Len()*e.Width())
	if err := e.fill(f, data, e.Width(), 0); err != nil {
		return nil, err
	}
	return mat.NewDense(f.Len(), e.Width(), data), nil
}

func (e *OneHotEncoder) fill(f *frame.Frame, data []float64, stride, offset int) error {
	if !e.Fitted() {
		return ErrNotFitted
	}
	for j, name := range e.Columns {
		c, ok := f.Col(name)
		if !ok {
			return fmt.Errorf("%w: %s", frame.ErrColumnNotFound, name)
		}
		index := make(map[string]int, len(e.Categories[j]))
		for k, cat := range e.Categories[j] {
			index[cat] = k
		}
		for i := range f.Len() {
			s, _ := c.String(i)
			k, known := index[s]
			if known {
				data[i*stride+offset+k] = 1
			} else if !e.IgnoreUnknown {
				return fmt.Errorf("%w: %s=%q", ErrUnknownCategory, name, s)
			}
		}
		offset += len(e.Categories[j])
	}
	return nil
}

// Design builds the model matrix for f: the scaled numeric columns followed
// by the one-hot blocks.
func Design(s *StandardScaler, e *OneHotEncoder, f *frame.Frame) (*mat.Dense, error) {
	if !s.Fitted() || !e.Fitted() {
		return nil, ErrNotFitted
	}
	width := len(s.Columns) + e.Width()
	if width == 0 {
		return nil, ErrNoFeatures
	}
	if f.Len() == 0 {
		return nil, ErrNoRows
	}
	data := make([]float64, f.Len()*width)
	if err := s.fill(f, data, width, 0); err != nil {
		return nil, err
	}
	if err := e.fill(f, data, width, len(s.Columns)); err != nil {
		return nil, err
	}
	return mat.NewDense(f.Len(), width, data), nil
}

// FeatureNames lists the columns Design produces.
func FeatureNames(s *StandardScaler, e *OneHotEncoder) []string {
	return append(append([]string(nil), s.Columns...), e.FeatureNames()...)
}
