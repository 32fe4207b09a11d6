package features

import (
	"errors"
	"fmt"
	"sort"

	"github.com/your-org/chi-traffic-accidents/internal/config"
	"github.com/your-org/chi-traffic-accidents/internal/frame"
)

// ErrEmptyTarget is returned when no row has a target value to learn from.
var ErrEmptyTarget = errors.New("features: no rows with a target value")

// Unknown replaces missing categorical values. It matches the coding the
// city uses for unrecorded fields.
const Unknown = "UNKNOWN"

// Pipeline turns a table into model inputs.
type Pipeline struct {
	Target   string
	Drop     []string
	Rename   map[string]string
	ModeFill []string
	Numeric  []string
}

// NewPipeline builds the pipeline described by the model configuration.
func NewPipeline(cfg config.ModelConfig) Pipeline {
	return Pipeline{
		Target:   cfg.Target,
		Drop:     cfg.DropColumns,
		Rename:   map[string]string{"crash_day_of_week": "crash_day"},
		ModeFill: cfg.ModeFillColumns,
		Numeric:  cfg.NumericColumns,
	}
}

// Prepared is a table split into features and target. Numeric feature
// columns are Float and categorical ones Text. After Impute neither holds
// nulls.
type Prepared struct {
	Features    *frame.Frame
	Target      []float64
	Numeric     []string
	Categorical []string
	ModeFill    []string
}

// Imputer maps a column to the value that replaces its nulls.
type Imputer map[string]any

// Prepare is Shape followed by an Impute fitted on every row.
func (p Pipeline) Prepare(f *frame.Frame) (*Prepared, error) {
	prep, err := p.Shape(f)
	if err != nil {
		return nil, err
	}
	if err := prep.Impute(prep.FitImputer(nil)); err != nil {
		return nil, err
	}
	return prep, nil
}

// Shape drops rows without a target, drops and renames columns and coerces
// the numeric columns to Float and the rest to Text. Every column that is
// not numeric is categorical. Nulls are left in place.
func (p Pipeline) Shape(f *frame.Frame) (*Prepared, error) {
	if !f.Has(p.Target) {
		return nil, fmt.Errorf("%w: target %s", frame.ErrColumnNotFound, p.Target)
	}
	f, err := f.Coerce(frame.Schema{p.Target: frame.Float})
	if err != nil {
		return nil, err
	}
	target, _ := f.Col(p.Target)
	f = f.Filter(func(i int) bool {
		_, ok := target.Float(i)
		return ok
	})
	if f.Len() == 0 {
		return nil, ErrEmptyTarget
	}
	target, _ = f.Col(p.Target)
	y := make([]float64, f.Len())
	for i := range y {
		y[i], _ = target.Float(i)
	}

	f = f.Drop(p.Target).Drop(p.Drop...)
	f, err = f.Rename(p.Rename)
	if err != nil {
		return nil, err
	}

	numeric := make(map[string]bool, len(p.Numeric))
	schema := frame.Schema{}
	for _, name := range p.Numeric {
		if !f.Has(name) {
			return nil, fmt.Errorf("%w: numeric %s", frame.ErrColumnNotFound, name)
		}
		numeric[name] = true
		schema[name] = frame.Float
	}
	var categorical []string
	for _, name := range f.Names() {
		if !numeric[name] {
			categorical = append(categorical, name)
			schema[name] = frame.Text
		}
	}
	sort.Strings(categorical)

	if f, err = f.Coerce(schema); err != nil {
		return nil, err
	}
	var modeFill []string
	for _, name := range p.ModeFill {
		if f.Has(name) {
			modeFill = append(modeFill, name)
		}
	}

	order := append(append([]string(nil), p.Numeric...), categorical...)
	features, err := f.Select(order...)
	if err != nil {
		return nil, err
	}
	return &Prepared{
		Features:    features,
		Target:      y,
		Numeric:     append([]string(nil), p.Numeric...),
		Categorical: categorical,
		ModeFill:    modeFill,
	}, nil
}

// FitImputer learns fill values from the given rows, or from every row when
// rows is nil: the most frequent value for mode-fill columns, the mean for
// other numeric columns and Unknown for other categorical ones.
func (p *Prepared) FitImputer(rows []int) Imputer {
	f := p.Features
	if rows != nil {
		f = f.Take(rows)
	}
	values := make(Imputer, f.Width())
	for _, name := range p.Numeric {
		values[name] = columnMean(f, name)
	}
	for _, name := range p.Categorical {
		values[name] = Unknown
	}
	for _, name := range p.ModeFill {
		if mode, ok := f.Mode(name); ok {
			values[name] = mode
		}
	}
	return values
}

// Impute fills the nulls of every feature column named in values.
func (p *Prepared) Impute(values Imputer) error {
	f := p.Features
	for _, name := range f.Names() {
		v, ok := values[name]
		if !ok {
			continue
		}
		var err error
		if f, err = f.FillNull(name, v); err != nil {
			return err
		}
	}
	p.Features = f
	return nil
}

func columnMean(f *frame.Frame, name string) float64 {
	c, _ := f.Col(name)
	var sum float64
	var n int
	for i := range f.Len() {
		if v, ok := c.Float(i); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
