// Package predict turns form answers into an injury estimate using the
// artifacts saved by the trainer.
package predict

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/your-org/chi-traffic-accidents/internal/artifact"
	"github.com/your-org/chi-traffic-accidents/internal/features"
	"github.com/your-org/chi-traffic-accidents/internal/frame"
)

var (
	ErrMissingAnswer = errors.New("predict: missing answer")
	ErrInvalidNumber = errors.New("predict: not a number")
)

// Field describes one input of the prediction form.
type Field struct {
	Name    string
	Label   string
	Numeric bool
	Options []string
}

// Result is a single prediction.
type Result struct {
	Value        float64 `json:"value"`
	Rounded      int     `json:"rounded"`
	ModelVersion string  `json:"model_version"`
}

// Predictor holds loaded artifacts. It is safe for concurrent use; nothing
// is mutated after construction.
type Predictor struct {
	set *artifact.Set
}

// Load reads the artifacts in dir.
func Load(dir string) (*Predictor, error) {
	set, err := artifact.Load(dir)
	if err != nil {
		return nil, err
	}
	return New(set)
}

// New wraps an already loaded artifact set.
func New(set *artifact.Set) (*Predictor, error) {
	if set == nil || set.Scaler == nil || set.Encoder == nil || set.Model == nil {
		return nil, artifact.ErrIncomplete
	}
	if !set.Scaler.Fitted() || !set.Encoder.Fitted() {
		return nil, features.ErrNotFitted
	}
	return &Predictor{set: set}, nil
}

// ModelVersion identifies the loaded model.
func (p *Predictor) ModelVersion() string { return p.set.Model.Version() }

// Fields lists the form inputs in training column order: numeric columns
// first, then categorical columns with their known categories.
func (p *Predictor) Fields() []Field {
	fields := make([]Field, 0, len(p.set.Scaler.Columns)+len(p.set.Encoder.Columns))
	for _, name := range p.set.Scaler.Columns {
		fields = append(fields, Field{Name: name, Label: label(name), Numeric: true})
	}
	for j, name := range p.set.Encoder.Columns {
		fields = append(fields, Field{
			Name:    name,
			Label:   label(name),
			Options: append([]string(nil), p.set.Encoder.Categories[j]...),
		})
	}
	return fields
}

// Predict builds a one-row table from answers, applies the training-time
// transform and returns the model estimate clamped at zero. Categorical
// answers match the fitted categories case-insensitively.
func (p *Predictor) Predict(answers map[string]string) (Result, error) {
	f, err := p.row(answers)
	if err != nil {
		return Result{}, err
	}
	X, err := features.Design(p.set.Scaler, p.set.Encoder, f)
	if err != nil {
		return Result{}, fmt.Errorf("encode answers: %w", err)
	}
	pred, err := p.set.Model.Predict(X)
	if err != nil {
		return Result{}, fmt.Errorf("predict: %w", err)
	}
	v := math.Max(0, pred[0])
	return Result{Value: v, Rounded: int(math.Round(v)), ModelVersion: p.set.Model.Version()}, nil
}

func (p *Predictor) row(answers map[string]string) (*frame.Frame, error) {
	var cols []*frame.Column
	for _, name := range p.set.Scaler.Columns {
		s, err := answer(answers, name)
		if err != nil {
			return nil, err
		}
		x, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, fmt.Errorf("%w: %s=%q", ErrInvalidNumber, name, s)
		}
		cols = append(cols, &frame.Column{Name: name, Kind: frame.Float, Values: []any{x}})
	}
	for j, name := range p.set.Encoder.Columns {
		s, err := answer(answers, name)
		if err != nil {
			return nil, err
		}
		cols = append(cols, &frame.Column{Name: name, Kind: frame.Text, Values: []any{category(p.set.Encoder.Categories[j], s)}})
	}
	return frame.New(cols...)
}

// category returns the fitted category matching s regardless of case, or s
// upper-cased when none matches.
func category(known []string, s string) string {
	for _, c := range known {
		if strings.EqualFold(c, s) {
			return c
		}
	}
	return strings.ToUpper(s)
}

func answer(answers map[string]string, name string) (string, error) {
	s := strings.TrimSpace(answers[name])
	if s == "" {
		return "", fmt.Errorf("%w: %s", ErrMissingAnswer, name)
	}
	return s, nil
}

// label turns posted_speed_limit into "Posted speed limit".
func label(name string) string {
	s := strings.ReplaceAll(name, "_", " ")
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
