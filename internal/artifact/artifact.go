// Package artifact persists the fitted scaler, encoder and model, each to
// its own gob file in one directory.
package artifact

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/your-org/chi-traffic-accidents/internal/features"
	"github.com/your-org/chi-traffic-accidents/internal/learning"
)

const (
	ScalerFile  = "scaler.gob"
	EncoderFile = "encoder.gob"
	ModelFile   = "model.gob"
)

var ErrIncomplete = errors.New("artifact: set is incomplete")

func init() {
	gob.Register(&learning.MeanRegressor{})
	gob.Register(&learning.LinearRegression{})
	gob.Register(&learning.Lasso{})
	gob.Register(&learning.SelectedRegression{})
}

// Set is everything the predictor needs to reproduce training-time inputs.
type Set struct {
	Scaler  *features.StandardScaler
	Encoder *features.OneHotEncoder
	Model   learning.Model
}

// modelFile wraps the interface so gob records the concrete type.
type modelFile struct {
	Model learning.Model
}

// Save writes the three files into dir, creating it when needed.
func Save(dir string, s Set) error {
	if s.Scaler == nil || s.Encoder == nil || s.Model == nil {
		return ErrIncomplete
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}
	if err := write(filepath.Join(dir, ScalerFile), s.Scaler); err != nil {
		return err
	}
	if err := write(filepath.Join(dir, EncoderFile), s.Encoder); err != nil {
		return err
	}
	return write(filepath.Join(dir, ModelFile), &modelFile{Model: s.Model})
}

// Load reads the three files from dir.
func Load(dir string) (*Set, error) {
	var s Set
	s.Scaler = &features.StandardScaler{}
	if err := read(filepath.Join(dir, ScalerFile), s.Scaler); err != nil {
		return nil, err
	}
	s.Encoder = &features.OneHotEncoder{}
	if err := read(filepath.Join(dir, EncoderFile), s.Encoder); err != nil {
		return nil, err
	}
	var m modelFile
	if err := read(filepath.Join(dir, ModelFile), &m); err != nil {
		return nil, err
	}
	if m.Model == nil {
		return nil, fmt.Errorf("%w: %s holds no model", ErrIncomplete, ModelFile)
	}
	s.Model = m.Model
	return &s, nil
}

// write encodes v to a temporary file and renames it over path, so a
// reader never sees a partial artifact.
func write(path string, v any) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(v); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func read(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	if err := gob.NewDecoder(f).Decode(v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}
