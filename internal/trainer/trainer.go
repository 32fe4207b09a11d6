// Package trainer fits the injury model on the joined crash table, scores
// it against simpler baselines and persists the artifacts.
package trainer

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/your-org/chi-traffic-accidents/internal/artifact"
	"github.com/your-org/chi-traffic-accidents/internal/config"
	"github.com/your-org/chi-traffic-accidents/internal/datastore"
	"github.com/your-org/chi-traffic-accidents/internal/features"
	"github.com/your-org/chi-traffic-accidents/internal/frame"
	"github.com/your-org/chi-traffic-accidents/internal/learning"
)

// metricPlaces matches the NUMERIC(12,6) columns of model_runs.
const metricPlaces = 6

// Store reads the training table and records runs.
type Store interface {
	datastore.TableReader
	datastore.RunRepository
}

// Trainer runs one training pass per Train call.
type Trainer struct {
	store  Store
	cfg    config.ModelConfig
	logger *zap.Logger
	now    func() time.Time
}

// New creates a Trainer.
func New(store Store, cfg config.ModelConfig, logger *zap.Logger) *Trainer {
	return &Trainer{store: store, cfg: cfg, logger: logger, now: time.Now}
}

// Report is the outcome of a training pass.
type Report struct {
	Run    datastore.Run
	Scores []learning.Score
}

// Train loads the source table and fits the null fills and transformers on
// the training split only. It scores the mean baseline, plain linear
// regression and the lasso-selected model on the test split, saves the
// selected model's artifacts and records the run.
func (t *Trainer) Train(ctx context.Context) (*Report, error) {
	t.logger.Info("loading training data", zap.String("table", t.cfg.SourceTable))
	raw, err := t.store.ReadTable(ctx, t.cfg.SourceTable, 0)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", t.cfg.SourceTable, err)
	}

	prep, err := features.NewPipeline(t.cfg).Shape(raw)
	if err != nil {
		return nil, fmt.Errorf("prepare features: %w", err)
	}
	trainIdx, testIdx, err := learning.TrainTestSplit(prep.Features.Len(), t.cfg.TestRatio, t.cfg.Seed)
	if err != nil {
		return nil, err
	}
	if err := prep.Impute(prep.FitImputer(trainIdx)); err != nil {
		return nil, fmt.Errorf("fill missing values: %w", err)
	}
	trainF, testF := prep.Features.Take(trainIdx), prep.Features.Take(testIdx)
	yTrain, yTest := pick(prep.Target, trainIdx), pick(prep.Target, testIdx)
	t.logger.Info("split data",
		zap.Int("rows", prep.Features.Len()),
		zap.Int("train", len(trainIdx)),
		zap.Int("test", len(testIdx)))

	scaler := features.NewStandardScaler(prep.Numeric)
	if err := scaler.Fit(trainF); err != nil {
		return nil, fmt.Errorf("fit scaler: %w", err)
	}
	encoder := features.NewOneHotEncoder(prep.Categorical, bool(t.cfg.IgnoreUnknown))
	if err := encoder.Fit(trainF); err != nil {
		return nil, fmt.Errorf("fit encoder: %w", err)
	}
	xTrain, xTest, err := design(scaler, encoder, trainF, testF)
	if err != nil {
		return nil, err
	}

	selected := learning.NewSelectedRegression(t.cfg.Alpha, t.cfg.MaxIter, t.cfg.Tolerance)
	models := []learning.Model{learning.NewMeanRegressor(), learning.NewLinearRegression(), selected}
	scores := make([]learning.Score, 0, len(models))
	for _, m := range models {
		score, err := learning.Evaluate(m, xTrain, yTrain, xTest, yTest)
		if err != nil {
			return nil, err
		}
		t.logger.Info("scored model",
			zap.String("model", score.Model),
			zap.Float64("rmse", score.RMSE),
			zap.Float64("mae", score.MAE),
			zap.Float64("r2", score.R2))
		scores = append(scores, score)
	}

	if err := artifact.Save(t.cfg.ArtifactDir, artifact.Set{Scaler: scaler, Encoder: encoder, Model: selected}); err != nil {
		return nil, fmt.Errorf("save artifacts: %w", err)
	}

	names := features.FeatureNames(scaler, encoder)
	run := datastore.Run{
		ID:               uuid.New(),
		TrainedAt:        t.now().UTC(),
		SourceTable:      t.cfg.SourceTable,
		ModelName:        selected.Name(),
		TrainRows:        len(trainIdx),
		TestRows:         len(testIdx),
		Features:         names,
		SelectedFeatures: selected.SelectedNames(names),
		Alpha:            t.cfg.Alpha,
		BaselineRMSE:     metric(scores[0].RMSE),
		LinearRMSE:       metric(scores[1].RMSE),
		SelectedRMSE:     metric(scores[2].RMSE),
		SelectedR2:       metric(scores[2].R2),
		ArtifactDir:      t.cfg.ArtifactDir,
	}
	if err := t.store.SaveRun(ctx, run); err != nil {
		return nil, fmt.Errorf("record run: %w", err)
	}
	t.logger.Info("training complete",
		zap.String("run_id", run.ID.String()),
		zap.String("model_version", selected.Version()),
		zap.Int("features", len(names)),
		zap.Int("selected", len(run.SelectedFeatures)),
		zap.String("artifact_dir", t.cfg.ArtifactDir))
	return &Report{Run: run, Scores: scores}, nil
}

func design(s *features.StandardScaler, e *features.OneHotEncoder, train, test *frame.Frame) (*mat.Dense, *mat.Dense, error) {
	xTrain, err := features.Design(s, e, train)
	if err != nil {
		return nil, nil, fmt.Errorf("design train: %w", err)
	}
	xTest, err := features.Design(s, e, test)
	if err != nil {
		return nil, nil, fmt.Errorf("design test: %w", err)
	}
	return xTrain, xTest, nil
}

func pick(y []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for k, i := range idx {
		out[k] = y[i]
	}
	return out
}

// metric converts a score for storage. R² is undefined on a constant test
// target and is stored as zero.
func metric(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v).Round(metricPlaces)
}
