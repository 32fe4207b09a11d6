package datastore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ErrNoRuns is returned by LatestRun when no model has been trained yet.
var ErrNoRuns = errors.New("datastore: no model runs recorded")

// Run is one training run as recorded in model_runs.
type Run struct {
	ID               uuid.UUID       `json:"id"`
	TrainedAt        time.Time       `json:"trained_at"`
	SourceTable      string          `json:"source_table"`
	ModelName        string          `json:"model_name"`
	TrainRows        int             `json:"train_rows"`
	TestRows         int             `json:"test_rows"`
	Features         []string        `json:"features"`
	SelectedFeatures []string        `json:"selected_features"`
	Alpha            float64         `json:"alpha"`
	BaselineRMSE     decimal.Decimal `json:"baseline_rmse"`
	LinearRMSE       decimal.Decimal `json:"linear_rmse"`
	SelectedRMSE     decimal.Decimal `json:"selected_rmse"`
	SelectedR2       decimal.Decimal `json:"selected_r2"`
	ArtifactDir      string          `json:"artifact_dir"`
}

// RunRepository stores training runs.
type RunRepository interface {
	SaveRun(ctx context.Context, run Run) error
	LatestRun(ctx context.Context) (*Run, error)
}

const insertRunSQL = `
        INSERT INTO model_runs (
            id, trained_at, source_table, model_name, train_rows, test_rows,
            features, selected_features, alpha,
            baseline_rmse, linear_rmse, selected_rmse, selected_r2, artifact_dir
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
        );
    `

const latestRunSQL = `
        SELECT
            id, trained_at, source_table, model_name, train_rows, test_rows,
            features, selected_features, alpha,
            baseline_rmse, linear_rmse, selected_rmse, selected_r2, artifact_dir
        FROM model_runs
        ORDER BY trained_at DESC
        LIMIT 1;
    `

// SaveRun inserts a run.
func (r *Repository) SaveRun(ctx context.Context, run Run) error {
	_, err := r.db.Exec(ctx, insertRunSQL,
		run.ID, run.TrainedAt, run.SourceTable, run.ModelName, run.TrainRows, run.TestRows,
		run.Features, run.SelectedFeatures, run.Alpha,
		run.BaselineRMSE, run.LinearRMSE, run.SelectedRMSE, run.SelectedR2, run.ArtifactDir,
	)
	if err != nil {
		return fmt.Errorf("insert model run: %w", err)
	}
	return nil
}

// LatestRun returns the most recently trained run, or ErrNoRuns.
func (r *Repository) LatestRun(ctx context.Context) (*Run, error) {
	var run Run
	err := r.db.QueryRow(ctx, latestRunSQL).Scan(
		&run.ID, &run.TrainedAt, &run.SourceTable, &run.ModelName, &run.TrainRows, &run.TestRows,
		&run.Features, &run.SelectedFeatures, &run.Alpha,
		&run.BaselineRMSE, &run.LinearRMSE, &run.SelectedRMSE, &run.SelectedR2, &run.ArtifactDir,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoRuns
	}
	if err != nil {
		return nil, fmt.Errorf("fetch latest model run: %w", err)
	}
	return &run, nil
}
