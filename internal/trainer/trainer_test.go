package trainer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/your-org/chi-traffic-accidents/internal/artifact"
	"github.com/your-org/chi-traffic-accidents/internal/config"
	"github.com/your-org/chi-traffic-accidents/internal/datastore"
	"github.com/your-org/chi-traffic-accidents/internal/features"
	"github.com/your-org/chi-traffic-accidents/internal/frame"
	"github.com/your-org/chi-traffic-accidents/internal/learning"
	"github.com/your-org/chi-traffic-accidents/internal/predict"
)

const rows = 60

// joinedTable builds a crashes_joined table whose target is an exact
// linear function of num_units and the weather.
func joinedTable(t *testing.T) *frame.Frame {
	t.Helper()
	var (
		ids     = make([]any, rows)
		speed   = make([]any, rows)
		units   = make([]any, rows)
		hour    = make([]any, rows)
		day     = make([]any, rows)
		dir     = make([]any, rows)
		weather = make([]any, rows)
		total   = make([]any, rows)
	)
	directions := []string{"N", "S", "E", "W"}
	for i := range rows {
		ids[i] = fmt.Sprintf("c%02d", i)
		speed[i] = int64(25 + 5*(i%3))
		u := int64(1 + (i/3)%4)
		units[i] = u
		hour[i] = int64(i % 24)
		day[i] = int64(1 + i%7)
		if i%7 != 0 {
			dir[i] = directions[(i/5)%4]
		}
		rain := int64((i / 2) % 2)
		weather[i] = []string{"CLEAR", "RAIN"}[rain]
		total[i] = (u - 1) + 2*rain
	}
	f, err := frame.New(
		&frame.Column{Name: "crash_record_id", Kind: frame.Text, Values: ids},
		&frame.Column{Name: "posted_speed_limit", Kind: frame.Int, Values: speed},
		&frame.Column{Name: "num_units", Kind: frame.Int, Values: units},
		&frame.Column{Name: "crash_hour", Kind: frame.Int, Values: hour},
		&frame.Column{Name: "crash_day_of_week", Kind: frame.Int, Values: day},
		&frame.Column{Name: "street_direction", Kind: frame.Text, Values: dir},
		&frame.Column{Name: "weather_condition", Kind: frame.Text, Values: weather},
		&frame.Column{Name: "injuries_total", Kind: frame.Int, Values: total},
	)
	require.NoError(t, err)
	return f
}

func testConfig(t *testing.T) config.ModelConfig {
	cfg := config.Default().Model
	cfg.ArtifactDir = t.TempDir()
	cfg.SourceTable = "crashes_joined"
	cfg.DropColumns = []string{"crash_record_id"}
	return cfg
}

func TestTrainer_Train(t *testing.T) {
	ctx := context.Background()
	store := datastore.NewInMemRepository()
	store.SeedTable("crashes_joined", joinedTable(t))
	cfg := testConfig(t)

	tr := New(store, cfg, zap.NewNop())
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tr.now = func() time.Time { return fixed }

	report, err := tr.Train(ctx)
	require.NoError(t, err)

	require.Len(t, report.Scores, 3)
	assert.Equal(t, "mean", report.Scores[0].Model)
	assert.Equal(t, "linear", report.Scores[1].Model)
	assert.Equal(t, "lasso_selected_linear", report.Scores[2].Model)
	assert.Greater(t, report.Scores[0].RMSE, 0.5)
	assert.InDelta(t, 0, report.Scores[1].RMSE, 1e-6)
	assert.InDelta(t, 0, report.Scores[2].RMSE, 1e-6)

	run, err := store.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, report.Run.ID, run.ID)
	assert.Equal(t, fixed, run.TrainedAt)
	assert.Equal(t, 45, run.TrainRows)
	assert.Equal(t, 15, run.TestRows)
	assert.Equal(t, "lasso_selected_linear", run.ModelName)
	assert.Contains(t, run.Features, "weather_condition_clear")
	assert.Contains(t, run.Features, "crash_day_7")
	assert.Contains(t, run.SelectedFeatures, "num_units")
	assert.True(t, run.SelectedRMSE.LessThan(run.BaselineRMSE))
	assert.Equal(t, cfg.ArtifactDir, run.ArtifactDir)

	set, err := artifact.Load(cfg.ArtifactDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"posted_speed_limit", "num_units", "crash_hour"}, set.Scaler.Columns)
	assert.Equal(t, []string{"crash_day", "street_direction", "weather_condition"}, set.Encoder.Columns)
	assert.IsType(t, &learning.SelectedRegression{}, set.Model)
}

// The server must reproduce the training transform: every prepared row,
// answered as form text, predicts what the model gives on its design row.
func TestTrainer_ServedPredictionsMatchTraining(t *testing.T) {
	store := datastore.NewInMemRepository()
	raw := joinedTable(t)
	store.SeedTable("crashes_joined", raw)
	cfg := testConfig(t)

	_, err := New(store, cfg, zap.NewNop()).Train(context.Background())
	require.NoError(t, err)

	prep, err := features.NewPipeline(cfg).Shape(raw)
	require.NoError(t, err)
	trainIdx, _, err := learning.TrainTestSplit(prep.Features.Len(), cfg.TestRatio, cfg.Seed)
	require.NoError(t, err)
	require.NoError(t, prep.Impute(prep.FitImputer(trainIdx)))

	set, err := artifact.Load(cfg.ArtifactDir)
	require.NoError(t, err)
	p, err := predict.Load(cfg.ArtifactDir)
	require.NoError(t, err)
	assert.Equal(t, set.Model.Version(), p.ModelVersion())

	for i := range prep.Features.Len() {
		answers := make(map[string]string)
		for _, c := range prep.Features.Columns() {
			switch v := c.Values[i].(type) {
			case float64:
				answers[c.Name] = strconv.FormatFloat(v, 'f', -1, 64)
			case string:
				answers[c.Name] = strings.ToLower(v)
			default:
				t.Fatalf("row %d: %s holds %T", i, c.Name, v)
			}
		}

		X, err := features.Design(set.Scaler, set.Encoder, prep.Features.Take([]int{i}))
		require.NoError(t, err)
		want, err := set.Model.Predict(X)
		require.NoError(t, err)

		got, err := p.Predict(answers)
		require.NoError(t, err, "row %d", i)
		assert.InDelta(t, math.Max(0, want[0]), got.Value, 1e-9, "row %d", i)
	}
}

func TestTrainer_EmptyTarget(t *testing.T) {
	f, err := frame.New(
		&frame.Column{Name: "posted_speed_limit", Kind: frame.Int, Values: []any{int64(30)}},
		&frame.Column{Name: "injuries_total", Kind: frame.Int, Values: []any{nil}},
	)
	require.NoError(t, err)
	store := datastore.NewInMemRepository()
	store.SeedTable("crashes_joined", f)

	_, err = New(store, testConfig(t), zap.NewNop()).Train(context.Background())
	assert.ErrorIs(t, err, features.ErrEmptyTarget)

	_, err = store.LatestRun(context.Background())
	assert.ErrorIs(t, err, datastore.ErrNoRuns, "no run is recorded")
}

func TestTrainer_MissingTable(t *testing.T) {
	_, err := New(datastore.NewInMemRepository(), testConfig(t), zap.NewNop()).Train(context.Background())
	assert.ErrorContains(t, err, "read crashes_joined")
}

type failingRuns struct {
	*datastore.InMemRepository
}

func (failingRuns) SaveRun(context.Context, datastore.Run) error { return errors.New("db down") }

func TestTrainer_SaveRunFails(t *testing.T) {
	store := datastore.NewInMemRepository()
	store.SeedTable("crashes_joined", joinedTable(t))

	_, err := New(failingRuns{store}, testConfig(t), zap.NewNop()).Train(context.Background())
	assert.ErrorContains(t, err, "record run: db down")
}

func TestMetric(t *testing.T) {
	assert.Equal(t, "0.123457", metric(0.1234567).String())
	assert.True(t, metric(0/zero()).IsZero())
}

func zero() float64 { return 0 }
