package features

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/your-org/chi-traffic-accidents/internal/config"
	"github.com/your-org/chi-traffic-accidents/internal/frame"
)

func trainingFrame(t *testing.T) *frame.Frame {
	t.Helper()
	f, err := frame.New(
		&frame.Column{Name: "crash_record_id", Kind: frame.Text, Values: []any{"a", "b", "c", "d", "e"}},
		&frame.Column{Name: "posted_speed_limit", Kind: frame.Int, Values: []any{int64(30), int64(30), int64(35), nil, int64(25)}},
		&frame.Column{Name: "num_units", Kind: frame.Int, Values: []any{int64(2), int64(2), int64(2), int64(2), int64(2)}},
		&frame.Column{Name: "crash_hour", Kind: frame.Int, Values: []any{int64(1), int64(5), int64(9), int64(13), int64(17)}},
		&frame.Column{Name: "street_direction", Kind: frame.Text, Values: []any{"N", nil, "S", "N", "W"}},
		&frame.Column{Name: "weather_condition", Kind: frame.Text, Values: []any{"CLEAR", "Rain", nil, "CLEAR", "SNOW"}},
		&frame.Column{Name: "crash_day_of_week", Kind: frame.Int, Values: []any{int64(1), int64(7), int64(7), int64(2), int64(1)}},
		&frame.Column{Name: "injuries_total", Kind: frame.Int, Values: []any{int64(0), int64(1), nil, int64(2), int64(0)}},
	)
	require.NoError(t, err)
	return f
}

func testPipeline() Pipeline {
	return Pipeline{
		Target:   "injuries_total",
		Drop:     []string{"crash_record_id"},
		Rename:   map[string]string{"crash_day_of_week": "crash_day"},
		ModeFill: []string{"street_direction"},
		Numeric:  []string{"posted_speed_limit", "num_units", "crash_hour"},
	}
}

func TestPipeline_Prepare(t *testing.T) {
	prep, err := testPipeline().Prepare(trainingFrame(t))
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 1, 2, 0}, prep.Target, "the row with a null target is dropped")
	assert.Equal(t, []string{"crash_day", "street_direction", "weather_condition"}, prep.Categorical)
	assert.Equal(t,
		[]string{"posted_speed_limit", "num_units", "crash_hour", "crash_day", "street_direction", "weather_condition"},
		prep.Features.Names())

	speed, _ := prep.Features.Col("posted_speed_limit")
	assert.Equal(t, frame.Float, speed.Kind)
	assert.InDelta(t, (30.0+30+25)/3, speed.Values[2], 1e-12, "numeric nulls take the column mean")

	dir, _ := prep.Features.Col("street_direction")
	assert.Equal(t, []any{"N", "N", "N", "W"}, dir.Values, "mode fill")

	weather, _ := prep.Features.Col("weather_condition")
	assert.Equal(t, []any{"CLEAR", "Rain", "CLEAR", "SNOW"}, weather.Values)

	day, _ := prep.Features.Col("crash_day")
	assert.Equal(t, frame.Text, day.Kind)
	assert.Equal(t, []any{"1", "7", "2", "1"}, day.Values)
}

func TestPrepared_ImputeFromTrainingRows(t *testing.T) {
	prep, err := testPipeline().Shape(trainingFrame(t))
	require.NoError(t, err)
	speed, _ := prep.Features.Col("posted_speed_limit")
	assert.Nil(t, speed.Values[2], "Shape leaves nulls in place")
	assert.Equal(t, []string{"street_direction"}, prep.ModeFill)

	// Rows 1 and 3 alone: speeds 30 and 25, directions null and W.
	imp := prep.FitImputer([]int{1, 3})
	assert.Equal(t, Imputer{
		"posted_speed_limit": 27.5,
		"num_units":          2.0,
		"crash_hour":         11.0,
		"crash_day":          Unknown,
		"street_direction":   "W",
		"weather_condition":  Unknown,
	}, imp)

	require.NoError(t, prep.Impute(imp))
	speed, _ = prep.Features.Col("posted_speed_limit")
	assert.Equal(t, 27.5, speed.Values[2])
	dir, _ := prep.Features.Col("street_direction")
	assert.Equal(t, []any{"N", "W", "N", "W"}, dir.Values)
}

func TestPipeline_PrepareErrors(t *testing.T) {
	p := testPipeline()
	p.Target = "missing"
	_, err := p.Prepare(trainingFrame(t))
	assert.ErrorIs(t, err, frame.ErrColumnNotFound)

	p = testPipeline()
	p.Numeric = append(p.Numeric, "lane_cnt")
	_, err = p.Prepare(trainingFrame(t))
	assert.ErrorIs(t, err, frame.ErrColumnNotFound)

	empty, err := frame.New(&frame.Column{Name: "injuries_total", Kind: frame.Int, Values: []any{nil, nil}})
	require.NoError(t, err)
	_, err = testPipeline().Prepare(empty)
	assert.ErrorIs(t, err, ErrEmptyTarget)
}

func TestNewPipeline_FromConfig(t *testing.T) {
	p := NewPipeline(config.Default().Model)
	assert.Equal(t, "injuries_total", p.Target)
	assert.Equal(t, "crash_day", p.Rename["crash_day_of_week"])
	assert.Contains(t, p.Drop, "has_injuries")
}

func TestStandardScaler(t *testing.T) {
	f, err := frame.New(
		&frame.Column{Name: "x", Kind: frame.Float, Values: []any{1.0, 2.0, 3.0, 4.0}},
		&frame.Column{Name: "c", Kind: frame.Float, Values: []any{5.0, 5.0, 5.0, 5.0}},
	)
	require.NoError(t, err)

	s := NewStandardScaler([]string{"x", "c"})
	_, err = s.Transform(f)
	assert.ErrorIs(t, err, ErrNotFitted)

	m, err := s.FitTransform(f)
	require.NoError(t, err)

	std := math.Sqrt(1.25)
	assert.InDelta(t, 2.5, s.Mean[0], 1e-12)
	assert.InDelta(t, std, s.Scale[0], 1e-12, "population standard deviation")
	assert.Equal(t, 1.0, s.Scale[1], "constant columns keep unit scale")

	want := mat.NewDense(4, 2, []float64{
		-1.5 / std, 0,
		-0.5 / std, 0,
		0.5 / std, 0,
		1.5 / std, 0,
	})
	assert.True(t, mat.EqualApprox(want, m, 1e-12))

	withNull, err := frame.New(
		&frame.Column{Name: "x", Kind: frame.Float, Values: []any{1.0, nil}},
		&frame.Column{Name: "c", Kind: frame.Float, Values: []any{1.0, 1.0}},
	)
	require.NoError(t, err)
	_, err = s.Transform(withNull)
	assert.ErrorIs(t, err, ErrNullValue)
}

func TestOneHotEncoder(t *testing.T) {
	train, err := frame.New(
		&frame.Column{Name: "weather", Kind: frame.Text, Values: []any{"RAIN", "CLEAR", "RAIN"}},
		&frame.Column{Name: "day", Kind: frame.Text, Values: []any{"7", "1", "1"}},
	)
	require.NoError(t, err)

	e := NewOneHotEncoder([]string{"weather", "day"}, false)
	require.NoError(t, e.Fit(train))

	assert.Equal(t, [][]string{{"CLEAR", "RAIN"}, {"1", "7"}}, e.Categories)
	assert.Equal(t, []string{"weather_clear", "weather_rain", "day_1", "day_7"}, e.FeatureNames())

	m, err := e.Transform(train)
	require.NoError(t, err)
	want := mat.NewDense(3, 4, []float64{
		0, 1, 0, 1,
		1, 0, 1, 0,
		0, 1, 1, 0,
	})
	assert.True(t, mat.Equal(want, m))

	unseen, err := frame.New(
		&frame.Column{Name: "weather", Kind: frame.Text, Values: []any{"FOG"}},
		&frame.Column{Name: "day", Kind: frame.Text, Values: []any{"7"}},
	)
	require.NoError(t, err)
	_, err = e.Transform(unseen)
	assert.ErrorIs(t, err, ErrUnknownCategory)

	e.IgnoreUnknown = true
	m, err = e.Transform(unseen)
	require.NoError(t, err)
	if diff := cmp.Diff([]float64{0, 0, 0, 1}, m.RawRowView(0), cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("unknown category row mismatch (-want +got):\n%s", diff)
	}
}

func TestDesign(t *testing.T) {
	prep, err := testPipeline().Prepare(trainingFrame(t))
	require.NoError(t, err)

	s := NewStandardScaler(prep.Numeric)
	require.NoError(t, s.Fit(prep.Features))
	e := NewOneHotEncoder(prep.Categorical, true)
	require.NoError(t, e.Fit(prep.Features))

	X, err := Design(s, e, prep.Features)
	require.NoError(t, err)

	names := FeatureNames(s, e)
	rows, cols := X.Dims()
	assert.Equal(t, 4, rows)
	assert.Equal(t, len(names), cols)
	assert.Equal(t, []string{
		"posted_speed_limit", "num_units", "crash_hour",
		"crash_day_1", "crash_day_2", "crash_day_7",
		"street_direction_n", "street_direction_w",
		"weather_condition_clear", "weather_condition_rain", "weather_condition_snow",
	}, names)

	// Every one-hot block holds exactly one 1 per row.
	for i := range rows {
		sum := 0.0
		for j := 3; j < cols; j++ {
			sum += X.At(i, j)
		}
		assert.Equal(t, 3.0, sum)
	}

	_, err = Design(NewStandardScaler(nil), e, prep.Features)
	assert.ErrorIs(t, err, ErrNotFitted)
}
