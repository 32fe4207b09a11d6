// Package transform turns the raw SODA tables into the typed crashes,
// people and crashes_joined tables.
package transform

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/your-org/chi-traffic-accidents/internal/datastore"
	"github.com/your-org/chi-traffic-accidents/internal/frame"
)

// Table names.
const (
	CrashesRawTable    = "crashes_raw"
	PeopleRawTable     = "people_raw"
	CrashesTable       = "crashes"
	PeopleTable        = "people"
	CrashesJoinedTable = "crashes_joined"
)

const crashKey = "crash_record_id"

// CrashColumns are the crash fields kept for modelling.
var CrashColumns = []string{
	"crash_record_id", "crash_date", "posted_speed_limit",
	"traffic_control_device", "weather_condition", "lighting_condition",
	"first_crash_type", "trafficway_type", "lane_cnt", "alignment",
	"roadway_surface_cond", "road_defect", "report_type",
	"intersection_related_i", "hit_and_run_i", "prim_contributory_cause",
	"street_direction", "num_units", "injuries_total", "injuries_fatal",
	"injuries_incapacitating", "injuries_non_incapacitating",
	"crash_hour", "crash_day_of_week", "crash_month", "latitude", "longitude",
}

var crashSchema = frame.Schema{
	"crash_date":                  frame.Time,
	"posted_speed_limit":          frame.Int,
	"lane_cnt":                    frame.Int,
	"num_units":                   frame.Int,
	"injuries_total":              frame.Int,
	"injuries_fatal":              frame.Int,
	"injuries_incapacitating":     frame.Int,
	"injuries_non_incapacitating": frame.Int,
	"crash_hour":                  frame.Int,
	"crash_day_of_week":           frame.Int,
	"crash_month":                 frame.Int,
	"latitude":                    frame.Float,
	"longitude":                   frame.Float,
}

// PeopleColumns are the person fields kept.
var PeopleColumns = []string{
	"person_id", "person_type", "crash_record_id", "vehicle_id", "crash_date",
	"sex", "age", "safety_equipment", "airbag_deployed", "ejection",
	"injury_classification", "driver_action", "driver_vision",
	"physical_condition",
}

var peopleSchema = frame.Schema{
	"crash_date": frame.Time,
	"vehicle_id": frame.Int,
	"age":        frame.Int,
}

// Injury categories, most severe injury in the crash.
const (
	InjuryNone              = "none"
	InjuryNonIncapacitating = "non_incapacitating"
	InjuryIncapacitating    = "incapacitating"
	InjuryFatal             = "fatal"
)

// Crashes selects, types and enriches the raw crash table. Rows without a
// total injury count are dropped so the target never holds a null.
func Crashes(raw *frame.Frame) (*frame.Frame, error) {
	f, err := raw.SelectPresent(CrashColumns...).Coerce(crashSchema)
	if err != nil {
		return nil, err
	}
	total, ok := f.Col("injuries_total")
	if !ok {
		return nil, fmt.Errorf("crashes: %w: injuries_total", frame.ErrColumnNotFound)
	}
	f = f.Filter(func(i int) bool { return !total.IsNull(i) })

	total, _ = f.Col("injuries_total")
	fatal, _ := f.Col("injuries_fatal")
	incap, _ := f.Col("injuries_incapacitating")

	hasInjuries := frame.NewColumn("has_injuries", frame.Bool, f.Len())
	category := frame.NewColumn("injury_category", frame.Text, f.Len())
	for i := range f.Len() {
		n, _ := total.Float(i)
		hasInjuries.Values[i] = n > 0
		category.Values[i] = injuryCategory(n, count(fatal, i), count(incap, i))
	}

	if f, err = f.With(hasInjuries); err != nil {
		return nil, err
	}
	return f.With(category)
}

func injuryCategory(total, fatal, incapacitating float64) string {
	switch {
	case total <= 0:
		return InjuryNone
	case fatal > 0:
		return InjuryFatal
	case incapacitating > 0:
		return InjuryIncapacitating
	default:
		return InjuryNonIncapacitating
	}
}

func count(c *frame.Column, i int) float64 {
	if c == nil {
		return 0
	}
	v, _ := c.Float(i)
	return v
}

// People selects, types and flags the raw person table. Rows without a
// crash id cannot be related to a crash and are dropped.
func People(raw *frame.Frame) (*frame.Frame, error) {
	f, err := raw.SelectPresent(PeopleColumns...).Coerce(peopleSchema)
	if err != nil {
		return nil, err
	}
	key, ok := f.Col(crashKey)
	if !ok {
		return nil, fmt.Errorf("people: %w: %s", frame.ErrColumnNotFound, crashKey)
	}
	f = f.Filter(func(i int) bool { return !key.IsNull(i) })

	personType, _ := f.Col("person_type")
	injury, _ := f.Col("injury_classification")

	isDriver := frame.NewColumn("is_driver", frame.Bool, f.Len())
	isPedestrian := frame.NewColumn("is_pedestrian", frame.Bool, f.Len())
	isInjured := frame.NewColumn("is_injured", frame.Bool, f.Len())
	for i := range f.Len() {
		pt := upper(personType, i)
		isDriver.Values[i] = pt == "DRIVER"
		isPedestrian.Values[i] = pt == "PEDESTRIAN" || pt == "BICYCLE"
		ic := upper(injury, i)
		isInjured.Values[i] = ic != "" && ic != "NO INDICATION OF INJURY"
	}

	for _, c := range []*frame.Column{isDriver, isPedestrian, isInjured} {
		if f, err = f.With(c); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func upper(c *frame.Column, i int) string {
	if c == nil {
		return ""
	}
	s, _ := c.String(i)
	return strings.ToUpper(strings.TrimSpace(s))
}

// Aggregate counts people per crash. The result has one row per crash id,
// sorted by id.
func Aggregate(people *frame.Frame) (*frame.Frame, error) {
	key, ok := people.Col(crashKey)
	if !ok {
		return nil, fmt.Errorf("aggregate: %w: %s", frame.ErrColumnNotFound, crashKey)
	}
	flags := []struct{ src, dst string }{
		{"is_driver", "num_drivers"},
		{"is_pedestrian", "num_pedestrians"},
		{"is_injured", "num_injured_people"},
	}

	type counts struct {
		people int64
		byFlag [3]int64
	}
	perCrash := make(map[string]*counts)
	for i := range people.Len() {
		id, ok := key.String(i)
		if !ok {
			continue
		}
		c := perCrash[id]
		if c == nil {
			c = &counts{}
			perCrash[id] = c
		}
		c.people++
		for j, fl := range flags {
			if col, ok := people.Col(fl.src); ok {
				if v, ok := col.Values[i].(bool); ok && v {
					c.byFlag[j]++
				}
			}
		}
	}

	ids := make([]string, 0, len(perCrash))
	for id := range perCrash {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	idCol := frame.NewColumn(crashKey, frame.Text, len(ids))
	numPeople := frame.NewColumn("num_people", frame.Int, len(ids))
	flagCols := make([]*frame.Column, len(flags))
	for j, fl := range flags {
		flagCols[j] = frame.NewColumn(fl.dst, frame.Int, len(ids))
	}
	for i, id := range ids {
		c := perCrash[id]
		idCol.Values[i] = id
		numPeople.Values[i] = c.people
		for j := range flags {
			flagCols[j].Values[i] = c.byFlag[j]
		}
	}
	return frame.New(append([]*frame.Column{idCol, numPeople}, flagCols...)...)
}

// AggregateColumns are the per-crash counts Join appends.
var AggregateColumns = []string{"num_people", "num_drivers", "num_pedestrians", "num_injured_people"}

// Join appends the per-crash counts to every crash. Crashes with no
// recorded people get zero counts; people of unknown crashes are not
// represented.
func Join(crashes, aggregates *frame.Frame) (*frame.Frame, error) {
	fill := make(map[string]any, len(AggregateColumns))
	for _, c := range AggregateColumns {
		fill[c] = int64(0)
	}
	return crashes.LeftJoin(aggregates, crashKey, fill)
}

// Store reads raw tables and writes derived ones.
type Store interface {
	datastore.TableReader
	datastore.TableWriter
}

// Transformer runs the whole raw-to-derived step.
type Transformer struct {
	store  Store
	logger *zap.Logger
}

// New creates a Transformer.
func New(store Store, logger *zap.Logger) *Transformer {
	return &Transformer{store: store, logger: logger}
}

// Run reads crashes_raw and people_raw and replaces crashes, people and
// crashes_joined.
func (t *Transformer) Run(ctx context.Context) error {
	rawCrashes, err := t.store.ReadTable(ctx, CrashesRawTable, 0)
	if err != nil {
		return fmt.Errorf("read %s: %w", CrashesRawTable, err)
	}
	rawPeople, err := t.store.ReadTable(ctx, PeopleRawTable, 0)
	if err != nil {
		return fmt.Errorf("read %s: %w", PeopleRawTable, err)
	}

	crashes, err := Crashes(rawCrashes)
	if err != nil {
		return err
	}
	t.logger.Info("transformed crashes", zap.Int("raw", rawCrashes.Len()), zap.Int("kept", crashes.Len()))

	people, err := People(rawPeople)
	if err != nil {
		return err
	}
	t.logger.Info("transformed people", zap.Int("raw", rawPeople.Len()), zap.Int("kept", people.Len()))

	aggregates, err := Aggregate(people)
	if err != nil {
		return err
	}
	joined, err := Join(crashes, aggregates)
	if err != nil {
		return err
	}

	for _, out := range []struct {
		table string
		f     *frame.Frame
	}{
		{CrashesTable, crashes},
		{PeopleTable, people},
		{CrashesJoinedTable, joined},
	} {
		if _, err := t.store.ReplaceTable(ctx, out.table, out.f); err != nil {
			return fmt.Errorf("write %s: %w", out.table, err)
		}
	}
	return nil
}
