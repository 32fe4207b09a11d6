package collector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/your-org/chi-traffic-accidents/internal/datastore"
	"github.com/your-org/chi-traffic-accidents/internal/soda"
)

// MockFetcher is a mock for the Fetcher interface.
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) FetchAll(ctx context.Context, ds soda.Dataset) ([]soda.Record, error) {
	args := m.Called(ctx, ds)
	records, _ := args.Get(0).([]soda.Record)
	return records, args.Error(1)
}

func TestCollector_CollectDropsLocation(t *testing.T) {
	ctx := context.Background()
	fetcher := new(MockFetcher)
	store := datastore.NewInMemRepository()
	c := New(fetcher, store, zap.NewNop())

	fetcher.On("FetchAll", ctx, soda.Crashes).Return([]soda.Record{
		{"crash_record_id": "a", "location": map[string]any{"type": "Point"}},
		{"crash_record_id": "b"},
	}, nil).Once()

	n, err := c.Collect(ctx, soda.Crashes)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	raw := store.Table("crashes_raw")
	require.NotNil(t, raw)
	assert.Equal(t, []string{"crash_record_id"}, raw.Names())
	fetcher.AssertExpectations(t)
}

func TestCollector_CollectAll(t *testing.T) {
	ctx := context.Background()
	fetcher := new(MockFetcher)
	store := datastore.NewInMemRepository()
	c := New(fetcher, store, zap.NewNop())

	fetcher.On("FetchAll", ctx, soda.Crashes).Return([]soda.Record{{"crash_record_id": "a"}}, nil).Once()
	fetcher.On("FetchAll", ctx, soda.People).Return([]soda.Record{
		{"person_id": "P1", "crash_record_id": "a", "location": "kept for people"},
	}, nil).Once()

	require.NoError(t, c.CollectAll(ctx))

	people := store.Table("people_raw")
	require.NotNil(t, people)
	assert.True(t, people.Has("location"), "only the crashes dataset drops location")
	assert.NotNil(t, store.Table("crashes_raw"))
	fetcher.AssertExpectations(t)
}

func TestCollector_FetchErrorStopsCollectAll(t *testing.T) {
	ctx := context.Background()
	fetcher := new(MockFetcher)
	store := datastore.NewInMemRepository()
	c := New(fetcher, store, zap.NewNop())

	fetcher.On("FetchAll", ctx, soda.Crashes).Return(nil, assert.AnError).Once()

	err := c.CollectAll(ctx)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Nil(t, store.Table("crashes_raw"))
	fetcher.AssertNotCalled(t, "FetchAll", ctx, soda.People)
}

func TestCollector_WithFilter(t *testing.T) {
	ctx := context.Background()
	fetcher := new(MockFetcher)
	store := datastore.NewInMemRepository()
	validator, err := soda.NewValidator()
	require.NoError(t, err)
	c := New(fetcher, store, zap.NewNop()).WithFilter(validator)

	fetcher.On("FetchAll", ctx, soda.Crashes).Return([]soda.Record{
		{"crash_record_id": "a", "injuries_total": "1"},
		{"injuries_total": "2"},
	}, nil).Once()

	n, err := c.Collect(ctx, soda.Crashes)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "the record without an id is rejected")
	assert.Equal(t, 1, store.Table("crashes_raw").Len())
}
