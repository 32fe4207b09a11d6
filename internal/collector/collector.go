// Package collector downloads the raw SODA datasets and stores them as the
// crashes_raw and people_raw tables.
package collector

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/your-org/chi-traffic-accidents/internal/datastore"
	"github.com/your-org/chi-traffic-accidents/internal/frame"
	"github.com/your-org/chi-traffic-accidents/internal/soda"
)

// Fetcher downloads every record of a dataset.
type Fetcher interface {
	FetchAll(ctx context.Context, ds soda.Dataset) ([]soda.Record, error)
}

// RecordFilter drops records that do not look like their dataset.
type RecordFilter interface {
	Filter(ds soda.Dataset, records []soda.Record) ([]soda.Record, []soda.Rejection, error)
}

// Collector moves one dataset from the API into its raw table.
type Collector struct {
	fetcher Fetcher
	filter  RecordFilter
	store   datastore.TableWriter
	logger  *zap.Logger
}

// New creates a Collector.
func New(fetcher Fetcher, store datastore.TableWriter, logger *zap.Logger) *Collector {
	return &Collector{fetcher: fetcher, store: store, logger: logger}
}

// WithFilter makes Collect validate records before storing them.
func (c *Collector) WithFilter(f RecordFilter) *Collector {
	c.filter = f
	return c
}

// Collect fetches the dataset and replaces its raw table. The crashes
// dataset loses its nested location column on the way.
func (c *Collector) Collect(ctx context.Context, ds soda.Dataset) (int64, error) {
	c.logger.Info("collecting dataset", zap.String("dataset", ds.Name), zap.String("code", ds.Code))

	records, err := c.fetcher.FetchAll(ctx, ds)
	if err != nil {
		return 0, fmt.Errorf("fetch %s: %w", ds.Name, err)
	}
	c.logger.Info("fetched records", zap.String("dataset", ds.Name), zap.Int("count", len(records)))

	if c.filter != nil {
		valid, rejected, err := c.filter.Filter(ds, records)
		if err != nil {
			return 0, fmt.Errorf("validate %s: %w", ds.Name, err)
		}
		for _, r := range rejected {
			c.logger.Warn("rejected record", zap.String("dataset", ds.Name), zap.Int("index", r.Index), zap.String("reason", r.Reason))
		}
		records = valid
	}

	f, err := frame.FromRecords(records)
	if err != nil {
		return 0, fmt.Errorf("tabulate %s: %w", ds.Name, err)
	}
	if ds == soda.Crashes {
		f = f.Drop("location")
	}

	n, err := c.store.ReplaceTable(ctx, ds.RawTable, f)
	if err != nil {
		return 0, fmt.Errorf("store %s: %w", ds.RawTable, err)
	}
	c.logger.Info("completed dataset", zap.String("dataset", ds.Name), zap.String("table", ds.RawTable), zap.Int64("rows", n))
	return n, nil
}

// CollectAll collects crashes, then people. It stops at the first failure.
func (c *Collector) CollectAll(ctx context.Context) error {
	for _, ds := range []soda.Dataset{soda.Crashes, soda.People} {
		if _, err := c.Collect(ctx, ds); err != nil {
			return err
		}
	}
	return nil
}
