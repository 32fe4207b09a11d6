package datastore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/your-org/chi-traffic-accidents/internal/frame"
)

// InMemRepository is an in-memory implementation of the table and run
// stores for testing.
type InMemRepository struct {
	mu     sync.RWMutex
	tables map[string]*frame.Frame
	runs   []Run
}

// NewInMemRepository creates a new InMemRepository.
func NewInMemRepository() *InMemRepository {
	return &InMemRepository{tables: make(map[string]*frame.Frame)}
}

// SeedTable allows adding a table for test setup.
func (r *InMemRepository) SeedTable(name string, f *frame.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables[name] = f
}

// Table returns a stored table, or nil.
func (r *InMemRepository) Table(name string) *frame.Frame {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tables[name]
}

// ReplaceTable stores the frame under name, discarding what was there.
func (r *InMemRepository) ReplaceTable(_ context.Context, table string, f *frame.Frame) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables[table] = f
	return int64(f.Len()), nil
}

// ReadTable returns the stored table, truncated to limit when positive.
func (r *InMemRepository) ReadTable(_ context.Context, table string, limit int) (*frame.Frame, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.tables[table]
	if !ok {
		return nil, fmt.Errorf("relation %q does not exist", table)
	}
	if limit > 0 {
		return f.Head(limit), nil
	}
	return f, nil
}

// SaveRun records a run.
func (r *InMemRepository) SaveRun(_ context.Context, run Run) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, run)
	sort.SliceStable(r.runs, func(i, j int) bool {
		return r.runs[i].TrainedAt.After(r.runs[j].TrainedAt) // most recent first
	})
	return nil
}

// LatestRun returns the most recent run, or ErrNoRuns.
func (r *InMemRepository) LatestRun(_ context.Context) (*Run, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.runs) == 0 {
		return nil, ErrNoRuns
	}
	run := r.runs[0]
	return &run, nil
}

// Clear clears all data from the in-memory repository.
func (r *InMemRepository) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables = make(map[string]*frame.Frame)
	r.runs = nil
}
