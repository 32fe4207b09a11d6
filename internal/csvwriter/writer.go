// Package csvwriter writes tables to CSV files.
package csvwriter

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/your-org/chi-traffic-accidents/internal/frame"
)

// Writer is a simple CSV writer.
type Writer struct {
	path   string
	file   *os.File
	writer *csv.Writer
	logger *zap.Logger
	mu     sync.Mutex
}

// NewWriter creates the CSV file, and its directory when missing.
func NewWriter(filePath string, logger *zap.Logger) (*Writer, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create CSV directory: %w", err)
	}
	file, err := os.Create(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to create CSV file: %w", err)
	}

	return &Writer{
		path:   filePath,
		file:   file,
		writer: csv.NewWriter(file),
		logger: logger,
	}, nil
}

// Write writes a record to the CSV file.
func (w *Writer) Write(record []string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writer.Write(record); err != nil {
		return fmt.Errorf("failed to write record to CSV: %w", err)
	}
	return nil
}

// WriteFrame writes a header of column names followed by one record per
// row. Nulls become empty fields.
func (w *Writer) WriteFrame(f *frame.Frame) error {
	if err := w.Write(f.Names()); err != nil {
		return err
	}
	cols := f.Columns()
	record := make([]string, len(cols))
	for i := range f.Len() {
		for j, c := range cols {
			record[j], _ = c.String(i)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.logger.Debug("wrote CSV", zap.String("path", w.path), zap.Int("rows", f.Len()))
	return nil
}

// Flush flushes any buffered data to the underlying file.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writer.Flush()
	return w.writer.Error()
}

// Close flushes and closes the file.
func (w *Writer) Close() error {
	if err := w.Flush(); err != nil {
		w.file.Close()
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return w.file.Close()
}

// WriteFile writes f to path in one go.
func WriteFile(path string, f *frame.Frame, logger *zap.Logger) error {
	w, err := NewWriter(path, logger)
	if err != nil {
		return err
	}
	if err := w.WriteFrame(f); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
