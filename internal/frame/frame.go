// Package frame holds the in-memory tables passed between the collector,
// the transformer and the trainer. A Frame is a set of equally long typed
// columns; a nil value is a null.
package frame

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// Kind is the storage type of a column.
type Kind int

const (
	Text Kind = iota
	Int
	Float
	Bool
	Time
)

func (k Kind) String() string {
	switch k {
	case Text:
		return "text"
	case Int:
		return "int"
	case Float:
		return "float"
	case Bool:
		return "bool"
	case Time:
		return "time"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

var (
	ErrColumnNotFound = errors.New("frame: column not found")
	ErrLengthMismatch = errors.New("frame: column length mismatch")
	ErrDuplicateName  = errors.New("frame: duplicate column name")
)

// Column is a named, typed vector. Values hold string, int64, float64,
// bool or time.Time according to Kind, or nil for null.
type Column struct {
	Name   string
	Kind   Kind
	Values []any
}

// NewColumn returns a column of n nulls.
func NewColumn(name string, kind Kind, n int) *Column {
	return &Column{Name: name, Kind: kind, Values: make([]any, n)}
}

// IsNull reports whether row i holds no value.
func (c *Column) IsNull(i int) bool { return c.Values[i] == nil }

// Float returns row i as a float64. Int, Float and Bool columns convert;
// anything else, or a null, reports false.
func (c *Column) Float(i int) (float64, bool) {
	switch v := c.Values[i].(type) {
	case int64:
		return float64(v), true
	case float64:
		return v, true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// String formats row i. Nulls report false.
func (c *Column) String(i int) (string, bool) {
	return formatValue(c.Values[i])
}

func (c *Column) clone() *Column {
	values := make([]any, len(c.Values))
	copy(values, c.Values)
	return &Column{Name: c.Name, Kind: c.Kind, Values: values}
}

// Frame is an ordered collection of columns with the same length.
type Frame struct {
	cols  []*Column
	index map[string]int
	rows  int
}

// New builds a frame from columns. All columns must have the same length
// and distinct names.
func New(cols ...*Column) (*Frame, error) {
	f := &Frame{index: make(map[string]int, len(cols))}
	for i, c := range cols {
		if _, dup := f.index[c.Name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateName, c.Name)
		}
		if i == 0 {
			f.rows = len(c.Values)
		} else if len(c.Values) != f.rows {
			return nil, fmt.Errorf("%w: %s has %d rows, want %d", ErrLengthMismatch, c.Name, len(c.Values), f.rows)
		}
		f.index[c.Name] = i
		f.cols = append(f.cols, c)
	}
	return f, nil
}

// Len is the number of rows.
func (f *Frame) Len() int { return f.rows }

// Width is the number of columns.
func (f *Frame) Width() int { return len(f.cols) }

// Names returns the column names in order.
func (f *Frame) Names() []string {
	names := make([]string, len(f.cols))
	for i, c := range f.cols {
		names[i] = c.Name
	}
	return names
}

// Columns returns the columns in order. Callers must not modify them.
func (f *Frame) Columns() []*Column { return f.cols }

// Col looks a column up by name.
func (f *Frame) Col(name string) (*Column, bool) {
	i, ok := f.index[name]
	if !ok {
		return nil, false
	}
	return f.cols[i], true
}

// Has reports whether the frame has a column with the given name.
func (f *Frame) Has(name string) bool {
	_, ok := f.index[name]
	return ok
}

// Row returns the values of row i in column order.
func (f *Frame) Row(i int) []any {
	row := make([]any, len(f.cols))
	for j, c := range f.cols {
		row[j] = c.Values[i]
	}
	return row
}

// Rows returns every row, the shape pgx.CopyFromRows expects.
func (f *Frame) Rows() [][]any {
	rows := make([][]any, f.rows)
	for i := range f.rows {
		rows[i] = f.Row(i)
	}
	return rows
}

// Select keeps the named columns in the given order.
func (f *Frame) Select(names ...string) (*Frame, error) {
	cols := make([]*Column, 0, len(names))
	for _, n := range names {
		c, ok := f.Col(n)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, n)
		}
		cols = append(cols, c)
	}
	return New(cols...)
}

// SelectPresent keeps the named columns that exist, ignoring the rest.
func (f *Frame) SelectPresent(names ...string) *Frame {
	cols := make([]*Column, 0, len(names))
	for _, n := range names {
		if c, ok := f.Col(n); ok {
			cols = append(cols, c)
		}
	}
	out, _ := New(cols...)
	out.rows = f.rows
	return out
}

// Drop removes the named columns. Unknown names are ignored.
func (f *Frame) Drop(names ...string) *Frame {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	cols := make([]*Column, 0, len(f.cols))
	for _, c := range f.cols {
		if !drop[c.Name] {
			cols = append(cols, c)
		}
	}
	out, _ := New(cols...)
	out.rows = f.rows
	return out
}

// Rename renames columns by old->new mapping. Unknown names are ignored.
func (f *Frame) Rename(mapping map[string]string) (*Frame, error) {
	cols := make([]*Column, len(f.cols))
	for i, c := range f.cols {
		name := c.Name
		if to, ok := mapping[name]; ok {
			name = to
		}
		cols[i] = &Column{Name: name, Kind: c.Kind, Values: c.Values}
	}
	out, err := New(cols...)
	if err != nil {
		return nil, err
	}
	out.rows = f.rows
	return out, nil
}

// With returns a frame with c appended, or replacing the column of the
// same name.
func (f *Frame) With(c *Column) (*Frame, error) {
	if len(f.cols) > 0 && len(c.Values) != f.rows {
		return nil, fmt.Errorf("%w: %s has %d rows, want %d", ErrLengthMismatch, c.Name, len(c.Values), f.rows)
	}
	cols := make([]*Column, len(f.cols), len(f.cols)+1)
	copy(cols, f.cols)
	if i, ok := f.index[c.Name]; ok {
		cols[i] = c
	} else {
		cols = append(cols, c)
	}
	return New(cols...)
}

// Filter keeps the rows for which keep returns true.
func (f *Frame) Filter(keep func(i int) bool) *Frame {
	var idx []int
	for i := range f.rows {
		if keep(i) {
			idx = append(idx, i)
		}
	}
	return f.Take(idx)
}

// Take returns the rows at idx, in that order.
func (f *Frame) Take(idx []int) *Frame {
	cols := make([]*Column, len(f.cols))
	for j, c := range f.cols {
		values := make([]any, len(idx))
		for k, i := range idx {
			values[k] = c.Values[i]
		}
		cols[j] = &Column{Name: c.Name, Kind: c.Kind, Values: values}
	}
	out, _ := New(cols...)
	out.rows = len(idx)
	return out
}

// Head returns at most the first n rows.
func (f *Frame) Head(n int) *Frame {
	if n >= f.rows {
		return f
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return f.Take(idx)
}

// Mode returns the most frequent non-null value of a column. Ties go to
// the value whose text form sorts first.
func (f *Frame) Mode(name string) (any, bool) {
	c, ok := f.Col(name)
	if !ok {
		return nil, false
	}
	counts := make(map[string]int)
	values := make(map[string]any)
	for _, v := range c.Values {
		s, ok := formatValue(v)
		if !ok {
			continue
		}
		counts[s]++
		values[s] = v
	}
	if len(counts) == 0 {
		return nil, false
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	best := keys[0]
	for _, k := range keys[1:] {
		if counts[k] > counts[best] {
			best = k
		}
	}
	return values[best], true
}

// FillNull replaces nulls in the named column with v.
func (f *Frame) FillNull(name string, v any) (*Frame, error) {
	c, ok := f.Col(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
	}
	filled := c.clone()
	for i, cur := range filled.Values {
		if cur == nil {
			filled.Values[i] = v
		}
	}
	return f.With(filled)
}

// FromRecords turns decoded JSON objects into an all-Text frame. The
// columns are the union of every record's keys, sorted. Scalars are
// formatted as text, nested objects and arrays are kept as their JSON.
func FromRecords(records []map[string]any) (*Frame, error) {
	keys := make(map[string]struct{})
	for _, r := range records {
		for k := range r {
			keys[k] = struct{}{}
		}
	}
	names := make([]string, 0, len(keys))
	for k := range keys {
		names = append(names, k)
	}
	sort.Strings(names)

	cols := make([]*Column, len(names))
	for j, name := range names {
		c := NewColumn(name, Text, len(records))
		for i, r := range records {
			v, ok := r[name]
			if !ok || v == nil {
				continue
			}
			s, err := recordText(v)
			if err != nil {
				return nil, fmt.Errorf("frame: column %s row %d: %w", name, i, err)
			}
			c.Values[i] = s
		}
		cols[j] = c
	}
	f, err := New(cols...)
	if err != nil {
		return nil, err
	}
	f.rows = len(records)
	return f, nil
}

func recordText(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(t), nil
	case json.Number:
		return t.String(), nil
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}

func formatValue(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case int64:
		return strconv.FormatInt(t, 10), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	case time.Time:
		return t.Format(time.RFC3339), true
	default:
		return fmt.Sprint(t), true
	}
}
