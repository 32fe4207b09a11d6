package frame

import "fmt"

// LeftJoin keeps every row of f and appends the non-key columns of right,
// matched on key. Rows without a match get fill[column] when present and
// null otherwise. When right repeats a key the first row wins.
func (f *Frame) LeftJoin(right *Frame, key string, fill map[string]any) (*Frame, error) {
	lk, ok := f.Col(key)
	if !ok {
		return nil, fmt.Errorf("left join: %w: left %s", ErrColumnNotFound, key)
	}
	rk, ok := right.Col(key)
	if !ok {
		return nil, fmt.Errorf("left join: %w: right %s", ErrColumnNotFound, key)
	}

	lookup := make(map[string]int, right.Len())
	for i := range right.Len() {
		s, ok := rk.String(i)
		if !ok {
			continue
		}
		if _, seen := lookup[s]; !seen {
			lookup[s] = i
		}
	}

	out := f
	for _, rc := range right.Columns() {
		if rc.Name == key {
			continue
		}
		if f.Has(rc.Name) {
			return nil, fmt.Errorf("left join: %w: %s on both sides", ErrDuplicateName, rc.Name)
		}
		joined := NewColumn(rc.Name, rc.Kind, f.Len())
		for i := range f.Len() {
			s, ok := lk.String(i)
			if j, found := lookup[s]; ok && found {
				joined.Values[i] = rc.Values[j]
			}
			if joined.Values[i] == nil {
				joined.Values[i] = fill[rc.Name]
			}
		}
		var err error
		if out, err = out.With(joined); err != nil {
			return nil, err
		}
	}
	return out, nil
}
