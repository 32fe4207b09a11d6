package frame

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Schema maps column names to the kind they should be coerced to.
type Schema map[string]Kind

// timeLayouts are tried in order. SODA sends floating timestamps without a
// zone, e.g. 2023-08-18T12:50:00.000.
var timeLayouts = []string{
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Coerce converts the columns named in schema to their target kind.
// Columns absent from the frame are skipped. Values that do not parse
// become null.
func (f *Frame) Coerce(schema Schema) (*Frame, error) {
	out := f
	for name, kind := range schema {
		c, ok := out.Col(name)
		if !ok || c.Kind == kind {
			continue
		}
		converted := NewColumn(name, kind, len(c.Values))
		for i, v := range c.Values {
			converted.Values[i] = convert(v, kind)
		}
		var err error
		if out, err = out.With(converted); err != nil {
			return nil, fmt.Errorf("coerce %s: %w", name, err)
		}
	}
	return out, nil
}

func convert(v any, kind Kind) any {
	if v == nil {
		return nil
	}
	if kind == Text {
		s, _ := formatValue(v)
		return s
	}
	switch t := v.(type) {
	case string:
		return Parse(t, kind)
	case int64:
		switch kind {
		case Float:
			return float64(t)
		case Bool:
			return t != 0
		}
	case float64:
		switch kind {
		case Int:
			if t != math.Trunc(t) {
				return nil
			}
			return int64(t)
		case Bool:
			return t != 0
		}
	case bool:
		switch kind {
		case Int:
			if t {
				return int64(1)
			}
			return int64(0)
		case Float:
			if t {
				return 1.0
			}
			return 0.0
		}
	}
	return nil
}

// Parse reads s as a value of kind. It returns nil when s is blank or
// does not parse.
func Parse(s string, kind Kind) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	switch kind {
	case Text:
		return s
	case Int:
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
		// "30.0" is still an integer.
		if x, err := strconv.ParseFloat(s, 64); err == nil && x == math.Trunc(x) && !math.IsInf(x, 0) {
			return int64(x)
		}
	case Float:
		if x, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(x) {
			return x
		}
	case Bool:
		switch strings.ToUpper(s) {
		case "Y", "YES":
			return true
		case "N", "NO":
			return false
		}
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
	case Time:
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
	}
	return nil
}
