// Package table holds a small column-oriented string table used to shape
// session data before it is written as CSV.
package table

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"
)

var (
	ErrEmptyConcat    = errors.New("no frames to concatenate")
	ErrColumnMismatch = errors.New("column mismatch")
)

// Frame is an ordered set of named columns with string cells.
type Frame struct {
	Columns []string
	Rows    [][]string
}

func New(columns ...string) *Frame {
	return &Frame{Columns: append([]string(nil), columns...)}
}

// Append adds one row. The number of values must match the columns.
func (f *Frame) Append(values ...string) error {
	if len(values) != len(f.Columns) {
		return fmt.Errorf("%w: row has %d values, frame has %d columns", ErrColumnMismatch, len(values), len(f.Columns))
	}
	f.Rows = append(f.Rows, append([]string(nil), values...))
	return nil
}

func (f *Frame) Len() int {
	return len(f.Rows)
}

func (f *Frame) index(name string) int {
	return slices.Index(f.Columns, name)
}

// Column returns a copy of the named column's cells.
func (f *Frame) Column(name string) ([]string, bool) {
	i := f.index(name)
	if i < 0 {
		return nil, false
	}
	out := make([]string, len(f.Rows))
	for r, row := range f.Rows {
		out[r] = row[i]
	}
	return out, true
}

// SetColumn replaces an existing column or adds it at the end.
func (f *Frame) SetColumn(name string, values []string) error {
	if len(values) != len(f.Rows) {
		return fmt.Errorf("%w: column %s has %d values, frame has %d rows", ErrColumnMismatch, name, len(values), len(f.Rows))
	}
	i := f.index(name)
	if i < 0 {
		f.Columns = append(f.Columns, name)
		for r := range f.Rows {
			f.Rows[r] = append(f.Rows[r], values[r])
		}
		return nil
	}
	for r := range f.Rows {
		f.Rows[r][i] = values[r]
	}
	return nil
}

// Fill sets the named column to v on every row, adding the column if needed.
func (f *Frame) Fill(name, v string) error {
	values := make([]string, len(f.Rows))
	for i := range values {
		values[i] = v
	}
	return f.SetColumn(name, values)
}

// Rename renames columns found in names. Unknown keys are ignored.
func (f *Frame) Rename(names map[string]string) {
	for i, c := range f.Columns {
		if to, ok := names[c]; ok {
			f.Columns[i] = to
		}
	}
}

// Copy returns a deep copy.
func (f *Frame) Copy() *Frame {
	out := New(f.Columns...)
	out.Rows = make([][]string, len(f.Rows))
	for i, row := range f.Rows {
		out.Rows[i] = append([]string(nil), row...)
	}
	return out
}

// Concat stacks frames in order. All frames must share the same columns.
func Concat(frames ...*Frame) (*Frame, error) {
	if len(frames) == 0 {
		return nil, ErrEmptyConcat
	}
	out := New(frames[0].Columns...)
	for _, f := range frames {
		if !slices.Equal(f.Columns, out.Columns) {
			return nil, fmt.Errorf("%w: %v vs %v", ErrColumnMismatch, f.Columns, out.Columns)
		}
		for _, row := range f.Rows {
			out.Rows = append(out.Rows, append([]string(nil), row...))
		}
	}
	return out, nil
}

// Float formats v with the shortest representation that round-trips.
func Float(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// OptFloat formats v, or returns an empty cell for nil.
func OptFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return Float(*v)
}

// Seconds formats d as fractional seconds, or empty for nil.
func Seconds(d *time.Duration) string {
	if d == nil {
		return ""
	}
	return Float(d.Seconds())
}

// Duration formats d in Go duration syntax, or empty for nil.
func Duration(d *time.Duration) string {
	if d == nil {
		return ""
	}
	return d.String()
}

// Date formats t as RFC 3339 in UTC, or empty for the zero time.
func Date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// Int formats n, or empty when n is zero and zeroEmpty is set.
func Int(n int, zeroEmpty bool) string {
	if n == 0 && zeroEmpty {
		return ""
	}
	return strconv.Itoa(n)
}
