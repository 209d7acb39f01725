package features

import (
	"fmt"
	"slices"
)

// Table is a dense numeric feature matrix. Rows are keyed by track uri and
// every lookup goes through the key; row positions carry no meaning
// outside the table.
type Table struct {
	columns []string
	colIdx  map[string]int
	keys    []string
	keyIdx  map[string]int
	rows    [][]float64
}

// NewTable builds a table from row-major data. rows[i] belongs to keys[i].
func NewTable(keys, columns []string, rows [][]float64) (*Table, error) {
	if len(keys) != len(rows) {
		return nil, fmt.Errorf("table: %d keys for %d rows", len(keys), len(rows))
	}
	t := &Table{
		columns: slices.Clone(columns),
		colIdx:  make(map[string]int, len(columns)),
		keys:    slices.Clone(keys),
		keyIdx:  make(map[string]int, len(keys)),
		rows:    make([][]float64, len(rows)),
	}
	for i, c := range columns {
		if _, dup := t.colIdx[c]; dup {
			return nil, fmt.Errorf("table: duplicate column %q", c)
		}
		t.colIdx[c] = i
	}
	for i, k := range keys {
		if _, dup := t.keyIdx[k]; dup {
			return nil, fmt.Errorf("table: duplicate key %q", k)
		}
		if len(rows[i]) != len(columns) {
			return nil, fmt.Errorf("table: row %q has %d values, want %d", k, len(rows[i]), len(columns))
		}
		t.keyIdx[k] = i
		t.rows[i] = slices.Clone(rows[i])
	}
	return t, nil
}

func (t *Table) Len() int {
	return len(t.keys)
}

func (t *Table) Width() int {
	return len(t.columns)
}

// String renders the table shape, mostly for logs.
func (t *Table) String() string {
	return fmt.Sprintf("Table(%d x %d)", t.Len(), t.Width())
}

func (t *Table) Columns() []string {
	return slices.Clone(t.columns)
}

func (t *Table) Keys() []string {
	return slices.Clone(t.keys)
}

func (t *Table) HasKey(key string) bool {
	_, ok := t.keyIdx[key]
	return ok
}

// Row returns a copy of the feature vector stored under key.
func (t *Table) Row(key string) ([]float64, bool) {
	i, ok := t.keyIdx[key]
	if !ok {
		return nil, false
	}
	return slices.Clone(t.rows[i]), true
}

func (t *Table) Value(key, col string) (float64, bool) {
	i, ok := t.keyIdx[key]
	if !ok {
		return 0, false
	}
	j, ok := t.colIdx[col]
	if !ok {
		return 0, false
	}
	return t.rows[i][j], true
}

// column returns the values of col in key order.
func (t *Table) column(col string) ([]float64, bool) {
	j, ok := t.colIdx[col]
	if !ok {
		return nil, false
	}
	out := make([]float64, len(t.rows))
	for i, row := range t.rows {
		out[i] = row[j]
	}
	return out, true
}

// Split partitions the table by key membership: rows whose key is in keys
// go to in, all others to out. Keys absent from the table are ignored.
// Both halves keep the original key order.
func (t *Table) Split(keys []string) (in, out *Table) {
	member := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		member[k] = struct{}{}
	}
	in = t.emptyLike()
	out = t.emptyLike()
	for i, k := range t.keys {
		dst := out
		if _, ok := member[k]; ok {
			dst = in
		}
		dst.keyIdx[k] = len(dst.keys)
		dst.keys = append(dst.keys, k)
		dst.rows = append(dst.rows, slices.Clone(t.rows[i]))
	}
	return in, out
}

// Mean returns the column-wise arithmetic mean. An empty table has no mean.
func (t *Table) Mean() ([]float64, bool) {
	if len(t.rows) == 0 {
		return nil, false
	}
	mean := make([]float64, len(t.columns))
	for _, row := range t.rows {
		for j, v := range row {
			mean[j] += v
		}
	}
	n := float64(len(t.rows))
	for j := range mean {
		mean[j] /= n
	}
	return mean, true
}

// ScaleColumns returns a new table where every value of column c is
// multiplied by factor(c). The receiver is left untouched.
func (t *Table) ScaleColumns(factor func(col string) float64) *Table {
	factors := make([]float64, len(t.columns))
	for j, c := range t.columns {
		factors[j] = factor(c)
	}
	out := t.emptyLike()
	out.keys = slices.Clone(t.keys)
	out.rows = make([][]float64, len(t.rows))
	for i, row := range t.rows {
		scaled := make([]float64, len(row))
		for j, v := range row {
			scaled[j] = v * factors[j]
		}
		out.rows[i] = scaled
		out.keyIdx[t.keys[i]] = i
	}
	return out
}

func (t *Table) emptyLike() *Table {
	return &Table{
		columns: t.columns,
		colIdx:  t.colIdx,
		keyIdx:  make(map[string]int),
	}
}
