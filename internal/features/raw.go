package features

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/cesargomez89/mias/internal/domain"
)

// RawTable is an untyped, column-named table of raw track rows as read
// from storage, a CSV export or the retrieval client. Cells are strings;
// conversion happens inside the pipeline so bad data can be reported
// with its column and row.
type RawTable struct {
	columns []string
	index   map[string]int
	rows    [][]string
}

func NewRawTable(columns ...string) *RawTable {
	t := &RawTable{
		columns: slices.Clone(columns),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		t.index[c] = i
	}
	return t
}

// TracksTable renders typed tracks as a raw table with domain.RecordColumns.
func TracksTable(tracks []domain.Track) *RawTable {
	t := NewRawTable(domain.RecordColumns...)
	t.rows = make([][]string, 0, len(tracks))
	for i := range tracks {
		t.rows = append(t.rows, tracks[i].Record())
	}
	return t
}

func (t *RawTable) Append(values []string) error {
	if len(values) != len(t.columns) {
		return fmt.Errorf("row has %d values, table has %d columns", len(values), len(t.columns))
	}
	t.rows = append(t.rows, slices.Clone(values))
	return nil
}

func (t *RawTable) Len() int {
	return len(t.rows)
}

func (t *RawTable) Columns() []string {
	return slices.Clone(t.columns)
}

func (t *RawTable) HasColumn(col string) bool {
	_, ok := t.index[col]
	return ok
}

// Get returns the cell at row for col, or "" when the column is absent.
func (t *RawTable) Get(row int, col string) string {
	i, ok := t.index[col]
	if !ok {
		return ""
	}
	return t.rows[row][i]
}

// Keys returns the uri column in row order.
func (t *RawTable) Keys() []string {
	keys := make([]string, len(t.rows))
	for r := range t.rows {
		keys[r] = t.Get(r, domain.ColURI)
	}
	return keys
}

// find returns the first row whose uri equals key.
func (t *RawTable) find(key string) (int, bool) {
	i, ok := t.index[domain.ColURI]
	if !ok {
		return 0, false
	}
	for r, row := range t.rows {
		if row[i] == key {
			return r, true
		}
	}
	return 0, false
}

// Tracks converts every row back into typed tracks.
func (t *RawTable) Tracks() ([]domain.Track, error) {
	out := make([]domain.Track, 0, len(t.rows))
	for r := range t.rows {
		track, err := domain.ParseTrack(func(col string) string { return t.Get(r, col) })
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", r, err)
		}
		out = append(out, track)
	}
	return out, nil
}

// Merge concatenates tables using the first table's columns and drops
// rows whose uri was already seen, keeping the first occurrence.
func Merge(tables ...*RawTable) (*RawTable, error) {
	if len(tables) == 0 {
		return nil, errors.New("merge: no tables")
	}
	base := tables[0]
	if !base.HasColumn(domain.ColURI) {
		return nil, &SchemaError{Missing: []string{domain.ColURI}}
	}

	out := NewRawTable(base.columns...)
	seen := make(map[string]struct{})
	for _, tbl := range tables {
		if !tbl.HasColumn(domain.ColURI) {
			return nil, &SchemaError{Missing: []string{domain.ColURI}}
		}
		for r := range tbl.rows {
			key := tbl.Get(r, domain.ColURI)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}

			row := make([]string, len(out.columns))
			for i, c := range out.columns {
				row[i] = tbl.Get(r, c)
			}
			out.rows = append(out.rows, row)
		}
	}
	return out, nil
}

// ReadCSV reads a corpus export. A leading unnamed header cell marks a
// positional index column, which is dropped.
func ReadCSV(r io.Reader) (*RawTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	skip := 0
	if len(header) > 0 && strings.TrimSpace(header[0]) == "" {
		skip = 1
	}
	t := NewRawTable(header[skip:]...)

	for line := 2; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		if len(rec) != len(header) {
			return nil, fmt.Errorf("csv line %d: expected %d fields, got %d", line, len(header), len(rec))
		}
		t.rows = append(t.rows, rec[skip:])
	}
	return t, nil
}

// WriteCSV writes t in the layout ReadCSV accepts, with a leading
// positional index column.
func WriteCSV(w io.Writer, t *RawTable) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(append([]string{""}, t.columns...)); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for i, row := range t.rows {
		if err := writer.Write(append([]string{strconv.Itoa(i)}, row...)); err != nil {
			return fmt.Errorf("write csv row %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}
