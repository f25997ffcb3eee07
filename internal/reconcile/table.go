package reconcile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

// Row is one source record keyed by the source's own column names.
type Row map[string]any

// Table is a source table as handed over by an adapter: the declared column
// set plus its rows. Columns drive the required-column checks; a row may
// omit a declared column, which reads as null.
type Table struct {
	Columns []string
	Rows    []Row
}

func NewTable(columns []string, rows ...Row) *Table {
	return &Table{Columns: columns, Rows: rows}
}

// TableFromRecords builds a table from string records such as statement
// attributes. Columns are the sorted union of the record keys.
func TableFromRecords(records []map[string]string) *Table {
	seen := map[string]bool{}
	t := &Table{Rows: make([]Row, 0, len(records))}
	for _, rec := range records {
		row := make(Row, len(rec))
		for k, v := range rec {
			row[k] = v
			if !seen[k] {
				seen[k] = true
				t.Columns = append(t.Columns, k)
			}
		}
		t.Rows = append(t.Rows, row)
	}
	sort.Strings(t.Columns)
	return t
}

// Len is nil safe.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Missing returns the required columns absent from the table, in the order given.
func (t *Table) Missing(required []string) []string {
	have := make(map[string]struct{}, len(t.Columns))
	for _, c := range t.Columns {
		have[c] = struct{}{}
	}
	var missing []string
	for _, c := range required {
		if _, ok := have[c]; !ok {
			missing = append(missing, c)
		}
	}
	return missing
}

// ReadCSV loads a comma separated export whose first line is the header.
// Cells are kept as strings; empty cells read as null.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return &Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	t := &Table{Columns: header}
	line := 1
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		row := make(Row, len(header))
		for i, col := range header {
			row[col] = rec[i]
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}
