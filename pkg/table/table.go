package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"FinPrompt/pkg/util"
)

var ErrMissingColumn = errors.New("table: missing column")

// Table is an immutable, header-indexed set of CSV rows.
type Table struct {
	header []string
	index  map[string]int
	rows   [][]string
}

// ReadCSV loads a CSV file with a header row.
func ReadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	t, err := ParseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return t, nil
}

// ParseCSV reads CSV from r. Header names are trimmed and lower-cased.
func ParseCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return New(nil, nil), nil
		}
		return nil, fmt.Errorf("header: %w", err)
	}

	rows := make([][]string, 0, 1024)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", len(rows)+1, err)
		}
		rows = append(rows, rec)
	}
	return New(header, rows), nil
}

// New builds a table from a header and rows.
func New(header []string, rows [][]string) *Table {
	t := &Table{
		header: make([]string, len(header)),
		index:  make(map[string]int, len(header)),
		rows:   rows,
	}
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		t.header[i] = h
		t.index[h] = i
	}
	return t
}

func (t *Table) Len() int { return len(t.rows) }

func (t *Table) Header() []string { return append([]string(nil), t.header...) }

func (t *Table) Has(col string) bool {
	_, ok := t.index[col]
	return ok
}

// Require reports the first missing column.
func (t *Table) Require(cols ...string) error {
	for _, c := range cols {
		if !t.Has(c) {
			return fmt.Errorf("%w: %s", ErrMissingColumn, c)
		}
	}
	return nil
}

// Records returns row views in file order.
func (t *Table) Records() []Record {
	out := make([]Record, len(t.rows))
	for i, row := range t.rows {
		out[i] = Record{t: t, row: row}
	}
	return out
}

// Filter returns a table with the rows matching pred.
func (t *Table) Filter(pred func(Record) bool) *Table {
	rows := make([][]string, 0, len(t.rows))
	for _, row := range t.rows {
		if pred(Record{t: t, row: row}) {
			rows = append(rows, row)
		}
	}
	return &Table{header: t.header, index: t.index, rows: rows}
}

// Record is a read-only view of one row.
type Record struct {
	t   *Table
	row []string
}

func (r Record) String(col string) string {
	i, ok := r.t.index[col]
	if !ok || i >= len(r.row) {
		return ""
	}
	return strings.TrimSpace(r.row[i])
}

func (r Record) Int(col string) (int64, error) {
	s := r.String(col)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// volumes and years are sometimes written as floats
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return 0, fmt.Errorf("column %s: %w", col, err)
		}
		return int64(f), nil
	}
	return v, nil
}

func (r Record) Float(col string) (float64, error) {
	s := r.String(col)
	if s == "" {
		return 0, fmt.Errorf("column %s: empty", col)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("column %s: %w", col, err)
	}
	return v, nil
}

func (r Record) Date(col string) (time.Time, error) {
	t, ok := util.ParseDate(r.String(col))
	if !ok {
		return time.Time{}, fmt.Errorf("column %s: invalid date %q", col, r.String(col))
	}
	return t, nil
}
