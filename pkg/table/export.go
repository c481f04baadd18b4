package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Exportable rows know their own column layout.
type Exportable interface {
	Header() []string
	Row() []string
}

// WriteCSV writes a header row followed by one line per row.
func WriteCSV[T Exportable](w io.Writer, rows []T) error {
	cw := csv.NewWriter(w)
	var header []string
	if len(rows) > 0 {
		header = rows[0].Header()
	} else {
		var zero T
		header = zero.Header()
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range rows {
		if err := cw.Write(r.Row()); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ExportCSV writes rows to path; "-" writes to stdout.
func ExportCSV[T Exportable](path string, rows []T) error {
	if path == "" || path == "-" {
		return WriteCSV(os.Stdout, rows)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteCSV(f, rows); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
