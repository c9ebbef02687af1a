// Package dataset builds transactional data from tabular input.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Table is a raw table of string cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// NumColumns returns the width of the widest row or of the header.
func (t *Table) NumColumns() int {
	n := len(t.Header)
	for _, row := range t.Rows {
		if len(row) > n {
			n = len(row)
		}
	}
	return n
}

// CSVOptions controls how CSV input is read.
type CSVOptions struct {
	Separator rune
	HasHeader bool
}

// DefaultCSVOptions returns comma-separated input with a header line.
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{Separator: ',', HasHeader: true}
}

// ReadCSV reads a table from r. Rows may have different lengths.
func ReadCSV(r io.Reader, opts CSVOptions) (*Table, error) {
	reader := csv.NewReader(r)
	if opts.Separator != 0 {
		reader.Comma = opts.Separator
	}
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	table := &Table{}
	first := true
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}

		for i := range record {
			record[i] = strings.TrimSpace(record[i])
		}

		if first && opts.HasHeader {
			table.Header = record
			first = false
			continue
		}
		first = false
		table.Rows = append(table.Rows, record)
	}

	return table, nil
}

// ReadCSVFile reads a table from the CSV file at path.
func ReadCSVFile(path string, opts CSVOptions) (*Table, error) {
	f, err := os.Open(path) //nolint:gosec // user-supplied input path
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	return ReadCSV(f, opts)
}
