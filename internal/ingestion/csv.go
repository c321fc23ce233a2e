package ingestion

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrEmptyInput is returned when a source has no header row.
var ErrEmptyInput = errors.New("input has no header row")

// RawTable is an exported bet sheet before column mapping.
type RawTable struct {
	Source string
	Header []string
	Rows   [][]string
}

// ReadCSV reads a CSV export. Rows may be ragged; a UTF-8 BOM on the header
// is dropped and cells are trimmed.
func ReadCSV(r io.Reader) (*RawTable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyInput
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	trimAll(header)

	table := &RawTable{Header: header}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(table.Rows)+1, err)
		}
		trimAll(row)
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// ReadCSVFile reads a CSV export from disk. Source is the file's base name.
func ReadCSVFile(path string) (*RawTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	table, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	table.Source = filepath.Base(path)
	return table, nil
}

func trimAll(cells []string) {
	for i, c := range cells {
		cells[i] = strings.TrimSpace(c)
	}
}
