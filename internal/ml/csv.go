// internal/ml/csv.go
package ml

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// dataset is one parsed training set: numeric feature matrix plus string
// class labels. The last CSV column is the target, all others are features.
type dataset struct {
	features []string
	target   string
	X        [][]float64
	y        []string
}

func loadCSV(path string) (*dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open training data: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("csv has no data rows")
	}

	header := records[0]
	if len(header) < 2 {
		return nil, fmt.Errorf("csv needs at least one feature column and a target column")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	ds := &dataset{
		features: header[:len(header)-1],
		target:   header[len(header)-1],
	}

	for line, row := range records[1:] {
		if emptyRow(row) {
			continue
		}
		if len(row) != len(header) {
			return nil, fmt.Errorf("row %d has %d columns, expected %d", line+2, len(row), len(header))
		}
		sample := make([]float64, len(ds.features))
		for i := range ds.features {
			v, err := strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: feature %q is not numeric: %q", line+2, ds.features[i], row[i])
			}
			sample[i] = v
		}
		label := strings.TrimSpace(row[len(row)-1])
		if label == "" {
			return nil, fmt.Errorf("row %d: empty target value", line+2)
		}
		ds.X = append(ds.X, sample)
		ds.y = append(ds.y, label)
	}

	if len(ds.X) == 0 {
		return nil, fmt.Errorf("csv contains only headers, no data rows")
	}
	return ds, nil
}

// RowsFromCSV reads a CSV with a header row into generic prediction rows.
// Numeric cells become float64, anything else stays a string, so a column
// matching a model's target feeds accuracy scoring.
func RowsFromCSV(path string) ([]map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("csv has no data rows")
	}

	header := records[0]
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	var rows []map[string]any
	for line, record := range records[1:] {
		if emptyRow(record) {
			continue
		}
		if len(record) != len(header) {
			return nil, fmt.Errorf("row %d has %d columns, expected %d", line+2, len(record), len(header))
		}
		row := make(map[string]any, len(header))
		for i, cell := range record {
			cell = strings.TrimSpace(cell)
			if v, err := strconv.ParseFloat(cell, 64); err == nil {
				row[header[i]] = v
			} else {
				row[header[i]] = cell
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func emptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
