package join

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"whiskproc/internal/eyes"
	"whiskproc/internal/fileutil"
)

// Row is one per-frame row of a whisker table. Values align with the owning
// table's column order.
type Row struct {
	FrameID int
	Values  []float64
}

// Table is a frame-id keyed whisker metric table. The external extractor
// decides the metric columns; this type only cares that the first CSV column
// is the frame id.
type Table struct {
	Columns []string
	Rows    []Row
}

// ReadCSV loads a whisker table whose first column is "frameid".
func ReadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open whisk table: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse whisk table %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("whisk table %s is empty", path)
	}
	header := records[0]
	if len(header) < 2 || header[0] != "frameid" {
		return nil, fmt.Errorf("whisk table %s has unexpected header %q", path, header)
	}

	table := &Table{Columns: append([]string(nil), header[1:]...)}
	for i, record := range records[1:] {
		if len(record) != len(header) {
			return nil, fmt.Errorf("whisk table %s row %d has %d fields, want %d", path, i, len(record), len(header))
		}
		frameID, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, fmt.Errorf("whisk table %s row %d: frame id %q: %w", path, i, record[0], err)
		}
		values := make([]float64, len(record)-1)
		for j, field := range record[1:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("whisk table %s row %d column %s: %w", path, i, header[j+1], err)
			}
			values[j] = v
		}
		table.Rows = append(table.Rows, Row{FrameID: frameID, Values: values})
	}
	return table, nil
}

// WriteCSV persists the table atomically.
func (t *Table) WriteCSV(path string) error {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	header := append([]string{"frameid"}, t.Columns...)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range t.Rows {
		record := make([]string, 0, len(row.Values)+1)
		record = append(record, strconv.Itoa(row.FrameID))
		for _, v := range row.Values {
			record = append(record, strconv.FormatFloat(v, 'f', -1, 64))
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write frame %d: %w", row.FrameID, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return fileutil.WriteFileAtomic(path, buf.Bytes(), 0o644)
}

// InnerJoin merges the whisker table with the eye table on frame id. Frame
// ids present on only one side are dropped.
func InnerJoin(whisk *Table, eye *eyes.Table) *Table {
	joined := &Table{
		Columns: append(append([]string(nil), whisk.Columns...), "total_area", "eye_area"),
	}
	for _, row := range whisk.Rows {
		rec, ok := eye.Lookup(row.FrameID)
		if !ok {
			continue
		}
		values := make([]float64, 0, len(row.Values)+2)
		values = append(values, row.Values...)
		values = append(values, rec.TotalArea, rec.EyeArea)
		joined.Rows = append(joined.Rows, Row{FrameID: row.FrameID, Values: values})
	}
	return joined
}
