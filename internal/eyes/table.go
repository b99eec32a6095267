package eyes

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"whiskproc/internal/fileutil"
)

// Record is one per-frame eye measurement. Frame ids are 0-based and
// contiguous within a table. The external algorithm does not guarantee
// EyeArea <= TotalArea, so it is not enforced here.
type Record struct {
	FrameID   int
	TotalArea float64
	EyeArea   float64
}

// Table is an ordered per-frame eye-metric table indexed by frame id.
type Table struct {
	records []Record
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{}
}

// Append adds the next record. The frame id must continue the 0-based
// contiguous sequence; anything else indicates a dropped or reordered frame.
func (t *Table) Append(rec Record) error {
	if rec.FrameID != len(t.records) {
		return fmt.Errorf("frame id %d breaks contiguous sequence at %d", rec.FrameID, len(t.records))
	}
	if rec.TotalArea < 0 {
		return fmt.Errorf("frame %d: total area must be >= 0, got %v", rec.FrameID, rec.TotalArea)
	}
	t.records = append(t.records, rec)
	return nil
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.records) }

// Records returns a copy of the rows in frame order.
func (t *Table) Records() []Record {
	cp := make([]Record, len(t.records))
	copy(cp, t.records)
	return cp
}

// Lookup returns the record for a frame id.
func (t *Table) Lookup(frameID int) (Record, bool) {
	if frameID < 0 || frameID >= len(t.records) {
		return Record{}, false
	}
	return t.records[frameID], true
}

// Validate confirms frame ids run 0..N-1, contiguous and strictly increasing.
func (t *Table) Validate() error {
	for i, rec := range t.records {
		if rec.FrameID != i {
			return fmt.Errorf("row %d has frame id %d", i, rec.FrameID)
		}
	}
	return nil
}

const csvHeader = "frameid,total_area,eye_area"

// WriteFile persists the table as a CSV checkpoint. The write is atomic so a
// checkpoint file never exists in a half-written state.
func (t *Table) WriteFile(path string) error {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	if err := writer.Write([]string{"frameid", "total_area", "eye_area"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, rec := range t.records {
		row := []string{
			strconv.Itoa(rec.FrameID),
			strconv.FormatFloat(rec.TotalArea, 'f', -1, 64),
			strconv.FormatFloat(rec.EyeArea, 'f', -1, 64),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", rec.FrameID, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return fileutil.WriteFileAtomic(path, buf.Bytes(), 0o644)
}

// ReadFile loads a CSV checkpoint and validates the frame id sequence.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open eye checkpoint: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 3

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse eye checkpoint %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("eye checkpoint %s is empty", path)
	}
	if rows[0][0] != "frameid" {
		return nil, fmt.Errorf("eye checkpoint %s has unexpected header %q", path, rows[0])
	}

	table := NewTable()
	for i, row := range rows[1:] {
		frameID, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: frame id %q: %w", i, row[0], err)
		}
		total, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: total area %q: %w", i, row[1], err)
		}
		eye, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: eye area %q: %w", i, row[2], err)
		}
		if err := table.Append(Record{FrameID: frameID, TotalArea: total, EyeArea: eye}); err != nil {
			return nil, fmt.Errorf("eye checkpoint %s: %w", path, err)
		}
	}
	return table, nil
}
