package join

import (
	"fmt"
	"math"
	"sort"
)

// Filter transforms the raw whisker table into the filtered checkpoint table.
// The production transform lives outside this repository; implementations
// receive the channel label for per-side parameterization.
type Filter interface {
	Filter(raw *Table, label string) (*Table, error)
}

// MeanCenterFilter is the built-in filter: it sorts rows by frame id, drops
// duplicate frame ids keeping the first occurrence, rejects non-finite
// values, and zero-centers every metric column so whisking traces oscillate
// around zero.
type MeanCenterFilter struct{}

// Filter implements the Filter interface.
func (MeanCenterFilter) Filter(raw *Table, label string) (*Table, error) {
	if raw == nil || len(raw.Rows) == 0 {
		return nil, fmt.Errorf("channel %s: raw whisker table is empty", label)
	}

	rows := append([]Row(nil), raw.Rows...)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].FrameID < rows[j].FrameID })

	deduped := rows[:0]
	lastID := -1
	for _, row := range rows {
		if row.FrameID == lastID {
			continue
		}
		for j, v := range row.Values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("channel %s: frame %d column %s is not finite", label, row.FrameID, raw.Columns[j])
			}
		}
		deduped = append(deduped, row)
		lastID = row.FrameID
	}

	means := make([]float64, len(raw.Columns))
	for _, row := range deduped {
		for j, v := range row.Values {
			means[j] += v
		}
	}
	for j := range means {
		means[j] /= float64(len(deduped))
	}

	filtered := &Table{Columns: append([]string(nil), raw.Columns...)}
	for _, row := range deduped {
		values := make([]float64, len(row.Values))
		for j, v := range row.Values {
			values[j] = v - means[j]
		}
		filtered.Rows = append(filtered.Rows, Row{FrameID: row.FrameID, Values: values})
	}
	return filtered, nil
}
