package join

import (
	"math"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"whiskproc/internal/eyes"
)

func writeCSV(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestReadCSVRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "raw.csv")
	writeCSV(t, path, "frameid,angle,curvature\n0,12.5,0.1\n1,13,0.2\n2,11.75,0.3\n")

	table, err := ReadCSV(path)
	if err != nil {
		t.Fatalf("ReadCSV: %v", err)
	}
	if !reflect.DeepEqual(table.Columns, []string{"angle", "curvature"}) {
		t.Fatalf("columns = %v", table.Columns)
	}
	if len(table.Rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(table.Rows))
	}
	if table.Rows[1].FrameID != 1 || table.Rows[1].Values[0] != 13 {
		t.Fatalf("row 1 = %+v", table.Rows[1])
	}

	out := filepath.Join(dir, "out.csv")
	if err := table.WriteCSV(out); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	reread, err := ReadCSV(out)
	if err != nil {
		t.Fatalf("reread: %v", err)
	}
	if !reflect.DeepEqual(reread, table) {
		t.Fatalf("round trip mismatch:\n%+v\n%+v", reread, table)
	}
}

func TestReadCSVRejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
	}{
		{"empty file", ""},
		{"wrong key column", "frame,angle\n0,1\n"},
		{"no metric columns", "frameid\n0\n"},
		{"non-numeric value", "frameid,angle\n0,abc\n"},
		{"ragged row", "frameid,angle\n0,1,2\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, "bad.csv")
			writeCSV(t, path, tc.content)
			if _, err := ReadCSV(path); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestInnerJoinDropsOneSidedFrames(t *testing.T) {
	whiskTable := &Table{
		Columns: []string{"angle"},
		Rows: []Row{
			{FrameID: 0, Values: []float64{1}},
			{FrameID: 1, Values: []float64{2}},
			{FrameID: 5, Values: []float64{3}}, // no eye row for frame 5
		},
	}
	eyeTable := eyes.NewTable()
	for i := 0; i < 3; i++ {
		if err := eyeTable.Append(eyes.Record{FrameID: i, TotalArea: 100, EyeArea: float64(i)}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	joined := InnerJoin(whiskTable, eyeTable)
	if !reflect.DeepEqual(joined.Columns, []string{"angle", "total_area", "eye_area"}) {
		t.Fatalf("columns = %v", joined.Columns)
	}
	if len(joined.Rows) != 2 {
		t.Fatalf("rows = %d, want 2 (frame 5 dropped)", len(joined.Rows))
	}
	if got := joined.Rows[1].Values; !reflect.DeepEqual(got, []float64{2, 100, 1}) {
		t.Fatalf("row 1 values = %v", got)
	}
}

func TestMeanCenterFilter(t *testing.T) {
	raw := &Table{
		Columns: []string{"angle"},
		Rows: []Row{
			{FrameID: 2, Values: []float64{30}},
			{FrameID: 0, Values: []float64{10}},
			{FrameID: 0, Values: []float64{99}}, // duplicate, dropped
			{FrameID: 1, Values: []float64{20}},
		},
	}

	filtered, err := MeanCenterFilter{}.Filter(raw, "rec-left")
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	wantIDs := []int{0, 1, 2}
	for i, row := range filtered.Rows {
		if row.FrameID != wantIDs[i] {
			t.Fatalf("row %d frame id = %d, want %d", i, row.FrameID, wantIDs[i])
		}
	}
	// Mean of 10, 20, 30 is 20; values are centered on it.
	want := []float64{-10, 0, 10}
	for i, row := range filtered.Rows {
		if row.Values[0] != want[i] {
			t.Fatalf("row %d value = %v, want %v", i, row.Values[0], want[i])
		}
	}
}

func TestMeanCenterFilterRejectsEmptyAndNonFinite(t *testing.T) {
	if _, err := (MeanCenterFilter{}).Filter(&Table{Columns: []string{"angle"}}, "rec-left"); err == nil {
		t.Fatal("expected error for empty table")
	}

	nan := &Table{
		Columns: []string{"angle"},
		Rows:    []Row{{FrameID: 0, Values: []float64{math.NaN()}}},
	}
	if _, err := (MeanCenterFilter{}).Filter(nan, "rec-left"); err == nil {
		t.Fatal("expected error for NaN value")
	}
}
