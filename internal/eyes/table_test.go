package eyes

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTableAppendEnforcesContiguity(t *testing.T) {
	table := NewTable()
	if err := table.Append(Record{FrameID: 0, TotalArea: 100, EyeArea: 10}); err != nil {
		t.Fatal(err)
	}
	if err := table.Append(Record{FrameID: 1, TotalArea: 100, EyeArea: 12}); err != nil {
		t.Fatal(err)
	}
	if err := table.Append(Record{FrameID: 3, TotalArea: 100, EyeArea: 12}); err == nil {
		t.Fatal("expected error for skipped frame id")
	}
	if err := table.Append(Record{FrameID: 1, TotalArea: 100, EyeArea: 12}); err == nil {
		t.Fatal("expected error for repeated frame id")
	}
	if err := table.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestTableRejectsNegativeTotalArea(t *testing.T) {
	table := NewTable()
	if err := table.Append(Record{FrameID: 0, TotalArea: -1}); err == nil {
		t.Fatal("expected error for negative total area")
	}
}

func TestTableRoundTrip(t *testing.T) {
	table := NewTable()
	for i := 0; i < 5; i++ {
		rec := Record{FrameID: i, TotalArea: 4800, EyeArea: float64(100 + i)}
		if err := table.Append(rec); err != nil {
			t.Fatal(err)
		}
	}

	path := filepath.Join(t.TempDir(), "rec-left-eye-checkpoint.csv")
	if err := table.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(raw), "frameid,total_area,eye_area\n") {
		t.Fatalf("unexpected header in %q", raw)
	}

	loaded, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if loaded.Len() != 5 {
		t.Fatalf("loaded %d rows, want 5", loaded.Len())
	}
	rec, ok := loaded.Lookup(3)
	if !ok || rec.EyeArea != 103 {
		t.Fatalf("Lookup(3) = %+v, %v", rec, ok)
	}
	if _, ok := loaded.Lookup(5); ok {
		t.Fatal("Lookup past end should fail")
	}
}

func TestReadFileRejectsGaps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gap.csv")
	content := "frameid,total_area,eye_area\n0,100,1\n2,100,2\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadFile(path); err == nil {
		t.Fatal("expected error for frame id gap")
	}
}

func TestReadFileRejectsBadHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	if err := os.WriteFile(path, []byte("a,b,c\n0,1,2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadFile(path); err == nil {
		t.Fatal("expected error for unexpected header")
	}
}

func TestReadFileMissing(t *testing.T) {
	if _, err := ReadFile(filepath.Join(t.TempDir(), "absent.csv")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestThresholdExtractor(t *testing.T) {
	frame := image.NewGray(image.Rect(0, 0, 4, 2))
	// Two dark pixels in an otherwise bright frame.
	for i := range frame.Pix {
		frame.Pix[i] = 200
	}
	frame.SetGray(1, 0, color.Gray{Y: 10})
	frame.SetGray(2, 1, color.Gray{Y: 5})

	extractor := ThresholdExtractor{Threshold: 60}
	total, eye, err := extractor.Measure(frame)
	if err != nil {
		t.Fatal(err)
	}
	if total != 8 {
		t.Fatalf("total = %v, want 8", total)
	}
	if eye != 2 {
		t.Fatalf("eye = %v, want 2", eye)
	}
}

func TestThresholdExtractorSubImage(t *testing.T) {
	frame := image.NewGray(image.Rect(0, 0, 8, 4))
	for i := range frame.Pix {
		frame.Pix[i] = 0
	}
	half := frame.SubImage(image.Rect(4, 0, 8, 4)).(*image.Gray)

	extractor := ThresholdExtractor{Threshold: 60}
	total, eye, err := extractor.Measure(half)
	if err != nil {
		t.Fatal(err)
	}
	if total != 16 || eye != 16 {
		t.Fatalf("total=%v eye=%v, want 16/16", total, eye)
	}
}

func TestThresholdExtractorNilFrame(t *testing.T) {
	extractor := ThresholdExtractor{Threshold: 60}
	if _, _, err := extractor.Measure(nil); err == nil {
		t.Fatal("expected error for nil frame")
	}
}
