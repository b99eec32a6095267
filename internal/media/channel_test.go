package media

import (
	"path/filepath"
	"testing"
)

func TestNewChannelDerivedPaths(t *testing.T) {
	ch, err := NewChannel("/data/rec-left.avi", SideLeft, 1000)
	if err != nil {
		t.Fatalf("NewChannel: %v", err)
	}

	want := map[string]string{
		"video":       "/data/rec-left.avi",
		"aligned":     "/data/rec-left-aligned.avi",
		"whiskers":    "/data/rec-left.whiskers",
		"meas":        "/data/rec-left.measurements",
		"eye":         "/data/rec-left-eye-checkpoint.csv",
		"whisk-raw":   "/data/rec-left-whisk-raw.csv",
		"whisk-check": "/data/rec-left-whisk-checkpoint.csv",
		"summary":     "/data/rec-left-summary.csv",
	}
	got := map[string]string{
		"video":       ch.VideoPath(),
		"aligned":     ch.AlignedPath(),
		"whiskers":    ch.WhiskersPath(),
		"meas":        ch.MeasurementsPath(),
		"eye":         ch.EyeCheckpointPath(),
		"whisk-raw":   ch.WhiskRawPath(),
		"whisk-check": ch.WhiskCheckpointPath(),
		"summary":     ch.SummaryPath(),
	}
	for key, wantPath := range want {
		if got[key] != filepath.FromSlash(wantPath) {
			t.Errorf("%s path = %q, want %q", key, got[key], wantPath)
		}
	}

	if ch.Label != "rec-left" {
		t.Fatalf("label = %q, want rec-left", ch.Label)
	}
}

func TestNewChannelDeterministic(t *testing.T) {
	a, err := NewChannel("/data/rec-right.avi", SideRight, 10)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewChannel("/data/rec-right.avi", SideRight, 10)
	if err != nil {
		t.Fatal(err)
	}
	if a.SummaryPath() != b.SummaryPath() || a.EyeCheckpointPath() != b.EyeCheckpointPath() {
		t.Fatal("derived paths are not deterministic")
	}
}

func TestNewChannelRejectsBadInput(t *testing.T) {
	if _, err := NewChannel("", SideLeft, 0); err == nil {
		t.Fatal("expected error for empty path")
	}
	if _, err := NewChannel("/data/x.avi", Side("top"), 0); err == nil {
		t.Fatal("expected error for unknown side")
	}
	if _, err := NewChannel("/data/x.avi", SideLeft, -1); err == nil {
		t.Fatal("expected error for negative frame count")
	}
}

func TestParseSide(t *testing.T) {
	if side, ok := ParseSide(" Left "); !ok || side != SideLeft {
		t.Fatalf("ParseSide(Left) = %q, %v", side, ok)
	}
	if _, ok := ParseSide("center"); ok {
		t.Fatal("expected failure for unknown side")
	}
}

func TestNewSegment(t *testing.T) {
	seg, err := NewSegment("/tmp/l.avi", "/tmp/r.avi", 0, 1000)
	if err != nil {
		t.Fatal(err)
	}
	if seg.Frames() != 1000 {
		t.Fatalf("frames = %d, want 1000", seg.Frames())
	}

	if _, err := NewSegment("l", "r", -1, 5); err == nil {
		t.Fatal("expected error for negative start")
	}
	if _, err := NewSegment("l", "r", 10, 5); err == nil {
		t.Fatal("expected error for stop < start")
	}
}

func TestSessionValidate(t *testing.T) {
	left, _ := NewChannel("/data/rec-left.avi", SideLeft, 100)
	right, _ := NewChannel("/data/rec-right.avi", SideRight, 100)
	session := &Session{Left: left, Right: right}
	if err := session.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	short, _ := NewChannel("/data/rec-right.avi", SideRight, 99)
	if err := (&Session{Left: left, Right: short}).Validate(); err == nil {
		t.Fatal("expected frame-count parity error")
	}

	dup, _ := NewChannel("/data/rec-left.avi", SideRight, 100)
	if err := (&Session{Left: left, Right: dup}).Validate(); err == nil {
		t.Fatal("expected shared-base-name error")
	}

	if err := (&Session{Left: left}).Validate(); err == nil {
		t.Fatal("expected missing-channel error")
	}
}
