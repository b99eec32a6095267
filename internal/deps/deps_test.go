package deps

import (
	"os"
	"path/filepath"
	"testing"

	"whiskproc/internal/config"
)

func TestCheckBinaries(t *testing.T) {
	dir := t.TempDir()
	present := filepath.Join(dir, "present")
	if err := os.WriteFile(present, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}

	statuses := CheckBinaries([]Requirement{
		{Name: "present", Command: present},
		{Name: "absent", Command: filepath.Join(dir, "nope")},
		{Name: "unset", Command: ""},
		{Name: "optional-absent", Command: filepath.Join(dir, "nope"), Optional: true},
	})

	if !statuses[0].Available {
		t.Fatalf("present tool reported unavailable: %+v", statuses[0])
	}
	if statuses[1].Available || statuses[1].Detail == "" {
		t.Fatalf("absent tool: %+v", statuses[1])
	}
	if statuses[2].Available || statuses[2].Detail != "command not configured" {
		t.Fatalf("unset tool: %+v", statuses[2])
	}

	missing := MissingRequired(statuses)
	if len(missing) != 2 {
		t.Fatalf("missing = %v, want absent and unset only", missing)
	}
}

func TestRequirementsCoverConfiguredTools(t *testing.T) {
	cfg := config.Default()
	cfg.Tools.WhiskDir = "/opt/whisk"

	reqs := Requirements(&cfg)
	want := map[string]string{
		"ffmpeg":     "ffmpeg",
		"ffprobe":    "ffprobe",
		"trace":      "/opt/whisk/trace",
		"measure":    "/opt/whisk/measure",
		"classify":   "/opt/whisk/classify",
		"reclassify": "/opt/whisk/reclassify",
		"extract":    "/opt/whisk/whisk_extract",
	}
	if len(reqs) != len(want) {
		t.Fatalf("requirements = %d, want %d", len(reqs), len(want))
	}
	for _, req := range reqs {
		if want[req.Name] != req.Command {
			t.Fatalf("%s command = %q, want %q", req.Name, req.Command, want[req.Name])
		}
	}
}
