package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultValidates(t *testing.T) {
	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Camera.Framerate != 240 {
		t.Fatalf("framerate = %d, want 240", cfg.Camera.Framerate)
	}
	if cfg.Analysis.PxPerMM != 0.04 {
		t.Fatalf("px2mm = %v, want 0.04", cfg.Analysis.PxPerMM)
	}
	if cfg.Analysis.FrameLimit != -1 {
		t.Fatalf("frame_limit = %d, want -1", cfg.Analysis.FrameLimit)
	}
	if !cfg.Workflow.Resume {
		t.Fatal("resume should default to true")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, path, exists, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatalf("expected exists=false for %s", path)
	}
	if cfg.Tools.FFmpeg != "ffmpeg" {
		t.Fatalf("ffmpeg binary = %q", cfg.Tools.FFmpeg)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[camera]
framerate = 120

[tools]
whisk_dir = "` + dir + `"

[workflow]
workers = 3
resume = false

[logging]
format = "json"
level = "debug"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be found")
	}
	if cfg.Camera.Framerate != 120 {
		t.Fatalf("framerate = %d, want 120", cfg.Camera.Framerate)
	}
	if cfg.Workflow.Workers != 3 || cfg.Workflow.Resume {
		t.Fatalf("workflow = %+v", cfg.Workflow)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
	if got := cfg.TraceBinary(); got != filepath.Join(dir, "trace") {
		t.Fatalf("trace binary = %q", got)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    string
	}{
		{"framerate", "[camera]\nframerate = 0\n", "camera.framerate"},
		{"quality", "[align]\nquality_scale = 50\n", "align.quality_scale"},
		{"px2mm", "[analysis]\npx2mm = -1.0\n", "analysis.px2mm"},
		{"frame-limit", "[analysis]\nframe_limit = 0\n", "analysis.frame_limit"},
		{"threshold", "[analysis]\neye_threshold = 400\n", "analysis.eye_threshold"},
		{"workers", "[workflow]\nworkers = -2\n", "workflow.workers"},
		{"format", "[logging]\nformat = \"yaml\"\n", "logging.format"},
		{"level", "[logging]\nlevel = \"trace\"\n", "logging.level"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatal(err)
			}
			_, _, _, err := Load(path)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err.Error(), tc.want)
			}
		})
	}
}

func TestLoadRestoresEmptyToolNames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "[tools]\nextract = \"\"\ntrace = \" \"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, _, _, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Tools.Extract != "whisk_extract" {
		t.Fatalf("extract = %q, want default restored", cfg.Tools.Extract)
	}
	if cfg.Tools.Trace != "trace" {
		t.Fatalf("trace = %q, want default restored", cfg.Tools.Trace)
	}
}

func TestWhiskBinaryAbsoluteNameBypassesDir(t *testing.T) {
	cfg := Default()
	cfg.Tools.WhiskDir = "/opt/whisk"
	cfg.Tools.Trace = "/usr/local/bin/trace"
	if got := cfg.TraceBinary(); got != "/usr/local/bin/trace" {
		t.Fatalf("trace binary = %q", got)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "[analysis]") {
		t.Fatalf("sample missing analysis section: %q", data)
	}

	// The embedded sample must itself survive a Load round trip.
	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists || cfg.Align.Codec != "mpeg4" {
		t.Fatalf("sample load: exists=%v codec=%q", exists, cfg.Align.Codec)
	}
}

func TestExpandPathHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	got, err := ExpandPath("~/recordings")
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join(home, "recordings") {
		t.Fatalf("expanded = %q", got)
	}
}
