package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	// OutputDir is where split videos, checkpoints, and summaries are written.
	// Empty means "alongside the input recording".
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
}

// Camera describes the acquisition parameters of the source recording.
type Camera struct {
	Framerate int `toml:"framerate"`
}

// Tools locates the external executables the pipeline drives.
type Tools struct {
	FFmpeg  string `toml:"ffmpeg"`
	FFprobe string `toml:"ffprobe"`
	// WhiskDir, when set, is joined with the whisker tool names below.
	WhiskDir   string `toml:"whisk_dir"`
	Trace      string `toml:"trace"`
	Measure    string `toml:"measure"`
	Classify   string `toml:"classify"`
	Reclassify string `toml:"reclassify"`
	// Extract converts a reclassified whiskers file into the raw per-frame
	// CSV table the joiner consumes.
	Extract string `toml:"extract"`
}

// Align contains re-encoder settings for the timestamp alignment stage.
type Align struct {
	Codec        string `toml:"codec"`
	QualityScale int    `toml:"quality_scale"`
}

// Analysis contains whisker/eye measurement constants.
type Analysis struct {
	// PxPerMM is the pixel-to-millimeter scale passed to the classifier.
	PxPerMM float64 `toml:"px2mm"`
	// FrameLimit is the frame-count sentinel for the classify/reclassify
	// tools; -1 means process all frames.
	FrameLimit int `toml:"frame_limit"`
	// EyeThreshold is the luminance cutoff for the built-in eye-area extractor.
	EyeThreshold int `toml:"eye_threshold"`
}

// Workflow contains scheduling and resume behavior.
type Workflow struct {
	// Workers bounds channel-level concurrency; 0 means logical CPUs minus one.
	Workers int `toml:"workers"`
	// Resume reuses existing checkpoints when true; the run command's --clean
	// flag forces it off for a single run.
	Resume bool `toml:"resume"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for whiskproc.
//
// Configuration sections by subsystem:
//   - Paths: output and log directories
//   - Camera: source recording frame rate
//   - Tools: external binaries (ffmpeg, ffprobe, whisker toolchain)
//   - Align: re-encoder codec and quality for timestamp alignment
//   - Analysis: measurement constants passed to the whisker tools
//   - Workflow: worker count and resume behavior
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Camera   Camera   `toml:"camera"`
	Tools    Tools    `toml:"tools"`
	Align    Align    `toml:"align"`
	Analysis Analysis `toml:"analysis"`
	Workflow Workflow `toml:"workflow"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/whiskproc/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The boolean reports
// whether a file was found at the resolved path.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("whiskproc.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories a run needs.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.LogDir}
	if strings.TrimSpace(c.Paths.OutputDir) != "" {
		dirs = append(dirs, c.Paths.OutputDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// WhiskBinary resolves one of the whisker tool names against tools.whisk_dir.
func (c *Config) WhiskBinary(name string) string {
	name = strings.TrimSpace(name)
	if dir := strings.TrimSpace(c.Tools.WhiskDir); dir != "" && !filepath.IsAbs(name) {
		return filepath.Join(dir, name)
	}
	return name
}

// TraceBinary returns the whisker trace executable.
func (c *Config) TraceBinary() string { return c.WhiskBinary(c.Tools.Trace) }

// MeasureBinary returns the whisker measurement executable.
func (c *Config) MeasureBinary() string { return c.WhiskBinary(c.Tools.Measure) }

// ClassifyBinary returns the whisker classifier executable.
func (c *Config) ClassifyBinary() string { return c.WhiskBinary(c.Tools.Classify) }

// ReclassifyBinary returns the whisker reclassifier executable.
func (c *Config) ReclassifyBinary() string { return c.WhiskBinary(c.Tools.Reclassify) }

// ExtractBinary returns the whiskers-to-CSV extractor executable.
func (c *Config) ExtractBinary() string { return c.WhiskBinary(c.Tools.Extract) }

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
