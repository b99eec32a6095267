package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTools()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) != "" {
		if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
			return fmt.Errorf("paths.output_dir: %w", err)
		}
	}
	if strings.TrimSpace(c.Tools.WhiskDir) != "" {
		if c.Tools.WhiskDir, err = expandPath(c.Tools.WhiskDir); err != nil {
			return fmt.Errorf("tools.whisk_dir: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeTools() {
	if strings.TrimSpace(c.Tools.FFmpeg) == "" {
		c.Tools.FFmpeg = defaultFFmpeg
	}
	if strings.TrimSpace(c.Tools.FFprobe) == "" {
		c.Tools.FFprobe = defaultFFprobe
	}
	if strings.TrimSpace(c.Tools.Trace) == "" {
		c.Tools.Trace = defaultTrace
	}
	if strings.TrimSpace(c.Tools.Measure) == "" {
		c.Tools.Measure = defaultMeasure
	}
	if strings.TrimSpace(c.Tools.Classify) == "" {
		c.Tools.Classify = defaultClassify
	}
	if strings.TrimSpace(c.Tools.Reclassify) == "" {
		c.Tools.Reclassify = defaultReclassify
	}
	if strings.TrimSpace(c.Tools.Extract) == "" {
		c.Tools.Extract = defaultExtract
	}
	if strings.TrimSpace(c.Align.Codec) == "" {
		c.Align.Codec = defaultAlignCodec
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
