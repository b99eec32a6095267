package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCamera(); err != nil {
		return err
	}
	if err := c.validateAlign(); err != nil {
		return err
	}
	if err := c.validateAnalysis(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateCamera() error {
	if c.Camera.Framerate <= 0 {
		return errors.New("camera.framerate must be positive")
	}
	return nil
}

func (c *Config) validateAlign() error {
	if c.Align.QualityScale < 1 || c.Align.QualityScale > 31 {
		return errors.New("align.quality_scale must be between 1 and 31")
	}
	return nil
}

func (c *Config) validateAnalysis() error {
	if c.Analysis.PxPerMM <= 0 {
		return errors.New("analysis.px2mm must be positive")
	}
	if c.Analysis.FrameLimit < -1 || c.Analysis.FrameLimit == 0 {
		return errors.New("analysis.frame_limit must be -1 (all frames) or a positive count")
	}
	if c.Analysis.EyeThreshold < 0 || c.Analysis.EyeThreshold > 255 {
		return errors.New("analysis.eye_threshold must be between 0 and 255")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if c.Workflow.Workers < 0 {
		return errors.New("workflow.workers must be zero (auto) or positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
