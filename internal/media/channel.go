package media

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Side identifies which spatial half of the recording a channel covers.
type Side string

const (
	SideLeft  Side = "left"
	SideRight Side = "right"
)

// ParseSide converts a string into a known Side.
func ParseSide(value string) (Side, bool) {
	switch Side(strings.ToLower(strings.TrimSpace(value))) {
	case SideLeft:
		return SideLeft, true
	case SideRight:
		return SideRight, true
	default:
		return "", false
	}
}

// Channel describes one half of a split recording and every artifact path
// derived from its base name. Paths are pure functions of the base name and
// never change after construction.
type Channel struct {
	Label      string
	Side       Side
	FrameCount int

	base string
	ext  string
}

// NewChannel builds a channel descriptor from the channel video path
// (e.g. /data/rec-left.avi) and its side.
func NewChannel(videoPath string, side Side, frameCount int) (*Channel, error) {
	videoPath = strings.TrimSpace(videoPath)
	if videoPath == "" {
		return nil, fmt.Errorf("channel video path required")
	}
	if side != SideLeft && side != SideRight {
		return nil, fmt.Errorf("unknown side %q", side)
	}
	if frameCount < 0 {
		return nil, fmt.Errorf("frame count must be >= 0, got %d", frameCount)
	}
	ext := filepath.Ext(videoPath)
	base := strings.TrimSuffix(videoPath, ext)
	return &Channel{
		Label:      filepath.Base(base),
		Side:       side,
		FrameCount: frameCount,
		base:       base,
		ext:        ext,
	}, nil
}

// Base returns the base name all artifact paths derive from.
func (c *Channel) Base() string { return c.base }

// VideoPath is the split (pre-alignment) channel video.
func (c *Channel) VideoPath() string { return c.base + c.ext }

// AlignedPath is the timestamp-normalized channel video.
func (c *Channel) AlignedPath() string { return c.base + "-aligned" + c.ext }

// WhiskersPath is the raw trace output.
func (c *Channel) WhiskersPath() string { return c.base + ".whiskers" }

// MeasurementsPath is the whisker measurement output.
func (c *Channel) MeasurementsPath() string { return c.base + ".measurements" }

// EyeCheckpointPath is the per-frame eye-area table.
func (c *Channel) EyeCheckpointPath() string { return c.base + "-eye-checkpoint.csv" }

// WhiskRawPath is the raw whisker-tracking table.
func (c *Channel) WhiskRawPath() string { return c.base + "-whisk-raw.csv" }

// WhiskCheckpointPath is the filtered whisker table.
func (c *Channel) WhiskCheckpointPath() string { return c.base + "-whisk-checkpoint.csv" }

// SummaryPath is the joined per-frame summary table.
func (c *Channel) SummaryPath() string { return c.base + "-summary.csv" }
