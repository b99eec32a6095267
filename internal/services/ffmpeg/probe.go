package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"whiskproc/internal/services"
)

// ProbeResult carries the container metadata the splitter needs.
type ProbeResult struct {
	Width      int
	Height     int
	FrameCount int
	FrameRate  float64
}

// Probe inspects the first video stream of the source recording. An
// unopenable or undecodable source yields ErrSourceUnreadable.
func (c *Client) Probe(ctx context.Context, path string) (ProbeResult, error) {
	args := []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,nb_frames,r_frame_rate,duration",
		"-print_format", "json",
		path,
	}
	out, err := c.exec.Output(ctx, c.ffprobe, args)
	if err != nil {
		return ProbeResult{}, services.Wrap(services.ErrSourceUnreadable, "probe", "", fmt.Sprintf("cannot open %s", path), err)
	}
	result, err := parseProbe(out)
	if err != nil {
		return ProbeResult{}, services.Wrap(services.ErrSourceUnreadable, "probe", "", fmt.Sprintf("cannot decode %s", path), err)
	}
	return result, nil
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
}

type probeStream struct {
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	NBFrames  string `json:"nb_frames"`
	FrameRate string `json:"r_frame_rate"`
	Duration  string `json:"duration"`
}

func parseProbe(data []byte) (ProbeResult, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return ProbeResult{}, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(out.Streams) == 0 {
		return ProbeResult{}, fmt.Errorf("no video stream")
	}
	stream := out.Streams[0]
	if stream.Width <= 0 || stream.Height <= 0 {
		return ProbeResult{}, fmt.Errorf("invalid dimensions %dx%d", stream.Width, stream.Height)
	}

	rate, err := parseFrameRate(stream.FrameRate)
	if err != nil {
		return ProbeResult{}, err
	}

	frames, err := parseFrameCount(stream.NBFrames, stream.Duration, rate)
	if err != nil {
		return ProbeResult{}, err
	}

	return ProbeResult{
		Width:      stream.Width,
		Height:     stream.Height,
		FrameCount: frames,
		FrameRate:  rate,
	}, nil
}

func parseFrameRate(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("missing frame rate")
	}
	if num, den, ok := strings.Cut(value, "/"); ok {
		n, err := strconv.ParseFloat(num, 64)
		if err != nil {
			return 0, fmt.Errorf("frame rate %q: %w", value, err)
		}
		d, err := strconv.ParseFloat(den, 64)
		if err != nil {
			return 0, fmt.Errorf("frame rate %q: %w", value, err)
		}
		if d == 0 {
			return 0, fmt.Errorf("frame rate %q has zero denominator", value)
		}
		return n / d, nil
	}
	rate, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("frame rate %q: %w", value, err)
	}
	return rate, nil
}

func parseFrameCount(nbFrames, duration string, rate float64) (int, error) {
	nbFrames = strings.TrimSpace(nbFrames)
	if nbFrames != "" && !strings.EqualFold(nbFrames, "N/A") {
		frames, err := strconv.Atoi(nbFrames)
		if err != nil {
			return 0, fmt.Errorf("nb_frames %q: %w", nbFrames, err)
		}
		if frames < 0 {
			return 0, fmt.Errorf("nb_frames %d is negative", frames)
		}
		return frames, nil
	}

	// Some containers omit nb_frames; fall back to duration x rate.
	duration = strings.TrimSpace(duration)
	if duration == "" || strings.EqualFold(duration, "N/A") {
		return 0, fmt.Errorf("container reports neither nb_frames nor duration")
	}
	seconds, err := strconv.ParseFloat(duration, 64)
	if err != nil {
		return 0, fmt.Errorf("duration %q: %w", duration, err)
	}
	if seconds < 0 || rate <= 0 {
		return 0, fmt.Errorf("cannot derive frame count from duration %v at rate %v", seconds, rate)
	}
	return int(math.Round(seconds * rate)), nil
}
