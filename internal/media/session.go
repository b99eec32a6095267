package media

import "fmt"

// Segment describes the frame range and target paths for one split operation.
// It is created by the planner, consumed once, then discarded.
type Segment struct {
	LeftPath  string
	RightPath string
	Start     int // inclusive
	Stop      int // exclusive
}

// NewSegment validates the frame range invariant stop >= start >= 0.
func NewSegment(leftPath, rightPath string, start, stop int) (Segment, error) {
	if start < 0 {
		return Segment{}, fmt.Errorf("segment start must be >= 0, got %d", start)
	}
	if stop < start {
		return Segment{}, fmt.Errorf("segment stop %d precedes start %d", stop, start)
	}
	return Segment{LeftPath: leftPath, RightPath: rightPath, Start: start, Stop: stop}, nil
}

// Frames returns the number of frames the segment covers.
func (s Segment) Frames() int { return s.Stop - s.Start }

// Session aggregates the channel descriptors produced by splitting one
// source recording. It is owned by the run that created it.
type Session struct {
	Left  *Channel
	Right *Channel
}

// Channels returns the session's channels in a fixed left, right order.
func (s *Session) Channels() []*Channel {
	return []*Channel{s.Left, s.Right}
}

// Validate checks the frame-count parity invariant between the two channels.
// Disagreeing counts would silently misalign the downstream join.
func (s *Session) Validate() error {
	if s.Left == nil || s.Right == nil {
		return fmt.Errorf("session requires both channels")
	}
	if s.Left.Base() == s.Right.Base() {
		return fmt.Errorf("channels share base name %q", s.Left.Base())
	}
	if s.Left.FrameCount != s.Right.FrameCount {
		return fmt.Errorf("channel frame counts disagree: left %d, right %d", s.Left.FrameCount, s.Right.FrameCount)
	}
	return nil
}
