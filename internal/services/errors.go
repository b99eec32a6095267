package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSourceUnreadable marks failures to open or decode the source recording.
	ErrSourceUnreadable = errors.New("source unreadable")
	// ErrExternalTool marks a non-zero exit from an external stage process.
	ErrExternalTool = errors.New("external tool error")
	// ErrArtifactMissing marks a stage that reported success without its output artifact.
	ErrArtifactMissing = errors.New("artifact missing")
	// ErrJoin marks a failure to read or merge the per-frame tables.
	ErrJoin = errors.New("join error")
	// ErrValidation marks invalid inputs or violated pipeline invariants.
	ErrValidation = errors.New("validation error")
	// ErrConfiguration marks unusable configuration.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes stage and channel context while
// tagging it with the provided marker for later classification. The marker
// should be one of the exported sentinel errors above.
func Wrap(marker error, stage, channel, message string, err error) error {
	detail := buildDetail(stage, channel, message)
	if marker == nil {
		marker = ErrValidation
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// StageFailed reports a stage that exited non-zero for a channel.
func StageFailed(stage, channel string, err error) error {
	return Wrap(ErrExternalTool, stage, channel, "stage failed", err)
}

// ArtifactMissing reports a stage whose expected output never appeared on disk.
func ArtifactMissing(stage, channel, path string) error {
	return Wrap(ErrArtifactMissing, stage, channel, fmt.Sprintf("expected artifact %s not found", path), nil)
}

func buildDetail(stage, channel, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if channel = strings.TrimSpace(channel); channel != "" {
		parts = append(parts, "channel "+channel)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
