package align

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"whiskproc/internal/logging"
	"whiskproc/internal/manifest"
	"whiskproc/internal/media"
	"whiskproc/internal/services"
	"whiskproc/internal/services/ffmpeg"
)

const stageName = "align"

// Encoder abstracts the re-encode so tests can run without ffmpeg.
type Encoder interface {
	Align(ctx context.Context, src, dst string, spec ffmpeg.AlignSpec) error
}

// Aligner normalizes a channel video's frame timing before whisker tracking.
type Aligner struct {
	encoder Encoder
	checker *manifest.Checker
	logger  *slog.Logger
	spec    ffmpeg.AlignSpec
}

// New builds an Aligner.
func New(encoder Encoder, checker *manifest.Checker, logger *slog.Logger, spec ffmpeg.AlignSpec) (*Aligner, error) {
	if encoder == nil {
		return nil, errors.New("encoder required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Aligner{encoder: encoder, checker: checker, logger: logger, spec: spec}, nil
}

// Run aligns one channel, skipping work the manifest already vouches for.
func (a *Aligner) Run(ctx context.Context, runID string, ch *media.Channel) error {
	dst := ch.AlignedPath()
	ctx = services.WithStage(services.WithChannel(ctx, ch.Label), stageName)
	log := logging.WithContext(ctx, a.logger)

	if a.checker != nil {
		done, err := a.checker.Done(ctx, ch.Label, stageName, dst)
		if err != nil {
			return err
		}
		if done {
			log.Info("align skipped, output current", logging.String("output", dst))
			return nil
		}
	}

	if err := a.encoder.Align(ctx, ch.VideoPath(), dst, a.spec); err != nil {
		return fmt.Errorf("channel %s: %w", ch.Label, err)
	}

	if a.checker != nil {
		if err := a.checker.Mark(ctx, runID, ch.Label, stageName, dst); err != nil {
			return fmt.Errorf("record align completion: %w", err)
		}
	}

	log.Info("align complete", logging.String("output", dst))
	return nil
}
