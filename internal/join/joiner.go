package join

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"whiskproc/internal/eyes"
	"whiskproc/internal/logging"
	"whiskproc/internal/manifest"
	"whiskproc/internal/media"
	"whiskproc/internal/services"
)

const (
	rawStage     = "whisk-raw"
	summaryStage = "summarize"
)

// RawExtractor produces the raw whisker CSV table from a reclassified
// whiskers file. The whisk client satisfies this.
type RawExtractor interface {
	Extract(ctx context.Context, whiskers, rawCSV string) error
}

// Joiner turns a channel's reclassified whisker output into the final
// summary table: extract raw table, filter, then inner-join with the eye
// checkpoint on frame id.
type Joiner struct {
	extractor RawExtractor
	filter    Filter
	checker   *manifest.Checker
	logger    *slog.Logger
}

// New builds a Joiner. A nil filter gets the built-in mean-centering one.
func New(extractor RawExtractor, filter Filter, checker *manifest.Checker, logger *slog.Logger) (*Joiner, error) {
	if extractor == nil {
		return nil, errors.New("raw extractor required")
	}
	if filter == nil {
		filter = MeanCenterFilter{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Joiner{extractor: extractor, filter: filter, checker: checker, logger: logger}, nil
}

// Run produces the summary table for one channel. eyeTable may be nil, in
// which case the channel's eye checkpoint is loaded from disk. No partial
// summary is ever left behind: all table writes are atomic.
func (j *Joiner) Run(ctx context.Context, runID string, ch *media.Channel, eyeTable *eyes.Table) error {
	ctx = services.WithChannel(ctx, ch.Label)
	log := logging.WithContext(services.WithStage(ctx, summaryStage), j.logger)

	if j.checker != nil {
		done, err := j.checker.Done(ctx, ch.Label, summaryStage, ch.SummaryPath())
		if err != nil {
			return err
		}
		if done {
			log.Info("summary current, join skipped")
			return nil
		}
	}

	if err := j.ensureRawTable(ctx, runID, ch); err != nil {
		return err
	}

	raw, err := ReadCSV(ch.WhiskRawPath())
	if err != nil {
		return services.Wrap(services.ErrJoin, "join", ch.Label, "read raw whisker table", err)
	}

	filtered, err := j.filter.Filter(raw, ch.Label)
	if err != nil {
		return services.Wrap(services.ErrJoin, "join", ch.Label, "filter raw whisker table", err)
	}
	if err := filtered.WriteCSV(ch.WhiskCheckpointPath()); err != nil {
		return services.Wrap(services.ErrJoin, "join", ch.Label, "write filtered checkpoint", err)
	}

	if eyeTable == nil {
		eyeTable, err = eyes.ReadFile(ch.EyeCheckpointPath())
		if err != nil {
			return services.Wrap(services.ErrJoin, "join", ch.Label, "load eye checkpoint", err)
		}
	}

	summary := InnerJoin(filtered, eyeTable)
	if err := summary.WriteCSV(ch.SummaryPath()); err != nil {
		return services.Wrap(services.ErrJoin, "join", ch.Label, "write summary", err)
	}

	if j.checker != nil {
		if err := j.checker.Mark(ctx, runID, ch.Label, summaryStage, ch.SummaryPath()); err != nil {
			return fmt.Errorf("record summary completion: %w", err)
		}
	}

	log.Info("summary written",
		logging.Int("rows", len(summary.Rows)),
		logging.String("output", ch.SummaryPath()))
	return nil
}

// ensureRawTable runs the external extractor unless a current raw table
// already exists.
func (j *Joiner) ensureRawTable(ctx context.Context, runID string, ch *media.Channel) error {
	raw := ch.WhiskRawPath()
	ctx = services.WithStage(ctx, rawStage)
	if j.checker != nil {
		done, err := j.checker.Done(ctx, ch.Label, rawStage, raw)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
	}
	if err := j.extractor.Extract(ctx, ch.WhiskersPath(), raw); err != nil {
		return services.StageFailed("extract", ch.Label, err)
	}
	if j.checker != nil {
		if err := j.checker.Mark(ctx, runID, ch.Label, rawStage, raw); err != nil {
			return fmt.Errorf("record raw table completion: %w", err)
		}
	}
	return nil
}
