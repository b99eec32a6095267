package whiskpipe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"whiskproc/internal/eyes"
	"whiskproc/internal/fileutil"
	"whiskproc/internal/logging"
	"whiskproc/internal/manifest"
	"whiskproc/internal/media"
	"whiskproc/internal/services"
)

// State is a channel's position in the whisker analysis sequence.
type State string

const (
	StateUnsplit      State = "unsplit"
	StateTraced       State = "traced"
	StateMeasured     State = "measured"
	StateClassified   State = "classified"
	StateReclassified State = "reclassified"
	StateSummarized   State = "summarized"
)

// Tools is the external toolchain surface the pipeline drives. The whisk
// client satisfies it.
type Tools interface {
	Trace(ctx context.Context, video, whiskers string) error
	Measure(ctx context.Context, side, whiskers, measurements string) error
	Classify(ctx context.Context, measurements, side string, pxPerMM float64, limit int) error
	Reclassify(ctx context.Context, measurements string, limit int) error
}

// Joiner produces the channel's summary table. It owns its own idempotency
// check.
type Joiner interface {
	Run(ctx context.Context, runID string, ch *media.Channel, eyeTable *eyes.Table) error
}

// Params configures a Pipeline.
type Params struct {
	Tools   Tools
	Joiner  Joiner
	Checker *manifest.Checker
	Logger  *slog.Logger
	PxPerMM float64
	// FrameLimit is handed to classify/reclassify; negative means all frames.
	FrameLimit int
}

// Pipeline advances one channel through trace, measure, classify, and
// reclassify, then triggers the joiner. Stages run strictly in order; any
// failure is terminal for the channel with no retry and no rollback.
type Pipeline struct {
	tools      Tools
	joiner     Joiner
	checker    *manifest.Checker
	logger     *slog.Logger
	pxPerMM    float64
	frameLimit int
}

// New validates params and builds a Pipeline.
func New(p Params) (*Pipeline, error) {
	if p.Tools == nil {
		return nil, errors.New("tools required")
	}
	if p.Joiner == nil {
		return nil, errors.New("joiner required")
	}
	if p.PxPerMM <= 0 {
		return nil, fmt.Errorf("px2mm must be positive, got %v", p.PxPerMM)
	}
	logger := p.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{
		tools:      p.Tools,
		joiner:     p.Joiner,
		checker:    p.Checker,
		logger:     logger,
		pxPerMM:    p.PxPerMM,
		frameLimit: p.FrameLimit,
	}, nil
}

// stage is one row of the state machine table.
type stage struct {
	name     string
	reaches  State
	artifact func(*media.Channel) string
	// inPlace stages rewrite an existing artifact, so resume requires a
	// manifest row rather than mere file existence.
	inPlace bool
	invoke  func(ctx context.Context, ch *media.Channel) error
}

func (p *Pipeline) stages() []stage {
	return []stage{
		{
			name:     "trace",
			reaches:  StateTraced,
			artifact: (*media.Channel).WhiskersPath,
			invoke: func(ctx context.Context, ch *media.Channel) error {
				return p.tools.Trace(ctx, ch.AlignedPath(), ch.WhiskersPath())
			},
		},
		{
			name:     "measure",
			reaches:  StateMeasured,
			artifact: (*media.Channel).MeasurementsPath,
			invoke: func(ctx context.Context, ch *media.Channel) error {
				return p.tools.Measure(ctx, string(ch.Side), ch.WhiskersPath(), ch.MeasurementsPath())
			},
		},
		{
			name:     "classify",
			reaches:  StateClassified,
			artifact: (*media.Channel).MeasurementsPath,
			inPlace:  true,
			invoke: func(ctx context.Context, ch *media.Channel) error {
				return p.tools.Classify(ctx, ch.MeasurementsPath(), string(ch.Side), p.pxPerMM, p.frameLimit)
			},
		},
		{
			name:     "reclassify",
			reaches:  StateReclassified,
			artifact: (*media.Channel).MeasurementsPath,
			inPlace:  true,
			invoke: func(ctx context.Context, ch *media.Channel) error {
				return p.tools.Reclassify(ctx, ch.MeasurementsPath(), p.frameLimit)
			},
		},
	}
}

// Run drives the channel from its current artifacts to StateSummarized. The
// returned state is the furthest one reached; on error it names where the
// machine stopped.
func (p *Pipeline) Run(ctx context.Context, runID string, ch *media.Channel, eyeTable *eyes.Table) (State, error) {
	state := StateUnsplit
	ctx = services.WithRunID(services.WithChannel(ctx, ch.Label), runID)

	for _, st := range p.stages() {
		if err := ctx.Err(); err != nil {
			return state, err
		}
		stageCtx := services.WithStage(ctx, st.name)
		log := logging.WithContext(stageCtx, p.logger)

		skip, err := p.skippable(stageCtx, st, ch)
		if err != nil {
			return state, err
		}
		if skip {
			log.Info("stage current, skipped")
			state = st.reaches
			continue
		}

		log.Info("stage starting")
		if err := st.invoke(stageCtx, ch); err != nil {
			return state, services.StageFailed(st.name, ch.Label, err)
		}
		if p.checker != nil {
			if err := p.checker.Mark(stageCtx, runID, ch.Label, st.name, st.artifact(ch)); err != nil {
				return state, fmt.Errorf("record %s completion: %w", st.name, err)
			}
			if st.inPlace {
				if err := p.refreshSharedTokens(stageCtx, runID, ch, st); err != nil {
					return state, err
				}
			}
		}
		state = st.reaches
		log.Info("stage complete")
	}

	// The toolchain reports success through its exit status alone; confirm
	// the artifacts it claims to have written actually exist.
	for _, artifact := range []string{ch.WhiskersPath(), ch.MeasurementsPath()} {
		if !fileutil.FileExists(artifact) {
			return state, services.ArtifactMissing("reclassify", ch.Label, artifact)
		}
	}

	if err := p.joiner.Run(ctx, runID, ch, eyeTable); err != nil {
		return state, err
	}
	return StateSummarized, nil
}

// refreshSharedTokens re-fingerprints every stage upstream of st that shares
// its artifact. An in-place stage rewrites the file it was handed, so the
// completion tokens recorded for earlier stages no longer match the bytes on
// disk; without the refresh a fully successful run could never be skipped on
// resume.
func (p *Pipeline) refreshSharedTokens(ctx context.Context, runID string, ch *media.Channel, st stage) error {
	path := st.artifact(ch)
	for _, prior := range p.stages() {
		if prior.name == st.name {
			return nil
		}
		if prior.artifact(ch) != path {
			continue
		}
		if err := p.checker.Mark(ctx, runID, ch.Label, prior.name, path); err != nil {
			return fmt.Errorf("refresh %s completion: %w", prior.name, err)
		}
	}
	return nil
}

func (p *Pipeline) skippable(ctx context.Context, st stage, ch *media.Channel) (bool, error) {
	if p.checker == nil {
		return false, nil
	}
	if st.inPlace {
		return p.checker.DoneStrict(ctx, ch.Label, st.name, st.artifact(ch))
	}
	return p.checker.Done(ctx, ch.Label, st.name, st.artifact(ch))
}
