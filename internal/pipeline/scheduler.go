package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"whiskproc/internal/eyes"
	"whiskproc/internal/logging"
	"whiskproc/internal/media"
	"whiskproc/internal/services"
	"whiskproc/internal/whiskpipe"
)

// Aligner normalizes a channel video's timing before analysis.
type Aligner interface {
	Run(ctx context.Context, runID string, ch *media.Channel) error
}

// ChannelRunner drives a channel through the whisker stages and the join.
type ChannelRunner interface {
	Run(ctx context.Context, runID string, ch *media.Channel, eyeTable *eyes.Table) (whiskpipe.State, error)
}

// ChannelResult is the outcome for one channel, reported regardless of how
// the rest of the batch fared.
type ChannelResult struct {
	Channel     string
	Side        media.Side
	State       whiskpipe.State
	SummaryPath string
	Duration    time.Duration
	Err         error
}

// RunReport aggregates every channel outcome for one run.
type RunReport struct {
	RunID   string
	Results []ChannelResult
}

// Failed reports whether any channel ended in error.
func (r *RunReport) Failed() bool {
	for _, res := range r.Results {
		if res.Err != nil {
			return true
		}
	}
	return false
}

// FirstError returns the first channel error in channel order, preferring a
// root-cause failure over the cancellations of channels the fail-fast abort
// tore down.
func (r *RunReport) FirstError() error {
	var canceled error
	for _, res := range r.Results {
		switch {
		case res.Err == nil:
		case errors.Is(res.Err, context.Canceled) || errors.Is(res.Err, context.DeadlineExceeded):
			if canceled == nil {
				canceled = res.Err
			}
		default:
			return res.Err
		}
	}
	return canceled
}

// DefaultWorkers sizes the pool to the logical CPU count minus one, always
// at least one.
func DefaultWorkers() int {
	if n := runtime.NumCPU() - 1; n > 1 {
		return n
	}
	return 1
}

// Scheduler fans the session's channels into a fixed worker pool. The first
// fatal error cancels channels still in flight, but every channel still gets
// a result row so the caller can see partial success.
type Scheduler struct {
	aligner Aligner
	runner  ChannelRunner
	workers int
	logger  *slog.Logger
}

// New builds a Scheduler. workers <= 0 selects DefaultWorkers.
func New(aligner Aligner, runner ChannelRunner, workers int, logger *slog.Logger) (*Scheduler, error) {
	if aligner == nil {
		return nil, errors.New("aligner required")
	}
	if runner == nil {
		return nil, errors.New("channel runner required")
	}
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Scheduler{aligner: aligner, runner: runner, workers: workers, logger: logger}, nil
}

type channelWork struct {
	index   int
	channel *media.Channel
	eyes    *eyes.Table
}

// Run processes every channel of the session. Eye tables are matched to
// channels by side; a missing table makes the runner load the checkpoint
// from disk.
func (s *Scheduler) Run(ctx context.Context, runID string, session *media.Session, eyeTables map[media.Side]*eyes.Table) (*RunReport, error) {
	if err := session.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	channels := session.Channels()
	results := make([]ChannelResult, len(channels))
	work := make(chan channelWork, len(channels))
	for i, ch := range channels {
		work <- channelWork{index: i, channel: ch, eyes: eyeTables[ch.Side]}
	}
	close(work)

	workers := s.workers
	if workers > len(channels) {
		workers = len(channels)
	}

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range work {
				results[item.index] = s.runChannel(ctx, runID, item)
				if results[item.index].Err != nil {
					cancel()
				}
			}
		}()
	}
	wg.Wait()

	report := &RunReport{RunID: runID, Results: results}
	return report, nil
}

func (s *Scheduler) runChannel(ctx context.Context, runID string, item channelWork) ChannelResult {
	ch := item.channel
	result := ChannelResult{
		Channel:     ch.Label,
		Side:        ch.Side,
		State:       whiskpipe.StateUnsplit,
		SummaryPath: ch.SummaryPath(),
	}
	started := time.Now()
	defer func() { result.Duration = time.Since(started) }()

	ctx = services.WithRunID(services.WithChannel(ctx, ch.Label), runID)
	log := logging.WithContext(ctx, s.logger)

	if err := ctx.Err(); err != nil {
		result.Err = err
		log.Warn("channel skipped, batch aborted",
			logging.String(logging.FieldEventType, "channel_skipped"))
		return result
	}

	log.Info("channel started", logging.String(logging.FieldEventType, "channel_started"))
	if err := s.aligner.Run(ctx, runID, ch); err != nil {
		result.Err = err
		log.Error("alignment failed",
			logging.String(logging.FieldEventType, "channel_failed"),
			logging.Error(err))
		return result
	}

	state, err := s.runner.Run(ctx, runID, ch, item.eyes)
	result.State = state
	if err != nil {
		result.Err = err
		log.Error("channel failed",
			logging.String(logging.FieldEventType, "channel_failed"),
			logging.String(logging.FieldStage, string(state)),
			logging.Error(err))
		return result
	}

	log.Info("channel complete",
		logging.String(logging.FieldEventType, "channel_complete"),
		logging.Duration("elapsed", time.Since(started)))
	return result
}
