package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"whiskproc/internal/eyes"
	"whiskproc/internal/media"
	"whiskproc/internal/services"
	"whiskproc/internal/whiskpipe"
)

type fakeAligner struct {
	mu          sync.Mutex
	calls       []string
	ctxChannels []string
	ctxRunIDs   []string
	err         error
	errOn       string
}

func (f *fakeAligner) Run(ctx context.Context, _ string, ch *media.Channel) error {
	channel, _ := services.ChannelFromContext(ctx)
	runID, _ := services.RunIDFromContext(ctx)
	f.mu.Lock()
	f.calls = append(f.calls, ch.Label)
	f.ctxChannels = append(f.ctxChannels, channel)
	f.ctxRunIDs = append(f.ctxRunIDs, runID)
	f.mu.Unlock()
	if f.err != nil && (f.errOn == "" || f.errOn == ch.Label) {
		return f.err
	}
	return nil
}

type fakeRunner struct {
	mu      sync.Mutex
	calls   []string
	errOn   string
	err     error
	block   time.Duration
	blockOn string
}

func (f *fakeRunner) Run(ctx context.Context, _ string, ch *media.Channel, _ *eyes.Table) (whiskpipe.State, error) {
	f.mu.Lock()
	f.calls = append(f.calls, ch.Label)
	f.mu.Unlock()
	if f.block > 0 && (f.blockOn == "" || f.blockOn == ch.Label) {
		select {
		case <-time.After(f.block):
		case <-ctx.Done():
			return whiskpipe.StateUnsplit, ctx.Err()
		}
	}
	if f.errOn == ch.Label {
		if f.err != nil {
			return whiskpipe.StateMeasured, f.err
		}
		return whiskpipe.StateMeasured, errors.New("boom")
	}
	return whiskpipe.StateSummarized, nil
}

func testSession(t *testing.T) *media.Session {
	t.Helper()
	dir := t.TempDir()
	left, err := media.NewChannel(filepath.Join(dir, "rec-left.avi"), media.SideLeft, 100)
	if err != nil {
		t.Fatalf("left channel: %v", err)
	}
	right, err := media.NewChannel(filepath.Join(dir, "rec-right.avi"), media.SideRight, 100)
	if err != nil {
		t.Fatalf("right channel: %v", err)
	}
	return &media.Session{Left: left, Right: right}
}

func TestRunAllChannelsSucceed(t *testing.T) {
	session := testSession(t)
	aligner := &fakeAligner{}
	runner := &fakeRunner{}

	sched, err := New(aligner, runner, 2, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	report, err := sched.Run(context.Background(), "run-1", session, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Failed() {
		t.Fatalf("report failed: %+v", report.Results)
	}
	if len(report.Results) != 2 {
		t.Fatalf("results = %d, want 2", len(report.Results))
	}
	for _, res := range report.Results {
		if res.State != whiskpipe.StateSummarized {
			t.Fatalf("channel %s state = %s", res.Channel, res.State)
		}
		if res.SummaryPath == "" {
			t.Fatalf("channel %s has no summary path", res.Channel)
		}
	}
}

func TestRunReportsEveryChannelOnFailure(t *testing.T) {
	session := testSession(t)
	aligner := &fakeAligner{}
	runner := &fakeRunner{errOn: "rec-left", err: services.StageFailed("classify", "rec-left", errors.New("exit status 1"))}

	sched, err := New(aligner, runner, 2, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	report, err := sched.Run(context.Background(), "run-1", session, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.Failed() {
		t.Fatal("report should record the failure")
	}
	if len(report.Results) != 2 {
		t.Fatalf("results = %d, want a row per channel", len(report.Results))
	}

	var left, right *ChannelResult
	for i := range report.Results {
		switch report.Results[i].Side {
		case media.SideLeft:
			left = &report.Results[i]
		case media.SideRight:
			right = &report.Results[i]
		}
	}
	if left == nil || right == nil {
		t.Fatal("missing a channel row")
	}
	if !errors.Is(left.Err, services.ErrExternalTool) {
		t.Fatalf("left error = %v", left.Err)
	}
	if !errors.Is(report.FirstError(), services.ErrExternalTool) {
		t.Fatalf("FirstError = %v", report.FirstError())
	}
}

func TestRunFailFastCancelsInFlightChannels(t *testing.T) {
	session := testSession(t)
	aligner := &fakeAligner{}
	// Left fails immediately; right blocks until canceled.
	runner := &fakeRunner{errOn: "rec-left", block: 5 * time.Second, blockOn: "rec-right"}

	sched, err := New(aligner, runner, 2, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	start := time.Now()
	report, err := sched.Run(context.Background(), "run-1", session, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("batch took %v, cancellation did not propagate", elapsed)
	}
	if !report.Failed() {
		t.Fatal("report should record the failure")
	}
}

// When the failing channel sorts after a canceled one, the aggregated error
// must still name the root cause, not the cancellation.
func TestFirstErrorPrefersRootCauseOverCancellation(t *testing.T) {
	session := testSession(t)
	aligner := &fakeAligner{}
	toolErr := services.StageFailed("classify", "rec-right", errors.New("exit status 1"))
	// Right fails immediately; left blocks until the abort cancels it.
	runner := &fakeRunner{errOn: "rec-right", err: toolErr, block: 5 * time.Second, blockOn: "rec-left"}

	sched, err := New(aligner, runner, 2, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	report, err := sched.Run(context.Background(), "run-1", session, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	first := report.FirstError()
	if errors.Is(first, context.Canceled) {
		t.Fatalf("FirstError = %v, want the stage failure", first)
	}
	if !errors.Is(first, services.ErrExternalTool) {
		t.Fatalf("FirstError = %v", first)
	}
}

func TestFirstErrorFallsBackToCancellation(t *testing.T) {
	report := &RunReport{Results: []ChannelResult{
		{Channel: "rec-left"},
		{Channel: "rec-right", Err: context.Canceled},
	}}
	if !errors.Is(report.FirstError(), context.Canceled) {
		t.Fatalf("FirstError = %v", report.FirstError())
	}
}

func TestRunAttachesContextFields(t *testing.T) {
	session := testSession(t)
	aligner := &fakeAligner{}
	runner := &fakeRunner{}

	sched, err := New(aligner, runner, 2, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := sched.Run(context.Background(), "run-9", session, nil); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(aligner.ctxChannels) != 2 {
		t.Fatalf("aligner saw %d contexts, want 2", len(aligner.ctxChannels))
	}
	for i, label := range aligner.calls {
		if aligner.ctxChannels[i] != label {
			t.Fatalf("call %d: ctx channel = %q, want %q", i, aligner.ctxChannels[i], label)
		}
		if aligner.ctxRunIDs[i] != "run-9" {
			t.Fatalf("call %d: ctx run id = %q", i, aligner.ctxRunIDs[i])
		}
	}
}

func TestRunSingleWorkerStillCoversAllChannels(t *testing.T) {
	session := testSession(t)
	aligner := &fakeAligner{}
	runner := &fakeRunner{}

	sched, err := New(aligner, runner, 1, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	report, err := sched.Run(context.Background(), "run-1", session, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(runner.calls) != 2 {
		t.Fatalf("runner calls = %v, want both channels", runner.calls)
	}
	if report.Failed() {
		t.Fatalf("unexpected failure: %+v", report.Results)
	}
}

func TestRunAlignFailureShortCircuitsChannel(t *testing.T) {
	session := testSession(t)
	aligner := &fakeAligner{err: services.StageFailed("align", "rec-left", errors.New("exit status 1")), errOn: "rec-left"}
	runner := &fakeRunner{}

	sched, err := New(aligner, runner, 2, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	report, err := sched.Run(context.Background(), "run-1", session, nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, res := range report.Results {
		if res.Side == media.SideLeft {
			if !errors.Is(res.Err, services.ErrExternalTool) {
				t.Fatalf("left error = %v", res.Err)
			}
			if res.State != whiskpipe.StateUnsplit {
				t.Fatalf("left state = %s, want %s", res.State, whiskpipe.StateUnsplit)
			}
		}
	}
}

func TestAcquireLockIsExclusive(t *testing.T) {
	dir := t.TempDir()

	release, err := AcquireLock(dir)
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}

	if _, err := AcquireLock(dir); err == nil {
		t.Fatal("second lock acquisition should fail")
	}

	release()
	release2, err := AcquireLock(dir)
	if err != nil {
		t.Fatalf("reacquire after release: %v", err)
	}
	release2()
}
