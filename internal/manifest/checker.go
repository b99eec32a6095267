package manifest

import (
	"context"
	"fmt"

	"whiskproc/internal/fileutil"
)

// Checker decides whether a stage can be skipped on resume. A stage is
// skippable only when its artifact exists on disk and the manifest either has
// no record of it or the recorded digest still matches the file. A digest
// mismatch means the artifact was modified outside a run and must be rebuilt.
type Checker struct {
	store  *Store
	resume bool
}

// NewChecker wires a checker over the manifest store. With resume disabled
// every stage reruns regardless of what is on disk.
func NewChecker(store *Store, resume bool) *Checker {
	return &Checker{store: store, resume: resume}
}

// Done reports whether (channel, stage) already produced a trustworthy
// artifact at path.
func (c *Checker) Done(ctx context.Context, channel, stage, path string) (bool, error) {
	if c == nil || !c.resume {
		return false, nil
	}
	if !fileutil.FileExists(path) {
		return false, nil
	}
	entry, err := c.store.Lookup(ctx, channel, stage)
	if err != nil {
		return false, err
	}
	if entry == nil {
		// Artifact from a run before the manifest existed; trust it.
		return true, nil
	}
	sum, size, err := fileutil.HashFile(path)
	if err != nil {
		return false, fmt.Errorf("verify %s: %w", path, err)
	}
	return sum == entry.ArtifactSHA256 && size == entry.ArtifactSize, nil
}

// DoneStrict is Done for stages that mutate an artifact in place: the
// artifact existing is not evidence the stage ran, so a manifest row is
// required.
func (c *Checker) DoneStrict(ctx context.Context, channel, stage, path string) (bool, error) {
	if c == nil || !c.resume {
		return false, nil
	}
	if !fileutil.FileExists(path) {
		return false, nil
	}
	entry, err := c.store.Lookup(ctx, channel, stage)
	if err != nil {
		return false, err
	}
	if entry == nil {
		return false, nil
	}
	sum, size, err := fileutil.HashFile(path)
	if err != nil {
		return false, fmt.Errorf("verify %s: %w", path, err)
	}
	return sum == entry.ArtifactSHA256 && size == entry.ArtifactSize, nil
}

// Mark records (channel, stage) as complete, fingerprinting the artifact so
// later runs can detect tampering.
func (c *Checker) Mark(ctx context.Context, runID, channel, stage, path string) error {
	if c == nil {
		return nil
	}
	sum, size, err := fileutil.HashFile(path)
	if err != nil {
		return fmt.Errorf("fingerprint %s: %w", path, err)
	}
	return c.store.Record(ctx, Entry{
		RunID:          runID,
		Channel:        channel,
		Stage:          stage,
		ArtifactPath:   path,
		ArtifactSHA256: sum,
		ArtifactSize:   size,
	})
}

// Forget drops all records for a channel.
func (c *Checker) Forget(ctx context.Context, channel string) error {
	if c == nil {
		return nil
	}
	return c.store.Forget(ctx, channel)
}
