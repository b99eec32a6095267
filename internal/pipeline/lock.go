package pipeline

import (
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

// lockFileName sits in the output directory so two runs over the same
// recording cannot interleave their artifact writes.
const lockFileName = "whiskproc.lock"

// AcquireLock takes the per-output-directory run lock without blocking.
// The returned release func is safe to call once.
func AcquireLock(outDir string) (func(), error) {
	lock := flock.New(filepath.Join(outDir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("another run is already processing %s", outDir)
	}
	return func() { _ = lock.Unlock() }, nil
}
