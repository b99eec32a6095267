package testsupport

import (
	"path/filepath"
	"testing"

	"whiskproc/internal/config"
	"whiskproc/internal/manifest"
)

// MustOpenManifest opens a manifest store in the config's output directory
// and closes it when the test finishes.
func MustOpenManifest(t testing.TB, cfg *config.Config) *manifest.Store {
	t.Helper()

	store, err := manifest.Open(filepath.Join(cfg.Paths.OutputDir, "whiskproc-manifest.db"))
	if err != nil {
		t.Fatalf("open manifest store: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
