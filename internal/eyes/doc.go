// Package eyes holds the per-frame eye-metric tables and the extractor
// adapter that measures eye areas on half-frames during the split pass.
package eyes
