// Package logging configures slog with console and JSON handlers and provides
// the attribute helpers and context plumbing shared by the pipeline packages.
package logging
