// Package media defines the channel descriptors, segments, and sessions that
// carry artifact paths through the pipeline. All derived paths are pure
// functions of a channel's base name.
package media
