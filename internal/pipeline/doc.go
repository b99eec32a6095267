// Package pipeline schedules per-channel analysis across a bounded worker
// pool and aggregates a result for every channel, failed batch or not. A
// filesystem lock serializes runs that share an output directory.
package pipeline
