// Package join builds the per-channel summary table: the raw whisker table
// is extracted, filtered, checkpointed, and inner-joined with the eye-metric
// checkpoint on frame id.
package join
