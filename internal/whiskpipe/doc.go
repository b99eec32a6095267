// Package whiskpipe drives one channel through the external whisker
// analysis sequence as a linear state machine: trace, measure, classify,
// reclassify, then summarize. Every transition is checkpointed so an
// interrupted run restarts at the stage boundary it stopped on.
package whiskpipe
