// Package whisk drives the external whisker tracking toolchain: trace,
// measure, classify, and reclassify. Each stage is a subprocess invocation;
// failures surface as ErrExternalTool with the stage name attached.
package whisk
