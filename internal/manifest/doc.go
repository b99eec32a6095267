// Package manifest persists per-channel stage completions in SQLite so
// interrupted runs can resume without redoing finished work. Artifacts are
// fingerprinted (SHA256 and size) at completion; resume trusts an artifact
// only while its fingerprint still matches.
package manifest
