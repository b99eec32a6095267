// Package ffmpeg wraps ffprobe metadata probing, raw grayscale frame I/O,
// and the timestamp-aligning re-encode. All output files are written through
// partial paths and promoted on success.
package ffmpeg
