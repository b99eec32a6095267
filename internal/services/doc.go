// Package services defines the shared error taxonomy and context plumbing for
// the external tools the pipeline drives. Tool-specific clients live in
// subpackages (ffmpeg, whisk).
package services
