package testsupport

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

const stubFrameSize = 256

// WriteRecording materializes a stand-in video artifact: a RIFF-style header
// followed by one block of deterministic pixel filler per frame. The payload
// varies with the frame count and position, so recordings of different
// lengths never share a manifest fingerprint.
func WriteRecording(t testing.TB, path string, frames int) {
	t.Helper()

	if frames <= 0 {
		frames = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}

	buf := make([]byte, 0, 12+frames*stubFrameSize)
	buf = append(buf, "RIFF"...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(frames*stubFrameSize+4))
	buf = append(buf, "AVI "...)
	for frame := 0; frame < frames; frame++ {
		for px := 0; px < stubFrameSize; px++ {
			buf = append(buf, byte(frame*31+px))
		}
	}

	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
