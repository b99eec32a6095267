package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"whiskproc/internal/services"
)

// AlignSpec describes the timestamp-normalizing re-encode.
type AlignSpec struct {
	Codec        string
	Framerate    int
	QualityScale int
}

// Align re-encodes src into dst at a fixed frame rate so downstream whisker
// tools see uniform frame timing. The output is written to a partial path and
// renamed only after ffmpeg exits cleanly, so dst existing implies dst is
// complete.
func (c *Client) Align(ctx context.Context, src, dst string, spec AlignSpec) error {
	partial := partialPath(dst)
	args := []string{
		"-v", "error",
		"-y",
		"-i", src,
		"-codec:v", spec.Codec,
		"-r", strconv.Itoa(spec.Framerate),
		"-qscale:v", strconv.Itoa(spec.QualityScale),
		"-codec:a", "copy",
		partial,
	}

	runErr := c.exec.Run(ctx, c.ffmpeg, args, nil)
	if runErr != nil {
		_ = os.Remove(partial)
		return services.Wrap(services.ErrExternalTool, "align", "", fmt.Sprintf("re-encode %s", src), runErr)
	}
	if err := os.Rename(partial, dst); err != nil {
		_ = os.Remove(partial)
		return fmt.Errorf("promote aligned output: %w", err)
	}
	return nil
}
