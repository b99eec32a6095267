package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"strconv"
)

// FrameReader streams grayscale raw frames from a recording in decode order.
type FrameReader struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	width  int
	height int
	buf    []byte
	closed bool
}

// NewFrameReader starts an ffmpeg rawvideo pipe over src. Frames are
// delivered strictly in decode order; the caller must drain with Next until
// io.EOF and then Close.
func (c *Client) NewFrameReader(ctx context.Context, src string, width, height int) (*FrameReader, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid frame dimensions %dx%d", width, height)
	}
	args := []string{
		"-v", "error",
		"-i", src,
		"-f", "rawvideo",
		"-pix_fmt", "gray",
		"-",
	}
	cmd := exec.CommandContext(ctx, c.ffmpeg, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", c.ffmpeg, err)
	}
	return &FrameReader{
		cmd:    cmd,
		stdout: stdout,
		width:  width,
		height: height,
		buf:    make([]byte, width*height),
	}, nil
}

// Next returns the next frame, or io.EOF when the stream is exhausted. The
// returned image is only valid until the following Next call.
func (r *FrameReader) Next() (*image.Gray, error) {
	if r.closed {
		return nil, errors.New("frame reader closed")
	}
	if _, err := io.ReadFull(r.stdout, r.buf); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("truncated frame: %w", err)
		}
		return nil, fmt.Errorf("read frame: %w", err)
	}
	return &image.Gray{
		Pix:    r.buf,
		Stride: r.width,
		Rect:   image.Rect(0, 0, r.width, r.height),
	}, nil
}

// Close drains the pipe and reaps the decoder process.
func (r *FrameReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	_, _ = io.Copy(io.Discard, r.stdout)
	_ = r.stdout.Close()
	return r.cmd.Wait()
}

// FrameWriter encodes grayscale raw frames into a channel video. Output goes
// to a partial path and is promoted on Close, so the final path existing
// implies the video is complete.
type FrameWriter struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	dst     string
	partial string
	width   int
	height  int
	frames  int
	closed  bool
}

// WriterSpec describes the encoded channel video.
type WriterSpec struct {
	Width     int
	Height    int
	Framerate int
	Codec     string
}

// NewFrameWriter starts an ffmpeg encoder fed through stdin.
func (c *Client) NewFrameWriter(ctx context.Context, dst string, spec WriterSpec) (*FrameWriter, error) {
	if spec.Width <= 0 || spec.Height <= 0 {
		return nil, fmt.Errorf("invalid frame dimensions %dx%d", spec.Width, spec.Height)
	}
	if spec.Framerate <= 0 {
		return nil, fmt.Errorf("invalid framerate %d", spec.Framerate)
	}
	partial := partialPath(dst)
	args := []string{
		"-v", "error",
		"-y",
		"-f", "rawvideo",
		"-pix_fmt", "gray",
		"-s", fmt.Sprintf("%dx%d", spec.Width, spec.Height),
		"-r", strconv.Itoa(spec.Framerate),
		"-i", "-",
		"-codec:v", spec.Codec,
		partial,
	}
	cmd := exec.CommandContext(ctx, c.ffmpeg, args...) //nolint:gosec
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", c.ffmpeg, err)
	}
	return &FrameWriter{
		cmd:     cmd,
		stdin:   stdin,
		dst:     dst,
		partial: partial,
		width:   spec.Width,
		height:  spec.Height,
	}, nil
}

// WriteFrame appends one frame to the channel video.
func (w *FrameWriter) WriteFrame(frame *image.Gray) error {
	if w.closed {
		return errors.New("frame writer closed")
	}
	if frame == nil {
		return errors.New("nil frame")
	}
	bounds := frame.Bounds()
	if bounds.Dx() != w.width || bounds.Dy() != w.height {
		return fmt.Errorf("frame is %dx%d, writer expects %dx%d", bounds.Dx(), bounds.Dy(), w.width, w.height)
	}
	// Rawvideo wants packed rows; honor the stride in case of sub-images.
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		start := frame.PixOffset(bounds.Min.X, y)
		if _, err := w.stdin.Write(frame.Pix[start : start+w.width]); err != nil {
			return fmt.Errorf("write frame %d: %w", w.frames, err)
		}
	}
	w.frames++
	return nil
}

// Frames returns how many frames have been written.
func (w *FrameWriter) Frames() int { return w.frames }

// Close finalizes the encode and promotes the partial file. On any failure
// the partial file is removed so it can never be mistaken for a finished
// channel video.
func (w *FrameWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.stdin.Close(); err != nil {
		_ = w.cmd.Wait()
		_ = os.Remove(w.partial)
		return fmt.Errorf("close encoder input: %w", err)
	}
	if err := w.cmd.Wait(); err != nil {
		_ = os.Remove(w.partial)
		return fmt.Errorf("encoder exit: %w", err)
	}
	if err := os.Rename(w.partial, w.dst); err != nil {
		_ = os.Remove(w.partial)
		return fmt.Errorf("promote channel video: %w", err)
	}
	return nil
}

// Abort tears the encode down and removes the partial output.
func (w *FrameWriter) Abort() {
	if w.closed {
		return
	}
	w.closed = true
	_ = w.stdin.Close()
	_ = w.cmd.Wait()
	_ = os.Remove(w.partial)
}
