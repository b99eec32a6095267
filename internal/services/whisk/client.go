package whisk

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"whiskproc/internal/services"
)

// Executor abstracts command execution for testability.
type Executor interface {
	// Run executes the command, streaming combined output lines to onOutput.
	Run(ctx context.Context, binary string, args []string, onOutput func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// WithOutputHandler routes tool output lines, typically into a logger.
func WithOutputHandler(fn func(string)) Option {
	return func(c *Client) {
		c.onOutput = fn
	}
}

// Binaries names the whisker-tracking executables.
type Binaries struct {
	Trace      string
	Measure    string
	Classify   string
	Reclassify string
	Extract    string
}

// Client drives the whisker tracking toolchain over a single channel video.
type Client struct {
	bin      Binaries
	exec     Executor
	onOutput func(string)
}

// New constructs a whisk client. All binaries must be named.
func New(bin Binaries, opts ...Option) (*Client, error) {
	for _, pair := range []struct{ name, path string }{
		{"trace", bin.Trace},
		{"measure", bin.Measure},
		{"classify", bin.Classify},
		{"reclassify", bin.Reclassify},
		{"extract", bin.Extract},
	} {
		if strings.TrimSpace(pair.path) == "" {
			return nil, fmt.Errorf("%s binary required", pair.name)
		}
	}
	client := &Client{bin: bin, exec: commandExecutor{}}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Trace detects whisker shapes in a channel video and writes the raw
// whiskers file.
func (c *Client) Trace(ctx context.Context, video, whiskers string) error {
	args := []string{video, whiskers}
	if err := c.exec.Run(ctx, c.bin.Trace, args, c.onOutput); err != nil {
		return services.Wrap(services.ErrExternalTool, "trace", "", fmt.Sprintf("trace %s", video), err)
	}
	return nil
}

// Measure converts traced shapes into per-whisker measurements, oriented by
// the face side the camera was on.
func (c *Client) Measure(ctx context.Context, side, whiskers, measurements string) error {
	args := []string{"--face", side, whiskers, measurements}
	if err := c.exec.Run(ctx, c.bin.Measure, args, c.onOutput); err != nil {
		return services.Wrap(services.ErrExternalTool, "measure", "", fmt.Sprintf("measure %s", whiskers), err)
	}
	return nil
}

// Classify labels measured segments as whisker or noise. The measurements
// file is updated in place. pxPerMM converts pixel lengths to millimeters;
// limit caps the whisker count, with a negative value meaning no cap.
func (c *Client) Classify(ctx context.Context, measurements, side string, pxPerMM float64, limit int) error {
	args := []string{
		measurements, measurements, side,
		"--px2mm", strconv.FormatFloat(pxPerMM, 'g', -1, 64),
		"-n", strconv.Itoa(limit),
	}
	if err := c.exec.Run(ctx, c.bin.Classify, args, c.onOutput); err != nil {
		return services.Wrap(services.ErrExternalTool, "classify", "", fmt.Sprintf("classify %s", measurements), err)
	}
	return nil
}

// Reclassify refines classification using temporal continuity across frames.
// The measurements file is updated in place.
func (c *Client) Reclassify(ctx context.Context, measurements string, limit int) error {
	args := []string{
		measurements, measurements,
		"-n", strconv.Itoa(limit),
	}
	if err := c.exec.Run(ctx, c.bin.Reclassify, args, c.onOutput); err != nil {
		return services.Wrap(services.ErrExternalTool, "reclassify", "", fmt.Sprintf("reclassify %s", measurements), err)
	}
	return nil
}

// Extract converts a reclassified whiskers file into the raw per-frame CSV
// table the joiner reads.
func (c *Client) Extract(ctx context.Context, whiskers, rawCSV string) error {
	args := []string{"--input", whiskers, "-o", rawCSV}
	if err := c.exec.Run(ctx, c.bin.Extract, args, c.onOutput); err != nil {
		return services.Wrap(services.ErrExternalTool, "extract", "", fmt.Sprintf("extract %s", whiskers), err)
	}
	return nil
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onOutput func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", binary, err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stdout)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			if onOutput != nil {
				onOutput(scanner.Text())
			}
		}
	}()
	wg.Wait()
	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%s exited with status %d", binary, exitErr.ExitCode())
		}
		return err
	}
	return nil
}
