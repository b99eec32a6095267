package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
)

// Executor abstracts command execution for testability.
type Executor interface {
	// Run executes the command, streaming stderr lines to onOutput.
	Run(ctx context.Context, binary string, args []string, onOutput func(string)) error
	// Output executes the command and returns captured stdout.
	Output(ctx context.Context, binary string, args []string) ([]byte, error)
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

// Client wraps ffmpeg/ffprobe CLI interactions.
type Client struct {
	ffmpeg  string
	ffprobe string
	exec    Executor
}

// New constructs an ffmpeg client.
func New(ffmpegBinary, ffprobeBinary string, opts ...Option) (*Client, error) {
	ffmpegBinary = strings.TrimSpace(ffmpegBinary)
	ffprobeBinary = strings.TrimSpace(ffprobeBinary)
	if ffmpegBinary == "" {
		return nil, errors.New("ffmpeg binary required")
	}
	if ffprobeBinary == "" {
		return nil, errors.New("ffprobe binary required")
	}
	client := &Client{
		ffmpeg:  ffmpegBinary,
		ffprobe: ffprobeBinary,
		exec:    commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// partialPath inserts a .partial marker before the extension so a crashed run
// never leaves an output that looks complete.
func partialPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".partial" + ext
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onOutput func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", binary, err)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		scanner := bufio.NewScanner(stderr)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			if onOutput != nil {
				onOutput(scanner.Text())
			}
		}
	}()
	wg.Wait()
	return cmd.Wait()
}

func (commandExecutor) Output(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return nil, fmt.Errorf("%s: %w: %s", binary, err, detail)
		}
		return nil, fmt.Errorf("%s: %w", binary, err)
	}
	return stdout.Bytes(), nil
}
