package splitter

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	xdraw "golang.org/x/image/draw"

	"whiskproc/internal/eyes"
	"whiskproc/internal/fileutil"
	"whiskproc/internal/logging"
	"whiskproc/internal/manifest"
	"whiskproc/internal/media"
	"whiskproc/internal/services"
	"whiskproc/internal/services/ffmpeg"
)

const stageName = "split"

// FrameSource yields decoded grayscale frames in order.
type FrameSource interface {
	Next() (*image.Gray, error)
	Close() error
}

// FrameSink consumes frames into an encoded channel video. Close promotes the
// output; Abort discards it.
type FrameSink interface {
	WriteFrame(*image.Gray) error
	Close() error
	Abort()
}

// Media abstracts the ffmpeg surface the splitter needs so tests can run
// without real video files.
type Media interface {
	Probe(ctx context.Context, path string) (ffmpeg.ProbeResult, error)
	OpenSource(ctx context.Context, path string, width, height int) (FrameSource, error)
	OpenSink(ctx context.Context, dst string, spec ffmpeg.WriterSpec) (FrameSink, error)
}

type clientMedia struct {
	client *ffmpeg.Client
}

// NewMedia adapts the ffmpeg client to the splitter's Media interface.
func NewMedia(client *ffmpeg.Client) Media {
	return clientMedia{client: client}
}

func (m clientMedia) Probe(ctx context.Context, path string) (ffmpeg.ProbeResult, error) {
	return m.client.Probe(ctx, path)
}

func (m clientMedia) OpenSource(ctx context.Context, path string, width, height int) (FrameSource, error) {
	return m.client.NewFrameReader(ctx, path, width, height)
}

func (m clientMedia) OpenSink(ctx context.Context, dst string, spec ffmpeg.WriterSpec) (FrameSink, error) {
	return m.client.NewFrameWriter(ctx, dst, spec)
}

// Params configures a Splitter.
type Params struct {
	Media     Media
	Extractor eyes.Extractor
	Checker   *manifest.Checker
	Logger    *slog.Logger
	Framerate int
	Codec     string
	// FrameLimit caps processed frames; negative means the whole recording.
	FrameLimit int
}

// Splitter performs the single sequential pass over the source recording:
// each frame is cut into left and right halves, both halves are measured for
// eye area, intensities are inverted, and the halves are appended to the two
// channel videos.
type Splitter struct {
	media      Media
	extractor  eyes.Extractor
	checker    *manifest.Checker
	logger     *slog.Logger
	framerate  int
	codec      string
	frameLimit int
}

// New validates params and builds a Splitter.
func New(p Params) (*Splitter, error) {
	if p.Media == nil {
		return nil, errors.New("media required")
	}
	if p.Extractor == nil {
		return nil, errors.New("eye extractor required")
	}
	if p.Framerate <= 0 {
		return nil, fmt.Errorf("framerate must be > 0, got %d", p.Framerate)
	}
	if strings.TrimSpace(p.Codec) == "" {
		return nil, errors.New("codec required")
	}
	logger := p.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Splitter{
		media:      p.Media,
		extractor:  p.Extractor,
		checker:    p.Checker,
		logger:     logger,
		framerate:  p.Framerate,
		codec:      p.Codec,
		frameLimit: p.FrameLimit,
	}, nil
}

// Result carries the split outputs.
type Result struct {
	Session   *media.Session
	LeftEyes  *eyes.Table
	RightEyes *eyes.Table
	Resumed   bool
}

// Split processes src into outDir. On resume, existing channel videos and eye
// checkpoints verified by the manifest are loaded instead of recomputed.
func (s *Splitter) Split(ctx context.Context, runID, src, outDir string) (*Result, error) {
	ext := filepath.Ext(src)
	label := strings.TrimSuffix(filepath.Base(src), ext)
	leftVideo := filepath.Join(outDir, label+"-left"+ext)
	rightVideo := filepath.Join(outDir, label+"-right"+ext)

	ctx = services.WithStage(ctx, stageName)
	log := logging.WithContext(ctx, s.logger)

	if result, ok, err := s.tryResume(ctx, leftVideo, rightVideo); err != nil {
		return nil, err
	} else if ok {
		log.Info("split resumed from checkpoints",
			logging.String("left", leftVideo),
			logging.String("right", rightVideo))
		return result, nil
	}

	probe, err := s.media.Probe(ctx, src)
	if err != nil {
		return nil, err
	}
	if probe.Width%2 != 0 {
		return nil, services.Wrap(services.ErrValidation, stageName, "",
			fmt.Sprintf("source width %d cannot be halved", probe.Width), nil)
	}
	halfWidth := probe.Width / 2

	source, err := s.media.OpenSource(ctx, src, probe.Width, probe.Height)
	if err != nil {
		return nil, services.Wrap(services.ErrSourceUnreadable, stageName, "", fmt.Sprintf("open %s", src), err)
	}
	defer func() { _ = source.Close() }()

	sinkSpec := ffmpeg.WriterSpec{
		Width:     halfWidth,
		Height:    probe.Height,
		Framerate: s.framerate,
		Codec:     s.codec,
	}
	leftSink, err := s.media.OpenSink(ctx, leftVideo, sinkSpec)
	if err != nil {
		return nil, services.StageFailed(stageName, label+"-left", err)
	}
	rightSink, err := s.media.OpenSink(ctx, rightVideo, sinkSpec)
	if err != nil {
		leftSink.Abort()
		return nil, services.StageFailed(stageName, label+"-right", err)
	}

	leftTable := eyes.NewTable()
	rightTable := eyes.NewTable()
	leftHalf := image.NewGray(image.Rect(0, 0, halfWidth, probe.Height))
	rightHalf := image.NewGray(image.Rect(0, 0, halfWidth, probe.Height))

	abort := func() {
		leftSink.Abort()
		rightSink.Abort()
	}

	frames := 0
	for {
		if s.frameLimit >= 0 && frames >= s.frameLimit {
			break
		}
		if err := ctx.Err(); err != nil {
			abort()
			return nil, err
		}

		frame, err := source.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			abort()
			return nil, services.Wrap(services.ErrSourceUnreadable, stageName, "",
				fmt.Sprintf("decode frame %d", frames), err)
		}

		xdraw.Copy(leftHalf, image.Point{}, frame, image.Rect(0, 0, halfWidth, probe.Height), xdraw.Src, nil)
		xdraw.Copy(rightHalf, image.Point{}, frame, image.Rect(halfWidth, 0, probe.Width, probe.Height), xdraw.Src, nil)

		for _, side := range []struct {
			half  *image.Gray
			table *eyes.Table
			sink  FrameSink
			name  string
		}{
			{leftHalf, leftTable, leftSink, label + "-left"},
			{rightHalf, rightTable, rightSink, label + "-right"},
		} {
			total, eye, err := s.extractor.Measure(side.half)
			if err != nil {
				abort()
				return nil, services.Wrap(services.ErrValidation, stageName, side.name,
					fmt.Sprintf("eye measurement on frame %d", frames), err)
			}
			if err := side.table.Append(eyes.Record{FrameID: frames, TotalArea: total, EyeArea: eye}); err != nil {
				abort()
				return nil, services.Wrap(services.ErrValidation, stageName, side.name, "eye table", err)
			}
			invert(side.half)
			if err := side.sink.WriteFrame(side.half); err != nil {
				abort()
				return nil, services.StageFailed(stageName, side.name, err)
			}
		}
		frames++
	}

	if err := leftSink.Close(); err != nil {
		rightSink.Abort()
		return nil, services.StageFailed(stageName, label+"-left", err)
	}
	if err := rightSink.Close(); err != nil {
		return nil, services.StageFailed(stageName, label+"-right", err)
	}

	left, err := media.NewChannel(leftVideo, media.SideLeft, frames)
	if err != nil {
		return nil, err
	}
	right, err := media.NewChannel(rightVideo, media.SideRight, frames)
	if err != nil {
		return nil, err
	}
	session := &media.Session{Left: left, Right: right}
	if err := session.Validate(); err != nil {
		return nil, services.Wrap(services.ErrValidation, stageName, "", "session", err)
	}

	if err := leftTable.WriteFile(left.EyeCheckpointPath()); err != nil {
		return nil, fmt.Errorf("write left eye checkpoint: %w", err)
	}
	if err := rightTable.WriteFile(right.EyeCheckpointPath()); err != nil {
		return nil, fmt.Errorf("write right eye checkpoint: %w", err)
	}

	if s.checker != nil {
		for _, ch := range session.Channels() {
			if err := s.checker.Mark(ctx, runID, ch.Label, stageName, ch.VideoPath()); err != nil {
				return nil, fmt.Errorf("record split completion: %w", err)
			}
			if err := s.checker.Mark(ctx, runID, ch.Label, "eye-checkpoint", ch.EyeCheckpointPath()); err != nil {
				return nil, fmt.Errorf("record eye checkpoint completion: %w", err)
			}
		}
	}

	log.Info("split complete",
		logging.Int("frames", frames),
		logging.String("left", leftVideo),
		logging.String("right", rightVideo))

	return &Result{Session: session, LeftEyes: leftTable, RightEyes: rightTable}, nil
}

// tryResume loads prior split outputs when every artifact checks out.
func (s *Splitter) tryResume(ctx context.Context, leftVideo, rightVideo string) (*Result, bool, error) {
	if s.checker == nil {
		return nil, false, nil
	}

	leftProbe, err := media.NewChannel(leftVideo, media.SideLeft, 0)
	if err != nil {
		return nil, false, err
	}
	rightProbe, err := media.NewChannel(rightVideo, media.SideRight, 0)
	if err != nil {
		return nil, false, err
	}

	for _, probe := range []*media.Channel{leftProbe, rightProbe} {
		done, err := s.checker.Done(ctx, probe.Label, stageName, probe.VideoPath())
		if err != nil {
			return nil, false, err
		}
		if !done || !fileutil.FileExists(probe.EyeCheckpointPath()) {
			return nil, false, nil
		}
	}

	leftTable, err := eyes.ReadFile(leftProbe.EyeCheckpointPath())
	if err != nil {
		return nil, false, fmt.Errorf("load left eye checkpoint: %w", err)
	}
	rightTable, err := eyes.ReadFile(rightProbe.EyeCheckpointPath())
	if err != nil {
		return nil, false, fmt.Errorf("load right eye checkpoint: %w", err)
	}

	left, err := media.NewChannel(leftVideo, media.SideLeft, leftTable.Len())
	if err != nil {
		return nil, false, err
	}
	right, err := media.NewChannel(rightVideo, media.SideRight, rightTable.Len())
	if err != nil {
		return nil, false, err
	}
	session := &media.Session{Left: left, Right: right}
	if err := session.Validate(); err != nil {
		return nil, false, services.Wrap(services.ErrValidation, stageName, "", "resumed session", err)
	}

	return &Result{
		Session:   session,
		LeftEyes:  leftTable,
		RightEyes: rightTable,
		Resumed:   true,
	}, true, nil
}

// invert flips pixel intensities in place. The whisker tracker expects dark
// whiskers on a light background, the opposite of the camera output.
func invert(img *image.Gray) {
	for i, v := range img.Pix {
		img.Pix[i] = 255 - v
	}
}
