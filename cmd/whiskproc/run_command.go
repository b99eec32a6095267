package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"whiskproc/internal/align"
	"whiskproc/internal/config"
	"whiskproc/internal/deps"
	"whiskproc/internal/eyes"
	"whiskproc/internal/join"
	"whiskproc/internal/logging"
	"whiskproc/internal/manifest"
	"whiskproc/internal/media"
	"whiskproc/internal/pipeline"
	"whiskproc/internal/report"
	"whiskproc/internal/services"
	"whiskproc/internal/services/ffmpeg"
	"whiskproc/internal/services/whisk"
	"whiskproc/internal/splitter"
	"whiskproc/internal/whiskpipe"
)

func newRunCommand(cmdCtx *commandContext) *cobra.Command {
	var (
		inputFlag   string
		outputFlag  string
		cleanFlag   bool
		verboseFlag bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Process one recording end to end",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}
			return runPipeline(cmd, cfg, inputFlag, outputFlag, cleanFlag, verboseFlag)
		},
	}

	cmd.Flags().StringVarP(&inputFlag, "input", "i", "", "Source recording to process")
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Directory for artifacts (default: alongside the input)")
	cmd.Flags().BoolVar(&cleanFlag, "clean", false, "Recompute every stage, overwriting existing artifacts")
	cmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable debug logging")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runPipeline(cmd *cobra.Command, cfg *config.Config, input, output string, clean, verbose bool) error {
	ctx := cmd.Context()

	input, err := config.ExpandPath(input)
	if err != nil {
		return err
	}
	info, err := os.Stat(input)
	if err != nil || info.IsDir() {
		return fmt.Errorf("input recording %s not found", input)
	}

	outDir, err := resolveOutputDir(cfg, input, output)
	if err != nil {
		return err
	}

	logLevel := cfg.Logging.Level
	if verbose {
		logLevel = "debug"
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	logger, err := logging.New(logging.Options{
		Level:       logLevel,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", filepath.Join(cfg.Paths.LogDir, "whiskproc.log")},
	})
	if err != nil {
		return err
	}

	statuses := deps.CheckBinaries(deps.Requirements(cfg))
	if missing := deps.MissingRequired(statuses); len(missing) > 0 {
		fmt.Fprint(cmd.OutOrStdout(), report.RenderDeps(statuses, report.Colorize(os.Stdout)))
		return fmt.Errorf("missing required tools: %s", strings.Join(missing, ", "))
	}

	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)

	release, err := pipeline.AcquireLock(outDir)
	if err != nil {
		return err
	}
	defer release()

	store, err := manifest.Open(filepath.Join(outDir, "whiskproc-manifest.db"))
	if err != nil {
		return err
	}
	defer store.Close()
	checker := manifest.NewChecker(store, cfg.Workflow.Resume && !clean)

	ffmpegClient, err := ffmpeg.New(cfg.Tools.FFmpeg, cfg.Tools.FFprobe)
	if err != nil {
		return err
	}
	toolLogger := logging.NewComponentLogger(logger, "whisk")
	whiskClient, err := whisk.New(whisk.Binaries{
		Trace:      cfg.TraceBinary(),
		Measure:    cfg.MeasureBinary(),
		Classify:   cfg.ClassifyBinary(),
		Reclassify: cfg.ReclassifyBinary(),
		Extract:    cfg.ExtractBinary(),
	}, whisk.WithOutputHandler(func(line string) {
		toolLogger.Debug(line)
	}))
	if err != nil {
		return err
	}

	split, err := splitter.New(splitter.Params{
		Media:      splitter.NewMedia(ffmpegClient),
		Extractor:  eyes.ThresholdExtractor{Threshold: uint8(cfg.Analysis.EyeThreshold)},
		Checker:    checker,
		Logger:     logging.NewComponentLogger(logger, "splitter"),
		Framerate:  cfg.Camera.Framerate,
		Codec:      cfg.Align.Codec,
		FrameLimit: cfg.Analysis.FrameLimit,
	})
	if err != nil {
		return err
	}

	aligner, err := align.New(ffmpegClient, checker,
		logging.NewComponentLogger(logger, "align"),
		ffmpeg.AlignSpec{
			Codec:        cfg.Align.Codec,
			Framerate:    cfg.Camera.Framerate,
			QualityScale: cfg.Align.QualityScale,
		})
	if err != nil {
		return err
	}

	joiner, err := join.New(whiskClient, nil, checker, logging.NewComponentLogger(logger, "join"))
	if err != nil {
		return err
	}

	pipe, err := whiskpipe.New(whiskpipe.Params{
		Tools:      whiskClient,
		Joiner:     joiner,
		Checker:    checker,
		Logger:     logging.NewComponentLogger(logger, "whiskpipe"),
		PxPerMM:    cfg.Analysis.PxPerMM,
		FrameLimit: cfg.Analysis.FrameLimit,
	})
	if err != nil {
		return err
	}

	sched, err := pipeline.New(aligner, pipe, cfg.Workflow.Workers,
		logging.NewComponentLogger(logger, "scheduler"))
	if err != nil {
		return err
	}

	logging.WithContext(ctx, logger).Info("run starting",
		logging.String("input", input),
		logging.String("output", outDir),
		logging.Bool("clean", clean))

	result, err := split.Split(ctx, runID, input, outDir)
	if err != nil {
		return err
	}

	eyeTables := map[media.Side]*eyes.Table{
		media.SideLeft:  result.LeftEyes,
		media.SideRight: result.RightEyes,
	}
	runReport, err := sched.Run(ctx, runID, result.Session, eyeTables)
	if err != nil {
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), report.RenderRun(runReport, report.Colorize(os.Stdout)))
	if runReport.Failed() {
		return runReport.FirstError()
	}
	return nil
}

// resolveOutputDir defaults to the input's directory and confirms the
// destination is writable before any stage starts.
func resolveOutputDir(cfg *config.Config, input, flagValue string) (string, error) {
	outDir := strings.TrimSpace(flagValue)
	if outDir == "" {
		outDir = cfg.Paths.OutputDir
	}
	if outDir == "" {
		outDir = filepath.Dir(input)
	}
	outDir, err := config.ExpandPath(outDir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	probe, err := os.CreateTemp(outDir, ".whiskproc-probe-*")
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return "", fmt.Errorf("output directory %s is not writable", outDir)
		}
		return "", fmt.Errorf("probe output directory: %w", err)
	}
	name := probe.Name()
	_ = probe.Close()
	_ = os.Remove(name)
	return outDir, nil
}
