package config

const (
	defaultLogDir       = "~/.local/share/whiskproc/logs"
	defaultFramerate    = 240
	defaultAlignCodec   = "mpeg4"
	defaultQualityScale = 2
	defaultFFmpeg       = "ffmpeg"
	defaultFFprobe      = "ffprobe"
	defaultTrace        = "trace"
	defaultMeasure      = "measure"
	defaultClassify     = "classify"
	defaultReclassify   = "reclassify"
	defaultExtract      = "whisk_extract"
	defaultPxPerMM      = 0.04
	defaultFrameLimit   = -1
	defaultEyeThreshold = 60
	defaultLogFormat    = "console"
	defaultLogLevel     = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir: defaultLogDir,
		},
		Camera: Camera{
			Framerate: defaultFramerate,
		},
		Tools: Tools{
			FFmpeg:     defaultFFmpeg,
			FFprobe:    defaultFFprobe,
			Trace:      defaultTrace,
			Measure:    defaultMeasure,
			Classify:   defaultClassify,
			Reclassify: defaultReclassify,
			Extract:    defaultExtract,
		},
		Align: Align{
			Codec:        defaultAlignCodec,
			QualityScale: defaultQualityScale,
		},
		Analysis: Analysis{
			PxPerMM:      defaultPxPerMM,
			FrameLimit:   defaultFrameLimit,
			EyeThreshold: defaultEyeThreshold,
		},
		Workflow: Workflow{
			Workers: 0,
			Resume:  true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
