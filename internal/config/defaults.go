package config

const (
	defaultInputDir          = "in"
	defaultOutputDir         = "out"
	defaultLogDir            = "~/.local/share/av1watch/logs"
	defaultStateDir          = "~/.local/share/av1watch"
	defaultSentinel          = "put_input_files_here"
	defaultProbeBackend      = ProbeBackendMediainfo
	defaultMediainfoBinary   = "mediainfo"
	defaultFFprobeBinary     = "ffprobe"
	defaultFFmpegBinary      = "ffmpeg"
	defaultProbeTimeout      = 60
	defaultCropSamples       = 5
	defaultCropFrames        = 3000
	defaultCropSampleTimeout = 300
	defaultEncoderBinary     = "av1an"
	defaultEncoderWorkers    = 12
	defaultExtraSplit        = 240
	defaultEncoderBackend    = "svt-av1"
	defaultConcat            = "mkvmerge"
	defaultChunkMethod       = "lsmash"
	defaultLegacyChunkMethod = "ffms2"
	defaultMaxAttempts       = 1
	defaultPresetVersion     = "2024.1"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Probe backend identifiers.
const (
	ProbeBackendMediainfo = "mediainfo"
	ProbeBackendFFprobe   = "ffprobe"
)

// DefaultEncoderPreset returns the SVT-AV1 parameter set used when the config
// file does not override it.
func DefaultEncoderPreset() EncoderPreset {
	return EncoderPreset{
		Version:                 defaultPresetVersion,
		Preset:                  4,
		CRF:                     20,
		Tune:                    0,
		Keyint:                  0,
		EnableVarianceBoost:     true,
		VarianceBoostStrength:   2,
		VarianceOctile:          6,
		FilmGrain:               5,
		FilmGrainDenoise:        false,
		LP:                      2,
		SCD:                     false,
		ColorPrimaries:          1,
		TransferCharacteristics: 1,
		MatrixCoefficients:      1,
		EnableQM:                true,
		QMMin:                   0,
		InputDepth:              10,
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			InputDir:  defaultInputDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			StateDir:  defaultStateDir,
		},
		Watch: Watch{
			Sentinel: defaultSentinel,
		},
		Probe: Probe{
			Backend:         defaultProbeBackend,
			MediainfoBinary: defaultMediainfoBinary,
			FFprobeBinary:   defaultFFprobeBinary,
			TimeoutSeconds:  defaultProbeTimeout,
		},
		Crop: Crop{
			Enabled:              true,
			Samples:              defaultCropSamples,
			Frames:               defaultCropFrames,
			SampleTimeoutSeconds: defaultCropSampleTimeout,
			FFmpegBinary:         defaultFFmpegBinary,
		},
		Encoder: Encoder{
			Binary:            defaultEncoderBinary,
			Workers:           defaultEncoderWorkers,
			ExtraSplit:        defaultExtraSplit,
			Backend:           defaultEncoderBackend,
			Concat:            defaultConcat,
			Resume:            true,
			ChunkMethod:       defaultChunkMethod,
			LegacyChunkMethod: defaultLegacyChunkMethod,
			LegacyFormats:     []string{"VC-1"},
			Verbose:           true,
			MaxAttempts:       defaultMaxAttempts,
			Preset:            DefaultEncoderPreset(),
		},
		History: History{
			Enabled: true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
