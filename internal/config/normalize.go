package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeWatch()
	c.normalizeProbe()
	c.normalizeCrop()
	c.normalizeEncoder()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("AV1WATCH_INPUT_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.InputDir = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("AV1WATCH_OUTPUT_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.OutputDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}

	var err error
	if c.Paths.InputDir, err = expandPath(strings.TrimSpace(c.Paths.InputDir)); err != nil {
		return fmt.Errorf("paths.input_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeWatch() {
	c.Watch.Sentinel = strings.TrimSpace(c.Watch.Sentinel)
	if c.Watch.SettleSeconds < 0 {
		c.Watch.SettleSeconds = 0
	}
}

func (c *Config) normalizeProbe() {
	c.Probe.Backend = strings.ToLower(strings.TrimSpace(c.Probe.Backend))
	if c.Probe.Backend == "" {
		c.Probe.Backend = defaultProbeBackend
	}
	c.Probe.MediainfoBinary = strings.TrimSpace(c.Probe.MediainfoBinary)
	if c.Probe.MediainfoBinary == "" {
		c.Probe.MediainfoBinary = defaultMediainfoBinary
	}
	c.Probe.FFprobeBinary = strings.TrimSpace(c.Probe.FFprobeBinary)
	if c.Probe.FFprobeBinary == "" {
		c.Probe.FFprobeBinary = defaultFFprobeBinary
	}
	if c.Probe.TimeoutSeconds <= 0 {
		c.Probe.TimeoutSeconds = defaultProbeTimeout
	}
}

func (c *Config) normalizeCrop() {
	c.Crop.FFmpegBinary = strings.TrimSpace(c.Crop.FFmpegBinary)
	if c.Crop.FFmpegBinary == "" {
		c.Crop.FFmpegBinary = defaultFFmpegBinary
	}
	if c.Crop.Samples == 0 {
		c.Crop.Samples = defaultCropSamples
	}
	if c.Crop.Frames == 0 {
		c.Crop.Frames = defaultCropFrames
	}
	if c.Crop.SampleTimeoutSeconds == 0 {
		c.Crop.SampleTimeoutSeconds = defaultCropSampleTimeout
	}
}

func (c *Config) normalizeEncoder() {
	c.Encoder.Binary = strings.TrimSpace(c.Encoder.Binary)
	if c.Encoder.Binary == "" {
		c.Encoder.Binary = defaultEncoderBinary
	}
	c.Encoder.Backend = strings.ToLower(strings.TrimSpace(c.Encoder.Backend))
	if c.Encoder.Backend == "" {
		c.Encoder.Backend = defaultEncoderBackend
	}
	c.Encoder.Concat = strings.ToLower(strings.TrimSpace(c.Encoder.Concat))
	if c.Encoder.Concat == "" {
		c.Encoder.Concat = defaultConcat
	}
	c.Encoder.ChunkMethod = strings.ToLower(strings.TrimSpace(c.Encoder.ChunkMethod))
	if c.Encoder.ChunkMethod == "" {
		c.Encoder.ChunkMethod = defaultChunkMethod
	}
	c.Encoder.LegacyChunkMethod = strings.ToLower(strings.TrimSpace(c.Encoder.LegacyChunkMethod))
	if c.Encoder.LegacyChunkMethod == "" {
		c.Encoder.LegacyChunkMethod = defaultLegacyChunkMethod
	}
	formats := make([]string, 0, len(c.Encoder.LegacyFormats))
	seen := make(map[string]struct{}, len(c.Encoder.LegacyFormats))
	for _, format := range c.Encoder.LegacyFormats {
		trimmed := strings.TrimSpace(format)
		if trimmed == "" {
			continue
		}
		key := strings.ToUpper(trimmed)
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		formats = append(formats, trimmed)
	}
	c.Encoder.LegacyFormats = formats
	if c.Encoder.MaxAttempts <= 0 {
		c.Encoder.MaxAttempts = defaultMaxAttempts
	}
	c.Encoder.Preset.Version = strings.TrimSpace(c.Encoder.Preset.Version)
	if c.Encoder.Preset.Version == "" {
		c.Encoder.Preset.Version = defaultPresetVersion
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
