package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the watched and produced directories.
type Paths struct {
	InputDir  string `toml:"input_dir"`
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
	StateDir  string `toml:"state_dir"`
}

// Watch controls how new input files are discovered.
type Watch struct {
	// Sentinel is a placeholder file kept in the input directory that is never queued.
	Sentinel string `toml:"sentinel"`
	// SettleSeconds delays enqueueing a newly created file until its size stops
	// changing for this many seconds. Zero enqueues immediately.
	SettleSeconds int `toml:"settle_seconds"`
}

// Probe selects the container metadata backend.
type Probe struct {
	Backend         string `toml:"backend"`
	MediainfoBinary string `toml:"mediainfo_binary"`
	FFprobeBinary   string `toml:"ffprobe_binary"`
	TimeoutSeconds  int    `toml:"timeout_seconds"`
}

// Crop contains the sampled crop detection settings.
type Crop struct {
	Enabled              bool   `toml:"enabled"`
	Samples              int    `toml:"samples"`
	Frames               int    `toml:"frames"`
	SampleTimeoutSeconds int    `toml:"sample_timeout_seconds"`
	FFmpegBinary         string `toml:"ffmpeg_binary"`
}

// EncoderPreset is the versioned SVT-AV1 parameter set passed through av1an to
// the frame-level encoder. Every field maps to exactly one SVT-AV1 flag.
type EncoderPreset struct {
	// Version labels the parameter set so logs and history identify which
	// preset produced an output.
	Version string `toml:"preset_version"`
	// Preset is the speed/efficiency tradeoff (0 slowest .. 13 fastest).
	Preset int `toml:"preset"`
	// CRF is the constant rate factor; lower is higher quality.
	CRF int `toml:"crf"`
	// Tune selects the psychovisual tuning (0 VQ, 1 PSNR, 2 SSIM).
	Tune int `toml:"tune"`
	// Keyint is the keyframe interval in frames; 0 lets av1an scene detection decide.
	Keyint int `toml:"keyint"`
	// EnableVarianceBoost raises quality in low-contrast areas.
	EnableVarianceBoost bool `toml:"enable_variance_boost"`
	// VarianceBoostStrength scales the variance boost (1-4).
	VarianceBoostStrength int `toml:"variance_boost_strength"`
	// VarianceOctile picks which block variance octile drives the boost (1-8).
	VarianceOctile int `toml:"variance_octile"`
	// FilmGrain is the synthesized film-grain strength (0 disables).
	FilmGrain int `toml:"film_grain"`
	// FilmGrainDenoise applies denoising before grain estimation.
	FilmGrainDenoise bool `toml:"film_grain_denoise"`
	// LP is the SVT-AV1 level of parallelism per chunk worker.
	LP int `toml:"lp"`
	// SCD toggles SVT-AV1's own scene change detection (av1an splits scenes already).
	SCD bool `toml:"scd"`
	// ColorPrimaries, TransferCharacteristics and MatrixCoefficients tag the
	// output colour metadata (1 = BT.709).
	ColorPrimaries          int `toml:"color_primaries"`
	TransferCharacteristics int `toml:"transfer_characteristics"`
	MatrixCoefficients      int `toml:"matrix_coefficients"`
	// EnableQM enables quantisation matrices; QMMin is their minimum level.
	EnableQM bool `toml:"enable_qm"`
	QMMin    int  `toml:"qm_min"`
	// InputDepth is the bit depth fed to the encoder.
	InputDepth int `toml:"input_depth"`
}

// Encoder contains the av1an invocation contract.
type Encoder struct {
	Binary            string        `toml:"binary"`
	Workers           int           `toml:"workers"`
	ExtraSplit        int           `toml:"extra_split"`
	Backend           string        `toml:"encoder"`
	Concat            string        `toml:"concat"`
	Resume            bool          `toml:"resume"`
	ChunkMethod       string        `toml:"chunk_method"`
	LegacyChunkMethod string        `toml:"legacy_chunk_method"`
	LegacyFormats     []string      `toml:"legacy_formats"`
	Verbose           bool          `toml:"verbose"`
	PhotonNoise       int           `toml:"photon_noise"`
	RetryOnFailure    bool          `toml:"retry_on_failure"`
	MaxAttempts       int           `toml:"max_attempts"`
	Preset            EncoderPreset `toml:"preset"`
}

// History controls the job transition ledger.
type History struct {
	Enabled bool `toml:"enabled"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for av1watch.
//
// Configuration sections by subsystem:
//   - Paths: input, output, log and state directories
//   - Watch: sentinel file and settle delay for new files
//   - Probe: mediainfo/ffprobe backend selection
//   - Crop: sampled cropdetect settings
//   - Encoder: av1an flags and the SVT-AV1 preset record
//   - History: sqlite transition ledger
//   - Logging: log format and level
type Config struct {
	Paths   Paths   `toml:"paths"`
	Watch   Watch   `toml:"watch"`
	Probe   Probe   `toml:"probe"`
	Crop    Crop    `toml:"crop"`
	Encoder Encoder `toml:"encoder"`
	History History `toml:"history"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/av1watch/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("av1watch.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
// The input directory is not created: a missing input directory is a
// configuration mistake the preflight check reports.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.LogDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// HistoryPath returns the sqlite database path for the job history ledger.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LockPath returns the single-instance lock file path.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "av1watch.lock")
}

// LogPath returns the append-only log file path.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "av1watch.log")
}

// IsLegacyFormat reports whether the video format requires the legacy chunk method.
func (c *Config) IsLegacyFormat(format string) bool {
	format = strings.TrimSpace(format)
	for _, legacy := range c.Encoder.LegacyFormats {
		if strings.EqualFold(legacy, format) {
			return true
		}
	}
	return false
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
