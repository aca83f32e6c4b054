package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"av1watch/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantState := filepath.Join(tempHome, ".local", "share", "av1watch")
	if cfg.Paths.StateDir != wantState {
		t.Fatalf("unexpected state dir: got %q want %q", cfg.Paths.StateDir, wantState)
	}
	if !filepath.IsAbs(cfg.Paths.InputDir) || filepath.Base(cfg.Paths.InputDir) != "in" {
		t.Fatalf("expected absolute input dir ending in 'in', got %q", cfg.Paths.InputDir)
	}
	if cfg.Probe.Backend != config.ProbeBackendMediainfo {
		t.Fatalf("unexpected probe backend: %q", cfg.Probe.Backend)
	}
	if cfg.Encoder.Workers != 12 || cfg.Encoder.ExtraSplit != 240 {
		t.Fatalf("unexpected encoder defaults: workers=%d extra_split=%d", cfg.Encoder.Workers, cfg.Encoder.ExtraSplit)
	}
	if cfg.Encoder.RetryOnFailure {
		t.Fatal("expected retry on failure disabled by default")
	}
	if cfg.Encoder.Preset != config.DefaultEncoderPreset() {
		t.Fatalf("unexpected preset: %+v", cfg.Encoder.Preset)
	}
	if cfg.HistoryPath() != filepath.Join(wantState, "history.db") {
		t.Fatalf("unexpected history path: %q", cfg.HistoryPath())
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "av1watch.toml")

	type payload struct {
		Paths struct {
			InputDir  string `toml:"input_dir"`
			OutputDir string `toml:"output_dir"`
		} `toml:"paths"`
		Probe struct {
			Backend string `toml:"backend"`
		} `toml:"probe"`
		Encoder struct {
			ChunkMethod   string   `toml:"chunk_method"`
			LegacyFormats []string `toml:"legacy_formats"`
			Preset        struct {
				CRF int `toml:"crf"`
			} `toml:"preset"`
		} `toml:"encoder"`
		Logging struct {
			Format string `toml:"format"`
		} `toml:"logging"`
	}
	custom := payload{}
	custom.Paths.InputDir = filepath.Join(tempDir, "incoming")
	custom.Paths.OutputDir = filepath.Join(tempDir, "encoded")
	custom.Probe.Backend = " FFprobe "
	custom.Encoder.ChunkMethod = "BestSource"
	custom.Encoder.LegacyFormats = []string{"VC-1", "vc-1", " ", "MPEG-2"}
	custom.Encoder.Preset.CRF = 28
	custom.Logging.Format = "JSON"

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.Paths.InputDir != custom.Paths.InputDir {
		t.Fatalf("unexpected input dir: %q", cfg.Paths.InputDir)
	}
	if cfg.Probe.Backend != config.ProbeBackendFFprobe {
		t.Fatalf("expected ffprobe backend, got %q", cfg.Probe.Backend)
	}
	if cfg.Encoder.ChunkMethod != "bestsource" {
		t.Fatalf("expected lowercased chunk method, got %q", cfg.Encoder.ChunkMethod)
	}
	if len(cfg.Encoder.LegacyFormats) != 2 {
		t.Fatalf("expected deduplicated legacy formats, got %v", cfg.Encoder.LegacyFormats)
	}
	if cfg.Encoder.Preset.CRF != 28 {
		t.Fatalf("expected crf 28, got %d", cfg.Encoder.Preset.CRF)
	}
	if cfg.Encoder.Preset.Preset != 4 {
		t.Fatalf("expected untouched preset fields to keep defaults, got %d", cfg.Encoder.Preset.Preset)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected json log format, got %q", cfg.Logging.Format)
	}
	if !cfg.IsLegacyFormat("vc-1") || cfg.IsLegacyFormat("AVC") {
		t.Fatal("unexpected legacy format classification")
	}
}

func TestEnvVarOverridesConfigFileForDirectories(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "av1watch.toml")

	type payload struct {
		Paths struct {
			InputDir  string `toml:"input_dir"`
			OutputDir string `toml:"output_dir"`
		} `toml:"paths"`
	}
	custom := payload{}
	custom.Paths.InputDir = filepath.Join(tempDir, "file-in")
	custom.Paths.OutputDir = filepath.Join(tempDir, "file-out")

	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	t.Setenv("AV1WATCH_INPUT_DIR", filepath.Join(tempDir, "env-in"))
	t.Setenv("AV1WATCH_OUTPUT_DIR", filepath.Join(tempDir, "env-out"))

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.InputDir != filepath.Join(tempDir, "env-in") {
		t.Errorf("expected input dir from env, got %q", cfg.Paths.InputDir)
	}
	if cfg.Paths.OutputDir != filepath.Join(tempDir, "env-out") {
		t.Errorf("expected output dir from env, got %q", cfg.Paths.OutputDir)
	}
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "broken.toml")
	if err := os.WriteFile(configPath, []byte("[paths\ninput_dir = "), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil || !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("expected parse error, got %v", err)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "put_input_files_here") {
		t.Fatalf("sample config missing sentinel: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if cfg.Encoder.Preset != config.DefaultEncoderPreset() {
		t.Fatalf("sample preset drifted from defaults: %+v", cfg.Encoder.Preset)
	}
	if cfg.Encoder.Workers != config.Default().Encoder.Workers {
		t.Fatalf("sample workers drifted from defaults: %d", cfg.Encoder.Workers)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"probe backend", func(c *config.Config) { c.Probe.Backend = "exiftool" }},
		{"same input and output", func(c *config.Config) { c.Paths.OutputDir = c.Paths.InputDir }},
		{"crop samples", func(c *config.Config) { c.Crop.Samples = 0 }},
		{"workers", func(c *config.Config) { c.Encoder.Workers = 0 }},
		{"extra split", func(c *config.Config) { c.Encoder.ExtraSplit = -1 }},
		{"chunk method", func(c *config.Config) { c.Encoder.ChunkMethod = "vapoursynth" }},
		{"crf", func(c *config.Config) { c.Encoder.Preset.CRF = 0 }},
		{"preset", func(c *config.Config) { c.Encoder.Preset.Preset = 14 }},
		{"input depth", func(c *config.Config) { c.Encoder.Preset.InputDepth = 12 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error for %s", tc.name)
			}
		})
	}

	cfg := config.Default()
	cfg.Crop.Enabled = false
	cfg.Crop.Samples = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected disabled crop to skip sample validation, got %v", err)
	}
}
