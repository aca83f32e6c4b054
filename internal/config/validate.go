package config

import (
	"errors"
	"fmt"
	"strings"
)

var validChunkMethods = map[string]struct{}{
	"lsmash":     {},
	"ffms2":      {},
	"dgdecnv":    {},
	"bestsource": {},
	"hybrid":     {},
	"select":     {},
	"segment":    {},
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateProbe(); err != nil {
		return err
	}
	if err := c.validateCrop(); err != nil {
		return err
	}
	if err := c.validateEncoder(); err != nil {
		return err
	}
	if err := c.validatePreset(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.InputDir) == "" {
		return errors.New("paths.input_dir must be set")
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	if c.Paths.InputDir == c.Paths.OutputDir {
		return errors.New("paths.output_dir must differ from paths.input_dir")
	}
	return nil
}

func (c *Config) validateProbe() error {
	switch c.Probe.Backend {
	case ProbeBackendMediainfo, ProbeBackendFFprobe:
	default:
		return fmt.Errorf("probe.backend: unsupported value %q (expected %q or %q)", c.Probe.Backend, ProbeBackendMediainfo, ProbeBackendFFprobe)
	}
	return nil
}

func (c *Config) validateCrop() error {
	if !c.Crop.Enabled {
		return nil
	}
	return ensurePositiveMap(map[string]int{
		"crop.samples":                c.Crop.Samples,
		"crop.frames":                 c.Crop.Frames,
		"crop.sample_timeout_seconds": c.Crop.SampleTimeoutSeconds,
	})
}

func (c *Config) validateEncoder() error {
	if err := ensurePositiveMap(map[string]int{
		"encoder.workers":      c.Encoder.Workers,
		"encoder.max_attempts": c.Encoder.MaxAttempts,
	}); err != nil {
		return err
	}
	if c.Encoder.ExtraSplit < 0 {
		return errors.New("encoder.extra_split must be >= 0")
	}
	if c.Encoder.PhotonNoise < 0 {
		return errors.New("encoder.photon_noise must be >= 0")
	}
	if _, ok := validChunkMethods[c.Encoder.ChunkMethod]; !ok {
		return fmt.Errorf("encoder.chunk_method: unsupported value %q", c.Encoder.ChunkMethod)
	}
	if _, ok := validChunkMethods[c.Encoder.LegacyChunkMethod]; !ok {
		return fmt.Errorf("encoder.legacy_chunk_method: unsupported value %q", c.Encoder.LegacyChunkMethod)
	}
	return nil
}

func (c *Config) validatePreset() error {
	p := c.Encoder.Preset
	if p.Preset < -1 || p.Preset > 13 {
		return errors.New("encoder.preset.preset must be between -1 and 13")
	}
	if p.CRF < 1 || p.CRF > 70 {
		return errors.New("encoder.preset.crf must be between 1 and 70")
	}
	if p.Tune < 0 || p.Tune > 2 {
		return errors.New("encoder.preset.tune must be between 0 and 2")
	}
	if p.Keyint < -2 {
		return errors.New("encoder.preset.keyint must be >= -2")
	}
	if p.EnableVarianceBoost {
		if p.VarianceBoostStrength < 1 || p.VarianceBoostStrength > 4 {
			return errors.New("encoder.preset.variance_boost_strength must be between 1 and 4")
		}
		if p.VarianceOctile < 1 || p.VarianceOctile > 8 {
			return errors.New("encoder.preset.variance_octile must be between 1 and 8")
		}
	}
	if p.FilmGrain < 0 || p.FilmGrain > 50 {
		return errors.New("encoder.preset.film_grain must be between 0 and 50")
	}
	if p.LP < 0 {
		return errors.New("encoder.preset.lp must be >= 0")
	}
	if p.QMMin < 0 || p.QMMin > 15 {
		return errors.New("encoder.preset.qm_min must be between 0 and 15")
	}
	if p.InputDepth != 8 && p.InputDepth != 10 {
		return errors.New("encoder.preset.input_depth must be 8 or 10")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
