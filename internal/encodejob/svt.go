package encodejob

import (
	"strconv"
	"strings"

	"av1watch/internal/config"
)

// SVTParams renders the preset record as the raw SVT-AV1 option string av1an
// forwards with -v. Flag order is fixed so identical presets render identically.
func SVTParams(p config.EncoderPreset) string {
	flags := []struct {
		name  string
		value string
	}{
		{"--preset", strconv.Itoa(p.Preset)},
		{"--crf", strconv.Itoa(p.CRF)},
		{"--tune", strconv.Itoa(p.Tune)},
		{"--keyint", strconv.Itoa(p.Keyint)},
		{"--enable-variance-boost", boolFlag(p.EnableVarianceBoost)},
		{"--variance-boost-strength", strconv.Itoa(p.VarianceBoostStrength)},
		{"--variance-octile", strconv.Itoa(p.VarianceOctile)},
		{"--film-grain", strconv.Itoa(p.FilmGrain)},
		{"--film-grain-denoise", boolFlag(p.FilmGrainDenoise)},
		{"--lp", strconv.Itoa(p.LP)},
		{"--scd", boolFlag(p.SCD)},
		{"--color-primaries", strconv.Itoa(p.ColorPrimaries)},
		{"--transfer-characteristics", strconv.Itoa(p.TransferCharacteristics)},
		{"--matrix-coefficients", strconv.Itoa(p.MatrixCoefficients)},
		{"--enable-qm", boolFlag(p.EnableQM)},
		{"--qm-min", strconv.Itoa(p.QMMin)},
		{"--input-depth", strconv.Itoa(p.InputDepth)},
	}
	parts := make([]string, 0, len(flags)*2)
	for _, flag := range flags {
		parts = append(parts, flag.name, flag.value)
	}
	return strings.Join(parts, " ")
}

func boolFlag(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
