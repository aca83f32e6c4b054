package probe

import (
	"strings"

	"golang.org/x/text/language"
)

// normalizeLanguage canonicalizes a language tag to BCP 47 ("eng" -> "en").
// Undetermined tags become empty; tags x/text cannot parse are kept verbatim.
func normalizeLanguage(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	tag, err := language.Parse(raw)
	if err != nil {
		return raw
	}
	if tag == language.Und {
		return ""
	}
	return tag.String()
}

// losslessCodec reports whether a codec or format name identifies a lossless
// audio encoding. It covers both ffprobe codec names and mediainfo formats.
func losslessCodec(name, profile string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	profile = strings.ToLower(profile)
	switch {
	case strings.HasPrefix(name, "pcm"):
		return true
	case name == "truehd", name == "mlp", name == "mlp fba", name == "flac", name == "alac":
		return true
	case name == "dts":
		return strings.Contains(profile, "hd ma") || strings.Contains(profile, "master audio")
	}
	return false
}

// parseCompressionMode maps mediainfo's Compression_Mode ("Lossless",
// "Lossless / Lossy") onto the enum. The first value describes the full
// stream; the second is the core of a hybrid format.
func parseCompressionMode(raw string) (CompressionMode, bool) {
	first := strings.TrimSpace(strings.SplitN(raw, "/", 2)[0])
	switch strings.ToLower(first) {
	case "lossless":
		return CompressionLossless, true
	case "lossy":
		return CompressionLossy, true
	default:
		return CompressionLossy, false
	}
}

var ffprobeVideoFormats = map[string]string{
	"vc1":        "VC-1",
	"h264":       "AVC",
	"hevc":       "HEVC",
	"mpeg2video": "MPEG Video",
	"mpeg4":      "MPEG-4 Visual",
	"av1":        "AV1",
	"vp9":        "VP9",
}

// videoFormatName maps ffprobe codec names to the mediainfo format names used
// by encoder.legacy_formats.
func videoFormatName(codec string) string {
	if name, ok := ffprobeVideoFormats[strings.ToLower(codec)]; ok {
		return name
	}
	return codec
}
