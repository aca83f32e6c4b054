package mediainfo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// commandContext is replaced in tests to run a helper process.
var commandContext = exec.CommandContext

// Track type identifiers reported in the @type field.
const (
	TypeGeneral = "General"
	TypeVideo   = "Video"
	TypeAudio   = "Audio"
)

// Result is the decoded mediainfo report for one file.
type Result struct {
	Media struct {
		Ref    string  `json:"@ref"`
		Tracks []Track `json:"track"`
	} `json:"media"`
}

// Track is one entry of the mediainfo track list.
type Track struct {
	Type             string `json:"@type"`
	TypeOrder        string `json:"@typeorder"`
	StreamOrder      string `json:"StreamOrder"`
	Format           string `json:"Format"`
	FormatCommercial string `json:"Format_Commercial_IfAny"`
	FormatProfile    string `json:"Format_Profile"`
	CompressionMode  string `json:"Compression_Mode"`
	Channels         string `json:"Channels"`
	Language         string `json:"Language"`
	Title            string `json:"Title"`
	Duration         string `json:"Duration"`
	Width            string `json:"Width"`
	Height           string `json:"Height"`
}

// Inspect runs mediainfo against path and decodes its JSON report.
func Inspect(ctx context.Context, binary, path string) (Result, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "mediainfo"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("mediainfo inspect: empty path")
	}

	cmd := commandContext(ctx, binary, "--Output=JSON", path)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Result{}, fmt.Errorf("mediainfo inspect: %w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return Result{}, fmt.Errorf("mediainfo inspect: %w", err)
	}
	return Parse(output)
}

// Parse decodes a mediainfo JSON payload. mediainfo prints an empty document
// (or a media object without tracks) for files it cannot parse.
func Parse(data []byte) (Result, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return Result{}, errors.New("mediainfo parse: empty output")
	}
	var result Result
	if err := json.Unmarshal(data, &result); err != nil {
		return Result{}, fmt.Errorf("mediainfo parse: %w", err)
	}
	return result, nil
}

// Tracks returns the tracks of the given @type in report order.
func (r Result) Tracks(kind string) []Track {
	var out []Track
	for _, track := range r.Media.Tracks {
		if strings.EqualFold(track.Type, kind) {
			out = append(out, track)
		}
	}
	return out
}

// General returns the container-level track if present.
func (r Result) General() (Track, bool) {
	tracks := r.Tracks(TypeGeneral)
	if len(tracks) == 0 {
		return Track{}, false
	}
	return tracks[0], true
}

// ChannelCount parses the Channels field. Some formats report the core and
// extension layouts as "8 / 6"; the first value describes the full stream.
func (t Track) ChannelCount() int {
	return leadingInt(t.Channels)
}

// DurationSeconds parses the Duration field, reported in seconds.
func (t Track) DurationSeconds() float64 {
	value := strings.TrimSpace(t.Duration)
	if value == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || parsed < 0 {
		return 0
	}
	return parsed
}

// WidthPixels parses the Width field.
func (t Track) WidthPixels() int { return leadingInt(t.Width) }

// HeightPixels parses the Height field.
func (t Track) HeightPixels() int { return leadingInt(t.Height) }

func leadingInt(value string) int {
	value = strings.TrimSpace(value)
	if idx := strings.IndexAny(value, " /"); idx >= 0 {
		value = value[:idx]
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return n
}
