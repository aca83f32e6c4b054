package probe

import (
	"context"
	"fmt"
	"strings"
)

// CompressionMode tags whether an audio track's encoding is reversible.
type CompressionMode int

const (
	CompressionLossy CompressionMode = iota
	CompressionLossless
)

func (m CompressionMode) String() string {
	switch m {
	case CompressionLossless:
		return "lossless"
	default:
		return "lossy"
	}
}

// AudioTrack describes one audio track.
type AudioTrack struct {
	// Index is the zero-based position in the container's audio track list.
	Index          int
	Language       string
	Compression    CompressionMode
	Channels       int
	CommercialName string
	Format         string
	Title          string
}

// VideoTrack describes the first video track of a file.
type VideoTrack struct {
	Format          string
	DurationSeconds float64
	Width           int
	Height          int
}

// Result is the outcome of probing one file.
type Result struct {
	Path    string
	Backend string
	Audio   []AudioTrack
	Video   VideoTrack
}

// Prober inspects a media file.
type Prober interface {
	Probe(ctx context.Context, path string) (Result, error)
}

// Describe renders a one-line summary used in logs.
func (t AudioTrack) Describe() string {
	parts := []string{fmt.Sprintf("#%d", t.Index)}
	if t.CommercialName != "" {
		parts = append(parts, t.CommercialName)
	} else if t.Format != "" {
		parts = append(parts, t.Format)
	}
	parts = append(parts, fmt.Sprintf("%dch", t.Channels), t.Compression.String())
	if t.Language != "" {
		parts = append(parts, t.Language)
	}
	return strings.Join(parts, " ")
}
