package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"av1watch/internal/logging"
	"av1watch/internal/probe"
	"av1watch/internal/services"
)

// Action is the per-track directive.
type Action int

const (
	ActionCopy Action = iota
	ActionTranscode
)

func (a Action) String() string {
	if a == ActionTranscode {
		return "transcode"
	}
	return "copy"
}

// Decision is the outcome for one track.
type Decision struct {
	Action      Action
	Index       int
	BitrateKbps int
	Reason      string
	Track       probe.AudioTrack
}

// ErrUnsupportedChannelLayout matches UnsupportedChannelLayoutError.
var ErrUnsupportedChannelLayout = errors.New("unsupported channel layout")

// UnsupportedChannelLayoutError reports a lossless track whose channel count
// has no Opus bitrate assigned.
type UnsupportedChannelLayoutError struct {
	Index    int
	Channels int
}

func (e *UnsupportedChannelLayoutError) Error() string {
	return fmt.Sprintf("audio track %d: bitrate for %d channels is not implemented", e.Index, e.Channels)
}

func (e *UnsupportedChannelLayoutError) Unwrap() []error {
	return []error{ErrUnsupportedChannelLayout, services.ErrConfiguration}
}

var opusBitrates = map[int]int{
	2: 128,
	6: 256,
	7: 320,
	8: 450,
}

// BitrateFor returns the Opus bitrate in kbps for a channel count.
func BitrateFor(channels int) (int, bool) {
	kbps, ok := opusBitrates[channels]
	return kbps, ok
}

// IsObjectAudio reports whether the commercial name identifies Atmos.
func IsObjectAudio(commercialName string) bool {
	return strings.Contains(strings.ToLower(commercialName), "atmos")
}

// Decide applies the policy to every track in order. The first unsupported
// lossless layout aborts the whole file.
func Decide(tracks []probe.AudioTrack) ([]Decision, error) {
	decisions := make([]Decision, 0, len(tracks))
	for _, track := range tracks {
		decision, err := decideTrack(track)
		if err != nil {
			return nil, err
		}
		decisions = append(decisions, decision)
	}
	return decisions, nil
}

func decideTrack(track probe.AudioTrack) (Decision, error) {
	decision := Decision{Action: ActionCopy, Index: track.Index, Track: track}
	switch {
	case IsObjectAudio(track.CommercialName):
		decision.Reason = "object audio metadata would be lost"
	case track.Compression == probe.CompressionLossless:
		kbps, ok := BitrateFor(track.Channels)
		if !ok {
			return Decision{}, &UnsupportedChannelLayoutError{Index: track.Index, Channels: track.Channels}
		}
		decision.Action = ActionTranscode
		decision.BitrateKbps = kbps
		decision.Reason = fmt.Sprintf("lossless %dch", track.Channels)
	default:
		decision.Reason = "already lossy"
	}
	return decision, nil
}

// BuildOptions decides and renders in one step.
func BuildOptions(tracks []probe.AudioTrack) (string, []Decision, error) {
	decisions, err := Decide(tracks)
	if err != nil {
		return "", nil, err
	}
	return Render(decisions), decisions, nil
}

// LogDecisions writes one decision record per track.
func LogDecisions(logger *slog.Logger, decisions []Decision) {
	if logger == nil {
		return
	}
	for _, d := range decisions {
		result := d.Action.String()
		if d.Action == ActionTranscode {
			result = fmt.Sprintf("opus %dk", d.BitrateKbps)
		}
		attrs := logging.DecisionAttrs("audio_track", result, d.Reason)
		attrs = append(attrs,
			logging.Int("track_index", d.Index),
			logging.String("track", d.Track.Describe()),
		)
		logger.Info("audio track decision", logging.Args(attrs...)...)
	}
}
