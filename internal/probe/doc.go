// Package probe extracts typed track metadata from media containers.
//
// A Prober returns the audio tracks in container order together with the first
// video track. Audio Index values are assigned by position in the container's
// audio list and are the identifiers av1an's per-track options address, so
// backends must never reorder or filter audio tracks. Two interchangeable
// backends exist: mediainfo (default) and ffprobe. Every failure is reported
// as *Error so callers can match ErrProbe with errors.Is.
package probe
