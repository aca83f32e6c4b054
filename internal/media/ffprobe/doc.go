// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Inspect runs ffprobe with -show_format -show_streams and returns a Result
// whose helpers expose the audio streams in container order and the first
// real video stream. The package knows nothing about encode policy; the probe
// package maps these raw streams onto typed tracks.
package ffprobe
