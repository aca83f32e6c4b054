// Package audio decides, per audio track, whether av1an passes the track
// through or re-encodes it to Opus, and renders those decisions into the
// ffmpeg option string av1an receives with -a.
//
// Object audio (Atmos) is always copied because re-encoding to a channel-based
// codec destroys its metadata. Lossless tracks are transcoded at a bitrate
// fixed by channel count; a channel count outside the table stops the file
// rather than guessing. Lossy tracks are copied. Decisions are returned in
// track order and each fragment addresses its track by the probe index.
package audio
