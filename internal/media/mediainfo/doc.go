// Package mediainfo provides a typed wrapper around `mediainfo --Output=JSON`.
//
// Unlike ffprobe, mediainfo reports the audio compression mode and the
// commercial format name (for example "Dolby TrueHD with Dolby Atmos")
// directly, which makes it the default probe backend. All numeric fields in
// mediainfo JSON are strings; the helpers here parse them leniently.
package mediainfo
