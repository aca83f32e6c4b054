// Package crop detects letterbox and pillarbox bars by sampling ffmpeg's
// cropdetect filter at random timestamps.
//
// Each sample seeks to a uniformly random timestamp, analyses a bounded number
// of frames and keeps the last crop rectangle ffmpeg reported, since the
// filter's estimate converges as it sees more frames. Failed or empty samples
// are dropped. A crop is applied only when every surviving sample reports the
// identical rectangle; any disagreement (for example films that switch aspect
// ratio) or zero surviving samples yields no crop.
//
// Histogram runs drapto's dense histogram detector as a diagnostic aid for
// the CLI; it never feeds the pipeline decision.
package crop
