package probe

import (
	"context"
	"errors"
	"io/fs"
	"math"
	"os"
	"strings"
	"time"

	"av1watch/internal/config"
	"av1watch/internal/media/ffprobe"
	"av1watch/internal/media/mediainfo"
	"av1watch/internal/services"
)

const stageName = "probe"

// New returns the prober selected by probe.backend.
func New(cfg *config.Config) Prober {
	timeout := time.Duration(cfg.Probe.TimeoutSeconds) * time.Second
	if cfg.Probe.Backend == config.ProbeBackendFFprobe {
		return &FFprobeProber{Binary: cfg.Probe.FFprobeBinary, Timeout: timeout}
	}
	return &MediainfoProber{Binary: cfg.Probe.MediainfoBinary, Timeout: timeout}
}

// MediainfoProber reads track metadata through mediainfo's JSON report.
type MediainfoProber struct {
	Binary  string
	Timeout time.Duration

	inspect func(ctx context.Context, binary, path string) (mediainfo.Result, error)
}

// Probe implements Prober.
func (p *MediainfoProber) Probe(ctx context.Context, path string) (Result, error) {
	if err := checkFile(path); err != nil {
		return Result{}, err
	}
	ctx, cancel := withTimeout(ctx, p.Timeout)
	defer cancel()

	inspect := p.inspect
	if inspect == nil {
		inspect = mediainfo.Inspect
	}
	report, err := inspect(ctx, p.Binary, path)
	if err != nil {
		return Result{}, newError(path, "mediainfo failed", services.Wrap(services.ErrExternalTool, stageName, "mediainfo", "", err))
	}
	return fromMediainfo(path, report)
}

func fromMediainfo(path string, report mediainfo.Result) (Result, error) {
	result := Result{Path: path, Backend: config.ProbeBackendMediainfo}

	videos := report.Tracks(mediainfo.TypeVideo)
	audios := report.Tracks(mediainfo.TypeAudio)
	if len(videos) == 0 && len(audios) == 0 {
		return Result{}, newError(path, "no tracks", services.Wrap(services.ErrValidation, stageName, "mediainfo", "container reports zero tracks", nil))
	}
	if len(videos) == 0 {
		return Result{}, newError(path, "no video track", services.Wrap(services.ErrValidation, stageName, "mediainfo", "", nil))
	}

	video := videos[0]
	result.Video = VideoTrack{
		Format:          strings.TrimSpace(video.Format),
		DurationSeconds: video.DurationSeconds(),
		Width:           video.WidthPixels(),
		Height:          video.HeightPixels(),
	}
	if result.Video.DurationSeconds == 0 {
		if general, ok := report.General(); ok {
			result.Video.DurationSeconds = general.DurationSeconds()
		}
	}

	result.Audio = make([]AudioTrack, 0, len(audios))
	for i, track := range audios {
		channels := track.ChannelCount()
		if channels <= 0 {
			return Result{}, newError(path, "audio track without channel count", services.Wrap(services.ErrValidation, stageName, "mediainfo", track.Channels, nil))
		}
		mode, ok := parseCompressionMode(track.CompressionMode)
		if !ok && losslessCodec(track.Format, track.FormatProfile) {
			mode = CompressionLossless
		}
		result.Audio = append(result.Audio, AudioTrack{
			Index:          i,
			Language:       normalizeLanguage(track.Language),
			Compression:    mode,
			Channels:       channels,
			CommercialName: strings.TrimSpace(track.FormatCommercial),
			Format:         strings.TrimSpace(track.Format),
			Title:          strings.TrimSpace(track.Title),
		})
	}
	return result, nil
}

// FFprobeProber reads track metadata through ffprobe and derives the
// compression mode from the codec.
type FFprobeProber struct {
	Binary  string
	Timeout time.Duration

	inspect func(ctx context.Context, binary, path string) (ffprobe.Result, error)
}

// Probe implements Prober.
func (p *FFprobeProber) Probe(ctx context.Context, path string) (Result, error) {
	if err := checkFile(path); err != nil {
		return Result{}, err
	}
	ctx, cancel := withTimeout(ctx, p.Timeout)
	defer cancel()

	inspect := p.inspect
	if inspect == nil {
		inspect = ffprobe.Inspect
	}
	report, err := inspect(ctx, p.Binary, path)
	if err != nil {
		return Result{}, newError(path, "ffprobe failed", services.Wrap(services.ErrExternalTool, stageName, "ffprobe", "", err))
	}
	return fromFFprobe(path, report)
}

func fromFFprobe(path string, report ffprobe.Result) (Result, error) {
	result := Result{Path: path, Backend: config.ProbeBackendFFprobe}
	if len(report.Streams) == 0 {
		return Result{}, newError(path, "no tracks", services.Wrap(services.ErrValidation, stageName, "ffprobe", "container reports zero streams", nil))
	}
	video, ok := report.FirstVideoStream()
	if !ok {
		return Result{}, newError(path, "no video track", services.Wrap(services.ErrValidation, stageName, "ffprobe", "", nil))
	}

	duration := video.DurationSeconds()
	if math.IsNaN(duration) || duration <= 0 {
		duration = report.DurationSeconds()
	}
	if math.IsNaN(duration) || duration < 0 {
		duration = 0
	}
	result.Video = VideoTrack{
		Format:          videoFormatName(video.CodecName),
		DurationSeconds: duration,
		Width:           video.Width,
		Height:          video.Height,
	}

	streams := report.AudioStreams()
	result.Audio = make([]AudioTrack, 0, len(streams))
	for i, stream := range streams {
		if stream.Channels <= 0 {
			return Result{}, newError(path, "audio track without channel count", services.Wrap(services.ErrValidation, stageName, "ffprobe", stream.CodecName, nil))
		}
		mode := CompressionLossy
		if losslessCodec(stream.CodecName, stream.Profile) {
			mode = CompressionLossless
		}
		result.Audio = append(result.Audio, AudioTrack{
			Index:          i,
			Language:       normalizeLanguage(stream.Tag("language")),
			Compression:    mode,
			Channels:       stream.Channels,
			CommercialName: commercialName(stream),
			Format:         stream.CodecName,
			Title:          stream.Tag("title"),
		})
	}
	return result, nil
}

// commercialName joins the codec long name with the profile; ffprobe reports
// object audio in the profile ("Dolby TrueHD + Dolby Atmos").
func commercialName(stream ffprobe.Stream) string {
	parts := make([]string, 0, 2)
	if name := strings.TrimSpace(stream.CodecLongName); name != "" {
		parts = append(parts, name)
	}
	if profile := strings.TrimSpace(stream.Profile); profile != "" {
		parts = append(parts, profile)
	}
	return strings.Join(parts, " ")
}

func checkFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return newError(path, "file not found", services.Wrap(services.ErrNotFound, stageName, "stat", "", err))
		}
		return newError(path, "stat failed", services.Wrap(services.ErrTransient, stageName, "stat", "", err))
	}
	if info.IsDir() {
		return newError(path, "path is a directory", services.Wrap(services.ErrValidation, stageName, "stat", "", nil))
	}
	return nil
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
