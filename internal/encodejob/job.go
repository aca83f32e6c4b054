package encodejob

import (
	"errors"
	"path/filepath"
	"strconv"
	"strings"

	"av1watch/internal/config"
	"av1watch/internal/probe"
	"av1watch/internal/services"
)

// ErrMissingInput reports a Build call without the data a job needs.
var ErrMissingInput = errors.New("missing encode job input")

// Inputs carries everything Build combines.
type Inputs struct {
	JobID        string
	Probe        probe.Result
	AudioOptions string
	CropFilter   string
	Config       *config.Config
}

// Job is one immutable av1an invocation.
type Job struct {
	ID            string
	InputPath     string
	OutputPath    string
	AudioOptions  string
	VideoFilter   string
	EncoderParams string
	PresetVersion string
	ChunkMethod   string
	SourceFormat  string
	Duration      float64

	binary      string
	workers     int
	extraSplit  int
	backend     string
	concat      string
	resume      bool
	verbose     bool
	photonNoise int
}

// Build composes a job. It fails only when an input is missing.
func Build(in Inputs) (Job, error) {
	if in.Config == nil {
		return Job{}, services.Wrap(services.ErrConfiguration, "build", "encode job", "configuration is required", ErrMissingInput)
	}
	input := strings.TrimSpace(in.Probe.Path)
	if input == "" {
		return Job{}, services.Wrap(services.ErrValidation, "build", "encode job", "input path is required", ErrMissingInput)
	}
	outputDir := strings.TrimSpace(in.Config.Paths.OutputDir)
	if outputDir == "" {
		return Job{}, services.Wrap(services.ErrConfiguration, "build", "encode job", "output directory is required", ErrMissingInput)
	}

	enc := in.Config.Encoder
	chunkMethod := enc.ChunkMethod
	if in.Config.IsLegacyFormat(in.Probe.Video.Format) {
		chunkMethod = enc.LegacyChunkMethod
	}

	return Job{
		ID:            in.JobID,
		InputPath:     input,
		OutputPath:    OutputPath(outputDir, input),
		AudioOptions:  in.AudioOptions,
		VideoFilter:   strings.TrimSpace(in.CropFilter),
		EncoderParams: SVTParams(enc.Preset),
		PresetVersion: enc.Preset.Version,
		ChunkMethod:   chunkMethod,
		SourceFormat:  in.Probe.Video.Format,
		Duration:      in.Probe.Video.DurationSeconds,
		binary:        enc.Binary,
		workers:       enc.Workers,
		extraSplit:    enc.ExtraSplit,
		backend:       enc.Backend,
		concat:        enc.Concat,
		resume:        enc.Resume,
		verbose:       enc.Verbose,
		photonNoise:   enc.PhotonNoise,
	}, nil
}

// OutputPath mirrors the input basename into outputDir. mkvmerge concatenation
// always produces Matroska, so the extension becomes .mkv.
func OutputPath(outputDir, inputPath string) string {
	base := filepath.Base(inputPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = base
	}
	return filepath.Join(outputDir, stem+".mkv")
}

// Binary returns the av1an executable.
func (j Job) Binary() string {
	if j.binary == "" {
		return "av1an"
	}
	return j.binary
}

// Args renders the av1an argument list.
func (j Job) Args() []string {
	args := []string{
		"-i", j.InputPath,
		"-o", j.OutputPath,
		"-x", strconv.Itoa(j.extraSplit),
		"-w", strconv.Itoa(j.workers),
		"-e", j.backend,
		"-c", j.concat,
	}
	if j.resume {
		args = append(args, "--resume")
	}
	args = append(args, "-m", j.ChunkMethod)
	if j.verbose {
		args = append(args, "--verbose")
	}
	if j.VideoFilter != "" {
		args = append(args, "--ffmpeg", "-vf "+j.VideoFilter)
	}
	if strings.TrimSpace(j.AudioOptions) != "" {
		args = append(args, "-a", j.AudioOptions)
	}
	args = append(args, "-v", j.EncoderParams)
	if j.photonNoise > 0 {
		args = append(args, "--photon-noise", strconv.Itoa(j.photonNoise))
	}
	return args
}

// CommandLine renders the invocation for logs and the plan command, quoting
// arguments that contain spaces or quotes.
func (j Job) CommandLine() string {
	parts := []string{j.Binary()}
	for _, arg := range j.Args() {
		parts = append(parts, shellQuote(arg))
	}
	return strings.Join(parts, " ")
}

func shellQuote(arg string) string {
	if arg == "" {
		return "''"
	}
	if !strings.ContainsAny(arg, " \t\"'|$&;<>()\\") {
		return arg
	}
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}
