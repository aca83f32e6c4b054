package crop

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"av1watch/internal/config"
	"av1watch/internal/logging"
)

// Sample is the outcome of one cropdetect pass.
type Sample struct {
	Timestamp float64
	Rect      Rect
	OK        bool
	Err       error
}

// Result is the crop decision for one file.
type Result struct {
	// Filter is "crop=W:H:X:Y" or empty when no crop applies.
	Filter  string
	Rect    Rect
	Reason  string
	Samples []Sample
}

// Applied reports whether a crop filter was chosen.
func (r Result) Applied() bool { return r.Filter != "" }

// Detector samples cropdetect at random timestamps.
type Detector struct {
	Runner        SampleRunner
	Enabled       bool
	Samples       int
	Frames        int
	SampleTimeout time.Duration
	Logger        *slog.Logger

	// randFloat returns a value in [0, 1).
	randFloat func() float64
}

// NewDetector builds a detector from the crop configuration.
func NewDetector(cfg *config.Config, logger *slog.Logger) *Detector {
	return &Detector{
		Runner:        FFmpegRunner{Binary: cfg.Crop.FFmpegBinary},
		Enabled:       cfg.Crop.Enabled,
		Samples:       cfg.Crop.Samples,
		Frames:        cfg.Crop.Frames,
		SampleTimeout: time.Duration(cfg.Crop.SampleTimeoutSeconds) * time.Second,
		Logger:        logging.NewComponentLogger(logger, "crop"),
	}
}

// Timestamps draws n uniform random timestamps in [0, duration).
func (d *Detector) Timestamps(n int, duration float64) []float64 {
	next := d.randFloat
	if next == nil {
		next = rand.Float64
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = next() * duration
	}
	return out
}

// Detect samples the file and applies the agreement rule. Sample failures are
// dropped; the only error returned is cancellation of ctx.
func (d *Detector) Detect(ctx context.Context, path string, duration float64) (Result, error) {
	logger := logging.WithContext(ctx, d.Logger)
	if !d.Enabled {
		return d.finish(logger, Result{Reason: "crop detection disabled"}), nil
	}
	if duration <= 0 {
		return d.finish(logger, Result{Reason: "unknown duration"}), nil
	}

	count := d.Samples
	if count <= 0 {
		count = 5
	}
	frames := d.Frames
	if frames <= 0 {
		frames = 3000
	}

	result := Result{Samples: make([]Sample, 0, count)}
	for _, ts := range d.Timestamps(count, duration) {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		sample := d.runSample(ctx, path, ts, frames)
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		if sample.OK {
			logger.Debug("crop sample", logging.Float64("timestamp", ts), logging.String("rect", sample.Rect.String()))
		} else {
			logging.WarnWithContext(logger, "crop sample dropped", "crop_sample_failed",
				logging.Float64("timestamp", ts),
				logging.Error(sample.Err),
				logging.String(logging.FieldImpact, "crop decision uses fewer samples"),
			)
		}
		result.Samples = append(result.Samples, sample)
	}

	rects := make([]Rect, 0, len(result.Samples))
	for _, sample := range result.Samples {
		if sample.OK {
			rects = append(rects, sample.Rect)
		}
	}

	switch rect, ok := Agree(rects); {
	case len(rects) == 0:
		result.Reason = "no sample reported a crop"
	case !ok:
		result.Reason = fmt.Sprintf("%d samples disagree", len(rects))
	default:
		result.Rect = rect
		result.Filter = rect.Filter()
		result.Reason = fmt.Sprintf("%d/%d samples agree", len(rects), len(result.Samples))
	}
	return d.finish(logger, result), nil
}

func (d *Detector) runSample(ctx context.Context, path string, ts float64, frames int) Sample {
	sampleCtx := ctx
	if d.SampleTimeout > 0 {
		var cancel context.CancelFunc
		sampleCtx, cancel = context.WithTimeout(ctx, d.SampleTimeout)
		defer cancel()
	}
	output, err := d.Runner.Sample(sampleCtx, path, ts, frames)
	if err != nil {
		return Sample{Timestamp: ts, Err: err}
	}
	rect, ok := LastCrop(output)
	if !ok {
		return Sample{Timestamp: ts, Err: fmt.Errorf("no crop reported at %.3fs", ts)}
	}
	return Sample{Timestamp: ts, Rect: rect, OK: true}
}

func (d *Detector) finish(logger *slog.Logger, result Result) Result {
	decision := "none"
	if result.Applied() {
		decision = result.Filter
	}
	logger.Info("crop decision", logging.Args(logging.DecisionAttrs("crop", decision, result.Reason)...)...)
	return result
}
