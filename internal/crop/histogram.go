package crop

import (
	"context"
	"fmt"

	draptolib "github.com/five82/drapto"
)

// drapto auto-applies a crop only when one candidate covers this share of its samples.
const histogramDominancePercent = 80.0

// HistogramCandidate is one crop value seen by the histogram detector.
type HistogramCandidate struct {
	Crop      string
	Count     int
	Percent   float64
	Dimension string
	Preferred bool
}

// HistogramReport summarizes drapto's dense crop scan for display.
type HistogramReport struct {
	Width          uint64
	Height         uint64
	DynamicRange   string
	Threshold      int
	Required       bool
	Filter         string
	Message        string
	MultipleRatios bool
	TotalSamples   int
	TopPercent     float64
	Dominance      float64
	Candidates     []HistogramCandidate
}

// Histogram runs drapto's histogram crop detection on path.
func Histogram(ctx context.Context, path string) (HistogramReport, error) {
	result, err := draptolib.DetectCrop(ctx, path)
	if err != nil {
		return HistogramReport{}, fmt.Errorf("histogram crop detection: %w", err)
	}
	return buildHistogramReport(result), nil
}

func buildHistogramReport(result *draptolib.CropDetectionResult) HistogramReport {
	report := HistogramReport{DynamicRange: "SDR", Threshold: 16, Dominance: histogramDominancePercent}
	if result == nil {
		return report
	}
	if result.IsHDR {
		report.DynamicRange = "HDR"
		report.Threshold = 100
	}
	report.Width = uint64(result.VideoWidth)
	report.Height = uint64(result.VideoHeight)
	report.Required = result.Required
	report.Filter = result.CropFilter
	report.Message = result.Message
	report.MultipleRatios = result.MultipleRatios
	report.TotalSamples = int(result.TotalSamples)

	report.Candidates = make([]HistogramCandidate, 0, len(result.Candidates))
	for i, candidate := range result.Candidates {
		entry := HistogramCandidate{
			Crop:      candidate.Crop,
			Count:     candidate.Count,
			Percent:   candidate.Percent,
			Preferred: i == 0 && result.Required,
		}
		if rect, err := ParseRect(candidate.Crop); err == nil {
			entry.Dimension = fmt.Sprintf("%dx%d (%.3f:1)", rect.Width, rect.Height, float64(rect.Width)/float64(rect.Height))
		}
		report.Candidates = append(report.Candidates, entry)
	}
	if len(result.Candidates) > 0 {
		report.TopPercent = result.Candidates[0].Percent
	}
	return report
}
