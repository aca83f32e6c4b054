package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"av1watch/internal/config"
	"av1watch/internal/crop"
	"av1watch/internal/logging"
)

var runHistogram = crop.Histogram

func newCropCommand(ctx *commandContext) *cobra.Command {
	var samples int
	var histogram bool

	cmd := &cobra.Command{
		Use:   "crop <file>",
		Short: "Run crop detection on a file and explain the decision",
		Long: `Run crop detection on a file and explain the decision.

This runs the same sampled detection the encoder pipeline uses: ffmpeg
cropdetect at random timestamps, applying a crop only when every usable
sample agrees.

With --histogram it also runs a dense scan and prints the distribution of
crop candidates, which helps diagnose files with changing aspect ratios. The
histogram never changes what the pipeline applies.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}
			out := cmd.OutOrStdout()
			start := time.Now()
			fmt.Fprintf(out, "Target: %s\n\n", path)

			local := *cfg
			local.Crop.Enabled = true
			if samples > 0 {
				local.Crop.Samples = samples
			}
			result, err := newProber(&local).Probe(cmd.Context(), path)
			if err != nil {
				return err
			}
			detected, err := newCropDetector(&local, logging.NewNop()).Detect(cmd.Context(), path, result.Video.DurationSeconds)
			if err != nil {
				return err
			}
			printSampledCrop(out, result.Video.DurationSeconds, detected)

			if histogram {
				report, err := runHistogram(cmd.Context(), path)
				if err != nil {
					return err
				}
				fmt.Fprintln(out)
				printHistogram(out, report)
			}

			fmt.Fprintf(out, "\nDuration: %s\n", time.Since(start).Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().IntVar(&samples, "samples", 0, "Number of random sample points (default from config)")
	cmd.Flags().BoolVar(&histogram, "histogram", false, "Also run the dense histogram scan")
	return cmd
}

func printSampledCrop(out io.Writer, duration float64, result crop.Result) {
	fmt.Fprintf(out, "Video duration: %s\n", time.Duration(duration*float64(time.Second)).Round(time.Second))
	if len(result.Samples) > 0 {
		fmt.Fprintln(out, "\n=== Samples ===")
		for i, s := range result.Samples {
			at := time.Duration(s.Timestamp * float64(time.Second)).Round(time.Second)
			switch {
			case s.Err != nil:
				fmt.Fprintf(out, "%2d. %8s  error: %v\n", i+1, at, s.Err)
			case !s.OK:
				fmt.Fprintf(out, "%2d. %8s  no crop reported\n", i+1, at)
			default:
				fmt.Fprintf(out, "%2d. %8s  %s\n", i+1, at, s.Rect)
			}
		}
	}
	fmt.Fprintln(out, "\n=== Result ===")
	if result.Applied() {
		fmt.Fprintf(out, "Crop Filter: %s\n", result.Filter)
	} else {
		fmt.Fprintln(out, "Crop Filter: none")
	}
	fmt.Fprintf(out, "Reason: %s\n", result.Reason)
}

func printHistogram(out io.Writer, report crop.HistogramReport) {
	fmt.Fprintln(out, "=== Video Properties ===")
	fmt.Fprintf(out, "Resolution: %dx%d\n", report.Width, report.Height)
	fmt.Fprintf(out, "Dynamic Range: %s (threshold=%d)\n", report.DynamicRange, report.Threshold)

	fmt.Fprintln(out, "\n=== Crop Detection Result ===")
	fmt.Fprintf(out, "Status: %s\n", report.Message)
	switch {
	case report.Required:
		fmt.Fprintf(out, "Crop Filter: %s\n", report.Filter)
	case report.MultipleRatios:
		fmt.Fprintln(out, "Result: No crop applied (multiple aspect ratios detected)")
		fmt.Fprintf(out, "Note: No single crop value was found in >%.0f%% of samples\n", report.Dominance)
	default:
		fmt.Fprintln(out, "Result: No crop needed")
	}

	fmt.Fprintln(out, "\n=== Sample Analysis ===")
	fmt.Fprintf(out, "Total Samples: %d\n", report.TotalSamples)
	fmt.Fprintf(out, "Unique Crop Values: %d\n", len(report.Candidates))
	if len(report.Candidates) == 0 {
		return
	}
	fmt.Fprintln(out, "\nCrop Candidates (by frequency):")
	for i, c := range report.Candidates {
		marker := "  "
		if c.Preferred {
			marker = "* "
		}
		fmt.Fprintf(out, "%s%2d. crop=%s  count=%3d (%5.1f%%)  %s\n", marker, i+1, c.Crop, c.Count, c.Percent, c.Dimension)
	}
	if report.MultipleRatios {
		fmt.Fprintf(out, "\nDiagnosis: Top candidate has %.1f%% of samples (need >%.0f%% for auto-crop)\n",
			report.TopPercent, report.Dominance)
	}
}
