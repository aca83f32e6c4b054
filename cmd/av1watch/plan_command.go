package main

import (
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"av1watch/internal/audio"
	"av1watch/internal/config"
	"av1watch/internal/crop"
	"av1watch/internal/encodejob"
	"av1watch/internal/logging"
	"av1watch/internal/probe"
	"av1watch/internal/workflow"
)

var (
	newProber = func(cfg *config.Config) probe.Prober {
		return probe.New(cfg)
	}
	newCropDetector = func(cfg *config.Config, logger *slog.Logger) workflow.CropDetector {
		return crop.NewDetector(cfg, logger)
	}
)

var titleCaser = cases.Title(language.Und)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var skipCrop bool

	cmd := &cobra.Command{
		Use:   "plan <file>",
		Short: "Show the encode av1watch would run for a file without running it",
		Args:  cobra.ExactArgs(1),
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

			result, err := newProber(cfg).Probe(cmd.Context(), path)
			if err != nil {
				return err
			}
			printProbeSummary(out, result)

			options, decisions, err := audio.BuildOptions(result.Audio)
			if err != nil {
				fmt.Fprintln(out, "\nAudio: unsupported")
				return err
			}
			fmt.Fprintln(out, "\nAudio:")
			fmt.Fprintln(out, renderDecisions(decisions))

			cropResult := crop.Result{Reason: "skipped (--no-crop)"}
			if !skipCrop {
				cropResult, err = newCropDetector(cfg, logging.NewNop()).Detect(cmd.Context(), path, result.Video.DurationSeconds)
				if err != nil {
					return err
				}
			}
			if cropResult.Applied() {
				fmt.Fprintf(out, "\nCrop: %s (%s)\n", cropResult.Filter, cropResult.Reason)
			} else {
				fmt.Fprintf(out, "\nCrop: none (%s)\n", cropResult.Reason)
			}

			job, err := encodejob.Build(encodejob.Inputs{
				JobID:        "plan",
				Probe:        result,
				AudioOptions: options,
				CropFilter:   cropResult.Filter,
				Config:       cfg,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Chunk method: %s\n", job.ChunkMethod)
			fmt.Fprintf(out, "Preset: %s\n", job.PresetVersion)
			fmt.Fprintf(out, "Output: %s\n", job.OutputPath)
			fmt.Fprintf(out, "\nCommand:\n  %s\n", job.CommandLine())
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipCrop, "no-crop", false, "Skip crop sampling")
	return cmd
}

func printProbeSummary(out io.Writer, result probe.Result) {
	fmt.Fprintf(out, "File: %s\n", result.Path)
	fmt.Fprintf(out, "Probe backend: %s\n", result.Backend)
	duration := time.Duration(result.Video.DurationSeconds * float64(time.Second)).Round(time.Second)
	fmt.Fprintf(out, "Video: %s %dx%d, %s\n", result.Video.Format, result.Video.Width, result.Video.Height, duration)
}

func renderDecisions(decisions []audio.Decision) string {
	if len(decisions) == 0 {
		return "  (no audio tracks)"
	}
	rows := make([][]string, 0, len(decisions))
	for _, d := range decisions {
		bitrate := "-"
		if d.Action == audio.ActionTranscode {
			bitrate = strconv.Itoa(d.BitrateKbps) + "k"
		}
		format := d.Track.CommercialName
		if format == "" {
			format = d.Track.Format
		}
		lang := d.Track.Language
		if lang == "" {
			lang = "-"
		}
		rows = append(rows, []string{
			strconv.Itoa(d.Index),
			lang,
			format,
			titleCaser.String(d.Track.Compression.String()),
			strconv.Itoa(d.Track.Channels),
			titleCaser.String(d.Action.String()),
			bitrate,
			d.Reason,
		})
	}
	return renderTable(
		[]string{"#", "Lang", "Format", "Mode", "Ch", "Action", "Bitrate", "Reason"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight, alignLeft},
	)
}
