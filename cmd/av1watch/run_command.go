package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"av1watch/internal/config"
	"av1watch/internal/daemonrun"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var inputDir string
	var outputDir string
	var logLevel string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Scan and watch the input directory, encoding files one at a time",
		Long: `Run the av1watch daemon in the foreground.

Existing files in the input directory are queued first, then new files are
picked up as they appear. Files are encoded one at a time in arrival order.

Press Ctrl+C once to stop after the current encode finishes; press it again
to abort the encode immediately.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := applyDirOverrides(cfg, inputDir, outputDir); err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{LogLevel: logLevel})
		},
	}

	cmd.Flags().StringVar(&inputDir, "input", "", "Override paths.input_dir")
	cmd.Flags().StringVar(&outputDir, "output", "", "Override paths.output_dir")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")
	return cmd
}

func applyDirOverrides(cfg *config.Config, inputDir, outputDir string) error {
	if value := strings.TrimSpace(inputDir); value != "" {
		expanded, err := config.ExpandPath(value)
		if err != nil {
			return fmt.Errorf("resolve --input: %w", err)
		}
		cfg.Paths.InputDir = expanded
	}
	if value := strings.TrimSpace(outputDir); value != "" {
		expanded, err := config.ExpandPath(value)
		if err != nil {
			return fmt.Errorf("resolve --output: %w", err)
		}
		cfg.Paths.OutputDir = expanded
	}
	return cfg.Validate()
}
