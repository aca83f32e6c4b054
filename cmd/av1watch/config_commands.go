package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"av1watch/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}
	cmd.AddCommand(newConfigInitCommand(), newConfigValidateCommand(ctx))
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var (
		target    string
		overwrite bool
	)
	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a sample configuration file",
		Annotations: map[string]string{skipConfigAnnotation: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := initTarget(target)
			if err != nil {
				return err
			}
			if !overwrite {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s already exists; pass --overwrite to replace it", path)
				} else if !errors.Is(err, fs.ErrNotExist) {
					return fmt.Errorf("check config path: %w", err)
				}
			}
			if err := config.CreateSample(path); err != nil {
				return fmt.Errorf("write sample config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\nEdit paths.input_dir and paths.output_dir before starting av1watch.\n", path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&target, "path", "p", "", "Where to write the file (default ~/.config/av1watch/config.toml)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	return cmd
}

func initTarget(flag string) (string, error) {
	if flag = strings.TrimSpace(flag); flag == "" {
		return config.DefaultConfigPath()
	}
	return config.ExpandPath(flag)
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", ctx.configPath)
			if !ctx.fileExists {
				fmt.Fprintln(out, "No file found; using defaults")
			}
			for _, row := range [][2]string{
				{"Input", cfg.Paths.InputDir},
				{"Output", cfg.Paths.OutputDir},
				{"Preset", cfg.Encoder.Preset.Version},
			} {
				fmt.Fprintf(out, "%s: %s\n", row[0], row[1])
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}
