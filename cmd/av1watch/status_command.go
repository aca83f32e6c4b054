package main

import (
	"errors"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"av1watch/internal/config"
	"av1watch/internal/daemon"
	"av1watch/internal/history"
	"av1watch/internal/preflight"
	"av1watch/internal/services"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check tools, directories and recorded outcomes",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			report := &statusReport{color: shouldColorize(out)}
			reportDaemon(report, cfg)
			reportDependencies(report, cfg)
			reportDirectories(cmd, report, cfg)
			reportHistory(cmd, report, cfg)
			_, err = report.WriteTo(out)
			return err
		},
	}
}

func reportDaemon(r *statusReport, cfg *config.Config) {
	r.section("Daemon")
	held, err := daemon.LockHeld(cfg.LockPath())
	switch {
	case err != nil && !errors.Is(err, os.ErrNotExist):
		r.add("Daemon", levelWarn, err.Error())
	case err == nil && held:
		r.add("Daemon", levelOK, "Running (lock "+cfg.LockPath()+")")
	default:
		r.add("Daemon", levelInfo, "Not running")
	}
}

func reportDependencies(r *statusReport, cfg *config.Config) {
	r.section("Dependencies")
	for _, dep := range preflight.CheckSystemDeps(cfg) {
		switch {
		case dep.Available:
			r.add(dep.Name, levelOK, dep.Path)
		case dep.Optional:
			r.add(dep.Name, levelWarn, dep.Detail+" (optional)")
		default:
			r.add(dep.Name, levelError, dep.Detail)
		}
	}
}

func reportDirectories(cmd *cobra.Command, r *statusReport, cfg *config.Config) {
	r.section("Directories")
	for _, result := range preflight.RunAll(cmd.Context(), cfg) {
		lvl := levelOK
		if !result.Passed {
			lvl = levelError
		}
		r.add(result.Name, lvl, result.Detail)
	}
}

func reportHistory(cmd *cobra.Command, r *statusReport, cfg *config.Config) {
	r.section("History")
	if !cfg.History.Enabled {
		r.add("History", levelInfo, "Disabled")
		return
	}
	path := cfg.HistoryPath()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		r.add("History", levelInfo, "No jobs recorded yet")
		return
	}
	store, err := history.Open(path)
	if err != nil {
		r.add("History", levelWarn, err.Error())
		return
	}
	defer store.Close()
	counts, err := store.OutcomeCounts(cmd.Context())
	if err != nil {
		r.add("History", levelWarn, err.Error())
		return
	}
	if len(counts) == 0 {
		r.add("History", levelInfo, "No finished jobs")
		return
	}
	outcomes := make([]string, 0, len(counts))
	for outcome := range counts {
		outcomes = append(outcomes, outcome)
	}
	slices.Sort(outcomes)
	for _, outcome := range outcomes {
		lvl := levelWarn
		if outcome == services.OutcomeSucceeded {
			lvl = levelOK
		}
		r.add(titleCaser.String(strings.ReplaceAll(outcome, "_", " ")), lvl, strconv.Itoa(counts[outcome]))
	}
}
