package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"av1watch/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jobID string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent job transitions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			path := cfg.HistoryPath()
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				fmt.Fprintf(out, "No history recorded yet (%s)\n", path)
				return nil
			}
			store, err := history.Open(path)
			if err != nil {
				return err
			}
			defer store.Close()

			var rows []history.Transition
			if jobID != "" {
				rows, err = store.ForJob(cmd.Context(), jobID)
			} else {
				rows, err = store.Recent(cmd.Context(), limit)
			}
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Fprintln(out, "No transitions recorded")
				return nil
			}
			fmt.Fprintln(out, renderTransitions(rows))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Number of transitions to show")
	cmd.Flags().StringVar(&jobID, "job", "", "Show every transition of one job")
	return cmd
}

func renderTransitions(rows []history.Transition) string {
	table := make([][]string, 0, len(rows))
	for _, t := range rows {
		exit := "-"
		if t.ExitCode != nil {
			exit = strconv.Itoa(*t.ExitCode)
		}
		outcome := t.Outcome
		if outcome == "" {
			outcome = "-"
		}
		table = append(table, []string{
			strconv.FormatInt(t.ID, 10),
			t.CreatedAt.Local().Format(time.DateTime),
			shortID(t.JobID),
			filepath.Base(t.SourcePath),
			t.State,
			outcome,
			strconv.Itoa(t.Attempt),
			exit,
			truncate(t.Detail, 60),
		})
	}
	return renderTable(
		[]string{"ID", "Time", "Job", "File", "State", "Outcome", "Try", "Exit", "Detail"},
		table,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}
