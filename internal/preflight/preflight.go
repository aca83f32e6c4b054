package preflight

import (
	"context"
	"fmt"
	"strings"

	"av1watch/internal/config"
	"av1watch/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll checks the directories the daemon reads and writes.
func RunAll(_ context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	return []Result{
		CheckDirectoryAccess("Input directory", cfg.Paths.InputDir, AccessRead),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir, AccessReadWrite),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir, AccessReadWrite),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir, AccessReadWrite),
	}
}

// CheckSystemDeps evaluates the external tools for the given config. Both the
// daemon and the CLI status command use this.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(deps.Requirements(cfg))
}

// Failed returns the checks that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

// Summarize joins failed checks and missing required tools into one error,
// or returns nil when everything the daemon needs is in place.
func Summarize(results []Result, statuses []deps.Status) error {
	var problems []string
	for _, r := range Failed(results) {
		problems = append(problems, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	for _, s := range deps.MissingRequired(statuses) {
		problems = append(problems, fmt.Sprintf("%s: %s", s.Name, s.Detail))
	}
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("preflight failed: %s", strings.Join(problems, "; "))
}
