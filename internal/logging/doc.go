// Package logging assembles structured slog loggers and formatting helpers used
// across av1watch.
//
// It owns the console and JSON handlers, routes output to stdout plus the
// append-only log file, and exposes context-aware helpers so stage code can
// tag log lines with job IDs, stages, and the daemon session ID. Decision
// records (audio track, crop, chunk method) share one attribute shape built by
// DecisionAttrs so the log doubles as an audit trail of every transcode plan.
package logging
