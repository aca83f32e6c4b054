// Package workflow runs the single worker that turns queued paths into
// encodes.
//
// For each path the Manager probes the file, resolves the audio policy and
// the crop filter, builds the av1an job and blocks until the encoder exits
// before taking the next path. Every state change is logged and, when a
// history recorder is configured, appended to the ledger.
//
// Per-file failures are recorded and skipped. Only an encoder that cannot be
// started stops the worker, because every later file would fail the same way.
package workflow
