// Package services defines shared utilities consumed by the pipeline stages.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, stage names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper that let the workflow
//     classify per-file failures with errors.Is and record a consistent
//     outcome in the history ledger.
//
// Use these helpers when wiring new stage logic so failure handling and
// observability stay uniform across the pipeline.
package services
