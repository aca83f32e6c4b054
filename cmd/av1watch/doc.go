// Package main hosts the av1watch CLI entrypoint and command graph.
//
// The Cobra-based command tree runs the watch daemon in the foreground and
// exposes the pipeline's decision steps as one-shot diagnostics: plan prints
// the encode a file would get, crop explains the crop decision, history reads
// the transition ledger, and status checks tools and directories.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
