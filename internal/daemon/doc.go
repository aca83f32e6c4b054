// Package daemon coordinates the long-running av1watch process.
//
// It ties the startup scan, the directory watcher, the pending queue and the
// workflow worker into a single lifecycle guarded by a flock so only one
// instance works a state directory. Shutdown is two-staged: the first request
// stops discovery and lets the in-flight encode finish; an abort request
// kills that encode.
//
// Keep orchestration logic here: pipeline steps live in their own packages
// while the daemon focuses on startup, shutdown, and high level coordination.
package daemon
