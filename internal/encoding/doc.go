// Package encoding runs one av1an invocation per job and reports how it ended.
//
// The encoder process is started detached from the caller's cancellation so a
// shutdown request lets the in-flight encode finish; only the wait for the
// next job is interrupted. Output lines are streamed into the job logger with
// progress sampled into percentage buckets.
package encoding
