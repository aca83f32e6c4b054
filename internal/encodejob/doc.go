// Package encodejob composes probe results, the rendered audio options and
// the crop filter with the configured encoder preset into one immutable av1an
// invocation. Build performs no I/O.
package encodejob
