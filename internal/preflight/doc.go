// Package preflight provides readiness checks for the directories and
// external tools av1watch depends on.
//
// These checks run in two contexts:
//   - The daemon runs them once before scanning; a failure aborts startup so
//     no file is probed against a missing encoder or unwritable output.
//   - The CLI "av1watch status" command renders every result.
package preflight
