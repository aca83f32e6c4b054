// Package config loads, normalizes, and validates av1watch configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the AV1WATCH_INPUT_DIR and
// AV1WATCH_OUTPUT_DIR environment overrides. The Config type carries the
// av1an invocation contract and the versioned SVT-AV1 preset record so the
// job builder never hardcodes encoder parameters.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
