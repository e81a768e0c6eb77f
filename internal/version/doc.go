// Package version carries the build metadata stamped into the orchestrator
// binary via ldflags and renders it for the CLI `version` subcommand.
package version
