// Package execx is a thin seam over the forge executor library for running
// external commands with captured output and a per-command timeout.
//
// Adapters depend on the Runner interface so tests can script command
// outcomes without touching the host.
package execx
