// Package pkg contains core domain types for package orchestration.
//
// It defines Version (an opaque, equality-only version token with strict
// character validation) and HealthState (the typed service status used
// instead of parsing supervisor output).
package pkg
