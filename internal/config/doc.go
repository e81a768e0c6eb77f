// Package config defines host settings used by the orchestrator binary and
// provides helpers to load, validate and save them in YAML format.
//
// Every field has a working default, so a missing settings file is not an
// error; defaults target a stock Debian host running Jenkins.
package config
