// Package sysd controls the managed service through the systemd D-Bus API.
//
// Health is reported as a typed state derived from the unit's load and
// active states instead of parsing command output. Start and stop requests
// wait for the systemd job result and then for a short settle delay.
package sysd
