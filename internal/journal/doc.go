// Package journal persists the append-only run record that every
// orchestration run writes, one timestamped line per step:
//
//	20240117 093214 ACTION Stopping jenkins.service before upgrade
//
// The file is created with a one-time header line and appended to by every
// subsequent invocation; it is never truncated or rewritten. Lines can also
// be echoed to the console logger.
package journal
