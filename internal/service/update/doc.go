// Package update implements the package update workflow: back up cached
// archives, refresh the package index, upgrade when the candidate version
// differs from the installed one (stopping the service first), and verify
// the service is running afterwards.
//
// The workflow is fail-fast: the first failed step writes an ERROR line to
// the run record and aborts with a non-zero exit.
package update
