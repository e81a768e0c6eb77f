package pkg

import (
	"errors"
	"fmt"
	"regexp"
)

// Version is an opaque package version identifier. Versions are only ever
// compared for equality; no ordering or semantic parsing is performed.
type Version string

// versionPattern is the accepted Debian version character set. The token is
// later embedded in filenames and URLs, so anything outside this set is
// rejected up front.
var versionPattern = regexp.MustCompile(`^[0-9A-Za-z][0-9A-Za-z.+:~-]*$`)

// ErrBadVersionToken is returned when a version string contains characters
// that are unsafe in a filename or URL.
var ErrBadVersionToken = errors.New("version contains forbidden characters")

// Unknown reports whether the version could not be determined.
// Package manager queries yield an empty version when the package has no
// match; callers must branch on this rather than fail.
func (v Version) Unknown() bool {
	return v == ""
}

// Equal compares two versions as opaque strings.
func (v Version) Equal(other Version) bool {
	return v == other
}

// Validate checks the version token against the accepted character set.
func (v Version) Validate() error {
	if !versionPattern.MatchString(string(v)) {
		return fmt.Errorf("%q: %w", string(v), ErrBadVersionToken)
	}

	return nil
}

// String implements fmt.Stringer.
func (v Version) String() string {
	if v.Unknown() {
		return "unknown"
	}

	return string(v)
}
