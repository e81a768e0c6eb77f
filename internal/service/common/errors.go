package common

import "errors"

// ErrServiceNotRunning is returned when the managed service is not healthy
// after a workflow expected it to be.
var ErrServiceNotRunning = errors.New("service is not running")

// ErrVersionMismatch is returned when the installed version does not match
// the version a rollback requested.
var ErrVersionMismatch = errors.New("installed version does not match requested version")
