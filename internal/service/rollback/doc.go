// Package rollback implements the package rollback workflow: fetch the
// archive for the requested version from the upstream folder, force-install
// it, and verify both the installed version and service health afterwards.
//
// The requested version token is validated against a strict character set
// before it is used in any filename or URL. A failed rollback is not
// auto-recovered; the run record documents how far it got.
package rollback
