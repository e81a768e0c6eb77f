// Package aptitude wraps the Debian package tooling (apt-get, apt-cache,
// dpkg, dpkg-query) behind typed queries and operations for one package.
//
// All invocations are non-interactive and every exit status is checked.
// Version queries that find no match return an empty version rather than an
// error, so callers can treat "unknown" as a branch instead of a crash.
package aptitude
