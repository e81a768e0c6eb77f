// Package common holds helpers shared by the update and rollback runners,
// chiefly the marker-file run guard that keeps two orchestration runs from
// executing against the same host at once.
package common
