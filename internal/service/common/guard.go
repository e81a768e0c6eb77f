package common

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mitchellh/go-ps"

	"github.com/adichiru/jenkins-auto-update/internal/logger"
)

const (
	// MarkerFilename marks that an orchestration run is in progress to avoid
	// two runs mutating package state simultaneously.
	MarkerFilename = "jenkins-updater-marker.bin"

	// orchestratorExecutable is the binary name matched during stale marker
	// recovery.
	orchestratorExecutable = "jenkins-updater"

	// markerLifetime is the period after which a marker is considered stale.
	// Package operations can legitimately take minutes, so it is generous.
	markerLifetime = 30 * time.Minute
)

// ErrAlreadyRunning is returned when a fresh run marker exists.
var ErrAlreadyRunning = errors.New("another orchestration run is in progress")

// AcquireRunGuard creates the run marker and returns a release function.
// It fails when another run holds a fresh marker; stale markers are
// recovered by terminating any surviving orchestrator process first.
func AcquireRunGuard(ctx context.Context) (func(), error) {
	if IsRunInProgress(ctx) {
		return nil, ErrAlreadyRunning
	}

	marker, err := os.Create(MarkerFilename)
	if err != nil {
		return nil, fmt.Errorf("create run marker: %w", err)
	}

	if err = marker.Close(); err != nil {
		return nil, fmt.Errorf("close run marker: %w", err)
	}

	release := func() {
		if _, statErr := os.Stat(MarkerFilename); statErr == nil {
			_ = os.Remove(MarkerFilename)
		}
	}

	return release, nil
}

// IsRunInProgress checks presence of the run marker and attempts recovery
// if it looks stale.
func IsRunInProgress(ctx context.Context) bool {
	fileInfo, err := os.Stat(MarkerFilename)
	if err == nil {
		if time.Since(fileInfo.ModTime()) <= markerLifetime {
			return true
		}

		logger.Info(ctx, "The run marker is too old, attempting cleanup")

		if err = terminateProcessByName(orchestratorExecutable); err != nil {
			return true
		}

		if err = os.Remove(MarkerFilename); err != nil {
			return true
		}

		return false
	}

	if errors.Is(err, os.ErrNotExist) {
		return false
	}

	logger.Infof(ctx, "Unable to read run marker: %v", err)

	return false
}

// terminateProcessByName tries to kill processes with the provided executable name.
func terminateProcessByName(processName string) error {
	processList, err := ps.Processes()
	if err != nil {
		return err
	}

	thisProcessID := os.Getpid()

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if process.Executable() != processName {
			continue
		}

		var runningProcess *os.Process

		runningProcess, err = os.FindProcess(process.Pid())
		if err != nil {
			return err
		}

		if err = runningProcess.Kill(); err != nil {
			return err
		}
	}

	return nil
}
