package update

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/adichiru/jenkins-auto-update/internal/aptitude"
	"github.com/adichiru/jenkins-auto-update/internal/config"
	"github.com/adichiru/jenkins-auto-update/internal/domain/pkg"
	"github.com/adichiru/jenkins-auto-update/internal/execx"
	"github.com/adichiru/jenkins-auto-update/internal/journal"
	"github.com/adichiru/jenkins-auto-update/internal/logger"
	"github.com/adichiru/jenkins-auto-update/internal/service/common"
	"github.com/adichiru/jenkins-auto-update/internal/sysd"
)

// Options are inputs accepted by the update entry point.
type Options struct {
	// ConfigPath is the optional path to the settings YAML file.
	ConfigPath string
}

// packageManager is the slice of the apt adapter the workflow needs.
type packageManager interface {
	InstalledVersion(ctx context.Context) (pkg.Version, error)
	CandidateVersion(ctx context.Context) (pkg.Version, error)
	RefreshIndex(ctx context.Context) error
	UpgradeOnly(ctx context.Context) error
}

// serviceController is the slice of the systemd controller the workflow needs.
type serviceController interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Status(ctx context.Context) (pkg.HealthState, error)
}

// runner holds the collaborators for a single update execution.
// It is intentionally unexported; call Run(ctx, Options) from callers.
type runner struct {
	cfg     *config.Config
	record  *journal.Writer
	manager packageManager
	service serviceController
}

// Run executes the update workflow and is the public entry point for the CLI.
// The sequence is backup, index refresh, version comparison, stop/upgrade/
// start when versions differ, and a final running check. The first failed
// step writes an ERROR record line and aborts the run.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "update")
	ctx = logger.WithKV(ctx, "run_id", uuid.NewString())

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	release, err := common.AcquireRunGuard(ctx)
	if err != nil {
		return err
	}

	defer release()

	commands := execx.NewCommandRunner(cfg.CommandTimeout)
	u := &runner{
		cfg:     cfg,
		record:  journal.New(cfg.JournalFile, cfg.Echo()),
		manager: aptitude.New(cfg.PackageName, commands),
		service: sysd.NewController(cfg.ServiceUnit, cfg.ServiceSettleDelay),
	}

	if err = u.Run(ctx); err != nil {
		logger.ErrorKV(ctx, "Update run failed", "error", err)
		return err
	}

	logger.Info(ctx, "Update run completed")

	return nil
}

// Run walks the update steps in order, failing fast on the first error.
func (u *runner) Run(ctx context.Context) error {
	if err := u.record.Info(ctx, "Starting update run for package %s", u.cfg.PackageName); err != nil {
		return err
	}

	if err := u.backupStep(ctx); err != nil {
		return err
	}

	if err := u.refreshStep(ctx); err != nil {
		return err
	}

	if err := u.upgradeStep(ctx); err != nil {
		return err
	}

	if err := u.verifyRunningStep(ctx); err != nil {
		return err
	}

	return u.record.Success(ctx, "Update run finished for package %s", u.cfg.PackageName)
}

// backupStep copies cached package archives into the backup directory.
func (u *runner) backupStep(ctx context.Context) error {
	if err := u.record.Action(ctx, "Backing up cached %s archives to %s", u.cfg.PackageName, u.cfg.BackupDir); err != nil {
		return err
	}

	copied, err := backupArchives(u.cfg.ArchiveCacheDir, u.cfg.BackupDir, u.cfg.PackageName)
	if err != nil {
		return u.fail(ctx, "backup archives", err)
	}

	return u.record.Info(ctx, "Backed up %d archive(s)", copied)
}

// refreshStep updates the package index. Unlike the historic tooling, a
// refresh failure aborts the run.
func (u *runner) refreshStep(ctx context.Context) error {
	if err := u.record.Action(ctx, "Refreshing package index"); err != nil {
		return err
	}

	if err := u.manager.RefreshIndex(ctx); err != nil {
		return u.fail(ctx, "refresh package index", err)
	}

	return nil
}

// upgradeStep compares installed and candidate versions and upgrades the
// package when they differ, stopping the service first.
func (u *runner) upgradeStep(ctx context.Context) error {
	installed, err := u.manager.InstalledVersion(ctx)
	if err != nil {
		return u.fail(ctx, "query installed version", err)
	}

	candidate, err := u.manager.CandidateVersion(ctx)
	if err != nil {
		return u.fail(ctx, "query candidate version", err)
	}

	if candidate.Unknown() || installed.Equal(candidate) {
		return u.record.Info(ctx, "Nothing to do: installed version %s, candidate %s",
			installed, candidate)
	}

	if err = u.record.Action(ctx, "Upgrading %s from %s to %s",
		u.cfg.PackageName, installed, candidate); err != nil {
		return err
	}

	if err = u.stopServiceConfirmed(ctx); err != nil {
		return err
	}

	if err = u.manager.UpgradeOnly(ctx); err != nil {
		return u.fail(ctx, "upgrade package", err)
	}

	if err = u.record.Success(ctx, "Package %s updated to %s", u.cfg.PackageName, candidate); err != nil {
		return err
	}

	if err = u.record.Action(ctx, "Starting %s", u.cfg.ServiceUnit); err != nil {
		return err
	}

	if err = u.service.Start(ctx); err != nil {
		return u.fail(ctx, "start service", err)
	}

	return nil
}

// stopServiceConfirmed stops the unit and confirms it is no longer running
// before the upgrade call is allowed to proceed.
func (u *runner) stopServiceConfirmed(ctx context.Context) error {
	if err := u.record.Action(ctx, "Stopping %s before upgrade", u.cfg.ServiceUnit); err != nil {
		return err
	}

	if err := u.service.Stop(ctx); err != nil {
		return u.fail(ctx, "stop service", err)
	}

	state, err := u.service.Status(ctx)
	if err != nil {
		return u.fail(ctx, "confirm service stopped", err)
	}

	if state.Running() {
		return u.fail(ctx, "confirm service stopped",
			fmt.Errorf("%s still reports %s", u.cfg.ServiceUnit, state))
	}

	return nil
}

// verifyRunningStep requires the service to be healthy at the end of the run.
func (u *runner) verifyRunningStep(ctx context.Context) error {
	state, err := u.service.Status(ctx)
	if err != nil {
		return u.fail(ctx, "query service status", err)
	}

	if !state.Running() {
		return u.fail(ctx, "verify service running",
			fmt.Errorf("%s reports %s: %w", u.cfg.ServiceUnit, state, common.ErrServiceNotRunning))
	}

	return u.record.Info(ctx, "Service %s is running", u.cfg.ServiceUnit)
}

// fail records the step failure and returns the wrapped error. The step error
// stays the primary cause even when appending to the run record fails too.
func (u *runner) fail(ctx context.Context, step string, err error) error {
	if recordErr := u.record.Error(ctx, "Failed to %s: %v", step, err); recordErr != nil {
		return fmt.Errorf("%s: %w (run record: %v)", step, err, recordErr)
	}

	return fmt.Errorf("%s: %w", step, err)
}
