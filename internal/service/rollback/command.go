package rollback

import (
	"context"
	"fmt"
	"os"

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

// Options are inputs accepted by the rollback entry point.
type Options struct {
	// ConfigPath is the optional path to the settings YAML file.
	ConfigPath string
	// Version is the target version to roll back to.
	Version string
}

// packageManager is the slice of the apt adapter the workflow needs.
type packageManager interface {
	InstalledVersion(ctx context.Context) (pkg.Version, error)
	InstallArchive(ctx context.Context, archivePath string) error
}

// serviceController is the slice of the systemd controller the workflow needs.
type serviceController interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Status(ctx context.Context) (pkg.HealthState, error)
}

// archiveFetcher retrieves one versioned package archive into a local file.
type archiveFetcher interface {
	Fetch(ctx context.Context, fileName, destinationDir, checksumBase64 string) (string, error)
}

// runner holds the collaborators for a single rollback execution.
// A failed rollback deliberately leaves the host as the failing step left
// it: a second automatic package operation on top of a broken one risks
// compounding the damage, so recovery is the operator's call.
type runner struct {
	cfg     *config.Config
	version pkg.Version
	record  *journal.Writer
	manager packageManager
	service serviceController
	fetcher archiveFetcher

	temporaryDirectory string
}

// Run executes the rollback workflow and is the public entry point for the
// CLI. The version token is validated before it is used in any filename or
// URL.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "rollback")
	ctx = logger.WithKV(ctx, "run_id", uuid.NewString())

	version := pkg.Version(opts.Version)
	if err := version.Validate(); err != nil {
		return err
	}

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
	r := &runner{
		cfg:     cfg,
		version: version,
		record:  journal.New(cfg.JournalFile, cfg.Echo()),
		manager: aptitude.New(cfg.PackageName, commands),
		service: sysd.NewController(cfg.ServiceUnit, cfg.ServiceSettleDelay),
		fetcher: newHTTPFetcher(cfg.DownloadURL),
	}

	defer r.cleanup(ctx)

	if err = r.Run(ctx); err != nil {
		logger.ErrorKV(ctx, "Rollback run failed", "error", err)
		return err
	}

	logger.Info(ctx, "Rollback run completed")

	return nil
}

// Run walks the rollback steps in order, failing fast on the first error.
func (r *runner) Run(ctx context.Context) error {
	if err := r.record.Info(ctx, "Starting rollback of %s to version %s",
		r.cfg.PackageName, r.version); err != nil {
		return err
	}

	archivePath, err := r.fetchStep(ctx)
	if err != nil {
		return err
	}

	if err = r.installStep(ctx, archivePath); err != nil {
		return err
	}

	if err = r.verifyVersionStep(ctx); err != nil {
		return err
	}

	if err = r.verifyRunningStep(ctx); err != nil {
		return err
	}

	return r.record.Success(ctx, "Package %s rolled back to version %s",
		r.cfg.PackageName, r.version)
}

// fetchStep downloads the versioned archive into a temporary directory.
// Nothing is installed when the fetch fails.
func (r *runner) fetchStep(ctx context.Context) (string, error) {
	fileName := fmt.Sprintf("%s_%s_all.deb", r.cfg.PackageName, r.version)

	if err := r.record.Action(ctx, "Fetching archive %s", fileName); err != nil {
		return "", err
	}

	temporaryDirectory, err := os.MkdirTemp("", "jenkins-updater-")
	if err != nil {
		return "", r.fail(ctx, "create staging directory", err)
	}

	r.temporaryDirectory = temporaryDirectory

	archivePath, err := r.fetcher.Fetch(ctx, fileName, temporaryDirectory, r.cfg.Checksums[string(r.version)])
	if err != nil {
		return "", r.fail(ctx, "fetch archive", err)
	}

	return archivePath, r.record.Info(ctx, "Archive staged at %s", archivePath)
}

// installStep stops the service and force-installs the downloaded archive.
func (r *runner) installStep(ctx context.Context, archivePath string) error {
	if err := r.record.Action(ctx, "Stopping %s before rollback install", r.cfg.ServiceUnit); err != nil {
		return err
	}

	if err := r.service.Stop(ctx); err != nil {
		return r.fail(ctx, "stop service", err)
	}

	if err := r.record.Action(ctx, "Installing archive %s", archivePath); err != nil {
		return err
	}

	if err := r.manager.InstallArchive(ctx, archivePath); err != nil {
		return r.fail(ctx, "install archive", err)
	}

	if err := r.record.Action(ctx, "Starting %s", r.cfg.ServiceUnit); err != nil {
		return err
	}

	if err := r.service.Start(ctx); err != nil {
		return r.fail(ctx, "start service", err)
	}

	return nil
}

// verifyVersionStep requires the installed version to equal the requested one.
func (r *runner) verifyVersionStep(ctx context.Context) error {
	installed, err := r.manager.InstalledVersion(ctx)
	if err != nil {
		return r.fail(ctx, "query installed version", err)
	}

	if !installed.Equal(r.version) {
		return r.fail(ctx, "verify installed version",
			fmt.Errorf("installed %s, requested %s: %w",
				installed, r.version, common.ErrVersionMismatch))
	}

	return r.record.Info(ctx, "Installed version confirmed as %s", r.version)
}

// verifyRunningStep requires the service to be healthy at the end of the run.
func (r *runner) verifyRunningStep(ctx context.Context) error {
	state, err := r.service.Status(ctx)
	if err != nil {
		return r.fail(ctx, "query service status", err)
	}

	if !state.Running() {
		return r.fail(ctx, "verify service running",
			fmt.Errorf("%s reports %s: %w", r.cfg.ServiceUnit, state, common.ErrServiceNotRunning))
	}

	return r.record.Info(ctx, "Service %s is running", r.cfg.ServiceUnit)
}

// fail records the step failure and returns the wrapped error. The step error
// stays the primary cause even when appending to the run record fails too.
func (r *runner) fail(ctx context.Context, step string, err error) error {
	if recordErr := r.record.Error(ctx, "Failed to %s: %v", step, err); recordErr != nil {
		return fmt.Errorf("%s: %w (run record: %v)", step, err, recordErr)
	}

	return fmt.Errorf("%s: %w", step, err)
}

// cleanup removes the staging directory.
func (r *runner) cleanup(ctx context.Context) {
	if r.temporaryDirectory == "" {
		return
	}

	if _, err := os.Stat(r.temporaryDirectory); err == nil {
		_ = os.RemoveAll(r.temporaryDirectory)
	}

	logger.Debug(ctx, "Staging directory removed")
}
