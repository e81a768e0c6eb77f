package aptitude

import (
	"context"
	"strings"

	"github.com/adichiru/jenkins-auto-update/internal/domain/pkg"
	"github.com/adichiru/jenkins-auto-update/internal/execx"
	"github.com/adichiru/jenkins-auto-update/internal/logger"
)

const (
	aptGetCommand    = "apt-get"
	aptCacheCommand  = "apt-cache"
	dpkgCommand      = "dpkg"
	dpkgQueryCommand = "dpkg-query"

	// candidatePrefix marks the candidate line in `apt-cache policy` output.
	candidatePrefix = "Candidate:"

	// noCandidate is apt's value for a package with nothing installable.
	noCandidate = "(none)"

	// notInstalledExitCode is returned by dpkg-query for unknown packages.
	notInstalledExitCode = 1
)

// aptGetBaseArgs keep every apt-get call non-interactive: never prompt,
// never overwrite configuration files, keep output terse.
var aptGetBaseArgs = []string{
	"--option=Dpkg::Options::=--force-confold",
	"--option=Dpkg::Options::=--force-unsafe-io",
	"--assume-yes",
	"--quiet",
}

// nonInteractiveEnv stops dpkg maintainer scripts from prompting.
var nonInteractiveEnv = map[string]string{
	"DEBIAN_FRONTEND": "noninteractive",
}

// Apt drives the host package manager for a single package.
type Apt struct {
	// packageName is the managed apt package.
	packageName string
	// runner executes the underlying commands.
	runner execx.Runner
}

// New creates an adapter for the named package.
func New(packageName string, runner execx.Runner) *Apt {
	return &Apt{
		packageName: packageName,
		runner:      runner,
	}
}

// InstalledVersion reports the currently installed package version.
// A package that is not installed yields an empty version and no error.
func (a *Apt) InstalledVersion(ctx context.Context) (pkg.Version, error) {
	result, err := a.runner.Run(ctx, execx.Command{
		Program: dpkgQueryCommand,
		Args:    []string{"-W", "-f=${Version}", a.packageName},
	})
	if err != nil {
		if result != nil && result.ExitCode == notInstalledExitCode {
			logger.DebugKV(ctx, "Package not installed", "package", a.packageName)
			return "", nil
		}

		return "", err
	}

	return pkg.Version(strings.TrimSpace(result.Stdout)), nil
}

// CandidateVersion reports the version apt would install on upgrade.
// An unknown package or one without an installable candidate yields an
// empty version and no error.
func (a *Apt) CandidateVersion(ctx context.Context) (pkg.Version, error) {
	result, err := a.runner.Run(ctx, execx.Command{
		Program: aptCacheCommand,
		Args:    []string{"policy", a.packageName},
	})
	if err != nil {
		return "", err
	}

	for _, line := range strings.Split(result.Stdout, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, candidatePrefix) {
			continue
		}

		candidate := strings.TrimSpace(strings.TrimPrefix(line, candidatePrefix))
		if candidate == "" || candidate == noCandidate {
			return "", nil
		}

		return pkg.Version(candidate), nil
	}

	return "", nil
}

// RefreshIndex updates the package index quietly. The exit status is
// checked; a failed refresh aborts the run.
func (a *Apt) RefreshIndex(ctx context.Context) error {
	_, err := a.runner.Run(ctx, execx.Command{
		Program: aptGetCommand,
		Args:    append(append([]string(nil), aptGetBaseArgs...), "update"),
		Env:     nonInteractiveEnv,
	})

	return err
}

// UpgradeOnly upgrades the package only if it is already installed.
func (a *Apt) UpgradeOnly(ctx context.Context) error {
	args := append(append([]string(nil), aptGetBaseArgs...),
		"install", "--only-upgrade", a.packageName)

	_, err := a.runner.Run(ctx, execx.Command{
		Program: aptGetCommand,
		Args:    args,
		Env:     nonInteractiveEnv,
	})

	return err
}

// InstallArchive force-installs a downloaded package archive, allowing
// downgrades.
func (a *Apt) InstallArchive(ctx context.Context, archivePath string) error {
	_, err := a.runner.Run(ctx, execx.Command{
		Program: dpkgCommand,
		Args:    []string{"-i", "--force-downgrade", archivePath},
		Env:     nonInteractiveEnv,
	})

	return err
}
