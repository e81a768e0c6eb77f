package update

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adichiru/jenkins-auto-update/internal/config"
	"github.com/adichiru/jenkins-auto-update/internal/domain/pkg"
	"github.com/adichiru/jenkins-auto-update/internal/journal"
	"github.com/adichiru/jenkins-auto-update/internal/service/common"
)

// fakeManager scripts package manager outcomes and records operations.
type fakeManager struct {
	installed    pkg.Version
	candidate    pkg.Version
	refreshErr   error
	upgradeErr   error
	installedErr error

	ops *[]string
}

func (f *fakeManager) InstalledVersion(context.Context) (pkg.Version, error) {
	*f.ops = append(*f.ops, "query-installed")
	return f.installed, f.installedErr
}

func (f *fakeManager) CandidateVersion(context.Context) (pkg.Version, error) {
	*f.ops = append(*f.ops, "query-candidate")
	return f.candidate, nil
}

func (f *fakeManager) RefreshIndex(context.Context) error {
	*f.ops = append(*f.ops, "refresh")
	return f.refreshErr
}

func (f *fakeManager) UpgradeOnly(context.Context) error {
	*f.ops = append(*f.ops, "upgrade")
	return f.upgradeErr
}

// fakeService simulates a unit that transitions on start/stop requests.
type fakeService struct {
	state      pkg.HealthState
	startStuck bool

	ops *[]string
}

func (f *fakeService) Start(context.Context) error {
	*f.ops = append(*f.ops, "start")
	if !f.startStuck {
		f.state = pkg.HealthRunning
	}

	return nil
}

func (f *fakeService) Stop(context.Context) error {
	*f.ops = append(*f.ops, "stop")
	f.state = pkg.HealthStopped

	return nil
}

func (f *fakeService) Status(context.Context) (pkg.HealthState, error) {
	*f.ops = append(*f.ops, "status")
	return f.state, nil
}

// newTestRunner builds a runner against fakes and a temp journal.
func newTestRunner(t *testing.T, manager *fakeManager, service *fakeService) (*runner, string) {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.Config{
		ArchiveCacheDir: filepath.Join(dir, "cache"),
		BackupDir:       filepath.Join(dir, "backups"),
		JournalFile:     filepath.Join(dir, "run.log"),
	}
	require.NoError(t, config.Validate(cfg))

	return &runner{
		cfg:     cfg,
		record:  journal.New(cfg.JournalFile, false),
		manager: manager,
		service: service,
	}, cfg.JournalFile
}

func journalText(t *testing.T, path string) string {
	t.Helper()

	contents, err := os.ReadFile(path)
	require.NoError(t, err)

	return string(contents)
}

// TestRunNothingToDo verifies that equal versions skip stop and upgrade and
// the run still checks service health.
func TestRunNothingToDo(t *testing.T) {
	t.Parallel()

	ops := []string{}
	manager := &fakeManager{installed: "2.426.3", candidate: "2.426.3", ops: &ops}
	service := &fakeService{state: pkg.HealthRunning, ops: &ops}

	u, journalPath := newTestRunner(t, manager, service)

	require.NoError(t, u.Run(context.Background()))
	require.NotContains(t, ops, "stop")
	require.NotContains(t, ops, "upgrade")

	text := journalText(t, journalPath)
	require.Contains(t, text, "INFO Nothing to do")
	require.Contains(t, text, "SUCCESS Update run finished")
}

// TestRunUpgradeOrdering verifies the service is stopped and confirmed
// stopped before the upgrade call is issued, then restarted.
func TestRunUpgradeOrdering(t *testing.T) {
	t.Parallel()

	ops := []string{}
	manager := &fakeManager{installed: "2.426.2", candidate: "2.426.3", ops: &ops}
	service := &fakeService{state: pkg.HealthRunning, ops: &ops}

	u, journalPath := newTestRunner(t, manager, service)

	require.NoError(t, u.Run(context.Background()))

	indexOf := func(op string) int {
		for i, o := range ops {
			if o == op {
				return i
			}
		}

		t.Fatalf("operation %q not recorded in %v", op, ops)

		return -1
	}

	stopAt := indexOf("stop")
	upgradeAt := indexOf("upgrade")
	startAt := indexOf("start")
	require.Less(t, stopAt, upgradeAt)
	require.Less(t, upgradeAt, startAt)

	// The stopped state must be confirmed between stop and upgrade.
	confirmed := false
	for _, op := range ops[stopAt+1 : upgradeAt] {
		if op == "status" {
			confirmed = true
		}
	}
	require.True(t, confirmed)

	text := journalText(t, journalPath)
	require.Contains(t, text, "SUCCESS Package jenkins updated to 2.426.3")
}

// TestRunUnknownCandidateSkipsUpgrade treats an undeterminable candidate as
// nothing to do rather than a failure.
func TestRunUnknownCandidateSkipsUpgrade(t *testing.T) {
	t.Parallel()

	ops := []string{}
	manager := &fakeManager{installed: "2.426.3", candidate: "", ops: &ops}
	service := &fakeService{state: pkg.HealthRunning, ops: &ops}

	u, _ := newTestRunner(t, manager, service)

	require.NoError(t, u.Run(context.Background()))
	require.NotContains(t, ops, "upgrade")
}

// TestRunRefreshFailureAborts ensures a failed index refresh stops the run
// before any version query.
func TestRunRefreshFailureAborts(t *testing.T) {
	t.Parallel()

	ops := []string{}
	manager := &fakeManager{refreshErr: errors.New("mirror unreachable"), ops: &ops}
	service := &fakeService{state: pkg.HealthRunning, ops: &ops}

	u, journalPath := newTestRunner(t, manager, service)

	require.Error(t, u.Run(context.Background()))
	require.NotContains(t, ops, "query-installed")
	require.Contains(t, journalText(t, journalPath), "ERROR Failed to refresh package index")
}

// TestRunServiceNotRunningFails ensures an unhealthy post-upgrade service
// fails the run with an ERROR record line.
func TestRunServiceNotRunningFails(t *testing.T) {
	t.Parallel()

	ops := []string{}
	manager := &fakeManager{installed: "2.426.2", candidate: "2.426.3", ops: &ops}
	service := &fakeService{state: pkg.HealthRunning, startStuck: true, ops: &ops}

	u, journalPath := newTestRunner(t, manager, service)

	err := u.Run(context.Background())
	require.ErrorIs(t, err, common.ErrServiceNotRunning)
	require.Contains(t, journalText(t, journalPath), "ERROR Failed to verify service running")
}

// TestFailKeepsStepCause ensures the step error survives even when the run
// record itself cannot be written.
func TestFailKeepsStepCause(t *testing.T) {
	t.Parallel()

	ops := []string{}
	u, _ := newTestRunner(t, &fakeManager{ops: &ops}, &fakeService{ops: &ops})
	u.record = journal.New(filepath.Join(t.TempDir(), "missing", "run.log"), false)

	cause := errors.New("dpkg database is locked")
	err := u.fail(context.Background(), "upgrade package", cause)
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "run record")
}

// TestRunTwiceSecondIsNoop models the back-to-back scenario: an upgrade run
// followed by a run with no new candidate.
func TestRunTwiceSecondIsNoop(t *testing.T) {
	t.Parallel()

	ops := []string{}
	manager := &fakeManager{installed: "2.426.2", candidate: "2.426.3", ops: &ops}
	service := &fakeService{state: pkg.HealthRunning, ops: &ops}

	u, journalPath := newTestRunner(t, manager, service)
	require.NoError(t, u.Run(context.Background()))

	// Second run: the upgrade took effect and no new candidate appeared.
	manager.installed = "2.426.3"
	require.NoError(t, u.Run(context.Background()))

	text := journalText(t, journalPath)
	require.Contains(t, text, "SUCCESS Package jenkins updated to 2.426.3")
	require.Contains(t, text, "INFO Nothing to do")
}
