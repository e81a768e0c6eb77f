package aptitude

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adichiru/jenkins-auto-update/internal/execx"
)

// fakeRunner scripts command outcomes keyed by program name and records
// every invocation.
type fakeRunner struct {
	results map[string]*execx.Result
	errs    map[string]error
	calls   []execx.Command
}

func (f *fakeRunner) Run(_ context.Context, cmd execx.Command) (*execx.Result, error) {
	f.calls = append(f.calls, cmd)

	if err, ok := f.errs[cmd.Program]; ok {
		return f.results[cmd.Program], err
	}

	if result, ok := f.results[cmd.Program]; ok {
		return result, nil
	}

	return &execx.Result{}, nil
}

// TestInstalledVersion covers installed, not-installed and failing queries.
func TestInstalledVersion(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	runner := &fakeRunner{
		results: map[string]*execx.Result{
			"dpkg-query": {Stdout: "2.426.3\n"},
		},
	}

	version, err := New("jenkins", runner).InstalledVersion(ctx)
	require.NoError(t, err)
	require.Equal(t, "2.426.3", string(version))

	// dpkg-query exits 1 for an unknown package: empty version, no error.
	runner = &fakeRunner{
		results: map[string]*execx.Result{
			"dpkg-query": {ExitCode: 1},
		},
		errs: map[string]error{
			"dpkg-query": errors.New("exit status 1"),
		},
	}

	version, err = New("jenkins", runner).InstalledVersion(ctx)
	require.NoError(t, err)
	require.True(t, version.Unknown())

	// Anything else is a genuine failure.
	runner = &fakeRunner{
		results: map[string]*execx.Result{
			"dpkg-query": {ExitCode: -1},
		},
		errs: map[string]error{
			"dpkg-query": errors.New("executable not found"),
		},
	}

	_, err = New("jenkins", runner).InstalledVersion(ctx)
	require.Error(t, err)
}

// TestCandidateVersion parses apt-cache policy output shapes.
func TestCandidateVersion(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	cases := map[string]struct {
		output string
		want   string
	}{
		"candidate present": {
			output: "jenkins:\n  Installed: 2.426.2\n  Candidate: 2.426.3\n  Version table:\n",
			want:   "2.426.3",
		},
		"no candidate": {
			output: "jenkins:\n  Installed: (none)\n  Candidate: (none)\n",
			want:   "",
		},
		"unknown package": {
			output: "",
			want:   "",
		},
	}

	for name, tc := range cases {
		runner := &fakeRunner{
			results: map[string]*execx.Result{
				"apt-cache": {Stdout: tc.output},
			},
		}

		version, err := New("jenkins", runner).CandidateVersion(ctx)
		require.NoError(t, err, name)
		require.Equal(t, tc.want, string(version), name)
	}
}

// TestRefreshIndexChecked ensures a failed index refresh surfaces as an error.
func TestRefreshIndexChecked(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{
		errs: map[string]error{
			"apt-get": errors.New("exit status 100"),
		},
	}

	require.Error(t, New("jenkins", runner).RefreshIndex(context.Background()))
}

// TestUpgradeOnlyInvocation checks the non-interactive only-upgrade shape.
func TestUpgradeOnlyInvocation(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}

	require.NoError(t, New("jenkins", runner).UpgradeOnly(context.Background()))
	require.Len(t, runner.calls, 1)

	call := runner.calls[0]
	require.Equal(t, "apt-get", call.Program)
	require.Equal(t, "noninteractive", call.Env["DEBIAN_FRONTEND"])

	joined := strings.Join(call.Args, " ")
	require.Contains(t, joined, "--assume-yes")
	require.Contains(t, joined, "install --only-upgrade jenkins")
}

// TestInstallArchiveInvocation checks the dpkg force-downgrade shape.
func TestInstallArchiveInvocation(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{}

	require.NoError(t, New("jenkins", runner).InstallArchive(context.Background(), "/tmp/jenkins_2.426.2_all.deb"))
	require.Len(t, runner.calls, 1)

	call := runner.calls[0]
	require.Equal(t, "dpkg", call.Program)
	require.Equal(t, []string{"-i", "--force-downgrade", "/tmp/jenkins_2.426.2_all.deb"}, call.Args)
}
