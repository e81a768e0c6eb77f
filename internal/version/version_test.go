package version

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestShortIsRelease(t *testing.T) {
	t.Parallel()

	require.Equal(t, Version, Short())
}

func TestFullIncludesBuildMetadata(t *testing.T) {
	t.Parallel()

	full := Full()
	require.Contains(t, full, "jenkins-updater")
	require.Contains(t, full, Short())
	require.Contains(t, full, Commit)
	require.Contains(t, full, BuildTime)
}
