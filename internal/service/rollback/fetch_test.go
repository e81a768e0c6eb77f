package rollback

import (
	"context"
	"crypto/sha512"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestFetchStagesArchive downloads an archive into the staging directory.
func TestFetchStagesArchive(t *testing.T) {
	t.Parallel()

	payload := []byte("deb-payload")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/binary/jenkins_2.426.2_all.deb", r.URL.Path)
		_, _ = w.Write(payload)
	}))
	t.Cleanup(server.Close)

	dir := t.TempDir()

	staged, err := newHTTPFetcher(server.URL+"/binary").Fetch(
		context.Background(), "jenkins_2.426.2_all.deb", dir, "")
	require.NoError(t, err)

	contents, err := os.ReadFile(staged)
	require.NoError(t, err)
	require.Equal(t, payload, contents)
}

// TestFetchBadStatus surfaces non-200 responses as errors.
func TestFetchBadStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	t.Cleanup(server.Close)

	_, err := newHTTPFetcher(server.URL).Fetch(
		context.Background(), "jenkins_0.0.0_all.deb", t.TempDir(), "")
	require.ErrorIs(t, err, errBadHTTPStatus)
}

// TestFetchVerifiedChecksum accepts a matching checksum and rejects a wrong one.
func TestFetchVerifiedChecksum(t *testing.T) {
	t.Parallel()

	payload := []byte("deb-payload")
	digest := sha512.Sum512(payload)
	good := base64.StdEncoding.EncodeToString(digest[:])
	bad := base64.StdEncoding.EncodeToString(make([]byte, sha512.Size))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(payload)
	}))
	t.Cleanup(server.Close)

	fetcher := newHTTPFetcher(server.URL)

	staged, err := fetcher.Fetch(context.Background(), "jenkins_2.426.2_all.deb", t.TempDir(), good)
	require.NoError(t, err)

	contents, err := os.ReadFile(staged)
	require.NoError(t, err)
	require.Equal(t, payload, contents)

	_, err = fetcher.Fetch(context.Background(), "jenkins_2.426.2_all.deb", t.TempDir(), bad)
	require.Error(t, err)
}
