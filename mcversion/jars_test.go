package mcversion

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jarFetcher(content []byte, sha string) *fakeFetcher {
	f := newFakeFetcher()
	var m Manifest
	m.Versions = []ManifestVersion{{ID: "1.20.1", Type: "release", URL: "https://example.invalid/1.20.1.json"}}
	f.docs[manifestKey] = m

	var details VersionDetails
	details.Downloads.Client = Artifact{SHA1: sha, Size: int64(len(content)), URL: "https://example.invalid/client.jar"}
	f.docs["1.20.1.json"] = details
	f.files["https://example.invalid/client.jar"] = content
	return f
}

func sha1Hex(data []byte) string {
	sum := sha1.Sum(data)
	return hex.EncodeToString(sum[:])
}

func TestJarsDownload(t *testing.T) {
	content := []byte("PK\x03\x04client")
	f := jarFetcher(content, sha1Hex(content))
	cacheDir := t.TempDir()
	jars := NewJars(f, cacheDir, "", nil)

	_, ok := jars.Existing("1.20.1")
	assert.False(t, ok)

	path, err := jars.Download(context.Background(), "1.20.1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cacheDir, "1.20.1.jar"), path)
	assert.Equal(t, 1, f.downloads)

	// a matching jar is not downloaded again
	_, err = jars.Download(context.Background(), "1.20.1")
	require.NoError(t, err)
	assert.Equal(t, 1, f.downloads)

	existing, ok := jars.Existing("1.20.1")
	assert.True(t, ok)
	assert.Equal(t, path, existing)

	_, err = jars.Download(context.Background(), "1.99")
	assert.ErrorIs(t, err, ErrVersionNotFound)
}

func TestJarsChecksumMismatch(t *testing.T) {
	f := jarFetcher([]byte("truncated"), sha1Hex([]byte("the real jar")))
	cacheDir := t.TempDir()
	_, err := NewJars(f, cacheDir, "", nil).Download(context.Background(), "1.20.1")
	assert.ErrorIs(t, err, ErrChecksumMismatch)
	assert.NoFileExists(t, filepath.Join(cacheDir, "1.20.1.jar"))
}

func TestJarsPreferLauncher(t *testing.T) {
	launcher := t.TempDir()
	cacheDir := t.TempDir()
	jar := filepath.Join(launcher, "versions", "1.19.4", "1.19.4.jar")
	require.NoError(t, os.MkdirAll(filepath.Dir(jar), 0o755))
	require.NoError(t, os.WriteFile(jar, []byte("jar"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(cacheDir, "1.19.4.jar"), []byte("jar"), 0o644))

	path, ok := NewJars(newFakeFetcher(), cacheDir, launcher, nil).Existing("1.19.4")
	assert.True(t, ok)
	assert.Equal(t, jar, path)
}
