package mcversion

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"go.uber.org/zap"
)

var ErrChecksumMismatch = errors.New("mcversion: downloaded jar does not match its checksum")

// Downloader is a Fetcher that can also store raw files. *fetch.Client implements it.
type Downloader interface {
	Fetcher
	Download(ctx context.Context, url, dst string) error
}

// Jars locates client jars, either in the launcher's install or in the cache directory, and downloads
// missing ones into the cache directory.
type Jars struct {
	fetcher     Downloader
	cacheDir    string
	launcherDir string
	manifestURL string
	log         *zap.Logger
}

// NewJars creates a jar locator. An empty launcherDir disables the launcher lookup.
func NewJars(fetcher Downloader, cacheDir, launcherDir string, log *zap.Logger) *Jars {
	if log == nil {
		log = zap.NewNop()
	}
	return &Jars{
		fetcher:     fetcher,
		cacheDir:    cacheDir,
		launcherDir: launcherDir,
		manifestURL: DefaultManifestURL,
		log:         log,
	}
}

// SetManifestURL overrides where the version manifest is fetched from.
func (j *Jars) SetManifestURL(url string) {
	j.manifestURL = url
}

// LauncherDir returns the official launcher's data directory for the current platform, if it exists.
func LauncherDir() (string, bool) {
	var candidates []string
	home, err := os.UserHomeDir()
	switch runtime.GOOS {
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			candidates = append(candidates, filepath.Join(appData, ".minecraft"))
		}
		if err == nil {
			candidates = append(candidates, filepath.Join(home, ".minecraft"))
		}
	case "darwin":
		if err == nil {
			candidates = append(candidates,
				filepath.Join(home, "Library", "Application Support", "minecraft"),
				filepath.Join(home, ".minecraft"))
		}
	default:
		if err == nil {
			candidates = append(candidates, filepath.Join(home, ".minecraft"))
		}
	}
	for _, dir := range candidates {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir, true
		}
	}
	return "", false
}

func (j *Jars) cachedPath(version string) string {
	return filepath.Join(j.cacheDir, version+".jar")
}

// Existing returns a jar for version that is already on disk, preferring the launcher's copy.
func (j *Jars) Existing(version string) (string, bool) {
	if j.launcherDir != "" {
		path := filepath.Join(j.launcherDir, "versions", version, version+".jar")
		if fileExists(path) {
			return path, true
		}
	}
	path := j.cachedPath(version)
	if fileExists(path) {
		return path, true
	}
	return "", false
}

// Download makes sure the cache directory holds the client jar of version and returns its path. A cached
// jar whose checksum matches the manifest is reused.
func (j *Jars) Download(ctx context.Context, version string) (string, error) {
	var manifest Manifest
	if err := j.fetcher.FetchJSON(ctx, manifestKey, j.manifestURL, false, &manifest); err != nil {
		return "", fmt.Errorf("could not fetch version manifest: %w", err)
	}
	entry, ok := manifest.Find(version)
	if !ok {
		return "", fmt.Errorf("%w: %s is not in the manifest", ErrVersionNotFound, version)
	}

	var details VersionDetails
	if err := j.fetcher.FetchJSON(ctx, version+".json", entry.URL, false, &details); err != nil {
		return "", fmt.Errorf("could not fetch details of %s: %w", version, err)
	}
	client := details.Downloads.Client

	path := j.cachedPath(version)
	if sum, err := sha1File(path); err == nil && sum == client.SHA1 {
		return path, nil
	}

	j.log.Info("downloading client jar", zap.String("version", version), zap.Int64("size", client.Size))
	if err := j.fetcher.Download(ctx, client.URL, path); err != nil {
		return "", err
	}
	sum, err := sha1File(path)
	if err != nil {
		return "", err
	}
	if sum != client.SHA1 {
		os.Remove(path)
		return "", fmt.Errorf("%w: %s has sha1 %s, expected %s", ErrChecksumMismatch, version, sum, client.SHA1)
	}
	return path, nil
}

func sha1File(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	h := sha1.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
