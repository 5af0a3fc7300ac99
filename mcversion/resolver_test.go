package mcversion

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/astei/anvilview/fetch"
	"github.com/astei/anvilview/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	mu        sync.Mutex
	docs      map[string]any
	files     map[string][]byte
	calls     map[string]int
	downloads int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		docs:  make(map[string]any),
		files: make(map[string][]byte),
		calls: make(map[string]int),
	}
}

func (f *fakeFetcher) FetchJSON(_ context.Context, key, _ string, _ bool, v any) error {
	f.mu.Lock()
	f.calls[key]++
	doc, ok := f.docs[key]
	f.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", fetch.ErrFetchFailed, key)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func (f *fakeFetcher) Download(_ context.Context, url, dst string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads++
	data, ok := f.files[url]
	if !ok {
		return fmt.Errorf("%w: %s", fetch.ErrFetchFailed, url)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

func (f *fakeFetcher) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeFetcher) report(release string, schema int) {
	f.docs[release+"_burger.json"] = map[string]any{"version": map[string]any{"data": schema}}
}

type syntheticVersion struct {
	id     string
	kind   string
	schema int // 0 when no report exists
}

// Releases after the cutoff, in release order. Two entries have no report.
var synthetic = []syntheticVersion{
	{"1.12", "release", 1139},
	{"17w43a", "snapshot", 1444},
	{"17w45a", "snapshot", 0},
	{"1.13-pre1", "snapshot", 1501},
	{"1.13", "release", 1519},
	{"1.13.1", "release", 0},
	{"1.13.2", "release", 1631},
	{"1.14", "release", 1952},
}

func syntheticFetcher() *fakeFetcher {
	f := newFakeFetcher()
	var m Manifest
	m.Latest.Release = "1.14"
	m.Latest.Snapshot = "1.14"
	// one entry from before the cutoff, which the search must ignore
	m.Versions = append(m.Versions, ManifestVersion{ID: "1.11", Type: "release", ReleaseTime: time.Date(2016, 11, 14, 0, 0, 0, 0, time.UTC)})
	start := time.Date(2017, 6, 1, 0, 0, 0, 0, time.UTC)
	// manifest order is newest first; the search must sort by release time
	for i := len(synthetic) - 1; i >= 0; i-- {
		v := synthetic[i]
		m.Versions = append(m.Versions, ManifestVersion{
			ID:          v.id,
			Type:        v.kind,
			URL:         "https://example.invalid/" + v.id + ".json",
			ReleaseTime: start.Add(time.Duration(i) * 24 * time.Hour),
		})
		if v.schema != 0 {
			f.report(v.id, v.schema)
		}
	}
	f.docs[manifestKey] = m
	return f
}

func newTestResolver(t *testing.T, f Fetcher, opts ...Option) *Resolver {
	return NewResolver(f, LoadCache(filepath.Join(t.TempDir(), CacheFile)), opts...)
}

func TestStaticTableWithoutNetwork(t *testing.T) {
	f := newFakeFetcher()
	r := newTestResolver(t, f)
	ctx := context.Background()

	schema, err := r.SchemaVersion(ctx, "1.9")
	require.NoError(t, err)
	assert.Equal(t, 169, schema)

	release, err := r.Release(ctx, 169)
	require.NoError(t, err)
	assert.Equal(t, "1.9", release)

	release, err = r.Release(ctx, 921)
	require.NoError(t, err)
	assert.Equal(t, "1.11.1", release)

	// 15w33a and 15w33b share 111
	release, err = r.Release(ctx, 111)
	require.NoError(t, err)
	assert.Equal(t, "15w33b", release)
	schema, err = r.SchemaVersion(ctx, "15w33a")
	require.NoError(t, err)
	assert.Equal(t, 111, schema)

	release, err = r.Release(ctx, AbsentSchemaVersion)
	require.NoError(t, err)
	assert.Equal(t, AbsentRelease, release)

	_, err = r.Release(ctx, 500)
	assert.ErrorIs(t, err, ErrVersionNotFound)

	assert.Zero(t, f.totalCalls())
}

func TestSchemaVersionFetchesAndCaches(t *testing.T) {
	f := syntheticFetcher()
	m := metrics.New(nil)
	path := filepath.Join(t.TempDir(), "cache", CacheFile)
	r := NewResolver(f, LoadCache(path), WithMetrics(m))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			schema, err := r.SchemaVersion(context.Background(), "1.13")
			assert.NoError(t, err)
			assert.Equal(t, 1519, schema)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, f.calls["1.13_burger.json"])
	assert.Equal(t, 1.0, testutil.ToFloat64(m.VersionLookups.WithLabelValues("report")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.VersionLookups.WithLabelValues("cache")))

	// the learned pair was persisted and answers the reverse lookup without the manifest
	reloaded := NewResolver(newFakeFetcher(), LoadCache(path))
	release, err := reloaded.Release(context.Background(), 1519)
	require.NoError(t, err)
	assert.Equal(t, "1.13", release)

	_, err = r.SchemaVersion(context.Background(), "1.13.1")
	assert.ErrorIs(t, err, fetch.ErrFetchFailed)
}

func TestSchemaVersionIgnoresSaveFailure(t *testing.T) {
	f := syntheticFetcher()
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))
	r := NewResolver(f, LoadCache(filepath.Join(blocker, CacheFile)))

	schema, err := r.SchemaVersion(context.Background(), "1.14")
	require.NoError(t, err)
	assert.Equal(t, 1952, schema)
}

func TestReleaseSearch(t *testing.T) {
	cases := []struct {
		name   string
		schema int
		want   string
	}{
		{"latest release", 1952, "1.14"},
		{"stable exact", 1519, "1.13"},
		{"stable exact behind unresolvable midpoint", 1631, "1.13.2"},
		{"snapshot exact", 1444, "17w43a"},
		{"snapshot exact at gap edge", 1501, "1.13-pre1"},
		{"gap next to unresolvable snapshot", 1450, "1.13-pre1"},
		{"gap closer to lower bound", 1140, "1.12"},
		{"gap next to unresolvable release", 1600, "1.13.2"},
		{"gap closer to upper bound", 1900, "1.14"},
		{"beyond newest", 2000, "1.14"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestResolver(t, syntheticFetcher())
			release, err := r.Release(context.Background(), tc.schema)
			require.NoError(t, err)
			assert.Equal(t, tc.want, release)
		})
	}
}

func TestReleaseWithoutManifest(t *testing.T) {
	r := newTestResolver(t, newFakeFetcher())
	_, err := r.Release(context.Background(), 3465)
	assert.ErrorIs(t, err, fetch.ErrFetchFailed)
}

func TestReleaseEmptyManifest(t *testing.T) {
	f := newFakeFetcher()
	f.docs[manifestKey] = Manifest{}
	r := newTestResolver(t, f)
	_, err := r.Release(context.Background(), 3465)
	assert.ErrorIs(t, err, ErrVersionNotFound)
}

func TestReleaseCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := newTestResolver(t, syntheticFetcher())
	_, err := r.Release(ctx, 1500)
	assert.ErrorIs(t, err, context.Canceled)
}
