// Package mcversion maps Minecraft release identifiers to the schema (data) versions stored in saves, and
// back. Lookups go through a compiled-in table, then a persisted cache, then the network.
package mcversion

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/astei/anvilview/metrics"
	"go.uber.org/zap"
)

const (
	// AbsentSchemaVersion stands in for saves written before schema versions existed.
	AbsentSchemaVersion = 99
	// AbsentRelease is the release reported for AbsentSchemaVersion.
	AbsentRelease = "1.8.9"
)

var ErrVersionNotFound = errors.New("mcversion: version not found")

// Fetcher retrieves a JSON document, caching it under key. *fetch.Client implements it.
type Fetcher interface {
	FetchJSON(ctx context.Context, key, url string, force bool, v any) error
}

type Resolver struct {
	fetcher     Fetcher
	cache       *Cache
	manifestURL string
	reportURL   string
	log         *zap.Logger
	metrics     *metrics.Metrics
}

type Option func(*Resolver)

func WithManifestURL(url string) Option {
	return func(r *Resolver) { r.manifestURL = url }
}

// WithReportURL sets the per-release report location; it must contain one %s for the release id.
func WithReportURL(url string) Option {
	return func(r *Resolver) { r.reportURL = url }
}

func WithLogger(log *zap.Logger) Option {
	return func(r *Resolver) { r.log = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

func NewResolver(fetcher Fetcher, cache *Cache, opts ...Option) *Resolver {
	r := &Resolver{
		fetcher:     fetcher,
		cache:       cache,
		manifestURL: DefaultManifestURL,
		reportURL:   DefaultReportURL,
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SchemaVersion returns the schema version of a release. Versions learned from the network are added to
// the cache, which is then saved; a failed save is only logged.
func (r *Resolver) SchemaVersion(ctx context.Context, release string) (int, error) {
	if schema, ok := staticByRelease[release]; ok {
		r.metrics.VersionResolved("static")
		return schema, nil
	}

	r.cache.mu.RLock()
	schema, ok := r.cache.byRelease[release]
	r.cache.mu.RUnlock()
	if ok {
		r.metrics.VersionResolved("cache")
		return schema, nil
	}

	r.cache.mu.Lock()
	defer r.cache.mu.Unlock()
	if schema, ok := r.cache.byRelease[release]; ok {
		r.metrics.VersionResolved("cache")
		return schema, nil
	}

	var report schemaReport
	if err := r.fetcher.FetchJSON(ctx, release+"_burger.json", fmt.Sprintf(r.reportURL, release), false, &report); err != nil {
		return 0, fmt.Errorf("could not resolve schema version of %s: %w", release, err)
	}
	if report.Version.Data <= 0 {
		return 0, fmt.Errorf("%w: report for %s has no data version", ErrVersionNotFound, release)
	}

	r.cache.put(release, report.Version.Data)
	if err := r.cache.save(); err != nil {
		r.log.Debug("could not save version cache", zap.String("path", r.cache.path), zap.Error(err))
	}
	r.metrics.VersionResolved("report")
	return report.Version.Data, nil
}

// Release returns the release that introduced a schema version. Below the static table's ceiling only
// the table is consulted. Above it the manifest is binary-searched; when no release carries exactly that
// schema version, the nearer of the two releases around it is returned.
func (r *Resolver) Release(ctx context.Context, schema int) (string, error) {
	if schema == AbsentSchemaVersion {
		return AbsentRelease, nil
	}
	if schema < staticCeiling {
		if release, ok := staticBySchema[schema]; ok {
			r.metrics.VersionResolved("static")
			return release, nil
		}
		return "", fmt.Errorf("%w: schema version %d", ErrVersionNotFound, schema)
	}

	r.cache.mu.RLock()
	release, ok := r.cache.bySchema[schema]
	r.cache.mu.RUnlock()
	if ok {
		r.metrics.VersionResolved("cache")
		return release, nil
	}

	var manifest Manifest
	if err := r.fetcher.FetchJSON(ctx, manifestKey, r.manifestURL, false, &manifest); err != nil {
		return "", fmt.Errorf("could not fetch version manifest: %w", err)
	}

	s := &search{resolver: r, target: schema, probed: make(map[string]probe)}
	for _, latest := range []string{manifest.Latest.Release, manifest.Latest.Snapshot} {
		if got, ok := s.schemaOf(ctx, latest); ok && got == schema {
			r.metrics.VersionResolved("manifest")
			return latest, nil
		}
	}

	var versions []ManifestVersion
	for _, v := range manifest.Versions {
		if v.ReleaseTime.After(searchCutoff) {
			versions = append(versions, v)
		}
	}
	sort.SliceStable(versions, func(i, j int) bool { return versions[i].ReleaseTime.Before(versions[j].ReleaseTime) })
	var stable []ManifestVersion
	for _, v := range versions {
		if v.Stable() {
			stable = append(stable, v)
		}
	}

	id, low, high, err := s.run(ctx, stable, 0, len(stable))
	if err != nil {
		return "", err
	}
	if id != "" {
		r.metrics.VersionResolved("search")
		return id, nil
	}

	// Reopen the gap between the two stable releases with snapshots included.
	left, right := 0, len(versions)
	if low >= 0 {
		left = indexOf(versions, stable[low].ID)
	}
	if high < len(stable) {
		right = indexOf(versions, stable[high].ID)
	}
	r.log.Debug("searching snapshots",
		zap.Int("schema", schema),
		zap.Int("left", left),
		zap.Int("right", right))

	id, low, high, err = s.run(ctx, versions, left, right)
	if err != nil {
		return "", err
	}
	if id != "" {
		r.metrics.VersionResolved("search")
		return id, nil
	}

	id, ok = s.nearest(ctx, versions, low, high)
	if !ok {
		return "", fmt.Errorf("%w: schema version %d", ErrVersionNotFound, schema)
	}
	r.log.Debug("no exact release for schema version, using nearest",
		zap.Int("schema", schema),
		zap.String("release", id))
	r.metrics.VersionResolved("nearest")
	return id, nil
}

func indexOf(versions []ManifestVersion, id string) int {
	for i, v := range versions {
		if v.ID == id {
			return i
		}
	}
	return -1
}

type probe struct {
	schema int
	ok     bool
}

// search is one reverse lookup. Releases that cannot be resolved are remembered so they are only
// requested once.
type search struct {
	resolver *Resolver
	target   int
	probed   map[string]probe
}

func (s *search) schemaOf(ctx context.Context, release string) (int, bool) {
	if p, ok := s.probed[release]; ok {
		return p.schema, p.ok
	}
	schema, err := s.resolver.SchemaVersion(ctx, release)
	if err != nil {
		s.resolver.log.Debug("release has no schema version", zap.String("release", release), zap.Error(err))
	}
	p := probe{schema: schema, ok: err == nil}
	s.probed[release] = p
	return p.schema, p.ok
}

// run binary-searches versions[left:right) for the target. An unresolvable midpoint is replaced by the
// nearest resolvable entry after it, or failing that before it. Without an exact match it returns the
// indices of the closest resolvable entries at or below and at or above the target; either may lie
// outside the slice.
func (s *search) run(ctx context.Context, versions []ManifestVersion, left, right int) (string, int, int, error) {
	for left < right {
		if err := ctx.Err(); err != nil {
			return "", 0, 0, err
		}
		mid := (left + right) / 2
		schema, ok := s.schemaOf(ctx, versions[mid].ID)
		backwards := false
		for !ok {
			if !backwards {
				mid++
				if mid >= right {
					mid = (left + right) / 2
					backwards = true
				}
			}
			if backwards {
				mid--
				if mid < left {
					return "", left, right, nil
				}
			}
			schema, ok = s.schemaOf(ctx, versions[mid].ID)
		}

		if schema == s.target {
			return versions[mid].ID, mid, mid, nil
		}
		if schema < s.target {
			left = mid + 1
		} else {
			right = mid
		}
	}

	for left >= 0 {
		if left < len(versions) {
			if schema, ok := s.schemaOf(ctx, versions[left].ID); ok && schema <= s.target {
				break
			}
		}
		left--
	}
	for right < len(versions) {
		if right >= 0 {
			if schema, ok := s.schemaOf(ctx, versions[right].ID); ok && schema >= s.target {
				break
			}
		}
		right++
	}
	return "", left, right, nil
}

// nearest picks whichever gap boundary has the closer schema version. Ties, and boundaries that cannot be
// resolved, go to the later release. This is a best-effort answer, not an exact one.
func (s *search) nearest(ctx context.Context, versions []ManifestVersion, low, high int) (string, bool) {
	resolve := func(i int) (int, bool) {
		if i < 0 || i >= len(versions) {
			return 0, false
		}
		return s.schemaOf(ctx, versions[i].ID)
	}
	lowSchema, lowOK := resolve(low)
	highSchema, highOK := resolve(high)

	switch {
	case !lowOK && !highOK:
		if high >= 0 && high < len(versions) {
			return versions[high].ID, true
		}
		return "", false
	case !highOK:
		return versions[low].ID, true
	case !lowOK:
		return versions[high].ID, true
	case abs(s.target-lowSchema) < abs(highSchema-s.target):
		return versions[low].ID, true
	default:
		return versions[high].ID, true
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
