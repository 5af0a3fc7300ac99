package mcversion

import (
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
)

// CacheFile is the file name of the persisted release/schema version pairs inside the cache directory.
const CacheFile = "world_version_cache.csv"

var cacheHeader = []string{"release", "schema_version"}

// Cache holds release/schema version pairs learned from the network. Both directions are guarded by one
// lock so they never disagree.
type Cache struct {
	path string

	mu        sync.RWMutex
	byRelease map[string]int
	bySchema  map[int]string
}

// NewCache returns an empty cache that persists to path.
func NewCache(path string) *Cache {
	return &Cache{
		path:      path,
		byRelease: make(map[string]int),
		bySchema:  make(map[int]string),
	}
}

// LoadCache reads the cache file at path. A missing or unreadable file yields an empty cache.
func LoadCache(path string) *Cache {
	c := NewCache(path)
	if err := c.load(); err != nil {
		c.byRelease = make(map[string]int)
		c.bySchema = make(map[int]string)
	}
	return c
}

func (c *Cache) load() error {
	file, err := os.Open(c.path)
	if err != nil {
		return err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	r.ReuseRecord = true
	if _, err := r.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if len(record) < 2 {
			continue
		}
		schema, err := strconv.Atoi(record[1])
		if err != nil {
			return err
		}
		c.put(record[0], schema)
	}
}

// Path returns the file the cache persists to.
func (c *Cache) Path() string {
	return c.path
}

// Len returns the number of releases in the cache.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byRelease)
}

func (c *Cache) put(release string, schema int) {
	c.byRelease[release] = schema
	c.bySchema[schema] = release
}

// Save writes every pair to the cache file, preceded by a header line.
func (c *Cache) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.save()
}

func (c *Cache) save() error {
	releases := make([]string, 0, len(c.byRelease))
	for release := range c.byRelease {
		releases = append(releases, release)
	}
	sort.Slice(releases, func(i, j int) bool {
		return c.byRelease[releases[i]] < c.byRelease[releases[j]] ||
			(c.byRelease[releases[i]] == c.byRelease[releases[j]] && releases[i] < releases[j])
	})

	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(c.path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(file)
	w.Write(cacheHeader)
	for _, release := range releases {
		w.Write([]string{release, strconv.Itoa(c.byRelease[release])})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
