// Package fetch downloads remote JSON documents into a local cache directory and re-validates them with
// entity tags, so repeated runs only transfer documents that changed.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/astei/anvilview/metrics"
	cache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

var ErrFetchFailed = errors.New("fetch: remote document could not be retrieved")

// Markers only need to outlive one run of the tool.
const (
	markerExpiration = 6 * time.Hour
	markerCleanup    = 30 * time.Minute
)

// Client fetches documents into dir. A document fetched once is served from disk for the rest of the
// client's lifetime unless a refresh is forced.
type Client struct {
	http    *http.Client
	dir     string
	fetched *cache.Cache
	log     *zap.Logger
	metrics *metrics.Metrics
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func New(dir string, opts ...Option) *Client {
	c := &Client{
		http:    http.DefaultClient,
		dir:     dir,
		fetched: cache.New(markerExpiration, markerCleanup),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dir returns the cache directory.
func (c *Client) Dir() string {
	return c.dir
}

func (c *Client) path(key string) string {
	return filepath.Join(c.dir, key)
}

func (c *Client) etagPath(key string) string {
	path := c.path(key)
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".etag"
}

// FetchJSON decodes the document at url into v, keeping its body under key in the cache directory.
//
// Unless force is set, a document already retrieved by this client is read straight from disk, and
// otherwise the request carries the stored entity tag. A 200 replaces the stored body and tag. Any other
// status serves the stored body; when a 304 arrives without a usable stored body the request is repeated
// without the tag.
func (c *Client) FetchJSON(ctx context.Context, key, url string, force bool, v any) error {
	if _, ok := c.fetched.Get(key); ok && !force {
		if err := c.readCached(key, v); err == nil {
			c.metrics.Fetched("cached")
			return nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	if !force {
		if etag, err := os.ReadFile(c.etagPath(key)); err == nil {
			req.Header.Set("If-None-Match", strings.TrimSpace(string(etag)))
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.Fetched("error")
		return fmt.Errorf("%w: %s: %v", ErrFetchFailed, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			c.metrics.Fetched("error")
			return fmt.Errorf("%w: %s: %v", ErrFetchFailed, url, err)
		}
		if err := json.Unmarshal(body, v); err != nil {
			c.metrics.Fetched("error")
			return fmt.Errorf("%w: %s: %v", ErrFetchFailed, url, err)
		}
		if err := c.store(key, body, resp.Header.Get("ETag")); err != nil {
			c.log.Debug("could not cache document", zap.String("key", key), zap.Error(err))
		}
		c.fetched.SetDefault(key, struct{}{})
		c.metrics.Fetched("ok")
		return nil
	}

	err = c.readCached(key, v)
	if err == nil {
		c.fetched.SetDefault(key, struct{}{})
		if resp.StatusCode == http.StatusNotModified {
			c.metrics.Fetched("not_modified")
		} else {
			c.log.Warn("serving stale document",
				zap.String("url", url),
				zap.Int("status", resp.StatusCode))
			c.metrics.Fetched("stale")
		}
		return nil
	}
	if resp.StatusCode == http.StatusNotModified && !force {
		c.log.Debug("cached document is unusable, refetching", zap.String("key", key), zap.Error(err))
		return c.FetchJSON(ctx, key, url, true, v)
	}
	c.metrics.Fetched("error")
	return fmt.Errorf("%w: %s: status %d", ErrFetchFailed, url, resp.StatusCode)
}

func (c *Client) readCached(key string, v any) error {
	body, err := os.ReadFile(c.path(key))
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}

func (c *Client) store(key string, body []byte, etag string) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(c.path(key), body, 0o644); err != nil {
		return err
	}
	if etag == "" {
		return nil
	}
	return os.WriteFile(c.etagPath(key), []byte(etag), 0o644)
}

// Download writes the resource at url to dst. The file is written next to dst and renamed into place
// once complete.
func (c *Client) Download(ctx context.Context, url, dst string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.Fetched("error")
		return fmt.Errorf("%w: %s: %v", ErrFetchFailed, url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.metrics.Fetched("error")
		return fmt.Errorf("%w: %s: status %d", ErrFetchFailed, url, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".*.part")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		c.metrics.Fetched("error")
		return fmt.Errorf("%w: %s: %v", ErrFetchFailed, url, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return err
	}
	c.log.Debug("downloaded", zap.String("url", url), zap.String("path", dst), zap.Int64("bytes", n))
	c.metrics.Fetched("ok")
	return nil
}
