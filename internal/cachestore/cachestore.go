// Package cachestore implements an on-disk, content-addressed response
// cache keyed on SHA-256(url). Playlist text (master and media) passes
// through it, so a rerun of the same job against a warm cache directory
// refetches no unchanged playlist. AES keys, segment bytes and resolver
// HTML are fetched through the Requestor directly and are not cached here.
package cachestore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"time"

	"github.com/reelforge/reelforge/internal/httpx"
	"github.com/reelforge/reelforge/internal/xlog"
)

// Cache wraps a Requestor with a TTL-by-mtime on-disk cache.
type Cache struct {
	dir        string
	requestor  *httpx.Requestor
	ttl        time.Duration
	ignoreRead bool
}

// New creates a Cache rooted at dir (created on first write if absent).
// ttl <= 0 means entries never expire by age. ignoreCache, when true,
// bypasses reads from disk (always live-fetches) but still writes fresh
// bodies back, matching a `--nocache` CLI flag.
func New(dir string, requestor *httpx.Requestor, ttl time.Duration, ignoreCache bool) *Cache {
	return &Cache{dir: dir, requestor: requestor, ttl: ttl, ignoreRead: ignoreCache}
}

// keyFor returns the on-disk path for rawURL: SHA-256 hex digest under dir.
func (c *Cache) keyFor(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:]))
}

// GetCached fetches rawURL as text, using the disk cache when fresh. A
// zero-byte cache file is treated as absent rather than as an empty body
// (spec.md §9 Open Question: zero-length cache bodies): write stores an
// empty fetched body as a zero-byte file, and serving it would never
// trigger a refetch.
func (c *Cache) GetCached(ctx context.Context, rawURL string) (string, error) {
	body, err := c.GetCachedBytes(ctx, rawURL)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// GetCachedBytes is GetCached returning the raw bytes; hls.Resolve calls
// it for playlist bodies.
func (c *Cache) GetCachedBytes(ctx context.Context, rawURL string) ([]byte, error) {
	path := c.keyFor(rawURL)

	if !c.ignoreRead {
		if data, ok := c.readFresh(path); ok {
			return data, nil
		}
	}

	data, err := c.requestor.GetBytes(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	c.write(path, data)
	return data, nil
}

// readFresh returns the cached bytes and true if path exists, is within
// TTL, and is non-empty. Any read error is logged and treated as a miss —
// cache corruption must never be fatal to the job.
func (c *Cache) readFresh(path string) ([]byte, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}
	if info.Size() == 0 {
		return nil, false
	}
	if c.ttl > 0 && time.Since(info.ModTime()) > c.ttl {
		return nil, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		xlog.Warnf("cache read failed for %s: %v", path, err)
		return nil, false
	}
	return data, true
}

// write persists data to path. Failures are logged, never fatal: a cache
// miss on the next run is an acceptable cost, losing the download is not.
func (c *Cache) write(path string, data []byte) {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		xlog.Warnf("cache mkdir failed for %s: %v", c.dir, err)
		return
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		xlog.Warnf("cache write failed for %s: %v", path, err)
		return
	}
	if err := os.Rename(tmp, path); err != nil {
		xlog.Warnf("cache rename failed for %s: %v", path, err)
	}
}

// PathFor exposes the deterministic on-disk path for rawURL, letting a
// caller (mainly tests) seed or inspect a cache entry without duplicating
// the digest logic in keyFor.
func (c *Cache) PathFor(rawURL string) string {
	return c.keyFor(rawURL)
}
