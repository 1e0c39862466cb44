package cachestore_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelforge/reelforge/internal/cachestore"
	"github.com/reelforge/reelforge/internal/httpx"
)

func TestGetCachedFetchesOnceThenServesFromDisk(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write([]byte("playlist body"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	c := cachestore.New(dir, httpx.New(time.Second, 1), time.Hour, false)

	body1, err := c.GetCached(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "playlist body", body1)

	body2, err := c.GetCached(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "playlist body", body2)

	assert.Equal(t, 1, hits, "second call must be served from the on-disk cache")
}

func TestIgnoreCacheAlwaysFetchesLive(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write([]byte("body"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	c := cachestore.New(dir, httpx.New(time.Second, 1), time.Hour, true)

	_, err := c.GetCached(context.Background(), srv.URL)
	require.NoError(t, err)
	_, err = c.GetCached(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, 2, hits)
}

func TestZeroByteCacheFileTreatedAsAbsent(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write([]byte("fresh body"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	c := cachestore.New(dir, httpx.New(time.Second, 1), time.Hour, false)

	path := c.PathFor(srv.URL)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	body, err := c.GetCached(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "fresh body", body)
	assert.Equal(t, 1, hits)
}

func TestExpiredEntryTriggersLiveFetch(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write([]byte("body"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	c := cachestore.New(dir, httpx.New(time.Second, 1), time.Millisecond, false)

	_, err := c.GetCached(context.Background(), srv.URL)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	_, err = c.GetCached(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 2, hits)
}
