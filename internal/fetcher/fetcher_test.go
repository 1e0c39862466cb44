package fetcher_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelforge/reelforge/internal/fetcher"
	"github.com/reelforge/reelforge/internal/hls"
	"github.com/reelforge/reelforge/internal/httpx"
)

func buildPlaylist(n int, baseURL string) *hls.Playlist {
	segs := make([]hls.Segment, n)
	for i := 0; i < n; i++ {
		segs[i] = hls.Segment{Index: i, URI: fmt.Sprintf("%s/seg%d.ts", baseURL, i)}
	}
	return &hls.Playlist{Segments: segs}
}

func TestRunDownloadsAllSegmentsAndReportsDone(t *testing.T) {
	var inFlight, maxInFlight int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cur := atomic.AddInt32(&inFlight, 1)
		for {
			old := atomic.LoadInt32(&maxInFlight)
			if cur <= old || atomic.CompareAndSwapInt32(&maxInFlight, old, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		_, _ = w.Write([]byte("segment-data"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	requestor := httpx.New(time.Second, 0)
	keys := hls.NewKeyCache(requestor)
	d := fetcher.New(requestor, keys, fetcher.Options{Concurrency: 2, MaxRetries: 0, CacheDir: dir})

	playlist := buildPlaylist(6, srv.URL)
	tasks, err := d.Run(context.Background(), playlist)
	require.NoError(t, err)
	require.Len(t, tasks, 6)

	for _, task := range tasks {
		assert.Equal(t, fetcher.StateDone, task.State)
	}
	assert.LessOrEqual(t, int(atomic.LoadInt32(&maxInFlight)), 2, "concurrency must stay within the configured semaphore")
}

func TestRunSkipsAlreadyDownloadedSegment(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte("fresh-data"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	requestor := httpx.New(time.Second, 0)
	keys := hls.NewKeyCache(requestor)
	d := fetcher.New(requestor, keys, fetcher.Options{Concurrency: 1, MaxRetries: 0, CacheDir: dir})

	playlist := buildPlaylist(1, srv.URL)
	seg := playlist.Segments[0]
	preexisting := fetcher.SegmentPath(dir, seg.URI)
	require.NoError(t, os.MkdirAll(filepath.Dir(preexisting), 0o755))
	require.NoError(t, os.WriteFile(preexisting, []byte("already here"), 0o644))

	tasks, err := d.Run(context.Background(), playlist)
	require.NoError(t, err)
	assert.Equal(t, fetcher.StateDone, tasks[0].State)
	assert.Equal(t, int32(0), atomic.LoadInt32(&hits), "a resumable segment must not be re-fetched")
}

func TestRunMarksFailedSegmentAfterExhaustingRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	dir := t.TempDir()
	requestor := httpx.New(time.Second, 0)
	keys := hls.NewKeyCache(requestor)
	d := fetcher.New(requestor, keys, fetcher.Options{Concurrency: 1, MaxRetries: 0, CacheDir: dir})

	playlist := buildPlaylist(1, srv.URL)
	tasks, err := d.Run(context.Background(), playlist)
	require.NoError(t, err)
	assert.Equal(t, fetcher.StateFailed, tasks[0].State)
	assert.Error(t, tasks[0].Err)
}
