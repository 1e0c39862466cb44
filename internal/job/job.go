// Package job wires the Requestor, Response Cache, Playlist Parser, Key
// Cache, Segment Downloader, and Assembler into the single PlaylistJob
// lifecycle spec.md describes end to end (spec §3-§4, §4.7 Lifecycle). A
// URI that never decodes as a playlist at all falls back to a direct
// progressive download instead of failing the job.
package job

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/reelforge/reelforge/internal/assemble"
	"github.com/reelforge/reelforge/internal/cachestore"
	"github.com/reelforge/reelforge/internal/fetcher"
	"github.com/reelforge/reelforge/internal/hls"
	"github.com/reelforge/reelforge/internal/httpx"
	"github.com/reelforge/reelforge/internal/progressive"
	"github.com/reelforge/reelforge/internal/progressui"
	"github.com/reelforge/reelforge/internal/xlog"
)

// Config configures a PlaylistJob. Defaults mirror spec.md §3's PlaylistJob
// field defaults.
type Config struct {
	URI         string
	SaveFile    string
	CacheDir    string // default ".cache"
	TryCount    int    // default -1 (unlimited)
	TimeoutS    int    // default 0 (no per-attempt timeout)
	CLimit      int    // default 32
	IgnoreCache bool
	Observer    progressui.ProgressObserver
}

func (c *Config) applyDefaults() {
	if c.CacheDir == "" {
		c.CacheDir = ".cache"
	}
	if c.TryCount == 0 {
		c.TryCount = -1
	}
	if c.CLimit <= 0 {
		c.CLimit = 32
	}
	if c.Observer == nil {
		c.Observer = progressui.Noop{}
	}
}

// PlaylistJob runs one URI-to-output-file acquisition end to end.
type PlaylistJob struct {
	cfg Config
}

// New constructs a PlaylistJob, applying Config defaults.
func New(cfg Config) *PlaylistJob {
	cfg.applyDefaults()
	return &PlaylistJob{cfg: cfg}
}

// Run executes the full pipeline: resolve playlist, download segments,
// assemble, and clean up incomplete artifacts on any exit path.
func (j *PlaylistJob) Run(ctx context.Context) (err error) {
	timeout := time.Duration(j.cfg.TimeoutS) * time.Second
	requestor := httpx.New(timeout, j.cfg.TryCount)
	cache := cachestore.New(j.cfg.CacheDir, requestor, 0, j.cfg.IgnoreCache)
	keys := hls.NewKeyCache(requestor)

	playlist, err := hls.Resolve(ctx, cache, j.cfg.URI)
	if err != nil {
		if errors.Is(err, hls.ErrNotPlaylist) {
			xlog.Debugf("%s did not parse as an HLS playlist, falling back to a direct download: %v", j.cfg.URI, err)
			return progressive.Download(ctx, requestor, j.cfg.URI, j.cfg.SaveFile, progressive.Options{
				MaxRetries: j.cfg.TryCount,
				Observer:   j.cfg.Observer,
			})
		}
		return err
	}

	downloader := fetcher.New(requestor, keys, fetcher.Options{
		Concurrency: j.cfg.CLimit,
		MaxRetries:  j.cfg.TryCount,
		CacheDir:    j.cfg.CacheDir,
		Observer:    j.cfg.Observer,
	})

	tasks, err := downloader.Run(ctx, playlist)
	if err != nil {
		j.cleanupSegments(tasks)
		j.cleanupIntermediate()
		return err
	}

	defer func() {
		j.cleanupIntermediate()
		if err != nil {
			j.cleanupSegments(tasks)
		}
	}()

	return assemble.Assemble(ctx, tasks, j.cfg.CacheDir, j.cfg.URI, j.cfg.SaveFile)
}

// cleanupSegments removes any non-DONE segment file, per spec.md §4.7: only
// incomplete per-job download artifacts are discarded. Cache entries for
// HLS bodies (playlist/key text) are never touched here, and DONE segments
// are retained to form the resumable cache.
func (j *PlaylistJob) cleanupSegments(tasks []*fetcher.Task) {
	for _, t := range tasks {
		if t.State != fetcher.StateDone {
			if err := os.Remove(t.Path); err != nil && !os.IsNotExist(err) {
				xlog.Debugf("cleanup: could not remove %s: %v", t.Path, err)
			}
		}
	}
}

// cleanupIntermediate removes this job's concatenated-stream intermediate
// file unconditionally (success or failure): once produced, its only
// purpose was to feed ffmpeg, and spec.md §4.7 retains it nowhere.
func (j *PlaylistJob) cleanupIntermediate() {
	intermediate := assemble.IntermediatePath(j.cfg.CacheDir, j.cfg.URI)
	if err := os.Remove(intermediate); err != nil && !os.IsNotExist(err) {
		xlog.Debugf("cleanup: could not remove intermediate %s: %v", intermediate, err)
	}
}
