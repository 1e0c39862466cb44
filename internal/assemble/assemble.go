// Package assemble implements the Assembler (spec §4.6): it concatenates
// downloaded segments in playlist order into an intermediate file, then
// shells out to ffmpeg to remux into the requested container when the
// output extension calls for it (MP4).
package assemble

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/reelforge/reelforge/internal/fetcher"
	"github.com/reelforge/reelforge/internal/rferrors"
	"github.com/reelforge/reelforge/internal/xlog"
)

// Assemble concatenates tasks (which must already be in playlist order) and
// writes the result to output. If output's extension is .mp4, an
// intermediate concatenated file is built first and remuxed via ffmpeg;
// otherwise the concatenation is written directly to output.
//
// Any task not in fetcher.StateDone aborts assembly with an Incomplete
// error (spec §4.6 Integrity check) — assembling past a gap would produce
// a silently corrupt file.
func Assemble(ctx context.Context, tasks []*fetcher.Task, cacheDir, playlistURL, output string) error {
	for _, t := range tasks {
		if t.State != fetcher.StateDone {
			return rferrors.New(rferrors.Incomplete, t.Err, "segment not complete, refusing to assemble")
		}
	}

	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return rferrors.New(rferrors.CreateFile, err, "creating output directory")
	}

	if strings.EqualFold(filepath.Ext(output), ".mp4") {
		intermediate := IntermediatePath(cacheDir, playlistURL)
		if err := concat(tasks, intermediate); err != nil {
			return err
		}
		return transcode(ctx, intermediate, output)
	}

	return concat(tasks, output)
}

// IntermediatePath is the deterministic concatenated-stream location for
// playlistURL, content-addressed the same way cachestore addresses bodies.
// Exported so PlaylistJob.cleanupIntermediate (internal/job) can remove
// exactly this job's intermediate file
// without sweeping the whole intermediate directory.
func IntermediatePath(cacheDir, playlistURL string) string {
	sum := sha256.Sum256([]byte(playlistURL))
	return filepath.Join(cacheDir, "intermediate", hex.EncodeToString(sum[:])+".ts")
}

func concat(tasks []*fetcher.Task, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return rferrors.New(rferrors.CreateFile, err, "creating intermediate directory")
	}

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return rferrors.New(rferrors.CreateFile, err, dest)
	}
	defer func() { _ = out.Close() }()

	for _, t := range tasks {
		if err := appendSegment(out, t.Path); err != nil {
			return err
		}
	}
	return nil
}

func appendSegment(out *os.File, path string) error {
	in, err := os.Open(path)
	if err != nil {
		return rferrors.New(rferrors.IO, err, path)
	}
	defer func() { _ = in.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return rferrors.New(rferrors.IO, err, path)
	}
	return nil
}

// transcode invokes ffmpeg to remux intermediate (raw concatenated
// transport stream) into output without re-encoding.
func transcode(ctx context.Context, intermediate, output string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y",
		"-loglevel", "error",
		"-i", intermediate,
		"-c", "copy",
		"-bsf:a", "aac_adtstoasc",
		output,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		xlog.Errorf("ffmpeg failed: %s", stderr.String())
		return rferrors.New(rferrors.IO, err, "ffmpeg: "+stderr.String())
	}
	return nil
}
