package assemble_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelforge/reelforge/internal/assemble"
	"github.com/reelforge/reelforge/internal/fetcher"
	"github.com/reelforge/reelforge/internal/hls"
)

func writeSegment(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestAssembleConcatenatesInOrder(t *testing.T) {
	dir := t.TempDir()
	tasks := []*fetcher.Task{
		{Segment: hls.Segment{Index: 0}, Path: writeSegment(t, dir, "a.ts", "AAA"), State: fetcher.StateDone},
		{Segment: hls.Segment{Index: 1}, Path: writeSegment(t, dir, "b.ts", "BBB"), State: fetcher.StateDone},
	}

	output := filepath.Join(dir, "out.ts")
	err := assemble.Assemble(context.Background(), tasks, dir, "http://example.com/stream.m3u8", output)
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "AAABBB", string(data))
}

func TestAssembleRejectsIncompleteTasks(t *testing.T) {
	dir := t.TempDir()
	tasks := []*fetcher.Task{
		{Segment: hls.Segment{Index: 0}, Path: writeSegment(t, dir, "a.ts", "AAA"), State: fetcher.StateDone},
		{Segment: hls.Segment{Index: 1}, Path: filepath.Join(dir, "missing.ts"), State: fetcher.StateFailed},
	}

	output := filepath.Join(dir, "out.ts")
	err := assemble.Assemble(context.Background(), tasks, dir, "http://example.com/stream.m3u8", output)
	assert.Error(t, err)
	_, statErr := os.Stat(output)
	assert.True(t, os.IsNotExist(statErr), "output must not be written when a segment is incomplete")
}

func TestIntermediatePathIsDeterministic(t *testing.T) {
	a := assemble.IntermediatePath("/cache", "http://example.com/x.m3u8")
	b := assemble.IntermediatePath("/cache", "http://example.com/x.m3u8")
	c := assemble.IntermediatePath("/cache", "http://example.com/y.m3u8")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
