package progressive_test

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

	"github.com/reelforge/reelforge/internal/httpx"
	"github.com/reelforge/reelforge/internal/progressive"
)

func TestDownloadWritesFullBodyAndReportsByteProgress(t *testing.T) {
	body := []byte("direct-file-body-not-a-playlist")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "out.bin")

	var started, done bool
	var lastCompleted int
	observer := &fakeObserver{
		onStart: func(total int) { started = true },
		onAdvance: func(completed, total int, label string) {
			lastCompleted = completed
			assert.Equal(t, "bytes", label)
		},
		onDone: func(err error) { done = true; assert.NoError(t, err) },
	}

	requestor := httpx.New(time.Second, 0)
	err := progressive.Download(context.Background(), requestor, srv.URL, dest, progressive.Options{Observer: observer})
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, body, data)
	assert.True(t, started)
	assert.True(t, done)
	assert.Equal(t, len(body), lastCompleted)
}

func TestDownloadFailsWhenContentLengthMissing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.(http.Flusher).Flush()
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "out.bin")

	requestor := httpx.New(time.Second, 0)
	err := progressive.Download(context.Background(), requestor, srv.URL, dest, progressive.Options{})
	assert.Error(t, err)
}

type fakeObserver struct {
	onStart   func(total int)
	onAdvance func(completed, total int, label string)
	onDone    func(err error)
}

func (f *fakeObserver) Start(total int) {
	if f.onStart != nil {
		f.onStart(total)
	}
}

func (f *fakeObserver) Advance(completed, total int, label string) {
	if f.onAdvance != nil {
		f.onAdvance(completed, total, label)
	}
}

func (f *fakeObserver) Done(err error) {
	if f.onDone != nil {
		f.onDone(err)
	}
}
