package hls_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelforge/reelforge/internal/hls"
	"github.com/reelforge/reelforge/internal/httpx"
)

func TestKeyCacheDedupsConcurrentFetchesOfSameURI(t *testing.T) {
	var hits int32
	key := make([]byte, 16)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write(key)
	}))
	defer srv.Close()

	keys := hls.NewKeyCache(httpx.New(2*time.Second, 1))

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func() {
			_, err := keys.Get(context.Background(), srv.URL+"/key.bin")
			assert.NoError(t, err)
			done <- struct{}{}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "concurrent fetches of the same key URI must collapse to one request")
}

func TestKeyCacheRejectsWrongLengthKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("too-short"))
	}))
	defer srv.Close()

	keys := hls.NewKeyCache(httpx.New(2*time.Second, 1))
	_, err := keys.Get(context.Background(), srv.URL+"/key.bin")
	require.Error(t, err)
}
