package httpx_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelforge/reelforge/internal/httpx"
	"github.com/reelforge/reelforge/internal/rferrors"
)

func TestGetReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	r := httpx.New(2*time.Second, 2)
	body, err := r.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "hello", body)
}

func TestGetDoesNotRetryOnHTTPError(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	r := httpx.New(2*time.Second, 3)
	_, err := r.Get(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Equal(t, rferrors.ResponseFailed, rferrors.KindOf(err))
	assert.Equal(t, 1, hits, "a 4xx/5xx status must not be retried")
}

func TestPostSendsFormEncodedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "bar", r.FormValue("foo"))
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	r := httpx.New(2*time.Second, 0)
	body, err := r.Post(context.Background(), srv.URL, url.Values{"foo": {"bar"}})
	require.NoError(t, err)
	assert.Equal(t, "ok", body)
}

func TestGetExhaustsRetryBudgetOnTransportError(t *testing.T) {
	r := httpx.New(100*time.Millisecond, 1)
	// A closed listener address guarantees a transport-level connection
	// refusal rather than any HTTP response.
	_, err := r.Get(context.Background(), "http://127.0.0.1:1")
	require.Error(t, err)
	assert.Equal(t, rferrors.RequestOutOfTry, rferrors.KindOf(err))
}
