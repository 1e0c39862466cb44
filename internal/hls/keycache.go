package hls

import (
	"context"
	"sync"

	"github.com/reelforge/reelforge/internal/httpx"
	"github.com/reelforge/reelforge/internal/rferrors"
)

// KeyCache deduplicates AES-128 key fetches by key URI: many segments in a
// playlist typically share the same EXT-X-KEY, and the Segment Downloader's
// concurrent workers must not issue one HTTP request per segment for it.
//
// Key bodies are fetched straight through the Requestor, not the on-disk
// Response Cache: spec.md §4.4 is explicit that keys bypass the cache
// wrapper entirely ("no cache wrapper — keys are small and cheap"), unlike
// the HTML/playlist text the Response Cache exists for.
type KeyCache struct {
	requestor *httpx.Requestor

	mu   sync.Mutex
	keys map[string][]byte
}

// NewKeyCache wraps requestor with an in-process map so concurrent callers
// asking for the same key URI within one run block on a single fetch
// instead of racing.
func NewKeyCache(requestor *httpx.Requestor) *KeyCache {
	return &KeyCache{requestor: requestor, keys: make(map[string][]byte)}
}

// Get returns the 16-byte AES-128 key for uri, fetching and validating it
// on first use.
func (k *KeyCache) Get(ctx context.Context, uri string) ([]byte, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if key, ok := k.keys[uri]; ok {
		return key, nil
	}

	body, err := k.requestor.GetBytes(ctx, uri)
	if err != nil {
		return nil, err
	}
	if len(body) != 16 {
		return nil, rferrors.New(rferrors.Decrypt, nil, "AES-128 key must be 16 bytes")
	}

	k.keys[uri] = body
	return body, nil
}
