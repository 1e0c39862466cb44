// Package hls parses M3U8 playlists and resolves the AES-128 key material
// that protects individual segments. Parsing itself is delegated to
// grafov/m3u8; this package owns variant selection, base-URL resolution
// of relative segment/key URIs, and key caching.
package hls

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/grafov/m3u8"

	"github.com/reelforge/reelforge/internal/cachestore"
	"github.com/reelforge/reelforge/internal/rferrors"
	"github.com/reelforge/reelforge/internal/xlog"
)

// ErrNotPlaylist marks a URI whose body failed to decode as any kind of
// HLS playlist at all, as opposed to one that decoded but turned out
// structurally empty (no variants, no segments). internal/job checks for
// this with errors.Is to decide whether to fall back to a direct
// (non-HLS) progressive download of the same URI instead of failing the
// whole job.
var ErrNotPlaylist = errors.New("not an HLS playlist")

// KeySpec describes the AES-128 key protecting a run of segments.
// Unencrypted segments carry no KeySpec (Segment.Key is nil).
type KeySpec struct {
	Method string // always "AES-128"; other methods produce no KeySpec
	URI    string
	IV     [16]byte
}

// Segment is one media segment in playlist order.
type Segment struct {
	Index    int
	URI      string
	Duration float64
	Key      *KeySpec // nil if unencrypted
}

// Playlist is a fully resolved media playlist: absolute segment and key
// URIs, in the order they must be assembled.
type Playlist struct {
	Segments []Segment
}

// Resolve fetches uri (through cache) and returns its resolved media
// playlist. If uri names a master playlist, the FIRST listed variant is
// selected and recursed into; there is no bandwidth-based adaptive
// selection.
func Resolve(ctx context.Context, cache *cachestore.Cache, uri string) (*Playlist, error) {
	return resolve(ctx, cache, uri, 0)
}

const maxVariantDepth = 5

func resolve(ctx context.Context, cache *cachestore.Cache, uri string, depth int) (*Playlist, error) {
	if depth > maxVariantDepth {
		return nil, rferrors.New(rferrors.URI, nil, "master playlist variant chain too deep")
	}

	body, err := cache.GetCachedBytes(ctx, uri)
	if err != nil {
		return nil, err
	}

	playlist, listType, err := m3u8.DecodeFrom(strings.NewReader(string(body)), true)
	if err != nil {
		return nil, rferrors.New(rferrors.URI, fmt.Errorf("%w: %w", ErrNotPlaylist, err), "decoding playlist "+uri)
	}

	base, err := url.Parse(uri)
	if err != nil {
		return nil, rferrors.New(rferrors.URIParse, err, uri)
	}

	switch listType {
	case m3u8.MASTER:
		master := playlist.(*m3u8.MasterPlaylist)
		variant := firstVariant(master)
		if variant == nil {
			return nil, rferrors.New(rferrors.URI, nil, "master playlist has no variants")
		}
		variantURL, err := base.Parse(variant.URI)
		if err != nil {
			return nil, rferrors.New(rferrors.URIParse, err, variant.URI)
		}
		return resolve(ctx, cache, variantURL.String(), depth+1)

	case m3u8.MEDIA:
		media := playlist.(*m3u8.MediaPlaylist)
		return buildPlaylist(media, base)

	default:
		return nil, rferrors.New(rferrors.URI, nil, "unrecognized playlist type for "+uri)
	}
}

// firstVariant returns the first non-nil variant rather than the
// highest-bandwidth selection a player would normally perform.
func firstVariant(master *m3u8.MasterPlaylist) *m3u8.Variant {
	for _, v := range master.Variants {
		if v != nil {
			return v
		}
	}
	return nil
}

func buildPlaylist(media *m3u8.MediaPlaylist, base *url.URL) (*Playlist, error) {
	out := &Playlist{}
	idx := 0
	// grafov/m3u8 attaches an EXT-X-KEY only to the first segment after the
	// tag; the key stays in effect for later segments until the next tag.
	var key *KeySpec
	for _, seg := range media.Segments {
		if seg == nil || seg.URI == "" {
			continue
		}

		if seg.Key != nil {
			key = nil
			if seg.Key.Method != "" && seg.Key.Method != "NONE" {
				k, err := resolveKeySpec(seg.Key, base)
				if err != nil {
					return nil, err
				}
				key = k
			}
		}

		segURL, err := base.Parse(seg.URI)
		if err != nil {
			xlog.Warnf("skipping segment with unparsable URI %q: %v", seg.URI, err)
			continue
		}

		out.Segments = append(out.Segments, Segment{
			Index:    idx,
			URI:      segURL.String(),
			Duration: seg.Duration,
			Key:      key,
		})
		idx++
	}

	if len(out.Segments) == 0 {
		return nil, rferrors.New(rferrors.URI, nil, "media playlist has no segments")
	}
	return out, nil
}

// resolveKeySpec converts a grafov/m3u8 Key into our KeySpec, resolving a
// relative key URI against base and parsing the IV. Non-AES-128 methods
// return a nil KeySpec (segment treated as unencrypted) with a warning log
// rather than a hard error.
func resolveKeySpec(key *m3u8.Key, base *url.URL) (*KeySpec, error) {
	if key.Method != "AES-128" {
		xlog.Warnf("unsupported key method %q on %s, treating segment as unencrypted", key.Method, base.String())
		return nil, nil
	}

	keyURL, err := base.Parse(key.URI)
	if err != nil {
		return nil, rferrors.New(rferrors.URIParse, err, key.URI)
	}

	iv, err := parseIV(key.IV)
	if err != nil {
		return nil, rferrors.New(rferrors.URI, err, "invalid IV on key "+key.URI)
	}

	return &KeySpec{Method: "AES-128", URI: keyURL.String(), IV: iv}, nil
}

// parseIV parses the hex IV from an EXT-X-KEY tag, tolerating an optional
// "0x"/"0X" prefix. An empty IV defaults to sixteen zero bytes, matching
// the HLS spec's implicit-IV behavior when none is supplied.
func parseIV(raw string) ([16]byte, error) {
	var iv [16]byte
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "0x"), "0X")
	if raw == "" {
		return iv, nil
	}
	if len(raw) != 32 {
		return iv, rferrors.New(rferrors.URI, nil, "IV must be 32 hex chars, got "+strconv.Itoa(len(raw)))
	}
	for i := 0; i < 16; i++ {
		b, err := strconv.ParseUint(raw[i*2:i*2+2], 16, 8)
		if err != nil {
			return iv, err
		}
		iv[i] = byte(b)
	}
	return iv, nil
}
