// Package httpx is the sole network entry point for reelforge. It issues
// GET/POST with bounded retry and a configurable per-attempt timeout,
// tolerating self-signed TLS the way HLS CDNs frequently serve it.
package httpx

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/reelforge/reelforge/internal/rferrors"
	"github.com/reelforge/reelforge/internal/xlog"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// backoff schedule for transport-error retries: capped exponential,
// so repeated failures don't hammer the origin at a fixed interval.
const (
	backoffBase = 500 * time.Millisecond
	backoffCap  = 30 * time.Second
)

// Requestor issues HTTP requests. One instance is shared (by reference)
// across an entire PlaylistJob; cloning would just bump a refcount, so
// there is no need to construct one per request.
type Requestor struct {
	client     *http.Client
	timeout    time.Duration
	maxRetries int // -1 means unlimited
	headers    map[string]string
}

// New creates a Requestor. timeout is the per-attempt deadline (0 disables
// it); maxRetries is the retry budget after the first attempt (-1 = unlimited).
func New(timeout time.Duration, maxRetries int) *Requestor {
	// HTTP/2 multiplexes many requests over one connection; CDNs serving
	// short-lived HLS segments frequently reset those streams under
	// concurrent load, so HTTP/1.1 (one connection per request) is forced.
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			MinVersion:         tls.VersionTLS12,
			InsecureSkipVerify: true, // #nosec G402 -- spec requires tolerating self-signed HLS/CDN certs
		},
		TLSNextProto:        make(map[string]func(string, *tls.Conn) http.RoundTripper),
		MaxIdleConns:        200,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     120 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	return &Requestor{
		client:     &http.Client{Transport: transport},
		timeout:    timeout,
		maxRetries: maxRetries,
		headers:    map[string]string{"User-Agent": defaultUserAgent},
	}
}

// SetHeader sets a default header applied to every request issued by this
// Requestor (e.g. a Referer required by a specific catalog site).
func (r *Requestor) SetHeader(key, value string) {
	r.headers[key] = value
}

// Get issues a GET and returns the body as text. Retries on transport
// errors up to maxRetries times with capped exponential backoff; does
// NOT retry on HTTP >= 400 (returns rferrors.ResponseFailed immediately).
func (r *Requestor) Get(ctx context.Context, rawURL string) (string, error) {
	body, err := r.GetBytes(ctx, rawURL)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// GetBytes is like Get but returns the raw body, used for binary content
// (AES key bodies).
func (r *Requestor) GetBytes(ctx context.Context, rawURL string) ([]byte, error) {
	return r.do(ctx, http.MethodGet, rawURL, nil)
}

// GetOnce issues exactly one GET attempt with no retry of its own. The
// Segment Downloader (internal/fetcher) calls this instead of GetBytes:
// its own completion handler already drives per-segment retry (spec.md
// §4.5), and wrapping that in Get's internal retry loop too would retry
// each segment attempt twice over, once per layer.
func (r *Requestor) GetOnce(ctx context.Context, rawURL string) ([]byte, error) {
	data, status, err := r.attempt(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		return nil, rferrors.ResponseFailedf(status)
	}
	return data, nil
}

// Head issues a HEAD request and returns the advertised Content-Length.
// Grounded on the original program's MP4Download::get_total_size (it used
// a HEAD request the same way to size a progress bar before a progressive,
// non-segmented download): a failed request or a response with no usable
// Content-Length both surface as rferrors.GetContentSize, matching
// spec.md §7's "HEAD failed or missing Content-Length" disposition for
// that error kind.
func (r *Requestor) Head(ctx context.Context, rawURL string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return 0, rferrors.New(rferrors.GetContentSize, err, rawURL)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, rferrors.New(rferrors.GetContentSize, err, rawURL)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return 0, rferrors.New(rferrors.GetContentSize, nil, fmt.Sprintf("HEAD %s returned status %d", rawURL, resp.StatusCode))
	}
	if resp.ContentLength <= 0 {
		return 0, rferrors.New(rferrors.GetContentSize, nil, "missing Content-Length for "+rawURL)
	}
	return resp.ContentLength, nil
}

// OpenStream issues a GET and returns the live response body for the
// caller to read incrementally, instead of buffering it whole like
// GetBytes/GetOnce. Used by the progressive (non-HLS) direct-file
// downloader (internal/progressive), grounded on the original program's
// MP4Download::download_task, which streamed a single large file straight
// to disk via bytes_stream() rather than reading it fully into memory
// first. The caller must Close the returned body; doing so also releases
// the per-attempt timeout context.
func (r *Requestor) OpenStream(ctx context.Context, rawURL string) (io.ReadCloser, int64, error) {
	reqCtx := ctx
	var cancel context.CancelFunc
	if r.timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, r.timeout)
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		if cancel != nil {
			cancel()
		}
		return nil, 0, rferrors.New(rferrors.URIParse, err, rawURL)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		if cancel != nil {
			cancel()
		}
		return nil, 0, rferrors.New(rferrors.Transport, err, rawURL)
	}
	if resp.StatusCode >= 400 {
		_ = resp.Body.Close()
		if cancel != nil {
			cancel()
		}
		return nil, 0, rferrors.ResponseFailedf(resp.StatusCode)
	}

	body := io.ReadCloser(resp.Body)
	if cancel != nil {
		body = &cancelOnCloseBody{ReadCloser: resp.Body, cancel: cancel}
	}
	return body, resp.ContentLength, nil
}

// cancelOnCloseBody cancels the per-attempt timeout context once the
// response body is closed, so a slow streaming read doesn't leak a
// context past its own request.
type cancelOnCloseBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnCloseBody) Close() error {
	defer b.cancel()
	return b.ReadCloser.Close()
}

// Post issues a form-encoded POST and returns the body as text. Retry
// semantics mirror Get.
func (r *Requestor) Post(ctx context.Context, rawURL string, form url.Values) (string, error) {
	body, err := r.do(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (r *Requestor) do(ctx context.Context, method, rawURL string, bodyFn io.Reader) ([]byte, error) {
	var bodyBytes []byte
	if bodyFn != nil {
		b, err := io.ReadAll(bodyFn)
		if err != nil {
			return nil, rferrors.New(rferrors.IO, err, "reading request body")
		}
		bodyBytes = b
	}

	attempt := 0
	for {
		data, status, err := r.attempt(ctx, method, rawURL, bodyBytes)
		if err == nil {
			if status >= 400 {
				return nil, rferrors.ResponseFailedf(status)
			}
			return data, nil
		}

		attempt++
		if r.maxRetries >= 0 && attempt > r.maxRetries {
			return nil, rferrors.RequestOutOfTryf(attempt)
		}

		delay := backoffBase << uint(attempt-1)
		if delay > backoffCap || delay <= 0 {
			delay = backoffCap
		}
		xlog.Debugf("transport error on attempt %d for %s: %v (retrying in %s)", attempt, rawURL, err, delay)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

// attempt performs exactly one HTTP round trip. The returned error is
// non-nil only for transport-level failures; HTTP status is reported via
// the status return value regardless of error.
func (r *Requestor) attempt(ctx context.Context, method, rawURL string, body []byte) ([]byte, int, error) {
	reqCtx := ctx
	var cancel context.CancelFunc
	if r.timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = strings.NewReader(string(body))
	}

	req, err := http.NewRequestWithContext(reqCtx, method, rawURL, bodyReader)
	if err != nil {
		return nil, 0, rferrors.New(rferrors.URIParse, err, rawURL)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, 0, rferrors.New(rferrors.Transport, err, rawURL)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, rferrors.New(rferrors.Transport, err, rawURL)
	}

	return data, resp.StatusCode, nil
}
