// Package resolver generalizes catalog lookups for the (source, id)
// reference form spec.md §1/§6 describes: a Provider turns a search
// keyword into CatalogEntry results and a chosen entry into a concrete
// HLS playlist URL the download engine can consume directly.
package resolver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/reelforge/reelforge/internal/xlog"
)

// searchTimeout bounds a fan-out search across every registered provider.
const searchTimeout = 15 * time.Second

// CatalogEntry is one matched title from a provider's search results.
type CatalogEntry struct {
	Source   string
	ID       string
	Title    string
	Year     string
	CoverURL string
}

// Episode is one resolvable unit within a CatalogEntry (a season/episode
// pair for serialized content, or the single entry itself for a movie).
type Episode struct {
	ID     string
	Number string
	Title  string
}

// Provider is the capability set a catalog-site adaptor must implement.
type Provider interface {
	// Name is the provider's --src identifier.
	Name() string
	// Search returns matching CatalogEntries for keyword.
	Search(ctx context.Context, keyword string) ([]CatalogEntry, error)
	// Episodes lists the resolvable episodes under entryID.
	Episodes(ctx context.Context, entryID string) ([]Episode, error)
	// StreamURL resolves episodeID to a direct HLS playlist URL plus any
	// headers (Referer, cookies) the Requestor must send alongside it.
	StreamURL(ctx context.Context, episodeID string) (string, map[string]string, error)
}

// Manager dispatches Search calls across registered Providers and looks
// providers up by name.
type Manager struct {
	providers map[string]Provider
}

// NewManager builds a Manager with no providers registered; call Register
// for each provider the build supports.
func NewManager() *Manager {
	return &Manager{providers: make(map[string]Provider)}
}

// Register adds p under its own Name(). A later Register with the same
// name replaces the earlier one.
func (m *Manager) Register(p Provider) {
	m.providers[p.Name()] = p
}

// Names returns the registered provider identifiers, for CLI flag
// validation (`--src` must be one of these).
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.providers))
	for name := range m.providers {
		names = append(names, name)
	}
	return names
}

// Get returns the provider registered under name.
func (m *Manager) Get(name string) (Provider, error) {
	p, ok := m.providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", name)
	}
	return p, nil
}

// Search queries a single named provider, or every registered provider
// concurrently (with a shared timeout) when src is empty.
func (m *Manager) Search(ctx context.Context, keyword, src string) ([]CatalogEntry, error) {
	if src != "" {
		p, err := m.Get(src)
		if err != nil {
			return nil, err
		}
		return p.Search(ctx, keyword)
	}

	ctx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	type result struct {
		name    string
		entries []CatalogEntry
		err     error
	}

	resultCh := make(chan result, len(m.providers))
	var wg sync.WaitGroup
	for name, p := range m.providers {
		wg.Add(1)
		go func(name string, p Provider) {
			defer wg.Done()
			entries, err := p.Search(ctx, keyword)
			resultCh <- result{name: name, entries: entries, err: err}
		}(name, p)
	}
	go func() {
		wg.Wait()
		close(resultCh)
	}()

	var all []CatalogEntry
	var failures int
	for res := range resultCh {
		if res.err != nil {
			xlog.Warnf("provider %s search failed: %v", res.name, res.err)
			failures++
			continue
		}
		all = append(all, res.entries...)
	}

	if len(all) == 0 {
		if failures == len(m.providers) {
			return nil, fmt.Errorf("no provider returned results for %q", keyword)
		}
		return nil, fmt.Errorf("no matches for %q", keyword)
	}
	return all, nil
}
