package resolver_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelforge/reelforge/internal/resolver"
)

type stubProvider struct {
	name    string
	entries []resolver.CatalogEntry
	err     error
}

func (s *stubProvider) Name() string { return s.name }
func (s *stubProvider) Search(ctx context.Context, keyword string) ([]resolver.CatalogEntry, error) {
	return s.entries, s.err
}
func (s *stubProvider) Episodes(ctx context.Context, entryID string) ([]resolver.Episode, error) {
	return nil, nil
}
func (s *stubProvider) StreamURL(ctx context.Context, episodeID string) (string, map[string]string, error) {
	return "", nil, nil
}

func TestSearchWithExplicitSrc(t *testing.T) {
	m := resolver.NewManager()
	m.Register(&stubProvider{name: "alpha", entries: []resolver.CatalogEntry{{Source: "alpha", Title: "A"}}})
	m.Register(&stubProvider{name: "beta", entries: []resolver.CatalogEntry{{Source: "beta", Title: "B"}}})

	results, err := m.Search(context.Background(), "x", "alpha")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "alpha", results[0].Source)
}

func TestSearchUnknownSrcErrors(t *testing.T) {
	m := resolver.NewManager()
	m.Register(&stubProvider{name: "alpha"})

	_, err := m.Search(context.Background(), "x", "nonexistent")
	assert.Error(t, err)
}

func TestSearchFansOutAcrossAllProviders(t *testing.T) {
	m := resolver.NewManager()
	m.Register(&stubProvider{name: "alpha", entries: []resolver.CatalogEntry{{Source: "alpha", Title: "A"}}})
	m.Register(&stubProvider{name: "beta", entries: []resolver.CatalogEntry{{Source: "beta", Title: "B"}}})

	results, err := m.Search(context.Background(), "x", "")
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestSearchReturnsErrorWhenAllProvidersFail(t *testing.T) {
	m := resolver.NewManager()
	m.Register(&stubProvider{name: "alpha", err: assert.AnError})

	_, err := m.Search(context.Background(), "x", "")
	assert.Error(t, err)
}
