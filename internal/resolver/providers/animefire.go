// Package providers hosts concrete resolver.Provider adaptors for
// catalog sites.
package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/reelforge/reelforge/internal/httpx"
	"github.com/reelforge/reelforge/internal/resolver"
	"github.com/reelforge/reelforge/internal/rferrors"
)

const animefireBase = "https://animefire.plus"

// Animefire resolves catalog entries on animefire.plus via HTML scraping.
type Animefire struct {
	requestor *httpx.Requestor
	baseURL   string
}

// NewAnimefire constructs the animefire.plus provider.
func NewAnimefire(requestor *httpx.Requestor) *Animefire {
	requestor.SetHeader("Referer", animefireBase+"/")
	return &Animefire{requestor: requestor, baseURL: animefireBase}
}

func (a *Animefire) Name() string { return "animefire" }

func (a *Animefire) Search(ctx context.Context, keyword string) ([]resolver.CatalogEntry, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(keyword)), " ", "-")
	searchURL := fmt.Sprintf("%s/pesquisar/%s", a.baseURL, normalized)

	body, err := a.requestor.Get(ctx, searchURL)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, rferrors.New(rferrors.IO, err, "parsing animefire search page")
	}
	if isChallengePage(doc) {
		return nil, rferrors.New(rferrors.ResponseFailed, nil, "animefire returned an anti-bot challenge page")
	}

	var entries []resolver.CatalogEntry
	doc.Find(".row.ml-1.mr-1 a").Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		title := strings.TrimSpace(s.Text())
		if !ok || title == "" {
			return
		}
		entries = append(entries, resolver.CatalogEntry{
			Source: a.Name(),
			ID:     a.resolveURL(href),
			Title:  title,
		})
	})

	if len(entries) == 0 {
		doc.Find(".card_ani").Each(func(_ int, s *goquery.Selection) {
			link := s.Find(".ani_name a")
			title := strings.TrimSpace(link.Text())
			href, ok := link.Attr("href")
			if !ok || title == "" {
				return
			}
			cover, _ := s.Find(".div_img img").Attr("src")
			entries = append(entries, resolver.CatalogEntry{
				Source:   a.Name(),
				ID:       a.resolveURL(href),
				Title:    title,
				CoverURL: a.resolveURL(cover),
			})
		})
	}

	return entries, nil
}

func (a *Animefire) Episodes(ctx context.Context, entryID string) ([]resolver.Episode, error) {
	body, err := a.requestor.Get(ctx, entryID)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, rferrors.New(rferrors.IO, err, "parsing animefire title page")
	}

	var episodes []resolver.Episode
	doc.Find("a.lEp").Each(func(i int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok {
			return
		}
		number := strings.TrimSpace(s.Text())
		episodes = append(episodes, resolver.Episode{
			ID:     a.resolveURL(href),
			Number: number,
			Title:  fmt.Sprintf("Episode %s", number),
		})
	})

	if len(episodes) == 0 {
		return nil, rferrors.New(rferrors.URI, nil, "no episodes found on animefire title page")
	}
	return episodes, nil
}

func (a *Animefire) StreamURL(ctx context.Context, episodeID string) (string, map[string]string, error) {
	body, err := a.requestor.Get(ctx, episodeID)
	if err != nil {
		return "", nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", nil, rferrors.New(rferrors.IO, err, "parsing animefire episode page")
	}

	var streamURL string
	doc.Find("video source").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src, ok := s.Attr("src")
		if ok && strings.Contains(src, ".m3u8") {
			streamURL = src
			return false
		}
		return true
	})
	if streamURL == "" {
		if src, ok := doc.Find("video").Attr("data-video-src"); ok {
			streamURL = src
		}
	}
	if streamURL == "" {
		return "", nil, rferrors.New(rferrors.URI, nil, "could not locate m3u8 source on animefire episode page")
	}

	return streamURL, map[string]string{"Referer": a.baseURL + "/"}, nil
}

func (a *Animefire) resolveURL(ref string) string {
	if ref == "" {
		return ref
	}
	if strings.HasPrefix(ref, "http") {
		return ref
	}
	if strings.HasPrefix(ref, "/") {
		return a.baseURL + ref
	}
	return a.baseURL + "/" + ref
}

func isChallengePage(doc *goquery.Document) bool {
	title := strings.ToLower(strings.TrimSpace(doc.Find("title").First().Text()))
	if strings.Contains(title, "just a moment") {
		return true
	}
	if doc.Find("#cf-wrapper").Length() > 0 || doc.Find("#challenge-form").Length() > 0 {
		return true
	}
	return strings.Contains(strings.ToLower(doc.Text()), "cf-error")
}
