package webz

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"news-bureau/config"
	"news-bureau/providers"
	"news-bureau/transport"
)

// Fetcher queries the Webz.io news search API through the shared transport.
type Fetcher struct {
	Config *config.Config
	Client *transport.Client
	Logger *zap.Logger
}

// NewFetcher creates a new Webz.io fetcher.
func NewFetcher(cfg *config.Config, client *transport.Client, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Client: client, Logger: logger}
}

// Name returns the provider name.
func (f *Fetcher) Name() string {
	return "webz"
}

// Search issues the first query for one day window.
func (f *Fetcher) Search(ctx context.Context, token string, q providers.SearchQuery) (*providers.Page, error) {
	searchURL := f.buildSearchURL(token, q)
	f.Logger.Debug("Calling Webz search URL", zap.String("url", transport.RedactKey(searchURL, token)))
	return f.fetchPage(ctx, searchURL)
}

// FetchNext follows a pagination cursor from a previous page.
func (f *Fetcher) FetchNext(ctx context.Context, token, next string) (*providers.Page, error) {
	next = absoluteCursor(next)
	f.Logger.Debug("Following Webz pagination cursor", zap.String("url", transport.RedactKey(next, token)))
	return f.fetchPage(ctx, next)
}

// absoluteCursor resolves the relative pagination path the API returns
// against its host.
func absoluteCursor(next string) string {
	if strings.HasPrefix(next, "http://") || strings.HasPrefix(next, "https://") {
		return next
	}
	return "https://api.webz.io" + next
}

func (f *Fetcher) fetchPage(ctx context.Context, pageURL string) (*providers.Page, error) {
	resp, err := f.Client.Get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode webz response: %w", err)
	}

	if sr.RequestsLeft > 0 {
		f.Logger.Info("Webz quota remaining", zap.Int("requests_left", sr.RequestsLeft))
	}

	page := &providers.Page{Next: sr.Next, RequestsLeft: sr.RequestsLeft}
	for _, p := range sr.Posts {
		page.Posts = append(page.Posts, mapPostToCandidate(&p))
	}
	return page, nil
}

// buildSearchURL builds the query URL for one day. The ts parameter is the
// day start in epoch milliseconds; highlight markup is requested so keyword
// context survives into the stored excerpt.
func (f *Fetcher) buildSearchURL(token string, q providers.SearchQuery) string {
	v := url.Values{}
	v.Set("token", token)
	v.Set("q", buildQuery(q))
	v.Set("ts", fmt.Sprintf("%d", dayStart(q.Day).UnixMilli()))
	v.Set("highlight", "true")
	return f.Config.WebzBaseURL + "?" + v.Encode()
}

func buildQuery(q providers.SearchQuery) string {
	base := "iran category:politics"
	if len(q.Keywords) > 0 {
		base = fmt.Sprintf("(iran) AND (%s)", strings.Join(q.Keywords, " OR "))
	}
	return fmt.Sprintf("%s language:%s", base, q.Language)
}

func dayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// mapPostToCandidate normalizes a raw API post: highlight markup stripped,
// published timestamp parsed with a now() fallback for malformed dates.
func mapPostToCandidate(p *post) providers.Candidate {
	c := providers.Candidate{
		Title:            strings.TrimSpace(p.Title),
		HighlightedTitle: stripHTML(p.HighlightTitle),
		HighlightText:    stripHTML(p.HighlightText),
		URL:              strings.TrimSpace(p.URL),
		ThreadURL:        p.Thread.URL,
		Language:         p.Language,
		Sentiment:        p.Sentiment,
		DomainRank:       p.Thread.DomainRank,
		Categories:       p.Categories,
		Published:        parsePublished(p.Published),
	}
	return c
}

// stripHTML flattens the highlight markup the API returns into plain text.
func stripHTML(s string) string {
	if s == "" || !strings.Contains(s, "<") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(doc.Text())
}

func parsePublished(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Now().UTC()
}
