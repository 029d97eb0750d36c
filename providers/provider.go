package providers

import (
	"context"
	"time"
)

// Candidate is one normalized raw article returned by a search provider,
// before dedup and scoring.
type Candidate struct {
	Title            string
	HighlightedTitle string
	HighlightText    string
	URL              string
	ThreadURL        string
	Language         string
	Sentiment        string
	DomainRank       int
	Categories       []string
	Published        time.Time
}

// Page is one page of search results. Next is an opaque pagination cursor,
// empty when the source is exhausted.
type Page struct {
	Posts        []Candidate
	Next         string
	RequestsLeft int
}

// SearchQuery describes one day of a search run.
type SearchQuery struct {
	Language string
	Day      time.Time
	Keywords []string
}

// Provider is implemented by every news search source. The API token is
// passed per call so key rotation stays with the caller.
type Provider interface {
	Name() string
	Search(ctx context.Context, token string, q SearchQuery) (*Page, error)
	FetchNext(ctx context.Context, token, next string) (*Page, error)
}
