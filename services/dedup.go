package services

import (
	"strings"
	"unicode"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"news-bureau/models"
	"news-bureau/providers"
)

// Deduper decides whether a candidate already exists in a bounded window of
// recent articles. The cheap exact-URL check runs first; only then does the
// fuzzy title/snippet comparison run.
type Deduper struct {
	// Similarity thresholds on a 0-100 scale.
	TitleThreshold   int
	SnippetThreshold int

	// Titles shorter than this after normalization never match each other,
	// so near-empty titles cannot collapse into one bucket.
	MinTitleLength int

	lev *metrics.Levenshtein
}

// NewDeduper builds a deduper with the given thresholds (0 picks the
// defaults: title 85, snippet 80).
func NewDeduper(titleThreshold, snippetThreshold int) *Deduper {
	if titleThreshold <= 0 {
		titleThreshold = 85
	}
	if snippetThreshold <= 0 {
		snippetThreshold = 80
	}
	lev := metrics.NewLevenshtein()
	lev.CaseSensitive = false
	return &Deduper{
		TitleThreshold:   titleThreshold,
		SnippetThreshold: snippetThreshold,
		MinTitleLength:   12,
		lev:              lev,
	}
}

// IsDuplicate reports whether the candidate matches any article in the
// window, by exact URL or by fuzzy title/snippet similarity.
func (d *Deduper) IsDuplicate(c providers.Candidate, window []models.News) bool {
	title := normalizeText(c.Title)
	snippet := normalizeText(c.HighlightText)
	if len(snippet) > 200 {
		snippet = snippet[:200]
	}

	for i := range window {
		existing := &window[i]

		if c.URL != "" && c.URL == existing.URL {
			return true
		}

		existingTitle := normalizeText(existing.Title)
		if len(title) >= d.MinTitleLength && len(existingTitle) >= d.MinTitleLength {
			if similarity(d.lev, title, existingTitle) >= d.TitleThreshold {
				return true
			}
		}

		if snippet != "" && existing.HighlightText != "" {
			existingSnippet := normalizeText(existing.HighlightText)
			if len(existingSnippet) > 200 {
				existingSnippet = existingSnippet[:200]
			}
			if len(snippet) >= d.MinTitleLength && len(existingSnippet) >= d.MinTitleLength {
				if similarity(d.lev, snippet, existingSnippet) >= d.SnippetThreshold {
					return true
				}
			}
		}
	}
	return false
}

func similarity(lev *metrics.Levenshtein, a, b string) int {
	return int(strutil.Similarity(a, b, lev) * 100)
}

// normalizeText lowercases, maps punctuation to spaces and collapses the
// result, so hyphenation and quoting differences do not defeat comparison.
func normalizeText(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
