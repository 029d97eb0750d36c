package services

import (
	"testing"
	"time"

	"news-bureau/models"
	"news-bureau/providers"
)

func dedupWindow() []models.News {
	return []models.News{
		{
			Title:         "Iran and world powers resume nuclear negotiations in Vienna",
			HighlightText: "Diplomats gathered in Vienna on Monday to restart stalled nuclear negotiations.",
			URL:           "https://example.com/vienna-talks",
			Published:     time.Now().UTC().Add(-24 * time.Hour),
		},
		{
			Title:         "Oil exports rise despite sanctions pressure",
			HighlightText: "Crude shipments increased for the third consecutive month according to trackers.",
			URL:           "https://example.com/oil-exports",
			Published:     time.Now().UTC().Add(-48 * time.Hour),
		},
	}
}

func TestIsDuplicateExactURL(t *testing.T) {
	d := NewDeduper(0, 0)
	c := providers.Candidate{
		Title: "Completely different headline about something else entirely",
		URL:   "https://example.com/vienna-talks",
	}
	if !d.IsDuplicate(c, dedupWindow()) {
		t.Fatal("exact URL match must be a duplicate regardless of title")
	}
}

func TestIsDuplicateFuzzyTitle(t *testing.T) {
	d := NewDeduper(0, 0)
	tests := []struct {
		name string
		c    providers.Candidate
		want bool
	}{
		{
			"near identical title",
			providers.Candidate{
				Title: "Iran and world powers resume nuclear negotiations in Vienna!",
				URL:   "https://other.com/story-1",
			},
			true,
		},
		{
			"same title different casing and punctuation",
			providers.Candidate{
				Title: "IRAN AND WORLD POWERS RESUME NUCLEAR NEGOTIATIONS IN VIENNA",
				URL:   "https://other.com/story-2",
			},
			true,
		},
		{
			"different story",
			providers.Candidate{
				Title: "Parliament votes on annual budget amid inflation concerns",
				URL:   "https://other.com/story-3",
			},
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.IsDuplicate(tt.c, dedupWindow()); got != tt.want {
				t.Fatalf("IsDuplicate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsDuplicateSnippet(t *testing.T) {
	d := NewDeduper(0, 0)
	c := providers.Candidate{
		// Title rewritten beyond the threshold but body is a light edit of
		// the stored snippet.
		Title:         "Talks restart as envoys meet again in Austrian capital city",
		HighlightText: "Diplomats gathered in Vienna on Monday to restart the stalled nuclear negotiations.",
		URL:           "https://other.com/rewrite",
	}
	if !d.IsDuplicate(c, dedupWindow()) {
		t.Fatal("near identical snippet must be a duplicate")
	}
}

func TestIsDuplicateShortTitlesNeverFuzzyMatch(t *testing.T) {
	d := NewDeduper(0, 0)
	window := []models.News{{Title: "Update", URL: "https://example.com/u1"}}
	c := providers.Candidate{Title: "Updates", URL: "https://example.com/u2"}
	if d.IsDuplicate(c, window) {
		t.Fatal("titles below the minimum length must not fuzzy match")
	}
}

func TestIsDuplicateEmptyWindow(t *testing.T) {
	d := NewDeduper(0, 0)
	c := providers.Candidate{Title: "Any headline long enough to compare", URL: "https://example.com/x"}
	if d.IsDuplicate(c, nil) {
		t.Fatal("empty window can never contain a duplicate")
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello,   World!", "hello world"},
		{"Breaking: Iran-talks resume", "breaking iran talks resume"},
		{"  \t\n  ", ""},
	}
	for _, tt := range tests {
		if got := normalizeText(tt.in); got != tt.want {
			t.Fatalf("normalizeText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
