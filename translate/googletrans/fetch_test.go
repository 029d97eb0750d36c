package googletrans

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"news-bureau/config"
	"news-bureau/transport"
)

func newTestFetcher(t *testing.T, handler http.Handler) *Fetcher {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{GoogleTranslateURL: srv.URL}
	httpClient, err := transport.New("", 5*time.Second, zap.NewNop())
	if err != nil {
		t.Fatalf("transport: %v", err)
	}
	return NewFetcher(cfg, httpClient, zap.NewNop())
}

func TestTranslate(t *testing.T) {
	var gotQuery map[string]string
	fetcher := newTestFetcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"client": r.URL.Query().Get("client"),
			"sl":     r.URL.Query().Get("sl"),
			"tl":     r.URL.Query().Get("tl"),
			"q":      r.URL.Query().Get("q"),
		}
		// The endpoint returns a nested array of translated segments.
		fmt.Fprint(w, `[[["بخش اول ","part one",null],["بخش دوم","part two",null]],null,"en"]`)
	}))

	out, err := fetcher.Translate(context.Background(), "part one part two", "fa")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if out != "بخش اول بخش دوم" {
		t.Fatalf("segments not joined: %q", out)
	}
	if gotQuery["client"] != "gtx" || gotQuery["sl"] != "auto" || gotQuery["tl"] != "fa" {
		t.Fatalf("unexpected query parameters: %v", gotQuery)
	}
	if gotQuery["q"] != "part one part two" {
		t.Fatalf("source text not sent: %q", gotQuery["q"])
	}
}

func TestTranslateMalformedResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty array", `[]`},
		{"wrong shape", `["not an array"]`},
		{"no translatable segments", `[[[null,"src",null]]]`},
		{"not json", `<html>blocked</html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := newTestFetcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.body)
			}))
			if _, err := fetcher.Translate(context.Background(), "text", "fa"); err == nil {
				t.Fatal("expected error for malformed response")
			}
		})
	}
}

func TestTranslateUpstreamError(t *testing.T) {
	fetcher := newTestFetcher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	if _, err := fetcher.Translate(context.Background(), "text", "fa"); err == nil {
		t.Fatal("expected error from failing upstream")
	}
}
