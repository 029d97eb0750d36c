package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"news-bureau/config"
	"news-bureau/providers"
	"news-bureau/transport"
)

func newTestFetcher(t *testing.T, keys []string, handler http.Handler) *Fetcher {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{GeminiBaseURL: srv.URL}
	httpClient, err := transport.New("", 5*time.Second, zap.NewNop())
	if err != nil {
		t.Fatalf("transport: %v", err)
	}
	return NewFetcher(cfg, httpClient, providers.NewKeyRing(keys), zap.NewNop())
}

func geminiResponse(text string) string {
	return fmt.Sprintf(`{"candidates":[{"content":{"parts":[{"text":%q}]}}]}`, text)
}

func TestTranslate(t *testing.T) {
	var gotKey string
	var gotReq generateRequest
	fetcher := newTestFetcher(t, []string{"k1"}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("key")
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		fmt.Fprint(w, geminiResponse("**Translation:** متن ترجمه شده"))
	}))

	out, err := fetcher.Translate(context.Background(), "original text", "fa")
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if out != "متن ترجمه شده" {
		t.Fatalf("formatting artifacts not cleaned: %q", out)
	}
	if gotKey != "k1" {
		t.Fatalf("expected key k1, got %q", gotKey)
	}
	if gotReq.Config.Temperature != 0.3 || gotReq.Config.MaxOutputTokens != 1024 {
		t.Fatalf("unexpected generation config: %+v", gotReq.Config)
	}
	if len(gotReq.Contents) != 1 || len(gotReq.Contents[0].Parts) != 1 {
		t.Fatalf("unexpected request shape: %+v", gotReq)
	}
	prompt := gotReq.Contents[0].Parts[0].Text
	if !strings.Contains(prompt, "original text") || !strings.Contains(prompt, "Persian") {
		t.Fatalf("prompt missing source text or target language: %q", prompt)
	}
}

func TestTranslateRotatesKeyOnFailure(t *testing.T) {
	fetcher := newTestFetcher(t, []string{"k1", "k2"}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))

	if _, err := fetcher.Translate(context.Background(), "text", "fa"); err == nil {
		t.Fatal("expected error from rate-limited upstream")
	}
	if fetcher.Keys.Current() != "k2" {
		t.Fatalf("expected rotation to k2, got %s", fetcher.Keys.Current())
	}
}

func TestTranslateEmptyCandidates(t *testing.T) {
	fetcher := newTestFetcher(t, []string{"k1"}, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"candidates":[]}`)
	}))

	if _, err := fetcher.Translate(context.Background(), "text", "fa"); err == nil {
		t.Fatal("expected error for empty candidates")
	}
}

func TestTranslateNoKeys(t *testing.T) {
	fetcher := newTestFetcher(t, nil, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request must be sent without keys")
	}))

	if _, err := fetcher.Translate(context.Background(), "text", "fa"); err == nil {
		t.Fatal("expected error without API keys")
	}
}

func TestCleanOutput(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"**bold** removed", "bold removed"},
		{"Translation: result", "result"},
		{"Summary:  the gist  ", "the gist"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := cleanOutput(tt.in); got != tt.want {
			t.Fatalf("cleanOutput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
