package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"news-bureau/models"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New("", 5*time.Second, zap.NewNop())
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c, srv
}

func TestGetSetsUserAgent(t *testing.T) {
	var gotUA string
	c, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		fmt.Fprint(w, "ok")
	}))

	resp, err := c.Get(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()

	if gotUA != userAgent {
		t.Fatalf("user agent not set: %q", gotUA)
	}
}

func TestStatusClassification(t *testing.T) {
	tests := []struct {
		status    int
		wantErr   bool
		retryable bool
	}{
		{200, false, false},
		{201, false, false},
		{400, true, false},
		{401, true, false},
		{404, true, false},
		{429, true, true},
		{500, true, true},
		{503, true, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("status %d", tt.status), func(t *testing.T) {
			c, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))

			resp, err := c.Get(context.Background(), srv.URL)
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				resp.Body.Close()
				return
			}

			var te *models.TransportError
			if !errors.As(err, &te) {
				t.Fatalf("expected TransportError, got %v", err)
			}
			if te.StatusCode != tt.status {
				t.Fatalf("status not recorded: %d", te.StatusCode)
			}
			if te.Retryable != tt.retryable {
				t.Fatalf("retryable = %v, want %v", te.Retryable, tt.retryable)
			}
		})
	}
}

func TestNetworkFailureIsRetryable(t *testing.T) {
	c, srv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	_, err := c.Get(context.Background(), srv.URL)
	var te *models.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if !te.Retryable {
		t.Fatal("connection failure must be retryable")
	}
}

func TestNewRejectsInvalidProxy(t *testing.T) {
	if _, err := New("socks5://%zz", time.Second, zap.NewNop()); err == nil {
		t.Fatal("expected error for malformed proxy URL")
	}
}

func TestRedactKey(t *testing.T) {
	got := RedactKey("https://api.example.com?token=abc123&q=iran", "abc123")
	if got != "https://api.example.com?token=***&q=iran" {
		t.Fatalf("key not redacted: %q", got)
	}
	if RedactKey("plain", "") != "plain" {
		t.Fatal("empty key must leave the URL untouched")
	}
}
