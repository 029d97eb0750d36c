package googletrans

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"news-bureau/config"
	"news-bureau/transport"
)

// Fetcher is the fallback provider: the public Google Translate endpoint.
// Quality is lower than the primary provider, so callers surface which
// provider produced a result rather than degrading silently.
type Fetcher struct {
	Config *config.Config
	Client *transport.Client
	Logger *zap.Logger
}

// NewFetcher creates a Google Translate fallback provider.
func NewFetcher(cfg *config.Config, client *transport.Client, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Client: client, Logger: logger}
}

// Name returns the provider name.
func (f *Fetcher) Name() string {
	return "google"
}

// Translate calls the gtx endpoint. The response is a nested JSON array
// whose first element holds the translated segments.
func (f *Fetcher) Translate(ctx context.Context, text, targetLang string) (string, error) {
	v := url.Values{}
	v.Set("client", "gtx")
	v.Set("sl", "auto")
	v.Set("tl", targetLang)
	v.Set("dt", "t")
	v.Set("q", text)

	resp, err := f.Client.Get(ctx, f.Config.GoogleTranslateURL+"?"+v.Encode())
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var payload []any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("googletrans: decode response: %w", err)
	}

	out, err := joinSegments(payload)
	if err != nil {
		return "", err
	}
	f.Logger.Info("Google translation succeeded",
		zap.Int("input_chars", len(text)), zap.Int("output_chars", len(out)))
	return out, nil
}

func joinSegments(payload []any) (string, error) {
	if len(payload) == 0 {
		return "", fmt.Errorf("googletrans: empty response")
	}
	segments, ok := payload[0].([]any)
	if !ok {
		return "", fmt.Errorf("googletrans: unexpected response shape")
	}

	var b strings.Builder
	for _, seg := range segments {
		pair, ok := seg.([]any)
		if !ok || len(pair) == 0 {
			continue
		}
		if s, ok := pair[0].(string); ok {
			b.WriteString(s)
		}
	}

	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", fmt.Errorf("googletrans: blank translation")
	}
	return out, nil
}
