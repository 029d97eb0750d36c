package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"news-bureau/config"
	"news-bureau/providers"
	"news-bureau/transport"
)

// Fetcher translates and summarizes text through the Gemini API. API keys
// are rotated on failure via an explicit ring.
type Fetcher struct {
	Config *config.Config
	Client *transport.Client
	Keys   *providers.KeyRing
	Logger *zap.Logger
}

// NewFetcher creates a Gemini translation provider.
func NewFetcher(cfg *config.Config, client *transport.Client, keys *providers.KeyRing, logger *zap.Logger) *Fetcher {
	return &Fetcher{Config: cfg, Client: client, Keys: keys, Logger: logger}
}

// Name returns the provider name.
func (f *Fetcher) Name() string {
	return "gemini"
}

type generateRequest struct {
	Contents []content `json:"contents"`
	Config   genConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type genConfig struct {
	Temperature     float64 `json:"temperature"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Translate sends a translate-and-summarize prompt. On failure the key ring
// is advanced so the next attempt uses a fresh quota.
func (f *Fetcher) Translate(ctx context.Context, text, targetLang string) (string, error) {
	if f.Keys.Len() == 0 {
		return "", fmt.Errorf("gemini: no API keys configured")
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: buildPrompt(text, targetLang)}}}},
		Config:   genConfig{Temperature: 0.3, TopP: 0.8, MaxOutputTokens: 1024},
	})
	if err != nil {
		return "", fmt.Errorf("gemini: marshal request: %w", err)
	}

	reqURL := f.Config.GeminiBaseURL + "?key=" + f.Keys.Current()
	resp, err := f.Client.Post(ctx, reqURL, "application/json", bytes.NewReader(body))
	if err != nil {
		f.Keys.Advance()
		f.Logger.Warn("Gemini request failed, rotated API key", zap.Error(err))
		return "", err
	}
	defer resp.Body.Close()

	var gr generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return "", fmt.Errorf("gemini: decode response: %w", err)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini: empty candidate in response")
	}

	out := cleanOutput(gr.Candidates[0].Content.Parts[0].Text)
	if out == "" {
		return "", fmt.Errorf("gemini: blank translation")
	}
	f.Logger.Info("Gemini translation succeeded",
		zap.Int("input_chars", len(text)), zap.Int("output_chars", len(out)))
	return out, nil
}

func buildPrompt(text, targetLang string) string {
	if targetLang == "fa" {
		return `You are a professional international political news translator. Translate and summarize the news text below into fluent and natural Persian.

Important instructions:
1. The translation must be completely fluent, smooth and understandable for Persian speakers
2. Accurately convey political and international terms
3. Optimize sentence structure for easy reading
4. Avoid literal word-for-word translation
5. Final text should be 150-200 words maximum (intelligent summarization)
6. Focus on main and key points of the news
7. The result must be standalone and the reader should understand the whole subject by reading it

News text for translation and summarization:
` + text + `

Return only the final fluent and summarized translation.`
	}
	return fmt.Sprintf("Translate the following text to %s: %s", targetLang, text)
}

// cleanOutput removes model formatting artifacts from the returned text.
func cleanOutput(s string) string {
	s = strings.ReplaceAll(s, "**", "")
	s = strings.ReplaceAll(s, "*", "")
	for _, label := range []string{"Translation:", "Summary:", "Translated text:"} {
		s = strings.ReplaceAll(s, label, "")
	}
	return strings.TrimSpace(s)
}
