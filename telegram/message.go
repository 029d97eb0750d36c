package telegram

import (
	"html"
	"strings"

	"news-bureau/models"
)

const (
	// Telegram hard-caps message text at 4096 characters; the body is kept
	// well under that so the link and hashtags always fit.
	maxBodyLength    = 600
	maxMessageLength = 4096
)

// FormatMessage renders an article into the channel's HTML message shape:
// bold title, trimmed body, source link, hashtags. The operator-edited text
// wins over the machine translation.
func FormatMessage(n *models.News) string {
	body := trimBody(n.DisplayText())

	var b strings.Builder
	b.WriteString("<b>")
	b.WriteString(html.EscapeString(n.Title))
	b.WriteString("</b>\n\n")
	if body != "" {
		b.WriteString(html.EscapeString(body))
		b.WriteString("\n\n")
	}
	b.WriteString(`<a href="` + html.EscapeString(n.URL) + `">Read more</a>`)
	b.WriteString("\n\n#news #iran #politics")

	msg := b.String()
	if len(msg) > maxMessageLength {
		msg = msg[:maxMessageLength]
	}
	return msg
}

// trimBody deduplicates sentences, keeps at most four, and caps the length.
func trimBody(content string) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return ""
	}

	seen := make(map[string]bool)
	var kept []string
	for _, sentence := range strings.Split(content, ".") {
		s := strings.TrimSpace(sentence)
		if len(s) <= 10 || seen[s] {
			continue
		}
		seen[s] = true
		kept = append(kept, s)
		if len(kept) == 4 {
			break
		}
	}
	if len(kept) == 0 {
		return content
	}

	out := strings.Join(kept, ". ") + "."
	if len(out) > maxBodyLength {
		out = out[:maxBodyLength] + "..."
	}
	return out
}
