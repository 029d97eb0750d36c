// Package translate holds the translation provider chain: a primary
// AI-based provider and a plain machine-translation fallback.
package translate

import "context"

// Translator is implemented by each translation provider.
type Translator interface {
	Name() string
	Translate(ctx context.Context, text, targetLang string) (string, error)
}
