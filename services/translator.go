package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"news-bureau/config"
	"news-bureau/models"
	"news-bureau/repository"
	"news-bureau/translate"
)

// TranslationService walks the provider chain in order and records the
// result against the article. Which states may be translated is decided by
// the state machine, not here; an article in the wrong state surfaces as an
// InvalidTransitionError from the repository.
type TranslationService struct {
	Config *config.Config
	Repo   *repository.NewsRepository
	Chain  []translate.Translator
	Retry  RetryPolicy
	Logger *zap.Logger
}

// NewTranslationService builds the orchestrator over an ordered provider
// chain. The first provider is primary; the rest are fallbacks.
func NewTranslationService(cfg *config.Config, repo *repository.NewsRepository, chain []translate.Translator, logger *zap.Logger) *TranslationService {
	return &TranslationService{
		Config: cfg,
		Repo:   repo,
		Chain:  chain,
		Retry:  PolicyFromConfig(cfg),
		Logger: logger,
	}
}

// Translate runs the chain for one article and transitions it to translated
// on success. When every provider fails the article is left untouched and
// ErrTranslationUnavailable is returned wrapped with the last failure.
func (s *TranslationService) Translate(ctx context.Context, id uint) (*models.TranslationResult, error) {
	news, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	source := news.HighlightText
	if source == "" {
		source = news.Title
	}
	source = capLength(source, s.Config.MaxTranslationLength)

	var lastErr error
	for _, provider := range s.Chain {
		var out string
		err := s.Retry.Do(ctx, func() error {
			var terr error
			out, terr = provider.Translate(ctx, source, s.Config.TargetLanguage)
			return terr
		})
		if err != nil {
			lastErr = err
			s.Logger.Warn("Translation provider failed",
				zap.Uint("id", id), zap.String("provider", provider.Name()), zap.Error(err))
			continue
		}

		out = sanitizeTranslation(out)
		if out == "" {
			lastErr = fmt.Errorf("provider %s returned empty output", provider.Name())
			continue
		}

		if _, err := s.Repo.Transition(ctx, id, models.StatusTranslated, repository.TransitionFields{TranslatedSummary: out}); err != nil {
			return nil, err
		}
		s.Logger.Info("Article translated",
			zap.Uint("id", id), zap.String("provider", provider.Name()), zap.Int("length", len(out)))
		return &models.TranslationResult{ArticleID: id, Text: out, Provider: provider.Name()}, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no translation providers configured")
	}
	return nil, fmt.Errorf("%w: %v", models.ErrTranslationUnavailable, lastErr)
}

// sanitizeTranslation collapses runs of whitespace and trims the result.
func sanitizeTranslation(text string) string {
	lines := strings.Split(text, "\n")
	var kept []string
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

func capLength(text string, max int) string {
	if max <= 0 || len(text) <= max {
		return text
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}
