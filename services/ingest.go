package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"news-bureau/config"
	"news-bureau/models"
	"news-bureau/providers"
	"news-bureau/repository"
)

// Ingestor runs an acquisition pass: paginated queries against the search
// provider, dedup, scoring, and insertion of survivors as collected records.
// A run is never all-or-nothing; partial ingestion on transient failure is
// reported, not fatal.
type Ingestor struct {
	Config   *config.Config
	Repo     *repository.NewsRepository
	Provider providers.Provider
	Keys     *providers.KeyRing
	Scorer   *Scorer
	Deduper  *Deduper
	Retry    RetryPolicy
	Logger   *zap.Logger
}

// NewIngestor wires the ingestion engine.
func NewIngestor(cfg *config.Config, repo *repository.NewsRepository, provider providers.Provider, keys *providers.KeyRing, logger *zap.Logger) *Ingestor {
	return &Ingestor{
		Config:   cfg,
		Repo:     repo,
		Provider: provider,
		Keys:     keys,
		Scorer:   NewScorer(),
		Deduper:  NewDeduper(cfg.DedupTitleScore, cfg.DedupSnippetScore),
		Retry:    PolicyFromConfig(cfg),
		Logger:   logger,
	}
}

// IngestRequest describes one run: a language, a date or date range, optional
// keyword filters, and a record limit.
type IngestRequest struct {
	Language string
	From     time.Time
	To       time.Time
	Keywords []string
	Limit    int
	MaxPages int
}

func (r *IngestRequest) normalize(cfg *config.Config) {
	if r.Language == "" {
		r.Language = cfg.CrawlerLanguage
	}
	if r.From.IsZero() {
		r.From = time.Now().UTC()
	}
	if r.To.Before(r.From) {
		r.To = r.From
	}
	if r.Limit <= 0 {
		r.Limit = cfg.CrawlerLimit
	}
	if r.MaxPages <= 0 {
		r.MaxPages = cfg.CrawlerMaxPages
	}
}

// Ingest executes the run. Cancellation is checked between pages so a stop
// request never requires killing the process. Per-page transport failures
// are retried with backoff up to the bounded attempt count, then the page is
// skipped under the next key rather than aborting the run.
func (i *Ingestor) Ingest(ctx context.Context, req IngestRequest) (*models.IngestReport, error) {
	req.normalize(i.Config)
	log := i.Logger.With(zap.String("language", req.Language))
	log.Info("Starting ingestion run",
		zap.Time("from", req.From), zap.Time("to", req.To), zap.Int("limit", req.Limit))

	report := &models.IngestReport{
		Language:    req.Language,
		From:        req.From,
		To:          req.To,
		KeyFailures: make(map[string]int),
	}

	window, err := i.Repo.RecentWindow(ctx, i.Config.DedupWindowDays, 500)
	if err != nil {
		return report, err
	}

	for day := req.From; !day.After(req.To); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			log.Warn("Ingestion run cancelled", zap.Error(err))
			return report, err
		}
		if report.Inserted >= req.Limit {
			break
		}

		query := providers.SearchQuery{Language: req.Language, Day: day, Keywords: req.Keywords}
		i.ingestDay(ctx, query, req, report, &window, log)
	}

	log.Info("Ingestion run completed",
		zap.Int("candidates", report.CandidatesSeen),
		zap.Int("inserted", report.Inserted),
		zap.Int("duplicates", report.Duplicates),
		zap.Int("low_score", report.LowScoreSkipped),
		zap.Int("pages", report.PagesFetched))
	return report, nil
}

func (i *Ingestor) ingestDay(ctx context.Context, query providers.SearchQuery, req IngestRequest, report *models.IngestReport, window *[]models.News, log *zap.Logger) {
	token := i.Keys.Current()

	var page *providers.Page
	err := i.Retry.Do(ctx, func() error {
		var ferr error
		page, ferr = i.Provider.Search(ctx, token, query)
		return ferr
	})
	if err != nil {
		report.KeyFailures[token]++
		i.Keys.Advance()
		log.Error("Search failed for day, key rotated",
			zap.Time("day", query.Day), zap.Error(err))
		return
	}
	report.PagesFetched++

	for {
		i.processPage(ctx, page, query.Language, req, report, window, log)

		if page.Next == "" || report.Inserted >= req.Limit || report.PagesFetched >= req.MaxPages {
			return
		}
		if err := ctx.Err(); err != nil {
			return
		}

		next := page.Next
		err := i.Retry.Do(ctx, func() error {
			var ferr error
			page, ferr = i.Provider.FetchNext(ctx, token, next)
			return ferr
		})
		if err != nil {
			report.KeyFailures[token]++
			i.Keys.Advance()
			log.Warn("Pagination failed, key rotated", zap.Error(err))
			return
		}
		report.PagesFetched++
	}
}

func (i *Ingestor) processPage(ctx context.Context, page *providers.Page, language string, req IngestRequest, report *models.IngestReport, window *[]models.News, log *zap.Logger) {
	for _, candidate := range page.Posts {
		if report.Inserted >= req.Limit {
			return
		}
		report.CandidatesSeen++

		if candidate.URL == "" || candidate.Title == "" {
			continue
		}

		exists, err := i.Repo.ExistsByURL(ctx, candidate.URL)
		if err != nil {
			log.Error("URL lookup failed", zap.Error(err))
			continue
		}
		if exists || i.Deduper.IsDuplicate(candidate, *window) {
			report.Duplicates++
			log.Debug("Skipping duplicate", zap.String("title", candidate.Title))
			continue
		}

		score := i.Scorer.Score(candidate)
		if score < i.Config.MinArticleScore {
			report.LowScoreSkipped++
			log.Debug("Skipping low score", zap.Float64("score", score), zap.String("title", candidate.Title))
			continue
		}
		if score > 0.7 {
			log.Info("High priority article", zap.Float64("score", score), zap.String("title", candidate.Title))
		}

		news := &models.News{
			Title:            candidate.Title,
			HighlightedTitle: candidate.HighlightedTitle,
			HighlightText:    candidate.HighlightText,
			URL:              candidate.URL,
			ThreadURL:        candidate.ThreadURL,
			Published:        candidate.Published,
			DomainRank:       candidate.DomainRank,
			Categories:       models.JoinCategories(candidate.Categories),
			Sentiment:        candidate.Sentiment,
			Language:         language,
			Score:            score,
			Status:           models.StatusCollected,
		}
		if err := i.Repo.Create(ctx, news); err != nil {
			if errors.Is(err, models.ErrDuplicateArticle) {
				report.Duplicates++
				continue
			}
			log.Error("Insert failed", zap.String("url", candidate.URL), zap.Error(err))
			continue
		}

		report.Inserted++
		*window = append(*window, *news)
	}
}
