// Package repository owns persisted article records and is the only writer
// of the workflow status column. Every status change funnels through
// Transition, which enforces the legal edge table and serializes concurrent
// attempts on the same article.
package repository

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"news-bureau/models"
)

// NewsRepository wraps all database access for news articles.
type NewsRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewNewsRepository wires a repository over an open gorm connection. The
// connection must be configured with TranslateError so duplicate-key
// violations map onto gorm.ErrDuplicatedKey.
func NewNewsRepository(db *gorm.DB, logger *zap.Logger) *NewsRepository {
	return &NewsRepository{db: db, logger: logger}
}

// TransitionFields carries the field updates tied to a specific edge.
type TransitionFields struct {
	// TranslatedSummary is applied when entering the translated state.
	TranslatedSummary string
	// TelegramMessageID and PublishedAt are applied when entering the
	// published state.
	TelegramMessageID int64
	PublishedAt       *time.Time
}

// Create inserts a new collected article. An exact URL collision comes back
// as ErrDuplicateArticle, never as a second row.
func (r *NewsRepository) Create(ctx context.Context, news *models.News) error {
	if news.Status == "" {
		news.Status = models.StatusCollected
	}
	if err := r.db.WithContext(ctx).Create(news).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.ErrDuplicateArticle
		}
		return err
	}
	r.logger.Debug("Created news article", zap.Uint("id", news.ID), zap.String("url", news.URL))
	return nil
}

// Transition moves an article along one legal workflow edge, applying the
// edge-specific fields in the same transaction. The status column is guarded
// with a compare-and-swap so that exactly one of two racing callers
// succeeds; the loser receives a ConflictError.
func (r *NewsRepository) Transition(ctx context.Context, id uint, target models.Status, fields TransitionFields) (*models.News, error) {
	var result models.News

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.News
		if err := tx.First(&current, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.ErrNotFound
			}
			return err
		}

		if !models.CanTransition(current.Status, target) {
			return &models.InvalidTransitionError{ID: id, From: current.Status, To: target}
		}

		updates := map[string]any{
			"status":     target,
			"updated_at": time.Now().UTC(),
		}
		switch target {
		case models.StatusTranslated:
			updates["translated_summary"] = fields.TranslatedSummary
		case models.StatusPublished:
			updates["telegram_message_id"] = fields.TelegramMessageID
			publishedAt := fields.PublishedAt
			if publishedAt == nil {
				now := time.Now().UTC()
				publishedAt = &now
			}
			updates["published_at"] = publishedAt
		}

		res := tx.Model(&models.News{}).
			Where("id = ? AND status = ?", id, current.Status).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// A concurrent transition moved the row between our read and
			// write. Reread outside the guard to report the winner's state.
			var actual models.News
			if err := tx.First(&actual, id).Error; err != nil {
				return err
			}
			return &models.ConflictError{ID: id, Expected: current.Status, Actual: actual.Status}
		}

		if err := tx.First(&result, id).Error; err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("Article transitioned",
		zap.Uint("id", id), zap.String("to", string(target)))
	return &result, nil
}

// GetByID loads one article.
func (r *NewsRepository) GetByID(ctx context.Context, id uint) (*models.News, error) {
	var news models.News
	if err := r.db.WithContext(ctx).First(&news, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &news, nil
}

// GetByURL loads an article by its canonical URL.
func (r *NewsRepository) GetByURL(ctx context.Context, url string) (*models.News, error) {
	var news models.News
	if err := r.db.WithContext(ctx).Where("url = ?", url).First(&news).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	return &news, nil
}

// ExistsByURL reports whether an article with this exact URL is stored.
func (r *NewsRepository) ExistsByURL(ctx context.Context, url string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.News{}).Where("url = ?", url).Count(&count).Error
	return count > 0, err
}

// ListFilter describes the two dashboard query shapes: by status ordered by
// score, and by language and status.
type ListFilter struct {
	Language string
	Status   models.Status
	OrderBy  string // score | published | created_at
	Limit    int
	Offset   int
}

// List returns articles matching the filter. Reads never mutate state.
func (r *NewsRepository) List(ctx context.Context, f ListFilter) ([]models.News, error) {
	q := r.db.WithContext(ctx).Model(&models.News{})
	if f.Language != "" {
		q = q.Where("language = ?", f.Language)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	switch f.OrderBy {
	case "published":
		q = q.Order("published desc")
	case "created_at":
		q = q.Order("created_at desc")
	default:
		q = q.Order("score desc")
	}
	if f.Limit <= 0 {
		f.Limit = 100
	}
	var out []models.News
	err := q.Limit(f.Limit).Offset(f.Offset).Find(&out).Error
	return out, err
}

// ListByStatus returns articles in a status ordered by score descending.
func (r *NewsRepository) ListByStatus(ctx context.Context, status models.Status, limit int) ([]models.News, error) {
	return r.List(ctx, ListFilter{Status: status, OrderBy: "score", Limit: limit})
}

// PendingPublish returns the publish queue, oldest published first so the
// channel reads chronologically.
func (r *NewsRepository) PendingPublish(ctx context.Context, limit int) ([]models.News, error) {
	if limit <= 0 {
		limit = 10
	}
	var out []models.News
	err := r.db.WithContext(ctx).
		Where("status = ?", models.StatusApprovedForPublish).
		Order("published asc").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// RecentWindow returns articles published within the last N days, newest
// first, capped at max records. This bounds the fuzzy dedup comparison cost.
func (r *NewsRepository) RecentWindow(ctx context.Context, days, max int) ([]models.News, error) {
	if days <= 0 {
		days = 7
	}
	if max <= 0 {
		max = 500
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	var out []models.News
	err := r.db.WithContext(ctx).
		Where("published >= ?", cutoff).
		Order("published desc").
		Limit(max).
		Find(&out).Error
	return out, err
}

// EditTranslation records an operator override of the machine translation.
// It is allowed any time after translation and does not touch status.
func (r *NewsRepository) EditTranslation(ctx context.Context, id uint, text string) (*models.News, error) {
	news, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if news.TranslatedSummary == "" {
		return nil, models.ErrNoTranslation
	}
	err = r.db.WithContext(ctx).Model(news).Updates(map[string]any{
		"edited_text": text,
		"updated_at":  time.Now().UTC(),
	}).Error
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// UpdateScore applies an explicit re-score. No other code path mutates the
// score after ingestion.
func (r *NewsRepository) UpdateScore(ctx context.Context, id uint, score float64) error {
	res := r.db.WithContext(ctx).Model(&models.News{}).Where("id = ?", id).Updates(map[string]any{
		"score":      score,
		"updated_at": time.Now().UTC(),
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Search matches a query against title, highlight and translation.
func (r *NewsRepository) Search(ctx context.Context, query, language string, limit int) ([]models.News, error) {
	if limit <= 0 {
		limit = 50
	}
	pattern := "%" + query + "%"
	q := r.db.WithContext(ctx).
		Where("LOWER(title) LIKE LOWER(?) OR LOWER(highlight_text) LIKE LOWER(?) OR LOWER(translated_summary) LIKE LOWER(?)",
			pattern, pattern, pattern)
	if language != "" {
		q = q.Where("language = ?", language)
	}
	var out []models.News
	err := q.Order("score desc").Limit(limit).Find(&out).Error
	return out, err
}

// Statistics aggregates counts for the dashboard glue.
func (r *NewsRepository) Statistics(ctx context.Context) (*models.Statistics, error) {
	stats := &models.Statistics{
		ByStatus:   make(map[models.Status]int64),
		ByLanguage: make(map[string]int64),
	}

	if err := r.db.WithContext(ctx).Model(&models.News{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	type statusRow struct {
		Status models.Status
		Count  int64
	}
	var byStatus []statusRow
	if err := r.db.WithContext(ctx).Model(&models.News{}).
		Select("status, count(id) as count").
		Group("status").
		Scan(&byStatus).Error; err != nil {
		return nil, err
	}
	for _, row := range byStatus {
		stats.ByStatus[row.Status] = row.Count
	}

	type langRow struct {
		Language string
		Count    int64
	}
	var byLang []langRow
	if err := r.db.WithContext(ctx).Model(&models.News{}).
		Select("language, count(id) as count").
		Group("language").
		Scan(&byLang).Error; err != nil {
		return nil, err
	}
	for _, row := range byLang {
		stats.ByLanguage[row.Language] = row.Count
	}

	var avg *float64
	if err := r.db.WithContext(ctx).Model(&models.News{}).
		Select("avg(score)").Scan(&avg).Error; err != nil {
		return nil, err
	}
	if avg != nil {
		stats.AverageScore = *avg
	}

	if err := r.db.WithContext(ctx).Model(&models.News{}).
		Where("score >= ?", 0.7).Count(&stats.HighScoreCount).Error; err != nil {
		return nil, err
	}

	return stats, nil
}

// DeleteOlderThan is the retention cleanup hook: it removes terminal-state
// articles created before the cutoff and returns the number deleted.
func (r *NewsRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("created_at < ? AND status IN ?", cutoff, []models.Status{models.StatusPublished, models.StatusRejected}).
		Delete(&models.News{})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		r.logger.Warn("Retention cleanup removed articles", zap.Int64("count", res.RowsAffected))
	}
	return res.RowsAffected, nil
}
