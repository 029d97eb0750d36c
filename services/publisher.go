package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"news-bureau/config"
	"news-bureau/models"
	"news-bureau/repository"
	"news-bureau/telegram"
)

// Publisher sends approved articles to the Telegram channel and records the
// resulting message id. Sending is the one side effect that cannot be rolled
// back, so the article status is checked before the message goes out.
type Publisher struct {
	Config *config.Config
	Repo   *repository.NewsRepository
	Bot    *telegram.Client
	Retry  RetryPolicy
	Logger *zap.Logger
}

// NewPublisher wires the publishing orchestrator.
func NewPublisher(cfg *config.Config, repo *repository.NewsRepository, bot *telegram.Client, logger *zap.Logger) *Publisher {
	return &Publisher{
		Config: cfg,
		Repo:   repo,
		Bot:    bot,
		Retry:  PolicyFromConfig(cfg),
		Logger: logger,
	}
}

// Publish sends one article. The article must be approved for publishing;
// the check happens before the send so a stale or double request never
// produces a channel message it cannot account for. On delivery the article
// transitions to published with the message id and timestamp recorded.
func (p *Publisher) Publish(ctx context.Context, id uint) (*models.PublishReceipt, error) {
	news, err := p.Repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if news.Status != models.StatusApprovedForPublish {
		return nil, &models.InvalidTransitionError{ID: id, From: news.Status, To: models.StatusPublished}
	}

	text := telegram.FormatMessage(news)

	var messageID int64
	attempts := 0
	err = p.Retry.Do(ctx, func() error {
		attempts++
		var serr error
		messageID, serr = p.Bot.SendMessage(ctx, text)
		return serr
	})
	if err != nil {
		p.Logger.Error("Publishing failed",
			zap.Uint("id", id), zap.Int("attempts", attempts), zap.Error(err))
		return nil, &models.PublishError{ID: id, Attempts: attempts, Err: err}
	}

	now := time.Now().UTC()
	if _, err := p.Repo.Transition(ctx, id, models.StatusPublished, repository.TransitionFields{
		TelegramMessageID: messageID,
		PublishedAt:       &now,
	}); err != nil {
		// The message is already in the channel; surface the bookkeeping
		// failure with the id so an operator can reconcile.
		p.Logger.Error("Message sent but status update failed",
			zap.Uint("id", id), zap.Int64("message_id", messageID), zap.Error(err))
		return nil, err
	}

	p.Logger.Info("Article published",
		zap.Uint("id", id), zap.Int64("message_id", messageID), zap.Int("attempts", attempts))
	return &models.PublishReceipt{
		ArticleID: id,
		MessageID: messageID,
		Channel:   p.Bot.Channel(),
		SentAt:    now,
		Attempts:  attempts,
	}, nil
}

// DrainQueue publishes up to limit pending articles, oldest first. One
// failing article does not stop the drain.
func (p *Publisher) DrainQueue(ctx context.Context, limit int) ([]models.PublishReceipt, error) {
	pending, err := p.Repo.PendingPublish(ctx, limit)
	if err != nil {
		return nil, err
	}

	var receipts []models.PublishReceipt
	for _, news := range pending {
		if err := ctx.Err(); err != nil {
			return receipts, err
		}
		receipt, err := p.Publish(ctx, news.ID)
		if err != nil {
			p.Logger.Warn("Skipping article after publish failure",
				zap.Uint("id", news.ID), zap.Error(err))
			continue
		}
		receipts = append(receipts, *receipt)
	}
	return receipts, nil
}
