package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"news-bureau/config"
	"news-bureau/models"
	"news-bureau/repository"
	"news-bureau/telegram"
	"news-bureau/transport"
)

func publisherTestConfig(baseURL string) *config.Config {
	return &config.Config{
		TelegramBaseURL:  baseURL,
		TelegramBotToken: "test-token",
		TelegramChannel:  "@testchannel",
		RetryMaxAttempts: 3,
		RetryBaseDelayMS: 1,
	}
}

func newTestPublisher(t *testing.T, handler http.Handler) (*Publisher, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := publisherTestConfig(srv.URL)
	httpClient, err := transport.New("", 5*time.Second, zap.NewNop())
	if err != nil {
		t.Fatalf("transport: %v", err)
	}
	bot := telegram.NewClient(cfg, httpClient, zap.NewNop())
	return &Publisher{
		Config: cfg,
		Repo:   newServiceTestRepo(t),
		Bot:    bot,
		Retry:  PolicyFromConfig(cfg),
		Logger: zap.NewNop(),
	}, srv
}

func seedPublishable(t *testing.T, pub *Publisher, url string) *models.News {
	t.Helper()
	ctx := context.Background()
	news := &models.News{
		Title:         "Iran signs regional trade agreement",
		HighlightText: "The agreement covers energy and transit cooperation across the region.",
		URL:           url,
		Published:     time.Now().UTC().Add(-2 * time.Hour),
		Language:      "english",
	}
	if err := pub.Repo.Create(ctx, news); err != nil {
		t.Fatalf("seed: %v", err)
	}
	steps := []struct {
		target models.Status
		fields repository.TransitionFields
	}{
		{models.StatusApprovedForTranslation, repository.TransitionFields{}},
		{models.StatusTranslated, repository.TransitionFields{TranslatedSummary: "خلاصه برای انتشار"}},
		{models.StatusApprovedForPublish, repository.TransitionFields{}},
	}
	for _, step := range steps {
		if _, err := pub.Repo.Transition(ctx, news.ID, step.target, step.fields); err != nil {
			t.Fatalf("advance to %s: %v", step.target, err)
		}
	}
	return news
}

func telegramOK(messageID int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"ok":     true,
			"result": map[string]any{"message_id": messageID},
		})
	}
}

func TestPublishSuccess(t *testing.T) {
	var calls int32
	pub, _ := newTestPublisher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.URL.Path != "/bottest-token/sendMessage" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		telegramOK(777)(w, r)
	}))
	news := seedPublishable(t, pub, "https://example.com/pub-1")

	receipt, err := pub.Publish(context.Background(), news.ID)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if receipt.MessageID != 777 {
		t.Fatalf("expected message id 777, got %d", receipt.MessageID)
	}
	if receipt.Channel != "@testchannel" {
		t.Fatalf("unexpected channel %s", receipt.Channel)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected 1 API call, got %d", calls)
	}

	reloaded, err := pub.Repo.GetByID(context.Background(), news.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Status != models.StatusPublished {
		t.Fatalf("expected published status, got %s", reloaded.Status)
	}
	if reloaded.TelegramMessageID != 777 {
		t.Fatalf("message id not recorded: %d", reloaded.TelegramMessageID)
	}
	if reloaded.PublishedAt == nil {
		t.Fatal("published_at not recorded")
	}
}

func TestPublishRetriesRateLimit(t *testing.T) {
	var calls int32
	pub, _ := newTestPublisher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"ok":false,"description":"Too Many Requests","parameters":{"retry_after":1}}`)
			return
		}
		telegramOK(888)(w, r)
	}))
	news := seedPublishable(t, pub, "https://example.com/pub-2")

	receipt, err := pub.Publish(context.Background(), news.ID)
	if err != nil {
		t.Fatalf("publish after rate limit: %v", err)
	}
	if receipt.MessageID != 888 {
		t.Fatalf("expected message id 888, got %d", receipt.MessageID)
	}
	if receipt.Attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", receipt.Attempts)
	}
}

func TestPublishExhaustsRetries(t *testing.T) {
	var calls int32
	pub, _ := newTestPublisher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	news := seedPublishable(t, pub, "https://example.com/pub-3")

	_, err := pub.Publish(context.Background(), news.ID)
	var pubErr *models.PublishError
	if !errors.As(err, &pubErr) {
		t.Fatalf("expected PublishError, got %v", err)
	}
	if pubErr.Attempts != 3 {
		t.Fatalf("expected 3 attempts recorded, got %d", pubErr.Attempts)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("expected 3 API calls, got %d", calls)
	}

	reloaded, err := pub.Repo.GetByID(context.Background(), news.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Status != models.StatusApprovedForPublish {
		t.Fatalf("failed publish must keep the article queued, got %s", reloaded.Status)
	}
}

func TestPublishAuthFailureNotRetried(t *testing.T) {
	var calls int32
	pub, _ := newTestPublisher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	news := seedPublishable(t, pub, "https://example.com/pub-4")

	_, err := pub.Publish(context.Background(), news.ID)
	var pubErr *models.PublishError
	if !errors.As(err, &pubErr) {
		t.Fatalf("expected PublishError, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("auth failure must not be retried, got %d calls", calls)
	}
}

func TestPublishWrongStatusSendsNothing(t *testing.T) {
	var calls int32
	pub, _ := newTestPublisher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		telegramOK(1)(w, r)
	}))

	news := &models.News{
		Title:     "Not yet approved",
		URL:       "https://example.com/pub-5",
		Published: time.Now().UTC(),
		Language:  "english",
	}
	if err := pub.Repo.Create(context.Background(), news); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err := pub.Publish(context.Background(), news.ID)
	var invalid *models.InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatalf("no message may be sent for an unapproved article, got %d calls", calls)
	}
}

func TestDrainQueuePublishesAll(t *testing.T) {
	var nextID int64
	pub, _ := newTestPublisher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := atomic.AddInt64(&nextID, 1)
		telegramOK(id)(w, r)
	}))

	first := seedPublishable(t, pub, "https://example.com/drain-1")
	second := seedPublishable(t, pub, "https://example.com/drain-2")

	receipts, err := pub.DrainQueue(context.Background(), 10)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(receipts) != 2 {
		t.Fatalf("expected 2 receipts, got %d", len(receipts))
	}

	for _, id := range []uint{first.ID, second.ID} {
		news, err := pub.Repo.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("reload %d: %v", id, err)
		}
		if news.Status != models.StatusPublished {
			t.Fatalf("article %d not published: %s", id, news.Status)
		}
	}
}

func TestDrainQueueContinuesPastFailure(t *testing.T) {
	pub, _ := newTestPublisher(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Text string `json:"text"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		// Fail only the first article's message.
		if strings.Contains(req.Text, "drain-fail-1") {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		telegramOK(99)(w, r)
	}))

	failing := seedPublishable(t, pub, "https://example.com/drain-fail-1")
	passing := seedPublishable(t, pub, "https://example.com/drain-fail-2")

	receipts, err := pub.DrainQueue(context.Background(), 10)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}
	if len(receipts) != 1 {
		t.Fatalf("expected 1 receipt, got %d", len(receipts))
	}
	if receipts[0].ArticleID != passing.ID {
		t.Fatalf("wrong article published: %d", receipts[0].ArticleID)
	}

	stuck, err := pub.Repo.GetByID(context.Background(), failing.ID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if stuck.Status != models.StatusApprovedForPublish {
		t.Fatalf("failed article must stay queued, got %s", stuck.Status)
	}
}
