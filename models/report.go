package models

import "time"

// IngestReport summarizes one ingestion run. Partial ingestion on transient
// failure is expected and reported here, never treated as fatal.
type IngestReport struct {
	Language        string         `json:"language"`
	From            time.Time      `json:"from"`
	To              time.Time      `json:"to"`
	CandidatesSeen  int            `json:"candidates_seen"`
	Duplicates      int            `json:"duplicates_skipped"`
	LowScoreSkipped int            `json:"low_score_skipped"`
	Inserted        int            `json:"inserted"`
	PagesFetched    int            `json:"pages_fetched"`
	KeyFailures     map[string]int `json:"key_failures,omitempty"`
}

// TranslationResult is the outcome of a successful translate call. Provider
// records which member of the chain produced the text so degradation to the
// fallback is never silent.
type TranslationResult struct {
	ArticleID uint   `json:"article_id"`
	Text      string `json:"text"`
	Provider  string `json:"provider"`
}

// PublishReceipt is recorded when a message reaches the channel.
type PublishReceipt struct {
	ArticleID uint      `json:"article_id"`
	MessageID int64     `json:"message_id"`
	Channel   string    `json:"channel"`
	SentAt    time.Time `json:"sent_at"`
	Attempts  int       `json:"attempts"`
}

// Statistics aggregates repository counts for the dashboard glue.
type Statistics struct {
	Total          int64            `json:"total"`
	ByStatus       map[Status]int64 `json:"by_status"`
	ByLanguage     map[string]int64 `json:"by_language"`
	AverageScore   float64          `json:"average_score"`
	HighScoreCount int64            `json:"high_score_count"`
}
