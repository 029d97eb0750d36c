package models

import (
	"time"
)

// News represents a single collected news article and its workflow state.
type News struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Title            string `json:"title" gorm:"size:500;not null;index"`
	HighlightText    string `json:"highlight_text,omitempty" gorm:"type:text"`
	HighlightedTitle string `json:"highlighted_title,omitempty"`
	URL              string `json:"url" gorm:"size:500;uniqueIndex;not null"`
	ThreadURL        string `json:"thread_url,omitempty" gorm:"size:500"`

	Published  time.Time `json:"published" gorm:"not null;index"`
	DomainRank int       `json:"domain_rank,omitempty"`
	Categories string    `json:"categories,omitempty" gorm:"size:300"` // comma-separated
	Sentiment  string    `json:"sentiment,omitempty" gorm:"size:50"`
	Language   string    `json:"language" gorm:"size:50;not null;index:idx_language_status"`

	// Score is set at ingestion (or by an explicit re-score) and never
	// mutated elsewhere.
	Score  float64 `json:"score" gorm:"index:idx_status_score,priority:2"`
	Status Status  `json:"status" gorm:"size:50;default:'collected';index:idx_status_score,priority:1;index:idx_language_status"`

	TranslatedSummary string `json:"translated_summary,omitempty" gorm:"type:text"`
	EditedText        string `json:"edited_text,omitempty" gorm:"type:text"`

	PublishedAt       *time.Time `json:"published_at,omitempty"`
	TelegramMessageID int64      `json:"telegram_message_id,omitempty"`
}

// TableName sets the explicit table name.
func (News) TableName() string {
	return "news"
}

// DisplayText returns the best available text for publishing: the operator
// edit wins over the machine translation, which wins over the raw highlight.
func (n *News) DisplayText() string {
	if n.EditedText != "" {
		return n.EditedText
	}
	if n.TranslatedSummary != "" {
		return n.TranslatedSummary
	}
	return n.HighlightText
}

// CategoryList splits the comma-separated categories column.
func (n *News) CategoryList() []string {
	return SplitCategories(n.Categories)
}
