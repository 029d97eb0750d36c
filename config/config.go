package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration parameters read from environment variables.
type Config struct {
	DBHost     string `envconfig:"DB_HOST" required:"true"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" required:"true"`
	DBPassword string `envconfig:"DB_PASSWORD" required:"true"`
	DBName     string `envconfig:"DB_NAME" required:"true"`

	HTTPPort     string `envconfig:"HTTP_PORT" default:"4242"`
	APISecretKey string `envconfig:"API_SECRET_KEY"`

	// Webz.io news search API. Multiple keys are rotated round-robin to
	// spread quota across a run.
	WebzBaseURL     string  `envconfig:"WEBZ_BASE_URL" default:"https://api.webz.io/newsApiLite"`
	WebzAPIKeys     string  `envconfig:"WEBZ_API_KEYS" required:"true"`
	CrawlerLanguage string  `envconfig:"CRAWLER_DEFAULT_LANGUAGE" default:"english"`
	CrawlerMaxPages int     `envconfig:"CRAWLER_MAX_PAGES" default:"5"`
	CrawlerLimit    int     `envconfig:"CRAWLER_MAX_RESULTS" default:"100"`
	CrawlerTimeout  int     `envconfig:"CRAWLER_TIMEOUT" default:"30"`
	MinArticleScore float64 `envconfig:"MIN_ARTICLE_SCORE" default:"0.3"`

	// Dedup window and similarity thresholds (0-100).
	DedupWindowDays   int `envconfig:"DEDUP_WINDOW_DAYS" default:"7"`
	DedupTitleScore   int `envconfig:"DEDUP_TITLE_SCORE" default:"85"`
	DedupSnippetScore int `envconfig:"DEDUP_SNIPPET_SCORE" default:"80"`

	// Translation providers: Gemini primary, Google Translate fallback.
	GeminiBaseURL        string `envconfig:"GEMINI_BASE_URL" default:"https://generativelanguage.googleapis.com/v1/models/gemini-pro:generateContent"`
	GeminiAPIKeys        string `envconfig:"GEMINI_API_KEYS"`
	GoogleTranslateURL   string `envconfig:"GOOGLE_TRANSLATE_URL" default:"https://translate.googleapis.com/translate_a/single"`
	TargetLanguage       string `envconfig:"TARGET_LANGUAGE" default:"fa"`
	MaxTranslationLength int    `envconfig:"MAX_TRANSLATION_LENGTH" default:"15000"`
	TranslationTimeout   int    `envconfig:"TRANSLATION_TIMEOUT" default:"30"`

	// Telegram publishing channel.
	TelegramBaseURL  string `envconfig:"TELEGRAM_BASE_URL" default:"https://api.telegram.org"`
	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`
	TelegramChannel  string `envconfig:"TELEGRAM_CHANNEL" required:"true"`

	// Optional SOCKS5 proxy for all outbound calls, e.g. "socks5://host:1080".
	SOCKS5Proxy string `envconfig:"SOCKS5_PROXY"`

	// Retry policy shared by the orchestrators.
	RetryMaxAttempts int `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`
	RetryBaseDelayMS int `envconfig:"RETRY_BASE_DELAY_MS" default:"500"`

	CrawlerCronSchedule   string `envconfig:"CRAWLER_CRON_SCHEDULE" default:"0 * * * *"`
	PublisherCronSchedule string `envconfig:"PUBLISHER_CRON_SCHEDULE" default:"*/30 * * * *"`
}

// DSN returns the data source name for the PostgreSQL connection.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// WebzKeys returns the configured Webz.io API keys as a slice.
func (c *Config) WebzKeys() []string {
	return splitKeys(c.WebzAPIKeys)
}

// GeminiKeys returns the configured Gemini API keys as a slice.
func (c *Config) GeminiKeys() []string {
	return splitKeys(c.GeminiAPIKeys)
}

func splitKeys(raw string) []string {
	var keys []string
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}
