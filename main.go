package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"news-bureau/config"
	"news-bureau/models"
	"news-bureau/providers"
	"news-bureau/providers/webz"
	"news-bureau/repository"
	"news-bureau/services"
	"news-bureau/telegram"
	"news-bureau/translate"
	"news-bureau/translate/gemini"
	"news-bureau/translate/googletrans"
	"news-bureau/transport"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	articlesIngestedCounter   prometheus.Counter
	duplicatesSkippedCounter  prometheus.Counter
	articlesPublishedCounter  prometheus.Counter
	articlesTranslatedCounter prometheus.Counter
)

func init() {
	articlesIngestedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "articles_ingested_total",
		Help: "Total number of new articles inserted by ingestion runs.",
	})
	duplicatesSkippedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "articles_duplicates_skipped_total",
		Help: "Total number of candidates skipped as duplicates.",
	})
	articlesTranslatedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "articles_translated_total",
		Help: "Total number of articles translated.",
	})
	articlesPublishedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "articles_published_total",
		Help: "Total number of articles delivered to the channel.",
	})
	prometheus.MustRegister(articlesIngestedCounter, duplicatesSkippedCounter,
		articlesTranslatedCounter, articlesPublishedCounter)
}

func apiKeyAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.APISecretKey == "" {
			c.Next()
			return
		}
		apiKey := c.GetHeader("X-API-KEY")
		if apiKey != cfg.APISecretKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API Key"})
			return
		}
		c.Next()
	}
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	// Setup Database Connection
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	logging.Info("Successfully connected to news database.")

	logging.Info("Running database auto-migration...")
	if err := db.AutoMigrate(&models.News{}); err != nil {
		logging.Fatal("Auto-migration failed", zap.Error(err))
	}

	// Outbound HTTP client, optionally routed through SOCKS5.
	httpClient, err := transport.New(cfg.SOCKS5Proxy, time.Duration(cfg.CrawlerTimeout)*time.Second, logging)
	if err != nil {
		logging.Fatal("HTTP transport setup failed", zap.Error(err))
	}

	// Setup Services
	repo := repository.NewNewsRepository(db, logging)

	webzKeys := providers.NewKeyRing(cfg.WebzKeys())
	if webzKeys.Len() == 0 {
		logging.Fatal("No search API keys configured. Check WEBZ_API_KEYS in .env")
	}
	searchProvider := webz.NewFetcher(cfg, httpClient, logging)
	ingestor := services.NewIngestor(cfg, repo, searchProvider, webzKeys, logging)

	var chain []translate.Translator
	if geminiKeys := providers.NewKeyRing(cfg.GeminiKeys()); geminiKeys.Len() > 0 {
		chain = append(chain, gemini.NewFetcher(cfg, httpClient, geminiKeys, logging))
	} else {
		logging.Warn("No Gemini API keys configured, using fallback translator only")
	}
	chain = append(chain, googletrans.NewFetcher(cfg, httpClient, logging))
	translator := services.NewTranslationService(cfg, repo, chain, logging)

	bot := telegram.NewClient(cfg, httpClient, logging)
	if err := bot.TestConnection(context.Background()); err != nil {
		logging.Warn("Telegram bot connection check failed", zap.Error(err))
	}
	publisher := services.NewPublisher(cfg, repo, bot, logging)

	// Setup Router
	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(apiKeyAuthMiddleware(cfg))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	// Setup Routes
	setupIngestRoutes(router, cfg, ingestor, logging)
	setupArticleRoutes(router, repo, translator, publisher, logging)
	setupStatsRoutes(router, repo, logging)

	// Setup Cron
	cronScheduler := cron.New()
	cronScheduler.AddFunc(cfg.CrawlerCronSchedule, func() {
		logging.Info("Running scheduled ingestion job...")
		report, err := ingestor.Ingest(context.Background(), services.IngestRequest{})
		if err != nil {
			logging.Error("Ingestion cron job failed", zap.Error(err))
			return
		}
		articlesIngestedCounter.Add(float64(report.Inserted))
		duplicatesSkippedCounter.Add(float64(report.Duplicates))
		logging.Info("Ingestion cron job completed", zap.Int("new_articles", report.Inserted))
	})
	cronScheduler.AddFunc(cfg.PublisherCronSchedule, func() {
		logging.Info("Running scheduled publish job...")
		receipts, err := publisher.DrainQueue(context.Background(), 10)
		if err != nil {
			logging.Error("Publish cron job failed", zap.Error(err))
			return
		}
		articlesPublishedCounter.Add(float64(len(receipts)))
		logging.Info("Publish cron job completed", zap.Int("published", len(receipts)))
	})
	cronScheduler.Start()

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

func setupIngestRoutes(router *gin.Engine, cfg *config.Config, ingestor *services.Ingestor, log *zap.Logger) {
	rg := router.Group("/ingest")

	type ingestBody struct {
		Language string   `json:"language"`
		Date     string   `json:"date"`
		FromDate string   `json:"from_date"`
		ToDate   string   `json:"to_date"`
		Keywords []string `json:"keywords"`
		Limit    int      `json:"limit"`
	}

	parseDay := func(s string) (time.Time, error) {
		if s == "" {
			return time.Time{}, nil
		}
		return time.Parse("2006-01-02", s)
	}

	// POST /ingest runs a single-day acquisition synchronously and returns
	// the run report.
	rg.POST("/", func(c *gin.Context) {
		var body ingestBody
		if err := c.ShouldBindJSON(&body); err != nil && err.Error() != "EOF" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		day, err := parseDay(body.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD"})
			return
		}

		report, err := ingestor.Ingest(c.Request.Context(), services.IngestRequest{
			Language: body.Language,
			From:     day,
			To:       day,
			Keywords: body.Keywords,
			Limit:    body.Limit,
		})
		if err != nil {
			log.Error("Ingestion run failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "ingestion failed", "report": report})
			return
		}
		articlesIngestedCounter.Add(float64(report.Inserted))
		duplicatesSkippedCounter.Add(float64(report.Duplicates))
		c.JSON(http.StatusOK, report)
	})

	// POST /ingest/range runs a multi-day acquisition in the background.
	rg.POST("/range", func(c *gin.Context) {
		var body ingestBody
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
		from, err := parseDay(body.FromDate)
		if err != nil || from.IsZero() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from_date is required, expected YYYY-MM-DD"})
			return
		}
		to, err := parseDay(body.ToDate)
		if err != nil || to.IsZero() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "to_date is required, expected YYYY-MM-DD"})
			return
		}
		if to.Before(from) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "to_date must not precede from_date"})
			return
		}

		go func() {
			report, err := ingestor.Ingest(context.Background(), services.IngestRequest{
				Language: body.Language,
				From:     from,
				To:       to,
				Keywords: body.Keywords,
				Limit:    body.Limit,
			})
			if err != nil {
				log.Error("Async range ingestion failed", zap.Error(err))
				return
			}
			articlesIngestedCounter.Add(float64(report.Inserted))
			duplicatesSkippedCounter.Add(float64(report.Duplicates))
			log.Info("Async range ingestion completed",
				zap.Int("new_articles", report.Inserted), zap.Int("duplicates", report.Duplicates))
		}()
		c.JSON(http.StatusAccepted, gin.H{"message": "Range ingestion triggered."})
	})
}

func setupArticleRoutes(router *gin.Engine, repo *repository.NewsRepository, translator *services.TranslationService, publisher *services.Publisher, log *zap.Logger) {
	rg := router.Group("/articles")

	parseID := func(c *gin.Context) (uint, bool) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid article id"})
			return 0, false
		}
		return uint(id), true
	}

	writeDomainError := func(c *gin.Context, err error) {
		var invalid *models.InvalidTransitionError
		var conflict *models.ConflictError
		switch {
		case errors.Is(err, models.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "article not found"})
		case errors.As(err, &invalid):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": invalid.Error()})
		case errors.As(err, &conflict):
			c.JSON(http.StatusConflict, gin.H{"error": conflict.Error()})
		case errors.Is(err, models.ErrNoTranslation):
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "article has no translation to edit"})
		case errors.Is(err, models.ErrTranslationUnavailable):
			c.JSON(http.StatusBadGateway, gin.H{"error": "all translation providers failed"})
		default:
			log.Error("Request failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
	}

	// GET /articles lists with optional status, language, order and paging.
	rg.GET("/", func(c *gin.Context) {
		filter := repository.ListFilter{
			Language: c.Query("language"),
			OrderBy:  c.Query("order_by"),
		}
		if raw := c.Query("status"); raw != "" {
			status, ok := models.ParseStatus(raw)
			if !ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
				return
			}
			filter.Status = status
		}
		filter.Limit, _ = strconv.Atoi(c.Query("limit"))
		filter.Offset, _ = strconv.Atoi(c.Query("offset"))

		articles, err := repo.List(c.Request.Context(), filter)
		if err != nil {
			log.Error("Article list query failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, articles)
	})

	// GET /articles/search?q=...
	rg.GET("/search", func(c *gin.Context) {
		q := c.Query("q")
		if q == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "q parameter is required"})
			return
		}
		limit, _ := strconv.Atoi(c.Query("limit"))
		articles, err := repo.Search(c.Request.Context(), q, c.Query("language"), limit)
		if err != nil {
			log.Error("Article search failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, articles)
	})

	rg.GET("/:id", func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		news, err := repo.GetByID(c.Request.Context(), id)
		if err != nil {
			writeDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, news)
	})

	// POST /articles/:id/approve moves collected to approved_for_translation
	// or translated to approved_for_publish, depending on where the article
	// stands.
	rg.POST("/:id/approve", func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		news, err := repo.GetByID(c.Request.Context(), id)
		if err != nil {
			writeDomainError(c, err)
			return
		}

		var target models.Status
		switch news.Status {
		case models.StatusCollected:
			target = models.StatusApprovedForTranslation
		case models.StatusTranslated:
			target = models.StatusApprovedForPublish
		default:
			writeDomainError(c, &models.InvalidTransitionError{ID: id, From: news.Status, To: models.StatusApprovedForTranslation})
			return
		}

		updated, err := repo.Transition(c.Request.Context(), id, target, repository.TransitionFields{})
		if err != nil {
			writeDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, updated)
	})

	rg.POST("/:id/reject", func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		updated, err := repo.Transition(c.Request.Context(), id, models.StatusRejected, repository.TransitionFields{})
		if err != nil {
			writeDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, updated)
	})

	rg.POST("/:id/translate", func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		result, err := translator.Translate(c.Request.Context(), id)
		if err != nil {
			writeDomainError(c, err)
			return
		}
		articlesTranslatedCounter.Inc()
		c.JSON(http.StatusOK, result)
	})

	// PUT /articles/:id/translation lets an editor revise the stored
	// translation without touching the workflow status.
	rg.PUT("/:id/translation", func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		var body struct {
			Text string `json:"text" binding:"required"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body. 'text' field is required."})
			return
		}
		updated, err := repo.EditTranslation(c.Request.Context(), id, body.Text)
		if err != nil {
			writeDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, updated)
	})

	rg.POST("/:id/publish", func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		receipt, err := publisher.Publish(c.Request.Context(), id)
		if err != nil {
			var pubErr *models.PublishError
			if errors.As(err, &pubErr) {
				c.JSON(http.StatusBadGateway, gin.H{"error": pubErr.Error()})
				return
			}
			writeDomainError(c, err)
			return
		}
		articlesPublishedCounter.Inc()
		c.JSON(http.StatusOK, receipt)
	})
}

func setupStatsRoutes(router *gin.Engine, repo *repository.NewsRepository, log *zap.Logger) {
	router.GET("/stats", func(c *gin.Context) {
		stats, err := repo.Statistics(c.Request.Context())
		if err != nil {
			log.Error("Statistics query failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, stats)
	})
}
