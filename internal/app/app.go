// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tulul/tululbot/internal/bot"
	"github.com/tulul/tululbot/internal/buildinfo"
	"github.com/tulul/tululbot/internal/commands"
	"github.com/tulul/tululbot/internal/config"
	"github.com/tulul/tululbot/internal/ctxutil"
	domerrors "github.com/tulul/tululbot/internal/errors"
	"github.com/tulul/tululbot/internal/logger"
	"github.com/tulul/tululbot/internal/metrics"
	"github.com/tulul/tululbot/internal/modules/kbbi"
	"github.com/tulul/tululbot/internal/modules/leli"
	"github.com/tulul/tululbot/internal/modules/quote"
	"github.com/tulul/tululbot/internal/modules/slang"
	"github.com/tulul/tululbot/internal/r2client"
	"github.com/tulul/tululbot/internal/ratelimit"
	"github.com/tulul/tululbot/internal/scraper"
	"github.com/tulul/tululbot/internal/sentry"
	"github.com/tulul/tululbot/internal/storage"
	"github.com/tulul/tululbot/internal/telegram"
	"github.com/tulul/tululbot/internal/webhook"
)

// ProjectURL is where GET / redirects.
const ProjectURL = "https://github.com/tulul/tululbot"

// Application manages the application lifecycle and dependencies.
type Application struct {
	cfg         *config.Config
	logger      *logger.Logger
	db          *storage.DB // nil unless the sqlite snapshot backend is used
	metrics     *metrics.Metrics
	registry    *prometheus.Registry
	quotes      *quote.Engine
	snapshots   quote.SnapshotStore // nil when snapshots are disabled
	messenger   telegram.Messenger
	webhook     *webhook.Handler
	chatLimiter *ratelimit.KeyedLimiter[int64]
	router      *gin.Engine
	server      *http.Server
}

// Initialize creates and initializes a new application with all dependencies.
func Initialize(ctx context.Context, cfg *config.Config) (app *Application, err error) {
	log := logger.NewWithOptions(cfg.LogLevel, os.Stdout, logger.Options{
		BetterStackToken:    cfg.BetterStackToken,
		BetterStackEndpoint: cfg.BetterStackEndpoint,
	})
	if cfg.Debug {
		log.SetLevel("debug")
	}
	slog.SetDefault(log.Logger)
	log.WithField("version", buildinfo.String()).
		WithField("env", cfg.AppEnv).
		Info("Starting TululBot")

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)
	m := metrics.New(registry)

	if err := sentry.Initialize(sentry.Config{
		Token:       cfg.SentryToken,
		Host:        cfg.SentryHost,
		Environment: cfg.AppEnv,
		Release:     buildinfo.Version,
		SampleRate:  cfg.SentrySampleRate,
		Debug:       cfg.Debug,
	}); err != nil {
		log.WithError(err).Warn("Sentry disabled")
	}

	scraperClient := scraper.NewClient(scraper.Options{
		Timeout:    cfg.HTTPTimeout,
		MaxRetries: cfg.HTTPMaxRetries,
		Metrics:    m,
	})

	snapshots, db, err := OpenSnapshots(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("snapshots: %w", err)
	}
	defer func() {
		if err != nil && db != nil {
			_ = db.Close()
		}
	}()
	log.WithField("backend", cfg.QuoteSnapshotBackend).Info("Quote snapshot store ready")

	quotes := quote.NewEngine(scraperClient, quote.Options{
		DocumentURL:     cfg.QuoteURL,
		BranchURL:       cfg.QuoteBranchURL,
		RefreshInterval: cfg.QuoteRefreshInterval,
		Snapshots:       snapshots,
		Metrics:         m,
		Logger:          log.WithModule(quote.ModuleName),
	})

	chatLimiter := ratelimit.NewKeyedLimiter[int64](ratelimit.KeyedConfig{
		Name:          "chat",
		Burst:         cfg.ChatRateBurst,
		RefillRate:    cfg.ChatRateRefill,
		CleanupPeriod: config.RateLimiterCleanupInterval,
		Metrics:       m,
	})
	defer func() {
		if err != nil {
			chatLimiter.Stop()
		}
	}()
	m.TrackRateLimiterKeys("chat", chatLimiter.ActiveCount)
	m.TrackLogShippingDropped(log.DroppedRecords)

	cmds := bot.NewRegistry(bot.WithMiddleware(
		bot.LoggingMiddleware(log.WithModule("bot")),
		bot.MetricsMiddleware(m),
	))
	if err = commands.Register(cmds, commands.Deps{
		Leli:  leli.NewSearcher(scraperClient, "", log.WithModule(leli.ModuleName)),
		Quote: quotes,
		KBBI:  kbbi.NewClient(scraperClient, ""),
		Slang: slang.NewClient(scraperClient, slang.Options{
			Enabled: cfg.SlangEnabled,
		}),
		Limiter:          chatLimiter,
		HotlineMessageID: cfg.HotlineMessageID,
	}); err != nil {
		return nil, fmt.Errorf("commands: %w", err)
	}
	log.WithField("count", cmds.Len()).Info("Commands registered")

	tg, err := telegram.NewClient(cfg.TelegramBotToken, telegram.Options{
		ServerURL: cfg.TelegramAPIURL,
		Metrics:   m,
	})
	if err != nil {
		return nil, fmt.Errorf("telegram: %w", err)
	}

	webhookHandler := webhook.NewHandler(cmds, tg,
		webhook.WithLogger(log.WithModule("webhook")),
		webhook.WithMetrics(m),
		webhook.WithBotUsername(cfg.BotUsername),
		webhook.WithDevelChatID(cfg.DevelChatID),
		webhook.WithWebhookTimeout(cfg.WebhookTimeout),
		webhook.WithPrompts(commands.PromptCommands),
	)

	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	app = &Application{
		cfg:         cfg,
		logger:      log,
		db:          db,
		metrics:     m,
		registry:    registry,
		quotes:      quotes,
		snapshots:   snapshots,
		messenger:   tg,
		webhook:     webhookHandler,
		chatLimiter: chatLimiter,
	}
	app.router = app.newRouter(webhookHandler.Handle)

	app.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.router,
		ReadHeaderTimeout: config.WebhookHTTPRead,
		ReadTimeout:       config.WebhookHTTPRead,
		WriteTimeout:      config.WebhookHTTPWrite,
		IdleTimeout:       config.WebhookHTTPIdle,
	}

	log.Info("Initialization complete")
	return app, nil
}

// OpenSnapshots opens the quote snapshot store selected by the config.
// The returned DB is non-nil only for the sqlite backend and must be closed
// by the caller. The store is nil when snapshots are disabled.
func OpenSnapshots(ctx context.Context, cfg *config.Config) (quote.SnapshotStore, *storage.DB, error) {
	switch cfg.QuoteSnapshotBackend {
	case config.SnapshotSQLite:
		db, err := storage.New(ctx, cfg.SQLitePath())
		if err != nil {
			return nil, nil, err
		}
		return db.Snapshots(storage.QuoteSnapshotName), db, nil
	case config.SnapshotR2:
		client, err := r2client.New(ctx, r2client.Config{
			Endpoint:    cfg.R2Endpoint(),
			AccessKeyID: cfg.R2AccessKeyID,
			SecretKey:   cfg.R2SecretAccessKey,
			BucketName:  cfg.R2BucketName,
		})
		if err != nil {
			return nil, nil, err
		}
		return client.Snapshots(cfg.R2SnapshotKey), nil, nil
	default:
		return nil, nil, nil
	}
}

// newRouter builds the gin engine. webhookHandler serves the secret
// update route.
func (a *Application) newRouter(webhookHandler gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	router.Use(securityHeadersMiddleware())
	router.Use(loggingMiddleware(a.logger, a.cfg.TelegramBotToken))

	router.GET("/", a.redirectToProject)
	router.GET("/livez", a.livenessCheck)
	router.HEAD("/livez", a.livenessCheck)
	router.GET("/readyz", a.readinessCheck)
	router.HEAD("/readyz", a.readinessCheck)
	router.GET("/metrics",
		metricsAuthMiddleware(a.cfg.MetricsUsername, a.cfg.MetricsPassword),
		gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))
	// Bot tokens contain a colon, which gin reads as a wildcard, so the
	// token is matched as a parameter instead.
	router.POST("/:token", webhookTokenMiddleware(a.cfg.TelegramBotToken), webhookHandler)
	return router
}

func (a *Application) redirectToProject(c *gin.Context) {
	c.Redirect(http.StatusTemporaryRedirect, ProjectURL)
}

func (a *Application) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

func (a *Application) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), config.ReadinessCheck)
	defer cancel()

	if a.db != nil {
		if err := a.db.Ping(ctx); err != nil {
			a.logger.WithError(err).Warn("Readiness check failed: database unavailable")
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"reason": "database unavailable",
			})
			return
		}
	}

	body := gin.H{
		"status":           "ready",
		"snapshot_backend": a.cfg.QuoteSnapshotBackend,
		"cache": gin.H{
			"quotes": a.quotes.Size(),
		},
	}
	if snapshot := a.snapshotStatus(ctx); snapshot != nil {
		body["snapshot"] = snapshot
	}
	c.JSON(http.StatusOK, body)
}

// snapshotAger is implemented by snapshot stores that record when the
// document was last written.
type snapshotAger interface {
	SavedAt(ctx context.Context) (time.Time, error)
}

// snapshotStatus reports the age of the last good quote document. It never
// fails readiness: the snapshot only matters when upstream is down.
func (a *Application) snapshotStatus(ctx context.Context) gin.H {
	ager, ok := a.snapshots.(snapshotAger)
	if !ok {
		return nil
	}
	savedAt, err := ager.SavedAt(ctx)
	switch {
	case errors.Is(err, domerrors.ErrNotFound):
		return gin.H{"saved": false}
	case err != nil:
		a.logger.WithError(err).Warn("Readiness check: snapshot age unavailable")
		return gin.H{"saved": false, "error": "unavailable"}
	}
	return gin.H{
		"saved":       true,
		"saved_at":    savedAt.UTC().Format(time.RFC3339),
		"age_seconds": int64(time.Since(savedAt).Seconds()),
	}
}

// Run registers the webhook, resolves the bot identity, serves HTTP and blocks until SIGINT/SIGTERM,
// then shuts down.
func (a *Application) Run() error {
	if a.cfg.IsDevelopment() {
		a.logger.Info("Development environment: webhook registration skipped")
	} else {
		a.registerWebhook(context.Background())
	}
	if !a.webhook.ResolveIdentity(context.Background()) {
		a.logger.Warn("Bot username unknown; mention stripping waits for getMe")
	}

	serveErr := a.startHTTPServer()

	select {
	case sig := <-a.waitForShutdownSignal():
		a.logger.WithField("signal", sig.String()).Info("Received shutdown signal")
	case err := <-serveErr:
		a.logger.WithError(err).Error("HTTP server error")
		_ = a.shutdown()
		return err
	}

	return a.shutdown()
}

// registerWebhook points Telegram at this server. A failure is logged
// only; `manage set-webhook` can repeat it.
func (a *Application) registerWebhook(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, config.TelegramRequest)
	defer cancel()

	entry := a.logger.WithField("host", a.cfg.WebhookHost)
	if err := a.messenger.SetWebhook(ctx, a.cfg.WebhookURL()); err != nil {
		entry.WithError(err).Error("Failed to set webhook")
		return
	}
	entry.Info("Webhook registered")
}

// startHTTPServer starts the HTTP server in a goroutine. The returned
// channel receives the error if the server stops unexpectedly.
func (a *Application) startHTTPServer() <-chan error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.WithField("port", a.cfg.Port).Info("Starting HTTP server")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	return errCh
}

// waitForShutdownSignal returns a channel that receives SIGINT/SIGTERM.
func (a *Application) waitForShutdownSignal() <-chan os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return quit
}

// shutdown performs graceful shutdown of HTTP server and resources.
// Shutdown order:
// 1. Stop accepting new HTTP requests and finish in-flight updates
// 2. Close resources (DB, rate limiter)
// 3. Flush error reports and shipped logs
func (a *Application) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	a.logger.Info("Stopping HTTP server...")
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("HTTP server shutdown error")
	}

	a.logger.Info("Closing resources...")
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.WithError(err).WithField("component", "database").Error("Component close error")
		}
	}
	if a.chatLimiter != nil {
		a.chatLimiter.Stop()
	}

	if sentry.IsEnabled() && !sentry.Flush(2*time.Second) {
		a.logger.Warn("Sentry flush timed out")
	}

	a.logger.Info("Shutdown complete")
	if err := a.logger.Shutdown(shutdownCtx); err != nil {
		slog.Warn("Logger shutdown timed out", "error", err)
	}
	return nil
}

// securityHeadersMiddleware adds security headers to responses.
func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'none'")
		c.Header("X-Permitted-Cross-Domain-Policies", "none")
		c.Next()
	}
}

// requestIDHeaders are checked in order for an incoming request id.
var requestIDHeaders = []string{"X-Request-Id", "X-Correlation-Id"}

// loggingMiddleware assigns a request id and logs HTTP requests with
// status-based log levels: 5xx=Error, 4xx=Warn, 404=Debug, 3xx/2xx=Debug.
// The bot token is masked in logged paths.
func loggingMiddleware(log *logger.Logger, token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := redactPath(c.Request.URL.Path, token)
		method := c.Request.Method

		var requestID string
		for _, h := range requestIDHeaders {
			if requestID = c.GetHeader(h); requestID != "" {
				break
			}
		}
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header("X-Request-Id", requestID)
		c.Request = c.Request.WithContext(ctxutil.WithRequestID(c.Request.Context(), requestID))

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()

		entry := log.WithRequestID(requestID).
			WithField("http_method", method).
			WithField("http_path", path).
			WithField("http_status", status).
			WithField("duration_ms", duration.Milliseconds()).
			WithField("client_ip", c.ClientIP())

		switch {
		case status >= 500:
			entry.Error("HTTP request failed")
		case status >= 400 && status != 404:
			entry.Warn("HTTP request rejected")
		case status == 404:
			entry.Debug("HTTP request not found")
		default:
			entry.Debug("HTTP request completed")
		}
	}
}

func redactPath(path, token string) string {
	if token == "" {
		return path
	}
	return strings.ReplaceAll(path, token, "[token]")
}
