package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"metacards/internal/bot"
	"metacards/internal/catalog"
	"metacards/internal/config"
	"metacards/internal/imagefetch"
	"metacards/internal/schedule"
	"metacards/internal/storage"
	"metacards/internal/storage/ch"
	"metacards/internal/storage/sqlite"
	"metacards/internal/storage/stubs"
)

// App represents the application
type App struct {
	config    *config.Config
	logger    *zap.Logger
	db        storage.Storage
	scheduler *schedule.Scheduler
	bot       *bot.Bot
	server    *http.Server
}

// New creates and initializes a new application instance
func New() (*App, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Load configuration from environment variables
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	app := &App{config: cfg, logger: logger}
	logger.Info("Starting metacards bot...")

	deck, err := catalog.Load(cfg.CardsPath, cfg.HintsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load card catalog: %w", err)
	}
	logger.Info("Card catalog loaded",
		zap.Int("cards", deck.Len()),
		zap.String("cards_path", cfg.CardsPath),
		zap.String("hints_path", cfg.HintsPath),
	)

	// Initialize database
	if app.db, err = OpenStorage(context.Background(), cfg, logger); err != nil {
		return nil, err
	}

	app.scheduler = schedule.New(logger.Named("scheduler"))

	// Initialize bot
	app.bot, err = bot.NewBot(cfg.TelegramToken, app.db, bot.Options{
		Catalog:   deck,
		Images:    imagefetch.New(cfg.ImageHostToken, cfg.ImageDir, cfg.ImageFetchTimeout),
		Scheduler: app.scheduler,
		Timing: bot.Timing{
			FollowUpDelay: cfg.FollowUpDelay,
			HintInterval:  cfg.HintInterval,
			CardInterval:  cfg.CardInterval,
			GreetingPause: cfg.GreetingPause,
		},
	}, logger.Named("bot"))
	if err != nil {
		app.db.Close()
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	app.server = &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      NewRouter(cfg, app.bot.WebhookHandler(cfg.WebhookSecret), app.bot.ActiveSessions),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return app, nil
}

// OpenStorage connects to and initializes the configured storage backend
func OpenStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (storage.Storage, error) {
	var db storage.Storage
	switch cfg.StorageDriver {
	case config.DriverMock:
		logger.Info("Using mock database")
		db = stubs.NewMockDB()
	case config.DriverClickHouse:
		logger.Info("Connecting to ClickHouse",
			zap.String("host", cfg.ClickHouseHost),
			zap.Int("port", cfg.ClickHousePort),
			zap.String("database", cfg.ClickHouseDatabase),
			zap.String("user", cfg.ClickHouseUser),
			zap.Bool("tls", cfg.ClickHouseUseTLS),
		)
		clickhouseDB, err := ch.NewClickHouseDB(
			cfg.ClickHouseHost,
			cfg.ClickHousePort,
			cfg.ClickHouseDatabase,
			cfg.ClickHouseUser,
			cfg.ClickHousePassword,
			cfg.ClickHouseUseTLS,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
		}
		db = clickhouseDB
	default:
		logger.Info("Opening SQLite database", zap.String("path", cfg.SQLitePath))
		sqliteDB, err := sqlite.NewSQLiteDB(cfg.SQLitePath, logger.Named("sqlite"))
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite: %w", err)
		}
		db = sqliteDB
	}

	// Initialize database schema
	if err := db.Initialize(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	logger.Info("Database initialized successfully", zap.String("driver", cfg.StorageDriver))
	return db, nil
}

// NewRouter serves the health check, a status page and the webhook endpoint
func NewRouter(cfg *config.Config, webhook http.Handler, activeSessions func() int) http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		mode := "polling"
		if cfg.WebhookMode() {
			mode = "webhook"
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "Metacards bot is running (mode: %s, active sessions: %d)", mode, activeSessions())
	})

	// Webhook endpoint (only used in webhook mode)
	if cfg.WebhookMode() {
		r.Post(bot.WebhookPath, webhook.ServeHTTP)
	}
	return r
}

// Run starts the application and blocks until shutdown
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info("Starting HTTP server", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	// Start bot in appropriate mode
	if a.config.WebhookMode() {
		g.Go(func() error {
			a.logger.Info("Starting bot in WEBHOOK mode", zap.String("webhook_url", a.config.WebhookURL))
			if err := a.bot.StartWebhook(a.config.WebhookURL, a.config.WebhookSecret); err != nil {
				return fmt.Errorf("failed to setup webhook: %w", err)
			}
			return nil
		})
	} else {
		g.Go(func() error {
			a.logger.Info("Starting bot in POLLING mode")
			return a.bot.Start(gctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("Shutting down...")
		return a.Shutdown()
	})

	return g.Wait()
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown() error {
	// Shutdown HTTP server gracefully
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// Pending follow-ups are dropped; in-flight handlers finish first
	a.scheduler.Stop()
	a.bot.Wait()

	if err := a.db.Close(); err != nil {
		a.logger.Error("Error closing database", zap.Error(err))
		return err
	}

	a.logger.Info("Shutdown complete")
	_ = a.logger.Sync()
	return nil
}
