package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"supportbot/internal/bot"
	"supportbot/internal/config"
	"supportbot/internal/poller"
	"supportbot/internal/storage"
	"supportbot/internal/storage/docstore"
	"supportbot/internal/storage/pg"
	"supportbot/internal/storage/stubs"
)

// App represents the application
type App struct {
	config *config.Config
	logger *zap.Logger
	store  storage.Storage
	bot    *bot.Bot
	poller *poller.Poller
	server *http.Server

	stopPoller context.CancelFunc
}

// New creates and initializes a new application instance
func New() (*App, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	app := &App{config: cfg, logger: logger}

	logger.Info("Starting support bot")

	if err := app.initStorage(); err != nil {
		return nil, err
	}

	if err := app.initBot(); err != nil {
		return nil, err
	}

	app.initPoller()
	app.initHTTPServer()

	return app, nil
}

// initStorage connects the configured storage backend
func (a *App) initStorage() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch a.config.Backend {
	case config.BackendPostgres:
		a.logger.Info("Connecting to Postgres")
		store, err := pg.New(ctx, a.config.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		a.store = store
	case config.BackendDocstore:
		a.logger.Info("Connecting to document store",
			zap.String("bin_id", a.config.DocstoreBinID))
		store, err := docstore.New(ctx, a.config.DocstoreURL, a.config.DocstoreBinID, a.config.DocstoreAPIKey)
		if err != nil {
			return fmt.Errorf("failed to connect to document store: %w", err)
		}
		a.store = store
	case config.BackendMemory:
		a.logger.Info("Using in-memory storage")
		a.store = stubs.NewMockStore()
	}

	a.logger.Info("Storage initialized", zap.String("backend", a.config.Backend))
	return nil
}

// initBot initializes the Telegram bot
func (a *App) initBot() error {
	telegramBot, err := bot.NewBot(a.config.TelegramToken, a.store, bot.Config{
		AdminChatID: a.config.AdminChatID,
		AdminIDs:    a.config.AdminIDs,
		AppURL:      a.config.AppURL,
		ChannelURL:  a.config.ChannelURL,
		NotifyDelay: a.config.NotifyDelay,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	a.logger.Info("Bot created",
		zap.Int64("admin_chat_id", a.config.AdminChatID),
		zap.Int64s("admin_ids", a.config.AdminIDs),
	)

	a.bot = telegramBot
	return nil
}

// initPoller prepares the outbound admin-message poller
func (a *App) initPoller() {
	a.poller = poller.New(a.store, a.bot.API(), a.config.PollInterval, a.logger)
}

// initHTTPServer starts the HTTP server for health checks
func (a *App) initHTTPServer() {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "Support bot is running (backend: %s)", a.config.Backend)
	})

	a.server = &http.Server{
		Addr:         ":" + a.config.Port,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		a.logger.Info("Starting HTTP server", zap.String("port", a.config.Port))
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
}

// Run starts the application and blocks until shutdown
func (a *App) Run() error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	pollerCtx, cancel := context.WithCancel(context.Background())
	a.stopPoller = cancel
	go a.poller.Run(pollerCtx)

	go func() {
		if err := a.bot.Start(); err != nil {
			a.logger.Fatal("Failed to start bot", zap.Error(err))
		}
	}()

	<-sigChan

	a.logger.Info("Shutting down")
	return a.Shutdown()
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown() error {
	a.bot.Stop()
	if a.stopPoller != nil {
		a.stopPoller()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	if err := a.store.Close(); err != nil {
		a.logger.Error("Error closing storage", zap.Error(err))
		return err
	}

	a.logger.Info("Shutdown complete")
	return nil
}
