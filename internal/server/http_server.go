// Package server constructs and starts the gocollab HTTP service with helpers
// that apply sensible production defaults.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Tyrowin/gocollab/internal/storage"
)

// CreateServer creates and configures an HTTP server with the specified port and handler.
// It sets reasonable timeout values for production use.
func CreateServer(port string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// StartServer starts the HTTP server and begins listening for connections.
// It returns nil once the server has been shut down.
func StartServer(server *http.Server, log *slog.Logger) error {
	log.Info("server listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ShutdownServer gracefully shuts down the HTTP server without interrupting active connections.
// It waits for active connections to close or until the timeout is reached.
func ShutdownServer(server *http.Server, timeout time.Duration, log *slog.Logger) error {
	log.Info("shutting down HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
		return err
	}

	log.Info("HTTP server shutdown completed")
	return nil
}

// App is a fully wired gocollab process: storage, both hubs and the HTTP
// server in front of them.
type App struct {
	Config   Config
	Metrics  *Metrics
	Chat     *ChatHub
	Document *DocumentHub
	HTTP     *http.Server

	store storage.Store
	log   *slog.Logger
}

// NewApp opens storage and builds the hubs and router. Defaults are
// written for any missing blob; failing to write them is logged and the
// app still starts.
func NewApp(ctx context.Context, cfg Config, log *slog.Logger) (*App, error) {
	cfg = cfg.Sanitize()

	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	return NewAppWithStore(ctx, cfg, store, log), nil
}

// NewAppWithStore is NewApp over an already opened store. The app takes
// ownership of store and closes it on Shutdown.
func NewAppWithStore(ctx context.Context, cfg Config, store storage.Store, log *slog.Logger) *App {
	cfg = cfg.Sanitize()
	if log == nil {
		log = slog.Default()
	}

	messages := storage.NewMessageLog(store)
	if err := messages.EnsureDefaults(ctx); err != nil {
		log.Error("failed to initialise messages blob", "error", err)
	}
	documents := storage.NewDocumentStore(store, cfg.WelcomeText)

	metrics := NewMetrics()
	chat := NewChatHub(ctx, messages, cfg, metrics, log)
	doc := NewDocumentHub(ctx, documents, cfg, metrics, log)

	origins := newOriginPolicy(cfg.AllowedOrigins, log)
	handlers := NewHandlers(chat, doc, storage.NewUserDirectory(messages), origins, log)
	router := SetupRoutes(handlers, origins, metrics, log)

	return &App{
		Config:   cfg,
		Metrics:  metrics,
		Chat:     chat,
		Document: doc,
		HTTP:     CreateServer(cfg.Port, router),
		store:    store,
		log:      log,
	}
}

// StartHubs runs both hub loops in the background. Call it before serving.
func (a *App) StartHubs() {
	go a.Chat.Run()
	go a.Document.Run()
	a.log.Info("hubs started")
}

// Serve blocks serving HTTP until Shutdown.
func (a *App) Serve() error {
	return StartServer(a.HTTP, a.log)
}

// Shutdown stops HTTP first, then both hubs, then closes storage, each
// step bounded by timeout.
func (a *App) Shutdown(timeout time.Duration) error {
	var errs []error
	if err := ShutdownServer(a.HTTP, timeout, a.log); err != nil {
		errs = append(errs, fmt.Errorf("http: %w", err))
	}
	if err := a.Chat.Shutdown(timeout); err != nil {
		errs = append(errs, fmt.Errorf("chat hub: %w", err))
	}
	if err := a.Document.Shutdown(timeout); err != nil {
		errs = append(errs, fmt.Errorf("document hub: %w", err))
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("storage: %w", err))
	}
	return errors.Join(errs...)
}
