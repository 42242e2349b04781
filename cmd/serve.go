package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/quillchat/quill/internal/auth"
	"github.com/quillchat/quill/internal/chat"
	"github.com/quillchat/quill/internal/config"
	"github.com/quillchat/quill/internal/database"
	"github.com/quillchat/quill/internal/llm"
	"github.com/quillchat/quill/internal/log"
	"github.com/quillchat/quill/internal/store"
	"github.com/quillchat/quill/internal/tools"
	"github.com/quillchat/quill/internal/web"
)

// Server timeout configuration.
const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 6 * time.Minute // SSE turns need a long write window
	idleTimeout       = 2 * time.Minute
	shutdownTimeout   = 30 * time.Second
	sessionTTL        = 7 * 24 * time.Hour
)

func newLogger(cfg *config.Config) log.Logger {
	level := log.ParseLevel(cfg.LogLevel)
	if os.Getenv("DEBUG") != "" {
		level = log.ParseLevel("debug")
	}
	return log.New(log.Config{Level: level, JSON: cfg.LogJSON})
}

// runServe initializes and starts the HTTP chat server.
func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := newLogger(cfg)
	logger.Info("starting quill", "version", Version)

	if err := database.Migrate(cfg.DSN(), logger); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	pool, err := database.Open(ctx, cfg.DSN(), logger)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer pool.Close()

	registry, err := tools.NewRegistry(tools.Builtins()...)
	if err != nil {
		return fmt.Errorf("building tool registry: %w", err)
	}

	client, err := llm.NewOpenAI(llm.OpenAIConfig{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
	}, logger)
	if err != nil {
		return fmt.Errorf("creating model client: %w", err)
	}

	assembler, err := chat.New(chat.Config{
		Client:     client,
		Registry:   registry,
		Dispatcher: tools.NewDispatcher(registry, logger),
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("creating turn assembler: %w", err)
	}

	provider, err := auth.NewGoogle(auth.GoogleConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.OAuthRedirectURL,
	})
	if err != nil {
		return fmt.Errorf("creating identity provider: %w", err)
	}

	sessions, err := auth.NewSessions([]byte(cfg.SessionSecret), sessionTTL)
	if err != nil {
		return fmt.Errorf("creating session signer: %w", err)
	}

	server, err := web.NewServer(web.ServerConfig{
		Logger:        logger,
		Store:         store.New(pool, logger),
		Runner:        assembler,
		Registry:      registry,
		Provider:      provider,
		Sessions:      sessions,
		DB:            pool,
		Models:        cfg.Models,
		Version:       Version,
		SecureCookies: cfg.SecureCookies,
		TurnRate:      cfg.TurnRate,
		TurnBurst:     cfg.TurnBurst,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           server,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	logger.Info("HTTP server ready",
		"addr", cfg.Addr(),
		"models", strings.Join(cfg.Models, ","),
		"tools", strings.Join(registry.Names(), ","),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down HTTP server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server: %w", err)
	}
}
