// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package server wires configuration, storage and services into the HTTP API.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"codeberg.org/oliverandrich/whisperbox/internal/config"
	"codeberg.org/oliverandrich/whisperbox/internal/database"
	"codeberg.org/oliverandrich/whisperbox/internal/handlers"
	"codeberg.org/oliverandrich/whisperbox/internal/i18n"
	"codeberg.org/oliverandrich/whisperbox/internal/metrics"
	"codeberg.org/oliverandrich/whisperbox/internal/middleware"
	"codeberg.org/oliverandrich/whisperbox/internal/models"
	"codeberg.org/oliverandrich/whisperbox/internal/repository"
	"codeberg.org/oliverandrich/whisperbox/internal/services/account"
	authsvc "codeberg.org/oliverandrich/whisperbox/internal/services/auth"
	"codeberg.org/oliverandrich/whisperbox/internal/services/email"
	"codeberg.org/oliverandrich/whisperbox/internal/services/inbox"
	"codeberg.org/oliverandrich/whisperbox/internal/services/session"
	"codeberg.org/oliverandrich/whisperbox/internal/services/verification"
	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"
)

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
	)

	// i18n
	if initErr := i18n.Init(); initErr != nil {
		return fmt.Errorf("failed to init i18n: %w", initErr)
	}

	// Mail
	mailer, err := email.NewService(&cfg.SMTP, cfg.Server.BaseURL, cfg.Verification.CodeTTL)
	if err != nil {
		return fmt.Errorf("failed to configure email: %w", err)
	}

	// Database, migrations included
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	app, err := NewApp(cfg, repository.New(db), mailer)
	if err != nil {
		return err
	}

	e := NewEcho(cfg, app)

	return startWithGracefulShutdown(ctx, e, cfg)
}

// Store is the persistence the API needs, including a health probe.
type Store interface {
	models.Store
	handlers.Pinger
}

// App holds the wired handlers and the collaborators the routes need.
type App struct {
	handlers *handlers.Handlers
	auth     *handlers.AuthHandlers
	messages *handlers.MessageHandlers
	sessions *session.Manager
	store    Store
	metrics  *metrics.Metrics
}

// NewApp builds the services on top of store and mailer.
func NewApp(cfg *config.Config, store Store, mailer models.Mailer) (*App, error) {
	sessions, err := session.NewManager(&cfg.Session, strings.HasPrefix(cfg.Server.BaseURL, "https://"))
	if err != nil {
		return nil, fmt.Errorf("failed to configure sessions: %w", err)
	}

	m := metrics.New()
	accounts := account.NewService(store, verification.NewIssuer(cfg.Verification.CodeTTL), mailer)

	return &App{
		handlers: handlers.New(store),
		auth:     handlers.NewAuth(accounts, authsvc.NewService(store, authsvc.DefaultCost), sessions, m),
		messages: handlers.NewMessages(accounts, inbox.NewService(store), m),
		sessions: sessions,
		store:    store,
		metrics:  m,
	}, nil
}

// NewEcho creates the Echo instance with middleware and routes.
func NewEcho(cfg *config.Config, app *App) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	setupMiddleware(e, cfg)
	setupRoutes(e, cfg, app)

	return e
}

func setupRoutes(e *echo.Echo, cfg *config.Config, app *App) {
	e.GET("/health", app.handlers.Health)
	if cfg.Server.Metrics {
		e.GET("/metrics", echo.WrapHandler(app.metrics.Handler()))
	}

	api := e.Group("/api", middleware.LoadAccount(app.sessions, app.store))

	// Public
	api.POST("/sign-up", app.auth.SignUp)
	api.POST("/verify-code", app.auth.VerifyCode)
	api.GET("/check-username-unique", app.auth.CheckUsernameUnique)
	api.POST("/sign-in", app.auth.SignIn)
	api.POST("/sign-out", app.auth.SignOut)

	var limit []echo.MiddlewareFunc
	if mw := sendLimiter(cfg.Limits); mw != nil {
		limit = append(limit, mw)
	}
	api.POST("/send-message", app.messages.SendMessage, limit...)

	// Owner only
	owner := api.Group("", middleware.RequireAuth())
	owner.GET("/accept-messages", app.messages.GetAccepting)
	owner.POST("/accept-messages", app.messages.SetAccepting)
	owner.GET("/get-messages", app.messages.GetMessages)
	owner.DELETE("/delete-message/:id", app.messages.DeleteMessage)
}

func startWithGracefulShutdown(ctx context.Context, e *echo.Echo, cfg *config.Config) error {
	// Setup TLS
	tlsResult, err := SetupTLS(cfg)
	if err != nil {
		return fmt.Errorf("TLS setup failed: %w", err)
	}

	// Channel for server errors
	errChan := make(chan error, 2)

	// HTTP redirect server for ACME mode
	var httpServer *http.Server

	switch tlsResult.Mode {
	case TLSModeOff:
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		go func() {
			slog.Info("Server running", "url", cfg.Server.BaseURL)
			if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

	case TLSModeACME:
		go func() {
			slog.Info("Server running", "url", cfg.Server.BaseURL)
			if err := startTLSServer(e, ":443", tlsResult.TLSConfig); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

		httpServer = &http.Server{
			Addr:              ":80",
			Handler:           tlsResult.HTTPHandler,
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			slog.Info("HTTP to HTTPS redirect active", "addr", ":80")
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()

	case TLSModeManual:
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		go func() {
			slog.Info("Server running", "url", cfg.Server.BaseURL)
			if err := startTLSServer(e, addr, tlsResult.TLSConfig); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errChan <- err
			}
		}()
	}

	// Wait for interrupt signal, cancellation or error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		slog.Info("shutting down server")
	case <-ctx.Done():
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown main server", "error", err)
	}

	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to shutdown HTTP redirect server", "error", err)
		}
	}

	slog.Info("server stopped")
	return nil
}

// startTLSServer starts the Echo server with a custom TLS configuration.
func startTLSServer(e *echo.Echo, addr string, tlsConfig *tls.Config) error {
	lc := &net.ListenConfig{}
	ln, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return err
	}
	e.TLSListener = tls.NewListener(ln, tlsConfig)
	e.TLSServer.TLSConfig = tlsConfig
	return e.Server.Serve(e.TLSListener)
}
