// Command bookshelf runs the community bookshelf web server.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookshelf/internal/catalog"
	"bookshelf/internal/config"
	"bookshelf/internal/database"
	"bookshelf/internal/handlers"
	"bookshelf/internal/middleware"
	"bookshelf/internal/render"
	"bookshelf/internal/router"
	"bookshelf/internal/session"
	"bookshelf/internal/store"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := database.Connect(cfg.DSN())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		return err
	}
	if err := database.Seed(db); err != nil {
		return err
	}

	valkey, err := session.Connect(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		return err
	}
	defer valkey.Close()

	renderer, err := render.New()
	if err != nil {
		return err
	}

	sessions := session.NewStore(valkey, !cfg.IsDev())
	users := store.NewUserStore(db)
	books := store.NewBookStore(db)
	shelf := store.NewShelfStore(db)
	catalogClient := catalog.New(cfg.CatalogBaseURL, cfg.CatalogTimeout)

	// 10 credential submissions per minute per IP.
	authLimiter := middleware.NewRateLimiter(10, time.Minute)
	defer authLimiter.Stop()

	handler := router.New(router.Deps{
		Sessions:    sessions,
		Auth:        handlers.NewAuthHandlers(users, sessions, renderer),
		Books:       handlers.NewBookHandlers(books, shelf, users, renderer),
		Search:      handlers.NewSearchHandlers(catalogClient, books, shelf, renderer),
		Admin:       handlers.NewAdminHandlers(users, books, shelf, renderer),
		Health:      handlers.NewHealthHandler(db, valkey),
		AuthLimiter: authLimiter,
		Secure:      !cfg.IsDev(),
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", cfg.Addr(), "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		slog.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return err
	}

	slog.Info("server stopped")
	return nil
}
