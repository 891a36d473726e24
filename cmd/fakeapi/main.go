package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blackmichael/connectify/internal/config"
	"github.com/blackmichael/connectify/internal/fakeapi"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.LoadFakeAPI()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	server := fakeapi.NewServer(fakeapi.Config{
		Port:     cfg.Port,
		Secret:   cfg.Secret,
		TokenTTL: cfg.TokenTTL,
	}, logger)

	if cfg.Seed {
		seed(server, logger)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	logger.Info("fake API started", "port", cfg.Port)

	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", "signal", sig)
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("error shutting down http server", "error", err)
	}
	return nil
}

// seed loads a few demo users and posts. Every demo user's password is
// "password".
func seed(server *fakeapi.Server, logger *slog.Logger) {
	now := time.Now().UTC()
	ada := server.SeedUser("Ada", "Lovelace", "ada@example.com", "password")
	alan := server.SeedUser("Alan", "Turing", "alan@example.com", "password")
	grace := server.SeedUser("Grace", "Hopper", "grace@example.com", "password")

	server.SeedPost(ada, "Notes on the analytical engine", now.Add(-3*time.Hour))
	server.SeedPost(alan, "Can machines think?", now.Add(-2*time.Hour))
	server.SeedPost(grace, "Found a moth in the relay", now.Add(-1*time.Hour))

	logger.Info("seeded demo data", "users", 3, "posts", 3)
}
