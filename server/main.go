// cmd: blograph API server
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/rexlx/blograph/blog"
)

func main() {
	cfg := blog.LoadConfig()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var store blog.Store
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL is not set, using in-memory store")
		store = blog.NewMemStore()
	} else {
		pg, err := blog.NewPGStore(context.Background(), cfg.DatabaseURL)
		if err != nil {
			logger.Error("could not initialize database", "error", err)
			os.Exit(1)
		}
		if err := pg.EnsureSchema(context.Background()); err != nil {
			logger.Error("could not ensure schema", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		logger.Info("connected to database")
		store = pg
	}

	codec := blog.NewTokenCodec(cfg.JWTSecret, cfg.JWTExpiresIn, logger)
	dispatcher := blog.NewDispatcher(store, codec, logger)
	handlers := blog.NewHandlers(dispatcher, codec, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Info("server listening", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}
