// The pagelens server exposes page summarization over HTTP.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/pagelens/pagelens"
	"github.com/pagelens/pagelens/src/cache"
	"github.com/pagelens/pagelens/src/config"
	"github.com/pagelens/pagelens/src/extract"
	"github.com/pagelens/pagelens/src/history"
	"github.com/pagelens/pagelens/src/models"
	"github.com/pagelens/pagelens/src/server"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("failed to load configuration")
	}

	ctx := context.Background()

	model, err := models.NewProvider(ctx, models.ProviderConfig{
		Provider:     cfg.Provider,
		Model:        cfg.Model,
		PromptPrefix: cfg.PromptPrefix,
		BaseURL:      cfg.AgentBaseURL,
		AgentID:      cfg.AgentID,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create model provider")
	}

	store, err := history.Open(ctx, history.Options{
		Backend:       cfg.HistoryBackend,
		PostgresDSN:   cfg.PostgresDSN,
		MongoURI:      cfg.MongoURI,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		SQLitePath:    cfg.SQLitePath,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to open history store")
	}

	session, err := pagelens.New(pagelens.Options{
		Model:     model,
		History:   store,
		Cache:     cache.New(cfg.CacheSize, cfg.CacheTTL),
		CacheFile: cfg.CacheFile,
		Extractor: extract.New(cfg.RequestTimeout),
		Logger:    logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create session")
	}

	srv, err := server.New(server.Options{
		Session:        session,
		Logger:         logger,
		RateLimit:      rate.Limit(5),
		RateBurst:      10,
		RequestTimeout: cfg.RequestTimeout,
	})
	if err != nil {
		logger.WithError(err).Fatal("failed to create server")
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"addr":     cfg.Addr(),
			"provider": cfg.Provider,
			"history":  cfg.HistoryBackend,
		}).Info("pagelens server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server stopped")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
}
