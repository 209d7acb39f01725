package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cesargomez89/mias/internal/app"
	"github.com/cesargomez89/mias/internal/config"
	"github.com/cesargomez89/mias/internal/constants"
	httpapp "github.com/cesargomez89/mias/internal/http"
	"github.com/cesargomez89/mias/internal/logger"
	"github.com/cesargomez89/mias/internal/spotify"
	"github.com/cesargomez89/mias/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Default().Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		logger.Default().Error("Configuration error", "error", err)
		os.Exit(1)
	}

	// Initialize Logger
	appLogger := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	// Initialize DB
	db, err := store.NewSQLiteDB(cfg.DBPath)
	if err != nil {
		appLogger.Error("Failed to init DB", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Initialize Spotify client
	client, err := spotify.NewClient(spotify.Config{
		ClientID:        cfg.Spotify.ClientID,
		ClientSecret:    cfg.Spotify.ClientSecret,
		APIURL:          cfg.Spotify.APIURL,
		AuthURL:         cfg.Spotify.AuthURL,
		RequestInterval: cfg.Spotify.RequestInterval,
	}, appLogger)
	if err != nil {
		appLogger.Error("Failed to init Spotify client", "error", err)
		os.Exit(1)
	}
	client.SetRetry(cfg.Spotify.RetryCount, constants.DefaultRetryBase)
	source := spotify.NewCachedSource(client, db, cfg.CacheTTL)

	// Initialize Services
	recommender := app.NewRecommender(db, spotify.NewExtractor(source, appLogger), appLogger)
	recommender.TopN = cfg.TopN

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go purgeCache(ctx, db, appLogger)

	h := httpapp.NewHandler(recommender, appLogger)
	h.CORSOrigins = cfg.API.CORSOrigins
	h.RateLimit = cfg.API.RateLimit
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpapp.NewRouter(h),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("Server error", "error", err)
			stop()
		}
	}()

	// Graceful Shutdown
	<-ctx.Done()
	appLogger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.DefaultShutdownGrace)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", "error", err)
	}

	appLogger.Info("Server exiting")
}

// purgeCache drops expired Spotify lookups once an hour until ctx ends.
func purgeCache(ctx context.Context, db *store.DB, log *logger.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := db.PurgeExpiredCache()
			if err != nil {
				log.Warn("Failed to purge cache", "error", err)
				continue
			}
			log.Debug("Purged expired cache entries", "count", n)
		}
	}
}
