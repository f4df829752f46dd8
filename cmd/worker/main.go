package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trackrequestd/internal/config"
	"trackrequestd/internal/controller"
	"trackrequestd/internal/metadata"
	"trackrequestd/internal/radiomanager"
	"trackrequestd/internal/retry"
	"trackrequestd/internal/search"
	"trackrequestd/internal/store"
	"trackrequestd/internal/suggestion"
	"trackrequestd/internal/torrent"
	"trackrequestd/internal/trackrequest"
)

func main() {
	jsonHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	slog.SetDefault(slog.New(jsonHandler))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	st, err := store.NewStoreFromConfig(ctx)
	if err != nil {
		slog.Error("failed to initialize state store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	searchClient, err := search.New(config.TrackerBaseURL, config.TrackerUser, config.TrackerPass, config.SearchTimeout)
	if err != nil {
		slog.Error("failed to initialize search adapter", "error", err)
		os.Exit(1)
	}
	if err := searchClient.Login(ctx); err != nil {
		slog.Error("failed to authenticate search adapter", "error", err)
		os.Exit(1)
	}

	torrentClient, err := torrent.New(config.DownloadRoot)
	if err != nil {
		slog.Error("failed to start torrent engine", "error", err)
		os.Exit(1)
	}
	defer torrentClient.Close()

	metadataReader := metadata.New()
	radioClient := radiomanager.New(config.RadioManagerBaseURL, config.RadioManagerClientID, config.RadioManagerSecret, config.RadioManagerTimeout)

	processor := trackrequest.NewProcessor(st, searchClient, torrentClient, metadataReader, radioClient, trackrequest.Config{
		DownloadRoot: config.DownloadRoot,
		PollInterval: config.PollInterval,
		Retry: retry.Policy{
			Initial:     config.RetryInitial,
			Factor:      config.RetryFactor,
			Cap:         config.RetryCap,
			MaxAttempts: uint(config.RetryMaxAttempts),
		},
	})

	ctrl := controller.New(ctx, st, processor)

	if config.SuggestionEnabled() {
		suggestionClient := suggestion.New(config.SuggestionBaseURL, config.SuggestionAPIKey, config.SuggestionTimeout)
		ctrl.EnableSuggestions(radioClient, suggestionClient)
		slog.Info("suggestion adapter enabled")
	}

	if err := ctrl.RecoverStartupTasks(ctx); err != nil {
		slog.Error("failed to recover in-flight requests at startup", "error", err)
		os.Exit(1)
	}

	sweepTicker := time.NewTicker(1 * time.Hour)
	defer sweepTicker.Stop()

	slog.Info("worker started")

	for {
		select {
		case <-ctx.Done():
			slog.Info("context cancelled, shutting down")
			ctrl.Shutdown(30 * time.Second)
			return
		case sig := <-sigChan:
			slog.Info("received signal, shutting down gracefully", "signal", sig)
			cancel()
			ctrl.Shutdown(30 * time.Second)
			return
		case <-sweepTicker.C:
			slog.Info("running scheduled status sweep")
			if err := st.SweepExpiredStatuses(ctx); err != nil {
				slog.Error("failed to sweep expired statuses", "error", err)
			}
		}
	}
}
