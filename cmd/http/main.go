package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trackrequestd/internal/config"
	"trackrequestd/internal/controller"
	"trackrequestd/internal/httpapi"
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

	// This process spawns a local driver for every request it submits so a
	// caller gets immediate progress even if no cmd/worker process is
	// running alongside it; see DESIGN.md for the resulting cross-process
	// duplicate-driver tradeoff when both binaries run together.
	ctrl := controller.New(ctx, st, processor)

	if config.SuggestionEnabled() {
		suggestionClient := suggestion.New(config.SuggestionBaseURL, config.SuggestionAPIKey, config.SuggestionTimeout)
		ctrl.EnableSuggestions(radioClient, suggestionClient)
		slog.Info("suggestion adapter enabled")
	}

	srv := httpapi.New(httpapi.Deps{
		Controller: ctrl,
		Store:      st,
		Search:     searchClient,
		Radio:      radioClient,
	}, httpapi.Auth0Config{
		Domain:   os.Getenv("AUTH0_DOMAIN"),
		Audience: os.Getenv("AUTH0_AUDIENCE"),
	}, config.HTTPListenAddr)

	if err := ctrl.RecoverStartupTasks(ctx); err != nil {
		slog.Error("failed to recover in-flight requests at startup", "error", err)
		os.Exit(1)
	}
	srv.MarkRecovered()

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server failed to start", "error", err)
			cancel()
		}
	}()

	slog.Info("trackrequestd HTTP server started", "address", config.HTTPListenAddr)

	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		slog.Info("context cancelled")
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}
	ctrl.Shutdown(30 * time.Second)
}
