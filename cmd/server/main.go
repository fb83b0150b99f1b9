// Package main provides the entry point for the paper mention bot.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/helixir/paperbot/internal/cache"
	"github.com/helixir/paperbot/internal/config"
	"github.com/helixir/paperbot/internal/dispatch"
	"github.com/helixir/paperbot/internal/domain"
	"github.com/helixir/paperbot/internal/mentions"
	"github.com/helixir/paperbot/internal/observability"
	"github.com/helixir/paperbot/internal/papersources/arxiv"
	"github.com/helixir/paperbot/internal/papersources/twitter"
	"github.com/helixir/paperbot/internal/ranking"
	"github.com/helixir/paperbot/internal/reply"
	httpserver "github.com/helixir/paperbot/internal/server/http"
	"github.com/helixir/paperbot/internal/slack"
	"github.com/helixir/paperbot/internal/translation"
	"github.com/helixir/paperbot/internal/translation/deepl"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up structured logging.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("service", "paperbot").Logger()
	logger.Info().Msg("paperbot starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics(cfg.Metrics.Namespace)

	// One memo per cached operation, each living for the whole process.
	translationMemo, err := cache.New[cache.Key, string]("translation", cfg.Cache.TranslationSize, metrics)
	if err != nil {
		return err
	}
	metadataMemo, err := cache.New[cache.Key, []domain.Paper]("metadata", cfg.Cache.MetadataSize, metrics)
	if err != nil {
		return err
	}
	mentionsMemo, err := cache.New[cache.Key, *mentions.FrequencyTable]("mentions", cfg.Cache.MentionsSize, metrics)
	if err != nil {
		return err
	}

	// Metadata.
	arxivClient := arxiv.New(arxiv.Config{
		BaseURL:   cfg.ArXiv.BaseURL,
		Timeout:   cfg.ArXiv.Timeout,
		RateLimit: cfg.ArXiv.RateLimit,
		BurstSize: cfg.ArXiv.Burst,
	}, metrics)
	fetcher := arxiv.NewFetcher(arxivClient, metadataMemo, arxiv.FetcherConfig{
		ChunkSize:   cfg.ArXiv.ChunkSize,
		Concurrency: cfg.ArXiv.Concurrency,
	}, logger)

	// Mentions.
	twitterClient := twitter.New(twitter.Config{
		BaseURL:      cfg.Twitter.BaseURL,
		TokenURL:     cfg.Twitter.TokenURL,
		APIKey:       cfg.Twitter.APIKey,
		APISecretKey: cfg.Twitter.APISecretKey,
		Timeout:      cfg.Twitter.Timeout,
		RateLimit:    cfg.Twitter.RateLimit,
		BurstSize:    cfg.Twitter.Burst,
	}, metrics)
	counter := mentions.NewCounter(twitterClient, mentionsMemo, metrics, logger)

	// Translation.
	deeplClient := deepl.New(deepl.Config{
		BaseURL:   cfg.Translation.BaseURL,
		Timeout:   cfg.Translation.Timeout,
		RateLimit: cfg.Translation.RateLimit,
	}, metrics)
	translator := translation.NewCache(
		deeplClient,
		translation.EnvCredentials{Prefix: cfg.Translation.CredentialPrefix},
		translationMemo,
		metrics,
		logger,
	)

	// Replies.
	slackClient := slack.New(slack.Config{
		BaseURL:   cfg.Slack.BaseURL,
		BotToken:  cfg.Slack.BotToken,
		Timeout:   cfg.Slack.Timeout,
		RateLimit: cfg.Slack.RateLimit,
	}, metrics, metrics, logger)

	lookups := dispatch.NewLookups(
		dispatch.LookupConfig{
			GenericQuery:   cfg.Twitter.GenericQuery,
			CategoryFilter: cfg.ArXiv.CategoryFilter,
			MaxPages:       cfg.Twitter.MaxPages,
			PageSize:       cfg.Twitter.PageSize,
			ChunkSize:      cfg.ArXiv.ChunkSize,
		},
		fetcher,
		counter,
		ranking.NewRanker(fetcher, logger),
		reply.NewFormatter(translator, cfg.Translation.TargetLang),
		slackClient,
		logger,
	)

	dispatcher := dispatch.New(dispatch.Config{
		Workers:      cfg.Dispatch.Workers,
		TaskTimeout:  cfg.Dispatch.TaskTimeout,
		BotUserID:    cfg.Dispatch.BotUserID,
		Command:      cfg.Dispatch.Command,
		DefaultCount: cfg.Dispatch.DefaultTop,
	}, lookups, metrics, logger)

	httpCfg := httpserver.Config{
		Address:         cfg.Server.HTTPAddress(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}
	httpSrv := httpserver.NewServer(httpCfg, dispatcher, logger)

	// Set up Prometheus metrics handler on a separate port if configured.
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress(),
			Handler:      metricsMux,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}
	}

	// Channel to collect server errors.
	errCh := make(chan error, 2)

	go func() {
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	if metricsServer != nil {
		go func() {
			logger.Info().
				Str("address", metricsServer.Addr).
				Msg("metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	readyLog := logger.Info().
		Str("http_address", httpCfg.Address).
		Int("workers", cfg.Dispatch.Workers).
		Str("command", cfg.Dispatch.Command)
	if metricsServer != nil {
		readyLog = readyLog.Str("metrics_address", metricsServer.Addr)
	}
	readyLog.Msg("paperbot is ready")

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	// Graceful shutdown.
	logger.Info().Msg("shutting down paperbot")
	httpSrv.SetReady(false)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Stop taking events before draining the worker pool.
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	if err := dispatcher.Wait(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("lookups cancelled before finishing")
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown error")
		}
	}

	logger.Info().Msg("paperbot shutdown complete")
	return nil
}
