// Package observability provides logging and metrics support for the paper bot.
//
// # Overview
//
// The observability package provides:
//
//   - Structured logging with zerolog
//   - Prometheus metrics for events, caches, providers, and replies
//   - Context helpers for propagating event data into worker tasks
//
// # Logging
//
// Create a logger from configuration:
//
//	cfg := observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "stdout",
//	}
//
//	logger := observability.NewLogger(cfg)
//	logger.Info().Str("channel", channel).Msg("reply posted")
//
// Inside a worker task, derive a logger from the task context:
//
//	ctx = observability.WithRequestID(ctx, requestID)
//	ctx = observability.WithThread(ctx, channel, threadTS)
//	log := observability.Logger(ctx, base)
//
// # Metrics
//
//	metrics := observability.NewMetrics("paperbot")
//	metrics.RecordEvent("dispatched_top")
//	metrics.RecordCacheHit("mentions")
//
// Metrics satisfies cache.Recorder and papersources.RequestRecorder.
//
// # Standard Fields
//
//   - request_id: per-event identifier assigned by the dispatcher
//   - channel, thread_ts: where the reply goes
//   - query: social search query
//   - source: external provider (arxiv, twitter, deepl, slack)
//   - arxiv_id: paper identifier
//
// # Thread Safety
//
// All components are safe for concurrent use from multiple goroutines.
package observability
