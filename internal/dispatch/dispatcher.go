// Package dispatch routes inbound chat events to background lookups.
//
// OnMessage never blocks on downstream work: accepted events run on a
// bounded pool of worker goroutines, and an event that arrives while every
// worker is busy is rejected rather than queued.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/helixir/paperbot/internal/domain"
	"github.com/helixir/paperbot/internal/observability"
)

const (
	// DefaultWorkers bounds concurrently running tasks.
	DefaultWorkers = 8

	// DefaultTaskTimeout bounds one task; a full top lookup pages through
	// up to 100 search pages under rate limits.
	DefaultTaskTimeout = 15 * time.Minute
)

// Handler performs the work for a classified event.
type Handler interface {
	HandleSingle(ctx context.Context, ev domain.ChatEvent, paperID string)
	HandleTop(ctx context.Context, ev domain.ChatEvent, count int)
}

// EventRecorder receives dispatch telemetry. observability.Metrics satisfies it.
type EventRecorder interface {
	RecordEvent(outcome string)
	RecordTaskStarted()
	RecordTaskFinished(kind string, durationSeconds float64)
}

type nopEventRecorder struct{}

func (nopEventRecorder) RecordEvent(string)                 {}
func (nopEventRecorder) RecordTaskStarted()                 {}
func (nopEventRecorder) RecordTaskFinished(string, float64) {}

// Config configures a Dispatcher.
type Config struct {
	Workers     int
	TaskTimeout time.Duration

	// BotUserID is the bot's own user id; its messages are rejected.
	BotUserID string

	Command      string
	DefaultCount int
}

// Dispatcher classifies events and runs handlers off the caller's path.
type Dispatcher struct {
	config     Config
	classifier *Classifier
	handler    Handler
	recorder   EventRecorder
	logger     zerolog.Logger

	sem *semaphore.Weighted
	wg  sync.WaitGroup

	// baseCtx parents every task; cancel aborts tasks still running when
	// Wait gives up.
	baseCtx context.Context
	cancel  context.CancelFunc
}

// New creates a Dispatcher. recorder may be nil.
func New(cfg Config, handler Handler, recorder EventRecorder, logger zerolog.Logger) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = DefaultTaskTimeout
	}
	if recorder == nil {
		recorder = nopEventRecorder{}
	}

	baseCtx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		config:     cfg,
		classifier: NewClassifier(cfg.Command, cfg.DefaultCount),
		handler:    handler,
		recorder:   recorder,
		logger:     logger.With().Str("component", "dispatcher").Logger(),
		sem:        semaphore.NewWeighted(int64(cfg.Workers)),
		baseCtx:    baseCtx,
		cancel:     cancel,
	}
}

// OnMessage classifies ev and, when it asks for a lookup, starts the
// matching handler in the background. It returns as soon as the event
// reaches a terminal state.
func (d *Dispatcher) OnMessage(ev domain.ChatEvent) domain.DispatchOutcome {
	outcome := d.dispatch(ev)
	d.recorder.RecordEvent(string(outcome))
	return outcome
}

func (d *Dispatcher) dispatch(ev domain.ChatEvent) domain.DispatchOutcome {
	if ev.IsBot || ev.AuthorID == "" || (d.config.BotUserID != "" && ev.AuthorID == d.config.BotUserID) {
		return domain.OutcomeRejectedBot
	}
	if ev.IsRetry() {
		d.logger.Debug().
			Int("retry_num", ev.RetryNum).
			Str("retry_reason", ev.RetryReason).
			Str("channel", ev.Channel).
			Msg("ignoring redelivered event")
		return domain.OutcomeRejectedRetry
	}

	req := d.classifier.Classify(ev.Text)
	var outcome domain.DispatchOutcome
	switch req.Kind {
	case domain.RequestKindSingle:
		outcome = domain.OutcomeDispatchedSingle
	case domain.RequestKindTop:
		outcome = domain.OutcomeDispatchedTop
	default:
		return domain.OutcomeIgnored
	}

	if !d.sem.TryAcquire(1) {
		d.logger.Warn().
			Str("channel", ev.Channel).
			Str("kind", string(req.Kind)).
			Int("workers", d.config.Workers).
			Msg("all workers busy; rejecting event")
		return domain.OutcomeSaturated
	}

	d.wg.Add(1)
	go d.run(ev, req)
	return outcome
}

func (d *Dispatcher) run(ev domain.ChatEvent, req Request) {
	defer d.wg.Done()
	defer d.sem.Release(1)

	ctx, cancel := context.WithTimeout(d.baseCtx, d.config.TaskTimeout)
	defer cancel()

	requestID := uuid.NewString()
	ctx = observability.WithRequestID(ctx, requestID)
	ctx = observability.WithThread(ctx, ev.Channel, ev.Timestamp)
	log := observability.Logger(ctx, d.logger)

	start := time.Now()
	d.recorder.RecordTaskStarted()
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("panic", fmt.Sprint(r)).
				Msg("task panicked")
		}
		elapsed := time.Since(start)
		d.recorder.RecordTaskFinished(string(req.Kind), elapsed.Seconds())
		log.Info().
			Str("kind", string(req.Kind)).
			Dur("duration", elapsed).
			Msg("task finished")
	}()

	log.Info().
		Str("kind", string(req.Kind)).
		Str("arxiv_id", req.PaperID).
		Int("count", req.Count).
		Msg("task started")

	switch req.Kind {
	case domain.RequestKindSingle:
		d.handler.HandleSingle(ctx, ev, req.PaperID)
	case domain.RequestKindTop:
		d.handler.HandleTop(ctx, ev, req.Count)
	}
}

// Wait blocks until every running task has finished or ctx is done. In the
// latter case running tasks are canceled and ctx's error is returned.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		d.cancel()
		return ctx.Err()
	}
}
