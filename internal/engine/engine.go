// Package engine orchestrates the reconciliation-and-analytics pipeline:
// snapshot the source feeds, normalize, deduplicate, aggregate, compare,
// score, compose. Change notifications from the backing store re-run the
// whole pipeline; runs superseded by a newer notification are discarded
// before their results can be published.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finsight/internal/analytics"
	"github.com/dvloznov/finsight/internal/dedupe"
	"github.com/dvloznov/finsight/internal/domain"
	"github.com/dvloznov/finsight/internal/feeds"
	"github.com/dvloznov/finsight/internal/insights"
	"github.com/dvloznov/finsight/internal/metrics"
	"github.com/dvloznov/finsight/internal/normalize"
	"github.com/dvloznov/finsight/internal/period"
)

// ErrSuperseded marks a pipeline run abandoned because a newer change
// notification arrived before the run could commit its output.
var ErrSuperseded = errors.New("engine: run superseded by newer notification")

// Categorizer assigns spending categories to transactions whose source record
// carried none. Implementations return exactly one category per title, in
// order.
type Categorizer interface {
	Categorize(ctx context.Context, titles []string) ([]string, error)
}

// Options configures an Engine.
type Options struct {
	// Feeds are the source feeds in ingestion order (manual, scanned,
	// imported).
	Feeds []feeds.Feed

	// Composer builds the insight bundle. Required.
	Composer *insights.Composer

	// Categorizer labels transactions the sources left uncategorized. nil
	// keeps the normalizer's default category.
	Categorizer Categorizer

	// Logger is the engine logger.
	Logger zerolog.Logger

	// Metrics defaults to the no-op collector.
	Metrics metrics.Collector

	// Clock defaults to time.Now. Tests inject fixed instants.
	Clock func() time.Time

	// TrendDeadBandPercent defaults to analytics.DefaultDeadBandPercent.
	TrendDeadBandPercent float64
}

// Engine runs the pipeline on demand (public reads) and on change
// notifications (subscriptions).
type Engine struct {
	feeds       []feeds.Feed
	composer    *insights.Composer
	categorizer Categorizer
	normalizer  *normalize.Normalizer
	deadBand    float64
	clock       func() time.Time
	log         zerolog.Logger
	metrics     metrics.Collector

	// seq is the monotonically increasing run-sequence token. A run holding
	// an older token than the current value is stale and must not publish.
	seq uint64

	notifyCh chan struct{}
	closeCh  chan struct{}
	wg       sync.WaitGroup

	mu     sync.RWMutex
	subs   map[int]*subscription
	nextID int
	closed bool
}

type subscription struct {
	userID string
	kind   domain.PeriodKind
	fn     func(domain.InsightBundle)
}

// New creates an Engine.
func New(opts Options) *Engine {
	if opts.Metrics == nil {
		opts.Metrics = metrics.NoOpCollector{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.TrendDeadBandPercent == 0 {
		opts.TrendDeadBandPercent = analytics.DefaultDeadBandPercent
	}

	return &Engine{
		feeds:       opts.Feeds,
		composer:    opts.Composer,
		categorizer: opts.Categorizer,
		normalizer:  normalize.New(opts.Logger),
		deadBand:    opts.TrendDeadBandPercent,
		clock:       opts.Clock,
		log:         opts.Logger,
		metrics:     opts.Metrics,
		notifyCh:    make(chan struct{}, 1),
		closeCh:     make(chan struct{}),
		subs:        make(map[int]*subscription),
	}
}

// Notify signals that source data changed. Notifications coalesce: signaling
// while a recompute is pending is a no-op, and signaling during an in-flight
// recompute invalidates that run's token so its result is discarded.
func (e *Engine) Notify() {
	atomic.AddUint64(&e.seq, 1)
	select {
	case e.notifyCh <- struct{}{}:
	default:
	}
}

// Subscribe registers an observer for recomputed bundles of the given user
// and period kind. It returns an unsubscribe function. Observers only ever
// see results of the most recent run, in order.
func (e *Engine) Subscribe(userID string, kind domain.PeriodKind, fn func(domain.InsightBundle)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextID
	e.nextID++
	e.subs[id] = &subscription{userID: userID, kind: kind, fn: fn}

	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.subs, id)
	}
}

// Start launches the notification loop. It returns immediately; the loop
// stops when ctx is canceled or Stop is called.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return fmt.Errorf("engine is closed")
	}
	e.mu.Unlock()

	e.wg.Add(1)
	go e.loop(ctx)
	return nil
}

// Stop shuts down the notification loop and waits for an in-flight recompute
// to finish, up to the context deadline.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	close(e.closeCh)
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("engine.Stop: %w", ctx.Err())
	}
}

func (e *Engine) loop(ctx context.Context) {
	defer e.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.closeCh:
			return
		case <-e.notifyCh:
			token := atomic.LoadUint64(&e.seq)
			e.recompute(ctx, token)
		}
	}
}

// recompute re-runs the pipeline for every subscription under one run token.
// A token invalidated mid-run aborts the remaining work; the next queued
// notification restarts from a fresh snapshot.
func (e *Engine) recompute(ctx context.Context, token uint64) {
	e.mu.RLock()
	subs := make([]*subscription, 0, len(e.subs))
	for _, sub := range e.subs {
		subs = append(subs, sub)
	}
	e.mu.RUnlock()

	for _, sub := range subs {
		bundle, err := e.run(ctx, sub.userID, sub.kind, token)
		if err != nil {
			if errors.Is(err, ErrSuperseded) {
				e.metrics.RunSuperseded()
				return
			}
			e.log.Error().Err(err).
				Str("user_id", sub.userID).
				Str("period", string(sub.kind)).
				Msg("Pipeline run failed")
			continue
		}
		// Final staleness check before committing to the observer: stale
		// results are discarded, never applied out of order.
		if e.stale(token) {
			e.metrics.RunSuperseded()
			return
		}
		sub.fn(bundle)
	}
}

// GetInsights runs the full pipeline for one user and period kind and returns
// the composed bundle. It is an idempotent, side-effect-free read.
func (e *Engine) GetInsights(ctx context.Context, userID string, kind domain.PeriodKind) (domain.InsightBundle, error) {
	return e.run(ctx, userID, kind, 0)
}

// GetAggregate computes the deduplicated aggregate for one user and period
// kind without composing insights. Idempotent, side-effect-free.
func (e *Engine) GetAggregate(ctx context.Context, userID string, kind domain.PeriodKind) (domain.AggregateResult, error) {
	now := e.clock()
	current, err := period.Resolve(kind, now)
	if err != nil {
		return domain.AggregateResult{}, err
	}

	ledger, _ := e.ledger(ctx, userID, now)
	result := analytics.Aggregate(ledger, current)
	e.checkInvariant(userID, result)
	return result, nil
}

// GetTransactions returns the reconciled transactions of the current period of
// the given kind: snapshot, normalize, deduplicate, categorize, then filter to
// the period. Idempotent, side-effect-free.
func (e *Engine) GetTransactions(ctx context.Context, userID string, kind domain.PeriodKind) ([]domain.Transaction, error) {
	now := e.clock()
	current, err := period.Resolve(kind, now)
	if err != nil {
		return nil, err
	}

	ledger, _ := e.ledger(ctx, userID, now)
	out := make([]domain.Transaction, 0, len(ledger))
	for _, tx := range ledger {
		if current.Contains(tx.OccurredAt) {
			out = append(out, tx)
		}
	}
	return out, nil
}

// run executes the pipeline stages under the given token. token 0 means a
// direct read that cannot be superseded. Cancellation is cooperative: the
// token is checked between stages, not preemptively.
func (e *Engine) run(ctx context.Context, userID string, kind domain.PeriodKind, token uint64) (domain.InsightBundle, error) {
	e.metrics.RunStarted()
	started := e.clock()

	currentPeriod, err := period.Resolve(kind, started)
	if err != nil {
		return domain.InsightBundle{}, err
	}

	// Each run operates on an immutable snapshot fetched at run start; no
	// shared mutable state crosses runs.
	ledger, complete := e.ledger(ctx, userID, started)
	if e.stale(token) {
		return domain.InsightBundle{}, ErrSuperseded
	}

	previousPeriod := period.Previous(currentPeriod)
	current := analytics.Aggregate(ledger, currentPeriod)
	previous := analytics.Aggregate(ledger, previousPeriod)
	e.checkInvariant(userID, current)

	trend := analytics.CompareWithDeadBand(current, previous, e.deadBand)
	health := analytics.Score(current, trend)
	if e.stale(token) {
		return domain.InsightBundle{}, ErrSuperseded
	}

	bundle := e.composer.Compose(ctx, insights.Input{
		Period:    currentPeriod,
		Aggregate: current,
		Trend:     trend,
		Health:    health,
		Complete:  complete,
	})
	if e.stale(token) {
		return domain.InsightBundle{}, ErrSuperseded
	}

	e.metrics.RunPublished(e.clock().Sub(started))
	return bundle, nil
}

// ledger snapshots all feeds and produces the normalized, deduplicated
// transaction set.
func (e *Engine) ledger(ctx context.Context, userID string, now time.Time) ([]domain.Transaction, bool) {
	raws, complete := feeds.Snapshot(ctx, e.log, userID, e.feeds)
	if !complete {
		e.metrics.IncompleteSnapshot()
	}

	txs := e.normalizer.Batch(raws, now)
	if dropped := len(raws) - len(txs); dropped > 0 {
		e.metrics.RecordsDropped(dropped)
	}

	deduped := dedupe.Deduplicate(txs)
	if merged := len(txs) - len(deduped); merged > 0 {
		e.metrics.DuplicatesMerged(merged)
	}

	e.categorizeUnlabeled(ctx, deduped)
	return deduped, complete
}

// categorizeUnlabeled sends the titles of default-categorized transactions to
// the categorizer in one batch and applies the answers in place. Any failure
// keeps the default category; categorization is an enhancement, not a
// dependency.
func (e *Engine) categorizeUnlabeled(ctx context.Context, txs []domain.Transaction) {
	if e.categorizer == nil {
		return
	}

	var indexes []int
	var titles []string
	for i, tx := range txs {
		if tx.Category == normalize.DefaultCategory {
			indexes = append(indexes, i)
			titles = append(titles, tx.Title)
		}
	}
	if len(indexes) == 0 {
		return
	}

	categories, err := e.categorizer.Categorize(ctx, titles)
	if err != nil {
		e.log.Debug().Err(err).Int("titles", len(titles)).
			Msg("Categorization unavailable, keeping default category")
		return
	}
	if len(categories) != len(indexes) {
		e.log.Warn().Int("titles", len(titles)).Int("categories", len(categories)).
			Msg("Categorizer answer length mismatch, keeping default category")
		return
	}

	for j, i := range indexes {
		txs[i].Category = categories[j]
	}
}

// checkInvariant surfaces a non-reconciling aggregate as a logged anomaly.
// The best-effort result is still returned to the caller.
func (e *Engine) checkInvariant(userID string, result domain.AggregateResult) {
	if err := analytics.CheckInvariant(result); err != nil {
		e.log.Error().Err(err).
			Str("user_id", userID).
			Msg("Aggregate invariant violation")
	}
}

func (e *Engine) stale(token uint64) bool {
	return token != 0 && atomic.LoadUint64(&e.seq) != token
}
