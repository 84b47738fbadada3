package sync

import (
	gosync "sync"
	"time"

	"market-sync/src/cache"
	"market-sync/src/interfaces"
	"market-sync/src/logger"
	"market-sync/src/models"
	"market-sync/src/stream"
)

// -----------------------------------------------------------------------------
// RowEngine keeps a keyed symbol table consistent with the remote feed:
// REST bootstrap pages establish the table, stream deltas keep it live, and
// flushes publish rate-limited consistent copies to the consumer.
//
// The engine exclusively owns its RowStore. Everything that mutates it,
// whether snapshot completion or stream delivery, funnels through the
// engine's lock.
// -----------------------------------------------------------------------------

// EngineHooks carry the consumer-facing callbacks shared by both engines.
type EngineHooks struct {
	// Publish receives one consistent snapshot per flush.
	Publish func(state *models.MPublishedState)

	// OnError receives terminal failures only (a stalled stream), never
	// transient reconnect activity.
	OnError func(err error)
}

// -----------------------------------------------------------------------------

type RowEngineConfig struct {
	Scope         string
	Window        string // visibility window, e.g. "24h"
	PageLimit     int
	FlushInterval time.Duration
}

type RowEngine struct {
	cfg      RowEngineConfig
	cacheKey string
	loader   interfaces.ISnapshotLoader
	cache    *cache.ResultCache
	hooks    EngineHooks
	logger   *logger.Logger
	sub      *stream.Subscriber

	mu           gosync.Mutex
	alive        bool
	store        *RowStore
	metrics      models.MSyncMetrics
	bootstrapped bool
	flush        *FlushScheduler
	now          func() time.Time
}

// -----------------------------------------------------------------------------

func NewRowEngine(
	cfg RowEngineConfig,
	subCfg stream.SubscriberConfig,
	loader interfaces.ISnapshotLoader,
	dialer interfaces.IStreamDialer,
	resultCache *cache.ResultCache,
	hooks EngineHooks,
	log *logger.Logger,
) *RowEngine {
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = 200
	}

	e := &RowEngine{
		cfg:      cfg,
		cacheKey: "table|" + stream.BuildKey(cfg.Scope, cfg.Window, nil),
		loader:   loader,
		cache:    resultCache,
		hooks:    hooks,
		logger:   log,
		alive:    true,
		store:    NewRowStore(),
		now:      time.Now,
	}
	e.flush = NewFlushScheduler(cfg.FlushInterval, e.publishNow)

	subCfg.Scope = cfg.Scope
	subCfg.Window = cfg.Window
	e.sub = stream.NewSubscriber(subCfg, dialer, stream.SubscriberHooks{
		OnMessage:   e.handleRaw,
		OnReconnect: e.noteReconnect,
		OnStall:     e.noteStall,
	}, log)

	return e
}

// -----------------------------------------------------------------------------

// Mount paints the last cached snapshot immediately (if still valid) and
// then fetches a fresh bootstrap, which supersedes the cached view once it
// lands. Returns the bootstrap error, if any; the cached paint stands either
// way.
func (e *RowEngine) Mount() error {
	if cached, ok := e.cache.Get(e.cacheKey); ok {
		if state, ok := cached.(*models.MPublishedState); ok && e.hooks.Publish != nil {
			e.logger.Debug("Painting from cache: %s", e.cacheKey)
			e.hooks.Publish(state)
		}
	}
	return e.Bootstrap()
}

// -----------------------------------------------------------------------------

// Bootstrap walks the paginated REST snapshot to (re)establish the table.
// Fetch errors surface typed to the caller; no auto-retry.
func (e *RowEngine) Bootstrap() error {
	page, err := e.loader.BootstrapTable(e.cfg.Scope, e.cfg.Window, e.cfg.PageLimit)
	if err != nil {
		return err
	}

	pages := 0
	for {
		e.mu.Lock()
		if !e.alive {
			e.mu.Unlock()
			return nil
		}
		e.store.ApplyPage(page, e.nowMs())
		e.metrics.SnapshotPages++
		e.metrics.LastSnapshotAtMs = e.nowMs()
		e.mu.Unlock()
		pages++

		if page.CursorNext == "" {
			break
		}
		page, err = e.loader.PageTable(e.cfg.Scope, e.cfg.Window, e.cfg.PageLimit, page.CursorNext)
		if err != nil {
			return err
		}
	}

	e.mu.Lock()
	e.bootstrapped = true
	rows := e.store.Len()
	e.mu.Unlock()

	e.logger.Info("Bootstrap complete: %d pages, %d rows", pages, rows)
	e.flush.Mark()
	return nil
}

// -----------------------------------------------------------------------------

// SetVisible updates which symbols the stream should cover. Debouncing and
// the connect-before-disconnect swap are the subscriber's business.
func (e *RowEngine) SetVisible(symbols []string) {
	e.sub.SetDesired(symbols)
}

// -----------------------------------------------------------------------------

// handleRaw is the delivery callback for the active session's payloads.
func (e *RowEngine) handleRaw(raw []byte) {
	msg, err := stream.Decode(raw)

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.alive {
		return
	}

	switch msg.Kind {
	case stream.KindTableSnapshot, stream.KindTableDelta:
		applied := e.store.ApplyDelta(msg.Items, e.nowMs())
		dropped := len(msg.Items) - applied
		if dropped > 0 {
			e.metrics.DroppedMessages += int64(dropped)
		}
		if applied > 0 {
			e.metrics.MergesApplied += int64(applied)
			e.metrics.LastStreamAtMs = e.nowMs()
			e.flush.Mark()
		}

	default:
		e.metrics.DroppedMessages++
		if err != nil {
			e.logger.Debug("Dropped message: %v", err)
		}
	}
}

// -----------------------------------------------------------------------------

func (e *RowEngine) noteReconnect() {
	e.mu.Lock()
	e.metrics.Reconnects++
	e.mu.Unlock()
}

func (e *RowEngine) noteStall(err error) {
	e.logger.Error("Stream stalled: %v", err)
	if e.hooks.OnError != nil {
		e.hooks.OnError(err)
	}
}

// -----------------------------------------------------------------------------

// publishNow builds one consistent snapshot, caches it, and hands it to the
// consumer. Runs on the flush scheduler's timer.
func (e *RowEngine) publishNow() {
	e.mu.Lock()
	if !e.alive {
		e.mu.Unlock()
		return
	}

	e.metrics.FlushesPublished++
	e.metrics.RowsTracked = e.store.Len()

	stateType := "UPDATE"
	if e.metrics.FlushesPublished == 1 {
		stateType = "INITIAL"
	}

	state := &models.MPublishedState{
		Type:      stateType,
		Order:     e.store.Order(),
		Rows:      e.store.Rows(),
		Timestamp: e.nowMs(),
		Metrics:   e.metrics,
	}
	e.mu.Unlock()

	e.cache.Put(e.cacheKey, state)
	if e.hooks.Publish != nil {
		e.hooks.Publish(state)
	}
}

// -----------------------------------------------------------------------------

// Metrics returns a copy of the counters.
func (e *RowEngine) Metrics() models.MSyncMetrics {
	e.mu.Lock()
	defer e.mu.Unlock()
	m := e.metrics
	m.RowsTracked = e.store.Len()
	return m
}

// ActiveKey exposes the current subscription key for diagnostics.
func (e *RowEngine) ActiveKey() string {
	return e.sub.ActiveKey()
}

// -----------------------------------------------------------------------------

// Close tears the engine down: liveness flag dead, stream closed with an
// explicit reason, all timers canceled. Safe to call twice.
func (e *RowEngine) Close() {
	e.mu.Lock()
	e.alive = false
	e.mu.Unlock()

	e.sub.Close()
	e.flush.Close()
}

// -----------------------------------------------------------------------------

func (e *RowEngine) nowMs() int64 {
	return e.now().UnixMilli()
}
