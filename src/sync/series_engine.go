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
// SeriesEngine keeps one symbol's candle series consistent with the feed:
// paginated REST history establishes the series, stream candle deltas keep
// the in-progress bucket live, and stream snapshots reset it wholesale.
// -----------------------------------------------------------------------------

type SeriesEngineConfig struct {
	Scope         string
	Symbol        string
	Timeframe     string
	PageLimit     int
	MaxPoints     int
	FlushInterval time.Duration
}

type SeriesEngine struct {
	cfg    SeriesEngineConfig
	loader interfaces.ISnapshotLoader
	cache  *cache.ResultCache
	hooks  EngineHooks
	logger *logger.Logger
	sub    *stream.Subscriber

	mu      gosync.Mutex
	alive   bool
	store   *SeriesStore
	metrics models.MSyncMetrics
	flush   *FlushScheduler
	now     func() time.Time
}

// -----------------------------------------------------------------------------

func NewSeriesEngine(
	cfg SeriesEngineConfig,
	subCfg stream.SubscriberConfig,
	loader interfaces.ISnapshotLoader,
	dialer interfaces.IStreamDialer,
	resultCache *cache.ResultCache,
	hooks EngineHooks,
	log *logger.Logger,
) *SeriesEngine {
	if cfg.PageLimit <= 0 {
		cfg.PageLimit = 500
	}
	if cfg.MaxPoints <= 0 {
		cfg.MaxPoints = 2800
	}

	e := &SeriesEngine{
		cfg:    cfg,
		loader: loader,
		cache:  resultCache,
		hooks:  hooks,
		logger: log,
		alive:  true,
		store:  NewSeriesStore(cfg.MaxPoints),
		now:    time.Now,
	}
	e.flush = NewFlushScheduler(cfg.FlushInterval, e.publishNow)

	subCfg.Scope = cfg.Scope
	subCfg.Window = cfg.Timeframe
	e.sub = stream.NewSubscriber(subCfg, dialer, stream.SubscriberHooks{
		OnMessage:   e.handleRaw,
		OnReconnect: e.noteReconnect,
		OnStall:     e.noteStall,
	}, log)

	return e
}

// -----------------------------------------------------------------------------

// cacheKey and seriesLabel read the retargetable symbol; callers hold e.mu.
func (e *SeriesEngine) cacheKey() string {
	return "series|" + e.cfg.Symbol + "|" + e.cfg.Timeframe
}

func (e *SeriesEngine) seriesLabel() string {
	return e.cfg.Symbol + ":" + e.cfg.Timeframe
}

// -----------------------------------------------------------------------------

// Mount paints from cache if a recent series is available, fetches fresh
// history, and subscribes the stream for this symbol.
func (e *SeriesEngine) Mount() error {
	e.mu.Lock()
	key := e.cacheKey()
	symbol := e.cfg.Symbol
	e.mu.Unlock()

	if cached, ok := e.cache.Get(key); ok {
		if state, ok := cached.(*models.MPublishedState); ok && e.hooks.Publish != nil {
			e.logger.Debug("Painting from cache: %s", key)
			e.hooks.Publish(state)
		}
	}

	if err := e.Bootstrap(); err != nil {
		return err
	}

	e.sub.SetDesired([]string{symbol})
	return nil
}

// -----------------------------------------------------------------------------

// Bootstrap pulls the full paginated history and resets the series with it.
// The targeted symbol is captured under the lock up front; a retarget racing
// the fetch makes the fetched history stale and it is discarded.
func (e *SeriesEngine) Bootstrap() error {
	e.mu.Lock()
	symbol := e.cfg.Symbol
	timeframe := e.cfg.Timeframe
	limit := e.cfg.PageLimit
	label := e.seriesLabel()
	e.mu.Unlock()

	page, err := e.loader.BootstrapSeries(symbol, timeframe, limit)
	if err != nil {
		return err
	}

	all := make([]models.MCandle, 0, limit)
	all = append(all, page.Candles...)

	for page.CursorNext != "" {
		page, err = e.loader.PageSeries(symbol, timeframe, limit, page.CursorNext)
		if err != nil {
			return err
		}
		all = append(all, page.Candles...)
	}

	e.mu.Lock()
	if !e.alive || e.cfg.Symbol != symbol {
		e.mu.Unlock()
		return nil
	}
	e.store.ReplaceWithSnapshot(all)
	e.metrics.SnapshotPages++
	e.metrics.LastSnapshotAtMs = e.nowMs()
	points := e.store.Len()
	e.mu.Unlock()

	e.logger.Info("Series bootstrap complete for %s: %d points", label, points)
	e.flush.Mark()
	return nil
}

// -----------------------------------------------------------------------------

// SeedFromStore pre-populates the series from persisted history, used for a
// warm start before the first REST snapshot arrives. A later bootstrap
// replaces it wholesale.
func (e *SeriesEngine) SeedFromStore(candles []models.MCandle) {
	if len(candles) == 0 {
		return
	}

	e.mu.Lock()
	if !e.alive {
		e.mu.Unlock()
		return
	}
	e.store.ReplaceWithSnapshot(candles)
	label := e.seriesLabel()
	e.mu.Unlock()

	e.logger.Info("Seeded %s with %d persisted points", label, len(candles))
	e.flush.Mark()
}

// -----------------------------------------------------------------------------

// SetSymbol retargets the engine to a different symbol, re-bootstrapping and
// resubscribing. The old series is discarded by the snapshot reset.
func (e *SeriesEngine) SetSymbol(symbol string) error {
	e.mu.Lock()
	if symbol == "" || symbol == e.cfg.Symbol {
		e.mu.Unlock()
		return nil
	}
	e.cfg.Symbol = symbol
	e.mu.Unlock()

	if err := e.Bootstrap(); err != nil {
		return err
	}
	e.sub.SetDesired([]string{symbol})
	return nil
}

// -----------------------------------------------------------------------------

func (e *SeriesEngine) handleRaw(raw []byte) {
	msg, err := stream.Decode(raw)

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.alive {
		return
	}

	switch msg.Kind {
	case stream.KindSeriesSnapshot:
		// Authoritative reset, e.g. the feed resyncing after a gap.
		e.store.ReplaceWithSnapshot(msg.Candles)
		e.metrics.MergesApplied++
		e.metrics.LastStreamAtMs = e.nowMs()
		e.flush.Mark()

	case stream.KindSeriesDelta:
		for _, c := range msg.Candles {
			e.store.Upsert(c)
		}
		e.metrics.MergesApplied += int64(len(msg.Candles))
		e.metrics.LastStreamAtMs = e.nowMs()
		e.flush.Mark()

	default:
		e.metrics.DroppedMessages++
		if err != nil {
			e.logger.Debug("Dropped message: %v", err)
		}
	}
}

// -----------------------------------------------------------------------------

func (e *SeriesEngine) noteReconnect() {
	e.mu.Lock()
	e.metrics.Reconnects++
	e.mu.Unlock()
}

func (e *SeriesEngine) noteStall(err error) {
	e.logger.Error("Stream stalled: %v", err)
	if e.hooks.OnError != nil {
		e.hooks.OnError(err)
	}
}

// -----------------------------------------------------------------------------

func (e *SeriesEngine) publishNow() {
	e.mu.Lock()
	if !e.alive {
		e.mu.Unlock()
		return
	}

	e.metrics.FlushesPublished++
	e.metrics.SeriesPoints = e.store.Len()

	stateType := "UPDATE"
	if e.metrics.FlushesPublished == 1 {
		stateType = "INITIAL"
	}

	state := &models.MPublishedState{
		Type:      stateType,
		Series:    map[string][]models.MCandle{e.seriesLabel(): e.store.Snapshot()},
		Timestamp: e.nowMs(),
		Metrics:   e.metrics,
	}
	key := e.cacheKey()
	e.mu.Unlock()

	e.cache.Put(key, state)
	if e.hooks.Publish != nil {
		e.hooks.Publish(state)
	}
}

// -----------------------------------------------------------------------------

// Symbol returns the currently targeted symbol.
func (e *SeriesEngine) Symbol() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg.Symbol
}

// Snapshot returns a copy of the current series for direct reads.
func (e *SeriesEngine) Snapshot() []models.MCandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Snapshot()
}

// Metrics returns a copy of the counters.
func (e *SeriesEngine) Metrics() models.MSyncMetrics {
	e.mu.Lock()
	defer e.mu.Unlock()
	m := e.metrics
	m.SeriesPoints = e.store.Len()
	return m
}

// -----------------------------------------------------------------------------

// Close tears the engine down; idempotent.
func (e *SeriesEngine) Close() {
	e.mu.Lock()
	e.alive = false
	e.mu.Unlock()

	e.sub.Close()
	e.flush.Close()
}

// -----------------------------------------------------------------------------

func (e *SeriesEngine) nowMs() int64 {
	return e.now().UnixMilli()
}
