package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"market-sync/src/cache"
	"market-sync/src/config"
	"market-sync/src/interfaces"
	"market-sync/src/logger"
	"market-sync/src/models"
	"market-sync/src/network"
	"market-sync/src/server"
	"market-sync/src/snapshot"
	"market-sync/src/storage"
	"market-sync/src/stream"
	syncengine "market-sync/src/sync"
	"market-sync/src/utils"
)

// -----------------------------------------------------------------------------

func main() {

	// Parse command line flags
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	flag.Parse()

	// Load .env if present; STREAM_TOKEN overrides the YAML token
	godotenv.Load()

	// Load config from YAML file
	cfg, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	token := os.Getenv("STREAM_TOKEN")
	if token == "" {
		token = cfg.Stream.Token
	}

	// Setup logger
	appLogger := logger.NewLogger(cfg.LogLevel, cfg.Name)

	// 2. Setup Storage
	var db interfaces.IDatabase

	switch cfg.Storage.DBType {
	case "postgres":
		db, err = storage.NewPostgresDB(cfg.MConfig, appLogger)
	default:
		// Default to SQLite
		db, err = storage.NewSQLiteDB(cfg.MConfig, appLogger)
	}

	if err != nil {
		appLogger.Critical("Failed to init db: %v", err)
	}
	if err := db.Initialize(); err != nil {
		appLogger.Critical("Failed to migrate db: %v", err)
	}

	// 3. Setup Components
	var networkManager interfaces.INetworkManager = network.NewNetworkManager(cfg.MConfig, token, appLogger)
	var loader interfaces.ISnapshotLoader = snapshot.NewLoader(cfg.Snapshot.BaseURL, networkManager, appLogger)
	var dialer interfaces.IStreamDialer = stream.NewWebsocketDialer(cfg.Stream.URL, token, appLogger)

	resultCache := cache.NewResultCache(time.Duration(cfg.Cache.TTLSeconds)*time.Second, nil)
	srv := server.NewDashServer(cfg.MConfig, appLogger)

	subCfg := stream.SubscriberConfig{
		DebounceMs:     cfg.Stream.DebounceMs,
		BackoffBaseMs:  cfg.Stream.BackoffBaseMs,
		BackoffMaxMs:   cfg.Stream.BackoffMaxMs,
		StallThreshold: cfg.Stream.StallThreshold,
	}
	flushInterval := time.Duration(cfg.Stream.FlushIntervalMs) * time.Millisecond

	// Latest published rows, kept for periodic persistence
	var persistMu sync.Mutex
	var latestRows []models.MRow

	// 4. Row Engine (watchlist table)
	rowEngine := syncengine.NewRowEngine(
		syncengine.RowEngineConfig{
			Scope:         cfg.Scope,
			Window:        "24h",
			PageLimit:     cfg.Snapshot.PageLimit,
			FlushInterval: flushInterval,
		},
		subCfg,
		loader, dialer, resultCache,
		syncengine.EngineHooks{
			Publish: func(state *models.MPublishedState) {
				persistMu.Lock()
				latestRows = latestRows[:0]
				for _, r := range state.Rows {
					latestRows = append(latestRows, r)
				}
				persistMu.Unlock()
				srv.Publish(state)
			},
			OnError: func(err error) {
				appLogger.Error("Row stream degraded: %v", err)
			},
		},
		appLogger,
	)

	// 5. Series Engine (primary symbol candles)
	primarySymbol := cfg.Watchlist[0]
	seriesEngine := syncengine.NewSeriesEngine(
		syncengine.SeriesEngineConfig{
			Scope:         cfg.Scope,
			Symbol:        primarySymbol,
			Timeframe:     cfg.Series.Timeframe,
			PageLimit:     cfg.Snapshot.PageLimit,
			MaxPoints:     utils.CalculateMaxDataPoints(cfg.Series.RetentionDays),
			FlushInterval: flushInterval,
		},
		subCfg,
		loader, dialer, resultCache,
		syncengine.EngineHooks{
			Publish: srv.Publish,
			OnError: func(err error) {
				appLogger.Error("Series stream degraded: %v", err)
			},
		},
		appLogger,
	)

	// 6. Market Scheduler for resync gating
	scheduler := utils.NewMarketScheduler(cfg.Watchlist, appLogger)

	// 7. Runtime watchlist updates from the API
	srv.OnWatchlist = func(symbols []string) error {
		rowEngine.SetVisible(symbols)
		scheduler.UpdateKeys(symbols)

		go func() {
			// Retargeting the series re-fetches history; keep it off the
			// request path.
			if err := seriesEngine.SetSymbol(symbols[0]); err != nil {
				appLogger.Warning("Series retarget failed: %v", err)
			}
		}()

		cfg.Watchlist = symbols
		if err := cfg.Save(*configPath); err != nil {
			appLogger.Warning("Failed to persist watchlist: %v", err)
		}
		return nil
	}

	// 8. Warm start from persisted candles, then fresh bootstrap
	if persisted, err := db.LoadRecentCandles(primarySymbol, cfg.Series.Timeframe,
		utils.CalculateMaxDataPoints(cfg.Series.RetentionDays)); err != nil {
		appLogger.Warning("Warm start load failed: %v", err)
	} else {
		seriesEngine.SeedFromStore(persisted)
	}

	appLogger.Info("Fetching initial data...")
	if err := rowEngine.Mount(); err != nil {
		appLogger.Warning("Initial table bootstrap failed: %v", err)
	}
	if err := seriesEngine.Mount(); err != nil {
		appLogger.Warning("Initial series bootstrap failed: %v", err)
	}
	rowEngine.SetVisible(cfg.Watchlist)

	appLogger.Info("Initialization complete.")

	// 9. Start Server
	go func() {
		if err := srv.Start(); err != nil {
			appLogger.Error("Server failed: %v", err)
		}
	}()

	// 10. Main Loop: periodic resync, persistence, retention cleanup
	resyncTicker := time.NewTicker(time.Duration(cfg.Snapshot.ResyncIntervalSeconds) * time.Second)
	defer resyncTicker.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	appLogger.Info("Starting sync loop...")

	for {
		select {
		case <-resyncTicker.C:
			if !scheduler.AnyMarketOpen() {
				appLogger.Debug("All markets closed, skipping resync")
				continue
			}

			if err := rowEngine.Bootstrap(); err != nil {
				appLogger.Warning("Table resync failed: %v", err)
			}
			if err := seriesEngine.Bootstrap(); err != nil {
				appLogger.Warning("Series resync failed: %v", err)
			}

			// Persist the latest views
			persistMu.Lock()
			rowsCopy := make([]models.MRow, len(latestRows))
			copy(rowsCopy, latestRows)
			persistMu.Unlock()

			if err := db.SaveRowsSnapshot(rowsCopy); err != nil {
				appLogger.Warning("Row persistence failed: %v", err)
			}
			if err := db.SaveCandlesBulk(seriesEngine.Symbol(), cfg.Series.Timeframe, seriesEngine.Snapshot()); err != nil {
				appLogger.Warning("Candle persistence failed: %v", err)
			}
			if err := db.CleanupOldData(cfg.Series.RetentionDays); err != nil {
				appLogger.Warning("Cleanup failed: %v", err)
			}

			m := rowEngine.Metrics()
			appLogger.Info("Resync done: %d rows, %d merges, %d flushes",
				m.RowsTracked, m.MergesApplied, m.FlushesPublished)

		case <-quit:
			appLogger.Info("Shutting down...")
			rowEngine.Close()
			seriesEngine.Close()
			srv.Stop()
			if err := db.Close(); err != nil {
				appLogger.Warning("DB close failed: %v", err)
			}
			return
		}
	}
}
