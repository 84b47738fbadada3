package server

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"market-sync/src/logger"
	"market-sync/src/models"
	"market-sync/src/stream"
)

// -----------------------------------------------------------------------------
// DashServer
//
// Local HTTP/websocket surface for dashboards: serves the latest published
// state, re-broadcasts every flush to attached clients, and accepts runtime
// watchlist updates.
// -----------------------------------------------------------------------------

type DashServer struct {
	Config *models.MConfig
	Logger *logger.Logger
	engine *gin.Engine

	// WebSocket clients
	clients    map[*Client]struct{}
	broadcast  chan *models.MPublishedState
	register   chan *Client
	unregister chan *Client

	// Latest published state
	latestState *models.MPublishedState
	stateMutex  sync.RWMutex

	// Shutdown signal; closed exactly once by Stop.
	done     chan struct{}
	stopOnce sync.Once

	// OnWatchlist is invoked with the normalized symbol set from
	// POST /api/watchlist. Wired by main to the row engine's SetVisible.
	OnWatchlist func(symbols []string) error
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewDashServer(cfg *models.MConfig, log *logger.Logger) *DashServer {
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &DashServer{
		Config:  cfg,
		Logger:  log,
		engine:  gin.Default(),
		clients: make(map[*Client]struct{}),
		// Buffered so a burst of flushes never blocks the engines.
		broadcast:  make(chan *models.MPublishedState, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		latestState: &models.MPublishedState{
			Type:   "INITIAL",
			Rows:   make(map[string]models.MRow),
			Series: make(map[string][]models.MCandle),
		},
	}

	// CORS for local dashboards only
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *DashServer) setupRoutes() {
	s.engine.GET("/api/health", s.getHealth)
	s.engine.GET("/api/metrics", s.getMetrics)
	s.engine.GET("/api/state", s.getState)
	s.engine.POST("/api/watchlist", s.postWatchlist)

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *DashServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting server on %s", addr)

	go s.runHub()

	return s.engine.Run(addr)
}

// -----------------------------------------------------------------------------

// Stop signals the hub to drain and disconnect clients. Idempotent; Publish
// calls after Stop are discarded.
func (s *DashServer) Stop() error {
	s.stopOnce.Do(func() { close(s.done) })
	return nil
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *DashServer) getHealth(c *gin.Context) {
	s.stateMutex.RLock()
	connections := len(s.clients)
	timestamp := s.latestState.Timestamp
	s.stateMutex.RUnlock()

	c.JSON(200, gin.H{
		"status":        "ok",
		"connections":   connections,
		"latest_update": timestamp,
	})
}

// -----------------------------------------------------------------------------

func (s *DashServer) getMetrics(c *gin.Context) {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()

	c.JSON(200, s.latestState.Metrics)
}

// -----------------------------------------------------------------------------

func (s *DashServer) getState(c *gin.Context) {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()

	c.JSON(200, s.latestState)
}

// -----------------------------------------------------------------------------

func (s *DashServer) postWatchlist(c *gin.Context) {
	var cmd models.MWatchlistCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	symbols := stream.NormalizeSymbols(cmd.Symbols)
	if len(symbols) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbols cannot be empty"})
		return
	}

	if s.OnWatchlist != nil {
		if err := s.OnWatchlist(symbols); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	s.Logger.Info("Watchlist updated via API: %d symbols", len(symbols))
	c.JSON(200, gin.H{"success": true, "symbol_count": len(symbols)})
}
