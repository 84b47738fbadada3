package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"market-sync/src/logger"
	"market-sync/src/models"
)

func newTestServer() *DashServer {
	cfg := &models.MConfig{
		Name:     "test",
		Host:     "127.0.0.1",
		Port:     8080,
		LogLevel: "ERROR",
	}
	return NewDashServer(cfg, logger.NewLogger("ERROR", "test"))
}

// -----------------------------------------------------------------------------

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer()

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/health", nil)
	s.engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("unexpected health body: %v", body)
	}
}

func TestStateEndpointServesLatest(t *testing.T) {
	s := newTestServer()

	s.stateMutex.Lock()
	s.latestState = &models.MPublishedState{
		Type:  "UPDATE",
		Order: []string{"BTCUSDT"},
		Rows: map[string]models.MRow{
			"BTCUSDT": {Key: "BTCUSDT", Live: map[string]float64{"price": 61000}},
		},
		Timestamp: 1700000000000,
	}
	s.stateMutex.Unlock()

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/state", nil)
	s.engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var state models.MPublishedState
	if err := json.Unmarshal(w.Body.Bytes(), &state); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if state.Rows["BTCUSDT"].Live["price"] != 61000 {
		t.Fatalf("state not served: %+v", state)
	}
}

func TestWatchlistUpdate(t *testing.T) {
	s := newTestServer()

	var got []string
	s.OnWatchlist = func(symbols []string) error {
		got = symbols
		return nil
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/watchlist",
		strings.NewReader(`{"symbols":[" ethusdt","BTCUSDT","btcusdt"]}`))
	req.Header.Set("Content-Type", "application/json")
	s.engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(got) != 2 || got[0] != "BTCUSDT" || got[1] != "ETHUSDT" {
		t.Fatalf("symbols not normalized: %v", got)
	}
}

func TestPublishAfterStopIsDiscarded(t *testing.T) {
	s := newTestServer()

	hubDone := make(chan struct{})
	go func() {
		s.runHub()
		close(hubDone)
	}()

	if err := s.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("second stop failed: %v", err)
	}

	select {
	case <-hubDone:
	case <-time.After(2 * time.Second):
		t.Fatalf("hub did not exit after Stop")
	}

	// Well past the broadcast buffer; every send must be discarded without
	// panicking or blocking.
	for i := 0; i < 1000; i++ {
		s.Publish(&models.MPublishedState{Type: "UPDATE", Timestamp: int64(i)})
	}
}

func TestWatchlistRejectsBadBody(t *testing.T) {
	s := newTestServer()

	cases := []string{
		`not json`,
		`{"symbols":[]}`,
		`{"symbols":["  ", ""]}`,
	}
	for _, body := range cases {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("POST", "/api/watchlist", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		s.engine.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("body %q: expected 400, got %d", body, w.Code)
		}
	}
}
