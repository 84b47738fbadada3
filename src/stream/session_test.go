package stream

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"market-sync/src/interfaces"
	"market-sync/src/logger"
)

// -----------------------------------------------------------------------------
// Session tests against a real websocket endpoint.
// -----------------------------------------------------------------------------

// newEchoServer upgrades every request and reads until the peer goes away.
func newEchoServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

// -----------------------------------------------------------------------------

func dialTestSession(t *testing.T, srv *httptest.Server, closedCount *atomic.Int32, closedErr chan error) *Session {
	t.Helper()

	opened := make(chan struct{})
	d := NewWebsocketDialer(wsURL(srv), "", logger.NewLogger("ERROR", "test"))
	handle := d.Open(BuildKey("crypto", "24h", nil), nil, interfaces.StreamHooks{
		OnOpen: func(s interfaces.IStreamSession) { close(opened) },
		OnClosed: func(s interfaces.IStreamSession, err error) {
			closedCount.Add(1)
			closedErr <- err
		},
	})

	select {
	case <-opened:
	case <-time.After(2 * time.Second):
		t.Fatalf("session never opened")
	}

	s, ok := handle.(*Session)
	if !ok {
		t.Fatalf("dialer returned %T, want *Session", handle)
	}
	return s
}

// -----------------------------------------------------------------------------

// Close writes the close frame while the keepalive goroutine may be writing
// pings; both must serialize on the session lock or the connection panics on
// the concurrent write.
func TestSessionCloseSerializedWithKeepalive(t *testing.T) {
	srv := newEchoServer(t)
	defer srv.Close()

	var closedCount atomic.Int32
	closedErr := make(chan error, 1)
	s := dialTestSession(t, srv, &closedCount, closedErr)

	// Hammer pings under the session lock, standing in for a keepalive tick
	// landing at the same instant as the teardown.
	stopPings := make(chan struct{})
	var pingers sync.WaitGroup
	pingers.Add(1)
	go func() {
		defer pingers.Done()
		for {
			select {
			case <-stopPings:
				return
			default:
			}
			s.mu.Lock()
			if s.conn != nil {
				s.conn.SetWriteDeadline(time.Now().Add(writeWait))
				s.conn.WriteMessage(websocket.PingMessage, nil)
			}
			s.mu.Unlock()
		}
	}()

	var closers sync.WaitGroup
	for i := 0; i < 4; i++ {
		closers.Add(1)
		go func() {
			defer closers.Done()
			s.Close("shutting down")
		}()
	}
	closers.Wait()

	select {
	case err := <-closedErr:
		if err != nil {
			t.Fatalf("explicit close reported error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("OnClosed never fired")
	}

	close(stopPings)
	pingers.Wait()

	if got := closedCount.Load(); got != 1 {
		t.Fatalf("OnClosed fired %d times, want 1", got)
	}
	if s.State() != StateClosed {
		t.Fatalf("state = %d, want %d", s.State(), StateClosed)
	}
}

// -----------------------------------------------------------------------------

func TestSessionCloseIdempotent(t *testing.T) {
	srv := newEchoServer(t)
	defer srv.Close()

	var closedCount atomic.Int32
	closedErr := make(chan error, 1)
	s := dialTestSession(t, srv, &closedCount, closedErr)

	s.Close("first")
	s.Close("second")

	select {
	case <-closedErr:
	case <-time.After(2 * time.Second):
		t.Fatalf("OnClosed never fired")
	}

	// Give a late duplicate a moment to show up before counting.
	time.Sleep(50 * time.Millisecond)
	if got := closedCount.Load(); got != 1 {
		t.Fatalf("OnClosed fired %d times, want 1", got)
	}
}
