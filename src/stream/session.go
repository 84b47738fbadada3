package stream

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"market-sync/src/interfaces"
	"market-sync/src/logger"
)

// -----------------------------------------------------------------------------
// Transport Session: one websocket connection's full lifecycle for one
// subscription key.
//
// State machine: Idle -> Connecting -> Open -> Closing -> Closed.
// Closed is terminal; retrying means opening a fresh session. The session
// itself never reconnects; it reports closure and the subscription manager
// decides.
// -----------------------------------------------------------------------------

const (
	StateIdle int32 = iota
	StateConnecting
	StateOpen
	StateClosing
	StateClosed
)

const (
	handshakeTimeout = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	writeWait        = 2 * time.Second
	maxMessageSize   = 1024 * 1024 // 1MB bulk snapshots
)

// -----------------------------------------------------------------------------

// WebsocketDialer opens real websocket sessions. BuildURL is injectable so
// feeds with different query conventions share one session type.
type WebsocketDialer struct {
	BaseURL  string
	Token    string
	Logger   *logger.Logger
	BuildURL func(base, key string, symbols []string) string
}

// -----------------------------------------------------------------------------

func NewWebsocketDialer(baseURL, token string, log *logger.Logger) *WebsocketDialer {
	return &WebsocketDialer{
		BaseURL:  baseURL,
		Token:    token,
		Logger:   log,
		BuildURL: DefaultBuildURL,
	}
}

// -----------------------------------------------------------------------------

// DefaultBuildURL encodes (scope, window, symbols) as query parameters.
func DefaultBuildURL(base, key string, symbols []string) string {
	scope, window, _ := ParseKey(key)

	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	if scope != "" {
		q.Set("scope", scope)
	}
	if window != "" {
		q.Set("window", window)
	}
	if len(symbols) > 0 {
		q.Set("symbols", strings.Join(symbols, ","))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// -----------------------------------------------------------------------------

// Open starts a session for key and returns immediately; the dial happens on
// the session's own goroutine and outcomes arrive through hooks.
func (d *WebsocketDialer) Open(key string, symbols []string, hooks interfaces.StreamHooks) interfaces.IStreamSession {
	s := &Session{
		key:    key,
		url:    d.BuildURL(d.BaseURL, key, symbols),
		token:  d.Token,
		hooks:  hooks,
		logger: d.Logger,
	}
	s.state.Store(StateConnecting)
	s.openedAt = time.Now()

	go s.run()
	return s
}

// -----------------------------------------------------------------------------
// Session
// -----------------------------------------------------------------------------

type Session struct {
	key    string
	url    string
	token  string
	hooks  interfaces.StreamHooks
	logger *logger.Logger

	state    atomic.Int32
	explicit atomic.Bool // Close() was called by the owner
	openedAt time.Time

	mu   sync.Mutex // guards conn writes
	conn *websocket.Conn

	closedOnce sync.Once
}

// -----------------------------------------------------------------------------

func (s *Session) Key() string { return s.key }

// State exposes the lifecycle state for diagnostics.
func (s *Session) State() int32 { return s.state.Load() }

// -----------------------------------------------------------------------------

// Close tears the session down. Idempotent. After Close returns, the session
// delivers no further messages; the OnClosed hook still fires once.
func (s *Session) Close(reason string) {
	if s.explicit.Swap(true) {
		return
	}
	s.state.Store(StateClosing)
	s.logger.Debug("Session %s closing: %s", s.key, reason)

	// The close frame is a write; s.mu serializes it against pingLoop, since
	// the connection forbids concurrent writers.
	s.mu.Lock()
	if s.conn != nil {
		s.conn.SetWriteDeadline(time.Now().Add(writeWait))
		s.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason))
		s.conn.Close()
	}
	s.mu.Unlock()
	// If still connecting, run() notices the explicit flag after the dial.
}

// -----------------------------------------------------------------------------

// run dials, pumps inbound messages, and reports closure exactly once.
func (s *Session) run() {
	dialer := websocket.Dialer{
		HandshakeTimeout:  handshakeTimeout,
		EnableCompression: true,
	}

	var header http.Header
	if s.token != "" {
		header = http.Header{}
		header.Set("Authorization", "Bearer "+s.token)
	}

	conn, _, err := dialer.Dial(s.url, header)
	if err != nil {
		s.finish(err)
		return
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	// Owner closed us mid-handshake: discard the connection quietly.
	if s.explicit.Load() {
		conn.Close()
		s.finish(nil)
		return
	}

	s.state.Store(StateOpen)

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	stopPing := make(chan struct{})
	go s.pingLoop(conn, stopPing)

	if s.hooks.OnOpen != nil {
		s.hooks.OnOpen(s)
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			close(stopPing)
			if s.explicit.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				s.finish(nil)
			} else {
				s.finish(err)
			}
			return
		}

		if s.explicit.Load() {
			continue // drained after teardown, never delivered
		}
		if s.hooks.OnMessage != nil {
			s.hooks.OnMessage(s, raw)
		}
	}
}

// -----------------------------------------------------------------------------

func (s *Session) pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			s.mu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// -----------------------------------------------------------------------------

func (s *Session) finish(err error) {
	s.closedOnce.Do(func() {
		s.state.Store(StateClosed)
		if s.hooks.OnClosed != nil {
			s.hooks.OnClosed(s, err)
		}
	})
}
