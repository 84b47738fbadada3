package stream

import (
	"sync"
	"time"

	"market-sync/src/helpers"
	"market-sync/src/interfaces"
	"market-sync/src/logger"
	"market-sync/src/utils"
)

// -----------------------------------------------------------------------------
// Subscriber translates a frequently-changing desired symbol set into a
// stable, debounced subscription, swapping sessions connect-before-disconnect
// so coverage never drops to zero mid-swap.
//
// Handle identity is the guard against races: every callback is checked
// against the current active/pending pointers under the lock before it may
// touch anything, so a superseded session can never mutate shared state even
// when its close event arrives after its replacement's open event.
// -----------------------------------------------------------------------------

type SubscriberConfig struct {
	Scope          string
	Window         string
	DebounceMs     int
	BackoffBaseMs  int
	BackoffMaxMs   int
	StallThreshold int // failed reconnect rounds before OnStall fires; 0 disables
}

// SubscriberHooks receive the subscriber's outward-facing events.
type SubscriberHooks struct {
	// OnMessage receives raw payloads from the currently active session only.
	// Called with the subscriber's lock held; must not call back in.
	OnMessage func(raw []byte)

	// OnReconnect fires when the active connection is lost and a retry is
	// scheduled. Transient; consumers should not surface it.
	OnReconnect func()

	// OnStall fires once per outage when reconnects are clearly not making
	// progress. Retrying continues regardless.
	OnStall func(err error)
}

// -----------------------------------------------------------------------------

type Subscriber struct {
	cfg    SubscriberConfig
	dialer interfaces.IStreamDialer
	hooks  SubscriberHooks
	logger *logger.Logger

	mu             sync.Mutex
	alive          bool
	desiredKey     string
	desiredSymbols []string
	activeKey      string
	active         interfaces.IStreamSession
	pending        interfaces.IStreamSession
	debounceTimer  *time.Timer
	reconnectTimer *time.Timer
	retryCount     int
	stallNotified  bool
}

// -----------------------------------------------------------------------------

func NewSubscriber(cfg SubscriberConfig, dialer interfaces.IStreamDialer, hooks SubscriberHooks, log *logger.Logger) *Subscriber {
	if cfg.DebounceMs <= 0 {
		cfg.DebounceMs = utils.DefaultDebounceMs
	}
	if cfg.BackoffBaseMs <= 0 {
		cfg.BackoffBaseMs = int(utils.BackoffBaseMs)
	}
	if cfg.BackoffMaxMs <= 0 {
		cfg.BackoffMaxMs = 30000
	}

	return &Subscriber{
		cfg:    cfg,
		dialer: dialer,
		hooks:  hooks,
		logger: log,
		alive:  true,
	}
}

// -----------------------------------------------------------------------------

// SetDesired updates the desired symbol set. Rapid successive calls within
// the debounce window collapse into one resubscription targeting the last
// requested set.
func (m *Subscriber) SetDesired(symbols []string) {
	norm := NormalizeSymbols(symbols)
	key := BuildKey(m.cfg.Scope, m.cfg.Window, norm)

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.alive || key == m.desiredKey {
		return
	}

	m.desiredKey = key
	m.desiredSymbols = norm
	m.logger.Debug("Desired set changed: %s", key)

	if m.debounceTimer != nil {
		m.debounceTimer.Stop()
	}
	m.debounceTimer = time.AfterFunc(time.Duration(m.cfg.DebounceMs)*time.Millisecond, func() {
		m.fire(key)
	})
}

// -----------------------------------------------------------------------------

// DesiredKey returns the latest requested subscription key.
func (m *Subscriber) DesiredKey() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.desiredKey
}

// ActiveKey returns the key of the session currently receiving.
func (m *Subscriber) ActiveKey() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeKey
}

// -----------------------------------------------------------------------------

// fire acts on a debounced key. A firing for a key that has since been
// superseded by a newer desired key is discarded.
func (m *Subscriber) fire(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.alive || key != m.desiredKey {
		return
	}

	// A visibility change supersedes any in-flight reconnect attempt.
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}

	if len(m.desiredSymbols) == 0 {
		// Shrunk to empty: tear down rather than dial with an empty filter.
		m.dropPendingLocked("desired set empty")
		if m.active != nil {
			m.active.Close("desired set empty")
			m.active = nil
			m.activeKey = ""
		}
		return
	}

	if key == m.activeKey {
		m.dropPendingLocked("already subscribed")
		return
	}

	m.openLocked(key)
}

// -----------------------------------------------------------------------------

// openLocked opens a replacement session. The old active session keeps
// serving until the new one reports open.
func (m *Subscriber) openLocked(key string) {
	m.dropPendingLocked("superseded before open")

	_, _, symbols := ParseKey(key)
	m.logger.Info("Opening stream for %s", key)
	m.pending = m.dialer.Open(key, symbols, interfaces.StreamHooks{
		OnOpen:    m.sessionOpened,
		OnMessage: m.sessionMessage,
		OnClosed:  m.sessionClosed,
	})
}

// -----------------------------------------------------------------------------

func (m *Subscriber) dropPendingLocked(reason string) {
	if m.pending != nil {
		m.pending.Close(reason)
		m.pending = nil
	}
}

// -----------------------------------------------------------------------------

// sessionOpened adopts a successfully opened session, then closes the one it
// replaces (connect-before-disconnect).
func (m *Subscriber) sessionOpened(s interfaces.IStreamSession) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.alive {
		s.Close("teardown")
		return
	}
	if s != m.pending {
		// Opened after being superseded by an even newer session.
		s.Close("superseded")
		return
	}

	old := m.active
	m.active = s
	m.activeKey = s.Key()
	m.pending = nil
	m.retryCount = 0
	m.stallNotified = false
	m.logger.Info("Stream open: %s", s.Key())

	if old != nil {
		old.Close("superseded")
	}
}

// -----------------------------------------------------------------------------

// sessionMessage forwards payloads from the active session only. Superseded
// handles are silently discarded here, which is the one guard that makes the
// connect-before-disconnect swap safe.
func (m *Subscriber) sessionMessage(s interfaces.IStreamSession, raw []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.alive || s != m.active {
		return
	}
	if m.hooks.OnMessage != nil {
		m.hooks.OnMessage(raw)
	}
}

// -----------------------------------------------------------------------------

// sessionClosed handles any session ending: a failed pending open, a dropped
// active connection, or a superseded handle finally going away.
func (m *Subscriber) sessionClosed(s interfaces.IStreamSession, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.alive {
		return
	}

	switch s {
	case m.pending:
		// Open failed; the old active session, if any, is still serving.
		m.pending = nil
		m.logger.Warning("Stream open failed for %s: %v", s.Key(), err)
		m.scheduleReconnectLocked(err)

	case m.active:
		m.active = nil
		m.activeKey = ""
		m.logger.Warning("Stream lost for %s: %v", s.Key(), err)
		if m.hooks.OnReconnect != nil {
			m.hooks.OnReconnect()
		}
		m.scheduleReconnectLocked(err)

	default:
		// Superseded handle; nothing to do.
	}
}

// -----------------------------------------------------------------------------

// scheduleReconnectLocked retries with capped exponential backoff against the
// *latest* desired set, bypassing the debounce path: the set did not change,
// only the connection did.
func (m *Subscriber) scheduleReconnectLocked(cause error) {
	if len(m.desiredSymbols) == 0 || m.desiredKey == "" {
		return
	}

	m.retryCount++
	if m.cfg.StallThreshold > 0 && m.retryCount >= m.cfg.StallThreshold && !m.stallNotified {
		m.stallNotified = true
		if m.hooks.OnStall != nil {
			m.hooks.OnStall(helpers.NewStreamStalledError(m.retryCount, cause))
		}
	}

	delay := utils.NextDelayFrom(float64(m.cfg.BackoffBaseMs), m.retryCount-1, float64(m.cfg.BackoffMaxMs))
	m.logger.Info("Reconnect attempt %d in %.0fms", m.retryCount, delay)

	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
	}
	m.reconnectTimer = time.AfterFunc(time.Duration(delay)*time.Millisecond, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if !m.alive || len(m.desiredSymbols) == 0 {
			return
		}
		m.openLocked(m.desiredKey)
	})
}

// -----------------------------------------------------------------------------

// RetryCount reports consecutive failed rounds since the last good open.
func (m *Subscriber) RetryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.retryCount
}

// -----------------------------------------------------------------------------

// Close tears everything down: liveness flag first, then timers, then
// sessions with an explicit reason so nothing schedules itself back to life.
func (m *Subscriber) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.alive {
		return
	}
	m.alive = false

	if m.debounceTimer != nil {
		m.debounceTimer.Stop()
		m.debounceTimer = nil
	}
	if m.reconnectTimer != nil {
		m.reconnectTimer.Stop()
		m.reconnectTimer = nil
	}

	m.dropPendingLocked("teardown")
	if m.active != nil {
		m.active.Close("teardown")
		m.active = nil
		m.activeKey = ""
	}
}
