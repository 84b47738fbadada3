package interfaces

// -----------------------------------------------------------------------------
// Streaming transport contracts.
//
// IStreamSession is one connection's handle. A handle is single-use: once it
// reports closed it stays closed, and a new one must be opened to retry.
// The subscription manager decides which handle is "active"; a superseded
// handle's callbacks are discarded at the manager, not inside the session.
// -----------------------------------------------------------------------------

type IStreamSession interface {

	// Key returns the canonical subscription key this session was opened for.
	Key() string

	// -----------------------------------------------------------------------------

	// Close tears the connection down. Idempotent; once called, the session
	// will not fire further callbacks for inbound messages.
	Close(reason string)
}

// -----------------------------------------------------------------------------

// StreamHooks receive a session's lifecycle events. All callbacks identify
// the firing session so the receiver can ignore superseded handles.
type StreamHooks struct {
	// OnOpen fires once when the transport handshake succeeds.
	OnOpen func(s IStreamSession)

	// OnMessage fires per decoded inbound payload (already classified).
	OnMessage func(s IStreamSession, raw []byte)

	// OnClosed fires exactly once when the connection is gone, whether from
	// error, remote close, or explicit teardown. err is nil on clean close.
	OnClosed func(s IStreamSession, err error)
}

// -----------------------------------------------------------------------------

// IStreamDialer opens sessions. The production implementation dials a
// websocket; tests substitute fakes to drive swap/race scenarios.
type IStreamDialer interface {
	Open(key string, symbols []string, hooks StreamHooks) IStreamSession
}
