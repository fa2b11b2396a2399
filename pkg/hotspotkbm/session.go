package hotspotkbm

import (
	"io"
	"sync"
)

// SessionGate enforces the at-most-one-connected-peer invariant across the
// discovery, UDP input, and TCP control surfaces. All methods are safe for
// concurrent use and none blocks on network I/O beyond a best-effort close
// of the stored channel.
type SessionGate struct {
	mu        sync.Mutex
	connected bool
	peerIP    string
	channel   io.Closer
}

// NewSessionGate returns a gate in the Disconnected state.
func NewSessionGate() *SessionGate {
	return &SessionGate{}
}

// TryConnect admits peerIP as the active session if and only if no session
// is currently active. channel is closed by a later Disconnect; it may be
// nil. The caller must reply AUTH_FAIL:ALREADY_CONNECTED when this returns
// false.
func (g *SessionGate) TryConnect(peerIP string, channel io.Closer) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.connected {
		return false
	}
	g.connected = true
	g.peerIP = peerIP
	g.channel = channel
	return true
}

// Disconnect closes the stored channel (best-effort, error discarded) and
// returns the gate to Disconnected. It is safe to call even if no session is
// active.
func (g *SessionGate) Disconnect() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.channel != nil {
		_ = g.channel.Close()
	}
	g.connected = false
	g.peerIP = ""
	g.channel = nil
}

// IsConnected reports whether a session is currently active.
func (g *SessionGate) IsConnected() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.connected
}

// IsAuthorized reports whether peerIP is the currently connected peer.
func (g *SessionGate) IsAuthorized(peerIP string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.connected && g.peerIP == peerIP
}

// ActivePeer returns the connected peer's IP, if any.
func (g *SessionGate) ActivePeer() (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.peerIP, g.connected
}
