package hotspotkbm

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopCloser struct{ closed bool }

func (c *nopCloser) Close() error {
	c.closed = true
	return nil
}

var _ io.Closer = (*nopCloser)(nil)

func TestSessionGateTryConnect(t *testing.T) {
	g := NewSessionGate()
	ch := &nopCloser{}

	require.True(t, g.TryConnect("10.0.0.5", ch))
	assert.True(t, g.IsConnected())
	assert.True(t, g.IsAuthorized("10.0.0.5"))
	assert.False(t, g.IsAuthorized("10.0.0.6"))
}

func TestSessionGateRejectsSecondClient(t *testing.T) {
	g := NewSessionGate()
	require.True(t, g.TryConnect("10.0.0.5", nil))
	assert.False(t, g.TryConnect("10.0.0.6", nil))
	assert.True(t, g.IsAuthorized("10.0.0.5"))
	assert.False(t, g.IsAuthorized("10.0.0.6"))
}

func TestSessionGateDisconnectClosesChannelAndResets(t *testing.T) {
	g := NewSessionGate()
	ch := &nopCloser{}
	require.True(t, g.TryConnect("10.0.0.5", ch))

	g.Disconnect()
	assert.True(t, ch.closed)
	assert.False(t, g.IsConnected())
	assert.False(t, g.IsAuthorized("10.0.0.5"))

	// a new client can now connect
	assert.True(t, g.TryConnect("10.0.0.6", nil))
}

func TestSessionGateActivePeer(t *testing.T) {
	g := NewSessionGate()
	_, ok := g.ActivePeer()
	assert.False(t, ok)

	g.TryConnect("10.0.0.5", nil)
	ip, ok := g.ActivePeer()
	assert.True(t, ok)
	assert.Equal(t, "10.0.0.5", ip)
}
