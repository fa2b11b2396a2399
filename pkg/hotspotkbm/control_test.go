package hotspotkbm

import (
	"bufio"
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeKeyEventer struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeKeyEventer) KeyEvent(key string, down bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	state := "up"
	if down {
		state = "down"
	}
	f.events = append(f.events, key+":"+state)
	return nil
}

func newTestControlServer(t *testing.T, auth *AuthGate, session *SessionGate) (*ControlServer, *fakeMover, *fakeKeyEventer) {
	t.Helper()
	mover := &fakeMover{}
	keys := &fakeKeyEventer{}
	pointer := NewPointerSmoother(mover, 60, 0.22, 80*time.Millisecond, nil)
	srv := NewControlServer("127.0.0.1:0", auth, session, pointer, keys, newServerMetrics(), zerolog.Nop(), nil)
	return srv, mover, keys
}

// runControlServerOn starts srv's accept loop against an already-bound
// listener (so the test can pick the ephemeral port up front) and returns a
// cancel func to stop it.
func runControlServerOn(t *testing.T, srv *ControlServer, ln net.Listener) context.CancelFunc {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer ln.Close()
		go func() {
			<-ctx.Done()
			ln.Close()
		}()
		for {
			if ctx.Err() != nil {
				return
			}
			if tl, ok := ln.(*net.TCPListener); ok {
				tl.SetDeadline(time.Now().Add(100 * time.Millisecond))
			}
			conn, err := ln.Accept()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				continue
			}
			srv.handleClient(ctx, conn)
		}
	}()
	return cancel
}

// TestControlServerAuthHappyPath is scenario E3: a correct code gets
// AUTH_OK and the Session Gate becomes connected to the dialing peer.
func TestControlServerAuthHappyPath(t *testing.T) {
	auth := NewAuthGate(time.Minute)
	session := NewSessionGate()
	code := auth.Generate()

	srv, _, _ := newTestControlServer(t, auth, session)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	cancel := runControlServerOn(t, srv, ln)
	defer cancel()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	r := bufio.NewReader(conn)
	_, err = conn.Write([]byte("AUTH " + code + "\n"))
	require.NoError(t, err)

	line, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "AUTH_OK\n", line)
	assert.True(t, session.IsConnected())
}

// TestControlServerAuthInvalidCode is scenario E4's reply half: a wrong or
// expired code gets AUTH_FAIL:INVALID_CODE and never touches the Session
// Gate.
func TestControlServerAuthInvalidCode(t *testing.T) {
	auth := NewAuthGate(time.Minute)
	session := NewSessionGate()
	auth.Generate()

	srv, _, _ := newTestControlServer(t, auth, session)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	cancel := runControlServerOn(t, srv, ln)
	defer cancel()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	r := bufio.NewReader(conn)
	_, err = conn.Write([]byte("AUTH 000000\n"))
	require.NoError(t, err)

	line, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "AUTH_FAIL:INVALID_CODE\n", line)
	assert.False(t, session.IsConnected())
}

// TestControlServerCommandsGatedByAuthentication is the invariant behind
// the CLICK/KEY rows of the command table: unauthenticated connections get
// silently dropped, not an error reply.
func TestControlServerCommandsGatedByAuthentication(t *testing.T) {
	auth := NewAuthGate(time.Minute)
	session := NewSessionGate()
	auth.Generate()

	srv, mover, keys := newTestControlServer(t, auth, session)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	cancel := runControlServerOn(t, srv, ln)
	defer cancel()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("CLICK LEFT DOWN\nKEY DOWN KEY_A\n"))
	require.NoError(t, err)

	// No reply is ever sent for CLICK/KEY, authenticated or not, so prove
	// the drop by checking nothing reached the sink after a settle delay.
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, mover.clicks)
	assert.Empty(t, keys.events)
}

// TestControlServerAuthenticatedCommandsForwardToSink exercises the
// CLICK/KEY rows end to end once authenticated.
func TestControlServerAuthenticatedCommandsForwardToSink(t *testing.T) {
	auth := NewAuthGate(time.Minute)
	session := NewSessionGate()
	code := auth.Generate()

	srv, mover, keys := newTestControlServer(t, auth, session)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	cancel := runControlServerOn(t, srv, ln)
	defer cancel()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	r := bufio.NewReader(conn)
	_, err = conn.Write([]byte("AUTH " + code + "\n"))
	require.NoError(t, err)
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "AUTH_OK\n", line)

	_, err = conn.Write([]byte("CLICK LEFT DOWN\nKEY DOWN KEY_A\nKEY UP KEY_A\n"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		keys.mu.Lock()
		defer keys.mu.Unlock()
		return len(keys.events) == 2
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{"LEFT:down"}, mover.clicks)
	keys.mu.Lock()
	assert.Equal(t, []string{"KEY_A:down", "KEY_A:up"}, keys.events)
	keys.mu.Unlock()
}

// TestControlServerSecondClientRejected covers two connections racing to
// authenticate with the same valid code: exactly one gets AUTH_OK and the
// other AUTH_FAIL:ALREADY_CONNECTED. The real server's accept loop is itself
// serial (a second dial would simply queue until the first handler
// returns), so this drives two handleClient calls directly, in parallel,
// against the shared Auth/Session gates. That is the layer underneath the
// serial accept loop where two concurrent connection attempts actually
// contend.
func TestControlServerSecondClientRejected(t *testing.T) {
	auth := NewAuthGate(time.Minute)
	session := NewSessionGate()
	code := auth.Generate()

	srv, _, _ := newTestControlServer(t, auth, session)

	clientA, serverA := net.Pipe()
	clientB, serverB := net.Pipe()
	defer clientA.Close()
	defer clientB.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); srv.handleClient(ctx, serverA) }()
	go func() { defer wg.Done(); srv.handleClient(ctx, serverB) }()

	var replyA, replyB string
	var wgReplies sync.WaitGroup
	wgReplies.Add(2)
	go func() {
		defer wgReplies.Done()
		clientA.Write([]byte("AUTH " + code + "\n"))
		buf := make([]byte, 64)
		n, _ := clientA.Read(buf)
		replyA = string(buf[:n])
	}()
	go func() {
		defer wgReplies.Done()
		clientB.Write([]byte("AUTH " + code + "\n"))
		buf := make([]byte, 64)
		n, _ := clientB.Read(buf)
		replyB = string(buf[:n])
	}()
	wgReplies.Wait()

	oks := 0
	rejects := 0
	for _, reply := range []string{replyA, replyB} {
		switch reply {
		case "AUTH_OK\n":
			oks++
		case "AUTH_FAIL:ALREADY_CONNECTED\n":
			rejects++
		}
	}
	assert.Equal(t, 1, oks)
	assert.Equal(t, 1, rejects)

	cancel()
	clientA.Close()
	clientB.Close()
	wg.Wait()
}
