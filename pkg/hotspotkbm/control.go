package hotspotkbm

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// KeyEventer is the capability ControlServer needs to deliver KEY commands;
// Sink implements it.
type KeyEventer interface {
	KeyEvent(key string, down bool) error
}

// ControlServer is the TCP control server: it runs the auth dialog, then
// gates CLICK/KEY commands behind the connection's own authenticated state,
// which is set when that connection's AUTH succeeds. The
// accept loop is deliberately serial: it waits for the active client's
// handler to finish before accepting the next connection, which is what
// gives the single-client invariant teeth at the TCP layer itself, on top
// of the Session Gate's own bookkeeping.
type ControlServer struct {
	addr    string
	auth    *AuthGate
	session *SessionGate
	pointer *PointerSmoother
	sink    KeyEventer
	metrics *serverMetrics
	log     zerolog.Logger

	// onDisconnect is invoked after Session/Auth state has been reset and a
	// fresh pairing code generated, so surrounding glue (e.g. a console
	// display) can show it again. It must not block.
	onDisconnect func(newCode string)
}

// NewControlServer returns a server bound to addr once Run is called.
func NewControlServer(addr string, auth *AuthGate, session *SessionGate, pointer *PointerSmoother, sink KeyEventer, m *serverMetrics, log zerolog.Logger, onDisconnect func(string)) *ControlServer {
	if onDisconnect == nil {
		onDisconnect = func(string) {}
	}
	return &ControlServer{
		addr:         addr,
		auth:         auth,
		session:      session,
		pointer:      pointer,
		sink:         sink,
		metrics:      m,
		log:          log.With().Str("component", "control").Logger(),
		onDisconnect: onDisconnect,
	}
}

// Run binds the control socket and accepts clients, one at a time, until
// ctx is done.
func (s *ControlServer) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("bind control socket: %w", err)
	}
	defer ln.Close()

	s.log.Info().Str("addr", s.addr).Msg("TCP control server started")

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}
		if tl, ok := ln.(*net.TCPListener); ok {
			tl.SetDeadline(time.Now().Add(time.Second))
		}
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			s.log.Warn().Err(err).Msg("accept error")
			return nil
		}

		// Serialised on purpose: the next Accept does not happen until this
		// client's handler returns.
		s.handleClient(ctx, conn)
	}
}

func (s *ControlServer) handleClient(ctx context.Context, conn net.Conn) {
	peer, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		peer = conn.RemoteAddr().String()
	}
	s.log.Info().Str("peer", peer).Msg("client connected")

	authenticated := false
	defer func() {
		conn.Close()
		s.session.Disconnect()
		s.auth.Reset()
		code := s.auth.Generate()
		s.metrics.sessionDisconnects.Inc()
		s.log.Info().Str("peer", peer).Msg("client disconnected")
		s.onDisconnect(code)
	}()

	var buf []byte
	r := make([]byte, 1024)
	for {
		if ctx.Err() != nil {
			return
		}
		conn.SetReadDeadline(time.Now().Add(time.Second))
		n, err := conn.Read(r)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			// EOF or reset: fall through to the deferred disconnect.
			return
		}
		buf = append(buf, r[:n]...)

		for {
			i := bytes.IndexByte(buf, '\n')
			if i < 0 {
				break
			}
			line := strings.TrimSpace(string(buf[:i]))
			buf = buf[i+1:]
			authenticated = s.processLine(conn, peer, line, authenticated)
		}
	}
}

// processLine handles one complete command line and returns the updated
// authenticated flag.
func (s *ControlServer) processLine(conn net.Conn, peer, line string, authenticated bool) bool {
	if line == "" {
		return authenticated
	}
	fields := strings.Fields(line)
	verb := strings.ToUpper(fields[0])

	switch verb {
	case "AUTH":
		if len(fields) < 2 {
			return authenticated
		}
		code := fields[1]
		if !s.auth.Validate(code) {
			s.metrics.authFailure.Inc()
			s.log.Info().Str("peer", peer).Msg("auth failed: invalid code")
			writeLine(conn, "AUTH_FAIL:INVALID_CODE")
			return authenticated
		}
		if !s.session.TryConnect(peer, conn) {
			s.metrics.authFailure.Inc()
			s.log.Info().Str("peer", peer).Msg("auth failed: already connected")
			writeLine(conn, "AUTH_FAIL:ALREADY_CONNECTED")
			return authenticated
		}
		s.metrics.authSuccess.Inc()
		s.metrics.sessionConnects.Inc()
		s.log.Info().Str("peer", peer).Msg("auth ok")
		writeLine(conn, "AUTH_OK")
		return true

	case "CLICK":
		if !authenticated || len(fields) < 3 {
			return authenticated
		}
		button := strings.ToUpper(fields[1])
		state := strings.ToUpper(fields[2])
		if !validButton(button) || !validState(state) {
			return authenticated
		}
		if err := s.pointer.Click(button, state == "DOWN"); err != nil {
			s.log.Error().Err(err).Str("peer", peer).Str("button", button).Msg("click write failed")
		}
		return authenticated

	case "KEY":
		if !authenticated || len(fields) < 3 {
			return authenticated
		}
		state := strings.ToUpper(fields[1])
		key := strings.ToUpper(fields[2])
		if _, ok := keymap[key]; !ok || !validState(state) {
			return authenticated
		}
		if err := s.sink.KeyEvent(key, state == "DOWN"); err != nil {
			s.log.Error().Err(err).Str("peer", peer).Str("key", key).Msg("key write failed")
		}
		return authenticated
	}
	return authenticated
}

func validButton(b string) bool {
	return b == ButtonLeft || b == ButtonRight || b == ButtonMiddle
}

func validState(s string) bool {
	return s == "DOWN" || s == "UP"
}

func writeLine(conn net.Conn, s string) {
	_, _ = conn.Write([]byte(s + "\n"))
}
