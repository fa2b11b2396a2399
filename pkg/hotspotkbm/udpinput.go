package hotspotkbm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// UDPInputReceiver receives pointer and scroll packets and, after checking
// the Session Gate, hands them to the smoothers. Packets are best-effort:
// anything malformed, or from an unauthorized source, is dropped silently.
type UDPInputReceiver struct {
	addr    string
	session *SessionGate
	pointer *PointerSmoother
	scroll  *ScrollSmoother
	metrics *serverMetrics
	log     zerolog.Logger
}

// NewUDPInputReceiver returns a receiver bound to addr once Run is called.
func NewUDPInputReceiver(addr string, session *SessionGate, pointer *PointerSmoother, scroll *ScrollSmoother, m *serverMetrics, log zerolog.Logger) *UDPInputReceiver {
	return &UDPInputReceiver{
		addr:    addr,
		session: session,
		pointer: pointer,
		scroll:  scroll,
		metrics: m,
		log:     log.With().Str("component", "udpinput").Logger(),
	}
}

// Run binds the input socket and processes packets until ctx is done.
func (r *UDPInputReceiver) Run(ctx context.Context) error {
	conn, err := net.ListenPacket("udp", r.addr)
	if err != nil {
		return fmt.Errorf("bind input socket: %w", err)
	}
	defer conn.Close()

	r.log.Info().Str("addr", r.addr).Msg("UDP input receiver started")

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	buf := make([]byte, 256)
	for {
		if ctx.Err() != nil {
			return nil
		}
		conn.SetReadDeadline(time.Now().Add(time.Second))
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			r.log.Warn().Err(err).Msg("input socket error")
			return nil
		}

		host, _, err := net.SplitHostPort(addr.String())
		if err != nil {
			host = addr.String()
		}
		if !r.session.IsAuthorized(host) {
			r.metrics.inputRejected.Inc()
			continue
		}

		verb, v1, v2, ok := parseInputPacket(buf[:n])
		if !ok {
			r.metrics.inputDropped.Inc()
			continue
		}

		switch verb {
		case "MOVE":
			r.pointer.AddMovement(v1, v2)
		case "SCROLL":
			r.scroll.AddScroll(v1, v2)
		default:
			r.metrics.inputDropped.Inc()
			continue
		}
		r.metrics.inputAccepted.Inc()
	}
}

// parseInputPacket decodes a single UDP datagram into its verb and two
// integer arguments. It tolerates invalid UTF-8 (lossy decode, matching the
// distilled spec's "decode as UTF-8 with lossy fallback") and requires
// exactly three whitespace-separated tokens.
func parseInputPacket(b []byte) (verb string, v1, v2 int, ok bool) {
	msg := strings.ToValidUTF8(string(b), "")
	fields := strings.Fields(msg)
	if len(fields) != 3 {
		return "", 0, 0, false
	}
	a, err1 := strconv.Atoi(fields[1])
	c, err2 := strconv.Atoi(fields[2])
	if err1 != nil || err2 != nil {
		return "", 0, 0, false
	}
	return strings.ToUpper(fields[0]), a, c, true
}
