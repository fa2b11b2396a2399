package hotspotkbm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// discoveryMagic is the exact datagram a handheld sends to locate the server.
const discoveryMagic = "HOTSPOT_KBM_DISCOVERY"

// DiscoveryResponder answers UDP discovery broadcasts with the server's
// control endpoint, but only while no client is connected: a connected
// server must not keep advertising itself to third parties.
type DiscoveryResponder struct {
	addr       string
	serverName string
	serverIP   string
	controlPort int
	session    *SessionGate
	metrics    *serverMetrics
	log        zerolog.Logger
}

// NewDiscoveryResponder returns a responder bound to addr once Run is
// called. serverIP is the address advertised in responses.
func NewDiscoveryResponder(addr, serverName, serverIP string, controlPort int, session *SessionGate, m *serverMetrics, log zerolog.Logger) *DiscoveryResponder {
	return &DiscoveryResponder{
		addr:        addr,
		serverName:  serverName,
		serverIP:    serverIP,
		controlPort: controlPort,
		session:     session,
		metrics:     m,
		log:         log.With().Str("component", "discovery").Logger(),
	}
}

func (d *DiscoveryResponder) buildResponse() []byte {
	lines := []string{
		"HOTSPOT_KBM_SERVER",
		d.serverName,
		d.serverIP,
		fmt.Sprintf("%d", d.controlPort),
		"AUTH_REQUIRED=true",
	}
	return []byte(strings.Join(lines, "\n"))
}

// Run binds the discovery socket and answers packets until ctx is done.
func (d *DiscoveryResponder) Run(ctx context.Context) error {
	conn, err := net.ListenPacket("udp", d.addr)
	if err != nil {
		return fmt.Errorf("bind discovery socket: %w", err)
	}
	defer conn.Close()

	d.log.Info().Str("addr", d.addr).Msg("discovery responder started")

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	buf := make([]byte, 1024)
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
			d.log.Warn().Err(err).Msg("discovery socket error")
			return nil
		}

		msg := strings.TrimSpace(strings.ToValidUTF8(string(buf[:n]), ""))
		if msg != discoveryMagic {
			continue
		}
		if !d.session.IsConnected() {
			if _, err := conn.WriteTo(d.buildResponse(), addr); err != nil {
				d.log.Warn().Err(err).Str("peer", addr.String()).Msg("discovery response failed")
				continue
			}
			d.metrics.discoveryAccepted.Inc()
			d.log.Debug().Str("peer", addr.String()).Msg("sent discovery response")
		} else {
			d.metrics.discoverySuppressed.Inc()
			d.log.Debug().Str("peer", addr.String()).Msg("discovery suppressed, session active")
		}
	}
}
