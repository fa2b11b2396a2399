package hotspotkbm

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// Server wires every component together and owns their lifecycles. It is
// the single place that knows about all nine components named in the
// specification this project implements; everything else only knows its
// immediate collaborators, injected at construction.
type Server struct {
	Logger zerolog.Logger

	config  Config
	auth    *AuthGate
	session *SessionGate
	pointer *PointerSmoother
	scroll  *ScrollSmoother
	sink    *Sink
	metrics *serverMetrics

	discovery *DiscoveryResponder
	udpInput  *UDPInputReceiver
	control   *ControlServer

	// OnPairingCode is invoked whenever a new pairing code becomes current
	// (at startup, and after every disconnect), so surrounding glue can
	// display it. It must not block.
	OnPairingCode func(code string)
}

// NewServer builds a Server from c. It opens the uinput devices immediately;
// per the error handling policy, a device-creation failure here is fatal.
func NewServer(c *Config) (*Server, error) {
	logger, err := configureLogging(c)
	if err != nil {
		return nil, fmt.Errorf("configure logging: %w", err)
	}

	serverIP, err := detectServerIP()
	if err != nil {
		return nil, fmt.Errorf("detect server IP: %w", err)
	}

	sink, err := NewSink(c.UinputPaths, c.ServerName)
	if err != nil {
		return nil, fmt.Errorf("create virtual input sink: %w", err)
	}

	m := newServerMetrics()
	auth := NewAuthGate(c.AuthTimeout)
	session := NewSessionGate()
	pointer := NewPointerSmoother(sink, c.FPS, c.PointerBaseRate, c.PointerContinuationTimeout, m.pointerDischargeSeconds)
	scroll := NewScrollSmoother(sink, c.FPS, c.ScrollBaseRate, c.ScrollMomentumTimeout, c.ScrollMomentumDecay, m.scrollDischargeSeconds)
	m.registerChargeGauges(pointer, scroll)

	s := &Server{
		Logger:  logger,
		config:  *c,
		auth:    auth,
		session: session,
		pointer: pointer,
		scroll:  scroll,
		sink:    sink,
		metrics: m,
	}

	s.discovery = NewDiscoveryResponder(c.DiscoveryAddr, c.ServerName, serverIP, c.ControlPort, session, m, logger)
	s.udpInput = NewUDPInputReceiver(c.InputAddr, session, pointer, scroll, m, logger)
	s.control = NewControlServer(c.ControlAddr, auth, session, pointer, sink, m, logger, func(code string) {
		if s.OnPairingCode != nil {
			s.OnPairingCode(code)
		}
	})

	logger.Info().Int("keys", KeymapSize()).Msg("virtual input devices ready")
	return s, nil
}

// Run starts every goroutine (Discovery, UDP input, TCP control, and the two
// smoother discharge loops) and blocks until ctx is cancelled or one of the
// network listeners fails. It then waits at most 2 s for the goroutines to
// stop, and always tears down the uinput devices before returning.
func (s *Server) Run(ctx context.Context) error {
	defer s.sink.Close()

	code := s.auth.Generate()
	if s.OnPairingCode != nil {
		s.OnPairingCode(code)
	}

	stop := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(2)
	go func() { defer wg.Done(); s.pointer.Run(stop) }()
	go func() { defer wg.Done(); s.scroll.Run(stop) }()

	errch := make(chan error, 3)
	wg.Add(3)
	go func() { defer wg.Done(); errch <- s.discovery.Run(ctx) }()
	go func() { defer wg.Done(); errch <- s.udpInput.Run(ctx) }()
	go func() { defer wg.Done(); errch <- s.control.Run(ctx) }()

	if s.config.MetricsAddr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := serveMetricsHTTP(ctx, s.config.MetricsAddr, s.metrics); err != nil {
				s.Logger.Warn().Err(err).Msg("metrics server stopped")
			}
		}()
	}

	s.Logger.Info().Msg("server running")

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-errch:
		runErr = err
	}

	close(stop)
	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		s.Logger.Warn().Msg("goroutines still running after 2s, closing devices anyway")
	}
	return runErr
}

// configureLogging builds the shared logger from c.LogLevel and c.LogPretty,
// writing to a console writer when stderr is a terminal and pretty logging
// was requested, or plain JSON otherwise.
func configureLogging(c *Config) (zerolog.Logger, error) {
	var w = os.Stderr
	var logger zerolog.Logger
	if c.LogPretty && isatty.IsTerminal(w.Fd()) {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: w}).Level(c.LogLevel).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(w).Level(c.LogLevel).With().Timestamp().Logger()
	}
	return logger, nil
}

// detectServerIP returns the first non-loopback IPv4 address of any active
// network interface, for inclusion in discovery responses.
func detectServerIP() (string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", err
	}
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() {
			continue
		}
		if v4 := ipnet.IP.To4(); v4 != nil {
			return v4.String(), nil
		}
	}
	return "", fmt.Errorf("no non-loopback IPv4 address found")
}
