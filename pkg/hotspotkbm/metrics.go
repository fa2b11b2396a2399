package hotspotkbm

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// serverMetrics collects the counters and gauges exposed on the metrics HTTP
// endpoint. It uses a private *metrics.Set (not the package-global default)
// so a Server can be embedded without polluting process-wide metrics state,
// in the style the example pack uses for its own per-component metrics.
type serverMetrics struct {
	set *metrics.Set

	discoveryAccepted   *metrics.Counter
	discoverySuppressed *metrics.Counter

	inputAccepted *metrics.Counter
	inputRejected *metrics.Counter
	inputDropped  *metrics.Counter

	authSuccess *metrics.Counter
	authFailure *metrics.Counter

	sessionConnects    *metrics.Counter
	sessionDisconnects *metrics.Counter

	pointerDischargeSeconds *metrics.Histogram
	scrollDischargeSeconds  *metrics.Histogram
}

func newServerMetrics() *serverMetrics {
	set := metrics.NewSet()
	return &serverMetrics{
		set:                     set,
		discoveryAccepted:       set.NewCounter("hotspotkbm_discovery_accepted_total"),
		discoverySuppressed:     set.NewCounter("hotspotkbm_discovery_suppressed_total"),
		inputAccepted:           set.NewCounter("hotspotkbm_input_accepted_total"),
		inputRejected:           set.NewCounter("hotspotkbm_input_rejected_total"),
		inputDropped:            set.NewCounter("hotspotkbm_input_dropped_total"),
		authSuccess:             set.NewCounter("hotspotkbm_auth_success_total"),
		authFailure:             set.NewCounter("hotspotkbm_auth_failure_total"),
		sessionConnects:         set.NewCounter("hotspotkbm_session_connects_total"),
		sessionDisconnects:      set.NewCounter("hotspotkbm_session_disconnects_total"),
		pointerDischargeSeconds: set.NewHistogram("hotspotkbm_pointer_discharge_seconds"),
		scrollDischargeSeconds:  set.NewHistogram("hotspotkbm_scroll_discharge_seconds"),
	}
}

// WritePrometheus writes every collected metric in Prometheus text exposition
// format.
func (m *serverMetrics) WritePrometheus(w *bytes.Buffer) {
	m.set.WritePrometheus(w)
}

// observeDischarge records how long a single discharge-loop iteration took,
// under the given histogram, measured from start.
func observeDischarge(h *metrics.Histogram, start time.Time) {
	h.Update(time.Since(start).Seconds())
}

// chargeMagnitudeGauge is the capability registerChargeGauges needs from a
// smoother; PointerSmoother and ScrollSmoother both implement it.
type chargeMagnitudeGauge interface {
	ChargeMagnitude() float64
}

// registerChargeGauges wires up the queued-charge-magnitude gauges, sampled
// on scrape from the smoothers' own state rather than pushed on every
// AddMovement/AddScroll call.
func (m *serverMetrics) registerChargeGauges(pointer, scroll chargeMagnitudeGauge) {
	m.set.NewGauge("hotspotkbm_pointer_charge_magnitude", pointer.ChargeMagnitude)
	m.set.NewGauge("hotspotkbm_scroll_charge_magnitude", scroll.ChargeMagnitude)
}

// serveMetricsHTTP runs a minimal HTTP server exposing m at /metrics until
// ctx is done. It is only started when the Config's metrics address is
// non-empty.
func serveMetricsHTTP(ctx context.Context, addr string, m *serverMetrics) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		var b bytes.Buffer
		m.WritePrometheus(&b)

		w.Header().Set("Cache-Control", "private, no-cache, no-store")
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		w.Header().Set("Content-Length", strconv.Itoa(b.Len()))
		w.WriteHeader(http.StatusOK)
		b.WriteTo(w)
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	errch := make(chan error, 1)
	go func() { errch <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errch:
		return err
	}
}
