package hotspotkbm

import (
	"math"
	"sync"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// Scroller is the capability the Scroll Smoother discharges into.
type Scroller interface {
	Scroll(vertical, horizontal int32) error
}

// ScrollSmoother is structurally the same capacitor model as PointerSmoother,
// adapted to wheel ticks: different adaptive-discharge thresholds, a
// momentum (flick) phase instead of ease-out continuation, and a wider
// velocity EMA blend.
//
// A simpler discrete-tick momentum-decay scroll smoother also exists in
// this project's lineage: no capacitor charge, no sub-pixel carry, just a
// scaled accumulator emitting unit ticks while its magnitude exceeds a
// threshold. This capacitor variant was chosen for consistency with
// PointerSmoother; see DESIGN.md for the rejected alternative.
type ScrollSmoother struct {
	sink Scroller
	fps  float64

	baseRate         float64
	momentumTimeout  time.Duration
	momentumDecay    float64
	dischargeSeconds *metrics.Histogram

	mu         sync.Mutex
	chargeV    float64
	chargeH    float64
	subpixelV  float64
	subpixelH  float64
	velocityV  float64
	velocityH  float64
	directionV float64
	directionH float64
	speed      float64
	lastInput  time.Time
	active     bool
}

// NewScrollSmoother returns a scroll smoother writing discharged ticks to
// sink. Call Run in its own goroutine to start the discharge loop.
// dischargeSeconds may be nil, in which case frame timing is not recorded.
func NewScrollSmoother(sink Scroller, fps, baseRate float64, momentumTimeout time.Duration, momentumDecay float64, dischargeSeconds *metrics.Histogram) *ScrollSmoother {
	return &ScrollSmoother{
		sink:             sink,
		fps:              fps,
		baseRate:         baseRate,
		momentumTimeout:  momentumTimeout,
		momentumDecay:    momentumDecay,
		dischargeSeconds: dischargeSeconds,
	}
}

// AddScroll charges the smoother with a scroll delta from a SCROLL packet.
func (s *ScrollSmoother) AddScroll(vertical, horizontal int) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.chargeV += float64(vertical)
	s.chargeH += float64(horizontal)

	interval := 1.0 / s.fps
	var dt float64
	if !s.lastInput.IsZero() {
		dt = now.Sub(s.lastInput).Seconds()
	} else {
		dt = interval
	}
	if dt < 0.001 {
		dt = interval
	}
	frames := math.Max(dt*s.fps, 1)

	newVV := float64(vertical) / frames
	newVH := float64(horizontal) / frames

	if float64(vertical)*s.velocityV+float64(horizontal)*s.velocityH < 0 {
		s.velocityV = 0
		s.velocityH = 0
	}

	const blend = 0.5
	s.velocityV = s.velocityV*(1-blend) + newVV*blend
	s.velocityH = s.velocityH*(1-blend) + newVH*blend

	if speed := math.Hypot(s.velocityV, s.velocityH); speed > 0.05 {
		s.directionV = s.velocityV / speed
		s.directionH = s.velocityH / speed
		s.speed = speed
	}

	s.active = true
	s.lastInput = now
}

// Run executes the fixed-rate discharge loop until stop is closed.
func (s *ScrollSmoother) Run(stop <-chan struct{}) {
	interval := time.Duration(float64(time.Second) / s.fps)
	for {
		start := time.Now()
		select {
		case <-stop:
			return
		default:
		}
		s.dischargeOnce(start)
		if s.dischargeSeconds != nil {
			observeDischarge(s.dischargeSeconds, start)
		}
		if remaining := interval - time.Since(start); remaining > 0 {
			time.Sleep(remaining)
		}
	}
}

func (s *ScrollSmoother) dischargeOnce(now time.Time) {
	s.mu.Lock()

	sinceInput := now.Sub(s.lastInput)
	var outV, outH float64

	switch {
	case s.chargeV != 0 || s.chargeH != 0:
		mag := math.Hypot(s.chargeV, s.chargeH)

		var rate float64
		switch {
		case mag > 8:
			rate = math.Min(s.baseRate*1.8, 0.45)
		case mag < 2:
			rate = s.baseRate
		default:
			rate = s.baseRate * 1.2
		}

		outV = s.chargeV * rate
		outH = s.chargeH * rate
		s.chargeV -= outV
		s.chargeH -= outH

		if math.Abs(s.chargeV) < 0.1 {
			outV += s.chargeV
			s.chargeV = 0
		}
		if math.Abs(s.chargeH) < 0.1 {
			outH += s.chargeH
			s.chargeH = 0
		}

	// Flick phase: velocity is re-emitted and decayed directly, not drawn
	// down from a conserved charge, so total ticks here can exceed the
	// input that set the velocity in the first place. That is intentional
	// for a flick gesture; it does not apply to the discharge case above.
	case s.active && sinceInput < s.momentumTimeout:
		s.velocityV *= s.momentumDecay
		s.velocityH *= s.momentumDecay
		outV = s.velocityV
		outH = s.velocityH
		if math.Abs(s.velocityV) < 0.2 && math.Abs(s.velocityH) < 0.2 {
			s.active = false
			s.velocityV = 0
			s.velocityH = 0
			s.speed = 0
		}

	case s.active && sinceInput >= s.momentumTimeout:
		s.active = false
		s.speed = 0
		s.velocityV = 0
		s.velocityH = 0
	}

	s.subpixelV += outV
	s.subpixelH += outH
	intV := math.Trunc(s.subpixelV)
	intH := math.Trunc(s.subpixelH)
	s.subpixelV -= intV
	s.subpixelH -= intH

	v, h := int32(intV), int32(intH)
	if v != 0 || h != 0 {
		_ = s.sink.Scroll(v, h)
	}
	s.mu.Unlock()
}

// ChargeMagnitude reports the current queued charge's length, for the
// charge gauge.
func (s *ScrollSmoother) ChargeMagnitude() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return math.Hypot(s.chargeV, s.chargeH)
}
