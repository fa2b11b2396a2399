package hotspotkbm

import (
	"math"
	"sync"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// Mover is the capability the Input Smoother discharges into. It is
// implemented by the Virtual Input Sink.
type Mover interface {
	Move(dx, dy int32) error
	Click(button string, down bool) error
}

// PointerSmoother is the capacitor-style smoother for mouse movement: it
// absorbs bursty, irregularly-spaced integer deltas and re-emits them at a
// fixed frame rate with sub-pixel precision and a brief momentum tail.
//
// Conceptually fresh input "charges" the smoother; a dedicated discharge loop
// releases a fraction of that charge every frame, much like an RC circuit,
// so that gaming-mouse-style snappy response and silky slow movement share
// one model instead of needing separate code paths.
type PointerSmoother struct {
	sink Mover
	fps  float64

	baseRate            float64
	continuationTimeout time.Duration
	dischargeSeconds    *metrics.Histogram

	mu          sync.Mutex
	chargeX     float64
	chargeY     float64
	subpixelX   float64
	subpixelY   float64
	velocityX   float64
	velocityY   float64
	directionX  float64
	directionY  float64
	speed       float64
	lastInput   time.Time
	active      bool
}

// NewPointerSmoother returns a smoother that will write discharged integer
// deltas to sink. Call Run in its own goroutine to start the discharge loop.
// dischargeSeconds may be nil, in which case frame timing is not recorded.
func NewPointerSmoother(sink Mover, fps, baseRate float64, continuationTimeout time.Duration, dischargeSeconds *metrics.Histogram) *PointerSmoother {
	return &PointerSmoother{
		sink:                sink,
		fps:                 fps,
		baseRate:            baseRate,
		continuationTimeout: continuationTimeout,
		dischargeSeconds:    dischargeSeconds,
	}
}

// AddMovement charges the smoother with a pointer delta. It is called by the
// UDP input receiver for every MOVE packet and never blocks beyond a mutex
// hand-off.
func (s *PointerSmoother) AddMovement(dx, dy int) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.chargeX += float64(dx)
	s.chargeY += float64(dy)

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

	newVX := float64(dx) / frames
	newVY := float64(dy) / frames

	// Quick-turn reset: a reversal in direction must not leave stale momentum.
	if float64(dx)*s.velocityX+float64(dy)*s.velocityY < 0 {
		s.velocityX = 0
		s.velocityY = 0
	}

	const blend = 0.6
	s.velocityX = s.velocityX*(1-blend) + newVX*blend
	s.velocityY = s.velocityY*(1-blend) + newVY*blend

	if speed := math.Hypot(s.velocityX, s.velocityY); speed > 0.05 {
		s.directionX = s.velocityX / speed
		s.directionY = s.velocityY / speed
		s.speed = speed
	}

	s.active = true
	s.lastInput = now
}

// Run executes the fixed-rate discharge loop until stop is closed. It should
// be started in its own goroutine.
func (s *PointerSmoother) Run(stop <-chan struct{}) {
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

func (s *PointerSmoother) dischargeOnce(now time.Time) {
	s.mu.Lock()

	sinceInput := now.Sub(s.lastInput)
	var outX, outY float64

	switch {
	case s.chargeX != 0 || s.chargeY != 0:
		mag := math.Hypot(s.chargeX, s.chargeY)

		var rate float64
		switch {
		case mag > 10:
			rate = math.Min(s.baseRate*1.5, 0.27)
		case mag < 2:
			rate = math.Max(s.baseRate*0.7, 0.12)
		default:
			rate = s.baseRate
		}

		outX = s.chargeX * rate
		outY = s.chargeY * rate
		s.chargeX -= outX
		s.chargeY -= outY

		if math.Abs(s.chargeX) < 0.02 {
			outX += s.chargeX
			s.chargeX = 0
		}
		if math.Abs(s.chargeY) < 0.02 {
			outY += s.chargeY
			s.chargeY = 0
		}

	case s.active && sinceInput < s.continuationTimeout:
		progress := sinceInput.Seconds() / s.continuationTimeout.Seconds()
		fade := (1 - progress) * (1 - progress)
		continueSpeed := s.speed * fade * 0.5
		if continueSpeed > 0.03 {
			outX = s.directionX * continueSpeed
			outY = s.directionY * continueSpeed
		}

	case s.active && sinceInput >= s.continuationTimeout:
		s.active = false
		s.speed = 0
		s.velocityX = 0
		s.velocityY = 0
	}

	s.subpixelX += outX
	s.subpixelY += outY
	intX := math.Trunc(s.subpixelX)
	intY := math.Trunc(s.subpixelY)
	s.subpixelX -= intX
	s.subpixelY -= intY

	dx, dy := int32(intX), int32(intY)
	if dx != 0 || dy != 0 {
		// Called while still holding the lock, so Move and Click (below)
		// never interleave; acceptable because uinput writes are
		// non-blocking. Scroll writes to the same device are serialised by
		// the Sink's own mutex.
		_ = s.sink.Move(dx, dy)
	}
	s.mu.Unlock()
}

// Click forwards a button event to the Sink through the same mutex that
// serialises Move calls, since both write to the mouse device's fd.
func (s *PointerSmoother) Click(button string, down bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sink.Click(button, down)
}

// ChargeMagnitude reports the current queued charge's length, for the
// charge gauge.
func (s *PointerSmoother) ChargeMagnitude() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return math.Hypot(s.chargeX, s.chargeY)
}
