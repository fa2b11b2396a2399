package hotspotkbm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScroller struct {
	sumV, sumH int
}

func (f *fakeScroller) Scroll(vertical, horizontal int32) error {
	f.sumV += int(vertical)
	f.sumH += int(horizontal)
	return nil
}

// TestScrollSmootherDischargeConservation checks conservation for the
// capacitor discharge phase alone: total emitted ticks equal the charged
// delta, within the sub-pixel carry boundary tolerance. momentumTimeout is
// zero so the discharge loop drops straight from "charge drained" to
// inactive instead of entering the flick phase, which intentionally
// re-emits velocity rather than a conserved quantity and is exercised
// separately by TestScrollSmootherMomentumPhaseDecaysAndStops.
func TestScrollSmootherDischargeConservation(t *testing.T) {
	sink := &fakeScroller{}
	s := NewScrollSmoother(sink, 60, 0.25, 0, 0.90, nil)

	s.AddScroll(40, 0)
	now := s.lastInput
	interval := time.Second / 60
	for i := 0; i < 300; i++ {
		now = now.Add(interval)
		s.dischargeOnce(now)
	}

	assert.InDelta(t, 40, sink.sumV, 1)
	assert.Equal(t, 0, sink.sumH)
}

// TestScrollSmootherMomentumPhaseDecaysAndStops verifies the flick (momentum)
// phase: velocity decays geometrically each frame and the smoother goes
// inactive once it drops below the 0.2 stop threshold, rather than
// oscillating forever. The momentum window is 2 s here so that the 0.2
// threshold, not the window, is what ends the phase (with the 800 ms
// default the window closes first for this input).
func TestScrollSmootherMomentumPhaseDecaysAndStops(t *testing.T) {
	sink := &fakeScroller{}
	s := NewScrollSmoother(sink, 60, 0.25, 2*time.Second, 0.90, nil)

	s.AddScroll(20, 0)
	now := s.lastInput
	interval := time.Second / 60

	// Drain the initial charge first (it is gone after 16 frames).
	for i := 0; i < 20; i++ {
		now = now.Add(interval)
		s.dischargeOnce(now)
	}

	s.mu.Lock()
	chargeDrained := s.chargeV == 0 && s.chargeH == 0
	wasActive := s.active
	s.mu.Unlock()
	require.True(t, chargeDrained)
	require.True(t, wasActive)

	// Continue stepping through the momentum phase until it self-terminates.
	for i := 0; i < 600; i++ {
		now = now.Add(interval)
		s.dischargeOnce(now)
		s.mu.Lock()
		active := s.active
		s.mu.Unlock()
		if !active {
			break
		}
	}

	s.mu.Lock()
	active, vv, vh := s.active, s.velocityV, s.velocityH
	s.mu.Unlock()
	assert.False(t, active)
	assert.Zero(t, vv)
	assert.Zero(t, vh)
}

// TestScrollSmootherQuickTurnResetsVelocity mirrors the pointer smoother's
// quick-turn guarantee: a reversed scroll direction must not carry stale
// momentum into the new direction: the reversed sample is blended into a
// zeroed velocity (0.5 * -20 = -10), where the stale +10 would have given -5.
func TestScrollSmootherQuickTurnResetsVelocity(t *testing.T) {
	sink := &fakeScroller{}
	s := NewScrollSmoother(sink, 60, 0.25, 800*time.Millisecond, 0.90, nil)

	s.AddScroll(20, 0)
	s.mu.Lock()
	require.NotZero(t, s.velocityV)
	s.mu.Unlock()

	s.AddScroll(-20, 0)
	s.mu.Lock()
	vv, vh := s.velocityV, s.velocityH
	s.mu.Unlock()
	assert.InDelta(t, -10, vv, 1e-9)
	assert.Zero(t, vh)
}

func TestScrollSmootherIdleDecaysToZero(t *testing.T) {
	sink := &fakeScroller{}
	s := NewScrollSmoother(sink, 60, 0.25, 800*time.Millisecond, 0.90, nil)

	s.AddScroll(5, 0)
	now := s.lastInput
	interval := time.Second / 60
	for i := 0; i < 300; i++ {
		now = now.Add(interval)
		s.dischargeOnce(now)
	}

	s.mu.Lock()
	active, speed := s.active, s.speed
	s.mu.Unlock()
	assert.False(t, active)
	assert.Zero(t, speed)
}
