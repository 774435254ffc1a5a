package client

import (
	"math"
	"testing"
	"time"
)

func newTestGate(minInterval time.Duration, deadBand float64) (*UplinkGate, *time.Time) {
	now := time.Unix(1000, 0)
	g := NewUplinkGate(minInterval, deadBand)
	g.now = func() time.Time { return now }
	return g, &now
}

func TestFirstFixAlwaysPasses(t *testing.T) {
	g, _ := newTestGate(time.Second, 1.8)
	if !g.Offer(40.0, -75.0) {
		t.Fatalf("first fix should pass")
	}
}

func TestJitterAtRestIsSuppressed(t *testing.T) {
	g, now := newTestGate(time.Second, 1.8)
	g.Offer(40.0, -75.0)

	// ~1.1m north: inside the dead band even after the interval elapses.
	*now = now.Add(2 * time.Second)
	if g.Offer(40.00001, -75.0) {
		t.Fatalf("sub-deadband displacement should be suppressed")
	}
}

func TestIntervalGateHoldsBackFastMovement(t *testing.T) {
	g, now := newTestGate(time.Second, 1.8)
	g.Offer(40.0, -75.0)

	// A real move, but too soon after the last send.
	*now = now.Add(200 * time.Millisecond)
	if g.Offer(40.0001, -75.0) {
		t.Fatalf("fix inside min interval should be suppressed")
	}

	// Same move once the interval has elapsed.
	*now = now.Add(time.Second)
	if !g.Offer(40.0001, -75.0) {
		t.Fatalf("fix past interval and dead band should pass")
	}
}

func TestDisplacementMeasuredFromLastSentFix(t *testing.T) {
	g, now := newTestGate(time.Second, 1.8)
	g.Offer(40.0, -75.0)

	// Creep in sub-deadband steps. Each step is measured against the last
	// SENT fix, so the accumulated drift eventually trips the gate.
	stepDeg := 1.0 / 111320.0 // ~1m of latitude
	lat := 40.0
	passedAt := -1
	for i := 1; i <= 5; i++ {
		lat += stepDeg
		*now = now.Add(2 * time.Second)
		if g.Offer(lat, -75.0) {
			passedAt = i
			break
		}
	}
	if passedAt != 2 {
		t.Fatalf("gate opened after %d steps, want 2 (accumulated ~2m)", passedAt)
	}
}

func TestNonFiniteFixRejected(t *testing.T) {
	g, _ := newTestGate(time.Second, 1.8)
	if g.Offer(math.NaN(), -75.0) {
		t.Fatalf("NaN fix should be rejected")
	}
	if g.Offer(40.0, math.Inf(1)) {
		t.Fatalf("Inf fix should be rejected")
	}
}
