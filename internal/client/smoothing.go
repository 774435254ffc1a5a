package client

// Smoother moves a value toward its target with frame-rate-independent
// exponential decay. One utility serves self, peers and blocks alike.
type Smoother struct {
	// Rate is the approach rate per second; higher snaps harder.
	Rate float64
}

// Step advances cur toward target over dt seconds. The blend factor is
// clamped so oversized frame gaps land exactly on the target instead of
// overshooting.
func (s Smoother) Step(cur, target, dt float64) float64 {
	a := dt * s.Rate
	if a < 0 {
		a = 0
	} else if a > 1 {
		a = 1
	}
	return cur + (target-cur)*a
}
