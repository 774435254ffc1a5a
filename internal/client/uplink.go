package client

import (
	"time"

	"geocubes.app/internal/geo"
)

// UplinkGate decides which GPS fixes are worth sending upstream. GPS jitter
// at rest produces a stream of sub-meter "movements"; forwarding them all
// would keep every peer's smoothing target wobbling. A fix passes only when
// enough time has elapsed AND the device actually moved.
type UplinkGate struct {
	// MinInterval is the minimum spacing between sent fixes.
	MinInterval time.Duration
	// DeadBand is the displacement, in meters, below which a fix is noise.
	DeadBand float64

	lastLat, lastLon float64
	lastSent         time.Time
	sent             bool

	now func() time.Time
}

func NewUplinkGate(minInterval time.Duration, deadBand float64) *UplinkGate {
	return &UplinkGate{
		MinInterval: minInterval,
		DeadBand:    deadBand,
		now:         time.Now,
	}
}

// Offer reports whether the fix should be sent, recording it as the new
// reference point if so. The first fix always passes.
func (g *UplinkGate) Offer(lat, lon float64) bool {
	if !geo.Finite(lat, lon) {
		return false
	}
	now := g.now()
	if g.sent {
		if now.Sub(g.lastSent) < g.MinInterval {
			return false
		}
		// Displacement is measured on the tangent plane at the last sent
		// point, not the world origin, so the gate works before the origin
		// is known and far from it.
		ref := geo.Origin{Lat: g.lastLat, Lon: g.lastLon}
		if geo.Distance(g.lastLat, g.lastLon, lat, lon, ref) <= g.DeadBand {
			return false
		}
	}
	g.lastLat, g.lastLon = lat, lon
	g.lastSent = now
	g.sent = true
	return true
}
