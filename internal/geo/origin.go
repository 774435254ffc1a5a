package geo

import "sync/atomic"

// Origin is the world reference point all local coordinates derive from.
type Origin struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// OriginManager publishes the world origin exactly once. Reads after the
// transition are lock-free; reassignment is impossible because every client
// caches local coordinates derived from the first value.
type OriginManager struct {
	p atomic.Pointer[Origin]
}

// SetIfUnset installs the origin if none is published yet. Returns true only
// on the transition; later calls and non-finite inputs are no-ops.
func (m *OriginManager) SetIfUnset(lat, lon float64) bool {
	if !Finite(lat, lon) {
		return false
	}
	return m.p.CompareAndSwap(nil, &Origin{Lat: lat, Lon: lon})
}

// Get returns the published origin, or ok=false while still unset.
func (m *OriginManager) Get() (Origin, bool) {
	o := m.p.Load()
	if o == nil {
		return Origin{}, false
	}
	return *o, true
}
