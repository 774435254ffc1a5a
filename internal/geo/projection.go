package geo

import "math"

// Local tangent-plane (equirectangular) projection. Valid for extents up to
// a few kilometres around the origin; the meridian convergence term is
// intentionally omitted at this scale.
//
// Axis convention: x grows east (longitude), z grows north (latitude).
const metersPerDegreeLat = 111320.0

func metersPerDegreeLon(lat float64) float64 {
	return metersPerDegreeLat * math.Cos(lat*math.Pi/180)
}

// Project converts a lat/lon fix to local planar meters relative to o.
// Callers must only invoke it with an established origin; with an unset
// origin the result is meaningless and projection should be deferred.
func Project(lat, lon float64, o Origin) (x, z float64) {
	x = (lon - o.Lon) * metersPerDegreeLon(o.Lat)
	z = (lat - o.Lat) * metersPerDegreeLat
	return x, z
}

// Distance projects both fixes onto the tangent plane at o and returns the
// Euclidean norm of the difference, in meters.
func Distance(latA, lonA, latB, lonB float64, o Origin) float64 {
	ax, az := Project(latA, lonA, o)
	bx, bz := Project(latB, lonB, o)
	return math.Hypot(bx-ax, bz-az)
}

// ProjectPrecise uses the truncated meridian-arc series instead of the flat
// per-degree constants. The delta against Project stays sub-meter inside the
// intended operating range; it exists so diagnostics can report projection
// drift, and is not used for authoritative geometry.
func ProjectPrecise(lat, lon float64, o Origin) (x, z float64) {
	phi := o.Lat * math.Pi / 180
	mLat := 111132.92 - 559.82*math.Cos(2*phi) + 1.175*math.Cos(4*phi)
	mLon := 111412.84*math.Cos(phi) - 93.5*math.Cos(3*phi)
	x = (lon - o.Lon) * mLon
	z = (lat - o.Lat) * mLat
	return x, z
}

// Finite reports whether every value is a real number (no NaN/Inf). Every
// coordinate pair must pass this check before it reaches the projector.
func Finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
