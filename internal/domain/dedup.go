package domain

import "math"

// DefaultDedupRadiusMeters is the proximity threshold below which two
// points are considered the same physical road work. 75m sits between the
// GPS noise floor of the geometry sources and the block-level precision of
// geocoded feed items; it is deliberately a single global value rather than
// a per-source tuning knob.
const DefaultDedupRadiusMeters = 75

const earthRadiusMeters = 6371000

// HaversineMeters returns the great-circle distance between two points.
func HaversineMeters(a, b Geo) float64 {
	latA := a.Lat * math.Pi / 180
	latB := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(latA)*math.Cos(latB)*sinLon*sinLon

	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}

// IsDuplicate reports whether p lies strictly within thresholdMeters of any
// known point. A distance exactly equal to the threshold is NOT a duplicate.
//
// Linear scan: at the volumes of a periodic national batch run (thousands of
// points) this is far below any latency concern. A spatial index can replace
// the scan behind this signature if volumes grow by orders of magnitude.
func IsDuplicate(p Geo, known []Geo, thresholdMeters float64) bool {
	for _, k := range known {
		if HaversineMeters(p, k) < thresholdMeters {
			return true
		}
	}
	return false
}
