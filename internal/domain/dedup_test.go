package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	duomoMilano  = Geo{Lat: 45.4642, Lon: 9.1900}
	colosseoRoma = Geo{Lat: 41.8902, Lon: 12.4922}
)

func TestHaversineMeters_KnownDistances(t *testing.T) {
	// Milano-Roma is about 477 km as the crow flies.
	d := HaversineMeters(duomoMilano, colosseoRoma)
	assert.InDelta(t, 477000, d, 5000)

	// Identical points.
	assert.Zero(t, HaversineMeters(duomoMilano, duomoMilano))

	// Symmetric.
	assert.Equal(t, d, HaversineMeters(colosseoRoma, duomoMilano))
}

func TestHaversineMeters_SmallSeparation(t *testing.T) {
	// ~100m north of the first point (0.0009 degrees of latitude).
	a := Geo{Lat: 45.0, Lon: 9.0}
	b := Geo{Lat: 45.0009, Lon: 9.0}
	assert.InDelta(t, 100, HaversineMeters(a, b), 1)
}

func TestIsDuplicate_WithinThreshold(t *testing.T) {
	near := Geo{Lat: duomoMilano.Lat + 0.0003, Lon: duomoMilano.Lon} // ~33m away
	known := []Geo{colosseoRoma, duomoMilano}

	assert.True(t, IsDuplicate(near, known, DefaultDedupRadiusMeters))
}

func TestIsDuplicate_BeyondThreshold(t *testing.T) {
	far := Geo{Lat: duomoMilano.Lat + 0.002, Lon: duomoMilano.Lon} // ~222m away
	known := []Geo{duomoMilano}

	assert.False(t, IsDuplicate(far, known, DefaultDedupRadiusMeters))
}

func TestIsDuplicate_ExactThresholdIsNotDuplicate(t *testing.T) {
	a := Geo{Lat: 45.0, Lon: 9.0}
	b := Geo{Lat: 45.0009, Lon: 9.0}
	exact := HaversineMeters(a, b)

	// Strict inequality: a point at exactly the threshold distance survives.
	assert.False(t, IsDuplicate(b, []Geo{a}, exact))
	assert.True(t, IsDuplicate(b, []Geo{a}, exact+0.001))
}

func TestIsDuplicate_EmptyKnownSet(t *testing.T) {
	assert.False(t, IsDuplicate(duomoMilano, nil, DefaultDedupRadiusMeters))
}

func TestGeoValid(t *testing.T) {
	tests := []struct {
		name string
		geo  Geo
		want bool
	}{
		{"milano", duomoMilano, true},
		{"null island", Geo{}, false},
		{"lat out of range", Geo{Lat: 91, Lon: 9}, false},
		{"lat below range", Geo{Lat: -90.5, Lon: 9}, false},
		{"lon out of range", Geo{Lat: 45, Lon: 181}, false},
		{"lon below range", Geo{Lat: 45, Lon: -180.5}, false},
		{"southern hemisphere", Geo{Lat: -33.9, Lon: 151.2}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.geo.Valid())
		})
	}
}
