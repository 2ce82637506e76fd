package domain

import "context"

// Address holds the administrative components returned by reverse geocoding.
// Fields may be empty when the provider does not know them.
type Address struct {
	Province string
	County   string
	City     string
}

// Geocoder resolves free-text locations to coordinates and back.
// Both methods return (nil, nil) when the provider has no match; that is
// a normal outcome, not an error.
type Geocoder interface {
	// Forward converts a place query to coordinates.
	Forward(ctx context.Context, query string) (*Geo, error)

	// Reverse converts coordinates to administrative address components.
	Reverse(ctx context.Context, g Geo) (*Address, error)
}

// ReverseGeocoder is the subset of Geocoder needed by region enrichment.
type ReverseGeocoder interface {
	Reverse(ctx context.Context, g Geo) (*Address, error)
}
