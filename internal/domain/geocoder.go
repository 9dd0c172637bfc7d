package domain

import "context"

// Geocoder resolves free-text queries to places and coordinates to addresses.
// A nil result with a nil error means no match.
type Geocoder interface {
	Forward(ctx context.Context, query string) (*Place, error)
	Reverse(ctx context.Context, lat, lon float64) (*ReversePlace, error)
}
