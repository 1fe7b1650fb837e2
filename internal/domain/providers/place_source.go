package providers

import (
	"context"

	"github.com/clinicfinder/backend/internal/domain/entities"
)

// PrimarySource is the authoritative, rate-limited places provider
type PrimarySource interface {
	// Enabled reports whether a credential is configured
	Enabled() bool

	// SearchNearby finds places around a point
	SearchNearby(ctx context.Context, req entities.NearbySearchRequest) ([]entities.PlaceCandidate, error)

	// GetPlaceDetails fetches expanded fields of one place
	GetPlaceDetails(ctx context.Context, externalID string) (*entities.PlaceDetails, error)

	// GeocodeAddress converts an address to at most three matches
	GeocodeAddress(ctx context.Context, address string) ([]entities.GeocodeResult, error)

	// ReverseGeocode returns the best match for a coordinate
	ReverseGeocode(ctx context.Context, point entities.LatLng) (*entities.GeocodeResult, error)

	// GetDirections returns the first route between two points
	GetDirections(ctx context.Context, origin, destination entities.LatLng) (*entities.DirectionsResult, error)
}

// SecondarySource is the local fallback place service
type SecondarySource interface {
	// Enabled reports whether the service endpoint is configured
	Enabled() bool

	// SearchNearby finds places around a point
	SearchNearby(ctx context.Context, req entities.NearbySearchRequest) ([]entities.PlaceCandidate, error)

	// Geocode resolves a free-form address
	Geocode(ctx context.Context, address string) ([]entities.GeocodeResult, error)

	// ReverseGeocode resolves a coordinate
	ReverseGeocode(ctx context.Context, point entities.LatLng) ([]entities.GeocodeResult, error)

	// Update upserts one clinic row and returns the stored row
	Update(ctx context.Context, clinic entities.Clinic) (*entities.Clinic, error)
}
