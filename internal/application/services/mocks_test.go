package services_test

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/clinicfinder/backend/internal/domain/entities"
)

type MockPrimarySource struct {
	mock.Mock
	disabled bool
}

func (m *MockPrimarySource) Enabled() bool {
	return !m.disabled
}

func (m *MockPrimarySource) SearchNearby(ctx context.Context, req entities.NearbySearchRequest) ([]entities.PlaceCandidate, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.PlaceCandidate), args.Error(1)
}

func (m *MockPrimarySource) GetPlaceDetails(ctx context.Context, externalID string) (*entities.PlaceDetails, error) {
	args := m.Called(ctx, externalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.PlaceDetails), args.Error(1)
}

func (m *MockPrimarySource) GeocodeAddress(ctx context.Context, address string) ([]entities.GeocodeResult, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.GeocodeResult), args.Error(1)
}

func (m *MockPrimarySource) ReverseGeocode(ctx context.Context, point entities.LatLng) (*entities.GeocodeResult, error) {
	args := m.Called(ctx, point)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.GeocodeResult), args.Error(1)
}

func (m *MockPrimarySource) GetDirections(ctx context.Context, origin, destination entities.LatLng) (*entities.DirectionsResult, error) {
	args := m.Called(ctx, origin, destination)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.DirectionsResult), args.Error(1)
}

type MockSecondarySource struct {
	mock.Mock
	disabled bool
}

func (m *MockSecondarySource) Enabled() bool {
	return !m.disabled
}

func (m *MockSecondarySource) SearchNearby(ctx context.Context, req entities.NearbySearchRequest) ([]entities.PlaceCandidate, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.PlaceCandidate), args.Error(1)
}

func (m *MockSecondarySource) Geocode(ctx context.Context, address string) ([]entities.GeocodeResult, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.GeocodeResult), args.Error(1)
}

func (m *MockSecondarySource) ReverseGeocode(ctx context.Context, point entities.LatLng) ([]entities.GeocodeResult, error) {
	args := m.Called(ctx, point)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.GeocodeResult), args.Error(1)
}

// Update accepts either a stored row or a func(entities.Clinic) (*entities.Clinic, error)
func (m *MockSecondarySource) Update(ctx context.Context, clinic entities.Clinic) (*entities.Clinic, error) {
	args := m.Called(ctx, clinic)
	if fn, ok := args.Get(0).(func(entities.Clinic) (*entities.Clinic, error)); ok {
		return fn(clinic)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Clinic), args.Error(1)
}

func candidate(id, name string, lat, lng float64) entities.PlaceCandidate {
	return entities.PlaceCandidate{
		ExternalID:     id,
		Name:           name,
		Location:       &entities.LatLng{Lat: lat, Lng: lng},
		BusinessStatus: entities.BusinessStatusOperational,
		Types:          []string{"hospital"},
	}
}
