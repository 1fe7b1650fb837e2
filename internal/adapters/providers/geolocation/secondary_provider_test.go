package geolocation

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/clinicfinder/backend/internal/domain/entities"
	"github.com/clinicfinder/backend/pkg/config"
	apperrors "github.com/clinicfinder/backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSecondary(t *testing.T, handler http.HandlerFunc) *SecondaryProvider {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewSecondaryProviderWithClient(server.URL, server.Client(), nil)
}

func TestSecondaryProvider_DisabledWithoutPort(t *testing.T) {
	provider := NewSecondaryProvider(&config.SecondaryConfig{Host: "localhost"}, nil)
	assert.False(t, provider.Enabled())

	_, err := provider.SearchNearby(context.Background(), entities.NearbySearchRequest{})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConfiguration))

	_, err = provider.Update(context.Background(), entities.Clinic{GooglePlaceID: "g"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConfiguration))

	enabled := NewSecondaryProvider(&config.SecondaryConfig{Host: "localhost", Port: "8000"}, nil)
	assert.True(t, enabled.Enabled())
}

func TestSecondaryProvider_SearchNearby(t *testing.T) {
	var body nearbyRequest
	provider := newSecondary(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		io.WriteString(w, `{"places": [
			{"externalId": "s1", "name": "Kenyatta National Hospital", "formattedAddress": "Hospital Rd",
			 "location": {"lat": -1.3010, "lng": 36.8073}, "businessStatus": "OPERATIONAL", "types": ["hospital"]},
			{"id": "s2", "name": "Metropolitan", "address": "Upper Hill", "latitude": -1.29, "longitude": 36.81},
			{"name": "Nameless", "location": {"lat": -1.2}}
		]}`)
	})

	places, err := provider.SearchNearby(context.Background(), entities.NearbySearchRequest{
		Latitude: -1.2864, Longitude: 36.8172, RadiusMeters: 5000, Types: []string{"hospital"}, MaxResultCount: 20,
	})
	require.NoError(t, err)

	assert.Equal(t, 20, body.MaxResultCount)
	assert.Equal(t, []string{"hospital"}, body.IncludedTypes)

	require.Len(t, places, 3)
	assert.Equal(t, "s1", places[0].ExternalID)
	assert.Equal(t, entities.SourceSecondary, places[0].Source)
	assert.Equal(t, &entities.LatLng{Lat: -1.3010, Lng: 36.8073}, places[0].Location)

	assert.Equal(t, "s2", places[1].ExternalID)
	assert.Equal(t, "Upper Hill", places[1].FormattedAddress)
	require.NotNil(t, places[1].Location)
	assert.Equal(t, 36.81, places[1].Location.Lng)

	assert.Empty(t, places[2].ExternalID)
	assert.Nil(t, places[2].Location)
}

func TestSecondaryProvider_SearchNearbyRejectsGeocodeShape(t *testing.T) {
	provider := newSecondary(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"results": []}`)
	})

	_, err := provider.SearchNearby(context.Background(), entities.NearbySearchRequest{})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUpstream))
}

func TestSecondaryProvider_Geocode(t *testing.T) {
	var query searchQuery
	provider := newSecondary(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&query))
		io.WriteString(w, `{"results": [
			{"lat": -1.29, "lng": 36.82, "formattedAddress": "Upper Hill, Nairobi", "placeId": "u1"},
			{"formatted_address": "No coordinates"},
			{"location": {"latitude": -1.3, "longitude": 36.8}, "formatted_address": "Nested", "place_id": "n1"}
		]}`)
	})

	results, err := provider.Geocode(context.Background(), "  Upper Hill ")
	require.NoError(t, err)
	assert.Equal(t, "Upper Hill", query.Query)
	require.Len(t, results, 2)
	assert.Equal(t, entities.GeocodeResult{Lat: -1.29, Lng: 36.82, FormattedAddress: "Upper Hill, Nairobi", PlaceID: "u1"}, results[0])
	assert.Equal(t, "Nested", results[1].FormattedAddress)
	assert.Equal(t, "n1", results[1].PlaceID)
}

func TestSecondaryProvider_ReverseGeocodeSingleResult(t *testing.T) {
	var query searchQuery
	provider := newSecondary(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&query))
		io.WriteString(w, `{"result": {"lat": -1.2864, "lng": 36.8172, "formattedAddress": "CBD"}}`)
	})

	results, err := provider.ReverseGeocode(context.Background(), entities.LatLng{Lat: -1.2864, Lng: 36.8172})
	require.NoError(t, err)
	assert.Equal(t, "-1.286400,36.817200", query.Query)
	require.Len(t, results, 1)
	assert.Equal(t, "CBD", results[0].FormattedAddress)
}

func TestSecondaryProvider_UnknownShape(t *testing.T) {
	provider := newSecondary(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status": "ok"}`)
	})

	_, err := provider.Geocode(context.Background(), "Nairobi")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUpstream))
}

func TestSecondaryProvider_Update(t *testing.T) {
	sent := entities.Clinic{
		PlaceID:       7,
		GooglePlaceID: "g-7",
		Name:          "Aga Khan",
		Category:      entities.CategoryHospital,
		LastUpdated:   time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}

	t.Run("echoed row", func(t *testing.T) {
		provider := newSecondary(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/update", r.URL.Path)
			var got entities.Clinic
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			assert.Equal(t, "g-7", got.GooglePlaceID)
			got.Name = "Aga Khan University Hospital"
			json.NewEncoder(w).Encode(got)
		})

		stored, err := provider.Update(context.Background(), sent)
		require.NoError(t, err)
		assert.Equal(t, "Aga Khan University Hospital", stored.Name)
		assert.Equal(t, int64(7), stored.PlaceID)
	})

	t.Run("empty body", func(t *testing.T) {
		provider := newSecondary(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})

		stored, err := provider.Update(context.Background(), sent)
		require.NoError(t, err)
		assert.Equal(t, sent, *stored)
	})

	t.Run("acknowledgement body", func(t *testing.T) {
		provider := newSecondary(t, func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"status": "updated"}`)
		})

		stored, err := provider.Update(context.Background(), sent)
		require.NoError(t, err)
		assert.Equal(t, "g-7", stored.GooglePlaceID)
	})

	t.Run("server error", func(t *testing.T) {
		provider := newSecondary(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		})

		_, err := provider.Update(context.Background(), sent)
		require.Error(t, err)
		assert.Equal(t, http.StatusInternalServerError, apperrors.StatusOf(err))
	})
}
