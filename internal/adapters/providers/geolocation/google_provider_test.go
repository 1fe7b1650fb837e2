package geolocation

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/clinicfinder/backend/internal/adapters/cache"
	"github.com/clinicfinder/backend/internal/domain/entities"
	apperrors "github.com/clinicfinder/backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nearbyFixture = `{"places": [
	{"id": "p1", "displayName": {"text": "Nairobi Hospital"}, "formattedAddress": "Argwings Kodhek Rd",
	 "location": {"latitude": -1.2966, "longitude": 36.8065}, "rating": 4.1, "businessStatus": "OPERATIONAL",
	 "types": ["hospital", "health"]},
	{"id": "p2", "displayName": {"text": "Mater Hospital"}, "formattedAddress": "Dunga Rd",
	 "location": {"latitude": -1.3090, "longitude": 36.8370}, "businessStatus": "CLOSED_TEMPORARILY"},
	{"id": "p3", "displayName": {"text": "No Location Clinic"}, "formattedAddress": "Somewhere",
	 "location": {"latitude": -1.30}},
	{"id": "p4", "displayName": {"text": "Fourth"}, "location": {"latitude": 0, "longitude": 0}}
]}`

func newTestProvider(t *testing.T, handler http.HandlerFunc, mutate ...func(*GoogleOptions)) *GoogleProvider {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts := GoogleOptions{
		APIKey:        "test-key",
		PlacesURL:     server.URL + "/v1/places",
		GeocodeURL:    server.URL + "/geocode/json",
		DirectionsURL: server.URL + "/directions/json",
		HTTPClient:    server.Client(),
	}
	for _, m := range mutate {
		m(&opts)
	}
	return NewGoogleProviderWithOptions(opts)
}

func TestGoogleProvider_SearchNearby(t *testing.T) {
	var body nearbyRequest
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/places:searchNearby", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Goog-Api-Key"))
		assert.Equal(t, nearbyFieldMask, r.Header.Get("X-Goog-FieldMask"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		io.WriteString(w, nearbyFixture)
	})

	places, err := provider.SearchNearby(context.Background(), entities.NearbySearchRequest{
		Latitude:       -1.2864,
		Longitude:      36.8172,
		RadiusMeters:   5000,
		Types:          []string{"hospital"},
		MaxResultCount: 20,
		Ranking:        "distance",
	})
	require.NoError(t, err)

	assert.Equal(t, maxLiveResults, body.MaxResultCount, "live requests are capped")
	assert.Equal(t, "DISTANCE", body.RankPreference)
	assert.Equal(t, "KE", body.RegionCode)
	assert.Equal(t, "en", body.LanguageCode)
	assert.Equal(t, 5000.0, body.LocationRestriction.Circle.Radius)
	assert.Equal(t, -1.2864, body.LocationRestriction.Circle.Center.Latitude)

	require.Len(t, places, 3)
	assert.Equal(t, "p1", places[0].ExternalID)
	assert.Equal(t, "Nairobi Hospital", places[0].Name)
	require.NotNil(t, places[0].Location)
	assert.Equal(t, 36.8065, places[0].Location.Lng)
	assert.Equal(t, entities.SourcePrimary, places[0].Source)
	assert.Equal(t, 0.0, places[1].Rating)
	assert.Nil(t, places[2].Location, "a single coordinate is not a location")
}

func TestGoogleProvider_SearchNearbyDefaults(t *testing.T) {
	var body nearbyRequest
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		io.WriteString(w, `{}`)
	})

	places, err := provider.SearchNearby(context.Background(), entities.NearbySearchRequest{Latitude: 1, Longitude: 2})
	require.NoError(t, err)
	assert.Empty(t, places)
	assert.Equal(t, []string{"hospital"}, body.IncludedTypes)
	assert.Equal(t, 3, body.MaxResultCount)
	assert.Equal(t, float64(defaultRadiusMeters), body.LocationRestriction.Circle.Radius)
	assert.Empty(t, body.RankPreference)
}

func TestGoogleProvider_MissingKeyIsConfigurationError(t *testing.T) {
	var calls int32
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}, func(o *GoogleOptions) { o.APIKey = "" })

	assert.False(t, provider.Enabled())

	_, err := provider.SearchNearby(context.Background(), entities.NearbySearchRequest{})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConfiguration))

	_, err = provider.GeocodeAddress(context.Background(), "Nairobi")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConfiguration))

	_, err = provider.GetDirections(context.Background(), entities.LatLng{}, entities.LatLng{})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeConfiguration))

	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}

func TestGoogleProvider_UpstreamStatusIsCarried(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": "denied"}`, http.StatusForbidden)
	})

	_, err := provider.SearchNearby(context.Background(), entities.NearbySearchRequest{Latitude: 1, Longitude: 1})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUpstream))
	assert.Equal(t, http.StatusForbidden, apperrors.StatusOf(err))
}

func TestGoogleProvider_RetriesRateLimit(t *testing.T) {
	var calls int32
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		io.WriteString(w, nearbyFixture)
	}, func(o *GoogleOptions) { o.MaxRetries = 1 })

	places, err := provider.SearchNearby(context.Background(), entities.NearbySearchRequest{Latitude: 1, Longitude: 1})
	require.NoError(t, err)
	assert.Len(t, places, 3)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGoogleProvider_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}, func(o *GoogleOptions) { o.MaxRetries = 3 })

	_, err := provider.SearchNearby(context.Background(), entities.NearbySearchRequest{Latitude: 1, Longitude: 1})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, apperrors.StatusOf(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGoogleProvider_GeocodeAddress(t *testing.T) {
	var calls int32
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/geocode/json", r.URL.Path)
		assert.Equal(t, "Upper Hill, Nairobi", r.URL.Query().Get("address"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		io.WriteString(w, `{"status": "OK", "results": [
			{"formatted_address": "A", "place_id": "a", "geometry": {"location": {"lat": 1, "lng": 2}}},
			{"formatted_address": "B", "place_id": "b", "geometry": {"location": {"lat": 3, "lng": 4}}},
			{"formatted_address": "C", "place_id": "c", "geometry": {"location": {"lat": 5, "lng": 6}}},
			{"formatted_address": "D", "place_id": "d", "geometry": {"location": {"lat": 7, "lng": 8}}}
		]}`)
	}, func(o *GoogleOptions) { o.Cache = cache.NewMemoryAdapter() })

	results, err := provider.GeocodeAddress(context.Background(), "Upper Hill, Nairobi")
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, entities.GeocodeResult{Lat: 1, Lng: 2, FormattedAddress: "A", PlaceID: "a"}, results[0])

	// Cached on the second call.
	again, err := provider.GeocodeAddress(context.Background(), "upper hill, nairobi")
	require.NoError(t, err)
	assert.Equal(t, results, again)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGoogleProvider_GeocodeStatus(t *testing.T) {
	t.Run("zero results is empty, not an error", func(t *testing.T) {
		provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"status": "ZERO_RESULTS", "results": []}`)
		})

		results, err := provider.GeocodeAddress(context.Background(), "nowhere")
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("denied is an upstream error", func(t *testing.T) {
		provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"status": "REQUEST_DENIED", "error_message": "bad key"}`)
		})

		_, err := provider.GeocodeAddress(context.Background(), "Nairobi")
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUpstream))
		assert.Contains(t, err.Error(), "bad key")
	})
}

func TestGoogleProvider_ReverseGeocode(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "-1.286400,36.817200", r.URL.Query().Get("latlng"))
		io.WriteString(w, `{"status": "OK", "results": [
			{"formatted_address": "Kenyatta Ave", "place_id": "k", "geometry": {"location": {"lat": -1.2864, "lng": 36.8172}}},
			{"formatted_address": "Nairobi", "place_id": "n", "geometry": {"location": {"lat": -1.28, "lng": 36.81}}}
		]}`)
	})

	result, err := provider.ReverseGeocode(context.Background(), entities.LatLng{Lat: -1.2864, Lng: 36.8172})
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "Kenyatta Ave", result.FormattedAddress)
}

func TestGoogleProvider_GetDirections(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "-1.286400,36.817200", q.Get("origin"))
		assert.Equal(t, "-1.300000,36.800000", q.Get("destination"))
		io.WriteString(w, `{"status": "OK", "routes": [{
			"overview_polyline": {"points": "abc"},
			"legs": [{
				"distance": {"text": "3.1 km"}, "duration": {"text": "9 mins"},
				"start_address": "CBD", "end_address": "Upper Hill",
				"steps": [{"html_instructions": "Head <b>south</b>", "distance": {"text": "1 km"},
				           "duration": {"text": "3 mins"}, "polyline": {"points": "xy"}}]
			}]
		}]}`)
	})

	result, err := provider.GetDirections(context.Background(),
		entities.LatLng{Lat: -1.2864, Lng: 36.8172}, entities.LatLng{Lat: -1.3, Lng: 36.8})
	require.NoError(t, err)
	assert.Equal(t, "3.1 km", result.DistanceText)
	assert.Equal(t, "9 mins", result.DurationText)
	assert.Equal(t, "abc", result.Polyline)
	require.Len(t, result.Legs, 1)
	require.Len(t, result.Legs[0].Steps, 1)
	assert.Equal(t, "Head <b>south</b>", result.Legs[0].Steps[0].HTMLInstruction)
	assert.Equal(t, "xy", result.Legs[0].Steps[0].Polyline)
}

func TestGoogleProvider_GetDirectionsFailures(t *testing.T) {
	t.Run("no routes", func(t *testing.T) {
		provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"status": "OK", "routes": []}`)
		})
		_, err := provider.GetDirections(context.Background(), entities.LatLng{}, entities.LatLng{})
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	})

	t.Run("bad status", func(t *testing.T) {
		provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"status": "OVER_QUERY_LIMIT"}`)
		})
		_, err := provider.GetDirections(context.Background(), entities.LatLng{}, entities.LatLng{})
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUpstream))
	})
}

func TestGoogleProvider_GetPlaceDetails(t *testing.T) {
	provider := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/places/p1", r.URL.Path)
		assert.Equal(t, detailsFieldMask, r.Header.Get("X-Goog-FieldMask"))
		io.WriteString(w, `{"id": "p1", "displayName": {"text": "Nairobi Hospital"},
			"nationalPhoneNumber": "020 284 5000", "websiteUri": "https://example.org",
			"regularOpeningHours": {"weekdayDescriptions": ["Monday: Open 24 hours"]}}`)
	})

	details, err := provider.GetPlaceDetails(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Nairobi Hospital", details.Name)
	assert.Equal(t, "020 284 5000", details.PhoneNumber)
	assert.Equal(t, []string{"Monday: Open 24 hours"}, details.OpeningHours)
	assert.Contains(t, string(details.Raw), `"websiteUri"`)
}
