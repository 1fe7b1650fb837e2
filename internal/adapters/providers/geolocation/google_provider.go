package geolocation

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/clinicfinder/backend/internal/domain/entities"
	"github.com/clinicfinder/backend/internal/domain/providers"
	"github.com/clinicfinder/backend/internal/infrastructure/observability"
	"github.com/clinicfinder/backend/pkg/config"
	apperrors "github.com/clinicfinder/backend/pkg/errors"
	"github.com/clinicfinder/backend/pkg/retry"
)

const (
	googlePlacesURL     = "https://places.googleapis.com/v1/places"
	googleGeocodeURL    = "https://maps.googleapis.com/maps/api/geocode/json"
	googleDirectionsURL = "https://maps.googleapis.com/maps/api/directions/json"

	defaultGeocodeCacheTTL = 60 * 60 * 24 * 30
	defaultReverseCacheTTL = 60 * 60 * 24 * 30
	defaultHTTPTimeout     = 8 * time.Second

	defaultRadiusMeters = 5000
	defaultRegionCode   = "KE"
	defaultLanguageCode = "en"

	// maxLiveResults bounds every live nearby request regardless of what the caller asks for.
	maxLiveResults    = 3
	maxGeocodeResults = 3

	nearbyFieldMask = "places.displayName,places.formattedAddress,places.location,places.rating," +
		"places.userRatingCount,places.businessStatus,places.id,places.types"
	detailsFieldMask = "id,displayName,formattedAddress,location,rating,userRatingCount,businessStatus," +
		"types,websiteUri,nationalPhoneNumber,internationalPhoneNumber,regularOpeningHours"

	sourceName = "primary"
)

// GoogleOptions configures a GoogleProvider. Empty URLs fall back to the public endpoints.
type GoogleOptions struct {
	APIKey        string
	PlacesURL     string
	GeocodeURL    string
	DirectionsURL string
	RegionCode    string
	LanguageCode  string
	MaxRetries    int
	HTTPClient    *http.Client
	Cache         providers.CacheProvider
	Metrics       *observability.Metrics
}

// GoogleProvider is the primary place source backed by the Google Places,
// Geocoding and Directions APIs.
type GoogleProvider struct {
	apiKey        string
	placesURL     string
	geocodeURL    string
	directionsURL string
	regionCode    string
	languageCode  string
	maxRetries    int
	httpClient    *http.Client
	cache         providers.CacheProvider
	metrics       *observability.Metrics
}

var _ providers.PrimarySource = (*GoogleProvider)(nil)

// NewGoogleProvider creates the primary source from configuration
func NewGoogleProvider(cfg *config.PlacesConfig, cache providers.CacheProvider, metrics *observability.Metrics) *GoogleProvider {
	return NewGoogleProviderWithOptions(GoogleOptions{
		APIKey:        cfg.APIKey,
		PlacesURL:     cfg.PlacesURL,
		GeocodeURL:    cfg.GeocodeURL,
		DirectionsURL: cfg.DirectionsURL,
		RegionCode:    cfg.RegionCode,
		LanguageCode:  cfg.LanguageCode,
		MaxRetries:    cfg.MaxRetries,
		HTTPClient:    &http.Client{Timeout: cfg.Timeout},
		Cache:         cache,
		Metrics:       metrics,
	})
}

// NewGoogleProviderWithOptions allows overriding URLs and the HTTP client (used for tests).
func NewGoogleProviderWithOptions(opts GoogleOptions) *GoogleProvider {
	g := &GoogleProvider{
		apiKey:        strings.TrimSpace(opts.APIKey),
		placesURL:     strings.TrimRight(orDefault(opts.PlacesURL, googlePlacesURL), "/"),
		geocodeURL:    orDefault(opts.GeocodeURL, googleGeocodeURL),
		directionsURL: orDefault(opts.DirectionsURL, googleDirectionsURL),
		regionCode:    orDefault(opts.RegionCode, defaultRegionCode),
		languageCode:  orDefault(opts.LanguageCode, defaultLanguageCode),
		maxRetries:    opts.MaxRetries,
		httpClient:    opts.HTTPClient,
		cache:         opts.Cache,
		metrics:       opts.Metrics,
	}
	if g.httpClient == nil || g.httpClient.Timeout == 0 {
		g.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return g
}

// Enabled reports whether an API key is configured
func (g *GoogleProvider) Enabled() bool {
	return g.apiKey != ""
}

// SearchNearby finds places around a point. At most three places are requested.
func (g *GoogleProvider) SearchNearby(ctx context.Context, req entities.NearbySearchRequest) (places []entities.PlaceCandidate, err error) {
	defer g.observe(ctx, "search_nearby", time.Now(), &err)

	if err := g.requireKey(); err != nil {
		return nil, err
	}

	body := nearbyRequest{
		IncludedTypes:  req.Types,
		MaxResultCount: liveResultCount(req.MaxResultCount),
		RegionCode:     orDefault(req.RegionCode, g.regionCode),
		LanguageCode:   orDefault(req.LanguageCode, g.languageCode),
		RankPreference: strings.ToUpper(req.Ranking),
	}
	if len(body.IncludedTypes) == 0 {
		body.IncludedTypes = []string{string(entities.CategoryHospital)}
	}
	body.LocationRestriction.Circle.Center = latLngLiteral{Latitude: req.Latitude, Longitude: req.Longitude}
	body.LocationRestriction.Circle.Radius = req.RadiusMeters
	if body.LocationRestriction.Circle.Radius <= 0 {
		body.LocationRestriction.Circle.Radius = defaultRadiusMeters
	}

	var resp nearbyResponse
	if err := g.do(ctx, "places search", http.MethodPost, g.placesURL+":searchNearby", body, nearbyFieldMask, &resp); err != nil {
		return nil, err
	}

	places = make([]entities.PlaceCandidate, 0, len(resp.Places))
	for _, p := range resp.Places {
		if len(places) == maxLiveResults {
			break
		}
		places = append(places, p.candidate())
	}

	observability.LoggerFromContext(ctx).Debug().
		Str("source", sourceName).
		Int("requested", body.MaxResultCount).
		Int("returned", len(places)).
		Msg("Nearby search completed")
	return places, nil
}

// GetPlaceDetails fetches the expanded fields of one place
func (g *GoogleProvider) GetPlaceDetails(ctx context.Context, externalID string) (details *entities.PlaceDetails, err error) {
	defer g.observe(ctx, "place_details", time.Now(), &err)

	if err := g.requireKey(); err != nil {
		return nil, err
	}
	id := strings.TrimSpace(externalID)
	if id == "" {
		return nil, apperrors.NewValidationError("place id is required")
	}

	var raw json.RawMessage
	if err := g.do(ctx, "place details", http.MethodGet, g.placesURL+"/"+url.PathEscape(id), nil, detailsFieldMask, &raw); err != nil {
		return nil, err
	}

	var payload placeDetailsResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, apperrors.NewUpstreamError("malformed place details response", 0, err)
	}

	details = payload.details()
	details.Raw = rawOrNull(raw)
	return details, nil
}

// GeocodeAddress converts an address to at most three matches
func (g *GoogleProvider) GeocodeAddress(ctx context.Context, address string) (results []entities.GeocodeResult, err error) {
	defer g.observe(ctx, "geocode", time.Now(), &err)

	if err := g.requireKey(); err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(address)
	if trimmed == "" {
		return nil, apperrors.NewValidationError("address is required")
	}

	cacheKey := "geo:v3:geocode:" + hashKey(strings.ToLower(trimmed))
	if cached, ok := g.cachedGeocode(ctx, cacheKey); ok {
		return cached, nil
	}

	resp, err := g.doGeocodeRequest(ctx, url.Values{"address": []string{trimmed}})
	if err != nil {
		return nil, err
	}

	results = make([]entities.GeocodeResult, 0, maxGeocodeResults)
	for _, r := range resp.Results {
		if len(results) == maxGeocodeResults {
			break
		}
		results = append(results, r.result())
	}

	if len(results) > 0 {
		g.storeGeocode(ctx, cacheKey, results, defaultGeocodeCacheTTL)
	}
	return results, nil
}

// ReverseGeocode returns the best match for a coordinate, or nil when there is none
func (g *GoogleProvider) ReverseGeocode(ctx context.Context, point entities.LatLng) (result *entities.GeocodeResult, err error) {
	defer g.observe(ctx, "reverse_geocode", time.Now(), &err)

	if err := g.requireKey(); err != nil {
		return nil, err
	}

	cacheKey := "geo:v3:reverse:" + hashKey(fmt.Sprintf("%.5f,%.5f", point.Lat, point.Lng))
	if cached, ok := g.cachedGeocode(ctx, cacheKey); ok && len(cached) > 0 {
		return &cached[0], nil
	}

	resp, err := g.doGeocodeRequest(ctx, url.Values{"latlng": []string{fmt.Sprintf("%f,%f", point.Lat, point.Lng)}})
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}

	best := resp.Results[0].result()
	g.storeGeocode(ctx, cacheKey, []entities.GeocodeResult{best}, defaultReverseCacheTTL)
	return &best, nil
}

// GetDirections returns the first route between two points
func (g *GoogleProvider) GetDirections(ctx context.Context, origin, destination entities.LatLng) (result *entities.DirectionsResult, err error) {
	defer g.observe(ctx, "directions", time.Now(), &err)

	if err := g.requireKey(); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("origin", fmt.Sprintf("%f,%f", origin.Lat, origin.Lng))
	params.Set("destination", fmt.Sprintf("%f,%f", destination.Lat, destination.Lng))
	params.Set("mode", "driving")
	params.Set("key", g.apiKey)

	var resp directionsResponse
	if err := g.do(ctx, "directions", http.MethodGet, g.directionsURL+"?"+params.Encode(), nil, "", &resp); err != nil {
		return nil, err
	}

	switch {
	case resp.Status == "ZERO_RESULTS" || resp.Status == "NOT_FOUND":
		return nil, apperrors.NewNotFoundError("no route between the given points")
	case resp.Status != "OK":
		return nil, statusError("directions", resp.Status, resp.ErrorMessage)
	case len(resp.Routes) == 0:
		return nil, apperrors.NewNotFoundError("no route between the given points")
	}

	return resp.Routes[0].result(), nil
}

func (g *GoogleProvider) doGeocodeRequest(ctx context.Context, params url.Values) (*geocodeResponse, error) {
	params.Set("key", g.apiKey)

	var resp geocodeResponse
	if err := g.do(ctx, "geocode", http.MethodGet, g.geocodeURL+"?"+params.Encode(), nil, "", &resp); err != nil {
		return nil, err
	}

	switch resp.Status {
	case "OK":
		return &resp, nil
	case "ZERO_RESULTS":
		resp.Results = nil
		return &resp, nil
	default:
		return nil, statusError("geocode", resp.Status, resp.ErrorMessage)
	}
}

// do sends one JSON request, retrying only rate-limit responses
func (g *GoogleProvider) do(ctx context.Context, op, method, reqURL string, body interface{}, fieldMask string, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return apperrors.NewInternalError("failed to encode "+op+" request", err)
		}
	}

	cfg := retry.UpstreamConfig(g.maxRetries + 1)
	cfg.ShouldRetry = retryableStatus
	cfg.OnRetry = func(attempt int, err error, nextDelay time.Duration) {
		observability.LoggerFromContext(ctx).Warn().Err(err).
			Str("source", sourceName).Str("operation", op).
			Int("attempt", attempt).Dur("next_delay", nextDelay).
			Msg("Place source rate limited, retrying")
	}

	return retry.Do(ctx, cfg, func() error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
		if err != nil {
			return apperrors.NewInternalError("failed to build "+op+" request", err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if fieldMask != "" {
			req.Header.Set("X-Goog-Api-Key", g.apiKey)
			req.Header.Set("X-Goog-FieldMask", fieldMask)
		}

		resp, err := g.httpClient.Do(req)
		if err != nil {
			return apperrors.NewUpstreamError(op+" request failed", 0, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return apperrors.NewUpstreamError(
				fmt.Sprintf("%s request returned status %d", op, resp.StatusCode),
				resp.StatusCode,
				fmt.Errorf("%s", strings.TrimSpace(string(snippet))),
			)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return apperrors.NewUpstreamError("failed to decode "+op+" response", resp.StatusCode, err)
		}
		return nil
	})
}

func (g *GoogleProvider) requireKey() error {
	if g.apiKey == "" {
		return apperrors.NewConfigurationError("google maps api key is not configured")
	}
	return nil
}

func (g *GoogleProvider) cachedGeocode(ctx context.Context, key string) ([]entities.GeocodeResult, bool) {
	if g.cache == nil {
		return nil, false
	}
	cached, err := g.cache.Get(ctx, key)
	if err != nil || len(cached) == 0 {
		observability.RecordCacheMiss(ctx, g.metrics, "geocode")
		return nil, false
	}
	var results []entities.GeocodeResult
	if err := json.Unmarshal(cached, &results); err != nil || len(results) == 0 {
		observability.RecordCacheMiss(ctx, g.metrics, "geocode")
		return nil, false
	}
	observability.RecordCacheHit(ctx, g.metrics, "geocode")
	return results, true
}

func (g *GoogleProvider) storeGeocode(ctx context.Context, key string, results []entities.GeocodeResult, ttl int) {
	if g.cache == nil {
		return
	}
	payload, err := json.Marshal(results)
	if err != nil {
		return
	}
	if err := g.cache.Set(ctx, key, payload, ttl); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("Failed to cache geocode result")
	}
}

func (g *GoogleProvider) observe(ctx context.Context, op string, start time.Time, err *error) {
	observeCall(ctx, g.metrics, sourceName, op, start, *err)
}

// observeCall records one source call and logs its outcome
func observeCall(ctx context.Context, metrics *observability.Metrics, source, op string, start time.Time, err error) {
	elapsed := time.Since(start)
	observability.RecordSourceCall(ctx, metrics, source, op, err, elapsed)

	logger := observability.LoggerFromContext(ctx)
	if err != nil {
		logger.Warn().Err(err).
			Str("source", source).Str("operation", op).
			Dur("duration", elapsed).
			Msg("Place source call failed")
		return
	}
	logger.Debug().
		Str("source", source).Str("operation", op).
		Dur("duration", elapsed).
		Msg("Place source call completed")
}

func retryableStatus(err error) bool {
	switch apperrors.StatusOf(err) {
	case http.StatusTooManyRequests, http.StatusServiceUnavailable:
		return true
	}
	return false
}

func statusError(op, status, message string) error {
	msg := fmt.Sprintf("%s request failed: %s", op, status)
	if message != "" {
		msg += " - " + message
	}
	return apperrors.NewUpstreamError(msg, 0, nil)
}

func liveResultCount(requested int) int {
	if requested <= 0 || requested > maxLiveResults {
		return maxLiveResults
	}
	return requested
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func hashKey(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
