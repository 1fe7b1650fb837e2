package geolocation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/clinicfinder/backend/internal/domain/entities"
	"github.com/clinicfinder/backend/internal/domain/providers"
	"github.com/clinicfinder/backend/internal/infrastructure/observability"
	"github.com/clinicfinder/backend/pkg/config"
	apperrors "github.com/clinicfinder/backend/pkg/errors"
)

const (
	secondarySourceName       = "secondary"
	defaultSecondaryTimeout   = 30 * time.Second
	maxSecondaryResponseBytes = 4 << 20
)

// SecondaryProvider talks to the self-hosted place service. It exposes
// POST /search for nearby and geocode lookups and POST /update for writes.
type SecondaryProvider struct {
	baseURL    string
	httpClient *http.Client
	metrics    *observability.Metrics
}

var _ providers.SecondarySource = (*SecondaryProvider)(nil)

// NewSecondaryProvider creates the secondary source. It is disabled when no port is configured.
func NewSecondaryProvider(cfg *config.SecondaryConfig, metrics *observability.Metrics) *SecondaryProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultSecondaryTimeout
	}
	return NewSecondaryProviderWithClient(cfg.BaseURL(), &http.Client{Timeout: timeout}, metrics)
}

// NewSecondaryProviderWithClient points the provider at an explicit base URL
func NewSecondaryProviderWithClient(baseURL string, client *http.Client, metrics *observability.Metrics) *SecondaryProvider {
	if client == nil {
		client = &http.Client{Timeout: defaultSecondaryTimeout}
	}
	return &SecondaryProvider{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: client,
		metrics:    metrics,
	}
}

func (s *SecondaryProvider) Enabled() bool {
	return s.baseURL != ""
}

// SearchNearby sends the nearby request shape to /search. The caller's
// result count is forwarded as is.
func (s *SecondaryProvider) SearchNearby(ctx context.Context, req entities.NearbySearchRequest) (places []entities.PlaceCandidate, err error) {
	defer func(start time.Time) { observeCall(ctx, s.metrics, secondarySourceName, "search_nearby", start, err) }(time.Now())

	if err := s.requireEndpoint(); err != nil {
		return nil, err
	}

	body := nearbyRequest{
		IncludedTypes:  req.Types,
		MaxResultCount: req.MaxResultCount,
		RegionCode:     req.RegionCode,
		LanguageCode:   req.LanguageCode,
		RankPreference: strings.ToUpper(req.Ranking),
	}
	body.LocationRestriction.Circle.Center = latLngLiteral{Latitude: req.Latitude, Longitude: req.Longitude}
	body.LocationRestriction.Circle.Radius = req.RadiusMeters

	resp, err := s.search(ctx, body)
	if err != nil {
		return nil, err
	}
	places, err = resp.nearbyPlaces()
	if err != nil {
		return nil, err
	}

	observability.LoggerFromContext(ctx).Debug().
		Str("source", secondarySourceName).
		Int("returned", len(places)).
		Msg("Nearby search completed")
	return places, nil
}

// Geocode resolves an address through the unified /search endpoint
func (s *SecondaryProvider) Geocode(ctx context.Context, address string) (results []entities.GeocodeResult, err error) {
	defer func(start time.Time) { observeCall(ctx, s.metrics, secondarySourceName, "geocode", start, err) }(time.Now())

	if err := s.requireEndpoint(); err != nil {
		return nil, err
	}

	resp, err := s.search(ctx, searchQuery{Query: strings.TrimSpace(address)})
	if err != nil {
		return nil, err
	}
	return resp.geocodeResults()
}

// ReverseGeocode sends the coordinate as a "lat,lng" query
func (s *SecondaryProvider) ReverseGeocode(ctx context.Context, point entities.LatLng) (results []entities.GeocodeResult, err error) {
	defer func(start time.Time) { observeCall(ctx, s.metrics, secondarySourceName, "reverse_geocode", start, err) }(time.Now())

	if err := s.requireEndpoint(); err != nil {
		return nil, err
	}

	resp, err := s.search(ctx, searchQuery{Query: fmt.Sprintf("%f,%f", point.Lat, point.Lng)})
	if err != nil {
		return nil, err
	}
	return resp.geocodeResults()
}

// Update stores one clinic row. A reply without a row body counts as success
// and the sent record is returned.
func (s *SecondaryProvider) Update(ctx context.Context, clinic entities.Clinic) (stored *entities.Clinic, err error) {
	defer func(start time.Time) { observeCall(ctx, s.metrics, secondarySourceName, "update", start, err) }(time.Now())

	if err := s.requireEndpoint(); err != nil {
		return nil, err
	}

	raw, err := s.post(ctx, "update", "/update", clinic)
	if err != nil {
		return nil, err
	}
	return decodeUpdateResponse(raw, clinic)
}

func (s *SecondaryProvider) search(ctx context.Context, body interface{}) (searchResponse, error) {
	raw, err := s.post(ctx, "search", "/search", body)
	if err != nil {
		return searchResponse{}, err
	}
	return decodeSearchResponse(raw)
}

func (s *SecondaryProvider) post(ctx context.Context, op, path string, body interface{}) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to encode secondary "+op+" request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build secondary "+op+" request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewUpstreamError("secondary "+op+" request failed", 0, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxSecondaryResponseBytes))
	if err != nil {
		return nil, apperrors.NewUpstreamError("failed to read secondary "+op+" response", resp.StatusCode, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := strings.TrimSpace(string(raw))
		if len(snippet) > 512 {
			snippet = snippet[:512]
		}
		return nil, apperrors.NewUpstreamError(
			fmt.Sprintf("secondary %s returned status %d", op, resp.StatusCode),
			resp.StatusCode,
			fmt.Errorf("%s", snippet),
		)
	}
	return raw, nil
}

func (s *SecondaryProvider) requireEndpoint() error {
	if !s.Enabled() {
		return apperrors.NewConfigurationError("secondary place service endpoint is not configured")
	}
	return nil
}
