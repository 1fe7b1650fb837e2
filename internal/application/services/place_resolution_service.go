package services

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/clinicfinder/backend/internal/domain/entities"
	"github.com/clinicfinder/backend/internal/domain/providers"
	"github.com/clinicfinder/backend/internal/domain/repositories"
	"github.com/clinicfinder/backend/internal/infrastructure/observability"
	apperrors "github.com/clinicfinder/backend/pkg/errors"
	"github.com/clinicfinder/backend/pkg/utils"
)

// primaryResultCap bounds how many primary entries lead a merged result
const primaryResultCap = 3

// PlaceResolutionDeps are the collaborators of PlaceResolutionService.
// Primary and Secondary may be nil or disabled.
type PlaceResolutionDeps struct {
	Primary   providers.PrimarySource
	Secondary providers.SecondarySource
	Repo      repositories.ClinicRepository
	IDs       repositories.PlaceIDAllocator
	Tasks     *TaskRunner
	Metrics   *observability.Metrics
	Now       func() time.Time
}

// PlaceResolutionService reconciles the primary and secondary place sources
// into one deduplicated set of clinics.
type PlaceResolutionService struct {
	primary   providers.PrimarySource
	secondary providers.SecondarySource
	repo      repositories.ClinicRepository
	ids       repositories.PlaceIDAllocator
	tasks     *TaskRunner
	metrics   *observability.Metrics
	now       func() time.Time
}

// NewPlaceResolutionService creates the engine. A MaxIDAllocator over Repo is
// used when IDs is nil.
func NewPlaceResolutionService(deps PlaceResolutionDeps) *PlaceResolutionService {
	s := &PlaceResolutionService{
		primary:   deps.Primary,
		secondary: deps.Secondary,
		repo:      deps.Repo,
		ids:       deps.IDs,
		tasks:     deps.Tasks,
		metrics:   deps.Metrics,
		now:       deps.Now,
	}
	if s.ids == nil {
		s.ids = NewMaxIDAllocator(deps.Repo)
	}
	if s.tasks == nil {
		s.tasks = NewTaskRunner(16)
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

func (s *PlaceResolutionService) primaryEnabled() bool {
	return s.primary != nil && s.primary.Enabled()
}

func (s *PlaceResolutionService) secondaryEnabled() bool {
	return s.secondary != nil && s.secondary.Enabled()
}

// SearchNearby queries the secondary source first, then the primary, and
// merges them with primary entries leading.
func (s *PlaceResolutionService) SearchNearby(ctx context.Context, req entities.NearbySearchRequest) (*entities.NearbySearchResult, error) {
	ctx, span := observability.StartSpan(ctx, "PlaceResolution.SearchNearby",
		attribute.Float64("lat", req.Latitude),
		attribute.Float64("lng", req.Longitude),
		attribute.Float64("radius_m", req.RadiusMeters),
	)
	defer span.End()

	logger := observability.LoggerFromContext(ctx)

	var secondary []entities.PlaceCandidate
	secondaryOK := false
	if s.secondaryEnabled() {
		places, err := s.secondary.SearchNearby(ctx, req)
		if err != nil {
			logger.Warn().Err(err).Msg("Secondary nearby search failed")
		} else {
			secondary, secondaryOK = places, true
		}
	}

	if req.SecondaryOnly && secondaryOK {
		return secondaryResult(secondary, req, false), nil
	}

	if !s.primaryEnabled() {
		if len(secondary) > 0 {
			return secondaryResult(secondary, req, false), nil
		}
		if !s.secondaryEnabled() {
			return nil, apperrors.NewConfigurationError("no place source is configured")
		}
		return nil, apperrors.NewNotFoundError("no results from either source")
	}

	primary, err := s.primary.SearchNearby(ctx, req)
	if err != nil {
		if len(secondary) > 0 {
			logger.Warn().Err(err).Int("secondary_count", len(secondary)).
				Msg("Primary nearby search failed, serving secondary results")
			return secondaryResult(secondary, req, true), nil
		}
		observability.RecordError(span, err)
		return nil, err
	}
	if len(primary) > primaryResultCap {
		primary = primary[:primaryResultCap]
	}

	switch {
	case len(primary) > 0 && len(secondary) > 0:
		novel := excludeKnownPlaces(primary, secondary)
		places := make([]entities.PlaceCandidate, 0, len(primary)+len(novel))
		places = append(places, primary...)
		places = append(places, novel...)

		logger.Debug().Int("primary_count", len(primary)).Int("secondary_count", len(novel)).
			Msg("Merged nearby results")
		return &entities.NearbySearchResult{
			Places: places,
			Meta: entities.SearchMeta{
				Source:         entities.MetaSourceMixed,
				Mixed:          true,
				PrimaryCount:   len(primary),
				SecondaryCount: len(novel),
				Query:          req,
			},
		}, nil
	case len(primary) > 0:
		return &entities.NearbySearchResult{
			Places: primary,
			Meta: entities.SearchMeta{
				Source:       entities.MetaSourcePrimary,
				PrimaryCount: len(primary),
				Query:        req,
			},
		}, nil
	case len(secondary) > 0:
		return secondaryResult(secondary, req, false), nil
	}

	return nil, apperrors.NewNotFoundError("no results from either source")
}

func secondaryResult(places []entities.PlaceCandidate, req entities.NearbySearchRequest, fallback bool) *entities.NearbySearchResult {
	return &entities.NearbySearchResult{
		Places: places,
		Meta: entities.SearchMeta{
			Source:         entities.MetaSourceSecondary,
			Fallback:       fallback,
			SecondaryCount: len(places),
			Query:          req,
		},
	}
}

// excludeKnownPlaces drops secondary candidates whose id or name already
// appears in primary. Distinct clinics sharing a generic name are merged.
func excludeKnownPlaces(primary, secondary []entities.PlaceCandidate) []entities.PlaceCandidate {
	ids := make(map[string]struct{}, len(primary))
	names := make(map[string]struct{}, len(primary))
	for _, p := range primary {
		if p.ExternalID != "" {
			ids[p.ExternalID] = struct{}{}
		}
		if key := nameKey(p.Name); key != "" {
			names[key] = struct{}{}
		}
	}

	novel := make([]entities.PlaceCandidate, 0, len(secondary))
	for _, c := range secondary {
		if _, dup := ids[c.ExternalID]; dup && c.ExternalID != "" {
			continue
		}
		if _, dup := names[nameKey(c.Name)]; dup && nameKey(c.Name) != "" {
			continue
		}
		novel = append(novel, c)
	}
	return novel
}

func nameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// GeocodeAddress resolves an address through both sources. Primary matches
// come first; secondary matches at the same coordinate or address are dropped.
func (s *PlaceResolutionService) GeocodeAddress(ctx context.Context, address string) ([]entities.GeocodeResult, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, apperrors.NewValidationError("address is required")
	}

	return s.resolveGeocode(ctx, "geocode",
		func(ctx context.Context) ([]entities.GeocodeResult, error) {
			return s.secondary.Geocode(ctx, address)
		},
		func(ctx context.Context) ([]entities.GeocodeResult, error) {
			return s.primary.GeocodeAddress(ctx, address)
		},
	)
}

// ReverseGeocode returns the best merged match for a coordinate
func (s *PlaceResolutionService) ReverseGeocode(ctx context.Context, point entities.LatLng) (*entities.GeocodeResult, error) {
	results, err := s.resolveGeocode(ctx, "reverse_geocode",
		func(ctx context.Context) ([]entities.GeocodeResult, error) {
			return s.secondary.ReverseGeocode(ctx, point)
		},
		func(ctx context.Context) ([]entities.GeocodeResult, error) {
			best, err := s.primary.ReverseGeocode(ctx, point)
			if err != nil || best == nil {
				return nil, err
			}
			return []entities.GeocodeResult{*best}, nil
		},
	)
	if err != nil {
		return nil, err
	}
	return &results[0], nil
}

type geocodeCall func(ctx context.Context) ([]entities.GeocodeResult, error)

// resolveGeocode applies the same source priority as SearchNearby. The
// returned slice is never empty when err is nil.
func (s *PlaceResolutionService) resolveGeocode(ctx context.Context, op string, secondaryCall, primaryCall geocodeCall) ([]entities.GeocodeResult, error) {
	logger := observability.LoggerFromContext(ctx).With().Str("operation", op).Logger()

	var secondary []entities.GeocodeResult
	if s.secondaryEnabled() {
		results, err := secondaryCall(ctx)
		if err != nil {
			logger.Warn().Err(err).Msg("Secondary geocode failed")
		} else {
			secondary = results
		}
	}

	if !s.primaryEnabled() {
		if len(secondary) > 0 {
			return secondary, nil
		}
		if !s.secondaryEnabled() {
			return nil, apperrors.NewConfigurationError("no geocoding source is configured")
		}
		return nil, apperrors.NewNotFoundError("no results from either source")
	}

	primary, err := primaryCall(ctx)
	if err != nil {
		if len(secondary) > 0 {
			logger.Warn().Err(err).Msg("Primary geocode failed, serving secondary results")
			return secondary, nil
		}
		return nil, err
	}

	merged := append(make([]entities.GeocodeResult, 0, len(primary)+len(secondary)), primary...)
	for _, r := range secondary {
		if !containsGeocode(primary, r) {
			merged = append(merged, r)
		}
	}
	if len(merged) == 0 {
		return nil, apperrors.NewNotFoundError("no results from either source")
	}
	return merged, nil
}

func containsGeocode(list []entities.GeocodeResult, r entities.GeocodeResult) bool {
	for _, p := range list {
		if utils.SameCoordinates(p.Lat, p.Lng, r.Lat, r.Lng) {
			return true
		}
		if p.FormattedAddress != "" && strings.EqualFold(strings.TrimSpace(p.FormattedAddress), strings.TrimSpace(r.FormattedAddress)) {
			return true
		}
	}
	return false
}

// GetDirections delegates to the primary source
func (s *PlaceResolutionService) GetDirections(ctx context.Context, origin, destination entities.LatLng) (*entities.DirectionsResult, error) {
	if !s.primaryEnabled() {
		return nil, apperrors.NewConfigurationError("directions require the primary place source")
	}
	return s.primary.GetDirections(ctx, origin, destination)
}

// GetPlaceDetails fetches expanded place fields and writes contact and details
// onto the persisted clinic in the background.
func (s *PlaceResolutionService) GetPlaceDetails(ctx context.Context, externalID string) (*entities.PlaceDetails, error) {
	if !s.primaryEnabled() {
		return nil, apperrors.NewConfigurationError("place details require the primary place source")
	}

	details, err := s.primary.GetPlaceDetails(ctx, externalID)
	if err != nil {
		return nil, err
	}

	update := entities.ClinicDetailsUpdate{
		GooglePlaceID: details.ID,
		Details:       details.Raw,
		LastUpdated:   s.now(),
	}
	if update.GooglePlaceID == "" {
		update.GooglePlaceID = strings.TrimSpace(externalID)
	}
	if details.PhoneNumber != "" {
		phone := details.PhoneNumber
		update.Contact = &phone
	}

	s.tasks.Go(ctx, "clinic_details_update", func(ctx context.Context) error {
		err := s.repo.UpdateClinicDetails(ctx, update)
		if apperrors.IsType(err, apperrors.ErrorTypeNotFound) {
			observability.LoggerFromContext(ctx).Debug().
				Str("google_place_id", update.GooglePlaceID).
				Msg("Clinic not persisted yet, skipping details update")
			return nil
		}
		return err
	})

	return details, nil
}
