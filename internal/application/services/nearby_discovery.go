package services

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/clinicfinder/backend/internal/domain/entities"
	"github.com/clinicfinder/backend/internal/infrastructure/observability"
)

// Radius modes sent by the map client
const (
	RadiusModePreset = "preset"
	RadiusModeDrag   = "drag"
)

const (
	defaultDiscoveryRadiusKm   = 5.0
	defaultDiscoveryMaxResults = 5
	minDiscoveryRadiusKm       = 0.1
)

// DiscoverNearbyRequest is a nearby lookup from the map client
type DiscoverNearbyRequest struct {
	Lat        float64
	Lng        float64
	RadiusKm   float64
	RadiusMode string
	Types      []string
	Ranking    string
	MaxResults int
	SkipCache  bool
}

// DiscoveryDebug describes how a discovery result was produced
type DiscoveryDebug struct {
	Source       string               `json:"source"`
	PlaceCount   int                  `json:"placeCount"`
	Ranking      string               `json:"ranking"`
	Meta         *entities.SearchMeta `json:"meta,omitempty"`
	PersistError string               `json:"persistError,omitempty"`
}

// DiscoverNearbyResult holds clinics nearest first
type DiscoverNearbyResult struct {
	Clinics []entities.NearbyClinic `json:"clinics"`
	Debug   DiscoveryDebug          `json:"debug"`
}

// NearbyDiscoveryService serves nearby lookups from persisted clinics when
// enough are cached, otherwise from a live search that is then persisted.
type NearbyDiscoveryService struct {
	resolver  *PlaceResolutionService
	cache     *ClinicCacheReader
	minCached int
	metrics   *observability.Metrics
}

func NewNearbyDiscoveryService(resolver *PlaceResolutionService, cache *ClinicCacheReader, minCached int, metrics *observability.Metrics) *NearbyDiscoveryService {
	if minCached < 1 {
		minCached = 1
	}
	return &NearbyDiscoveryService{
		resolver:  resolver,
		cache:     cache,
		minCached: minCached,
		metrics:   metrics,
	}
}

// DiscoverNearby runs a nearby lookup. Dragged radii and explicit skips always
// go live. A failed persist still returns the live candidates, unsaved.
func (s *NearbyDiscoveryService) DiscoverNearby(ctx context.Context, req DiscoverNearbyRequest) (*DiscoverNearbyResult, error) {
	logger := observability.LoggerFromContext(ctx)
	req = normalizeDiscovery(req)

	if !req.SkipCache && req.RadiusMode != RadiusModeDrag {
		cached, err := s.cache.GetCachedClinics(ctx, req.Lat, req.Lng, req.RadiusKm, req.Types)
		switch {
		case err != nil:
			logger.Warn().Err(err).Msg("Cached clinic lookup failed, searching live")
			observability.RecordCacheMiss(ctx, s.metrics, "clinics")
		case len(cached) >= s.minCached:
			observability.RecordCacheHit(ctx, s.metrics, "clinics")
			return &DiscoverNearbyResult{
				Clinics: cached,
				Debug: DiscoveryDebug{
					Source:     entities.MetaSourceCache,
					PlaceCount: len(cached),
					Ranking:    req.Ranking,
				},
			}, nil
		default:
			observability.RecordCacheMiss(ctx, s.metrics, "clinics")
		}
	}

	search, err := s.resolver.SearchNearby(ctx, entities.NearbySearchRequest{
		Latitude:       req.Lat,
		Longitude:      req.Lng,
		RadiusMeters:   math.Max(minDiscoveryRadiusKm, req.RadiusKm) * 1000,
		Types:          req.Types,
		MaxResultCount: req.MaxResults,
		Ranking:        req.Ranking,
	})
	if err != nil {
		return nil, err
	}

	debug := DiscoveryDebug{
		Source:     search.Meta.Source,
		PlaceCount: len(search.Places),
		Ranking:    req.Ranking,
		Meta:       &search.Meta,
	}

	hint := &entities.LatLng{Lat: req.Lat, Lng: req.Lng}
	clinics, err := s.resolver.PersistDiscovered(ctx, search.Places, hint)
	if err != nil {
		logger.Error().Err(err).Int("places", len(search.Places)).Msg("Failed to persist discovered places")
		debug.PersistError = err.Error()
		clinics = unsavedClinics(search.Places, hint, s.resolver.now())
	}

	return &DiscoverNearbyResult{Clinics: clinics, Debug: debug}, nil
}

func normalizeDiscovery(req DiscoverNearbyRequest) DiscoverNearbyRequest {
	if req.RadiusKm <= 0 {
		req.RadiusKm = defaultDiscoveryRadiusKm
	}
	if req.MaxResults <= 0 {
		req.MaxResults = defaultDiscoveryMaxResults
	}
	req.Ranking = strings.ToUpper(strings.TrimSpace(req.Ranking))
	if req.Ranking != entities.RankingPopularity {
		req.Ranking = entities.RankingDistance
	}
	req.RadiusMode = strings.ToLower(strings.TrimSpace(req.RadiusMode))
	return req
}

func unsavedClinics(places []entities.PlaceCandidate, hint *entities.LatLng, now time.Time) []entities.NearbyClinic {
	rows := make([]entities.Clinic, 0, len(places))
	for _, p := range places {
		if p.Location == nil {
			continue
		}
		rows = append(rows, p.ToClinic(0, now))
	}
	return withDistance(rows, hint)
}
