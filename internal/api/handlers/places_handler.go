package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/clinicfinder/backend/internal/application/services"
	"github.com/clinicfinder/backend/internal/domain/entities"
)

// PlaceResolver is the engine surface the places endpoints use
type PlaceResolver interface {
	SearchNearby(ctx context.Context, req entities.NearbySearchRequest) (*entities.NearbySearchResult, error)
	GeocodeAddress(ctx context.Context, address string) ([]entities.GeocodeResult, error)
	ReverseGeocode(ctx context.Context, point entities.LatLng) (*entities.GeocodeResult, error)
	GetPlaceDetails(ctx context.Context, externalID string) (*entities.PlaceDetails, error)
	PersistDiscovered(ctx context.Context, candidates []entities.PlaceCandidate, hint *entities.LatLng) ([]entities.NearbyClinic, error)
}

// NearbyDiscoverer runs the cache-then-live nearby flow
type NearbyDiscoverer interface {
	DiscoverNearby(ctx context.Context, req services.DiscoverNearbyRequest) (*services.DiscoverNearbyResult, error)
}

// CachedClinicReader reads persisted clinics around a point
type CachedClinicReader interface {
	GetCachedClinics(ctx context.Context, lat, lng, radiusKm float64, categories []string) ([]entities.NearbyClinic, error)
}

// PlacesHandler handles place discovery endpoints
type PlacesHandler struct {
	resolver        PlaceResolver
	discovery       NearbyDiscoverer
	cache           CachedClinicReader
	defaultRadiusKm float64
}

// NewPlacesHandler creates a new places handler
func NewPlacesHandler(resolver PlaceResolver, discovery NearbyDiscoverer, cache CachedClinicReader, defaultRadiusKm float64) *PlacesHandler {
	if defaultRadiusKm <= 0 {
		defaultRadiusKm = 5
	}
	return &PlacesHandler{
		resolver:        resolver,
		discovery:       discovery,
		cache:           cache,
		defaultRadiusKm: defaultRadiusKm,
	}
}

// Nearby handles GET /api/places/nearby
func (h *PlacesHandler) Nearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	lat, lng, ok := parseCoordinates(w, q.Get("lat"), q.Get("lng"))
	if !ok {
		return
	}
	radiusKm, ok := parseOptionalFloat(w, radiusParam(q), h.defaultRadiusKm, "radiusKm")
	if !ok {
		return
	}
	maxResults, err := parseOptionalInt(q.Get("maxResults"), 0)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid maxResults parameter")
		return
	}

	result, err := h.discovery.DiscoverNearby(r.Context(), services.DiscoverNearbyRequest{
		Lat:        lat,
		Lng:        lng,
		RadiusKm:   radiusKm,
		RadiusMode: q.Get("radiusMode"),
		Types:      splitList(q.Get("types")),
		Ranking:    q.Get("ranking"),
		MaxResults: maxResults,
		SkipCache:  parseBool(q.Get("skipCache")),
	})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"clinics": result.Clinics,
		"count":   len(result.Clinics),
		"debug":   result.Debug,
	})
}

// Cached handles GET /api/places/cached
func (h *PlacesHandler) Cached(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	lat, lng, ok := parseCoordinates(w, q.Get("lat"), q.Get("lng"))
	if !ok {
		return
	}
	radiusKm, ok := parseOptionalFloat(w, radiusParam(q), h.defaultRadiusKm, "radiusKm")
	if !ok {
		return
	}

	clinics, err := h.cache.GetCachedClinics(r.Context(), lat, lng, radiusKm, splitList(q.Get("types")))
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"clinics": clinics,
		"source":  entities.MetaSourceCache,
		"count":   len(clinics),
	})
}

// Search handles POST /api/places/search and returns the merged result with its meta
func (h *PlacesHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req entities.NearbySearchRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if !validCoordinate(req.Latitude, req.Longitude) {
		respondWithError(w, http.StatusBadRequest, "latitude and longitude are out of range")
		return
	}

	result, err := h.resolver.SearchNearby(r.Context(), req)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}

// Details handles GET /api/places/details/{placeId}
func (h *PlacesHandler) Details(w http.ResponseWriter, r *http.Request) {
	placeID := strings.TrimSpace(r.PathValue("placeId"))
	if placeID == "" {
		respondWithError(w, http.StatusBadRequest, "place ID is required")
		return
	}

	details, err := h.resolver.GetPlaceDetails(r.Context(), placeID)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, details)
}

type geocodeRequest struct {
	Address string   `json:"address"`
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
}

// Geocode handles POST /api/places/geocode. An address runs a forward lookup,
// a lat/lng pair a reverse one.
func (h *PlacesHandler) Geocode(w http.ResponseWriter, r *http.Request) {
	var req geocodeRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	if address := strings.TrimSpace(req.Address); address != "" {
		results, err := h.resolver.GeocodeAddress(r.Context(), address)
		if err != nil {
			respondWithAppError(w, r, err)
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]interface{}{
			"mode":    "forward",
			"results": results,
			"result":  results[0],
		})
		return
	}

	if req.Lat == nil || req.Lng == nil {
		respondWithError(w, http.StatusBadRequest, "address or lat/lng is required")
		return
	}
	if !validCoordinate(*req.Lat, *req.Lng) {
		respondWithError(w, http.StatusBadRequest, "lat and lng are out of range")
		return
	}

	result, err := h.resolver.ReverseGeocode(r.Context(), entities.LatLng{Lat: *req.Lat, Lng: *req.Lng})
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"mode":   "reverse",
		"result": result,
	})
}

type persistRequest struct {
	Places []entities.PlaceCandidate `json:"places"`
	Lat    *float64                  `json:"lat"`
	Lng    *float64                  `json:"lng"`
}

// Persist handles POST /api/places/persist
func (h *PlacesHandler) Persist(w http.ResponseWriter, r *http.Request) {
	var req persistRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}

	var hint *entities.LatLng
	if req.Lat != nil && req.Lng != nil {
		hint = &entities.LatLng{Lat: *req.Lat, Lng: *req.Lng}
	}

	clinics, err := h.resolver.PersistDiscovered(r.Context(), req.Places, hint)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"clinics": clinics,
		"count":   len(clinics),
	})
}

func parseCoordinates(w http.ResponseWriter, latStr, lngStr string) (float64, float64, bool) {
	latStr, lngStr = strings.TrimSpace(latStr), strings.TrimSpace(lngStr)
	if latStr == "" || lngStr == "" {
		respondWithError(w, http.StatusBadRequest, "lat and lng parameters are required")
		return 0, 0, false
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid lat parameter")
		return 0, 0, false
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid lng parameter")
		return 0, 0, false
	}
	if !validCoordinate(lat, lng) {
		respondWithError(w, http.StatusBadRequest, "lat and lng are out of range")
		return 0, 0, false
	}
	return lat, lng, true
}

func parseOptionalFloat(w http.ResponseWriter, value string, fallback float64, name string) (float64, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, true
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f <= 0 {
		respondWithError(w, http.StatusBadRequest, "invalid "+name+" parameter")
		return 0, false
	}
	return f, true
}

func parseOptionalInt(value string, fallback int) (int, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, nil
	}
	return strconv.Atoi(value)
}

func parseBool(value string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(value))
	return err == nil && b
}

// radiusParam reads radiusKm, accepting the shorter radius as an alias
func radiusParam(q url.Values) string {
	if v := q.Get("radiusKm"); v != "" {
		return v
	}
	return q.Get("radius")
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func validCoordinate(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
