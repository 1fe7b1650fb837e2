package geolocation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/clinicfinder/backend/internal/domain/entities"
	apperrors "github.com/clinicfinder/backend/pkg/errors"
)

// responseKind tags which shape a secondary /search reply carried
type responseKind int

const (
	kindPlaces responseKind = iota + 1
	kindResults
	kindResult
)

func (k responseKind) String() string {
	switch k {
	case kindPlaces:
		return "places"
	case kindResults:
		return "results"
	case kindResult:
		return "result"
	}
	return "unknown"
}

// searchResponse is the validated form of a /search reply. Exactly one of
// places or results is meaningful, selected by kind.
type searchResponse struct {
	kind    responseKind
	places  []entities.PlaceCandidate
	results []entities.GeocodeResult
}

type searchEnvelope struct {
	Places  *[]secondaryPlace   `json:"places"`
	Results *[]secondaryGeocode `json:"results"`
	Result  *secondaryGeocode   `json:"result"`
}

type secondaryPoint struct {
	Lat       *float64 `json:"lat"`
	Lng       *float64 `json:"lng"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (p *secondaryPoint) latLng() *entities.LatLng {
	if p == nil {
		return nil
	}
	lat, lng := firstFloat(p.Lat, p.Latitude), firstFloat(p.Lng, p.Longitude)
	if lat == nil || lng == nil {
		return nil
	}
	return &entities.LatLng{Lat: *lat, Lng: *lng}
}

type secondaryPlace struct {
	ExternalID       string          `json:"externalId"`
	ID               string          `json:"id"`
	GooglePlaceID    string          `json:"google_place_id"`
	Name             string          `json:"name"`
	FormattedAddress string          `json:"formattedAddress"`
	Address          string          `json:"address"`
	Location         *secondaryPoint `json:"location"`
	Latitude         *float64        `json:"latitude"`
	Longitude        *float64        `json:"longitude"`
	Rating           float64         `json:"rating"`
	BusinessStatus   string          `json:"businessStatus"`
	Types            []string        `json:"types"`
}

func (p secondaryPlace) candidate() entities.PlaceCandidate {
	location := p.Location.latLng()
	if location == nil && p.Latitude != nil && p.Longitude != nil {
		location = &entities.LatLng{Lat: *p.Latitude, Lng: *p.Longitude}
	}
	return entities.PlaceCandidate{
		ExternalID:       firstString(p.ExternalID, p.ID, p.GooglePlaceID),
		Name:             p.Name,
		FormattedAddress: firstString(p.FormattedAddress, p.Address),
		Location:         location,
		Rating:           p.Rating,
		BusinessStatus:   p.BusinessStatus,
		Types:            p.Types,
		Source:           entities.SourceSecondary,
	}
}

type secondaryGeocode struct {
	secondaryPoint
	Location              *secondaryPoint `json:"location"`
	FormattedAddress      string          `json:"formattedAddress"`
	FormattedAddressSnake string          `json:"formatted_address"`
	PlaceID               string          `json:"placeId"`
	PlaceIDSnake          string          `json:"place_id"`
	Name                  string          `json:"name"`
}

// result returns false when the entry has no usable coordinate
func (g secondaryGeocode) result() (entities.GeocodeResult, bool) {
	point := g.Location.latLng()
	if point == nil {
		point = g.secondaryPoint.latLng()
	}
	if point == nil {
		return entities.GeocodeResult{}, false
	}
	return entities.GeocodeResult{
		Lat:              point.Lat,
		Lng:              point.Lng,
		FormattedAddress: firstString(g.FormattedAddress, g.FormattedAddressSnake),
		PlaceID:          firstString(g.PlaceID, g.PlaceIDSnake),
		Name:             g.Name,
	}, true
}

// decodeSearchResponse validates a /search body into one of the known shapes
func decodeSearchResponse(raw []byte) (searchResponse, error) {
	var env searchEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return searchResponse{}, apperrors.NewUpstreamError("malformed secondary search response", 0, err)
	}

	switch {
	case env.Places != nil:
		out := searchResponse{kind: kindPlaces, places: make([]entities.PlaceCandidate, 0, len(*env.Places))}
		for _, p := range *env.Places {
			out.places = append(out.places, p.candidate())
		}
		return out, nil
	case env.Results != nil:
		out := searchResponse{kind: kindResults, results: make([]entities.GeocodeResult, 0, len(*env.Results))}
		for _, r := range *env.Results {
			if res, ok := r.result(); ok {
				out.results = append(out.results, res)
			}
		}
		return out, nil
	case env.Result != nil:
		out := searchResponse{kind: kindResult}
		if res, ok := env.Result.result(); ok {
			out.results = []entities.GeocodeResult{res}
		}
		return out, nil
	}
	return searchResponse{}, apperrors.NewUpstreamError("secondary search response has no places, results or result", 0, nil)
}

// geocodeResults accepts either geocode shape
func (r searchResponse) geocodeResults() ([]entities.GeocodeResult, error) {
	if r.kind != kindResults && r.kind != kindResult {
		return nil, unexpectedKind("geocode", r.kind)
	}
	return r.results, nil
}

func (r searchResponse) nearbyPlaces() ([]entities.PlaceCandidate, error) {
	if r.kind != kindPlaces {
		return nil, unexpectedKind("nearby search", r.kind)
	}
	return r.places, nil
}

func unexpectedKind(op string, kind responseKind) error {
	return apperrors.NewUpstreamError(fmt.Sprintf("secondary %s returned a %s response", op, kind), 0, nil)
}

// decodeUpdateResponse returns the stored row echoed by /update. An empty
// body, or one that is not a clinic row, means the sent record was stored.
func decodeUpdateResponse(raw []byte, sent entities.Clinic) (*entities.Clinic, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return &sent, nil
	}
	if !json.Valid(trimmed) {
		return nil, apperrors.NewUpstreamError("malformed secondary update response", 0, nil)
	}
	if trimmed[0] != '{' {
		return &sent, nil
	}

	var stored entities.Clinic
	if err := json.Unmarshal(trimmed, &stored); err != nil || strings.TrimSpace(stored.GooglePlaceID) == "" {
		return &sent, nil
	}
	if stored.PlaceID == 0 {
		stored.PlaceID = sent.PlaceID
	}
	return &stored, nil
}

type searchQuery struct {
	Query string `json:"query"`
}

func firstString(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstFloat(values ...*float64) *float64 {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
