package entities

import (
	"encoding/json"
	"strings"
	"time"
)

// LatLng is a coordinate pair
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// PlaceCandidate is an unpersisted place observation from a source.
// Location is nil when the source did not supply both coordinates.
type PlaceCandidate struct {
	ExternalID       string   `json:"externalId"`
	Name             string   `json:"name"`
	FormattedAddress string   `json:"formattedAddress"`
	Location         *LatLng  `json:"location,omitempty"`
	Rating           float64  `json:"rating"`
	BusinessStatus   string   `json:"businessStatus,omitempty"`
	Types            []string `json:"types,omitempty"`
	Source           string   `json:"source,omitempty"`
}

// Persistable reports whether the candidate can become a Clinic row
func (p PlaceCandidate) Persistable() bool {
	return strings.TrimSpace(p.ExternalID) != "" && p.Location != nil
}

// ToClinic maps the candidate onto a new clinic row
func (p PlaceCandidate) ToClinic(placeID int64, now time.Time) Clinic {
	c := Clinic{
		PlaceID:       placeID,
		GooglePlaceID: p.ExternalID,
		Name:          p.Name,
		Address:       p.FormattedAddress,
		Rating:        p.Rating,
		Category:      DeriveCategory(p.Types),
		IsActive:      p.BusinessStatus == BusinessStatusOperational,
		Source:        p.Source,
		LastUpdated:   now,
	}
	if c.Source == "" {
		c.Source = SourcePrimary
	}
	if p.Location != nil {
		c.Latitude = p.Location.Lat
		c.Longitude = p.Location.Lng
	}
	if len(p.Types) > 0 {
		services := strings.Join(p.Types, ", ")
		c.Services = &services
	}
	return c
}

// BusinessStatusOperational is the only status that marks a clinic active
const BusinessStatusOperational = "OPERATIONAL"

// Ranking values accepted by nearby search
const (
	RankingDistance   = "DISTANCE"
	RankingPopularity = "POPULARITY"
)

// NearbySearchRequest describes a nearby search against the place sources
type NearbySearchRequest struct {
	Latitude       float64  `json:"latitude"`
	Longitude      float64  `json:"longitude"`
	RadiusMeters   float64  `json:"radiusMeters"`
	Types          []string `json:"types,omitempty"`
	MaxResultCount int      `json:"maxResultCount"`
	Ranking        string   `json:"ranking,omitempty"`
	RegionCode     string   `json:"regionCode,omitempty"`
	LanguageCode   string   `json:"languageCode,omitempty"`
	// SecondaryOnly returns the secondary result without consulting the primary source.
	SecondaryOnly bool `json:"secondaryOnly,omitempty"`
}

// SearchMeta describes where a merged result came from
type SearchMeta struct {
	Source         string              `json:"source"`
	Mixed          bool                `json:"mixed,omitempty"`
	Fallback       bool                `json:"fallback,omitempty"`
	PrimaryCount   int                 `json:"primaryCount"`
	SecondaryCount int                 `json:"secondaryCount"`
	Query          NearbySearchRequest `json:"query"`
}

// Meta source labels
const (
	MetaSourcePrimary   = "primary"
	MetaSourceSecondary = "secondary"
	MetaSourceMixed     = "mixed"
	MetaSourceCache     = "cache"
)

// NearbySearchResult is the merged outcome of a nearby search
type NearbySearchResult struct {
	Places []PlaceCandidate `json:"places"`
	Meta   SearchMeta       `json:"meta"`
}

// GeocodeResult is a single geocoding match
type GeocodeResult struct {
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
	FormattedAddress string  `json:"formattedAddress,omitempty"`
	PlaceID          string  `json:"placeId,omitempty"`
	Name             string  `json:"name,omitempty"`
}

// DirectionsResult summarises the first route between two points
type DirectionsResult struct {
	DistanceText string          `json:"distanceText"`
	DurationText string          `json:"durationText"`
	Polyline     string          `json:"polyline"`
	Legs         []DirectionsLeg `json:"legs"`
}

// DirectionsLeg is one leg of a route
type DirectionsLeg struct {
	DistanceText string           `json:"distanceText"`
	DurationText string           `json:"durationText"`
	StartAddress string           `json:"startAddress"`
	EndAddress   string           `json:"endAddress"`
	Steps        []DirectionsStep `json:"steps"`
}

// DirectionsStep is one instruction within a leg
type DirectionsStep struct {
	HTMLInstruction string `json:"htmlInstruction"`
	DistanceText    string `json:"distanceText"`
	DurationText    string `json:"durationText"`
	Polyline        string `json:"polyline"`
}

// PlaceDetails holds the expanded fields of a single place
type PlaceDetails struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	FormattedAddress string          `json:"formattedAddress"`
	Location         *LatLng         `json:"location,omitempty"`
	Rating           float64         `json:"rating"`
	UserRatingCount  int             `json:"userRatingCount"`
	BusinessStatus   string          `json:"businessStatus,omitempty"`
	Types            []string        `json:"types,omitempty"`
	WebsiteURI       string          `json:"websiteUri,omitempty"`
	PhoneNumber      string          `json:"phoneNumber,omitempty"`
	OpeningHours     []string        `json:"openingHours,omitempty"`
	Raw              json.RawMessage `json:"-"`
}
