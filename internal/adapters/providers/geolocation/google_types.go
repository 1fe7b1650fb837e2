package geolocation

import (
	"encoding/json"
	"strings"

	"github.com/clinicfinder/backend/internal/domain/entities"
)

type latLngLiteral struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type nearbyRequest struct {
	IncludedTypes       []string `json:"includedTypes"`
	MaxResultCount      int      `json:"maxResultCount"`
	LocationRestriction struct {
		Circle struct {
			Center latLngLiteral `json:"center"`
			Radius float64       `json:"radius"`
		} `json:"circle"`
	} `json:"locationRestriction"`
	RegionCode     string `json:"regionCode,omitempty"`
	LanguageCode   string `json:"languageCode,omitempty"`
	RankPreference string `json:"rankPreference,omitempty"`
}

type nearbyResponse struct {
	Places []googlePlace `json:"places"`
}

type localizedText struct {
	Text string `json:"text"`
}

// googleLocation keeps pointers so a missing coordinate is distinguishable from zero
type googleLocation struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (l *googleLocation) latLng() *entities.LatLng {
	if l == nil || l.Latitude == nil || l.Longitude == nil {
		return nil
	}
	return &entities.LatLng{Lat: *l.Latitude, Lng: *l.Longitude}
}

type googlePlace struct {
	ID               string          `json:"id"`
	DisplayName      *localizedText  `json:"displayName"`
	FormattedAddress string          `json:"formattedAddress"`
	Location         *googleLocation `json:"location"`
	Rating           float64         `json:"rating"`
	UserRatingCount  int             `json:"userRatingCount"`
	BusinessStatus   string          `json:"businessStatus"`
	Types            []string        `json:"types"`
}

func (p googlePlace) candidate() entities.PlaceCandidate {
	c := entities.PlaceCandidate{
		ExternalID:       p.ID,
		FormattedAddress: p.FormattedAddress,
		Location:         p.Location.latLng(),
		Rating:           p.Rating,
		BusinessStatus:   p.BusinessStatus,
		Types:            p.Types,
		Source:           entities.SourcePrimary,
	}
	if p.DisplayName != nil {
		c.Name = p.DisplayName.Text
	}
	return c
}

type placeDetailsResponse struct {
	googlePlace
	WebsiteURI               string `json:"websiteUri"`
	NationalPhoneNumber      string `json:"nationalPhoneNumber"`
	InternationalPhoneNumber string `json:"internationalPhoneNumber"`
	RegularOpeningHours      *struct {
		WeekdayDescriptions []string `json:"weekdayDescriptions"`
	} `json:"regularOpeningHours"`
}

func (p placeDetailsResponse) details() *entities.PlaceDetails {
	d := &entities.PlaceDetails{
		ID:               p.ID,
		FormattedAddress: p.FormattedAddress,
		Location:         p.Location.latLng(),
		Rating:           p.Rating,
		UserRatingCount:  p.UserRatingCount,
		BusinessStatus:   p.BusinessStatus,
		Types:            p.Types,
		WebsiteURI:       p.WebsiteURI,
		PhoneNumber:      p.InternationalPhoneNumber,
	}
	if p.DisplayName != nil {
		d.Name = p.DisplayName.Text
	}
	if d.PhoneNumber == "" {
		d.PhoneNumber = p.NationalPhoneNumber
	}
	if p.RegularOpeningHours != nil {
		d.OpeningHours = p.RegularOpeningHours.WeekdayDescriptions
	}
	return d
}

type geocodeResponse struct {
	Status       string          `json:"status"`
	ErrorMessage string          `json:"error_message,omitempty"`
	Results      []geocodeResult `json:"results"`
}

type geocodeResult struct {
	FormattedAddress string `json:"formatted_address"`
	PlaceID          string `json:"place_id"`
	Name             string `json:"name,omitempty"`
	Geometry         struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
}

func (r geocodeResult) result() entities.GeocodeResult {
	return entities.GeocodeResult{
		Lat:              r.Geometry.Location.Lat,
		Lng:              r.Geometry.Location.Lng,
		FormattedAddress: r.FormattedAddress,
		PlaceID:          r.PlaceID,
		Name:             r.Name,
	}
}

type textValue struct {
	Text string `json:"text"`
}

type encodedPolyline struct {
	Points string `json:"points"`
}

type directionsResponse struct {
	Status       string            `json:"status"`
	ErrorMessage string            `json:"error_message,omitempty"`
	Routes       []directionsRoute `json:"routes"`
}

type directionsRoute struct {
	OverviewPolyline encodedPolyline `json:"overview_polyline"`
	Legs             []struct {
		Distance     textValue `json:"distance"`
		Duration     textValue `json:"duration"`
		StartAddress string    `json:"start_address"`
		EndAddress   string    `json:"end_address"`
		Steps        []struct {
			HTMLInstructions string          `json:"html_instructions"`
			Distance         textValue       `json:"distance"`
			Duration         textValue       `json:"duration"`
			Polyline         encodedPolyline `json:"polyline"`
		} `json:"steps"`
	} `json:"legs"`
}

func (r directionsRoute) result() *entities.DirectionsResult {
	out := &entities.DirectionsResult{
		Polyline: r.OverviewPolyline.Points,
		Legs:     make([]entities.DirectionsLeg, 0, len(r.Legs)),
	}

	for _, l := range r.Legs {
		leg := entities.DirectionsLeg{
			DistanceText: l.Distance.Text,
			DurationText: l.Duration.Text,
			StartAddress: l.StartAddress,
			EndAddress:   l.EndAddress,
			Steps:        make([]entities.DirectionsStep, 0, len(l.Steps)),
		}
		for _, s := range l.Steps {
			leg.Steps = append(leg.Steps, entities.DirectionsStep{
				HTMLInstruction: s.HTMLInstructions,
				DistanceText:    s.Distance.Text,
				DurationText:    s.Duration.Text,
				Polyline:        s.Polyline.Points,
			})
		}
		out.Legs = append(out.Legs, leg)
	}

	if len(out.Legs) > 0 {
		out.DistanceText = out.Legs[0].DistanceText
		out.DurationText = out.Legs[0].DurationText
	}
	return out
}

// rawOrNull keeps an upstream payload only when it is a JSON object
func rawOrNull(raw json.RawMessage) json.RawMessage {
	trimmed := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(trimmed, "{") {
		return nil
	}
	return raw
}
