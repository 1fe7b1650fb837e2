package entities

import (
	"encoding/json"
	"time"
)

// Provenance tags written to Clinic.Source
const (
	SourcePrimary   = "google_places"
	SourceSecondary = "microservice"
)

// Clinic is a persisted, deduplicated place keyed by GooglePlaceID.
// PlaceID is assigned locally and is never a source identifier.
type Clinic struct {
	PlaceID       int64           `json:"place_id" db:"place_id"`
	GooglePlaceID string          `json:"google_place_id" db:"google_place_id"`
	Name          string          `json:"name" db:"name"`
	Address       string          `json:"address" db:"address"`
	Latitude      float64         `json:"latitude" db:"latitude"`
	Longitude     float64         `json:"longitude" db:"longitude"`
	Rating        float64         `json:"rating" db:"rating"`
	Category      Category        `json:"category" db:"category"`
	IsActive      bool            `json:"is_active" db:"is_active"`
	Source        string          `json:"source" db:"source"`
	Services      *string         `json:"services" db:"services"`
	Contact       *string         `json:"contact,omitempty" db:"contact"`
	Details       json.RawMessage `json:"details,omitempty" db:"details"`
	LastUpdated   time.Time       `json:"last_updated" db:"last_updated"`
}

// NearbyClinic is a clinic annotated with its distance from a query point
type NearbyClinic struct {
	Clinic
	DistanceKm float64 `json:"calculated_distance,omitempty"`
}

// ClinicDetailsUpdate carries the fields a detail fetch writes onto an existing row
type ClinicDetailsUpdate struct {
	GooglePlaceID string
	Contact       *string
	Details       json.RawMessage
	LastUpdated   time.Time
}

// BoxQuery selects clinics inside a lat/lng rectangle
type BoxQuery struct {
	MinLat     float64
	MaxLat     float64
	MinLng     float64
	MaxLng     float64
	ActiveOnly bool
	Categories []Category
	Limit      int
}
