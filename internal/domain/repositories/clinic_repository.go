package repositories

import (
	"context"

	"github.com/clinicfinder/backend/internal/domain/entities"
)

// ClinicRepository is the persistence gateway for clinic rows
type ClinicRepository interface {
	// FindMaxPlaceID returns the highest assigned place id, or 0 when the table is empty
	FindMaxPlaceID(ctx context.Context) (int64, error)

	// FindByGooglePlaceIDs returns the rows whose google_place_id is in ids
	FindByGooglePlaceIDs(ctx context.Context, ids []string) ([]entities.Clinic, error)

	// InsertClinics inserts new rows and returns the rows actually written.
	// Rows whose google_place_id already exists are skipped.
	InsertClinics(ctx context.Context, rows []entities.Clinic) ([]entities.Clinic, error)

	// UpsertClinic inserts or replaces a row keyed by google_place_id
	UpsertClinic(ctx context.Context, row entities.Clinic) ([]entities.Clinic, error)

	// UpdateClinicDetails writes contact and details onto an existing row
	UpdateClinicDetails(ctx context.Context, update entities.ClinicDetailsUpdate) error

	// SelectClinicsInBox returns rows inside the query rectangle
	SelectClinicsInBox(ctx context.Context, query entities.BoxQuery) ([]entities.Clinic, error)
}

// PlaceIDAllocator hands out unique local place ids
type PlaceIDAllocator interface {
	// Allocate reserves n ids in ascending order
	Allocate(ctx context.Context, n int) ([]int64, error)
}
