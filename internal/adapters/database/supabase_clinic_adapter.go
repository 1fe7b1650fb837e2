package database

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/clinicfinder/backend/internal/domain/entities"
	"github.com/clinicfinder/backend/internal/infrastructure/clients/supabase"
	apperrors "github.com/clinicfinder/backend/pkg/errors"
	"github.com/supabase-community/postgrest-go"
)

const returnRepresentation = "representation"

// SupabaseClinicAdapter implements ClinicRepository over the hosted store REST interface
type SupabaseClinicAdapter struct {
	client *supabase.Client
}

// NewSupabaseClinicAdapter creates a new hosted clinic adapter
func NewSupabaseClinicAdapter(client *supabase.Client) *SupabaseClinicAdapter {
	return &SupabaseClinicAdapter{client: client}
}

// FindMaxPlaceID returns the highest place id, or 0 for an empty table
func (a *SupabaseClinicAdapter) FindMaxPlaceID(ctx context.Context) (int64, error) {
	data, _, err := a.client.From(clinicsTable).
		Select("place_id", "", false).
		Order("place_id", &postgrest.OrderOpts{Ascending: false}).
		Limit(1, "").
		Execute()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to read max place id", err)
	}

	var rows []struct {
		PlaceID int64 `json:"place_id"`
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return 0, apperrors.NewInternalError("failed to decode max place id", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].PlaceID, nil
}

// FindByGooglePlaceIDs retrieves the rows matching the given source ids
func (a *SupabaseClinicAdapter) FindByGooglePlaceIDs(ctx context.Context, ids []string) ([]entities.Clinic, error) {
	if len(ids) == 0 {
		return []entities.Clinic{}, nil
	}

	data, _, err := a.client.From(clinicsTable).
		Select("*", "", false).
		In("google_place_id", ids).
		Order("place_id", &postgrest.OrderOpts{Ascending: true}).
		Execute()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get clinics by google place ids", err)
	}
	return decodeClinics(data)
}

// InsertClinics inserts rows in one request and returns the stored representation
func (a *SupabaseClinicAdapter) InsertClinics(ctx context.Context, rows []entities.Clinic) ([]entities.Clinic, error) {
	if len(rows) == 0 {
		return []entities.Clinic{}, nil
	}

	data, _, err := a.client.From(clinicsTable).
		Insert(rows, false, "", returnRepresentation, "").
		Execute()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to insert clinics", err)
	}
	return decodeClinics(data)
}

// UpsertClinic inserts a row or merges it onto the row with the same google_place_id
func (a *SupabaseClinicAdapter) UpsertClinic(ctx context.Context, row entities.Clinic) ([]entities.Clinic, error) {
	data, _, err := a.client.From(clinicsTable).
		Upsert(row, "google_place_id", returnRepresentation, "").
		Execute()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to upsert clinic", err)
	}
	return decodeClinics(data)
}

// UpdateClinicDetails writes contact and details onto the row with the given google_place_id
func (a *SupabaseClinicAdapter) UpdateClinicDetails(ctx context.Context, update entities.ClinicDetailsUpdate) error {
	patch := map[string]interface{}{
		"contact":      update.Contact,
		"details":      update.Details,
		"last_updated": update.LastUpdated,
	}

	data, _, err := a.client.From(clinicsTable).
		Update(patch, returnRepresentation, "").
		Eq("google_place_id", update.GooglePlaceID).
		Execute()
	if err != nil {
		return apperrors.NewInternalError("failed to update clinic details", err)
	}

	rows, err := decodeClinics(data)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("clinic with google place id %s not found", update.GooglePlaceID))
	}
	return nil
}

// SelectClinicsInBox returns rows inside the lat/lng rectangle
func (a *SupabaseClinicAdapter) SelectClinicsInBox(ctx context.Context, q entities.BoxQuery) ([]entities.Clinic, error) {
	// Filters are keyed by column, so both bounds of an axis go in one and() group.
	box := fmt.Sprintf("and(latitude.gte.%s,latitude.lte.%s,longitude.gte.%s,longitude.lte.%s)",
		formatFloat(q.MinLat), formatFloat(q.MaxLat), formatFloat(q.MinLng), formatFloat(q.MaxLng))

	fb := a.client.From(clinicsTable).
		Select("*", "", false).
		Or(box, "")

	if q.ActiveOnly {
		fb = fb.Eq("is_active", "true")
	}
	if len(q.Categories) > 0 {
		categories := make([]string, len(q.Categories))
		for i, c := range q.Categories {
			categories[i] = string(c)
		}
		fb = fb.In("category", categories)
	}
	if q.Limit > 0 {
		fb = fb.Limit(q.Limit, "")
	}

	data, _, err := fb.Execute()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to select clinics in box", err)
	}
	return decodeClinics(data)
}

func decodeClinics(data []byte) ([]entities.Clinic, error) {
	clinics := []entities.Clinic{}
	if len(data) == 0 {
		return clinics, nil
	}
	if err := json.Unmarshal(data, &clinics); err != nil {
		return nil, apperrors.NewInternalError("failed to decode clinics", err)
	}
	return clinics, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
