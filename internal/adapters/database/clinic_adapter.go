package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/clinicfinder/backend/internal/domain/entities"
	"github.com/clinicfinder/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/clinicfinder/backend/pkg/errors"
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
)

const clinicsTable = "clinics"

var clinicColumns = []interface{}{
	"place_id", "google_place_id", "name", "address", "latitude", "longitude",
	"rating", "category", "is_active", "source", "services", "contact",
	"details", "last_updated",
}

// ClinicAdapter implements ClinicRepository and PlaceIDAllocator on PostgreSQL
type ClinicAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewClinicAdapter creates a new clinic adapter
func NewClinicAdapter(client *postgres.Client) *ClinicAdapter {
	return &ClinicAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

// FindMaxPlaceID returns the highest place id, or 0 for an empty table
func (a *ClinicAdapter) FindMaxPlaceID(ctx context.Context) (int64, error) {
	query, args, err := a.db.From(clinicsTable).Select(goqu.MAX("place_id")).ToSQL()
	if err != nil {
		return 0, apperrors.NewInternalError("failed to build query", err)
	}

	var maxID sql.NullInt64
	if err := a.client.DB().QueryRowContext(ctx, query, args...).Scan(&maxID); err != nil {
		return 0, apperrors.NewInternalError("failed to read max place id", err)
	}
	return maxID.Int64, nil
}

// FindByGooglePlaceIDs retrieves the rows matching the given source ids
func (a *ClinicAdapter) FindByGooglePlaceIDs(ctx context.Context, ids []string) ([]entities.Clinic, error) {
	if len(ids) == 0 {
		return []entities.Clinic{}, nil
	}

	query, args, err := a.db.From(clinicsTable).
		Select(clinicColumns...).
		Where(goqu.Ex{"google_place_id": ids}).
		Order(goqu.I("place_id").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	return a.queryClinics(ctx, query, args, "failed to get clinics by google place ids")
}

// InsertClinics inserts rows, skipping any whose google_place_id already exists
func (a *ClinicAdapter) InsertClinics(ctx context.Context, rows []entities.Clinic) ([]entities.Clinic, error) {
	if len(rows) == 0 {
		return []entities.Clinic{}, nil
	}

	records := make([]interface{}, 0, len(rows))
	for _, row := range rows {
		records = append(records, clinicRecord(row))
	}

	query, args, err := a.db.Insert(clinicsTable).
		Rows(records...).
		OnConflict(goqu.DoNothing()).
		Returning(clinicColumns...).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build insert query", err)
	}

	return a.queryClinics(ctx, query, args, "failed to insert clinics")
}

// UpsertClinic inserts a row or updates the existing row with the same google_place_id.
// An existing row keeps its place id.
func (a *ClinicAdapter) UpsertClinic(ctx context.Context, row entities.Clinic) ([]entities.Clinic, error) {
	update := goqu.Record{}
	for _, col := range []string{
		"name", "address", "latitude", "longitude", "rating", "category",
		"is_active", "source", "services", "last_updated",
	} {
		update[col] = goqu.L("EXCLUDED." + col)
	}

	query, args, err := a.db.Insert(clinicsTable).
		Rows(clinicRecord(row)).
		OnConflict(goqu.DoUpdate("google_place_id", update)).
		Returning(clinicColumns...).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build upsert query", err)
	}

	return a.queryClinics(ctx, query, args, "failed to upsert clinic")
}

// UpdateClinicDetails writes contact and details onto the row with the given google_place_id
func (a *ClinicAdapter) UpdateClinicDetails(ctx context.Context, update entities.ClinicDetailsUpdate) error {
	query, args, err := a.db.Update(clinicsTable).
		Set(goqu.Record{
			"contact":      nullString(update.Contact),
			"details":      jsonValue(update.Details),
			"last_updated": update.LastUpdated,
		}).
		Where(goqu.Ex{"google_place_id": update.GooglePlaceID}).
		ToSQL()
	if err != nil {
		return apperrors.NewInternalError("failed to build update query", err)
	}

	result, err := a.client.DB().ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.NewInternalError("failed to update clinic details", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("failed to get rows affected", err)
	}
	if rowsAffected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("clinic with google place id %s not found", update.GooglePlaceID))
	}
	return nil
}

// SelectClinicsInBox returns rows inside the lat/lng rectangle
func (a *ClinicAdapter) SelectClinicsInBox(ctx context.Context, q entities.BoxQuery) ([]entities.Clinic, error) {
	ds := a.db.From(clinicsTable).
		Select(clinicColumns...).
		Where(
			goqu.C("latitude").Between(goqu.Range(q.MinLat, q.MaxLat)),
			goqu.C("longitude").Between(goqu.Range(q.MinLng, q.MaxLng)),
		)

	if q.ActiveOnly {
		ds = ds.Where(goqu.Ex{"is_active": true})
	}
	if len(q.Categories) > 0 {
		categories := make([]string, len(q.Categories))
		for i, c := range q.Categories {
			categories[i] = string(c)
		}
		ds = ds.Where(goqu.Ex{"category": categories})
	}
	if q.Limit > 0 {
		ds = ds.Limit(uint(q.Limit))
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build query", err)
	}

	return a.queryClinics(ctx, query, args, "failed to select clinics in box")
}

// Allocate reserves n place ids from the clinics_place_id_seq sequence
func (a *ClinicAdapter) Allocate(ctx context.Context, n int) ([]int64, error) {
	if n <= 0 {
		return nil, nil
	}

	rows, err := a.client.DB().QueryContext(ctx,
		`SELECT nextval('clinics_place_id_seq') FROM generate_series(1, $1)`, n)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to allocate place ids", err)
	}
	defer rows.Close()

	ids := make([]int64, 0, n)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.NewInternalError("failed to scan place id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to allocate place ids", err)
	}
	return ids, nil
}

func (a *ClinicAdapter) queryClinics(ctx context.Context, query string, args []interface{}, failMsg string) ([]entities.Clinic, error) {
	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError(failMsg, err)
	}
	defer rows.Close()

	clinics := []entities.Clinic{}
	for rows.Next() {
		clinic, err := scanClinic(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan clinic", err)
		}
		clinics = append(clinics, clinic)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError(failMsg, err)
	}
	return clinics, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanClinic(s rowScanner) (entities.Clinic, error) {
	var (
		c        entities.Clinic
		category string
		services sql.NullString
		contact  sql.NullString
		details  []byte
	)

	err := s.Scan(
		&c.PlaceID,
		&c.GooglePlaceID,
		&c.Name,
		&c.Address,
		&c.Latitude,
		&c.Longitude,
		&c.Rating,
		&category,
		&c.IsActive,
		&c.Source,
		&services,
		&contact,
		&details,
		&c.LastUpdated,
	)
	if err != nil {
		return c, err
	}

	c.Category = entities.Category(category)
	if services.Valid {
		c.Services = &services.String
	}
	if contact.Valid {
		c.Contact = &contact.String
	}
	if len(details) > 0 {
		c.Details = json.RawMessage(details)
	}
	return c, nil
}

func clinicRecord(c entities.Clinic) goqu.Record {
	return goqu.Record{
		"place_id":        c.PlaceID,
		"google_place_id": c.GooglePlaceID,
		"name":            c.Name,
		"address":         c.Address,
		"latitude":        c.Latitude,
		"longitude":       c.Longitude,
		"rating":          c.Rating,
		"category":        string(c.Category),
		"is_active":       c.IsActive,
		"source":          c.Source,
		"services":        nullString(c.Services),
		"contact":         nullString(c.Contact),
		"details":         jsonValue(c.Details),
		"last_updated":    c.LastUpdated,
	}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// jsonValue renders raw JSON as a text literal so it is not expanded as a byte list
func jsonValue(raw json.RawMessage) sql.NullString {
	if len(raw) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(raw), Valid: true}
}
