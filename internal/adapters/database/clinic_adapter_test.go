package database_test

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/clinicfinder/backend/internal/adapters/database"
	"github.com/clinicfinder/backend/internal/domain/entities"
	"github.com/clinicfinder/backend/internal/infrastructure/clients/postgres"
	apperrors "github.com/clinicfinder/backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var clinicRowColumns = []string{
	"place_id", "google_place_id", "name", "address", "latitude", "longitude",
	"rating", "category", "is_active", "source", "services", "contact",
	"details", "last_updated",
}

func setupClinicAdapter(t *testing.T) (*database.ClinicAdapter, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return database.NewClinicAdapter(postgres.NewClientFromDB(db)), mock
}

func clinicRow(id int64, googleID, name string, lat, lng float64, updated time.Time) []driver.Value {
	return []driver.Value{
		id, googleID, name, "Ngong Rd", lat, lng, 4.2, "hospital", true,
		entities.SourcePrimary, "hospital, health", nil, nil, updated,
	}
}

func TestClinicAdapter_FindMaxPlaceID(t *testing.T) {
	ctx := context.Background()

	t.Run("empty table returns zero", func(t *testing.T) {
		adapter, mock := setupClinicAdapter(t)
		mock.ExpectQuery(`SELECT MAX\("place_id"\) FROM "clinics"`).
			WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(nil))

		got, err := adapter.FindMaxPlaceID(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns the current max", func(t *testing.T) {
		adapter, mock := setupClinicAdapter(t)
		mock.ExpectQuery(`SELECT MAX\("place_id"\)`).
			WillReturnRows(sqlmock.NewRows([]string{"max"}).AddRow(41))

		got, err := adapter.FindMaxPlaceID(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(41), got)
	})
}

func TestClinicAdapter_FindByGooglePlaceIDs(t *testing.T) {
	ctx := context.Background()
	updated := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	t.Run("no ids skips the query", func(t *testing.T) {
		adapter, mock := setupClinicAdapter(t)

		got, err := adapter.FindByGooglePlaceIDs(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("maps nullable columns", func(t *testing.T) {
		adapter, mock := setupClinicAdapter(t)
		row := clinicRow(7, "g-1", "Kenyatta National", -1.30, 36.80, updated)
		row[11] = "+254 20 2726300"
		row[12] = []byte(`{"id":"g-1"}`)

		mock.ExpectQuery(`SELECT .+ FROM "clinics" WHERE \("google_place_id" IN \('g-1', 'g-2'\)\)`).
			WillReturnRows(sqlmock.NewRows(clinicRowColumns).AddRow(row...))

		got, err := adapter.FindByGooglePlaceIDs(ctx, []string{"g-1", "g-2"})
		require.NoError(t, err)
		require.Len(t, got, 1)

		c := got[0]
		assert.Equal(t, int64(7), c.PlaceID)
		assert.Equal(t, entities.CategoryHospital, c.Category)
		require.NotNil(t, c.Services)
		assert.Equal(t, "hospital, health", *c.Services)
		require.NotNil(t, c.Contact)
		assert.Equal(t, "+254 20 2726300", *c.Contact)
		assert.JSONEq(t, `{"id":"g-1"}`, string(c.Details))
		assert.Equal(t, updated, c.LastUpdated)
	})
}

func TestClinicAdapter_InsertClinics(t *testing.T) {
	ctx := context.Background()
	adapter, mock := setupClinicAdapter(t)
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	rows := []entities.Clinic{
		{PlaceID: 1, GooglePlaceID: "g-1", Name: "A", Latitude: -1.3, Longitude: 36.8, Category: entities.CategoryHospital, IsActive: true, Source: entities.SourcePrimary, LastUpdated: now},
		{PlaceID: 2, GooglePlaceID: "g-2", Name: "B", Latitude: -1.31, Longitude: 36.81, Category: entities.CategoryPharmacy, Source: entities.SourcePrimary, LastUpdated: now},
	}

	mock.ExpectQuery(`INSERT INTO "clinics" .+ ON CONFLICT DO NOTHING RETURNING`).
		WillReturnRows(sqlmock.NewRows(clinicRowColumns).
			AddRow(clinicRow(1, "g-1", "A", -1.3, 36.8, now)...))

	got, err := adapter.InsertClinics(ctx, rows)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "g-1", got[0].GooglePlaceID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClinicAdapter_UpsertClinic(t *testing.T) {
	ctx := context.Background()
	adapter, mock := setupClinicAdapter(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`INSERT INTO "clinics" .+ ON CONFLICT \(google_place_id\) DO UPDATE SET`).
		WillReturnRows(sqlmock.NewRows(clinicRowColumns).
			AddRow(clinicRow(3, "g-3", "C", -1.2, 36.7, now)...))

	got, err := adapter.UpsertClinic(ctx, entities.Clinic{PlaceID: 9, GooglePlaceID: "g-3", Name: "C", LastUpdated: now})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(3), got[0].PlaceID)
}

func TestClinicAdapter_UpdateClinicDetails(t *testing.T) {
	ctx := context.Background()
	phone := "+254 700 000000"
	update := entities.ClinicDetailsUpdate{
		GooglePlaceID: "g-1",
		Contact:       &phone,
		Details:       []byte(`{"id":"g-1"}`),
		LastUpdated:   time.Now().UTC(),
	}

	t.Run("updates the row", func(t *testing.T) {
		adapter, mock := setupClinicAdapter(t)
		mock.ExpectExec(`UPDATE "clinics" SET .+ WHERE \("google_place_id" = 'g-1'\)`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, adapter.UpdateClinicDetails(ctx, update))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row is not found", func(t *testing.T) {
		adapter, mock := setupClinicAdapter(t)
		mock.ExpectExec(`UPDATE "clinics"`).WillReturnResult(sqlmock.NewResult(0, 0))

		err := adapter.UpdateClinicDetails(ctx, update)
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeNotFound))
	})
}

func TestClinicAdapter_SelectClinicsInBox(t *testing.T) {
	ctx := context.Background()
	adapter, mock := setupClinicAdapter(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT .+ FROM "clinics" WHERE .*"latitude" BETWEEN .+"longitude" BETWEEN .+"is_active" IS TRUE.+"category" IN \('hospital', 'clinic'\).+LIMIT 50`).
		WillReturnRows(sqlmock.NewRows(clinicRowColumns).
			AddRow(clinicRow(1, "g-1", "A", -1.29, 36.82, now)...).
			AddRow(clinicRow(2, "g-2", "B", -1.28, 36.81, now)...))

	got, err := adapter.SelectClinicsInBox(ctx, entities.BoxQuery{
		MinLat: -1.33, MaxLat: -1.24,
		MinLng: 36.77, MaxLng: 36.86,
		ActiveOnly: true,
		Categories: []entities.Category{entities.CategoryHospital, entities.CategoryClinic},
		Limit:      50,
	})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClinicAdapter_Allocate(t *testing.T) {
	ctx := context.Background()
	adapter, mock := setupClinicAdapter(t)

	mock.ExpectQuery(`SELECT nextval\('clinics_place_id_seq'\) FROM generate_series\(1, \$1\)`).
		WithArgs(3).
		WillReturnRows(sqlmock.NewRows([]string{"nextval"}).AddRow(10).AddRow(11).AddRow(12))

	ids, err := adapter.Allocate(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 11, 12}, ids)

	none, err := adapter.Allocate(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.NoError(t, mock.ExpectationsWereMet())
}
