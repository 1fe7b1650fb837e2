package services_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicfinder/backend/internal/adapters/database"
	"github.com/clinicfinder/backend/internal/application/services"
	"github.com/clinicfinder/backend/internal/domain/entities"
	"github.com/clinicfinder/backend/pkg/utils"
)

const (
	originLat = -1.2864
	originLng = 36.8172
)

func cachedClinic(id int64, lat, lng float64, category entities.Category) entities.Clinic {
	return entities.Clinic{
		PlaceID:       id,
		GooglePlaceID: fmt.Sprintf("g-%d", id),
		Name:          fmt.Sprintf("Clinic %d", id),
		Latitude:      lat,
		Longitude:     lng,
		Category:      category,
		IsActive:      true,
	}
}

func TestGetCachedClinics_EnforcesTrueRadius(t *testing.T) {
	box := utils.BoundingBox(originLat, originLng, 5)

	repo := database.NewMemoryClinicAdapter(
		cachedClinic(1, originLat+0.01, originLng, entities.CategoryHospital),
		// Inside the box corner but about 7 km away.
		cachedClinic(2, box.Max.Lat()-0.001, box.Max.Lon()-0.001, entities.CategoryHospital),
		cachedClinic(3, originLat, originLng+0.002, entities.CategoryClinic),
	)
	reader := services.NewClinicCacheReader(repo)

	clinics, err := reader.GetCachedClinics(context.Background(), originLat, originLng, 5, nil)
	require.NoError(t, err)

	require.Len(t, clinics, 2)
	assert.Equal(t, int64(3), clinics[0].PlaceID, "nearest first")
	assert.Equal(t, int64(1), clinics[1].PlaceID)
	for _, c := range clinics {
		assert.LessOrEqual(t, c.DistanceKm, 5.0)
		assert.InDelta(t, utils.HaversineKm(originLat, originLng, c.Latitude, c.Longitude), c.DistanceKm, 1e-9)
	}
}

func TestGetCachedClinics_FiltersCategoriesAndIgnoresUnknown(t *testing.T) {
	repo := database.NewMemoryClinicAdapter(
		cachedClinic(1, originLat, originLng+0.001, entities.CategoryHospital),
		cachedClinic(2, originLat, originLng+0.002, entities.CategoryPharmacy),
		cachedClinic(3, originLat, originLng+0.003, entities.CategoryDoctor),
	)
	reader := services.NewClinicCacheReader(repo)

	clinics, err := reader.GetCachedClinics(context.Background(), originLat, originLng, 2, []string{"pharmacy", "spa", "DOCTOR"})
	require.NoError(t, err)
	require.Len(t, clinics, 2)
	assert.Equal(t, entities.CategoryPharmacy, clinics[0].Category)
	assert.Equal(t, entities.CategoryDoctor, clinics[1].Category)

	clinics, err = reader.GetCachedClinics(context.Background(), originLat, originLng, 2, []string{"spa"})
	require.NoError(t, err)
	assert.Len(t, clinics, 3, "only unknown values means no filter")
}

func TestGetCachedClinics_SkipsInactiveAndTruncates(t *testing.T) {
	seed := make([]entities.Clinic, 0, 30)
	for i := 1; i <= 30; i++ {
		seed = append(seed, cachedClinic(int64(i), originLat, originLng+float64(i)*0.0005, entities.CategoryHospital))
	}
	inactive := cachedClinic(99, originLat, originLng, entities.CategoryHospital)
	inactive.IsActive = false
	seed = append(seed, inactive)

	reader := services.NewClinicCacheReader(database.NewMemoryClinicAdapter(seed...))

	clinics, err := reader.GetCachedClinics(context.Background(), originLat, originLng, 5, nil)
	require.NoError(t, err)
	require.Len(t, clinics, 20)
	assert.Equal(t, int64(1), clinics[0].PlaceID)
	assert.Equal(t, int64(20), clinics[19].PlaceID)
}
