package services

import (
	"context"
	"sort"

	"github.com/clinicfinder/backend/internal/domain/entities"
	"github.com/clinicfinder/backend/internal/domain/repositories"
	"github.com/clinicfinder/backend/pkg/utils"
)

const (
	cacheCandidateLimit = 50
	cacheResultLimit    = 20
)

// ClinicCacheReader answers nearby queries from persisted clinics only
type ClinicCacheReader struct {
	repo repositories.ClinicRepository
}

func NewClinicCacheReader(repo repositories.ClinicRepository) *ClinicCacheReader {
	return &ClinicCacheReader{repo: repo}
}

// GetCachedClinics returns active clinics within radiusKm of (lat, lng),
// nearest first, at most 20. Unknown category values are ignored.
func (r *ClinicCacheReader) GetCachedClinics(ctx context.Context, lat, lng, radiusKm float64, categories []string) ([]entities.NearbyClinic, error) {
	box := utils.BoundingBox(lat, lng, radiusKm)

	rows, err := r.repo.SelectClinicsInBox(ctx, entities.BoxQuery{
		MinLat:     box.Min.Lat(),
		MaxLat:     box.Max.Lat(),
		MinLng:     box.Min.Lon(),
		MaxLng:     box.Max.Lon(),
		ActiveOnly: true,
		Categories: entities.ParseCategories(categories),
		Limit:      cacheCandidateLimit,
	})
	if err != nil {
		return nil, err
	}

	// The box is wider than the circle, so the true distance decides.
	nearby := make([]entities.NearbyClinic, 0, len(rows))
	for _, row := range rows {
		d := utils.HaversineKm(lat, lng, row.Latitude, row.Longitude)
		if d > radiusKm {
			continue
		}
		nearby = append(nearby, entities.NearbyClinic{Clinic: row, DistanceKm: d})
	}

	sortByDistance(nearby)
	if len(nearby) > cacheResultLimit {
		nearby = nearby[:cacheResultLimit]
	}
	return nearby, nil
}

func sortByDistance(clinics []entities.NearbyClinic) {
	sort.SliceStable(clinics, func(i, j int) bool {
		return clinics[i].DistanceKm < clinics[j].DistanceKm
	})
}
