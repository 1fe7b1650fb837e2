package database

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/clinicfinder/backend/internal/domain/entities"
	apperrors "github.com/clinicfinder/backend/pkg/errors"
	"github.com/paulmach/orb"
)

// MemoryClinicAdapter is a process-local ClinicRepository. It enforces the
// same google_place_id uniqueness as the relational schema.
type MemoryClinicAdapter struct {
	mu   sync.RWMutex
	rows map[string]entities.Clinic
}

// NewMemoryClinicAdapter creates an empty in-memory gateway
func NewMemoryClinicAdapter(seed ...entities.Clinic) *MemoryClinicAdapter {
	a := &MemoryClinicAdapter{rows: make(map[string]entities.Clinic)}
	for _, c := range seed {
		a.rows[c.GooglePlaceID] = c
	}
	return a
}

// FindMaxPlaceID returns the highest place id, or 0 when empty
func (a *MemoryClinicAdapter) FindMaxPlaceID(ctx context.Context) (int64, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var maxID int64
	for _, c := range a.rows {
		if c.PlaceID > maxID {
			maxID = c.PlaceID
		}
	}
	return maxID, nil
}

// FindByGooglePlaceIDs returns the stored rows for ids ordered by place id
func (a *MemoryClinicAdapter) FindByGooglePlaceIDs(ctx context.Context, ids []string) ([]entities.Clinic, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := []entities.Clinic{}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if c, ok := a.rows[id]; ok {
			out = append(out, c)
		}
	}
	sortByPlaceID(out)
	return out, nil
}

// InsertClinics stores new rows; rows with a known google_place_id are skipped
func (a *MemoryClinicAdapter) InsertClinics(ctx context.Context, rows []entities.Clinic) ([]entities.Clinic, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	inserted := []entities.Clinic{}
	for _, row := range rows {
		if row.GooglePlaceID == "" {
			return nil, apperrors.NewValidationError("google_place_id is required")
		}
		if _, ok := a.rows[row.GooglePlaceID]; ok {
			continue
		}
		if a.placeIDTaken(row.PlaceID) {
			return nil, apperrors.NewConflictError(fmt.Sprintf("place id %d already assigned", row.PlaceID))
		}
		a.rows[row.GooglePlaceID] = row
		inserted = append(inserted, row)
	}
	return inserted, nil
}

// UpsertClinic stores row, keeping the place id of an existing row
func (a *MemoryClinicAdapter) UpsertClinic(ctx context.Context, row entities.Clinic) ([]entities.Clinic, error) {
	if row.GooglePlaceID == "" {
		return nil, apperrors.NewValidationError("google_place_id is required")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if existing, ok := a.rows[row.GooglePlaceID]; ok {
		row.PlaceID = existing.PlaceID
		if row.Contact == nil {
			row.Contact = existing.Contact
		}
		if len(row.Details) == 0 {
			row.Details = existing.Details
		}
	}
	a.rows[row.GooglePlaceID] = row
	return []entities.Clinic{row}, nil
}

// UpdateClinicDetails writes contact and details onto an existing row
func (a *MemoryClinicAdapter) UpdateClinicDetails(ctx context.Context, update entities.ClinicDetailsUpdate) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	row, ok := a.rows[update.GooglePlaceID]
	if !ok {
		return apperrors.NewNotFoundError(fmt.Sprintf("clinic with google place id %s not found", update.GooglePlaceID))
	}
	row.Contact = update.Contact
	row.Details = update.Details
	row.LastUpdated = update.LastUpdated
	a.rows[update.GooglePlaceID] = row
	return nil
}

// SelectClinicsInBox returns rows inside the query rectangle ordered by place id
func (a *MemoryClinicAdapter) SelectClinicsInBox(ctx context.Context, q entities.BoxQuery) ([]entities.Clinic, error) {
	bound := orb.Bound{
		Min: orb.Point{q.MinLng, q.MinLat},
		Max: orb.Point{q.MaxLng, q.MaxLat},
	}
	wanted := make(map[entities.Category]bool, len(q.Categories))
	for _, c := range q.Categories {
		wanted[c] = true
	}

	a.mu.RLock()
	out := []entities.Clinic{}
	for _, c := range a.rows {
		if q.ActiveOnly && !c.IsActive {
			continue
		}
		if len(wanted) > 0 && !wanted[c.Category] {
			continue
		}
		if !bound.Contains(orb.Point{c.Longitude, c.Latitude}) {
			continue
		}
		out = append(out, c)
	}
	a.mu.RUnlock()

	sortByPlaceID(out)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Len returns the number of stored rows
func (a *MemoryClinicAdapter) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.rows)
}

func (a *MemoryClinicAdapter) placeIDTaken(id int64) bool {
	if id == 0 {
		return false
	}
	for _, c := range a.rows {
		if c.PlaceID == id {
			return true
		}
	}
	return false
}

func sortByPlaceID(rows []entities.Clinic) {
	sort.Slice(rows, func(i, j int) bool { return rows[i].PlaceID < rows[j].PlaceID })
}
