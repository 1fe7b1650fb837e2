package services

import (
	"context"
	"errors"
	"sort"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/clinicfinder/backend/internal/domain/entities"
	"github.com/clinicfinder/backend/internal/infrastructure/observability"
	apperrors "github.com/clinicfinder/backend/pkg/errors"
	"github.com/clinicfinder/backend/pkg/utils"
)

// Write paths reported on the persisted rows metric
const (
	persistPathSecondary = "secondary"
	persistPathDatabase  = "database"
)

// PersistDiscovered stores candidates that have not been seen before and
// returns them together with the already known ones, ordered by place id. New
// rows go through the secondary service one at a time; when every one of those
// writes fails the batch is inserted directly. With a hint the result is
// ordered by distance instead.
func (s *PlaceResolutionService) PersistDiscovered(ctx context.Context, candidates []entities.PlaceCandidate, hint *entities.LatLng) ([]entities.NearbyClinic, error) {
	if len(candidates) == 0 {
		return []entities.NearbyClinic{}, nil
	}

	ctx, span := observability.StartSpan(ctx, "PlaceResolution.PersistDiscovered",
		attribute.Int("candidates", len(candidates)))
	defer span.End()

	logger := observability.LoggerFromContext(ctx)

	externalIDs := make([]string, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		id := strings.TrimSpace(c.ExternalID)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		externalIDs = append(externalIDs, id)
	}

	var existing []entities.Clinic
	if len(externalIDs) > 0 {
		rows, err := s.repo.FindByGooglePlaceIDs(ctx, externalIDs)
		if err != nil {
			observability.RecordError(span, err)
			return nil, err
		}
		existing = rows
	}
	known := make(map[string]struct{}, len(existing))
	for _, row := range existing {
		known[row.GooglePlaceID] = struct{}{}
	}

	fresh := make([]entities.PlaceCandidate, 0, len(candidates))
	for _, c := range candidates {
		if !c.Persistable() {
			continue
		}
		c.ExternalID = strings.TrimSpace(c.ExternalID)
		if _, ok := known[c.ExternalID]; ok {
			continue
		}
		known[c.ExternalID] = struct{}{}
		fresh = append(fresh, c)
	}

	if len(fresh) == 0 {
		logger.Debug().Int("existing", len(existing)).Msg("No new places to persist")
		return withDistance(existing, hint), nil
	}

	if !s.secondaryEnabled() {
		err := apperrors.NewConfigurationError("persisting new places requires the secondary place service endpoint")
		observability.RecordError(span, err)
		return nil, err
	}

	ids, err := s.ids.Allocate(ctx, len(fresh))
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	now := s.now()
	rows := make([]entities.Clinic, len(fresh))
	for i, c := range fresh {
		rows[i] = c.ToClinic(ids[i], now)
	}

	saved, err := s.writeThroughSecondary(ctx, rows)
	if len(saved) > 0 {
		if err != nil {
			logger.Warn().Err(err).Int("saved", len(saved)).Msg("Some places failed to persist")
		}
		observability.RecordPersisted(ctx, s.metrics, persistPathSecondary, len(saved))
		return withDistance(append(saved, existing...), hint), nil
	}

	logger.Warn().Err(err).Int("rows", len(rows)).Msg("Secondary writes failed, inserting directly")
	inserted, err := s.repo.InsertClinics(ctx, rows)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}
	observability.RecordPersisted(ctx, s.metrics, persistPathDatabase, len(inserted))

	return withDistance(append(inserted, existing...), hint), nil
}

// writeThroughSecondary sends rows in order. A failed row never stops the
// rest; failures are aggregated into a partial persist error.
func (s *PlaceResolutionService) writeThroughSecondary(ctx context.Context, rows []entities.Clinic) ([]entities.Clinic, error) {
	saved := make([]entities.Clinic, 0, len(rows))
	var failures []error

	for _, row := range rows {
		stored, err := s.secondary.Update(ctx, row)
		if err != nil {
			observability.LoggerFromContext(ctx).Warn().Err(err).
				Str("google_place_id", row.GooglePlaceID).
				Int64("place_id", row.PlaceID).
				Msg("Failed to persist place through secondary service")
			failures = append(failures, err)
			continue
		}
		saved = append(saved, *stored)
	}

	if len(failures) > 0 {
		return saved, apperrors.NewPartialPersistError(len(failures), len(rows), errors.Join(failures...))
	}
	return saved, nil
}

// withDistance orders rows by place id and, given a hint, annotates their
// distance and sorts them nearest first. Known and new rows therefore come
// back in the same order no matter which call wrote them.
func withDistance(rows []entities.Clinic, hint *entities.LatLng) []entities.NearbyClinic {
	out := make([]entities.NearbyClinic, 0, len(rows))
	for _, row := range rows {
		nc := entities.NearbyClinic{Clinic: row}
		if hint != nil {
			nc.DistanceKm = utils.HaversineKm(hint.Lat, hint.Lng, row.Latitude, row.Longitude)
		}
		out = append(out, nc)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PlaceID < out[j].PlaceID })
	if hint != nil {
		sortByDistance(out)
	}
	return out
}
