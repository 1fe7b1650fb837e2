package services

import (
	"context"
	"sync"

	"github.com/clinicfinder/backend/internal/domain/repositories"
	apperrors "github.com/clinicfinder/backend/pkg/errors"
)

// MaxIDAllocator assigns place ids from max(place_id)+1 upward. Allocation is
// serialized and an in-process high-water mark is kept, so concurrent persists
// in one process never hand out the same id even before their rows land.
// Stores with a native sequence should use their own allocator instead.
type MaxIDAllocator struct {
	repo repositories.ClinicRepository

	mu   sync.Mutex
	next int64
}

var _ repositories.PlaceIDAllocator = (*MaxIDAllocator)(nil)

func NewMaxIDAllocator(repo repositories.ClinicRepository) *MaxIDAllocator {
	return &MaxIDAllocator{repo: repo}
}

// Allocate reserves n consecutive ids
func (a *MaxIDAllocator) Allocate(ctx context.Context, n int) ([]int64, error) {
	if n <= 0 {
		return nil, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	maxID, err := a.repo.FindMaxPlaceID(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to read max place id", err)
	}
	if a.next <= maxID {
		a.next = maxID + 1
	}

	ids := make([]int64, n)
	for i := range ids {
		ids[i] = a.next
		a.next++
	}
	return ids, nil
}
