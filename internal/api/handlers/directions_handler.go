package handlers

import (
	"context"
	"net/http"

	"github.com/clinicfinder/backend/internal/domain/entities"
)

// DirectionsResolver returns a route between two points
type DirectionsResolver interface {
	GetDirections(ctx context.Context, origin, destination entities.LatLng) (*entities.DirectionsResult, error)
}

// DirectionsHandler handles route lookups
type DirectionsHandler struct {
	resolver DirectionsResolver
}

func NewDirectionsHandler(resolver DirectionsResolver) *DirectionsHandler {
	return &DirectionsHandler{resolver: resolver}
}

type directionsRequest struct {
	Origin      *entities.LatLng `json:"origin"`
	Destination *entities.LatLng `json:"destination"`
}

// GetDirections handles POST /api/directions
func (h *DirectionsHandler) GetDirections(w http.ResponseWriter, r *http.Request) {
	var req directionsRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if req.Origin == nil || req.Destination == nil {
		respondWithError(w, http.StatusBadRequest, "origin and destination are required")
		return
	}
	if !validCoordinate(req.Origin.Lat, req.Origin.Lng) || !validCoordinate(req.Destination.Lat, req.Destination.Lng) {
		respondWithError(w, http.StatusBadRequest, "origin or destination is out of range")
		return
	}

	result, err := h.resolver.GetDirections(r.Context(), *req.Origin, *req.Destination)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, result)
}
