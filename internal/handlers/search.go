package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/hemolink/hemolink-backend/internal/services"
	"github.com/hemolink/hemolink-backend/pkg/clientip"
)

// SearchDonorsRequest mirrors the mobile client's search payload.
type SearchDonorsRequest struct {
	BloodType string  `json:"blood_type"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	RadiusKm  float64 `json:"radius_km"`
}

// defaultSearchRadiusKm applies when the client omits radius_km.
const defaultSearchRadiusKm = 50

// SearchDonors runs a rate-limited donor search and returns masked matches
// ordered nearest first.
func SearchDonors(w http.ResponseWriter, r *http.Request) {
	var req SearchDonorsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, false, "Invalid request body")
		return
	}

	if req.BloodType == "" {
		writeMessage(w, http.StatusBadRequest, false, "blood_type is required")
		return
	}
	if req.Latitude < -90 || req.Latitude > 90 || req.Longitude < -180 || req.Longitude > 180 {
		writeMessage(w, http.StatusBadRequest, false, "Invalid coordinates")
		return
	}
	if req.RadiusKm == 0 {
		req.RadiusKm = defaultSearchRadiusKm
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	matches, err := searcher.Search(ctx, services.SearchQuery{
		BloodType: req.BloodType,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		RadiusKm:  req.RadiusKm,
		ClientID:  clientip.FromRequest(r),
	})
	if errors.Is(err, services.ErrRateLimited) {
		writeMessage(w, http.StatusTooManyRequests, false,
			fmt.Sprintf("Search limit reached (%d per hour). Please try again later.", services.SearchRateLimit))
		return
	}
	if errors.Is(err, services.ErrRadiusTooSmall) {
		writeMessage(w, http.StatusBadRequest, false,
			fmt.Sprintf("radius_km must be at least %.0f", services.MinSearchRadiusKm))
		return
	}
	if err != nil {
		writeMessage(w, http.StatusServiceUnavailable, false, "Search is temporarily unavailable")
		return
	}

	writeJSON(w, http.StatusOK, matches)
}
