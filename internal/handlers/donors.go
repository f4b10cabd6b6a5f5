package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hemolink/hemolink-backend/internal/models"
	"github.com/hemolink/hemolink-backend/internal/repository"
)

// DonorRequest is the registration/update payload.
type DonorRequest struct {
	FirstName   string  `json:"first_name"`
	PhoneNumber string  `json:"phone_number"`
	BloodType   string  `json:"blood_type"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Address     string  `json:"address,omitempty"`
	City        string  `json:"city,omitempty"`
	Country     string  `json:"country,omitempty"`
	IsAvailable *bool   `json:"is_available,omitempty"`
}

func (req *DonorRequest) toDonor() (*models.Donor, string) {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)
	req.BloodType = strings.ToUpper(strings.TrimSpace(req.BloodType))

	if req.FirstName == "" {
		return nil, "first_name is required"
	}
	if req.PhoneNumber == "" {
		return nil, "phone_number is required"
	}
	if !models.IsValidBloodType(req.BloodType) {
		return nil, "blood_type must be one of: " + strings.Join(models.BloodTypes, ", ")
	}
	if req.Latitude < -90 || req.Latitude > 90 {
		return nil, "latitude must be between -90 and 90"
	}
	if req.Longitude < -180 || req.Longitude > 180 {
		return nil, "longitude must be between -180 and 180"
	}

	country := strings.TrimSpace(req.Country)
	if country == "" {
		country = "Kenya"
	}
	available := true
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}

	return &models.Donor{
		FirstName:   req.FirstName,
		PhoneNumber: req.PhoneNumber,
		BloodType:   req.BloodType,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Address:     strings.TrimSpace(req.Address),
		City:        strings.TrimSpace(req.City),
		Country:     country,
		IsAvailable: available,
	}, ""
}

// CreateDonor registers a donor. A repeat registration with the same phone
// number updates the existing record (upsert). Subscribers of the donor's
// blood type are notified only after the write is committed.
func CreateDonor(w http.ResponseWriter, r *http.Request) {
	var req DonorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, false, "Invalid request body")
		return
	}

	donor, msg := req.toDonor()
	if msg != "" {
		writeMessage(w, http.StatusBadRequest, false, msg)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	stored, err := donorStore.UpsertByPhone(ctx, donor)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, false, "Failed to register donor")
		return
	}

	donorHub.BroadcastNewDonor(stored)

	writeJSON(w, http.StatusCreated, stored)
}

// GetDonors returns all available donors, newest first.
func GetDonors(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := requestContext(r)
	defer cancel()

	donors, err := donorStore.ListAvailable(ctx)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, false, "Failed to fetch donors")
		return
	}
	writeJSON(w, http.StatusOK, donors)
}

// GetDonor returns a single donor by id.
func GetDonor(w http.ResponseWriter, r *http.Request) {
	id, ok := donorIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	donor, err := donorStore.GetByID(ctx, id)
	if errors.Is(err, repository.ErrDonorNotFound) {
		writeMessage(w, http.StatusNotFound, false, "Donor not found")
		return
	}
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, false, "Failed to fetch donor")
		return
	}
	writeJSON(w, http.StatusOK, donor)
}

// UpdateDonor replaces a donor's information.
func UpdateDonor(w http.ResponseWriter, r *http.Request) {
	id, ok := donorIDParam(w, r)
	if !ok {
		return
	}

	var req DonorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, false, "Invalid request body")
		return
	}

	donor, msg := req.toDonor()
	if msg != "" {
		writeMessage(w, http.StatusBadRequest, false, msg)
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	stored, err := donorStore.Update(ctx, id, donor)
	if errors.Is(err, repository.ErrDonorNotFound) {
		writeMessage(w, http.StatusNotFound, false, "Donor not found")
		return
	}
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, false, "Failed to update donor")
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

// donorIDParam extracts and validates the {donorID} route parameter.
func donorIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "donorID")
	if _, err := uuid.Parse(id); err != nil {
		writeMessage(w, http.StatusBadRequest, false, "Invalid donor id")
		return "", false
	}
	return id, true
}
