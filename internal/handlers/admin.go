package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hemolink/hemolink-backend/internal/middleware"
	"github.com/hemolink/hemolink-backend/internal/repository"
	"github.com/hemolink/hemolink-backend/internal/services"
	"github.com/hemolink/hemolink-backend/pkg/utils"
)

// AdminSigninRequest carries the dashboard password.
type AdminSigninRequest struct {
	Password string `json:"password"`
}

// AdminSigninResponse returns the session token on success.
type AdminSigninResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Token   string `json:"token,omitempty"`
}

// AdminSignin verifies the dashboard password and opens a Redis-backed
// session.
func AdminSignin(w http.ResponseWriter, r *http.Request) {
	if cfg.AdminPasswordHash == "" {
		writeMessage(w, http.StatusServiceUnavailable, false, "Admin access is not configured")
		return
	}

	var req AdminSigninRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, false, "Invalid request body")
		return
	}

	ok, err := utils.VerifyPassword(req.Password, cfg.AdminPasswordHash)
	if err != nil || !ok {
		writeMessage(w, http.StatusUnauthorized, false, "Invalid password")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	token, err := services.CreateAdminSession(ctx)
	if err != nil {
		writeMessage(w, http.StatusServiceUnavailable, false, "Failed to create session")
		return
	}

	writeJSON(w, http.StatusOK, AdminSigninResponse{Success: true, Token: token})
}

// requireAdmin validates the bearer token; writes 401 and returns false on
// failure.
func requireAdmin(w http.ResponseWriter, r *http.Request) bool {
	token := extractBearerToken(r.Header.Get("Authorization"))
	if !services.ValidateAdminSession(r.Context(), token) {
		writeMessage(w, http.StatusUnauthorized, false, "Admin session required")
		return false
	}
	return true
}

func extractBearerToken(header string) string {
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

// GetAdminStats returns the dashboard snapshot.
func GetAdminStats(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	stats, err := donorStore.Stats(ctx)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, false, "Failed to fetch stats")
		return
	}

	searchCount, err := searchLogs.Count(ctx)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, false, "Failed to fetch stats")
		return
	}
	stats.SearchCount = searchCount
	stats.ActiveConnections = donorHub.ConnectionCount()

	writeJSON(w, http.StatusOK, stats)
}

// AdminGetDonors lists donors with optional free-text and blood type
// filters, unmasked (admin visibility).
func AdminGetDonors(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	donors, err := donorStore.AdminList(ctx,
		strings.TrimSpace(r.URL.Query().Get("search")),
		strings.TrimSpace(r.URL.Query().Get("blood_type")))
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, false, "Failed to fetch donors")
		return
	}
	writeJSON(w, http.StatusOK, donors)
}

// AdminGetSearchActivity lists recent search log entries. A missing
// search_logs table yields an empty list rather than an error.
func AdminGetSearchActivity(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	filter := repository.SearchLogFilter{
		BloodType: strings.TrimSpace(r.URL.Query().Get("blood_type")),
	}
	if from := r.URL.Query().Get("date_from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			filter.DateFrom = t
		}
	}
	if to := r.URL.Query().Get("date_to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			filter.DateTo = t
		}
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	logs, err := searchLogs.Recent(ctx, filter)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, false, "Failed to fetch search activity")
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// AdminVerifyDonorRequest flips a donor's verification flag.
type AdminVerifyDonorRequest struct {
	ID       string `json:"id"`
	Verified *bool  `json:"verified,omitempty"`
}

// AdminVerifyDonor marks a donor verified (or unverified).
func AdminVerifyDonor(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	var req AdminVerifyDonorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, false, "Invalid request body")
		return
	}
	if _, err := uuid.Parse(req.ID); err != nil {
		writeMessage(w, http.StatusBadRequest, false, "Invalid donor id")
		return
	}
	verified := true
	if req.Verified != nil {
		verified = *req.Verified
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	err := donorStore.SetVerified(ctx, req.ID, verified)
	if errors.Is(err, repository.ErrDonorNotFound) {
		writeMessage(w, http.StatusNotFound, false, "Donor not found")
		return
	}
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, false, "Failed to update donor")
		return
	}
	writeMessage(w, http.StatusOK, true, "Donor verification updated")
}

// AdminDeleteDonor removes a donor record.
func AdminDeleteDonor(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if _, err := uuid.Parse(id); err != nil {
		writeMessage(w, http.StatusBadRequest, false, "Invalid donor id")
		return
	}

	ctx, cancel := requestContext(r)
	defer cancel()

	err := donorStore.Delete(ctx, id)
	if errors.Is(err, repository.ErrDonorNotFound) {
		writeMessage(w, http.StatusNotFound, false, "Donor not found")
		return
	}
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, false, "Failed to delete donor")
		return
	}
	writeMessage(w, http.StatusOK, true, "Donor deleted successfully")
}

// AdminUnblockIPRequest names the IP to unblock.
type AdminUnblockIPRequest struct {
	IPAddress string `json:"ip_address"`
}

// AdminUnblockIP removes an IP from the Redis block list.
func AdminUnblockIP(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	var req AdminUnblockIPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.IPAddress) == "" {
		writeMessage(w, http.StatusBadRequest, false, "ip_address is required")
		return
	}

	if err := middleware.UnblockIP(strings.TrimSpace(req.IPAddress)); err != nil {
		writeMessage(w, http.StatusInternalServerError, false, "Failed to unblock IP")
		return
	}
	writeMessage(w, http.StatusOK, true, "IP unblocked")
}
