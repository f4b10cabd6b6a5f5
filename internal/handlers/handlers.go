package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hemolink/hemolink-backend/internal/config"
	"github.com/hemolink/hemolink-backend/internal/models"
	"github.com/hemolink/hemolink-backend/internal/repository"
	"github.com/hemolink/hemolink-backend/internal/services"
)

// DonorStore is the slice of the donor repository the HTTP layer uses.
type DonorStore interface {
	UpsertByPhone(ctx context.Context, d *models.Donor) (*models.Donor, error)
	GetByID(ctx context.Context, id string) (*models.Donor, error)
	ListAvailable(ctx context.Context) ([]models.Donor, error)
	Update(ctx context.Context, id string, d *models.Donor) (*models.Donor, error)
	SetVerified(ctx context.Context, id string, verified bool) error
	Delete(ctx context.Context, id string) error
	AdminList(ctx context.Context, search, bloodType string) ([]models.Donor, error)
	Stats(ctx context.Context) (*models.DonorStats, error)
}

// SearchLogReader serves the admin search-activity report.
type SearchLogReader interface {
	Recent(ctx context.Context, filter repository.SearchLogFilter) ([]models.SearchLog, error)
	Count(ctx context.Context) (int64, error)
}

// Searcher runs donor searches.
type Searcher interface {
	Search(ctx context.Context, q services.SearchQuery) ([]models.DonorMatch, error)
}

var (
	cfg        *config.Config
	donorStore DonorStore
	searchLogs SearchLogReader
	searcher   Searcher
	donorHub   *services.DonorHub
)

// Init wires the handler package's collaborators. Called once from main.
func Init(c *config.Config, store DonorStore, logs SearchLogReader, engine Searcher, hub *services.DonorHub) {
	cfg = c
	donorStore = store
	searchLogs = logs
	searcher = engine
	donorHub = hub
}

// MessageResponse is the JSON envelope for errors and simple acks.
type MessageResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, success bool, message string) {
	writeJSON(w, status, MessageResponse{Success: success, Message: message})
}

func requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), 10*time.Second)
}
