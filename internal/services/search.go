package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/hemolink/hemolink-backend/internal/models"
	"github.com/hemolink/hemolink-backend/pkg/geo"
	"github.com/hemolink/hemolink-backend/pkg/utils"
)

var (
	// ErrRateLimited means the client used up its hourly search allowance.
	ErrRateLimited = errors.New("search rate limit exceeded")
	// ErrRadiusTooSmall means the requested radius is under the 5km floor.
	ErrRadiusTooSmall = errors.New("search radius below minimum")
)

const (
	// MinSearchRadiusKm blocks tiny radii that would let a scraper sweep an
	// area point by point.
	MinSearchRadiusKm = 5.0

	// Wildcard searches get a tighter cap than targeted ones: a broad query
	// exposes more of the donor base, so it returns less.
	maxResultsAny      = 5
	maxResultsSpecific = 10
)

// SearchQuery is one donor search request.
type SearchQuery struct {
	BloodType string // concrete type or "ANY"
	Latitude  float64
	Longitude float64
	RadiusKm  float64
	ClientID  string
}

// DonorFinder is the slice of the donor repository the search engine needs.
type DonorFinder interface {
	QueryByFilter(ctx context.Context, bloodType string, availableOnly, verifiedOnly bool) ([]models.Donor, error)
}

// SearchLogSink receives the audit record for each search.
type SearchLogSink interface {
	Append(ctx context.Context, entry *models.SearchLog) error
}

// SearchEngine ranks donors by great-circle distance under blood-type and
// availability filters, behind a per-client rate limit.
type SearchEngine struct {
	donors          DonorFinder
	limiter         SearchLimiter
	logs            SearchLogSink
	requireVerified bool
}

func NewSearchEngine(donors DonorFinder, limiter SearchLimiter, logs SearchLogSink, requireVerified bool) *SearchEngine {
	return &SearchEngine{
		donors:          donors,
		limiter:         limiter,
		logs:            logs,
		requireVerified: requireVerified,
	}
}

// Search returns donors within the radius, nearest first, with masked phone
// numbers. Fails with ErrRateLimited or ErrRadiusTooSmall before touching
// the repository.
func (e *SearchEngine) Search(ctx context.Context, q SearchQuery) ([]models.DonorMatch, error) {
	if !e.limiter.Allow(ctx, q.ClientID) {
		return nil, ErrRateLimited
	}
	if q.RadiusKm < MinSearchRadiusKm {
		return nil, ErrRadiusTooSmall
	}

	bloodType := strings.ToUpper(strings.TrimSpace(q.BloodType))
	wildcard := bloodType == models.BloodTypeAny

	candidates, err := e.donors.QueryByFilter(ctx, bloodType, true, e.requireVerified)
	if err != nil {
		return nil, fmt.Errorf("searching donors: %w", err)
	}

	matches := make([]models.DonorMatch, 0, len(candidates))
	for _, d := range candidates {
		distance := geo.DistanceKm(q.Latitude, q.Longitude, d.Latitude, d.Longitude)
		if distance > q.RadiusKm {
			continue
		}
		matches = append(matches, models.DonorMatch{
			ID:          d.ID,
			FirstName:   d.FirstName,
			PhoneNumber: d.PhoneNumber,
			BloodType:   d.BloodType,
			City:        d.City,
			IsVerified:  d.IsVerified,
			DistanceKm:  distance,
		})
	}

	// Nearest first; ties broken by donor id so ordering is deterministic.
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].DistanceKm != matches[j].DistanceKm {
			return matches[i].DistanceKm < matches[j].DistanceKm
		}
		return matches[i].ID < matches[j].ID
	})

	limit := maxResultsSpecific
	if wildcard {
		limit = maxResultsAny
	}
	if len(matches) > limit {
		matches = matches[:limit]
	}

	for i := range matches {
		matches[i].PhoneNumber = utils.MaskPhone(matches[i].PhoneNumber)
	}

	// The audit entry keeps the raw query parameters. Logging is best-effort:
	// a failure here never fails the search.
	if err := e.logs.Append(ctx, &models.SearchLog{
		BloodType:    bloodType,
		Latitude:     q.Latitude,
		Longitude:    q.Longitude,
		RadiusKm:     q.RadiusKm,
		ResultsCount: len(matches),
		ClientIP:     q.ClientID,
	}); err != nil {
		log.Printf("failed to append search log: %v", err)
	}

	return matches, nil
}
