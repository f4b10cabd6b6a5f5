package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/hemolink/hemolink-backend/internal/models"
)

// SearchLogStore appends and reads the search audit log. Reads degrade
// leniently: a missing search_logs table yields empty results instead of an
// error, so a half-provisioned database never takes down admin reporting.
type SearchLogStore struct {
	db *sql.DB
}

func NewSearchLogStore(db *sql.DB) *SearchLogStore {
	return &SearchLogStore{db: db}
}

// Append records one search. Callers treat failures as best-effort; this
// method still returns the error so they can log it.
func (s *SearchLogStore) Append(ctx context.Context, entry *models.SearchLog) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO search_logs (blood_type, latitude, longitude, radius_km, results_count, client_ip)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.BloodType, entry.Latitude, entry.Longitude, entry.RadiusKm,
		entry.ResultsCount, nullable(entry.ClientIP),
	)
	if err != nil {
		return fmt.Errorf("appending search log: %w", err)
	}
	return nil
}

// SearchLogFilter narrows Recent results.
type SearchLogFilter struct {
	BloodType string
	DateFrom  time.Time
	DateTo    time.Time
}

// Recent returns up to 100 search log entries, newest first.
func (s *SearchLogStore) Recent(ctx context.Context, filter SearchLogFilter) ([]models.SearchLog, error) {
	query := `
		SELECT id, blood_type, latitude, longitude, radius_km, results_count, client_ip, searched_at
		FROM search_logs WHERE 1=1`
	var args []interface{}

	if filter.BloodType != "" && filter.BloodType != "all" {
		args = append(args, filter.BloodType)
		query += fmt.Sprintf(" AND blood_type = $%d", len(args))
	}
	if !filter.DateFrom.IsZero() {
		args = append(args, filter.DateFrom)
		query += fmt.Sprintf(" AND searched_at >= $%d", len(args))
	}
	if !filter.DateTo.IsZero() {
		args = append(args, filter.DateTo)
		query += fmt.Sprintf(" AND searched_at <= $%d", len(args))
	}
	query += " ORDER BY searched_at DESC LIMIT 100"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		if isUndefinedTable(err) {
			return []models.SearchLog{}, nil
		}
		return nil, fmt.Errorf("fetching search activity: %w", err)
	}
	defer rows.Close()

	logs := []models.SearchLog{}
	for rows.Next() {
		var l models.SearchLog
		var clientIP sql.NullString
		if err := rows.Scan(&l.ID, &l.BloodType, &l.Latitude, &l.Longitude,
			&l.RadiusKm, &l.ResultsCount, &clientIP, &l.SearchedAt); err != nil {
			return nil, err
		}
		l.ClientIP = clientIP.String
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return logs, nil
}

// Count returns the total number of logged searches, or 0 when the table is
// missing.
func (s *SearchLogStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM search_logs`).Scan(&count)
	if err != nil {
		if isUndefinedTable(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("counting search logs: %w", err)
	}
	return count, nil
}

// isUndefinedTable reports whether err is PostgreSQL's undefined_table.
func isUndefinedTable(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "42P01"
}
