package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/hemolink/hemolink-backend/internal/models"
)

// ErrDonorNotFound is returned when a donor id does not exist.
var ErrDonorNotFound = errors.New("donor not found")

const donorColumns = `id, first_name, phone_number, blood_type, latitude, longitude,
	address, city, country, is_verified, is_available, created_at, updated_at`

// DonorStore is the PostgreSQL-backed donor repository.
type DonorStore struct {
	db *sql.DB
}

func NewDonorStore(db *sql.DB) *DonorStore {
	return &DonorStore{db: db}
}

// UpsertByPhone inserts a donor, or updates the existing record when the
// phone number is already registered. Returns the stored donor.
func (s *DonorStore) UpsertByPhone(ctx context.Context, d *models.Donor) (*models.Donor, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO donors (
			first_name, phone_number, blood_type, latitude, longitude,
			address, city, country, is_verified, is_available
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (phone_number) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			blood_type = EXCLUDED.blood_type,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			address = EXCLUDED.address,
			city = EXCLUDED.city,
			country = EXCLUDED.country,
			is_verified = EXCLUDED.is_verified,
			is_available = EXCLUDED.is_available,
			updated_at = NOW()
		RETURNING `+donorColumns,
		d.FirstName, d.PhoneNumber, d.BloodType, d.Latitude, d.Longitude,
		nullable(d.Address), nullable(d.City), d.Country, d.IsVerified, d.IsAvailable,
	)

	stored, err := scanDonor(row)
	if err != nil {
		return nil, fmt.Errorf("upserting donor: %w", err)
	}
	return stored, nil
}

// GetByID returns a single donor or ErrDonorNotFound.
func (s *DonorStore) GetByID(ctx context.Context, id string) (*models.Donor, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+donorColumns+` FROM donors WHERE id = $1`, id)

	d, err := scanDonor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDonorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching donor: %w", err)
	}
	return d, nil
}

// ListAvailable returns all available donors, newest first.
func (s *DonorStore) ListAvailable(ctx context.Context) ([]models.Donor, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+donorColumns+` FROM donors WHERE is_available = TRUE ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing donors: %w", err)
	}
	defer rows.Close()

	return collectDonors(rows)
}

// QueryByFilter returns the candidate set for the search engine: donors
// matching the blood type (or all types for the "ANY" wildcard), optionally
// restricted to available and verified records. Distance filtering happens
// in the search engine, not here.
func (s *DonorStore) QueryByFilter(ctx context.Context, bloodType string, availableOnly, verifiedOnly bool) ([]models.Donor, error) {
	query := `SELECT ` + donorColumns + ` FROM donors WHERE 1=1`
	var args []interface{}

	if !strings.EqualFold(bloodType, models.BloodTypeAny) {
		args = append(args, bloodType)
		query += fmt.Sprintf(" AND blood_type = $%d", len(args))
	}
	if availableOnly {
		query += " AND is_available = TRUE"
	}
	if verifiedOnly {
		query += " AND is_verified = TRUE"
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying donors: %w", err)
	}
	defer rows.Close()

	return collectDonors(rows)
}

// Update replaces a donor's attributes. The phone number is updatable here;
// the UNIQUE constraint still guards against collisions.
func (s *DonorStore) Update(ctx context.Context, id string, d *models.Donor) (*models.Donor, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE donors SET
			first_name = $2,
			phone_number = $3,
			blood_type = $4,
			latitude = $5,
			longitude = $6,
			address = $7,
			city = $8,
			country = $9,
			is_verified = $10,
			is_available = $11,
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+donorColumns,
		id, d.FirstName, d.PhoneNumber, d.BloodType, d.Latitude, d.Longitude,
		nullable(d.Address), nullable(d.City), d.Country, d.IsVerified, d.IsAvailable,
	)

	stored, err := scanDonor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDonorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("updating donor: %w", err)
	}
	return stored, nil
}

// SetVerified flips the verification flag on a donor.
func (s *DonorStore) SetVerified(ctx context.Context, id string, verified bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE donors SET is_verified = $2, updated_at = NOW() WHERE id = $1`, id, verified)
	if err != nil {
		return fmt.Errorf("verifying donor: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrDonorNotFound
	}
	return nil
}

// Delete removes a donor record (admin only).
func (s *DonorStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM donors WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting donor: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrDonorNotFound
	}
	return nil
}

// AdminList returns donors for the admin dashboard with optional free-text
// and blood type filters.
func (s *DonorStore) AdminList(ctx context.Context, search, bloodType string) ([]models.Donor, error) {
	query := `SELECT ` + donorColumns + ` FROM donors WHERE 1=1`
	var args []interface{}

	if search != "" {
		args = append(args, "%"+search+"%")
		query += fmt.Sprintf(" AND (first_name ILIKE $%d OR phone_number ILIKE $%d OR city ILIKE $%d)",
			len(args), len(args), len(args))
	}
	if bloodType != "" && !strings.EqualFold(bloodType, "all") {
		args = append(args, bloodType)
		query += fmt.Sprintf(" AND blood_type = $%d", len(args))
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing donors: %w", err)
	}
	defer rows.Close()

	return collectDonors(rows)
}

// Stats builds the admin dashboard snapshot. ActiveConnections is filled in
// by the caller from the notification hub.
func (s *DonorStore) Stats(ctx context.Context) (*models.DonorStats, error) {
	stats := &models.DonorStats{}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM donors`).Scan(&stats.TotalDonors); err != nil {
		return nil, fmt.Errorf("counting donors: %w", err)
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM donors WHERE created_at >= CURRENT_DATE`).Scan(&stats.TodayRegistrations); err != nil {
		return nil, fmt.Errorf("counting today's registrations: %w", err)
	}

	byType, err := s.db.QueryContext(ctx,
		`SELECT blood_type, COUNT(*) FROM donors GROUP BY blood_type ORDER BY blood_type`)
	if err != nil {
		return nil, fmt.Errorf("counting donors by blood type: %w", err)
	}
	defer byType.Close()
	for byType.Next() {
		var c models.BloodTypeCount
		if err := byType.Scan(&c.BloodType, &c.Count); err != nil {
			return nil, err
		}
		stats.DonorsByBloodType = append(stats.DonorsByBloodType, c)
	}
	if err := byType.Err(); err != nil {
		return nil, err
	}

	recent, err := s.db.QueryContext(ctx,
		`SELECT `+donorColumns+` FROM donors ORDER BY created_at DESC LIMIT 5`)
	if err != nil {
		return nil, fmt.Errorf("fetching recent donors: %w", err)
	}
	defer recent.Close()
	stats.RecentDonors, err = collectDonors(recent)
	if err != nil {
		return nil, err
	}

	cities, err := s.db.QueryContext(ctx, `
		SELECT city, COUNT(*) FROM donors
		WHERE city IS NOT NULL
		GROUP BY city ORDER BY COUNT(*) DESC LIMIT 5`)
	if err != nil {
		return nil, fmt.Errorf("counting top cities: %w", err)
	}
	defer cities.Close()
	for cities.Next() {
		var c models.CityCount
		if err := cities.Scan(&c.City, &c.Count); err != nil {
			return nil, err
		}
		stats.TopCities = append(stats.TopCities, c)
	}
	if err := cities.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDonor(row rowScanner) (*models.Donor, error) {
	var d models.Donor
	var address, city sql.NullString
	err := row.Scan(
		&d.ID, &d.FirstName, &d.PhoneNumber, &d.BloodType, &d.Latitude, &d.Longitude,
		&address, &city, &d.Country, &d.IsVerified, &d.IsAvailable, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	d.Address = address.String
	d.City = city.String
	return &d, nil
}

func collectDonors(rows *sql.Rows) ([]models.Donor, error) {
	donors := []models.Donor{}
	for rows.Next() {
		d, err := scanDonor(rows)
		if err != nil {
			return nil, err
		}
		donors = append(donors, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return donors, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
