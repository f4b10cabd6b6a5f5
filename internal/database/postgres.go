package database

import (
	"database/sql"
	"log"
	"time"

	_ "github.com/lib/pq"
)

var PostgresDB *sql.DB

// ConnectPostgres connects to the PostgreSQL database and initializes the
// schema.
func ConnectPostgres(postgresURI string) error {
	var err error

	PostgresDB, err = sql.Open("postgres", postgresURI)
	if err != nil {
		return err
	}

	// Set connection pool settings
	PostgresDB.SetMaxOpenConns(25)
	PostgresDB.SetMaxIdleConns(5)
	PostgresDB.SetConnMaxLifetime(5 * time.Minute)

	// Test connection
	if err = PostgresDB.Ping(); err != nil {
		return err
	}

	log.Println("✅ Connected to PostgreSQL")

	if err = InitPostgresTables(); err != nil {
		return err
	}

	return nil
}

// InitPostgresTables creates all necessary tables if they don't exist
func InitPostgresTables() error {
	queries := []string{
		// Donors table. phone_number is UNIQUE so a repeat registration with
		// the same phone updates the existing record instead of duplicating it.
		`CREATE TABLE IF NOT EXISTS donors (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			first_name VARCHAR(100) NOT NULL,
			phone_number VARCHAR(20) NOT NULL UNIQUE,
			blood_type VARCHAR(5) NOT NULL CHECK (blood_type IN ('A+', 'A-', 'B+', 'B-', 'AB+', 'AB-', 'O+', 'O-')),
			latitude DECIMAL(10, 8) NOT NULL,
			longitude DECIMAL(11, 8) NOT NULL,
			address TEXT,
			city VARCHAR(100),
			country VARCHAR(100) NOT NULL DEFAULT 'Kenya',
			is_verified BOOLEAN NOT NULL DEFAULT FALSE,
			is_available BOOLEAN NOT NULL DEFAULT TRUE
		)`,

		// Search logs table (append-only, admin reporting + abuse monitoring)
		`CREATE TABLE IF NOT EXISTS search_logs (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			blood_type VARCHAR(5) NOT NULL,
			latitude DECIMAL(10, 8) NOT NULL,
			longitude DECIMAL(11, 8) NOT NULL,
			radius_km DECIMAL(8, 2) NOT NULL,
			results_count INTEGER NOT NULL DEFAULT 0,
			client_ip VARCHAR(45),
			searched_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		// Create indexes for better performance
		`CREATE INDEX IF NOT EXISTS idx_donors_blood_type ON donors(blood_type)`,
		`CREATE INDEX IF NOT EXISTS idx_donors_latitude ON donors(latitude)`,
		`CREATE INDEX IF NOT EXISTS idx_donors_longitude ON donors(longitude)`,
		`CREATE INDEX IF NOT EXISTS idx_donors_city ON donors(city)`,
		`CREATE INDEX IF NOT EXISTS idx_donors_created_at ON donors(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_search_logs_searched_at ON search_logs(searched_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_search_logs_blood_type ON search_logs(blood_type)`,
		`CREATE INDEX IF NOT EXISTS idx_search_logs_client_ip ON search_logs(client_ip)`,
	}

	for _, query := range queries {
		if _, err := PostgresDB.Exec(query); err != nil {
			return err
		}
	}

	log.Println("✅ PostgreSQL tables initialized")
	return nil
}

// DisconnectPostgres closes the PostgreSQL connection
func DisconnectPostgres() error {
	if PostgresDB != nil {
		return PostgresDB.Close()
	}
	return nil
}
