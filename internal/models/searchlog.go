package models

import "time"

// SearchLog is an append-only record of a donor search, kept for abuse
// monitoring and admin reporting. It stores the raw (unmasked) query
// parameters, never the returned donors.
type SearchLog struct {
	ID           string    `json:"id"`
	BloodType    string    `json:"blood_type"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	RadiusKm     float64   `json:"radius_km"`
	ResultsCount int       `json:"results_count"`
	ClientIP     string    `json:"client_ip,omitempty"`
	SearchedAt   time.Time `json:"searched_at"`
}

type BloodTypeCount struct {
	BloodType string `json:"blood_type"`
	Count     int64  `json:"count"`
}

type CityCount struct {
	City  string `json:"city"`
	Count int64  `json:"count"`
}

// DonorStats is the admin dashboard snapshot.
type DonorStats struct {
	TotalDonors        int64            `json:"total_donors"`
	DonorsByBloodType  []BloodTypeCount `json:"donors_by_blood_type"`
	RecentDonors       []Donor          `json:"recent_donors"`
	SearchCount        int64            `json:"search_count"`
	TodayRegistrations int64            `json:"today_registrations"`
	TopCities          []CityCount      `json:"top_cities"`
	ActiveConnections  int              `json:"active_connections"`
}
