package models

import "time"

// BloodTypes is the closed set of supported ABO/Rh combinations.
var BloodTypes = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

// BloodTypeAny is the search wildcard matching every blood type.
const BloodTypeAny = "ANY"

// IsValidBloodType reports whether bt is one of the eight supported types.
// The "ANY" wildcard is not a donor blood type and is rejected here.
func IsValidBloodType(bt string) bool {
	for _, t := range BloodTypes {
		if bt == t {
			return true
		}
	}
	return false
}

type Donor struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	FirstName   string `json:"first_name"`
	PhoneNumber string `json:"phone_number"`
	BloodType   string `json:"blood_type"`

	// Location fields
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
	City      string  `json:"city,omitempty"`
	Country   string  `json:"country"`

	IsVerified  bool `json:"is_verified"`
	IsAvailable bool `json:"is_available"`
}

// DonorMatch is a single search result. PhoneNumber is masked before it
// leaves the search engine.
type DonorMatch struct {
	ID          string  `json:"id"`
	FirstName   string  `json:"first_name"`
	PhoneNumber string  `json:"phone_number"`
	BloodType   string  `json:"blood_type"`
	City        string  `json:"city,omitempty"`
	IsVerified  bool    `json:"is_verified"`
	DistanceKm  float64 `json:"distance_km"`
}
