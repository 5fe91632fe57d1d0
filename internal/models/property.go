package models

import (
	"time"

	"github.com/google/uuid"
)

type Property struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Title       string    `json:"title"`
	AddressLine string    `json:"address_line"`
	City        string    `json:"city"`
	State       string    `json:"state"`
	Zip         string    `json:"zip"`
	MonthlyRent float64   `json:"monthly_rent"`
	Bedrooms    int       `json:"bedrooms"`
	Bathrooms   float64   `json:"bathrooms"`
	IsListed    bool      `json:"is_listed"`

	SecurityDeposit float64 `json:"security_deposit"`
	ApplicationFee  float64 `json:"application_fee"`
	LeaseTermMonths int     `json:"lease_term_months"`
	PetsAllowed     bool    `json:"pets_allowed"`
	SmokingAllowed  bool    `json:"smoking_allowed"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot freezes the listing fields an application captures at creation.
func (p *Property) Snapshot(now time.Time) PropertySnapshot {
	return PropertySnapshot{
		PropertyID:      p.ID,
		OwnerID:         p.OwnerID,
		Title:           p.Title,
		AddressLine:     p.AddressLine,
		City:            p.City,
		State:           p.State,
		Zip:             p.Zip,
		MonthlyRent:     p.MonthlyRent,
		SecurityDeposit: p.SecurityDeposit,
		ApplicationFee:  p.ApplicationFee,
		LeaseTermMonths: p.LeaseTermMonths,
		PetsAllowed:     p.PetsAllowed,
		SmokingAllowed:  p.SmokingAllowed,
		CapturedAt:      now,
	}
}
