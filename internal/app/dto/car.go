package dto

import (
	"time"

	domaincar "carrental/internal/domain/car"
)

type CarSummary struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Brand       string    `json:"brand"`
	PricePerDay MoneyDTO  `json:"price_per_day"`
	Available   bool      `json:"available"`
	ImageURL    string    `json:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type CarCollection struct {
	Items  []CarSummary `json:"items"`
	Total  int          `json:"total"`
	Offset int          `json:"offset"`
	Limit  int          `json:"limit"`
}

func MapCarSummary(c *domaincar.Car) CarSummary {
	return CarSummary{
		ID:          int64(c.ID),
		Name:        c.Name,
		Brand:       c.Brand,
		PricePerDay: MapMoney(c.PricePerDay),
		Available:   c.Available,
		ImageURL:    c.ImageURL,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}
