package dto

import (
	"time"

	domainbooking "carrental/internal/domain/booking"
	domaincar "carrental/internal/domain/car"
	"carrental/internal/domain/shared/money"
)

type MoneyDTO struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type BookingSummary struct {
	ID        int64     `json:"id"`
	CarID     int64     `json:"car_id"`
	CarName   string    `json:"car_name,omitempty"`
	UserID    int64     `json:"user_id"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Total     MoneyDTO  `json:"total"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type BookingCollection struct {
	Items []BookingSummary `json:"items"`
}

func MapMoney(value money.Money) MoneyDTO {
	return MoneyDTO{
		Amount:   value.Amount,
		Currency: value.Currency,
	}
}

// MapBookingSummary renders a booking; vehicle may be nil when it was removed.
func MapBookingSummary(b *domainbooking.Booking, vehicle *domaincar.Car) BookingSummary {
	out := BookingSummary{
		ID:        int64(b.ID),
		CarID:     int64(b.CarID),
		UserID:    b.UserID,
		StartDate: b.Range.Start,
		EndDate:   b.Range.End,
		Total:     MapMoney(b.Total),
		Status:    string(b.Status),
		CreatedAt: b.CreatedAt,
	}
	if vehicle != nil {
		out.CarName = vehicle.Name
	}
	return out
}
