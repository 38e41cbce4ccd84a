package payment

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domainbooking "carrental/internal/domain/booking"
	domaincar "carrental/internal/domain/car"
	"carrental/internal/domain/identity"
	domainrange "carrental/internal/domain/shared/daterange"
	"carrental/internal/domain/shared/money"
	"carrental/internal/infra/storage/memory"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type env struct {
	factory  *memory.Factory
	cars     *memory.CarRepository
	bookings *memory.BookingRepository
	box      *memory.Outbox
}

func newEnv(t *testing.T) *env {
	t.Helper()
	cars := memory.NewCarRepository()
	bookings := memory.NewBookingRepository()
	return &env{
		factory:  memory.NewFactory(cars, bookings),
		cars:     cars,
		bookings: bookings,
		box:      memory.NewOutbox(),
	}
}

func (e *env) seedBooking(t *testing.T, userID int64, status domainbooking.Status, intentID string) *domainbooking.Booking {
	t.Helper()
	carID, err := e.cars.NextID(context.Background())
	require.NoError(t, err)
	c, err := domaincar.NewCar(domaincar.CreateParams{
		ID:          carID,
		Name:        "Corolla",
		Brand:       "Toyota",
		PricePerDay: money.Must(5000, "USD"),
		CreatedAt:   day(2024, 1, 1),
	})
	require.NoError(t, err)
	require.NoError(t, e.cars.Save(context.Background(), c))

	id, err := e.bookings.NextID(context.Background())
	require.NoError(t, err)
	b := &domainbooking.Booking{
		ID:              id,
		UserID:          userID,
		CarID:           carID,
		Range:           domainrange.Must(day(2024, 6, 1), day(2024, 6, 3)),
		Total:           money.Must(15000, "USD"),
		Status:          status,
		PaymentIntentID: intentID,
		CreatedAt:       day(2024, 1, 2),
		UpdatedAt:       day(2024, 1, 2),
	}
	require.NoError(t, e.bookings.Save(context.Background(), b))
	return b
}

func (e *env) reconciler() *Reconciler {
	return &Reconciler{UoWFactory: e.factory, Outbox: e.box}
}

var (
	renter = identity.Principal{UserID: 7}
	admin  = identity.Principal{UserID: 1, Admin: true}
)
