package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"carrental/internal/domain/identity"
	"carrental/internal/infra/storage/memory"

	domainbooking "carrental/internal/domain/booking"
	domaincar "carrental/internal/domain/car"
	domainrange "carrental/internal/domain/shared/daterange"
	"carrental/internal/domain/shared/money"
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

func (e *env) seedCar(t *testing.T, rate int64) *domaincar.Car {
	t.Helper()
	id, err := e.cars.NextID(context.Background())
	require.NoError(t, err)
	c, err := domaincar.NewCar(domaincar.CreateParams{
		ID:          id,
		Name:        "Corolla",
		Brand:       "Toyota",
		PricePerDay: money.Must(rate, "USD"),
		CreatedAt:   day(2024, 1, 1),
	})
	require.NoError(t, err)
	require.NoError(t, e.cars.Save(context.Background(), c))
	return c
}

func (e *env) seedBooking(t *testing.T, userID int64, carID domaincar.CarID, status domainbooking.Status, start, end time.Time) *domainbooking.Booking {
	t.Helper()
	id, err := e.bookings.NextID(context.Background())
	require.NoError(t, err)
	b := &domainbooking.Booking{
		ID:        id,
		UserID:    userID,
		CarID:     carID,
		Range:     domainrange.Must(start, end),
		Total:     money.Must(1000, "USD"),
		Status:    status,
		CreatedAt: day(2024, 1, 2),
		UpdatedAt: day(2024, 1, 2),
	}
	require.NoError(t, e.bookings.Save(context.Background(), b))
	return b
}

func (e *env) createHandler() *CreateBookingHandler {
	return &CreateBookingHandler{UoWFactory: e.factory, Outbox: e.box}
}

func (e *env) approveHandler() *ApproveBookingHandler {
	return &ApproveBookingHandler{UoWFactory: e.factory, Outbox: e.box}
}

func (e *env) rejectHandler() *RejectBookingHandler {
	return &RejectBookingHandler{UoWFactory: e.factory, Outbox: e.box}
}

func (e *env) cancelHandler() *CancelBookingHandler {
	return &CancelBookingHandler{UoWFactory: e.factory, Outbox: e.box}
}

var (
	renter  = identity.Principal{UserID: 7}
	renter2 = identity.Principal{UserID: 8}
	admin   = identity.Principal{UserID: 1, Admin: true}
)

func identityFor(uid int64) identity.Principal {
	return identity.Principal{UserID: uid}
}
