package booking

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainbooking "carrental/internal/domain/booking"
)

func TestCancelBooking(t *testing.T) {
	t.Parallel()

	t.Run("owner cancels a pending booking", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		vehicle := e.seedCar(t, 5000)
		b := e.seedBooking(t, renter.UserID, vehicle.ID, domainbooking.StatusPending, day(2024, 6, 1), day(2024, 6, 3))

		result, err := e.cancelHandler().Handle(context.Background(), CancelBookingCommand{
			Requester: renter,
			BookingID: int64(b.ID),
		})
		require.NoError(t, err)
		assert.Equal(t, string(domainbooking.StatusCancelled), result.Status)

		_, err = e.bookings.ByID(context.Background(), b.ID)
		assert.ErrorIs(t, err, domainbooking.ErrBookingNotFound)
	})

	t.Run("cancelling an approved booking frees the car", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		vehicle := e.seedCar(t, 5000)
		vehicle.MarkUnavailable(day(2024, 5, 1))
		require.NoError(t, e.cars.Save(context.Background(), vehicle))
		b := e.seedBooking(t, renter.UserID, vehicle.ID, domainbooking.StatusApproved, day(2024, 6, 1), day(2024, 6, 3))

		_, err := e.cancelHandler().Handle(context.Background(), CancelBookingCommand{
			Requester: renter,
			BookingID: int64(b.ID),
		})
		require.NoError(t, err)

		stored, err := e.cars.ByID(context.Background(), vehicle.ID)
		require.NoError(t, err)
		assert.True(t, stored.Available)
	})

	t.Run("administrator may cancel any booking", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		vehicle := e.seedCar(t, 5000)
		b := e.seedBooking(t, renter.UserID, vehicle.ID, domainbooking.StatusPending, day(2024, 6, 1), day(2024, 6, 3))

		_, err := e.cancelHandler().Handle(context.Background(), CancelBookingCommand{
			Requester: admin,
			BookingID: int64(b.ID),
		})
		assert.NoError(t, err)
	})

	t.Run("stranger may not cancel", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		vehicle := e.seedCar(t, 5000)
		b := e.seedBooking(t, renter.UserID, vehicle.ID, domainbooking.StatusPending, day(2024, 6, 1), day(2024, 6, 3))

		_, err := e.cancelHandler().Handle(context.Background(), CancelBookingCommand{
			Requester: renter2,
			BookingID: int64(b.ID),
		})
		assert.ErrorIs(t, err, domainbooking.ErrForbidden)

		stored, err := e.bookings.ByID(context.Background(), b.ID)
		require.NoError(t, err)
		assert.Equal(t, domainbooking.StatusPending, stored.Status)
	})

	t.Run("paid bookings never cancel", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		vehicle := e.seedCar(t, 5000)
		b := e.seedBooking(t, renter.UserID, vehicle.ID, domainbooking.StatusPaid, day(2024, 6, 1), day(2024, 6, 3))

		_, err := e.cancelHandler().Handle(context.Background(), CancelBookingCommand{
			Requester: renter,
			BookingID: int64(b.ID),
		})
		assert.ErrorIs(t, err, domainbooking.ErrInvalidTransition)

		_, err = e.bookings.ByID(context.Background(), b.ID)
		assert.NoError(t, err)
	})

	t.Run("unknown booking", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		_, err := e.cancelHandler().Handle(context.Background(), CancelBookingCommand{
			Requester: renter,
			BookingID: 404,
		})
		assert.ErrorIs(t, err, domainbooking.ErrBookingNotFound)
	})
}
