package payment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainbooking "carrental/internal/domain/booking"
)

func TestReconcile(t *testing.T) {
	t.Parallel()

	t.Run("success moves approved booking to paid", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		b := e.seedBooking(t, renter.UserID, domainbooking.StatusApproved, "pi_1")

		outcome, err := e.reconciler().Reconcile(context.Background(), int64(b.ID), true)
		require.NoError(t, err)
		assert.Equal(t, string(domainbooking.StatusPaid), outcome.Status)
		assert.False(t, outcome.Replayed)

		stored, err := e.bookings.ByID(context.Background(), b.ID)
		require.NoError(t, err)
		assert.Equal(t, domainbooking.StatusPaid, stored.Status)

		vehicle, err := e.cars.ByID(context.Background(), b.CarID)
		require.NoError(t, err)
		assert.False(t, vehicle.Available)
	})

	t.Run("failure moves approved booking to rejected", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		b := e.seedBooking(t, renter.UserID, domainbooking.StatusApproved, "pi_1")

		outcome, err := e.reconciler().Reconcile(context.Background(), int64(b.ID), false)
		require.NoError(t, err)
		assert.Equal(t, string(domainbooking.StatusRejected), outcome.Status)

		stored, err := e.bookings.ByID(context.Background(), b.ID)
		require.NoError(t, err)
		assert.Equal(t, domainbooking.StatusRejected, stored.Status)
	})

	t.Run("replayed success is a no-op", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		b := e.seedBooking(t, renter.UserID, domainbooking.StatusApproved, "pi_1")

		first, err := e.reconciler().Reconcile(context.Background(), int64(b.ID), true)
		require.NoError(t, err)
		assert.False(t, first.Replayed)

		second, err := e.reconciler().Reconcile(context.Background(), int64(b.ID), true)
		require.NoError(t, err)
		assert.True(t, second.Replayed)
		assert.Equal(t, string(domainbooking.StatusPaid), second.Status)
	})

	t.Run("replayed failure is a no-op", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		b := e.seedBooking(t, renter.UserID, domainbooking.StatusRejected, "pi_1")

		outcome, err := e.reconciler().Reconcile(context.Background(), int64(b.ID), false)
		require.NoError(t, err)
		assert.True(t, outcome.Replayed)
	})

	t.Run("success for a pending booking is rejected", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		b := e.seedBooking(t, renter.UserID, domainbooking.StatusPending, "pi_1")

		_, err := e.reconciler().Reconcile(context.Background(), int64(b.ID), true)
		assert.ErrorIs(t, err, domainbooking.ErrInvalidTransition)

		stored, err := e.bookings.ByID(context.Background(), b.ID)
		require.NoError(t, err)
		assert.Equal(t, domainbooking.StatusPending, stored.Status)
	})

	t.Run("unknown booking", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		_, err := e.reconciler().Reconcile(context.Background(), 404, true)
		assert.ErrorIs(t, err, domainbooking.ErrBookingNotFound)
	})
}

func TestNotificationHandler(t *testing.T) {
	t.Parallel()

	t.Run("applies the outcome", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		b := e.seedBooking(t, renter.UserID, domainbooking.StatusApproved, "pi_1")
		handler := &NotificationHandler{Reconciler: e.reconciler()}

		outcome, err := handler.Handle(context.Background(), NotificationCommand{
			BookingID: int64(b.ID),
			IntentID:  "pi_1",
			Succeeded: true,
		})
		require.NoError(t, err)
		assert.Equal(t, string(domainbooking.StatusPaid), outcome.Status)
	})

	t.Run("drops notifications for vanished bookings", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		handler := &NotificationHandler{Reconciler: e.reconciler()}

		outcome, err := handler.Handle(context.Background(), NotificationCommand{
			BookingID: 404,
			IntentID:  "pi_1",
			Succeeded: true,
		})
		require.NoError(t, err)
		assert.True(t, outcome.Replayed)
	})

	t.Run("surfaces guard violations", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		b := e.seedBooking(t, renter.UserID, domainbooking.StatusPending, "pi_1")
		handler := &NotificationHandler{Reconciler: e.reconciler()}

		_, err := handler.Handle(context.Background(), NotificationCommand{
			BookingID: int64(b.ID),
			IntentID:  "pi_1",
			Succeeded: true,
		})
		assert.ErrorIs(t, err, domainbooking.ErrInvalidTransition)
	})
}
