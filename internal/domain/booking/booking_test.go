package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carrental/internal/domain/car"
	"carrental/internal/domain/identity"
	"carrental/internal/domain/shared/daterange"
	"carrental/internal/domain/shared/money"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testCar(t *testing.T) *car.Car {
	t.Helper()
	c, err := car.NewCar(car.CreateParams{
		ID:          1,
		Name:        "Model 3",
		Brand:       "Tesla",
		PricePerDay: money.Must(5000, "USD"),
		CreatedAt:   day(2024, 1, 1),
	})
	require.NoError(t, err)
	return c
}

func testBooking(t *testing.T) *Booking {
	t.Helper()
	b, err := NewBooking(CreateParams{
		ID:        10,
		Requester: identity.Principal{UserID: 7},
		Vehicle:   testCar(t),
		Range:     daterange.Must(day(2024, 6, 1), day(2024, 6, 3)),
		CreatedAt: day(2024, 5, 20),
	})
	require.NoError(t, err)
	return b
}

func TestNewBooking(t *testing.T) {
	t.Parallel()

	t.Run("totals inclusive days times daily rate", func(t *testing.T) {
		t.Parallel()
		b := testBooking(t)
		assert.Equal(t, StatusPending, b.Status)
		assert.Equal(t, money.Must(15000, "USD"), b.Total)
		assert.Len(t, b.PendingEvents(), 1)
	})

	t.Run("single day booking costs one day", func(t *testing.T) {
		t.Parallel()
		b, err := NewBooking(CreateParams{
			ID:        11,
			Requester: identity.Principal{UserID: 7},
			Vehicle:   testCar(t),
			Range:     daterange.Must(day(2024, 6, 1), day(2024, 6, 1)),
			CreatedAt: day(2024, 5, 20),
		})
		require.NoError(t, err)
		assert.Equal(t, money.Must(5000, "USD"), b.Total)
	})

	t.Run("administrators cannot book", func(t *testing.T) {
		t.Parallel()
		_, err := NewBooking(CreateParams{
			ID:        12,
			Requester: identity.Principal{UserID: 1, Admin: true},
			Vehicle:   testCar(t),
			Range:     daterange.Must(day(2024, 6, 1), day(2024, 6, 3)),
			CreatedAt: day(2024, 5, 20),
		})
		assert.ErrorIs(t, err, ErrAdminCannotBook)
	})

	t.Run("anonymous rejected", func(t *testing.T) {
		t.Parallel()
		_, err := NewBooking(CreateParams{
			ID:        13,
			Vehicle:   testCar(t),
			Range:     daterange.Must(day(2024, 6, 1), day(2024, 6, 3)),
			CreatedAt: day(2024, 5, 20),
		})
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("deleted car rejected", func(t *testing.T) {
		t.Parallel()
		vehicle := testCar(t)
		vehicle.SoftDelete(day(2024, 5, 19))
		_, err := NewBooking(CreateParams{
			ID:        14,
			Requester: identity.Principal{UserID: 7},
			Vehicle:   vehicle,
			Range:     daterange.Must(day(2024, 6, 1), day(2024, 6, 3)),
			CreatedAt: day(2024, 5, 20),
		})
		assert.ErrorIs(t, err, car.ErrCarNotFound)
	})
}

func TestTransitions(t *testing.T) {
	t.Parallel()

	now := day(2024, 5, 21)

	t.Run("pending approves", func(t *testing.T) {
		t.Parallel()
		b := testBooking(t)
		require.NoError(t, b.Approve(now))
		assert.Equal(t, StatusApproved, b.Status)
	})

	t.Run("pending rejects", func(t *testing.T) {
		t.Parallel()
		b := testBooking(t)
		require.NoError(t, b.Reject(now))
		assert.Equal(t, StatusRejected, b.Status)
	})

	t.Run("approved pays", func(t *testing.T) {
		t.Parallel()
		b := testBooking(t)
		require.NoError(t, b.Approve(now))
		require.NoError(t, b.MarkPaid(now))
		assert.Equal(t, StatusPaid, b.Status)
	})

	t.Run("approved fails payment into rejected", func(t *testing.T) {
		t.Parallel()
		b := testBooking(t)
		require.NoError(t, b.Approve(now))
		require.NoError(t, b.MarkPaymentFailed(now))
		assert.Equal(t, StatusRejected, b.Status)
	})

	t.Run("double approve rejected", func(t *testing.T) {
		t.Parallel()
		b := testBooking(t)
		require.NoError(t, b.Approve(now))
		assert.ErrorIs(t, b.Approve(now), ErrInvalidTransition)
	})

	t.Run("pay without approval rejected", func(t *testing.T) {
		t.Parallel()
		b := testBooking(t)
		assert.ErrorIs(t, b.MarkPaid(now), ErrInvalidTransition)
	})

	t.Run("reject after approval rejected", func(t *testing.T) {
		t.Parallel()
		b := testBooking(t)
		require.NoError(t, b.Approve(now))
		assert.ErrorIs(t, b.Reject(now), ErrInvalidTransition)
	})
}

func TestMarkCancelled(t *testing.T) {
	t.Parallel()

	now := day(2024, 5, 22)
	owner := identity.Principal{UserID: 7}
	stranger := identity.Principal{UserID: 8}
	admin := identity.Principal{UserID: 1, Admin: true}

	t.Run("owner cancels pending", func(t *testing.T) {
		t.Parallel()
		b := testBooking(t)
		require.NoError(t, b.MarkCancelled(owner, now))
		assert.Equal(t, StatusCancelled, b.Status)
	})

	t.Run("admin cancels any", func(t *testing.T) {
		t.Parallel()
		b := testBooking(t)
		require.NoError(t, b.Approve(now))
		require.NoError(t, b.MarkCancelled(admin, now))
	})

	t.Run("stranger forbidden", func(t *testing.T) {
		t.Parallel()
		b := testBooking(t)
		assert.ErrorIs(t, b.MarkCancelled(stranger, now), ErrForbidden)
	})

	t.Run("paid booking cannot be cancelled", func(t *testing.T) {
		t.Parallel()
		b := testBooking(t)
		require.NoError(t, b.Approve(now))
		require.NoError(t, b.MarkPaid(now))
		assert.ErrorIs(t, b.MarkCancelled(owner, now), ErrInvalidTransition)
		assert.ErrorIs(t, b.MarkCancelled(admin, now), ErrInvalidTransition)
	})
}

func TestAttachPaymentIntent(t *testing.T) {
	t.Parallel()

	now := day(2024, 5, 22)
	b := testBooking(t)
	assert.ErrorIs(t, b.AttachPaymentIntent("pi_1", now), ErrInvalidTransition)
	require.NoError(t, b.Approve(now))
	require.NoError(t, b.AttachPaymentIntent("pi_1", now))
	assert.Equal(t, "pi_1", b.PaymentIntentID)
}

func TestViewableBy(t *testing.T) {
	t.Parallel()

	b := testBooking(t)
	assert.True(t, b.ViewableBy(identity.Principal{UserID: 7}))
	assert.True(t, b.ViewableBy(identity.Principal{UserID: 1, Admin: true}))
	assert.False(t, b.ViewableBy(identity.Principal{UserID: 8}))
}
