package payment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainbooking "carrental/internal/domain/booking"
	"carrental/internal/domain/identity"
	infrapayment "carrental/internal/infra/payment"
)

func TestCreateIntent(t *testing.T) {
	t.Parallel()

	t.Run("attaches intent to approved booking", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		b := e.seedBooking(t, renter.UserID, domainbooking.StatusApproved, "")
		handler := &CreateIntentHandler{UoWFactory: e.factory, Processor: infrapayment.NewStubProcessor()}

		result, err := handler.Handle(context.Background(), CreateIntentCommand{
			Requester: renter,
			BookingID: int64(b.ID),
		})
		require.NoError(t, err)
		assert.NotEmpty(t, result.IntentID)
		assert.NotEmpty(t, result.ClientSecret)

		stored, err := e.bookings.ByID(context.Background(), b.ID)
		require.NoError(t, err)
		assert.Equal(t, result.IntentID, stored.PaymentIntentID)
	})

	t.Run("only the booking owner may pay", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		b := e.seedBooking(t, 99, domainbooking.StatusApproved, "")
		handler := &CreateIntentHandler{UoWFactory: e.factory, Processor: infrapayment.NewStubProcessor()}

		_, err := handler.Handle(context.Background(), CreateIntentCommand{
			Requester: renter,
			BookingID: int64(b.ID),
		})
		assert.ErrorIs(t, err, domainbooking.ErrForbidden)
	})

	t.Run("pending booking cannot take payment", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		b := e.seedBooking(t, renter.UserID, domainbooking.StatusPending, "")
		handler := &CreateIntentHandler{UoWFactory: e.factory, Processor: infrapayment.NewStubProcessor()}

		_, err := handler.Handle(context.Background(), CreateIntentCommand{
			Requester: renter,
			BookingID: int64(b.ID),
		})
		assert.ErrorIs(t, err, domainbooking.ErrInvalidTransition)
	})

	t.Run("paid booking reports already paid", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		b := e.seedBooking(t, renter.UserID, domainbooking.StatusPaid, "pi_old")
		handler := &CreateIntentHandler{UoWFactory: e.factory, Processor: infrapayment.NewStubProcessor()}

		_, err := handler.Handle(context.Background(), CreateIntentCommand{
			Requester: renter,
			BookingID: int64(b.ID),
		})
		assert.ErrorIs(t, err, ErrAlreadyPaid)
	})
}

func TestConfirmPayment(t *testing.T) {
	t.Parallel()

	t.Run("successful confirm pays the booking", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		stub := infrapayment.NewStubProcessor()
		b := e.seedBooking(t, renter.UserID, domainbooking.StatusApproved, "")

		create := &CreateIntentHandler{UoWFactory: e.factory, Processor: stub}
		created, err := create.Handle(context.Background(), CreateIntentCommand{
			Requester: renter,
			BookingID: int64(b.ID),
		})
		require.NoError(t, err)

		confirm := &ConfirmPaymentHandler{UoWFactory: e.factory, Processor: stub, Reconciler: e.reconciler()}
		outcome, err := confirm.Handle(context.Background(), ConfirmPaymentCommand{
			Requester: admin,
			BookingID: int64(b.ID),
		})
		require.NoError(t, err)
		assert.Equal(t, string(domainbooking.StatusPaid), outcome.Status)
		assert.NotEmpty(t, created.IntentID)
	})

	t.Run("declined confirm rejects the booking", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		stub := infrapayment.NewStubProcessor()
		stub.FailConfirm = true
		b := e.seedBooking(t, renter.UserID, domainbooking.StatusApproved, "")

		create := &CreateIntentHandler{UoWFactory: e.factory, Processor: stub}
		_, err := create.Handle(context.Background(), CreateIntentCommand{
			Requester: renter,
			BookingID: int64(b.ID),
		})
		require.NoError(t, err)

		confirm := &ConfirmPaymentHandler{UoWFactory: e.factory, Processor: stub, Reconciler: e.reconciler()}
		_, err = confirm.Handle(context.Background(), ConfirmPaymentCommand{
			Requester: admin,
			BookingID: int64(b.ID),
		})
		assert.ErrorIs(t, err, ErrPaymentDeclined)
		assert.NotErrorIs(t, err, ErrProcessorFailure)

		stored, err := e.bookings.ByID(context.Background(), b.ID)
		require.NoError(t, err)
		assert.Equal(t, domainbooking.StatusRejected, stored.Status)
	})

	t.Run("requires administrator", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		confirm := &ConfirmPaymentHandler{UoWFactory: e.factory, Processor: infrapayment.NewStubProcessor(), Reconciler: e.reconciler()}
		_, err := confirm.Handle(context.Background(), ConfirmPaymentCommand{
			Requester: renter,
			BookingID: 1,
		})
		assert.ErrorIs(t, err, identity.ErrNotAdministrator)
	})

	t.Run("booking without intent cannot confirm", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		b := e.seedBooking(t, renter.UserID, domainbooking.StatusApproved, "")
		confirm := &ConfirmPaymentHandler{UoWFactory: e.factory, Processor: infrapayment.NewStubProcessor(), Reconciler: e.reconciler()}

		_, err := confirm.Handle(context.Background(), ConfirmPaymentCommand{
			Requester: admin,
			BookingID: int64(b.ID),
		})
		assert.ErrorIs(t, err, domainbooking.ErrNoPaymentIntent)
	})
}

func TestPaymentStatus(t *testing.T) {
	t.Parallel()

	t.Run("owner sees booking status", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		b := e.seedBooking(t, renter.UserID, domainbooking.StatusApproved, "pi_7")
		handler := &StatusHandler{UoWFactory: e.factory}

		result, err := handler.Handle(context.Background(), StatusQuery{Requester: renter, BookingID: int64(b.ID)})
		require.NoError(t, err)
		assert.Equal(t, string(domainbooking.StatusApproved), result.Status)
		assert.Equal(t, "pi_7", result.IntentID)
	})

	t.Run("stranger is refused", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		b := e.seedBooking(t, 99, domainbooking.StatusApproved, "pi_7")
		handler := &StatusHandler{UoWFactory: e.factory}

		_, err := handler.Handle(context.Background(), StatusQuery{Requester: renter, BookingID: int64(b.ID)})
		assert.ErrorIs(t, err, domainbooking.ErrForbidden)
	})
}
