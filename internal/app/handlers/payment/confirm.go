package payment

import (
	"context"
	"fmt"
	"log/slog"

	"carrental/internal/app/commands"
	"carrental/internal/app/handlers/support"
	"carrental/internal/app/policies"
	"carrental/internal/app/uow"
	domainbooking "carrental/internal/domain/booking"
	"carrental/internal/domain/identity"
)

const confirmPaymentKey = "payment.confirm"

type ConfirmPaymentCommand struct {
	Requester identity.Principal
	BookingID int64
}

func (c ConfirmPaymentCommand) Key() string { return confirmPaymentKey }

type ConfirmPaymentHandler struct {
	UoWFactory uow.UoWFactory
	Processor  policies.PaymentsPort
	Reconciler *Reconciler
	Logger     *slog.Logger
}

// Handle pulls the intent outcome from the processor and reconciles it. The
// external call runs with no transaction open; the reconcile commit happens
// after the outcome is known.
func (h *ConfirmPaymentHandler) Handle(ctx context.Context, cmd ConfirmPaymentCommand) (*ReconcileOutcome, error) {
	if !cmd.Requester.Admin {
		return nil, identity.ErrNotAdministrator
	}

	intentID, err := h.screen(ctx, cmd.BookingID)
	if err != nil {
		return nil, err
	}

	status, err := h.Processor.ConfirmIntent(ctx, intentID)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("payment confirm failed", "booking_id", cmd.BookingID, "error", err)
		}
		return nil, fmt.Errorf("%w: %v", ErrProcessorFailure, err)
	}

	succeeded := status == policies.IntentSucceeded
	outcome, err := h.Reconciler.Reconcile(ctx, cmd.BookingID, succeeded)
	if err != nil {
		return nil, err
	}
	if !succeeded {
		// The processor answered; the card did not. A decline is a domain
		// outcome, not an outage.
		return outcome, fmt.Errorf("%w: intent status %q", ErrPaymentDeclined, status)
	}
	return outcome, nil
}

func (h *ConfirmPaymentHandler) screen(ctx context.Context, bookingID int64) (string, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return "", err
	}
	if cleanup != nil {
		defer cleanup()
	}
	b, err := unit.Bookings().ByID(execCtx, domainbooking.BookingID(bookingID))
	if err != nil {
		return "", err
	}
	if b.Status != domainbooking.StatusApproved {
		return "", domainbooking.ErrInvalidTransition
	}
	if b.PaymentIntentID == "" {
		return "", domainbooking.ErrNoPaymentIntent
	}
	return b.PaymentIntentID, nil
}

var _ commands.Handler[ConfirmPaymentCommand, *ReconcileOutcome] = (*ConfirmPaymentHandler)(nil)
