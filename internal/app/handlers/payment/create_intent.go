package payment

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"carrental/internal/app/commands"
	"carrental/internal/app/handlers/support"
	"carrental/internal/app/policies"
	"carrental/internal/app/uow"
	domainbooking "carrental/internal/domain/booking"
	"carrental/internal/domain/identity"
	"carrental/internal/domain/shared/money"
)

const createIntentKey = "payment.create_intent"

type CreateIntentCommand struct {
	Requester identity.Principal
	BookingID int64
}

func (c CreateIntentCommand) Key() string { return createIntentKey }

type CreateIntentResult struct {
	IntentID     string `json:"intent_id"`
	ClientSecret string `json:"client_secret"`
}

type CreateIntentHandler struct {
	UoWFactory uow.UoWFactory
	Processor  policies.PaymentsPort
	Logger     *slog.Logger
}

// Handle runs in two phases so the processor round-trip never holds a booking
// transaction: verify state and release, call out, then re-verify and commit
// the intent reference. A failed external call leaves no state behind and is
// safe to retry wholesale.
func (h *CreateIntentHandler) Handle(ctx context.Context, cmd CreateIntentCommand) (*CreateIntentResult, error) {
	amount, err := h.screen(ctx, cmd)
	if err != nil {
		return nil, err
	}

	intent, err := h.Processor.CreateIntent(ctx, amount, map[string]string{
		"booking_id": strconv.FormatInt(cmd.BookingID, 10),
		"user_id":    strconv.FormatInt(cmd.Requester.UserID, 10),
	})
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("payment intent creation failed", "booking_id", cmd.BookingID, "error", err)
		}
		return nil, fmt.Errorf("%w: %v", ErrProcessorFailure, err)
	}

	if err := h.attach(ctx, cmd.BookingID, intent.ID); err != nil {
		return nil, err
	}
	return &CreateIntentResult{IntentID: intent.ID, ClientSecret: intent.ClientSecret}, nil
}

// screen verifies the guard conditions under a read-only unit and releases it
// before the network call.
func (h *CreateIntentHandler) screen(ctx context.Context, cmd CreateIntentCommand) (money.Money, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return money.Money{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	b, err := unit.Bookings().ByID(execCtx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return money.Money{}, err
	}
	if b.UserID != cmd.Requester.UserID {
		return money.Money{}, domainbooking.ErrForbidden
	}
	if b.Status == domainbooking.StatusPaid {
		return money.Money{}, ErrAlreadyPaid
	}
	if b.Status != domainbooking.StatusApproved {
		return money.Money{}, domainbooking.ErrInvalidTransition
	}
	return b.Total, nil
}

// attach re-acquires the booking and commits the intent reference. The status
// re-check catches transitions that happened during the external call.
func (h *CreateIntentHandler) attach(ctx context.Context, bookingID int64, intentID string) error {
	unit, execCtx, cleanup, err := support.BeginWriteUnit(ctx, h.UoWFactory)
	if err != nil {
		return err
	}
	managed := cleanup != nil
	committed := false
	if managed {
		defer func() {
			if !committed {
				cleanup()
			}
		}()
	}
	b, err := unit.Bookings().ByID(execCtx, domainbooking.BookingID(bookingID))
	if err != nil {
		return err
	}
	if err := b.AttachPaymentIntent(intentID, time.Now().UTC()); err != nil {
		return err
	}
	if err := unit.Bookings().Save(execCtx, b); err != nil {
		return err
	}
	if managed {
		if err := unit.Commit(execCtx); err != nil {
			return err
		}
		committed = true
	}
	return nil
}

var _ commands.Handler[CreateIntentCommand, *CreateIntentResult] = (*CreateIntentHandler)(nil)
