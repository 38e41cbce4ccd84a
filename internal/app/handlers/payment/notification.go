package payment

import (
	"context"
	"errors"
	"log/slog"

	"carrental/internal/app/commands"
	domainbooking "carrental/internal/domain/booking"
)

const notificationKey = "payment.notification"

// NotificationCommand is a verified processor notification. Signature checks
// happen at the transport edge (webhook handler, broker consumer) before the
// command is built.
type NotificationCommand struct {
	BookingID int64
	IntentID  string
	Succeeded bool
}

func (c NotificationCommand) Key() string { return notificationKey }

type NotificationHandler struct {
	Reconciler *Reconciler
	Logger     *slog.Logger
}

// Handle feeds the notification into reconciliation. A notification for a
// booking that no longer exists is acknowledged and dropped: the processor
// retries on error, and there is nothing left to converge.
func (h *NotificationHandler) Handle(ctx context.Context, cmd NotificationCommand) (*ReconcileOutcome, error) {
	outcome, err := h.Reconciler.Reconcile(ctx, cmd.BookingID, cmd.Succeeded)
	if err != nil {
		if errors.Is(err, domainbooking.ErrBookingNotFound) {
			if h.Logger != nil {
				h.Logger.Warn("payment notification for unknown booking dropped", "booking_id", cmd.BookingID, "intent_id", cmd.IntentID)
			}
			return &ReconcileOutcome{BookingID: cmd.BookingID, Replayed: true}, nil
		}
		return nil, err
	}
	return outcome, nil
}

var _ commands.Handler[NotificationCommand, *ReconcileOutcome] = (*NotificationHandler)(nil)
