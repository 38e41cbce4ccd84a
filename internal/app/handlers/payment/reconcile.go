package payment

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"carrental/internal/app/handlers/support"
	"carrental/internal/app/outbox"
	"carrental/internal/app/uow"
	domainbooking "carrental/internal/domain/booking"
)

var (
	ErrProcessorFailure = errors.New("payment: processor call failed")
	ErrPaymentDeclined  = errors.New("payment: intent declined")
	ErrAlreadyPaid      = errors.New("payment: booking already paid")
)

// Reconciler converges a booking's state with an asynchronous payment outcome.
// Both the admin-triggered confirm and the webhook notification end up here,
// so replay behavior only has to be right in one place.
type Reconciler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
}

type ReconcileOutcome struct {
	BookingID int64  `json:"booking_id"`
	Status    string `json:"status"`
	Replayed  bool   `json:"replayed"`
}

// Reconcile applies a reported payment outcome. A duplicate success for a
// booking already in Paid (or a duplicate failure for one already Rejected) is
// a no-op, not an error: notifications arrive out of order and repeated.
func (r *Reconciler) Reconcile(ctx context.Context, bookingID int64, succeeded bool) (*ReconcileOutcome, error) {
	unit, execCtx, cleanup, err := support.BeginWriteUnit(ctx, r.UoWFactory)
	if err != nil {
		return nil, err
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
		return nil, err
	}

	if succeeded && b.Status == domainbooking.StatusPaid {
		return &ReconcileOutcome{BookingID: bookingID, Status: string(b.Status), Replayed: true}, nil
	}
	if !succeeded && b.Status == domainbooking.StatusRejected {
		return &ReconcileOutcome{BookingID: bookingID, Status: string(b.Status), Replayed: true}, nil
	}

	if err := unit.Cars().TouchBookingSet(execCtx, b.CarID); err != nil {
		return nil, err
	}
	b, err = unit.Bookings().ByID(execCtx, b.ID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if succeeded {
		if b.Status == domainbooking.StatusPaid {
			return &ReconcileOutcome{BookingID: bookingID, Status: string(b.Status), Replayed: true}, nil
		}
		if err := b.MarkPaid(now); err != nil {
			return nil, err
		}
		vehicle, err := unit.Cars().ByID(execCtx, b.CarID)
		if err != nil {
			return nil, err
		}
		vehicle.MarkUnavailable(now)
		if err := unit.Cars().Save(execCtx, vehicle); err != nil {
			return nil, err
		}
	} else {
		if b.Status == domainbooking.StatusRejected {
			return &ReconcileOutcome{BookingID: bookingID, Status: string(b.Status), Replayed: true}, nil
		}
		if err := b.MarkPaymentFailed(now); err != nil {
			return nil, err
		}
	}

	if err := unit.Bookings().Save(execCtx, b); err != nil {
		return nil, err
	}
	if err := support.DrainEvents(execCtx, r.Outbox, r.Encoder, &b.EventRecorder); err != nil {
		return nil, err
	}

	if managed {
		if err := unit.Commit(execCtx); err != nil {
			return nil, err
		}
		committed = true
	}
	if r.Logger != nil {
		r.Logger.Info("payment reconciled", "booking_id", b.ID, "succeeded", succeeded, "status", b.Status)
	}
	return &ReconcileOutcome{BookingID: bookingID, Status: string(b.Status)}, nil
}
