package booking

import (
	"context"
	"log/slog"
	"time"

	"carrental/internal/app/commands"
	"carrental/internal/app/handlers/support"
	"carrental/internal/app/outbox"
	"carrental/internal/app/uow"
	domainbooking "carrental/internal/domain/booking"
	"carrental/internal/domain/identity"
)

const cancelBookingKey = "booking.cancel"

type CancelBookingCommand struct {
	Requester identity.Principal
	BookingID int64
}

func (c CancelBookingCommand) Key() string { return cancelBookingKey }

type CancelBookingResult struct {
	BookingID int64  `json:"booking_id"`
	Status    string `json:"status"`
}

type CancelBookingHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
}

// Handle removes the booking row; a formerly Approved booking releases the
// car's availability flag in the same commit. Paid bookings never cancel.
func (h *CancelBookingHandler) Handle(ctx context.Context, cmd CancelBookingCommand) (*CancelBookingResult, error) {
	unit, execCtx, cleanup, err := support.BeginWriteUnit(ctx, h.UoWFactory)
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

	b, err := unit.Bookings().ByID(execCtx, domainbooking.BookingID(cmd.BookingID))
	if err != nil {
		return nil, err
	}
	if err := unit.Cars().TouchBookingSet(execCtx, b.CarID); err != nil {
		return nil, err
	}
	b, err = unit.Bookings().ByID(execCtx, b.ID)
	if err != nil {
		return nil, err
	}

	wasApproved := b.Status == domainbooking.StatusApproved
	now := time.Now().UTC()
	if err := b.MarkCancelled(cmd.Requester, now); err != nil {
		return nil, err
	}
	if wasApproved {
		vehicle, err := unit.Cars().ByID(execCtx, b.CarID)
		if err != nil {
			return nil, err
		}
		vehicle.MarkAvailable(now)
		if err := unit.Cars().Save(execCtx, vehicle); err != nil {
			return nil, err
		}
	}
	if err := unit.Bookings().Delete(execCtx, b.ID); err != nil {
		return nil, err
	}
	if err := support.DrainEvents(execCtx, h.Outbox, h.Encoder, &b.EventRecorder); err != nil {
		return nil, err
	}

	if managed {
		if err := unit.Commit(execCtx); err != nil {
			return nil, err
		}
		committed = true
	}
	if h.Logger != nil {
		h.Logger.Info("booking cancelled", "booking_id", b.ID, "car_id", b.CarID, "was_approved", wasApproved)
	}
	return &CancelBookingResult{BookingID: int64(b.ID), Status: string(b.Status)}, nil
}

var _ commands.Handler[CancelBookingCommand, *CancelBookingResult] = (*CancelBookingHandler)(nil)
