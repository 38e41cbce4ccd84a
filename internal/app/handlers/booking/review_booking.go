package booking

import (
	"context"
	"log/slog"
	"time"

	"carrental/internal/app/commands"
	"carrental/internal/app/dto"
	"carrental/internal/app/handlers/support"
	"carrental/internal/app/outbox"
	"carrental/internal/app/uow"
	domainbooking "carrental/internal/domain/booking"
	"carrental/internal/domain/identity"
)

const (
	approveBookingKey = "booking.approve"
	rejectBookingKey  = "booking.reject"
)

type ApproveBookingCommand struct {
	Requester identity.Principal
	BookingID int64
}

func (c ApproveBookingCommand) Key() string { return approveBookingKey }

type RejectBookingCommand struct {
	Requester identity.Principal
	BookingID int64
}

func (c RejectBookingCommand) Key() string { return rejectBookingKey }

type ReviewBookingResult struct {
	Booking dto.BookingSummary `json:"booking"`
}

type ApproveBookingHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
}

// Handle approves a pending booking. Only Approved siblings block; competing
// Pending requests lose the race here, not earlier. Booking status and the
// car's availability flag commit together.
func (h *ApproveBookingHandler) Handle(ctx context.Context, cmd ApproveBookingCommand) (*ReviewBookingResult, error) {
	if !cmd.Requester.Admin {
		return nil, identity.ErrNotAdministrator
	}
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
	// Re-read under the car's serialization point; the first read only
	// located the car.
	b, err = unit.Bookings().ByID(execCtx, b.ID)
	if err != nil {
		return nil, err
	}

	siblings, err := unit.Bookings().ForCar(execCtx, b.CarID)
	if err != nil {
		return nil, err
	}
	if domainbooking.HasApprovedOverlap(b.Range, siblings, b.ID) {
		return nil, domainbooking.ErrOverlapConflict
	}

	now := time.Now().UTC()
	if err := b.Approve(now); err != nil {
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
	if err := unit.Bookings().Save(execCtx, b); err != nil {
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
		h.Logger.Info("booking approved", "booking_id", b.ID, "car_id", b.CarID)
	}
	return &ReviewBookingResult{Booking: dto.MapBookingSummary(b, vehicle)}, nil
}

type RejectBookingHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger
}

func (h *RejectBookingHandler) Handle(ctx context.Context, cmd RejectBookingCommand) (*ReviewBookingResult, error) {
	if !cmd.Requester.Admin {
		return nil, identity.ErrNotAdministrator
	}
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
	if err := b.Reject(time.Now().UTC()); err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(execCtx, b); err != nil {
		return nil, err
	}
	if err := support.DrainEvents(execCtx, h.Outbox, h.Encoder, &b.EventRecorder); err != nil {
		return nil, err
	}
	vehicle, err := unit.Cars().ByID(execCtx, b.CarID)
	if err != nil {
		return nil, err
	}

	if managed {
		if err := unit.Commit(execCtx); err != nil {
			return nil, err
		}
		committed = true
	}
	if h.Logger != nil {
		h.Logger.Info("booking rejected", "booking_id", b.ID, "car_id", b.CarID)
	}
	return &ReviewBookingResult{Booking: dto.MapBookingSummary(b, vehicle)}, nil
}

var _ commands.Handler[ApproveBookingCommand, *ReviewBookingResult] = (*ApproveBookingHandler)(nil)
var _ commands.Handler[RejectBookingCommand, *ReviewBookingResult] = (*RejectBookingHandler)(nil)
