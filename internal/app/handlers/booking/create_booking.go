package booking

import (
	"context"
	"errors"
	"time"

	"carrental/internal/app/commands"
	"carrental/internal/app/dto"
	"carrental/internal/app/middleware"
	"carrental/internal/app/outbox"
	"carrental/internal/app/handlers/support"
	"carrental/internal/app/uow"
	domainbooking "carrental/internal/domain/booking"
	domaincar "carrental/internal/domain/car"
	"carrental/internal/domain/identity"
	domainrange "carrental/internal/domain/shared/daterange"
)

const createBookingKey = "booking.create"

var (
	ErrUnitOfWorkRequired = errors.New("booking: unit of work required")
	ErrMissingDates       = errors.New("booking: start and end dates are required")
)

type CreateBookingCommand struct {
	Requester       identity.Principal
	CarID           int64
	StartDate       time.Time
	EndDate         time.Time
	IdempotencyKeyV string
}

func (c CreateBookingCommand) Key() string { return createBookingKey }

func (c CreateBookingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c CreateBookingCommand) ResultPrototype() any { return &CreateBookingResult{} }

func (c CreateBookingCommand) Validate() error {
	if c.StartDate.IsZero() || c.EndDate.IsZero() {
		return ErrMissingDates
	}
	return nil
}

type CreateBookingResult struct {
	Booking dto.BookingSummary `json:"booking"`
}

type CreateBookingHandler struct {
	UoWFactory uow.UoWFactory
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
}

// Handle screens the request against every active hold on the car and inserts
// the Pending row. The whole check-then-insert runs under the car's
// serialization point, so two overlapping requests cannot both pass.
func (h *CreateBookingHandler) Handle(ctx context.Context, cmd CreateBookingCommand) (*CreateBookingResult, error) {
	if cmd.Requester.Admin {
		return nil, domainbooking.ErrAdminCannotBook
	}

	unit, ok := uow.FromContext(ctx)
	managed := false
	committed := false
	if !ok {
		if h.UoWFactory == nil {
			return nil, ErrUnitOfWorkRequired
		}
		var err error
		unit, err = h.UoWFactory.Begin(ctx, uow.TxOptions{})
		if err != nil {
			return nil, err
		}
		ctx = uow.ContextWithUnitOfWork(ctx, unit)
		managed = true
	}
	if managed {
		defer func() {
			if !committed {
				_ = unit.Rollback(ctx)
			}
		}()
	}

	dr, err := domainrange.New(cmd.StartDate, cmd.EndDate)
	if err != nil {
		return nil, err
	}

	vehicle, err := unit.Cars().ByID(ctx, domaincar.CarID(cmd.CarID))
	if err != nil {
		return nil, err
	}
	if vehicle.Deleted {
		return nil, domaincar.ErrCarNotFound
	}

	if err := unit.Cars().TouchBookingSet(ctx, vehicle.ID); err != nil {
		return nil, err
	}
	siblings, err := unit.Bookings().ForCar(ctx, vehicle.ID)
	if err != nil {
		return nil, err
	}
	if domainbooking.HasOwnActiveOverlap(dr, siblings, cmd.Requester.UserID) {
		return nil, domainbooking.ErrOwnOverlap
	}
	if domainbooking.HasActiveOverlap(dr, siblings, 0) {
		return nil, domainbooking.ErrOverlapConflict
	}

	id, err := unit.Bookings().NextID(ctx)
	if err != nil {
		return nil, err
	}
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:        id,
		Requester: cmd.Requester,
		Vehicle:   vehicle,
		Range:     dr,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Bookings().Save(ctx, b); err != nil {
		return nil, err
	}
	if err := support.DrainEvents(ctx, h.Outbox, h.Encoder, &b.EventRecorder); err != nil {
		return nil, err
	}

	if managed {
		if err := unit.Commit(ctx); err != nil {
			return nil, err
		}
		committed = true
	}

	return &CreateBookingResult{Booking: dto.MapBookingSummary(b, vehicle)}, nil
}

var _ commands.Handler[CreateBookingCommand, *CreateBookingResult] = (*CreateBookingHandler)(nil)
var _ middleware.IdempotentCommand = (*CreateBookingCommand)(nil)
