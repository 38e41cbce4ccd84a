package payment

import (
	"context"

	"carrental/internal/app/handlers/support"
	"carrental/internal/app/queries"
	"carrental/internal/app/uow"
	domainbooking "carrental/internal/domain/booking"
	"carrental/internal/domain/identity"
)

const paymentStatusKey = "payment.status"

type StatusQuery struct {
	Requester identity.Principal
	BookingID int64
}

func (q StatusQuery) Key() string { return paymentStatusKey }

type StatusResult struct {
	BookingID int64  `json:"booking_id"`
	Status    string `json:"status"`
	IntentID  string `json:"intent_id,omitempty"`
}

type StatusHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *StatusHandler) Handle(ctx context.Context, q StatusQuery) (StatusResult, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return StatusResult{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	b, err := unit.Bookings().ByID(execCtx, domainbooking.BookingID(q.BookingID))
	if err != nil {
		return StatusResult{}, err
	}
	if !b.ViewableBy(q.Requester) {
		return StatusResult{}, domainbooking.ErrForbidden
	}
	return StatusResult{
		BookingID: int64(b.ID),
		Status:    string(b.Status),
		IntentID:  b.PaymentIntentID,
	}, nil
}

var _ queries.Handler[StatusQuery, StatusResult] = (*StatusHandler)(nil)
