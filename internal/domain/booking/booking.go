package booking

import (
	"context"
	"errors"
	"time"

	"carrental/internal/domain/car"
	"carrental/internal/domain/identity"
	"carrental/internal/domain/shared/daterange"
	"carrental/internal/domain/shared/events"
	"carrental/internal/domain/shared/money"
)

var (
	ErrBookingNotFound   = errors.New("booking: not found")
	ErrInvalidTransition = errors.New("booking: invalid state transition")
	ErrOverlapConflict   = errors.New("booking: car is already booked for this period")
	ErrOwnOverlap        = errors.New("booking: requester already holds this car for the period")
	ErrAdminCannotBook   = errors.New("booking: administrators cannot book cars")
	ErrForbidden         = errors.New("booking: operation not permitted for this identity")
	ErrNoPaymentIntent   = errors.New("booking: no payment intent attached")
)

type BookingID int64

type Status string

const (
	StatusPending   Status = "Pending"
	StatusApproved  Status = "Approved"
	StatusRejected  Status = "Rejected"
	StatusCancelled Status = "Cancelled"
	StatusPaid      Status = "Paid"
)

// Booking reserves one car for one user across an inclusive date range.
// Transitions are server-driven only; clients never set Status directly.
type Booking struct {
	ID              BookingID
	UserID          int64
	CarID           car.CarID
	Range           daterange.DateRange
	Total           money.Money
	Status          Status
	PaymentIntentID string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Version         int64
	events.EventRecorder
}

// Repository is the persistence port for bookings.
type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	ForCar(ctx context.Context, carID car.CarID) ([]*Booking, error)
	ListByUser(ctx context.Context, userID int64) ([]*Booking, error)
	ListAll(ctx context.Context) ([]*Booking, error)
	Save(ctx context.Context, b *Booking) error
	Delete(ctx context.Context, id BookingID) error
	NextID(ctx context.Context) (BookingID, error)
}

type CreateParams struct {
	ID        BookingID
	Requester identity.Principal
	Vehicle   *car.Car
	Range     daterange.DateRange
	CreatedAt time.Time
}

// NewBooking constructs a Pending booking. Total is days × price-per-day,
// computed here exactly once and never recomputed on later transitions.
func NewBooking(params CreateParams) (*Booking, error) {
	if params.Requester.Anonymous() {
		return nil, ErrForbidden
	}
	if params.Requester.Admin {
		return nil, ErrAdminCannotBook
	}
	if params.Vehicle == nil || params.Vehicle.Deleted {
		return nil, car.ErrCarNotFound
	}
	now := params.CreatedAt.UTC()
	b := &Booking{
		ID:        params.ID,
		UserID:    params.Requester.UserID,
		CarID:     params.Vehicle.ID,
		Range:     params.Range,
		Total:     params.Vehicle.PricePerDay.Multiply(params.Range.Days()),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	b.Record(BookingRequested{BookingID: b.ID, CarID: b.CarID, UserID: b.UserID, Range: b.Range, Total: b.Total, At: now})
	return b, nil
}

// Approve moves Pending → Approved. The overlapping-Approved-sibling check is
// the caller's duty and must run in the same transaction as the save.
func (b *Booking) Approve(now time.Time) error {
	if b.Status != StatusPending {
		return ErrInvalidTransition
	}
	b.Status = StatusApproved
	b.UpdatedAt = now.UTC()
	b.Record(BookingApproved{BookingID: b.ID, CarID: b.CarID, At: b.UpdatedAt})
	return nil
}

// Reject moves Pending → Rejected.
func (b *Booking) Reject(now time.Time) error {
	if b.Status != StatusPending {
		return ErrInvalidTransition
	}
	b.Status = StatusRejected
	b.UpdatedAt = now.UTC()
	b.Record(BookingRejected{BookingID: b.ID, CarID: b.CarID, At: b.UpdatedAt})
	return nil
}

// MarkPaid moves Approved → Paid after a confirmed external payment.
func (b *Booking) MarkPaid(now time.Time) error {
	if b.Status != StatusApproved {
		return ErrInvalidTransition
	}
	b.Status = StatusPaid
	b.UpdatedAt = now.UTC()
	b.Record(BookingPaid{BookingID: b.ID, CarID: b.CarID, IntentID: b.PaymentIntentID, At: b.UpdatedAt})
	return nil
}

// MarkPaymentFailed moves Approved → Rejected after a failed external payment.
func (b *Booking) MarkPaymentFailed(now time.Time) error {
	if b.Status != StatusApproved {
		return ErrInvalidTransition
	}
	b.Status = StatusRejected
	b.UpdatedAt = now.UTC()
	b.Record(BookingPaymentFailed{BookingID: b.ID, CarID: b.CarID, IntentID: b.PaymentIntentID, At: b.UpdatedAt})
	return nil
}

// AuthorizeCancel checks the cancellation guard: owner-or-admin, never Paid.
// The row removal itself is a ledger operation.
func (b *Booking) AuthorizeCancel(by identity.Principal) error {
	if !by.Admin && by.UserID != b.UserID {
		return ErrForbidden
	}
	if b.Status == StatusPaid {
		return ErrInvalidTransition
	}
	return nil
}

// MarkCancelled records the cancellation prior to ledger removal. Paid
// bookings cannot be cancelled.
func (b *Booking) MarkCancelled(by identity.Principal, now time.Time) error {
	if err := b.AuthorizeCancel(by); err != nil {
		return err
	}
	was := b.Status
	b.Status = StatusCancelled
	b.UpdatedAt = now.UTC()
	b.Record(BookingCancelled{BookingID: b.ID, CarID: b.CarID, UserID: b.UserID, WasStatus: was, At: b.UpdatedAt})
	return nil
}

// AttachPaymentIntent stores the external processor reference.
func (b *Booking) AttachPaymentIntent(intentID string, now time.Time) error {
	if b.Status != StatusApproved {
		return ErrInvalidTransition
	}
	b.PaymentIntentID = intentID
	b.UpdatedAt = now.UTC()
	return nil
}

// ViewableBy reports whether the principal may read this booking.
func (b *Booking) ViewableBy(p identity.Principal) bool {
	return p.Admin || p.UserID == b.UserID
}
