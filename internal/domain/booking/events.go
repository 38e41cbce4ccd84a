package booking

import (
	"strconv"
	"time"

	"carrental/internal/domain/car"
	"carrental/internal/domain/shared/daterange"
	"carrental/internal/domain/shared/money"
)

type BookingRequested struct {
	BookingID BookingID
	CarID     car.CarID
	UserID    int64
	Range     daterange.DateRange
	Total     money.Money
	At        time.Time
}

func (e BookingRequested) EventName() string     { return "booking.requested" }
func (e BookingRequested) AggregateID() string   { return formatID(e.BookingID) }
func (e BookingRequested) OccurredAt() time.Time { return e.At }

type BookingApproved struct {
	BookingID BookingID
	CarID     car.CarID
	At        time.Time
}

func (e BookingApproved) EventName() string     { return "booking.approved" }
func (e BookingApproved) AggregateID() string   { return formatID(e.BookingID) }
func (e BookingApproved) OccurredAt() time.Time { return e.At }

type BookingRejected struct {
	BookingID BookingID
	CarID     car.CarID
	At        time.Time
}

func (e BookingRejected) EventName() string     { return "booking.rejected" }
func (e BookingRejected) AggregateID() string   { return formatID(e.BookingID) }
func (e BookingRejected) OccurredAt() time.Time { return e.At }

type BookingCancelled struct {
	BookingID BookingID
	CarID     car.CarID
	UserID    int64
	WasStatus Status
	At        time.Time
}

func (e BookingCancelled) EventName() string     { return "booking.cancelled" }
func (e BookingCancelled) AggregateID() string   { return formatID(e.BookingID) }
func (e BookingCancelled) OccurredAt() time.Time { return e.At }

type BookingPaid struct {
	BookingID BookingID
	CarID     car.CarID
	IntentID  string
	At        time.Time
}

func (e BookingPaid) EventName() string     { return "booking.paid" }
func (e BookingPaid) AggregateID() string   { return formatID(e.BookingID) }
func (e BookingPaid) OccurredAt() time.Time { return e.At }

type BookingPaymentFailed struct {
	BookingID BookingID
	CarID     car.CarID
	IntentID  string
	At        time.Time
}

func (e BookingPaymentFailed) EventName() string     { return "booking.payment_failed" }
func (e BookingPaymentFailed) AggregateID() string   { return formatID(e.BookingID) }
func (e BookingPaymentFailed) OccurredAt() time.Time { return e.At }

func formatID(id BookingID) string {
	return strconv.FormatInt(int64(id), 10)
}
