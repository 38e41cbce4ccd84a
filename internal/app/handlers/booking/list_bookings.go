package booking

import (
	"context"
	"sort"

	"carrental/internal/app/dto"
	"carrental/internal/app/handlers/support"
	"carrental/internal/app/uow"
	domainbooking "carrental/internal/domain/booking"
	domaincar "carrental/internal/domain/car"
	"carrental/internal/domain/identity"
)

const (
	listMyBookingsKey  = "booking.list.mine"
	listAllBookingsKey = "booking.list.all"
)

type ListMyBookingsQuery struct {
	Requester identity.Principal
}

func (q ListMyBookingsQuery) Key() string { return listMyBookingsKey }

type ListAllBookingsQuery struct {
	Requester identity.Principal
}

func (q ListAllBookingsQuery) Key() string { return listAllBookingsKey }

type ListBookingsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListBookingsHandler) HandleMine(ctx context.Context, q ListMyBookingsQuery) (dto.BookingCollection, error) {
	if q.Requester.Anonymous() {
		return dto.BookingCollection{}, domainbooking.ErrForbidden
	}
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	items, err := unit.Bookings().ListByUser(execCtx, q.Requester.UserID)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	return h.render(execCtx, unit, items)
}

func (h *ListBookingsHandler) HandleAll(ctx context.Context, q ListAllBookingsQuery) (dto.BookingCollection, error) {
	if !q.Requester.Admin {
		return dto.BookingCollection{}, identity.ErrNotAdministrator
	}
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	items, err := unit.Bookings().ListAll(execCtx)
	if err != nil {
		return dto.BookingCollection{}, err
	}
	return h.render(execCtx, unit, items)
}

func (h *ListBookingsHandler) render(ctx context.Context, unit uow.UnitOfWork, items []*domainbooking.Booking) (dto.BookingCollection, error) {
	vehicles := make(map[domaincar.CarID]*domaincar.Car)
	out := make([]dto.BookingSummary, 0, len(items))
	for _, b := range items {
		vehicle, ok := vehicles[b.CarID]
		if !ok {
			loaded, err := unit.Cars().ByID(ctx, b.CarID)
			if err == nil {
				vehicle = loaded
			}
			vehicles[b.CarID] = vehicle
		}
		out = append(out, dto.MapBookingSummary(b, vehicle))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return dto.BookingCollection{Items: out}, nil
}
