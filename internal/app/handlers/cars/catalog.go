package cars

import (
	"context"
	"log/slog"
	"time"

	"carrental/internal/app/dto"
	"carrental/internal/app/handlers/support"
	"carrental/internal/app/queries"
	"carrental/internal/app/uow"
	domainbooking "carrental/internal/domain/booking"
	domaincar "carrental/internal/domain/car"
)

const (
	searchCarsKey = "cars.search"
	getCarKey     = "cars.get"
)

type SearchCarsQuery struct {
	Params domaincar.SearchParams
}

func (q SearchCarsQuery) Key() string { return searchCarsKey }

type SearchCarsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *SearchCarsHandler) Handle(ctx context.Context, q SearchCarsQuery) (dto.CarCollection, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.CarCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	params := q.Params.Normalized()
	result, err := unit.Cars().Search(execCtx, params)
	if err != nil {
		return dto.CarCollection{}, err
	}
	items := make([]dto.CarSummary, 0, len(result.Items))
	for _, c := range result.Items {
		items = append(items, dto.MapCarSummary(c))
	}
	return dto.CarCollection{
		Items:  items,
		Total:  result.Total,
		Offset: params.Offset,
		Limit:  params.Limit,
	}, nil
}

type GetCarQuery struct {
	CarID int64
}

func (q GetCarQuery) Key() string { return getCarKey }

type GetCarHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

// Handle loads one car and repairs its availability flag when it has drifted
// from the bookings that actually hold the car. The flag is a cache; booking
// state is the source of truth.
func (h *GetCarHandler) Handle(ctx context.Context, q GetCarQuery) (dto.CarSummary, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.CarSummary{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	vehicle, err := unit.Cars().ByID(execCtx, domaincar.CarID(q.CarID))
	if err != nil {
		return dto.CarSummary{}, err
	}
	if vehicle.Deleted {
		return dto.CarSummary{}, domaincar.ErrCarNotFound
	}

	derived, err := deriveAvailability(execCtx, unit, vehicle.ID)
	if err == nil && derived != vehicle.Available {
		vehicle.Available = derived
		h.repairAvailability(ctx, vehicle)
	}

	return dto.MapCarSummary(vehicle), nil
}

// repairAvailability persists the recomputed flag in its own committed write
// unit. The response already carries the derived value, so a failed repair
// only means the next read derives again.
func (h *GetCarHandler) repairAvailability(ctx context.Context, vehicle *domaincar.Car) {
	unit, execCtx, cleanup, err := support.BeginWriteUnit(ctx, h.UoWFactory)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("availability repair begin failed", "car_id", vehicle.ID, "error", err)
		}
		return
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
	vehicle.UpdatedAt = time.Now().UTC()
	if err := unit.Cars().Save(execCtx, vehicle); err != nil {
		if h.Logger != nil {
			h.Logger.Warn("availability repair save failed", "car_id", vehicle.ID, "error", err)
		}
		return
	}
	if managed {
		if err := unit.Commit(execCtx); err != nil {
			if h.Logger != nil {
				h.Logger.Warn("availability repair commit failed", "car_id", vehicle.ID, "error", err)
			}
			return
		}
		committed = true
	}
	if h.Logger != nil {
		h.Logger.Debug("availability flag repaired", "car_id", vehicle.ID, "available", vehicle.Available)
	}
}

// deriveAvailability recomputes the cached flag: a car is available while no
// Approved or Paid booking holds it.
func deriveAvailability(ctx context.Context, unit uow.UnitOfWork, id domaincar.CarID) (bool, error) {
	siblings, err := unit.Bookings().ForCar(ctx, id)
	if err != nil {
		return false, err
	}
	for _, b := range siblings {
		if b.Status == domainbooking.StatusApproved || b.Status == domainbooking.StatusPaid {
			return false, nil
		}
	}
	return true, nil
}

var _ queries.Handler[SearchCarsQuery, dto.CarCollection] = (*SearchCarsHandler)(nil)
var _ queries.Handler[GetCarQuery, dto.CarSummary] = (*GetCarHandler)(nil)
