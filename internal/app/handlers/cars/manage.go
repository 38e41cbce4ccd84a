package cars

import (
	"context"
	"log/slog"
	"time"

	"carrental/internal/app/commands"
	"carrental/internal/app/dto"
	"carrental/internal/app/handlers/support"
	"carrental/internal/app/uow"
	domaincar "carrental/internal/domain/car"
	"carrental/internal/domain/identity"
	"carrental/internal/domain/shared/money"
)

const (
	createCarKey = "cars.create"
	updateCarKey = "cars.update"
	deleteCarKey = "cars.delete"
)

type CreateCarCommand struct {
	Requester        identity.Principal
	Name             string
	Brand            string
	PricePerDayMinor int64
	Currency         string
	ImageURL         string
}

func (c CreateCarCommand) Key() string { return createCarKey }

type CarResult struct {
	Car dto.CarSummary `json:"car"`
}

type CreateCarHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

func (h *CreateCarHandler) Handle(ctx context.Context, cmd CreateCarCommand) (*CarResult, error) {
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

	currency := cmd.Currency
	if currency == "" {
		currency = "USD"
	}
	rate, err := money.New(cmd.PricePerDayMinor, currency)
	if err != nil {
		return nil, err
	}
	id, err := unit.Cars().NextID(execCtx)
	if err != nil {
		return nil, err
	}
	vehicle, err := domaincar.NewCar(domaincar.CreateParams{
		ID:          id,
		Name:        cmd.Name,
		Brand:       cmd.Brand,
		PricePerDay: rate,
		ImageURL:    cmd.ImageURL,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	if err := unit.Cars().Save(execCtx, vehicle); err != nil {
		return nil, err
	}

	if managed {
		if err := unit.Commit(execCtx); err != nil {
			return nil, err
		}
		committed = true
	}
	if h.Logger != nil {
		h.Logger.Info("car created", "car_id", vehicle.ID, "name", vehicle.Name)
	}
	return &CarResult{Car: dto.MapCarSummary(vehicle)}, nil
}

type UpdateCarCommand struct {
	Requester        identity.Principal
	CarID            int64
	Name             *string
	Brand            *string
	PricePerDayMinor *int64
	Available        *bool
	ImageURL         *string
}

func (c UpdateCarCommand) Key() string { return updateCarKey }

type UpdateCarHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

func (h *UpdateCarHandler) Handle(ctx context.Context, cmd UpdateCarCommand) (*CarResult, error) {
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

	vehicle, err := unit.Cars().ByID(execCtx, domaincar.CarID(cmd.CarID))
	if err != nil {
		return nil, err
	}
	if vehicle.Deleted {
		return nil, domaincar.ErrCarNotFound
	}

	if cmd.Name != nil {
		vehicle.Name = *cmd.Name
	}
	if cmd.Brand != nil {
		vehicle.Brand = *cmd.Brand
	}
	if cmd.PricePerDayMinor != nil {
		rate, err := money.New(*cmd.PricePerDayMinor, vehicle.PricePerDay.Currency)
		if err != nil {
			return nil, err
		}
		if !rate.IsPositive() {
			return nil, domaincar.ErrInvalidDailyRate
		}
		// Existing bookings keep the total computed at creation time.
		vehicle.PricePerDay = rate
	}
	if cmd.Available != nil {
		vehicle.Available = *cmd.Available
	}
	if cmd.ImageURL != nil && *cmd.ImageURL != "" {
		vehicle.ImageURL = *cmd.ImageURL
	}
	vehicle.UpdatedAt = time.Now().UTC()
	if err := unit.Cars().Save(execCtx, vehicle); err != nil {
		return nil, err
	}

	if managed {
		if err := unit.Commit(execCtx); err != nil {
			return nil, err
		}
		committed = true
	}
	return &CarResult{Car: dto.MapCarSummary(vehicle)}, nil
}

type DeleteCarCommand struct {
	Requester identity.Principal
	CarID     int64
}

func (c DeleteCarCommand) Key() string { return deleteCarKey }

type DeleteCarResult struct {
	CarID int64 `json:"car_id"`
}

type DeleteCarHandler struct {
	UoWFactory uow.UoWFactory
	Logger     *slog.Logger
}

// Handle soft-deletes the car and removes every booking referencing it.
func (h *DeleteCarHandler) Handle(ctx context.Context, cmd DeleteCarCommand) (*DeleteCarResult, error) {
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

	vehicle, err := unit.Cars().ByID(execCtx, domaincar.CarID(cmd.CarID))
	if err != nil {
		return nil, err
	}
	if vehicle.Deleted {
		return nil, domaincar.ErrCarNotFound
	}
	if err := unit.Cars().TouchBookingSet(execCtx, vehicle.ID); err != nil {
		return nil, err
	}
	vehicle.SoftDelete(time.Now().UTC())
	if err := unit.Cars().Save(execCtx, vehicle); err != nil {
		return nil, err
	}
	siblings, err := unit.Bookings().ForCar(execCtx, vehicle.ID)
	if err != nil {
		return nil, err
	}
	for _, sibling := range siblings {
		if err := unit.Bookings().Delete(execCtx, sibling.ID); err != nil {
			return nil, err
		}
	}

	if managed {
		if err := unit.Commit(execCtx); err != nil {
			return nil, err
		}
		committed = true
	}
	if h.Logger != nil {
		h.Logger.Info("car deleted", "car_id", vehicle.ID)
	}
	return &DeleteCarResult{CarID: int64(vehicle.ID)}, nil
}

var _ commands.Handler[CreateCarCommand, *CarResult] = (*CreateCarHandler)(nil)
var _ commands.Handler[UpdateCarCommand, *CarResult] = (*UpdateCarHandler)(nil)
var _ commands.Handler[DeleteCarCommand, *DeleteCarResult] = (*DeleteCarHandler)(nil)
