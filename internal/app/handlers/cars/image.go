package cars

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"carrental/internal/app/commands"
	"carrental/internal/app/dto"
	"carrental/internal/app/handlers/support"
	"carrental/internal/app/policies"
	"carrental/internal/app/uow"
	domaincar "carrental/internal/domain/car"
	"carrental/internal/domain/identity"
)

const attachImageKey = "cars.attach_image"

type AttachImageCommand struct {
	Requester   identity.Principal
	CarID       int64
	Content     []byte
	ContentType string
}

func (c AttachImageCommand) Key() string { return attachImageKey }

type AttachImageHandler struct {
	UoWFactory uow.UoWFactory
	Uploader   policies.UploaderPort
	Logger     *slog.Logger
}

// Handle uploads the image first, then commits the URL. The upload is a
// network call and runs with no transaction open; an orphaned object from a
// failed second phase is garbage, not corruption.
func (h *AttachImageHandler) Handle(ctx context.Context, cmd AttachImageCommand) (*CarResult, error) {
	if !cmd.Requester.Admin {
		return nil, identity.ErrNotAdministrator
	}
	if len(cmd.Content) == 0 {
		return nil, fmt.Errorf("cars: image content is empty")
	}
	if h.Uploader == nil {
		return nil, fmt.Errorf("cars: uploader not configured")
	}

	key := fmt.Sprintf("cars/%d/%s", cmd.CarID, uuid.NewString())
	url, err := h.Uploader.Upload(ctx, key, bytes.NewReader(cmd.Content), cmd.ContentType)
	if err != nil {
		return nil, err
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
	vehicle.ImageURL = url
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
	if h.Logger != nil {
		h.Logger.Info("car image attached", "car_id", vehicle.ID, "url", url)
	}
	return &CarResult{Car: dto.MapCarSummary(vehicle)}, nil
}

var _ commands.Handler[AttachImageCommand, *CarResult] = (*AttachImageHandler)(nil)
