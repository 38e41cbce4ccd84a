package cars

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carrental/internal/app/uow"
	domainbooking "carrental/internal/domain/booking"
	domaincar "carrental/internal/domain/car"
)

func TestSearchCars(t *testing.T) {
	t.Parallel()

	t.Run("filters by brand and price", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		e.seedCar(t, "Corolla", 5000)
		e.seedCar(t, "Camry", 9000)
		handler := &SearchCarsHandler{UoWFactory: e.factory}

		result, err := handler.Handle(context.Background(), SearchCarsQuery{
			Params: domaincar.SearchParams{Brand: "Toyota", MaxPricePerDay: 6000},
		})
		require.NoError(t, err)
		require.Len(t, result.Items, 1)
		assert.Equal(t, "Corolla", result.Items[0].Name)
		assert.Equal(t, 1, result.Total)
	})

	t.Run("hides soft-deleted cars", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		kept := e.seedCar(t, "Corolla", 5000)
		gone := e.seedCar(t, "Camry", 9000)
		gone.SoftDelete(day(2024, 2, 1))
		require.NoError(t, e.cars.Save(context.Background(), gone))

		handler := &SearchCarsHandler{UoWFactory: e.factory}
		result, err := handler.Handle(context.Background(), SearchCarsQuery{})
		require.NoError(t, err)
		require.Len(t, result.Items, 1)
		assert.Equal(t, int64(kept.ID), result.Items[0].ID)
	})

	t.Run("sorts by price descending", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		e.seedCar(t, "Corolla", 5000)
		e.seedCar(t, "Camry", 9000)
		handler := &SearchCarsHandler{UoWFactory: e.factory}

		result, err := handler.Handle(context.Background(), SearchCarsQuery{
			Params: domaincar.SearchParams{SortBy: domaincar.SortByPrice, SortDesc: true},
		})
		require.NoError(t, err)
		require.Len(t, result.Items, 2)
		assert.Equal(t, "Camry", result.Items[0].Name)
	})

	t.Run("pages with clamped defaults", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		e.seedCar(t, "Corolla", 5000)
		e.seedCar(t, "Camry", 9000)
		handler := &SearchCarsHandler{UoWFactory: e.factory}

		result, err := handler.Handle(context.Background(), SearchCarsQuery{
			Params: domaincar.SearchParams{Offset: 1, Limit: 1, SortBy: domaincar.SortByName},
		})
		require.NoError(t, err)
		require.Len(t, result.Items, 1)
		assert.Equal(t, 2, result.Total)
		assert.Equal(t, 1, result.Offset)
	})
}

func TestGetCar(t *testing.T) {
	t.Parallel()

	t.Run("returns the car", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		vehicle := e.seedCar(t, "Corolla", 5000)
		handler := &GetCarHandler{UoWFactory: e.factory}

		result, err := handler.Handle(context.Background(), GetCarQuery{CarID: int64(vehicle.ID)})
		require.NoError(t, err)
		assert.Equal(t, "Corolla", result.Name)
	})

	t.Run("repairs a stale availability flag", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		vehicle := e.seedCar(t, "Corolla", 5000)
		vehicle.MarkUnavailable(day(2024, 2, 1))
		require.NoError(t, e.cars.Save(context.Background(), vehicle))

		handler := &GetCarHandler{UoWFactory: e.factory}
		result, err := handler.Handle(context.Background(), GetCarQuery{CarID: int64(vehicle.ID)})
		require.NoError(t, err)
		assert.True(t, result.Available)

		stored, err := e.cars.ByID(context.Background(), vehicle.ID)
		require.NoError(t, err)
		assert.True(t, stored.Available)
	})

	t.Run("repair lands in a committed unit", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		vehicle := e.seedCar(t, "Corolla", 5000)
		vehicle.MarkUnavailable(day(2024, 2, 1))
		require.NoError(t, e.cars.Save(context.Background(), vehicle))

		spy := &commitSpyFactory{inner: e.factory}
		handler := &GetCarHandler{UoWFactory: spy}
		result, err := handler.Handle(context.Background(), GetCarQuery{CarID: int64(vehicle.ID)})
		require.NoError(t, err)
		assert.True(t, result.Available)
		assert.Equal(t, 1, spy.commitCount())

		stored, err := e.cars.ByID(context.Background(), vehicle.ID)
		require.NoError(t, err)
		assert.True(t, stored.Available)
	})

	t.Run("clean read commits nothing", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		vehicle := e.seedCar(t, "Corolla", 5000)

		spy := &commitSpyFactory{inner: e.factory}
		handler := &GetCarHandler{UoWFactory: spy}
		_, err := handler.Handle(context.Background(), GetCarQuery{CarID: int64(vehicle.ID)})
		require.NoError(t, err)
		assert.Equal(t, 0, spy.commitCount())
	})

	t.Run("leaves the flag off while a paid booking holds the car", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		vehicle := e.seedCar(t, "Corolla", 5000)
		vehicle.MarkUnavailable(day(2024, 2, 1))
		require.NoError(t, e.cars.Save(context.Background(), vehicle))
		e.seedBooking(t, vehicle.ID, domainbooking.StatusPaid)

		handler := &GetCarHandler{UoWFactory: e.factory}
		result, err := handler.Handle(context.Background(), GetCarQuery{CarID: int64(vehicle.ID)})
		require.NoError(t, err)
		assert.False(t, result.Available)
	})

	t.Run("soft-deleted car reads as missing", func(t *testing.T) {
		t.Parallel()
		e := newEnv(t)
		vehicle := e.seedCar(t, "Corolla", 5000)
		vehicle.SoftDelete(day(2024, 2, 1))
		require.NoError(t, e.cars.Save(context.Background(), vehicle))

		handler := &GetCarHandler{UoWFactory: e.factory}
		_, err := handler.Handle(context.Background(), GetCarQuery{CarID: int64(vehicle.ID)})
		assert.ErrorIs(t, err, domaincar.ErrCarNotFound)
	})
}

// commitSpyFactory counts unit lifecycles so tests can tell a committed write
// apart from one that only lived in a rolled-back unit.
type commitSpyFactory struct {
	inner uow.UoWFactory

	mu      sync.Mutex
	commits int
}

func (f *commitSpyFactory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	unit, err := f.inner.Begin(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &commitSpyUnit{UnitOfWork: unit, owner: f}, nil
}

func (f *commitSpyFactory) commitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.commits
}

type commitSpyUnit struct {
	uow.UnitOfWork
	owner *commitSpyFactory
}

func (u *commitSpyUnit) Commit(ctx context.Context) error {
	if err := u.UnitOfWork.Commit(ctx); err != nil {
		return err
	}
	u.owner.mu.Lock()
	u.owner.commits++
	u.owner.mu.Unlock()
	return nil
}
