package memory

import (
	"context"
	"errors"
	"sync"

	appuow "carrental/internal/app/uow"
	domainbooking "carrental/internal/domain/booking"
	domaincar "carrental/internal/domain/car"
)

// ErrFactoryMisconfigured indicates missing repositories.
var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// Factory wires in-memory repositories into a unit-of-work boundary. Units
// share a per-car lock table so that TouchBookingSet serializes
// check-then-write sequences the same way a store transaction would.
type Factory struct {
	Cars     *CarRepository
	Bookings *BookingRepository

	mu    sync.Mutex
	locks map[domaincar.CarID]*sync.Mutex
}

func NewFactory(cars *CarRepository, bookings *BookingRepository) *Factory {
	return &Factory{Cars: cars, Bookings: bookings}
}

func (f *Factory) Begin(ctx context.Context, opts appuow.TxOptions) (appuow.UnitOfWork, error) {
	if f.Cars == nil || f.Bookings == nil {
		return nil, ErrFactoryMisconfigured
	}
	u := &Unit{factory: f, bookings: f.Bookings, held: make(map[domaincar.CarID]*sync.Mutex)}
	u.cars = &unitCars{inner: f.Cars, unit: u}
	return u, nil
}

func (f *Factory) lockFor(id domaincar.CarID) *sync.Mutex {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locks == nil {
		f.locks = make(map[domaincar.CarID]*sync.Mutex)
	}
	l, ok := f.locks[id]
	if !ok {
		l = &sync.Mutex{}
		f.locks[id] = l
	}
	return l
}

// Unit is an appuow.UnitOfWork over the in-memory stores. Writes apply
// immediately; the per-car locks taken via TouchBookingSet are what make the
// check-then-write sequence atomic, and they are held until Commit or Rollback.
type Unit struct {
	factory  *Factory
	cars     *unitCars
	bookings *BookingRepository
	held     map[domaincar.CarID]*sync.Mutex
	done     bool
}

func (u *Unit) Cars() domaincar.Repository         { return u.cars }
func (u *Unit) Bookings() domainbooking.Repository { return u.bookings }
func (u *Unit) Commit(ctx context.Context) error   { u.release(); return nil }
func (u *Unit) Rollback(ctx context.Context) error { u.release(); return nil }

func (u *Unit) release() {
	if u.done {
		return
	}
	u.done = true
	for _, l := range u.held {
		l.Unlock()
	}
	u.held = nil
}

// unitCars intercepts TouchBookingSet to take the per-car lock on behalf of
// the unit. Everything else passes through to the shared repository.
type unitCars struct {
	inner *CarRepository
	unit  *Unit
}

func (c *unitCars) ByID(ctx context.Context, id domaincar.CarID) (*domaincar.Car, error) {
	return c.inner.ByID(ctx, id)
}

func (c *unitCars) Search(ctx context.Context, params domaincar.SearchParams) (domaincar.SearchResult, error) {
	return c.inner.Search(ctx, params)
}

func (c *unitCars) Save(ctx context.Context, car *domaincar.Car) error {
	return c.inner.Save(ctx, car)
}

func (c *unitCars) NextID(ctx context.Context) (domaincar.CarID, error) {
	return c.inner.NextID(ctx)
}

func (c *unitCars) TouchBookingSet(ctx context.Context, id domaincar.CarID) error {
	if _, held := c.unit.held[id]; held {
		return nil
	}
	if err := c.inner.TouchBookingSet(ctx, id); err != nil {
		return err
	}
	l := c.unit.factory.lockFor(id)
	l.Lock()
	c.unit.held[id] = l
	return nil
}

var _ domaincar.Repository = (*unitCars)(nil)
var _ appuow.UoWFactory = (*Factory)(nil)
