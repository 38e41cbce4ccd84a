package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	appuow "carrental/internal/app/uow"
	domainbooking "carrental/internal/domain/booking"
	domaincar "carrental/internal/domain/car"
)

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Factory wires Mongo transactions into the generic UnitOfWork interface.
type Factory struct {
	DB *mongo.Database

	CarRepo     domaincar.Repository
	BookingRepo domainbooking.Repository
}

// Begin starts a MongoDB session/transaction. The session rides in the
// context via InjectContext so repositories run inside the transaction.
func (f Factory) Begin(ctx context.Context, opts appuow.TxOptions) (appuow.UnitOfWork, error) {
	if f.DB == nil || f.CarRepo == nil || f.BookingRepo == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().SetReadConcern(f.DB.ReadConcern()).SetWriteConcern(f.DB.WriteConcern())
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return &Unit{
		session:  session,
		cars:     f.CarRepo,
		bookings: f.BookingRepo,
	}, nil
}

type Unit struct {
	session  mongo.Session
	cars     domaincar.Repository
	bookings domainbooking.Repository
}

func (u *Unit) Cars() domaincar.Repository {
	return u.cars
}

func (u *Unit) Bookings() domainbooking.Repository {
	return u.bookings
}

func (u *Unit) Commit(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return classifyWriteError(u.session.CommitTransaction(ctx))
}

func (u *Unit) Rollback(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures the Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}

var _ appuow.UoWFactory = Factory{}
