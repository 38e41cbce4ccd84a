package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "carrental/internal/domain/booking"
	domaincar "carrental/internal/domain/car"
	domainrange "carrental/internal/domain/shared/daterange"
	"carrental/internal/domain/shared/money"
)

type BookingRepository struct {
	db  *mongo.Database
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{db: db, col: db.Collection("bookings")}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": int64(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrBookingNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *BookingRepository) ForCar(ctx context.Context, carID domaincar.CarID) ([]*domainbooking.Booking, error) {
	return r.list(ctx, bson.M{"car_id": int64(carID)})
}

func (r *BookingRepository) ListByUser(ctx context.Context, userID int64) ([]*domainbooking.Booking, error) {
	return r.list(ctx, bson.M{"user_id": userID})
}

func (r *BookingRepository) ListAll(ctx context.Context) ([]*domainbooking.Booking, error) {
	return r.list(ctx, bson.M{})
}

func (r *BookingRepository) list(ctx context.Context, filter bson.M) ([]*domainbooking.Booking, error) {
	cursor, err := r.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []*domainbooking.Booking
	for cursor.Next(ctx) {
		var doc bookingDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	filter := bson.M{"_id": doc.ID, "version": b.Version}
	doc.Version = b.Version + 1
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)
	res, err := r.col.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrConcurrentUpdate
		}
		return classifyWriteError(err)
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConcurrentUpdate
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) Delete(ctx context.Context, id domainbooking.BookingID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": int64(id)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domainbooking.ErrBookingNotFound
	}
	return nil
}

func (r *BookingRepository) NextID(ctx context.Context) (domainbooking.BookingID, error) {
	v, err := nextSequence(ctx, r.db, "bookings")
	if err != nil {
		return 0, err
	}
	return domainbooking.BookingID(v), nil
}

type bookingDocument struct {
	ID              int64  `bson:"_id"`
	UserID          int64  `bson:"user_id"`
	CarID           int64  `bson:"car_id"`
	StartDate       int64  `bson:"start_date"`
	EndDate         int64  `bson:"end_date"`
	Total           int64  `bson:"total"`
	Currency        string `bson:"currency"`
	Status          string `bson:"status"`
	PaymentIntentID string `bson:"payment_intent_id,omitempty"`
	CreatedAt       int64  `bson:"created_at"`
	UpdatedAt       int64  `bson:"updated_at"`
	Version         int64  `bson:"version"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	return bookingDocument{
		ID:              int64(b.ID),
		UserID:          b.UserID,
		CarID:           int64(b.CarID),
		StartDate:       b.Range.Start.UnixMilli(),
		EndDate:         b.Range.End.UnixMilli(),
		Total:           b.Total.Amount,
		Currency:        b.Total.Currency,
		Status:          string(b.Status),
		PaymentIntentID: b.PaymentIntentID,
		CreatedAt:       b.CreatedAt.UnixMilli(),
		UpdatedAt:       b.UpdatedAt.UnixMilli(),
		Version:         b.Version,
	}
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	return &domainbooking.Booking{
		ID:              domainbooking.BookingID(d.ID),
		UserID:          d.UserID,
		CarID:           domaincar.CarID(d.CarID),
		Range:           domainrange.DateRange{Start: timestampToTime(d.StartDate), End: timestampToTime(d.EndDate)},
		Total:           money.Money{Amount: d.Total, Currency: d.Currency},
		Status:          domainbooking.Status(d.Status),
		PaymentIntentID: d.PaymentIntentID,
		CreatedAt:       timestampToTime(d.CreatedAt),
		UpdatedAt:       timestampToTime(d.UpdatedAt),
		Version:         d.Version,
	}
}
