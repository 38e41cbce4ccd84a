package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domaincar "carrental/internal/domain/car"
	"carrental/internal/domain/shared/money"
)

type CarRepository struct {
	db  *mongo.Database
	col *mongo.Collection
}

func NewCarRepository(db *mongo.Database) *CarRepository {
	return &CarRepository{db: db, col: db.Collection("cars")}
}

func (r *CarRepository) ByID(ctx context.Context, id domaincar.CarID) (*domaincar.Car, error) {
	var doc carDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": int64(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domaincar.ErrCarNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *CarRepository) Search(ctx context.Context, params domaincar.SearchParams) (domaincar.SearchResult, error) {
	opts := params.Normalized()

	filter := bson.M{}
	if !opts.IncludeDeleted {
		filter["deleted"] = false
	}
	if opts.OnlyAvailable {
		filter["available"] = true
	}
	if opts.Brand != "" {
		filter["brand"] = bson.M{"$regex": "^" + opts.Brand + "$", "$options": "i"}
	}
	if opts.MaxPricePerDay > 0 {
		filter["price_per_day"] = bson.M{"$lte": opts.MaxPricePerDay}
	}

	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return domaincar.SearchResult{}, err
	}

	dir := 1
	if opts.SortDesc {
		dir = -1
	}
	var sortKey string
	switch opts.SortBy {
	case domaincar.SortByPrice:
		sortKey = "price_per_day"
	case domaincar.SortByName:
		sortKey = "name"
	default:
		sortKey = "created_at"
	}

	findOpts := options.Find().
		SetSort(bson.D{{Key: sortKey, Value: dir}, {Key: "_id", Value: 1}}).
		SetSkip(int64(opts.Offset)).
		SetLimit(int64(opts.Limit))
	cursor, err := r.col.Find(ctx, filter, findOpts)
	if err != nil {
		return domaincar.SearchResult{}, err
	}
	defer cursor.Close(ctx)

	items := make([]*domaincar.Car, 0, opts.Limit)
	for cursor.Next(ctx) {
		var doc carDocument
		if err := cursor.Decode(&doc); err != nil {
			return domaincar.SearchResult{}, err
		}
		items = append(items, doc.toAggregate())
	}
	if err := cursor.Err(); err != nil {
		return domaincar.SearchResult{}, err
	}
	return domaincar.SearchResult{Items: items, Total: int(total)}, nil
}

func (r *CarRepository) Save(ctx context.Context, c *domaincar.Car) error {
	doc := newCarDocument(c)
	filter := bson.M{"_id": doc.ID, "version": c.Version}
	doc.Version = c.Version + 1
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
	c.Version = doc.Version
	return nil
}

func (r *CarRepository) NextID(ctx context.Context) (domaincar.CarID, error) {
	v, err := nextSequence(ctx, r.db, "cars")
	if err != nil {
		return 0, err
	}
	return domaincar.CarID(v), nil
}

// TouchBookingSet bumps the car's booking_rev fence inside the ambient
// session. Two transactions bumping the same fence write-conflict, so the
// loser aborts and retries after the winner's bookings are visible.
func (r *CarRepository) TouchBookingSet(ctx context.Context, id domaincar.CarID) error {
	res := r.col.FindOneAndUpdate(
		ctx,
		bson.M{"_id": int64(id)},
		bson.M{"$inc": bson.M{"booking_rev": int64(1)}},
	)
	if err := res.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domaincar.ErrCarNotFound
		}
		return classifyWriteError(err)
	}
	return nil
}

type carDocument struct {
	ID          int64  `bson:"_id"`
	Name        string `bson:"name"`
	Brand       string `bson:"brand"`
	PricePerDay int64  `bson:"price_per_day"`
	Currency    string `bson:"currency"`
	Available   bool   `bson:"available"`
	Deleted     bool   `bson:"deleted"`
	ImageURL    string `bson:"image_url"`
	CreatedAt   int64  `bson:"created_at"`
	UpdatedAt   int64  `bson:"updated_at"`
	Version     int64  `bson:"version"`
}

func newCarDocument(c *domaincar.Car) carDocument {
	return carDocument{
		ID:          int64(c.ID),
		Name:        c.Name,
		Brand:       c.Brand,
		PricePerDay: c.PricePerDay.Amount,
		Currency:    c.PricePerDay.Currency,
		Available:   c.Available,
		Deleted:     c.Deleted,
		ImageURL:    c.ImageURL,
		CreatedAt:   c.CreatedAt.UnixMilli(),
		UpdatedAt:   c.UpdatedAt.UnixMilli(),
		Version:     c.Version,
	}
}

func (d carDocument) toAggregate() *domaincar.Car {
	return &domaincar.Car{
		ID:          domaincar.CarID(d.ID),
		Name:        d.Name,
		Brand:       d.Brand,
		PricePerDay: money.Money{Amount: d.PricePerDay, Currency: d.Currency},
		Available:   d.Available,
		Deleted:     d.Deleted,
		ImageURL:    d.ImageURL,
		CreatedAt:   timestampToTime(d.CreatedAt),
		UpdatedAt:   timestampToTime(d.UpdatedAt),
		Version:     d.Version,
	}
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
