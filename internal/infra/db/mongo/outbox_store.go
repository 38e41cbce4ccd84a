package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	appoutbox "carrental/internal/app/outbox"
	infraoutbox "carrental/internal/infra/outbox"
)

const (
	outboxStatusPending = "pending"
	outboxStatusClaimed = "claimed"
	outboxStatusSent    = "sent"
)

// OutboxStore persists event records in the outbox collection. Add runs in
// the ambient session, so staged events commit or vanish together with the
// aggregate writes that produced them.
type OutboxStore struct {
	col *mongo.Collection
}

func NewOutboxStore(db *mongo.Database) *OutboxStore {
	return &OutboxStore{col: db.Collection("outbox")}
}

func (s *OutboxStore) Add(ctx context.Context, record appoutbox.EventRecord) error {
	doc := outboxDocument{
		ID:          record.ID,
		Name:        record.Name,
		Aggregate:   record.Aggregate,
		Payload:     record.Payload,
		Headers:     record.Headers,
		OccurredAt:  record.OccurredAt.UnixMilli(),
		Status:      outboxStatusPending,
		AvailableAt: time.Now().UnixMilli(),
	}
	_, err := s.col.InsertOne(ctx, doc)
	return err
}

// Flush is a no-op: documents inserted inside the transaction become visible
// at commit, and the worker picks them up from there.
func (s *OutboxStore) Flush(ctx context.Context) error {
	return nil
}

func (s *OutboxStore) Claim(ctx context.Context, workerID string) (*infraoutbox.EventDocument, error) {
	now := time.Now().UnixMilli()
	filter := bson.M{
		"status":       outboxStatusPending,
		"available_at": bson.M{"$lte": now},
	}
	update := bson.M{"$set": bson.M{
		"status":     outboxStatusClaimed,
		"claimed_by": workerID,
		"claimed_at": now,
	}}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "occurred_at", Value: 1}}).
		SetReturnDocument(options.After)

	var doc outboxDocument
	if err := s.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &infraoutbox.EventDocument{
		ID:         doc.ID,
		Name:       doc.Name,
		Aggregate:  doc.Aggregate,
		Payload:    doc.Payload,
		Headers:    doc.Headers,
		OccurredAt: timestampToTime(doc.OccurredAt),
		Attempts:   doc.Attempts,
	}, nil
}

func (s *OutboxStore) MarkSent(ctx context.Context, id string) error {
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"status":  outboxStatusSent,
		"sent_at": time.Now().UnixMilli(),
	}})
	return err
}

func (s *OutboxStore) MarkFailed(ctx context.Context, id string, retryAt time.Time, reason string) error {
	_, err := s.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"status":       outboxStatusPending,
			"available_at": retryAt.UnixMilli(),
			"last_error":   reason,
		},
		"$inc": bson.M{"attempts": 1},
	})
	return err
}

type outboxDocument struct {
	ID          string            `bson:"_id"`
	Name        string            `bson:"name"`
	Aggregate   string            `bson:"aggregate"`
	Payload     []byte            `bson:"payload"`
	Headers     map[string]string `bson:"headers,omitempty"`
	OccurredAt  int64             `bson:"occurred_at"`
	Status      string            `bson:"status"`
	AvailableAt int64             `bson:"available_at"`
	ClaimedBy   string            `bson:"claimed_by,omitempty"`
	ClaimedAt   int64             `bson:"claimed_at,omitempty"`
	SentAt      int64             `bson:"sent_at,omitempty"`
	Attempts    int               `bson:"attempts"`
	LastError   string            `bson:"last_error,omitempty"`
}

var _ appoutbox.Outbox = (*OutboxStore)(nil)
var _ infraoutbox.Store = (*OutboxStore)(nil)
