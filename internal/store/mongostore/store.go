package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"slotbook/internal/domain"
	"slotbook/internal/store"
)

// Connect opens a client and verifies it with a ping.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

type dayDoc struct {
	Date      string             `bson:"_id"`
	Blocked   []domain.TimePoint `bson:"blocked"`
	Bookings  []domain.Booking   `bson:"bookings"`
	Version   int64              `bson:"version"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d dayDoc) day() domain.DayDocument {
	return domain.DayDocument{Blocked: d.Blocked, Bookings: d.Bookings}.Normalized()
}

// Store keeps one document per date, keyed by the date itself. Writes are guarded by a version
// counter; a writer that lost the race gets store.ErrConflict.
type Store struct {
	coll *mongo.Collection
	now  func() time.Time
}

func New(coll *mongo.Collection) *Store {
	return &Store{coll: coll, now: time.Now}
}

func (s *Store) Get(ctx context.Context, date string) (domain.DayDocument, error) {
	doc, err := s.find(ctx, date)
	if err != nil {
		return domain.DayDocument{}, err
	}
	return doc.day(), nil
}

func (s *Store) find(ctx context.Context, date string) (dayDoc, error) {
	var doc dayDoc
	err := s.coll.FindOne(ctx, bson.M{"_id": date}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return dayDoc{}, store.ErrNotFound
		}
		return dayDoc{}, fmt.Errorf("find day %s: %w", date, err)
	}
	return doc, nil
}

func (s *Store) Update(ctx context.Context, date string, fn store.UpdateFunc) error {
	cur, err := s.find(ctx, date)
	exists := true
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		exists = false
	default:
		return err
	}

	day := domain.EmptyDay()
	if exists {
		day = cur.day()
	}

	next, err := fn(day)
	if err != nil {
		return err
	}
	next = next.Normalized()
	now := s.now().UTC()

	if !exists {
		_, err := s.coll.InsertOne(ctx, dayDoc{
			Date:      date,
			Blocked:   next.Blocked,
			Bookings:  next.Bookings,
			Version:   1,
			UpdatedAt: now,
		})
		if mongo.IsDuplicateKeyError(err) {
			return store.ErrConflict
		}
		if err != nil {
			return fmt.Errorf("insert day %s: %w", date, err)
		}
		return nil
	}

	filter := bson.M{"_id": date, "version": cur.Version}
	update := bson.M{
		"$set": bson.M{"blocked": next.Blocked, "bookings": next.Bookings, "updatedAt": now},
		"$inc": bson.M{"version": 1},
	}
	result, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("update day %s: %w", date, err)
	}
	if result.MatchedCount == 0 {
		return store.ErrConflict
	}
	return nil
}

func (s *Store) ListDates(ctx context.Context, start, end string) ([]string, error) {
	filter := bson.M{"_id": bson.M{"$gte": start, "$lte": end}}
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetProjection(bson.M{"_id": 1})

	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list days: %w", err)
	}
	defer cursor.Close(ctx)

	dates := []string{}
	for cursor.Next(ctx) {
		var row struct {
			Date string `bson:"_id"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, err
		}
		dates = append(dates, row.Date)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return dates, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.coll.Database().Client().Ping(ctx, nil)
}
