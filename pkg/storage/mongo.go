package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nyc-design/neil-logger/pkg/record"
)

// DefaultDatabase is used when Config.Database is empty.
const DefaultDatabase = "logs"

// Mongo writes documents to collections of a single MongoDB database.
type Mongo struct {
	client *mongo.Client
	db     *mongo.Database
}

// OpenMongo connects to the deployment at cfg.URI. Server selection is bounded by
// cfg.Timeout, so an unreachable server surfaces on the first write instead of
// blocking forever.
func OpenMongo(ctx context.Context, cfg Config) (*Mongo, error) {
	timeout := cfg.timeout()
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}

	database := cfg.Database
	if database == "" {
		database = DefaultDatabase
	}
	return &Mongo{client: client, db: client.Database(database)}, nil
}

func (m *Mongo) Insert(ctx context.Context, collection string, doc record.Document) error {
	_, err := m.db.Collection(collection).InsertOne(ctx, doc)
	if errors.Is(err, mongo.ErrClientDisconnected) {
		return ErrClosed
	}
	if err != nil {
		return fmt.Errorf("inserting into %s: %w", collection, err)
	}
	return nil
}

func (m *Mongo) Recent(ctx context.Context, collection string, q Query) ([]Entry, error) {
	filter := bson.D{}
	if q.RunID != "" {
		filter = bson.D{{Key: "run_id", Value: q.RunID}}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(q.limit()))

	cur, err := m.db.Collection(collection).Find(ctx, filter, opts)
	if errors.Is(err, mongo.ErrClientDisconnected) {
		return nil, ErrClosed
	}
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", collection, err)
	}
	defer cur.Close(ctx)

	var entries []Entry
	for cur.Next(ctx) {
		e, err := entryFromRaw(collection, cur.Current)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, cur.Err()
}

// entryFromRaw converts a stored BSON document to an Entry with a relaxed
// extended JSON body.
func entryFromRaw(collection string, raw bson.Raw) (Entry, error) {
	e := Entry{Collection: collection}

	if v, err := raw.LookupErr("_id"); err == nil {
		if oid, ok := v.ObjectIDOK(); ok {
			e.ID = oid.Hex()
		} else if s, ok := v.StringValueOK(); ok {
			e.ID = s
		}
	}
	if v, err := raw.LookupErr("run_id"); err == nil {
		e.RunID, _ = v.StringValueOK()
	}
	if v, err := raw.LookupErr("timestamp"); err == nil {
		if dt, ok := v.DateTimeOK(); ok {
			e.Timestamp = time.UnixMilli(dt).UTC()
		}
	}

	body, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return Entry{}, fmt.Errorf("encoding document: %w", err)
	}
	e.Body = body
	return e, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
