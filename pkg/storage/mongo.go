package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/schemagraph/pkg/retry"
)

// Mongo defaults.
const (
	DefaultMongoURL        = "mongodb://localhost:27017"
	DefaultMongoDatabase   = "schemagraph"
	DefaultMongoCollection = "kv"
)

// MongoStore keeps one document per key in a collection, keyed by _id.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	owns   bool
}

// mongoEntry is the stored document.
type mongoEntry struct {
	Key       string    `bson:"_id"`
	Value     []byte    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// OpenMongo connects to url and uses the "kv" collection of database.
func OpenMongo(ctx context.Context, url, database string) (*MongoStore, error) {
	if url == "" {
		url = DefaultMongoURL
	}
	if database == "" {
		database = DefaultMongoDatabase
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(url))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	err = retry.Do(ctx, func() error {
		return retry.Transient(client.Ping(ctx, nil))
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	s := NewMongoStore(client.Database(database).Collection(DefaultMongoCollection))
	s.owns = true
	return s, nil
}

// NewMongoStore uses an existing collection. Close does not disconnect the
// collection's client.
func NewMongoStore(coll *mongo.Collection) *MongoStore {
	return &MongoStore{client: coll.Database().Client(), coll: coll}
}

func (s *MongoStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var doc mongoEntry
	err := s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, s.wrap(err, "get %s", key)
	}
	return doc.Value, true, nil
}

func (s *MongoStore) Set(ctx context.Context, key string, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	doc := mongoEntry{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return s.wrap(err, "set %s", key)
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, key string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return s.wrap(err, "delete %s", key)
	}
	return nil
}

// ListByPrefix matches _id against an anchored regex, which MongoDB serves
// from the _id index.
func (s *MongoStore) ListByPrefix(ctx context.Context, prefix string) ([]Entry, error) {
	filter := bson.M{}
	if prefix != "" {
		filter["_id"] = bson.M{"$regex": "^" + regexp.QuoteMeta(prefix)}
	}
	cur, err := s.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, s.wrap(err, "list %q", prefix)
	}
	defer cur.Close(ctx)

	var docs []mongoEntry
	if err := cur.All(ctx, &docs); err != nil {
		return nil, s.wrap(err, "decode %q", prefix)
	}
	out := make([]Entry, 0, len(docs))
	for _, d := range docs {
		out = append(out, Entry{Key: d.Key, Value: d.Value})
	}
	// Server-side sort uses BSON string order; re-sort to match the other backends.
	sortEntries(out)
	return out, nil
}

func (s *MongoStore) Close() error {
	if !s.owns {
		return nil
	}
	s.owns = false
	return s.client.Disconnect(context.Background())
}

func (s *MongoStore) wrap(err error, format string, args ...any) error {
	if errors.Is(err, mongo.ErrClientDisconnected) {
		return ErrClosed
	}
	return fmt.Errorf("mongo %s: %w", fmt.Sprintf(format, args...), err)
}

var _ Store = (*MongoStore)(nil)
