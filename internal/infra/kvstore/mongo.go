// Task 2.3: MongoDB store backend.
package kvstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	defaultMongoDB         = "stackd"
	defaultMongoCollection = "kv_store"
)

type mongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// kvDocument is the shape of one key/value entry in the collection.
type kvDocument struct {
	Key   string `bson:"_id"`
	Value []byte `bson:"value"`
}

// openMongo connects with pooling configured and pings the primary before
// handing the store out.
func openMongo(ctx context.Context, spec Spec) (Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(spec.URL).
		SetMaxPoolSize(50).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(30 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("kvstore: connect mongodb: %w", err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("kvstore: ping mongodb: %w", err)
	}

	dbName := spec.DB
	if dbName == "" {
		dbName = defaultMongoDB
	}
	collName := spec.Collection
	if collName == "" {
		collName = defaultMongoCollection
	}

	return &mongoStore{
		client: client,
		coll:   client.Database(dbName).Collection(collName),
	}, nil
}

func (s *mongoStore) Get(ctx context.Context, key string) ([]byte, error) {
	var doc kvDocument
	err := s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("kvstore: mongodb get %q: %w", key, err)
	}
	return doc.Value, nil
}

func (s *mongoStore) Set(ctx context.Context, key string, value []byte) error {
	doc := kvDocument{Key: key, Value: value}
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("kvstore: mongodb set %q: %w", key, err)
	}
	return nil
}

func (s *mongoStore) Delete(ctx context.Context, key string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": key})
	if err != nil {
		return fmt.Errorf("kvstore: mongodb delete %q: %w", key, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *mongoStore) List(ctx context.Context, prefix string) (map[string][]byte, error) {
	filter := bson.M{"_id": bson.M{"$regex": "^" + regexp.QuoteMeta(prefix)}}
	cur, err := s.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("kvstore: mongodb list %q: %w", prefix, err)
	}
	defer cur.Close(ctx)

	out := make(map[string][]byte)
	for cur.Next(ctx) {
		var doc kvDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("kvstore: mongodb list decode: %w", err)
		}
		out[doc.Key] = doc.Value
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("kvstore: mongodb list cursor: %w", err)
	}
	return out, nil
}

func (s *mongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *mongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}
