package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DefaultMongoDatabase is the database used when none is configured.
const DefaultMongoDatabase = "pagecomposer"

// MongoBackend keeps each kind in its own collection.
type MongoBackend struct {
	client *mongo.Client
	db     *mongo.Database
}

type mongoRecord struct {
	ID   string `bson:"_id"`
	Data []byte `bson:"data"`
}

// DialMongo connects to uri and checks the connection.
func DialMongo(ctx context.Context, uri, database string) (*MongoBackend, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return NewMongoBackend(client, database), nil
}

// NewMongoBackend wraps a connected client. An empty database uses
// DefaultMongoDatabase.
func NewMongoBackend(client *mongo.Client, database string) *MongoBackend {
	if database == "" {
		database = DefaultMongoDatabase
	}
	return &MongoBackend{client: client, db: client.Database(database)}
}

func (m *MongoBackend) coll(kind Kind) *mongo.Collection { return m.db.Collection(string(kind)) }

func (m *MongoBackend) Get(ctx context.Context, kind Kind, id string) ([]byte, error) {
	var rec mongoRecord
	err := m.coll(kind).FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound(kind, id)
	}
	if err != nil {
		return nil, fmt.Errorf("mongo get %s/%s: %w", kind, id, err)
	}
	return rec.Data, nil
}

func (m *MongoBackend) Put(ctx context.Context, kind Kind, id string, data []byte) error {
	_, err := m.coll(kind).ReplaceOne(ctx, bson.M{"_id": id}, mongoRecord{ID: id, Data: data},
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongo put %s/%s: %w", kind, id, err)
	}
	return nil
}

func (m *MongoBackend) Delete(ctx context.Context, kind Kind, id string) error {
	if _, err := m.coll(kind).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("mongo delete %s/%s: %w", kind, id, err)
	}
	return nil
}

func (m *MongoBackend) List(ctx context.Context, kind Kind) ([]string, error) {
	opts := options.Find().
		SetProjection(bson.M{"_id": 1}).
		SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := m.coll(kind).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo list %s: %w", kind, err)
	}
	defer cur.Close(ctx)

	var ids []string
	for cur.Next(ctx) {
		var rec struct {
			ID string `bson:"_id"`
		}
		if err := cur.Decode(&rec); err != nil {
			return nil, fmt.Errorf("mongo list %s: %w", kind, err)
		}
		ids = append(ids, rec.ID)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("mongo list %s: %w", kind, err)
	}
	return ids, nil
}

func (m *MongoBackend) Close() error {
	return m.client.Disconnect(context.Background())
}

var _ Backend = (*MongoBackend)(nil)
