package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pagelens/pagelens/src/summary"
)

const mongoCloseTimeout = 5 * time.Second

// MongoStore persists history in a MongoDB collection.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

func NewMongoStore(ctx context.Context, uri, database, collection string) (*MongoStore, error) {
	if uri == "" {
		return nil, errors.New("history: mongo uri is required")
	}
	if database == "" {
		database = "pagelens"
	}
	if collection == "" {
		collection = "summary_history"
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	coll := client.Database(database).Collection(collection)
	indexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "source_url", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := coll.Indexes().CreateOne(ctx, indexModel); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("history: create index: %w", err)
	}
	return &MongoStore{client: client, collection: coll}, nil
}

func (ms *MongoStore) Save(ctx context.Context, env Envelope) error {
	if env.Record == nil {
		return nil
	}
	recordJSON, err := json.Marshal(env.Record)
	if err != nil {
		return fmt.Errorf("history: encode record: %w", err)
	}
	doc := bson.M{
		"_id":        env.ID,
		"source_url": env.Record.SourceURL,
		"record":     string(recordJSON),
		"saved_at":   env.SavedAt,
	}
	// Replace any earlier entry for the same URL: _id changes, so delete
	// then insert rather than upserting on the immutable _id.
	if _, err := ms.collection.DeleteOne(ctx, bson.M{"source_url": env.Record.SourceURL}); err != nil {
		return err
	}
	if _, err := ms.collection.InsertOne(ctx, doc); err != nil {
		return err
	}
	return ms.prune(ctx)
}

func (ms *MongoStore) prune(ctx context.Context) error {
	opts := options.Find().
		SetSort(bson.D{{Key: "saved_at", Value: -1}}).
		SetSkip(int64(Capacity)).
		SetProjection(bson.M{"_id": 1})
	cursor, err := ms.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	var stale []string
	for cursor.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return err
		}
		stale = append(stale, doc.ID)
	}
	if err := cursor.Err(); err != nil {
		return err
	}
	if len(stale) == 0 {
		return nil
	}
	_, err = ms.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": stale}})
	return err
}

func (ms *MongoStore) Get(ctx context.Context) ([]Envelope, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "saved_at", Value: -1}}).
		SetLimit(int64(Capacity))
	cursor, err := ms.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []Envelope
	for cursor.Next(ctx) {
		var doc struct {
			ID      string    `bson:"_id"`
			Record  string    `bson:"record"`
			SavedAt time.Time `bson:"saved_at"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		var rec summary.Record
		if err := json.Unmarshal([]byte(doc.Record), &rec); err != nil {
			return nil, fmt.Errorf("history: decode record %s: %w", doc.ID, err)
		}
		out = append(out, Envelope{ID: doc.ID, Record: &rec, SavedAt: doc.SavedAt})
	}
	return out, cursor.Err()
}

func (ms *MongoStore) Delete(ctx context.Context, id string) error {
	_, err := ms.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (ms *MongoStore) Clear(ctx context.Context) error {
	_, err := ms.collection.DeleteMany(ctx, bson.M{})
	return err
}

// Close disconnects the client.
func (ms *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), mongoCloseTimeout)
	defer cancel()
	return ms.client.Disconnect(ctx)
}

var _ Store = (*MongoStore)(nil)
