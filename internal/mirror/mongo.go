package mirror

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Himson2006/Yolo-Gpu-2/internal/conf"
	"github.com/Himson2006/Yolo-Gpu-2/internal/privacy"
)

const mongoConnectTimeout = 10 * time.Second

// MongoMirror keeps mirror documents in a MongoDB collection keyed by event id.
// Updates upsert, so a missing document is created with just the mirrored fields.
type MongoMirror struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoMirror connects to uri and verifies the connection.
func NewMongoMirror(ctx context.Context, uri, database, collection string) (*MongoMirror, error) {
	ctx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", privacy.WrapError(err))
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", privacy.WrapError(err))
	}
	return &MongoMirror{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

func (m *MongoMirror) Name() string { return conf.MirrorMongo }

// Close disconnects the client.
func (m *MongoMirror) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *MongoMirror) SetOverriddenSpecies(ctx context.Context, eventID string, labels []string) error {
	return m.apply(ctx, eventID, overrideUpdate(labels))
}

func (m *MongoMirror) AddBehavior(ctx context.Context, eventID string, b Behavior) error {
	return m.apply(ctx, eventID, addBehaviorUpdate(b))
}

func (m *MongoMirror) RemoveBehavior(ctx context.Context, eventID string, b Behavior) error {
	return m.apply(ctx, eventID, removeBehaviorUpdate(b))
}

func (m *MongoMirror) apply(ctx context.Context, eventID string, update bson.D) error {
	_, err := m.collection.UpdateOne(ctx, documentFilter(eventID), update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("update mirror document %s: %w", eventID, err)
	}
	return nil
}

func documentFilter(eventID string) bson.D {
	return bson.D{{Key: "_id", Value: eventID}}
}

func overrideUpdate(labels []string) bson.D {
	if labels == nil {
		labels = []string{}
	}
	return bson.D{{Key: "$set", Value: bson.D{{Key: keyOverridden, Value: labels}}}}
}

func addBehaviorUpdate(b Behavior) bson.D {
	return bson.D{{Key: "$push", Value: bson.D{{Key: keyBehaviors, Value: b}}}}
}

func removeBehaviorUpdate(b Behavior) bson.D {
	return bson.D{{Key: "$pull", Value: bson.D{{Key: keyBehaviors, Value: bson.D{
		{Key: "start_time", Value: b.StartTime},
		{Key: "description", Value: b.Description},
	}}}}}
}
