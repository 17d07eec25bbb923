package storage

import (
	"context"
	"fmt"
	"time"

	"obsquery/config"
	"obsquery/core"
	"obsquery/metrics"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// EventCursor interface for mocking
type EventCursor interface {
	All(ctx context.Context, results interface{}) error
	Close(ctx context.Context) error
	Err() error
}

// EventCollection interface for mocking
type EventCollection interface {
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (EventCursor, error)
	BulkWrite(ctx context.Context, models []mongo.WriteModel, opts ...*options.BulkWriteOptions) (*mongo.BulkWriteResult, error)
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
}

// mongoEventCursor adapts *mongo.Cursor to EventCursor
type mongoEventCursor struct {
	*mongo.Cursor
}

func (m *mongoEventCursor) All(ctx context.Context, results interface{}) error {
	return m.Cursor.All(ctx, results)
}

func (m *mongoEventCursor) Close(ctx context.Context) error {
	return m.Cursor.Close(ctx)
}

func (m *mongoEventCursor) Err() error {
	return m.Cursor.Err()
}

// mongoEventCollection adapts *mongo.Collection to EventCollection
type mongoEventCollection struct {
	*mongo.Collection
}

func (m *mongoEventCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (EventCursor, error) {
	cursor, err := m.Collection.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	return &mongoEventCursor{Cursor: cursor}, nil
}

// MongoDB holds the MongoDB client and database
type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// NewMongoDB creates a new MongoDB connection
func NewMongoDB(uri, dbName string, maxPoolSize uint64, logger *zap.SugaredLogger) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri).SetMaxPoolSize(maxPoolSize)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Info("Connected to MongoDB successfully")

	return &MongoDB{
		Client:   client,
		Database: client.Database(dbName),
	}, nil
}

// MongoEventStore is the document store backed by a MongoDB collection.
// Events are stored with their id as _id.
type MongoEventStore struct {
	mongoDB    *MongoDB
	EventsColl EventCollection
	timeout    time.Duration
	logger     *zap.SugaredLogger
}

// NewMongoEventStore opens the configured collection.
func NewMongoEventStore(cfg config.MongoDBConfig, logger *zap.SugaredLogger) (*MongoEventStore, error) {
	mongoDB, err := NewMongoDB(cfg.URI, cfg.Database, cfg.MaxPoolSize, logger)
	if err != nil {
		return nil, err
	}
	return &MongoEventStore{
		mongoDB:    mongoDB,
		EventsColl: &mongoEventCollection{Collection: mongoDB.Database.Collection(cfg.Collection)},
		timeout:    time.Duration(cfg.Timeout) * time.Second,
		logger:     logger,
	}, nil
}

func (s *MongoEventStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Lookup fetches the records for ids in a single query.
func (s *MongoEventStore) Lookup(ctx context.Context, ids []string) (map[string]map[string]interface{}, error) {
	docs := make(map[string]map[string]interface{}, len(ids))
	if len(ids) == 0 {
		return docs, nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	cursor, err := s.EventsColl.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to find events: %w", err)
	}
	defer cursor.Close(ctx)

	var results []bson.M
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}

	for _, result := range results {
		doc := normalizeDocument(result)
		id, ok := doc[core.FieldID].(string)
		if !ok || id == "" {
			s.logger.Warnw("skipping stored event without string id", "id", doc[core.FieldID])
			continue
		}
		docs[id] = doc
	}
	return docs, nil
}

// PutEvents upserts events by id.
func (s *MongoEventStore) PutEvents(ctx context.Context, events []*core.Event) error {
	if len(events) == 0 {
		return nil
	}

	models := make([]mongo.WriteModel, 0, len(events))
	for _, event := range events {
		if event.ID == "" {
			return ErrEventWithoutID
		}
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": event.ID}).
			SetReplacement(event).
			SetUpsert(true))
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	result, err := s.EventsColl.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return fmt.Errorf("failed to write events: %w", err)
	}

	metrics.EventsLoaded.WithLabelValues(BackendMongoDB).Add(float64(len(events)))
	s.logger.Debugw("stored events", "upserted", result.UpsertedCount, "modified", result.ModifiedCount)
	return nil
}

// Count returns the number of stored events.
func (s *MongoEventStore) Count(ctx context.Context) (int64, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	count, err := s.EventsColl.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

// HealthCheck performs a health check on the MongoDB connection
func (s *MongoEventStore) HealthCheck(ctx context.Context) error {
	if s.mongoDB == nil {
		return fmt.Errorf("MongoDB client not initialized")
	}
	return s.mongoDB.Client.Ping(ctx, nil)
}

// Close closes the MongoDB connection
func (s *MongoEventStore) Close() error {
	if s.mongoDB == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.mongoDB.Client.Disconnect(ctx)
}

// normalizeDocument converts a decoded BSON record into plain Go values and
// renames _id to id.
func normalizeDocument(m bson.M) map[string]interface{} {
	doc := normalizeValue(m).(map[string]interface{})
	if id, ok := doc["_id"]; ok {
		doc[core.FieldID] = id
		delete(doc, "_id")
	}
	return doc
}

func normalizeValue(v interface{}) interface{} {
	switch t := v.(type) {
	case primitive.M:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = normalizeValue(val)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = normalizeValue(val)
		}
		return out
	case primitive.D:
		out := make(map[string]interface{}, len(t))
		for _, e := range t {
			out[e.Key] = normalizeValue(e.Value)
		}
		return out
	case primitive.A:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = normalizeValue(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = normalizeValue(val)
		}
		return out
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.ObjectID:
		return t.Hex()
	case primitive.Timestamp:
		return time.Unix(int64(t.T), 0).UTC()
	default:
		return v
	}
}
