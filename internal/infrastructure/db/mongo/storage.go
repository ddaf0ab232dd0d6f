package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const storageCollection = "browser_storage"

// Storage is a durable key-value backend for browser sessions. Each key is
// one document; expired documents are reaped by a TTL index on expires_at.
type Storage struct {
	coll *mongo.Collection
	ttl  time.Duration
}

func NewStorage(db *mongo.Database, ttl time.Duration) *Storage {
	return &Storage{coll: db.Collection(storageCollection), ttl: ttl}
}

type storageItem struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
	ExpiresAt time.Time `bson:"expires_at,omitempty"`
}

func (s *Storage) GetItem(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var item storageItem
	err := s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&item)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("find item: %w", err)
	}
	if !item.ExpiresAt.IsZero() && time.Now().After(item.ExpiresAt) {
		return "", false, nil
	}
	return item.Value, true, nil
}

func (s *Storage) SetItem(ctx context.Context, key, value string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	now := time.Now().UTC()
	set := bson.M{"value": value, "updated_at": now}
	if s.ttl > 0 {
		set["expires_at"] = now.Add(s.ttl)
	}

	_, err := s.coll.UpdateOne(ctx, bson.M{"_id": key}, bson.M{"$set": set}, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert item: %w", err)
	}
	return nil
}

func (s *Storage) RemoveItem(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.coll.Database().Client().Ping(ctx, nil)
}

func (s *Storage) Name() string { return "mongodb" }

// EnsureIndexes creates the TTL index on expires_at.
func (s *Storage) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		return fmt.Errorf("create ttl index: %w", err)
	}
	return nil
}
