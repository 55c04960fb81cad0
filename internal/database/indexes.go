package database

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// parentField mirrors the collection-path field the mongo document store writes.
const parentField = "_parent"

func createIndex(db *mongo.Database, collection string, model mongo.IndexModel) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	name := ""
	if model.Options != nil && model.Options.Name != nil {
		name = *model.Options.Name
	}

	log.Printf("EnsureIndexes: creating %s.%s index", collection, name)
	if _, err := db.Collection(collection).Indexes().CreateOne(ctx, model); err != nil {
		log.Printf("EnsureIndexes: %s.%s index error: %v", collection, name, err)
		return err
	}
	return nil
}

// EnsureLineIndexes indexes the per-user subcollections by owner path. Every cart, favorites
// and carryover read filters on it.
func EnsureLineIndexes(db *mongo.Database) error {
	for _, collection := range []string{"cart", "favorites", "carryover"} {
		err := createIndex(db, collection, mongo.IndexModel{
			Keys:    bson.D{{Key: parentField, Value: 1}},
			Options: options.Index().SetName("parent_index"),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func EnsureOrderIndexes(db *mongo.Database) error {
	return createIndex(db, "orders", mongo.IndexModel{
		Keys: bson.D{
			{Key: "userId", Value: 1},
			{Key: "createdAt", Value: -1},
		},
		Options: options.Index().SetName("userId_createdAt_index"),
	})
}

// EnsureRefreshTokenIndexes lets MongoDB purge refresh tokens once they expire.
func EnsureRefreshTokenIndexes(db *mongo.Database) error {
	return createIndex(db, "refreshTokens", mongo.IndexModel{
		Keys:    bson.D{{Key: "expiresAt", Value: 1}},
		Options: options.Index().SetName("expiresAt_ttl").SetExpireAfterSeconds(0),
	})
}

// EnsureIndexes creates every index and logs failures without stopping at the first one.
func EnsureIndexes(db *mongo.Database) {
	if err := EnsureLineIndexes(db); err != nil {
		log.Printf("line index warning: %v", err)
	}
	if err := EnsureOrderIndexes(db); err != nil {
		log.Printf("order index warning: %v", err)
	}
	if err := EnsureRefreshTokenIndexes(db); err != nil {
		log.Printf("refresh token index warning: %v", err)
	}
}
