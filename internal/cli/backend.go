package cli

import (
	"context"
	"fmt"
	"log"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/docstore"
)

// openStore connects the document store selected by STORE_BACKEND.
func openStore(ctx context.Context, cfg config.Config) (docstore.Store, error) {
	switch cfg.StoreBackend {
	case "mongo":
		client, err := database.Connect(cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		db := client.Database(cfg.DBName)
		log.Println("MongoDB connected to:", db.Name())
		database.EnsureIndexes(db)
		return docstore.NewMongo(db), nil
	case "firestore":
		if cfg.FirestoreProject == "" {
			return nil, fmt.Errorf("FIRESTORE_PROJECT is not set")
		}
		store, err := docstore.OpenFirestore(ctx, cfg.FirestoreProject)
		if err != nil {
			return nil, err
		}
		log.Println("Firestore connected to project:", cfg.FirestoreProject)
		return store, nil
	case "memory":
		log.Println("using in-memory store; data is lost on exit")
		return docstore.NewMemory(), nil
	}
	return nil, fmt.Errorf("unknown STORE_BACKEND %q (mongo|firestore|memory)", cfg.StoreBackend)
}
