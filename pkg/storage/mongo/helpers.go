package mongo

import (
	"context"

	"blog/pkg/storage"
)

var MongoTestConf = &Config{
	URI:    "mongodb://localhost:27018/",
	DBName: "blog_test",
}

// StorageConnect is a helper function that establishes a connection to the predefined test Mongo instance.
// It returns a connected Storage object or an error if connection fails.
func StorageConnect(ctx context.Context) (*Storage, error) {
	db, err := New(ctx, MongoTestConf)
	if err != nil {
		return nil, storage.ErrConnectDB
	}

	err = db.Ping(ctx)
	if err != nil {
		db.Close(ctx)
		return nil, storage.ErrDBNotResponding
	}

	return db, nil
}

// RestoreDB drops the users and blogs collections to reset the database state.
// WARNING: Use only in tests to avoid data loss.
func RestoreDB(ctx context.Context, db *Storage) error {
	for _, name := range []string{usersCollection, blogsCollection} {
		if err := db.database().Collection(name).Drop(ctx); err != nil {
			return err
		}
	}
	return nil
}
