package mongo

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"research-backend/internal/shared/telemetry"
)

// Collection names.
const (
	UsersCollection        = "users"
	DocumentsCollection    = "documents"
	ChatMessagesCollection = "chats"
)

// Options controls the client pool.
type Options struct {
	MaxPoolSize uint64
	MinPoolSize uint64
	PingTimeout time.Duration
}

// DefaultOptions returns pool defaults for the API process.
func DefaultOptions() Options {
	return Options{MaxPoolSize: 20, MinPoolSize: 1, PingTimeout: 5 * time.Second}
}

// Connect opens a client for uri, verifies it with a ping and returns the
// named database.
func Connect(ctx context.Context, uri, dbName string, opts Options) (*mongo.Client, *mongo.Database, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, nil, fmt.Errorf("MONGO_URL is empty")
	}
	if strings.TrimSpace(dbName) == "" {
		return nil, nil, fmt.Errorf("DB_NAME is empty")
	}

	clientOpts := options.Client().ApplyURI(uri)
	if opts.MaxPoolSize > 0 {
		clientOpts.SetMaxPoolSize(opts.MaxPoolSize)
	}
	if opts.MinPoolSize > 0 {
		clientOpts.SetMinPoolSize(opts.MinPoolSize)
	}
	client, err := mongo.Connect(clientOpts)
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingTimeout := opts.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}

	telemetry.Info("mongo.connected", map[string]any{"db": dbName})
	return client, client.Database(dbName), nil
}

// EnsureIndexes creates the indexes the repositories rely on. It is
// idempotent and safe to run on every start.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		UsersCollection: {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("unique_email"),
			},
		},
		DocumentsCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "upload_date", Value: -1}}},
		},
		ChatMessagesCollection: {
			{Keys: bson.D{{Key: "document_id", Value: 1}, {Key: "user_id", Value: 1}, {Key: "timestamp", Value: 1}}},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: -1}}},
		},
	}
	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	return nil
}

// ContainsFold builds a case-insensitive substring filter value for field
// matching. The input is escaped so it is matched literally.
func ContainsFold(s string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(s), "$options": "i"}
}
